package hxtree

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/pthm/hxtree/internal/logging"
	"github.com/pthm/hxtree/lib/event"
	"github.com/pthm/hxtree/lib/paint"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// Application owns the windows of one user session, assigns component ids
// and tracks which components need repainting.
//
// Component trees are not safe for concurrent use. Request handlers and
// background goroutines must mutate them inside Access.
type Application struct {
	mu     sync.Mutex
	logger *zap.Logger
	locale language.Tag

	windows    []*Window
	mainWindow *Window
	nextWindow int

	nextID     uint64
	components map[string]Component
	dirty      map[Component]struct{}

	router event.Router
}

// ApplicationOption configures an Application.
type ApplicationOption func(*Application)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) ApplicationOption {
	return func(a *Application) {
		a.logger = l
	}
}

// WithLocale sets the application locale inherited by components without
// their own.
func WithLocale(tag language.Tag) ApplicationOption {
	return func(a *Application) {
		a.locale = tag
	}
}

// NewApplication returns an application with no windows.
func NewApplication(opts ...ApplicationOption) *Application {
	a := &Application{
		logger:     zap.NewNop(),
		components: make(map[string]Component),
		dirty:      make(map[Component]struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Access runs fn while holding the session lock.
func (a *Application) Access(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn()
}

func (a *Application) Logger() *zap.Logger { return a.logger }

func (a *Application) Locale() language.Tag { return a.locale }

func (a *Application) SetLocale(tag language.Tag) {
	a.locale = tag
	for _, w := range a.windows {
		requestRepaintAll(w)
	}
}

// AddWindow registers w and attaches its tree. Unnamed windows get a
// generated name. The first window added becomes the main window.
func (a *Application) AddWindow(w *Window) error {
	if w.app == a {
		return nil
	}
	if w.app != nil {
		return fmt.Errorf("%w: %q belongs to another application", ErrWindowName, w.name)
	}
	if w.name == "" {
		for {
			a.nextWindow++
			name := strconv.Itoa(a.nextWindow)
			if a.Window(name) == nil {
				w.name = name
				break
			}
		}
	} else if a.Window(w.name) != nil {
		return fmt.Errorf("%w: %q", ErrWindowName, w.name)
	}

	a.windows = append(a.windows, w)
	if a.mainWindow == nil {
		a.mainWindow = w
	}
	w.app = a
	attachComponent(w)
	a.logger.Debug("window added", zap.String("name", w.name))
	return nil
}

// RemoveWindow detaches w and forgets it.
func (a *Application) RemoveWindow(w *Window) {
	for i, existing := range a.windows {
		if existing != w {
			continue
		}
		detachComponent(w)
		w.app = nil
		a.windows = append(a.windows[:i:i], a.windows[i+1:]...)
		if a.mainWindow == w {
			a.mainWindow = nil
			if len(a.windows) > 0 {
				a.mainWindow = a.windows[0]
			}
		}
		a.logger.Debug("window removed", zap.String("name", w.name))
		return
	}
}

// SetMainWindow adds w if needed and makes it the main window.
func (a *Application) SetMainWindow(w *Window) error {
	if err := a.AddWindow(w); err != nil {
		return err
	}
	a.mainWindow = w
	return nil
}

func (a *Application) MainWindow() *Window { return a.mainWindow }

// Window returns the window with the given name, or nil.
func (a *Application) Window(name string) *Window {
	for _, w := range a.windows {
		if w.name == name {
			return w
		}
	}
	return nil
}

// Windows returns the registered windows in the order they were added.
func (a *Application) Windows() []*Window {
	out := make([]*Window, len(a.windows))
	copy(out, a.windows)
	return out
}

// Close detaches every window.
func (a *Application) Close() {
	for _, w := range a.Windows() {
		a.RemoveWindow(w)
	}
}

// ComponentByID returns the attached component with the given id.
func (a *Application) ComponentByID(id string) (Component, bool) {
	c, ok := a.components[id]
	return c, ok
}

func (a *Application) register(c Component) {
	b := c.base()
	// Ids are only unique within the application that issued them.
	if b.id == "" || b.idOwner != a {
		b.idOwner = a
		a.nextID++
		b.seq = a.nextID
		b.id = "PID" + strconv.FormatUint(a.nextID, 10)
	}
	b.app = a
	a.components[b.id] = c
	c.AddRepaintRequestListener(a)
	a.logger.Debug("component attached", logging.Component(b.id, c.TagName()))
}

func (a *Application) unregister(c Component) {
	b := c.base()
	delete(a.components, b.id)
	delete(a.dirty, c)
	c.RemoveRepaintRequestListener(a)
	b.app = nil
	a.logger.Debug("component detached", logging.Component(b.id, c.TagName()))
}

// RepaintRequested marks the source component dirty.
func (a *Application) RepaintRequested(e *RepaintRequestEvent) {
	if c := e.Paintable(); c != nil && c.IsAttached() {
		a.dirty[c] = struct{}{}
	}
}

// Dirty returns the components awaiting repaint, ordered by id.
func (a *Application) Dirty() []Component {
	out := make([]Component, 0, len(a.dirty))
	for c := range a.dirty {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].base().seq < out[j].base().seq
	})
	return out
}

// Changes paints every dirty component and clears the dirty set. A
// component whose ancestor is also dirty is painted as part of that
// ancestor only.
func (a *Application) Changes() ([]*paint.Node, error) {
	dirty := a.Dirty()
	t := paint.NewTarget()
	for _, c := range dirty {
		if a.hasDirtyAncestor(c) {
			continue
		}
		if err := c.Paint(t); err != nil {
			return nil, fmt.Errorf("paint %s: %w", c.ComponentID(), err)
		}
	}
	clear(a.dirty)
	return t.Nodes()
}

func (a *Application) hasDirtyAncestor(c Component) bool {
	for p := c.Parent(); p != nil; p = p.Parent() {
		if _, ok := a.dirty[p]; ok {
			return true
		}
	}
	return false
}

// PaintWindow paints a whole window, used for the initial page load.
func (a *Application) PaintWindow(w *Window) ([]*paint.Node, error) {
	t := paint.NewTarget()
	if err := w.Paint(t); err != nil {
		return nil, err
	}
	delete(a.dirty, Component(w))
	for c := range a.dirty {
		if c.Window() == w {
			delete(a.dirty, c)
		}
	}
	return t.Nodes()
}

// ChangeVariables applies client variable changes keyed by component id.
// Changes for unknown, disabled or invisible owners are dropped. Read-only
// owners receive their variables and decide what read-only means; a
// TextField ignores client text but still reports focus and blur.
// Errors returned by owners are passed to ReportError; processing
// continues with the next owner.
func (a *Application) ChangeVariables(changes map[string]map[string]any) {
	ids := make([]string, 0, len(changes))
	for id := range changes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ci, oki := a.components[ids[i]]
		cj, okj := a.components[ids[j]]
		if oki && okj {
			return ci.base().seq < cj.base().seq
		}
		return ids[i] < ids[j]
	})

	for _, id := range ids {
		c, ok := a.components[id]
		if !ok {
			a.logger.Warn("variable change for unknown component", zap.String("id", id))
			continue
		}
		if !c.IsEnabled() || !c.IsVisible() {
			a.logger.Info("variable change rejected",
				logging.Component(id, c.TagName()),
				zap.Bool("enabled", c.IsEnabled()),
				zap.Bool("visible", c.IsVisible()),
			)
			continue
		}
		if err := c.ChangeVariables(a, changes[id]); err != nil {
			a.ReportError(c, err)
		}
	}
}

// AddErrorListener registers l for errors no component listener handled.
func (a *Application) AddErrorListener(l ErrorListener) event.Handle {
	fn, _ := ErrorListenerBinding.Bind(l)
	return a.router.Add(KindError, l, ErrorListenerBinding.Method, fn)
}

func (a *Application) RemoveErrorListener(l ErrorListener) {
	a.router.RemoveMatching(KindError, l, ErrorListenerBinding.Method)
}

// ReportError delivers err to the error listeners of c, or to the
// application's listeners when c has none. Every report is logged.
func (a *Application) ReportError(c Component, err error) {
	e := NewErrorEvent(err, c)
	fields := []zap.Field{zap.Error(err)}
	if c != nil {
		fields = append(fields, logging.Component(c.ComponentID(), c.TagName()))
	}
	a.logger.Error("component error", fields...)

	if c != nil && c.HasListeners(KindError) {
		c.FireEvent(e)
		return
	}
	a.router.Fire(e)
}
