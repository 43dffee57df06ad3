package hxtree

import (
	"fmt"
	"strings"

	"github.com/pthm/hxtree/lib/event"
	"golang.org/x/text/language"
)

// DefaultLocale is used for attached components when neither the component,
// its ancestors nor the application carry a locale.
var DefaultLocale = language.AmericanEnglish

// PaintTarget is the write-only sink a component paints itself into.
// lib/paint.Target is the implementation used by the transport.
type PaintTarget interface {
	StartTag(tag string) error
	EndTag(tag string) error
	AddAttribute(name string, value any) error
	AddVariable(name string, value any) error
	AddText(text string) error
}

// Resource is an icon or other asset referenced from painted output.
type Resource interface {
	URL() string
	MIMEType() string
}

// ExternalResource is a Resource served from an arbitrary URL.
type ExternalResource struct {
	Href string
	Type string
}

func (r ExternalResource) URL() string      { return r.Href }
func (r ExternalResource) MIMEType() string { return r.Type }

// Styleable components carry a set of style-name tokens.
type Styleable interface {
	StyleName() string
	SetStyleName(style string)
	AddStyleName(style string)
	RemoveStyleName(style string)
}

// Enableable components can be disabled. Disabling a component disables
// its whole subtree.
type Enableable interface {
	IsEnabled() bool
	SetEnabled(enabled bool)
}

// Containered components live in a tree and are attached while the tree
// reaches a window registered with an Application.
type Containered interface {
	Parent() Container
	SetParent(parent Container) error
	Attach()
	Detach()
	IsAttached() bool
	Window() *Window
	Application() *Application
}

// Paintable components serialise themselves into a PaintTarget and report
// when they need to do so again.
type Paintable interface {
	Paint(t PaintTarget) error
	PaintContent(t PaintTarget) error
	TagName() string
	RequestRepaint()
	ChildRequestedRepaint(alreadyNotified RepaintSet)
	AddRepaintRequestListener(l RepaintRequestListener)
	RemoveRepaintRequestListener(l RepaintRequestListener)
	DebugID() string
	SetDebugID(id string)
}

// VariableOwner components accept variable changes sent by the client.
type VariableOwner interface {
	ChangeVariables(source any, vars map[string]any) error
	IsEnabled() bool
	IsImmediate() bool
}

// Focusable components can take keyboard focus.
type Focusable interface {
	Focus()
	TabIndex() int
	SetTabIndex(index int)
}

// Component is a node of the server-side UI tree. Implementations embed
// Base and call Init with themselves.
type Component interface {
	Styleable
	Enableable
	Containered
	Paintable
	VariableOwner

	Caption() string
	SetCaption(caption string)
	Description() string
	SetDescription(description string)
	Icon() Resource
	SetIcon(icon Resource)
	IsVisible() bool
	SetVisible(visible bool)
	IsReadOnly() bool
	SetReadOnly(readOnly bool)
	Locale() language.Tag
	SetLocale(tag language.Tag)
	ComponentError() *UserError
	SetComponentError(err *UserError)
	ComponentID() string

	AddListener(l any) (event.Handle, error)
	RemoveListener(l any) error
	FireEvent(e event.Event)
	HasListeners(kind event.Kind) bool

	base() *Base
}

// Base implements Component. Widgets embed it and call Init so that
// lifecycle and paint hooks dispatch to their overrides:
//
//	type Button struct {
//	    hxtree.Base
//	}
//
//	func NewButton(caption string) *Button {
//	    b := &Button{}
//	    b.Init(b)
//	    b.SetCaption(caption)
//	    return b
//	}
type Base struct {
	self   Component
	parent Container

	styles      []string
	caption     string
	description string
	icon        Resource
	debugID     string
	data        any
	locale      language.Tag

	// Flags are inverted so the zero value is enabled, visible and writable.
	disabled  bool
	hidden    bool
	readOnly  bool
	immediate bool

	attached     bool
	delayedFocus bool
	id           string
	seq          uint64
	app          *Application
	idOwner      *Application

	componentError *UserError

	router           event.Router
	bindings         []ListenerBinding
	repaintListeners []RepaintRequestListener
}

// Init binds the concrete component that embeds b. It must be called
// before the component is added to a container.
func (b *Base) Init(self Component) {
	b.self = self
}

func (b *Base) base() *Base { return b }

func (b *Base) me() Component {
	if b.self != nil {
		return b.self
	}
	return b
}

// TagName identifies the component type on the client.
func (b *Base) TagName() string { return "component" }

// ComponentID returns the id assigned by the Application on first attach.
func (b *Base) ComponentID() string { return b.id }

// StyleName returns the style tokens separated by single spaces.
func (b *Base) StyleName() string {
	return strings.Join(b.styles, " ")
}

// SetStyleName replaces all style tokens.
func (b *Base) SetStyleName(style string) {
	b.styles = b.styles[:0]
	for _, tok := range strings.Fields(style) {
		if !b.hasStyle(tok) {
			b.styles = append(b.styles, tok)
		}
	}
	b.me().RequestRepaint()
}

// AddStyleName adds each whitespace-separated token not already present.
func (b *Base) AddStyleName(style string) {
	changed := false
	for _, tok := range strings.Fields(style) {
		if !b.hasStyle(tok) {
			b.styles = append(b.styles, tok)
			changed = true
		}
	}
	if changed {
		b.me().RequestRepaint()
	}
}

// RemoveStyleName removes each whitespace-separated token. Tokens are
// matched whole, never as substrings.
func (b *Base) RemoveStyleName(style string) {
	changed := false
	for _, tok := range strings.Fields(style) {
		for i, s := range b.styles {
			if s == tok {
				b.styles = append(b.styles[:i], b.styles[i+1:]...)
				changed = true
				break
			}
		}
	}
	if changed {
		b.me().RequestRepaint()
	}
}

func (b *Base) hasStyle(tok string) bool {
	for _, s := range b.styles {
		if s == tok {
			return true
		}
	}
	return false
}

func (b *Base) Caption() string { return b.caption }

func (b *Base) SetCaption(caption string) {
	b.caption = caption
	b.me().RequestRepaint()
}

func (b *Base) Description() string { return b.description }

func (b *Base) SetDescription(description string) {
	b.description = description
	b.me().RequestRepaint()
}

func (b *Base) Icon() Resource { return b.icon }

func (b *Base) SetIcon(icon Resource) {
	b.icon = icon
	b.me().RequestRepaint()
}

// IsEnabled reports whether b and all of its ancestors are enabled.
func (b *Base) IsEnabled() bool {
	if b.disabled {
		return false
	}
	return b.parent == nil || b.parent.IsEnabled()
}

// SetEnabled sets the component's own flag. The flag is kept even when an
// ancestor later overrides it.
func (b *Base) SetEnabled(enabled bool) {
	if b.disabled == !enabled {
		return
	}
	b.disabled = !enabled
	b.me().RequestRepaint()
}

// IsVisible reports whether b and all of its ancestors are visible.
func (b *Base) IsVisible() bool {
	if b.hidden {
		return false
	}
	return b.parent == nil || b.parent.IsVisible()
}

// SetVisible notifies repaint listeners even when hiding, because a hidden
// component ignores ordinary repaint requests.
func (b *Base) SetVisible(visible bool) {
	if b.hidden == !visible {
		return
	}
	b.hidden = !visible
	b.fireRepaint(nil)
}

// IsReadOnly reports whether b or any ancestor is read-only.
func (b *Base) IsReadOnly() bool {
	if b.readOnly {
		return true
	}
	return b.parent != nil && b.parent.IsReadOnly()
}

func (b *Base) SetReadOnly(readOnly bool) {
	if b.readOnly == readOnly {
		return
	}
	b.readOnly = readOnly
	b.me().RequestRepaint()
}

func (b *Base) IsImmediate() bool { return b.immediate }

// SetImmediate makes the client send variable changes as soon as they
// happen instead of batching them with the next immediate change.
func (b *Base) SetImmediate(immediate bool) {
	b.immediate = immediate
	b.me().RequestRepaint()
}

func (b *Base) DebugID() string { return b.debugID }

func (b *Base) SetDebugID(id string) { b.debugID = id }

// Data returns the application value attached with SetData.
func (b *Base) Data() any { return b.data }

func (b *Base) SetData(data any) { b.data = data }

// Locale returns the first locale found on b, its ancestors or the owning
// application. Attached components fall back to DefaultLocale; detached
// ones return language.Und.
func (b *Base) Locale() language.Tag {
	if b.locale != language.Und {
		return b.locale
	}
	if b.parent != nil {
		if tag := b.parent.Locale(); tag != language.Und {
			return tag
		}
	}
	if app := b.me().Application(); app != nil {
		if tag := app.Locale(); tag != language.Und {
			return tag
		}
		return DefaultLocale
	}
	return language.Und
}

func (b *Base) SetLocale(tag language.Tag) {
	b.locale = tag
	b.me().RequestRepaint()
}

func (b *Base) ComponentError() *UserError { return b.componentError }

// SetComponentError shows err next to the component. Nil clears it.
func (b *Base) SetComponentError(err *UserError) {
	b.componentError = err
	b.me().RequestRepaint()
}

// Parent returns the containing component, or nil for roots.
func (b *Base) Parent() Container { return b.parent }

// SetParent links b under parent. Containers call it; applications rarely
// need to. A component with a parent must be removed from it before being
// given another one.
//
// Attaching or detaching happens synchronously when the new parent is
// attached or when an attached component is unlinked.
func (b *Base) SetParent(parent Container) error {
	if parent == b.parent {
		return nil
	}
	if parent != nil && b.parent != nil {
		return fmt.Errorf("%w: %s", ErrParentAlreadySet, b.me().TagName())
	}
	if parent == nil {
		detachComponent(b.me())
	}
	b.parent = parent
	if parent != nil && parent.IsAttached() {
		attachComponent(b.me())
	}
	return nil
}

// Window returns the root window of b's tree, or nil if the root is not a
// window.
func (b *Base) Window() *Window {
	var c Component = b.me()
	for {
		p := c.Parent()
		if p == nil {
			break
		}
		c = p
	}
	w, _ := c.(*Window)
	return w
}

// Application returns the application owning b's window, or nil.
func (b *Base) Application() *Application {
	if w := b.me().Window(); w != nil {
		return w.Application()
	}
	return nil
}

func (b *Base) IsAttached() bool { return b.attached }

// Attach is called when b's tree becomes reachable from an application
// window. Overrides must call the embedded Attach first.
func (b *Base) Attach() {
	b.attached = true
	if app := b.me().Application(); app != nil {
		app.register(b.me())
	}
	b.me().RequestRepaint()
	if b.delayedFocus {
		b.delayedFocus = false
		b.Focus()
	}
}

// Detach is called when b's tree is unlinked from its application.
// Overrides must call the embedded Detach first.
func (b *Base) Detach() {
	if b.app != nil {
		b.app.unregister(b.me())
	}
	b.attached = false
}

// attachComponent and detachComponent are the only way the framework enters
// the lifecycle hooks, so repeated transitions are no-ops per node.
func attachComponent(c Component) {
	if !c.IsAttached() {
		c.Attach()
	}
}

func detachComponent(c Component) {
	if c.IsAttached() {
		c.Detach()
	}
}

// Focus moves keyboard focus to the component. When b is not in a window
// yet, focus is applied on attach.
func (b *Base) Focus() {
	if w := b.me().Window(); w != nil && b.attached {
		w.setFocused(b.me())
		return
	}
	b.delayedFocus = true
}

// RequestRepaint asks every repaint listener of b and of its ancestors to
// repaint b.
func (b *Base) RequestRepaint() {
	b.me().ChildRequestedRepaint(nil)
}

// ChildRequestedRepaint continues a repaint propagation. Listeners found in
// alreadyNotified are skipped and every notified listener is added to it.
func (b *Base) ChildRequestedRepaint(alreadyNotified RepaintSet) {
	if b.hidden {
		return
	}
	b.fireRepaint(alreadyNotified)
}

func (b *Base) fireRepaint(alreadyNotified RepaintSet) {
	if alreadyNotified == nil {
		alreadyNotified = make(RepaintSet)
	}
	if len(b.repaintListeners) > 0 {
		listeners := make([]RepaintRequestListener, len(b.repaintListeners))
		copy(listeners, b.repaintListeners)
		e := &RepaintRequestEvent{source: b.me()}
		for _, l := range listeners {
			if alreadyNotified.Has(l) {
				continue
			}
			alreadyNotified[l] = struct{}{}
			l.RepaintRequested(e)
		}
	}
	if b.parent != nil {
		b.parent.ChildRequestedRepaint(alreadyNotified)
	}
}

// AddRepaintRequestListener registers l once; repeated calls are ignored.
func (b *Base) AddRepaintRequestListener(l RepaintRequestListener) {
	for _, existing := range b.repaintListeners {
		if existing == l {
			return
		}
	}
	b.repaintListeners = append(b.repaintListeners, l)
}

func (b *Base) RemoveRepaintRequestListener(l RepaintRequestListener) {
	for i, existing := range b.repaintListeners {
		if existing == l {
			b.repaintListeners = append(b.repaintListeners[:i:i], b.repaintListeners[i+1:]...)
			return
		}
	}
}

// RegisterBinding makes AddListener and RemoveListener accept the
// binding's listener interface. Bindings registered later are consulted
// first.
func (b *Base) RegisterBinding(bindings ...ListenerBinding) {
	b.bindings = append(b.bindings, bindings...)
}

func (b *Base) binding(l any) (ListenerBinding, event.Func, bool) {
	for i := len(b.bindings) - 1; i >= 0; i-- {
		if fn, ok := b.bindings[i].Bind(l); ok {
			return b.bindings[i], fn, true
		}
	}
	for _, lb := range []ListenerBinding{ErrorListenerBinding, ComponentListenerBinding} {
		if fn, ok := lb.Bind(l); ok {
			return lb, fn, true
		}
	}
	return ListenerBinding{}, nil, false
}

// AddListener registers l with the first binding that accepts it and
// returns the registration handle.
func (b *Base) AddListener(l any) (event.Handle, error) {
	lb, fn, ok := b.binding(l)
	if !ok {
		return 0, fmt.Errorf("%w: %T", ErrUnsupportedListener, l)
	}
	return b.router.Add(lb.Kind, l, lb.Method, fn), nil
}

// RemoveListener removes the registration AddListener made for l.
func (b *Base) RemoveListener(l any) error {
	lb, _, ok := b.binding(l)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnsupportedListener, l)
	}
	b.router.RemoveMatching(lb.Kind, l, lb.Method)
	return nil
}

// AddBoundListener registers l through a specific binding. Typed
// registration methods use it so that a listener implementing several
// interfaces is registered for the one asked for.
func (b *Base) AddBoundListener(lb ListenerBinding, l any) (event.Handle, error) {
	fn, ok := lb.Bind(l)
	if !ok {
		return 0, fmt.Errorf("%w: %T", ErrUnsupportedListener, l)
	}
	return b.router.Add(lb.Kind, l, lb.Method, fn), nil
}

// RemoveBoundListener undoes AddBoundListener.
func (b *Base) RemoveBoundListener(lb ListenerBinding, l any) bool {
	return b.router.RemoveMatching(lb.Kind, l, lb.Method)
}

// AddEventFunc registers fn for events of kind and returns its handle.
func (b *Base) AddEventFunc(kind event.Kind, fn event.Func) event.Handle {
	return b.router.Add(kind, nil, "", fn)
}

// RemoveHandle removes the registration identified by h.
func (b *Base) RemoveHandle(h event.Handle) bool {
	return b.router.Remove(h)
}

// Listeners returns the listeners registered for kind or its sub-kinds.
func (b *Base) Listeners(kind event.Kind) []any {
	return b.router.Listeners(kind)
}

func (b *Base) HasListeners(kind event.Kind) bool {
	return b.router.Has(kind)
}

// FireEvent delivers e to matching listeners of b.
func (b *Base) FireEvent(e event.Event) {
	b.router.Fire(e)
}

// ChangeVariables is a no-op; widgets that accept client state override it.
func (b *Base) ChangeVariables(source any, vars map[string]any) error {
	return nil
}

// PaintContent paints the widget-specific part. The default paints nothing.
func (b *Base) PaintContent(t PaintTarget) error {
	return nil
}

// Paint writes the component's tag, its common attributes and then calls
// PaintContent. Invisible components paint only the invisible attribute.
func (b *Base) Paint(t PaintTarget) error {
	me := b.me()
	tag := me.TagName()
	if err := t.StartTag(tag); err != nil {
		return err
	}

	w := attrWriter{t: t}
	if b.id != "" {
		w.add("id", b.id)
	}
	if !b.IsVisible() {
		w.add("invisible", true)
		if w.err != nil {
			return w.err
		}
		return t.EndTag(tag)
	}

	if len(b.styles) > 0 {
		w.add("style", b.StyleName())
	}
	if b.caption != "" {
		w.add("caption", b.caption)
	}
	if b.description != "" {
		w.add("description", b.description)
	}
	if b.icon != nil {
		w.add("icon", b.icon.URL())
	}
	if !b.IsEnabled() {
		w.add("disabled", true)
	}
	if b.IsReadOnly() {
		w.add("readonly", true)
	}
	if b.immediate {
		w.add("immediate", true)
	}
	if b.debugID != "" {
		w.add("debugId", b.debugID)
	}
	if w.err != nil {
		return w.err
	}

	if b.componentError != nil {
		if err := b.componentError.Paint(t); err != nil {
			return err
		}
	}
	if err := me.PaintContent(t); err != nil {
		return fmt.Errorf("paint %s: %w", tag, err)
	}
	return t.EndTag(tag)
}

// attrWriter keeps the first error of a run of AddAttribute calls.
type attrWriter struct {
	t   PaintTarget
	err error
}

func (w *attrWriter) add(name string, value any) {
	if w.err == nil {
		w.err = w.t.AddAttribute(name, value)
	}
}

func (w *attrWriter) variable(name string, value any) {
	if w.err == nil {
		w.err = w.t.AddVariable(name, value)
	}
}
