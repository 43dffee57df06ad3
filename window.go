package hxtree

// Window is the root of a component tree. A window is attached while it is
// registered with an Application.
type Window struct {
	OrderedLayout
	name          string
	app           *Application
	focused       Component
	notifications []Notification
}

// NewWindow returns a window with the given caption. The name is assigned
// when the window is added to an application, unless set earlier with
// SetName.
func NewWindow(caption string, children ...Component) *Window {
	w := &Window{}
	w.orientation = Vertical
	w.Init(w)
	w.RegisterBinding(LayoutClickBinding)
	w.caption = caption
	for _, c := range children {
		_ = w.AddComponent(c)
	}
	return w
}

func (w *Window) TagName() string { return "window" }

// Name identifies the window within its application.
func (w *Window) Name() string { return w.name }

// SetName renames a window that is not yet added to an application.
func (w *Window) SetName(name string) error {
	if w.app != nil {
		return ErrWindowName
	}
	w.name = name
	return nil
}

// Window returns w.
func (w *Window) Window() *Window { return w }

// Application returns the application w is registered with, or nil.
func (w *Window) Application() *Application { return w.app }

// Focused returns the component that will receive focus on the next paint.
func (w *Window) Focused() Component { return w.focused }

func (w *Window) setFocused(c Component) {
	w.focused = c
	w.RequestRepaint()
}

func (w *Window) PaintContent(t PaintTarget) error {
	if err := t.AddAttribute("name", w.name); err != nil {
		return err
	}
	if w.focused != nil {
		if w.focused.IsAttached() && w.focused.Window() == w {
			if err := t.AddAttribute("focused", w.focused.ComponentID()); err != nil {
				return err
			}
		}
		w.focused = nil
	}
	if len(w.notifications) > 0 {
		if err := paintNotifications(t, w.notifications); err != nil {
			return err
		}
		w.notifications = nil
	}
	return w.OrderedLayout.PaintContent(t)
}
