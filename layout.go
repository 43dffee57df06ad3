package hxtree

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pthm/hxtree/lib/event"
)

// VarLayoutClick is the variable a layout's client widget sends on click.
// Its value is a map with "mouseDetails" (MouseDetails wire form) and
// "component" (the clicked component or its id).
const VarLayoutClick = "layout_click"

// Margin bitmask values.
const (
	MarginTop    = 1
	MarginRight  = 2
	MarginBottom = 4
	MarginLeft   = 8
)

// MarginInfo says which sides of a layout have a margin.
type MarginInfo struct {
	Top, Right, Bottom, Left bool
}

// AllMargins returns a MarginInfo with every side set to enabled.
func AllMargins(enabled bool) MarginInfo {
	return MarginInfo{Top: enabled, Right: enabled, Bottom: enabled, Left: enabled}
}

// Bitmask encodes m as painted in the "margins" attribute.
func (m MarginInfo) Bitmask() int {
	mask := 0
	if m.Top {
		mask |= MarginTop
	}
	if m.Right {
		mask |= MarginRight
	}
	if m.Bottom {
		mask |= MarginBottom
	}
	if m.Left {
		mask |= MarginLeft
	}
	return mask
}

// MarginInfoFromBitmask decodes a "margins" attribute.
func MarginInfoFromBitmask(mask int) MarginInfo {
	return MarginInfo{
		Top:    mask&MarginTop != 0,
		Right:  mask&MarginRight != 0,
		Bottom: mask&MarginBottom != 0,
		Left:   mask&MarginLeft != 0,
	}
}

// LayoutBase adds margins and click translation to ContainerBase.
type LayoutBase struct {
	ContainerBase
	margins MarginInfo
}

// SetMargin enables or disables all four margins.
func (l *LayoutBase) SetMargin(enabled bool) {
	l.SetMarginInfo(AllMargins(enabled))
}

// SetMargins sets each side individually.
func (l *LayoutBase) SetMargins(top, right, bottom, left bool) {
	l.SetMarginInfo(MarginInfo{Top: top, Right: right, Bottom: bottom, Left: left})
}

func (l *LayoutBase) SetMarginInfo(m MarginInfo) {
	l.margins = m
	l.container().RequestRepaint()
}

func (l *LayoutBase) Margin() MarginInfo { return l.margins }

// PaintContent paints the margins. Concrete layouts paint their children
// after calling it.
func (l *LayoutBase) PaintContent(t PaintTarget) error {
	return t.AddAttribute("margins", l.margins.Bitmask())
}

// clickFirer lets a concrete layout replace FireClick.
type clickFirer interface {
	FireClick(params map[string]any) error
}

// ChangeVariables handles VarLayoutClick for layouts that implement
// LayoutClickNotifier. Other layouts ignore it.
func (l *LayoutBase) ChangeVariables(source any, vars map[string]any) error {
	if err := l.ContainerBase.ChangeVariables(source, vars); err != nil {
		return err
	}
	if _, ok := l.self.(LayoutClickNotifier); !ok {
		return nil
	}
	raw, ok := vars[VarLayoutClick]
	if !ok {
		return nil
	}
	params, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("%s: unexpected value %T", VarLayoutClick, raw)
	}
	if f, ok := l.self.(clickFirer); ok {
		return f.FireClick(params)
	}
	return l.FireClick(params)
}

// FireClick decodes click parameters and fires a LayoutClickEvent whose
// Child is the direct child of the layout containing the clicked component.
// Child is nil when the click landed on the layout itself or outside it.
func (l *LayoutBase) FireClick(params map[string]any) error {
	var mouse MouseDetails
	if s, ok := params["mouseDetails"].(string); ok {
		m, err := ParseMouseDetails(s)
		if err != nil {
			return err
		}
		mouse = m
	}

	me := l.container()
	var clicked Component
	switch v := params["component"].(type) {
	case Component:
		clicked = v
	case string:
		if app := me.Application(); app != nil {
			clicked, _ = app.ComponentByID(v)
		}
	}

	var child Component = clicked
	for child != nil {
		p := child.Parent()
		if p == me {
			break
		}
		if p == nil {
			child = nil
			break
		}
		child = p
	}

	l.FireEvent(&LayoutClickEvent{
		Event:   NewEvent(KindLayoutClick, me),
		mouse:   mouse,
		clicked: clicked,
		child:   child,
	})
	return nil
}

// MouseButton identifies the pressed button.
type MouseButton int

const (
	MouseLeft   MouseButton = 1
	MouseRight  MouseButton = 2
	MouseMiddle MouseButton = 4
)

func (b MouseButton) String() string {
	switch b {
	case MouseLeft:
		return "left"
	case MouseRight:
		return "right"
	case MouseMiddle:
		return "middle"
	}
	return "button(" + strconv.Itoa(int(b)) + ")"
}

// Mouse event types reported in MouseDetails.Type.
const (
	MouseClick       = 1
	MouseDoubleClick = 2
)

// MouseDetails describes a client mouse event.
type MouseDetails struct {
	Button   MouseButton
	ClientX  int
	ClientY  int
	AltKey   bool
	CtrlKey  bool
	MetaKey  bool
	ShiftKey bool
	Type     int
	// RelativeX and RelativeY are -1 when the client did not report them.
	RelativeX int
	RelativeY int
}

// IsDoubleClick reports whether the event was a double click.
func (m MouseDetails) IsDoubleClick() bool { return m.Type == MouseDoubleClick }

// String returns the comma-separated wire form:
// button,clientX,clientY,alt,ctrl,meta,shift,type,relativeX,relativeY.
func (m MouseDetails) String() string {
	return strings.Join([]string{
		strconv.Itoa(int(m.Button)),
		strconv.Itoa(m.ClientX),
		strconv.Itoa(m.ClientY),
		strconv.FormatBool(m.AltKey),
		strconv.FormatBool(m.CtrlKey),
		strconv.FormatBool(m.MetaKey),
		strconv.FormatBool(m.ShiftKey),
		strconv.Itoa(m.Type),
		strconv.Itoa(m.RelativeX),
		strconv.Itoa(m.RelativeY),
	}, ",")
}

// ParseMouseDetails decodes the wire form written by String. The two
// relative coordinates are optional.
func ParseMouseDetails(s string) (MouseDetails, error) {
	m := MouseDetails{RelativeX: -1, RelativeY: -1}
	fields := strings.Split(s, ",")
	if len(fields) < 8 {
		return m, fmt.Errorf("mouse details: want at least 8 fields, got %d", len(fields))
	}

	ints := []*int{nil, &m.ClientX, &m.ClientY, nil, nil, nil, nil, &m.Type, &m.RelativeX, &m.RelativeY}
	bools := []*bool{nil, nil, nil, &m.AltKey, &m.CtrlKey, &m.MetaKey, &m.ShiftKey}
	for i, f := range fields {
		if i >= len(ints) {
			break
		}
		f = strings.TrimSpace(f)
		switch {
		case i == 0:
			n, err := strconv.Atoi(f)
			if err != nil {
				return m, fmt.Errorf("mouse details: button: %w", err)
			}
			m.Button = MouseButton(n)
		case i < len(bools) && bools[i] != nil:
			v, err := strconv.ParseBool(f)
			if err != nil {
				return m, fmt.Errorf("mouse details: field %d: %w", i, err)
			}
			*bools[i] = v
		default:
			n, err := strconv.Atoi(f)
			if err != nil {
				return m, fmt.Errorf("mouse details: field %d: %w", i, err)
			}
			*ints[i] = n
		}
	}
	return m, nil
}

// LayoutClickEvent reports a click inside a layout.
type LayoutClickEvent struct {
	Event
	mouse   MouseDetails
	clicked Component
	child   Component
}

// Mouse returns the mouse details of the click.
func (e *LayoutClickEvent) Mouse() MouseDetails { return e.mouse }

// ClickedComponent returns the component the click landed on, at any depth.
func (e *LayoutClickEvent) ClickedComponent() Component { return e.clicked }

// ChildComponent returns the layout's direct child that contains the
// clicked component.
func (e *LayoutClickEvent) ChildComponent() Component { return e.child }

// LayoutClickListener receives LayoutClickEvents.
type LayoutClickListener interface {
	LayoutClick(e *LayoutClickEvent)
}

// LayoutClickNotifier is implemented by layouts that report clicks.
type LayoutClickNotifier interface {
	AddLayoutClickListener(l LayoutClickListener) (event.Handle, error)
	RemoveLayoutClickListener(l LayoutClickListener)
}

// LayoutClickBinding routes LayoutClickListener registrations.
var LayoutClickBinding = ListenerBinding{
	Kind:   KindLayoutClick,
	Method: "LayoutClick",
	Bind: func(l any) (event.Func, bool) {
		cl, ok := l.(LayoutClickListener)
		if !ok {
			return nil, false
		}
		return func(e event.Event) { cl.LayoutClick(e.(*LayoutClickEvent)) }, true
	},
}
