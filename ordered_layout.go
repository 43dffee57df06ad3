package hxtree

import "github.com/pthm/hxtree/lib/event"

// Orientation of an OrderedLayout.
type Orientation int

const (
	Vertical Orientation = iota
	Horizontal
)

// OrderedLayout places its children in a single row or column.
type OrderedLayout struct {
	LayoutBase
	orientation Orientation
	spacing     bool
}

// NewVerticalLayout returns a layout that stacks children top to bottom.
func NewVerticalLayout(children ...Component) *OrderedLayout {
	return newOrderedLayout(Vertical, children)
}

// NewHorizontalLayout returns a layout that places children left to right.
func NewHorizontalLayout(children ...Component) *OrderedLayout {
	return newOrderedLayout(Horizontal, children)
}

func newOrderedLayout(o Orientation, children []Component) *OrderedLayout {
	l := &OrderedLayout{orientation: o}
	l.Init(l)
	l.RegisterBinding(LayoutClickBinding)
	for _, c := range children {
		// New children have no parent and cannot form a cycle.
		_ = l.AddComponent(c)
	}
	return l
}

func (l *OrderedLayout) TagName() string {
	if l.orientation == Horizontal {
		return "horizontallayout"
	}
	return "verticallayout"
}

func (l *OrderedLayout) Orientation() Orientation { return l.orientation }

// SetSpacing toggles the gap between children.
func (l *OrderedLayout) SetSpacing(enabled bool) {
	l.spacing = enabled
	l.container().RequestRepaint()
}

func (l *OrderedLayout) IsSpacing() bool { return l.spacing }

func (l *OrderedLayout) PaintContent(t PaintTarget) error {
	if err := l.LayoutBase.PaintContent(t); err != nil {
		return err
	}
	if l.spacing {
		if err := t.AddAttribute("spacing", true); err != nil {
			return err
		}
	}
	return l.paintChildren(t)
}

func (l *OrderedLayout) AddLayoutClickListener(cl LayoutClickListener) (event.Handle, error) {
	return l.AddBoundListener(LayoutClickBinding, cl)
}

func (l *OrderedLayout) RemoveLayoutClickListener(cl LayoutClickListener) {
	l.RemoveBoundListener(LayoutClickBinding, cl)
}
