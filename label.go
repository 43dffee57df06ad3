package hxtree

import "fmt"

// Label displays read-only text.
type Label struct {
	Base
	value string
	mode  ContentMode
}

// NewLabel returns a plain-text label.
func NewLabel(value string) *Label {
	l := &Label{value: value}
	l.Init(l)
	return l
}

func (l *Label) TagName() string { return "label" }

func (l *Label) Value() string { return l.value }

func (l *Label) SetValue(value string) {
	if value == l.value {
		return
	}
	l.value = value
	l.RequestRepaint()
}

func (l *Label) ContentMode() ContentMode { return l.mode }

// SetContentMode selects how the client renders the value.
func (l *Label) SetContentMode(mode ContentMode) error {
	if !mode.valid() {
		return fmt.Errorf("%w: %d", ErrContentMode, mode)
	}
	l.mode = mode
	l.RequestRepaint()
	return nil
}

func (l *Label) PaintContent(t PaintTarget) error {
	switch l.mode {
	case ContentPreformatted:
		if err := t.AddAttribute("mode", "pre"); err != nil {
			return err
		}
	case ContentUIDL:
		if err := t.AddAttribute("mode", "uidl"); err != nil {
			return err
		}
	}
	return t.AddText(l.value)
}
