package hxtree

import (
	"fmt"

	"github.com/pthm/hxtree/lib/event"
)

// TextField client variables.
const (
	VarText    = "text"
	VarCurText = "curText"
	VarCursor  = "c"
	VarFocus   = "focus"
	VarBlur    = "blur"
)

// TextField is a single-line text input.
type TextField struct {
	Base
	value     string
	current   string
	prompt    string
	maxLength int
	tabIndex  int
}

// NewTextField returns an empty field with the given caption.
func NewTextField(caption string) *TextField {
	f := &TextField{}
	f.Init(f)
	f.RegisterBinding(ValueChangeBinding, FocusBinding, BlurBinding, TextChangeBinding)
	f.caption = caption
	return f
}

func (f *TextField) TagName() string { return "textfield" }

// Value returns the committed value.
func (f *TextField) Value() string { return f.value }

// SetValue commits v and fires a ValueChangeEvent if it differs.
func (f *TextField) SetValue(v string) {
	if v == f.value {
		return
	}
	f.value = v
	f.current = v
	f.FireEvent(&ValueChangeEvent{Event: NewEvent(KindValueChange, f), value: v})
	f.RequestRepaint()
}

// CurrentText returns the latest text reported by the client, committed
// or not.
func (f *TextField) CurrentText() string { return f.current }

func (f *TextField) InputPrompt() string { return f.prompt }

func (f *TextField) SetInputPrompt(prompt string) {
	f.prompt = prompt
	f.RequestRepaint()
}

func (f *TextField) MaxLength() int { return f.maxLength }

// SetMaxLength limits input length on the client. Zero means unlimited.
func (f *TextField) SetMaxLength(n int) {
	f.maxLength = n
	f.RequestRepaint()
}

func (f *TextField) TabIndex() int { return f.tabIndex }

func (f *TextField) SetTabIndex(index int) {
	f.tabIndex = index
	f.RequestRepaint()
}

func (f *TextField) PaintContent(t PaintTarget) error {
	w := attrWriter{t: t}
	if f.tabIndex != 0 {
		w.add("tabindex", f.tabIndex)
	}
	if f.maxLength > 0 {
		w.add("maxLength", f.maxLength)
	}
	if f.prompt != "" {
		w.add("prompt", f.prompt)
	}
	if f.HasListeners(KindTextChange) {
		w.add("textChange", true)
	}
	if f.HasListeners(KindFocus) {
		w.add("focusEvents", true)
	}
	if f.HasListeners(KindBlur) {
		w.add("blurEvents", true)
	}
	w.variable(VarText, f.value)
	return w.err
}

// ChangeVariables handles focus, blur, text-change and commit variables in
// that order. Read-only fields ignore text from the client.
func (f *TextField) ChangeVariables(source any, vars map[string]any) error {
	if _, ok := vars[VarFocus]; ok {
		f.FireEvent(NewFocusEvent(f))
	}

	if raw, ok := vars[VarCurText]; ok && !f.IsReadOnly() {
		text, ok := raw.(string)
		if !ok {
			return fmt.Errorf("%s: unexpected value %T", VarCurText, raw)
		}
		cursor := len([]rune(text))
		if c, ok := vars[VarCursor]; ok {
			n, err := IntVariable(c)
			if err != nil {
				return fmt.Errorf("%s: %w", VarCursor, err)
			}
			cursor = n
		}
		f.current = text
		f.FireEvent(NewTextChangeEvent(f, text, cursor))
	}

	if raw, ok := vars[VarText]; ok && !f.IsReadOnly() {
		text, ok := raw.(string)
		if !ok {
			return fmt.Errorf("%s: unexpected value %T", VarText, raw)
		}
		if text != f.value {
			f.value = text
			f.current = text
			f.FireEvent(&ValueChangeEvent{Event: NewEvent(KindValueChange, f), value: text})
		}
	}

	if _, ok := vars[VarBlur]; ok {
		f.FireEvent(NewBlurEvent(f))
	}
	return nil
}

func (f *TextField) AddFocusListener(l FocusListener) (event.Handle, error) {
	return f.AddBoundListener(FocusBinding, l)
}

func (f *TextField) RemoveFocusListener(l FocusListener) {
	f.RemoveBoundListener(FocusBinding, l)
}

func (f *TextField) AddBlurListener(l BlurListener) (event.Handle, error) {
	return f.AddBoundListener(BlurBinding, l)
}

func (f *TextField) RemoveBlurListener(l BlurListener) {
	f.RemoveBoundListener(BlurBinding, l)
}

// AddTextChangeListener registers l. The client only sends text changes
// while at least one listener is registered.
func (f *TextField) AddTextChangeListener(l TextChangeListener) (event.Handle, error) {
	h, err := f.AddBoundListener(TextChangeBinding, l)
	if err == nil {
		f.RequestRepaint()
	}
	return h, err
}

func (f *TextField) RemoveTextChangeListener(l TextChangeListener) {
	if f.RemoveBoundListener(TextChangeBinding, l) {
		f.RequestRepaint()
	}
}

func (f *TextField) AddValueChangeListener(l ValueChangeListener) (event.Handle, error) {
	return f.AddBoundListener(ValueChangeBinding, l)
}

func (f *TextField) RemoveValueChangeListener(l ValueChangeListener) {
	f.RemoveBoundListener(ValueChangeBinding, l)
}
