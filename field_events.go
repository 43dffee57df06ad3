package hxtree

import "github.com/pthm/hxtree/lib/event"

// Field event kinds.
var (
	KindFocus      = event.NewKind("field.focus", KindComponent)
	KindBlur       = event.NewKind("field.blur", KindComponent)
	KindTextChange = event.NewKind("field.textchange", KindComponent)
)

// FocusEvent is fired when a field gains keyboard focus on the client.
type FocusEvent struct {
	Event
}

// NewFocusEvent returns a FocusEvent raised by source.
func NewFocusEvent(source Component) *FocusEvent {
	return &FocusEvent{Event: NewEvent(KindFocus, source)}
}

// BlurEvent is fired when a field loses keyboard focus on the client.
type BlurEvent struct {
	Event
}

// NewBlurEvent returns a BlurEvent raised by source.
func NewBlurEvent(source Component) *BlurEvent {
	return &BlurEvent{Event: NewEvent(KindBlur, source)}
}

// TextChangeEvent carries the text the user is typing before it is
// committed as the field value.
type TextChangeEvent struct {
	Event
	text   string
	cursor int
}

// NewTextChangeEvent returns a TextChangeEvent raised by source.
func NewTextChangeEvent(source Component, text string, cursor int) *TextChangeEvent {
	return &TextChangeEvent{Event: NewEvent(KindTextChange, source), text: text, cursor: cursor}
}

// Text returns the uncommitted text.
func (e *TextChangeEvent) Text() string { return e.text }

// CursorPosition returns the caret offset within Text.
func (e *TextChangeEvent) CursorPosition() int { return e.cursor }

type FocusListener interface {
	Focus(e *FocusEvent)
}

type BlurListener interface {
	Blur(e *BlurEvent)
}

type TextChangeListener interface {
	TextChange(e *TextChangeEvent)
}

// FocusNotifier is implemented by components that fire FocusEvents.
type FocusNotifier interface {
	AddFocusListener(l FocusListener) (event.Handle, error)
	RemoveFocusListener(l FocusListener)
}

// BlurNotifier is implemented by components that fire BlurEvents.
type BlurNotifier interface {
	AddBlurListener(l BlurListener) (event.Handle, error)
	RemoveBlurListener(l BlurListener)
}

// TextChangeNotifier is implemented by components that fire
// TextChangeEvents.
type TextChangeNotifier interface {
	AddTextChangeListener(l TextChangeListener) (event.Handle, error)
	RemoveTextChangeListener(l TextChangeListener)
}

// Bindings for the field listener interfaces. A component registers the
// ones it fires so that AddListener accepts those listener types.
var (
	FocusBinding = ListenerBinding{
		Kind:   KindFocus,
		Method: "Focus",
		Bind: func(l any) (event.Func, bool) {
			fl, ok := l.(FocusListener)
			if !ok {
				return nil, false
			}
			return func(e event.Event) { fl.Focus(e.(*FocusEvent)) }, true
		},
	}

	BlurBinding = ListenerBinding{
		Kind:   KindBlur,
		Method: "Blur",
		Bind: func(l any) (event.Func, bool) {
			bl, ok := l.(BlurListener)
			if !ok {
				return nil, false
			}
			return func(e event.Event) { bl.Blur(e.(*BlurEvent)) }, true
		},
	}

	TextChangeBinding = ListenerBinding{
		Kind:   KindTextChange,
		Method: "TextChange",
		Bind: func(l any) (event.Func, bool) {
			tl, ok := l.(TextChangeListener)
			if !ok {
				return nil, false
			}
			return func(e event.Event) { tl.TextChange(e.(*TextChangeEvent)) }, true
		},
	}
)
