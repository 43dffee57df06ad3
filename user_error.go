package hxtree

import "fmt"

// ContentMode selects how a message is rendered by the client.
type ContentMode int

const (
	ContentText ContentMode = iota
	ContentPreformatted
	ContentUIDL
)

func (m ContentMode) valid() bool {
	return m >= ContentText && m <= ContentUIDL
}

// ErrorLevel orders error severities.
type ErrorLevel int

const (
	LevelInfo     ErrorLevel = 1000
	LevelWarning  ErrorLevel = 2000
	LevelError    ErrorLevel = 3000
	LevelCritical ErrorLevel = 4000
	LevelSystem   ErrorLevel = 5000
)

// String returns the client name of the level band l falls in.
func (l ErrorLevel) String() string {
	switch {
	case l >= LevelSystem:
		return "system"
	case l >= LevelCritical:
		return "critical"
	case l >= LevelError:
		return "error"
	case l >= LevelWarning:
		return "warning"
	default:
		return "info"
	}
}

// UserError is an expected, user-facing error shown next to a component.
type UserError struct {
	message string
	mode    ContentMode
	level   ErrorLevel
}

// NewUserError returns a plain-text error at LevelError.
func NewUserError(message string) *UserError {
	return &UserError{message: message, mode: ContentText, level: LevelError}
}

// NewUserErrorMode returns an error with an explicit content mode and level.
func NewUserErrorMode(message string, mode ContentMode, level ErrorLevel) (*UserError, error) {
	if !mode.valid() {
		return nil, fmt.Errorf("%w: %d", ErrContentMode, mode)
	}
	return &UserError{message: message, mode: mode, level: level}, nil
}

func (e *UserError) Error() string     { return e.message }
func (e *UserError) Mode() ContentMode { return e.mode }
func (e *UserError) Level() ErrorLevel { return e.level }

// Paint writes the error as an "error" tag.
func (e *UserError) Paint(t PaintTarget) error {
	if err := t.StartTag("error"); err != nil {
		return err
	}
	if err := t.AddAttribute("level", e.level.String()); err != nil {
		return err
	}
	switch e.mode {
	case ContentText:
		if err := t.AddText(e.message); err != nil {
			return err
		}
	case ContentUIDL:
		if err := t.AddAttribute("uidl", true); err != nil {
			return err
		}
		if err := t.AddText(e.message); err != nil {
			return err
		}
	case ContentPreformatted:
		if err := t.StartTag("pre"); err != nil {
			return err
		}
		if err := t.AddText(e.message); err != nil {
			return err
		}
		if err := t.EndTag("pre"); err != nil {
			return err
		}
	}
	return t.EndTag("error")
}
