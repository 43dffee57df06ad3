package hxtree

import (
	"errors"

	"github.com/pthm/hxtree/lib/encoding"
)

// Sentinel errors for component operations.
var (
	ErrParentAlreadySet    = errors.New("hxtree: component already has a parent")
	ErrCycle               = errors.New("hxtree: component cannot contain itself")
	ErrUnsupportedListener = errors.New("hxtree: unsupported listener type")
	ErrContentMode         = errors.New("hxtree: unsupported content mode")
	ErrNotAttached         = errors.New("hxtree: component is not attached")
	ErrUnknownComponent    = errors.New("hxtree: unknown component id")
	ErrWindowName          = errors.New("hxtree: window name already in use")

	ErrDecryptFailed    = errors.New("hxtree: message decryption failed")
	ErrSignatureInvalid = errors.New("hxtree: message signature verification failed")
	ErrInvalidFormat    = errors.New("hxtree: invalid message format")
	ErrSessionNotFound  = errors.New("hxtree: session not found")
)

// IsPrecondition reports whether err is a programming error: re-parenting an
// attached component, containment cycles, or unsupported modes.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrParentAlreadySet) ||
		errors.Is(err, ErrCycle) ||
		errors.Is(err, ErrContentMode) ||
		errors.Is(err, ErrUnsupportedListener)
}

// IsDecodeError reports whether err came from a tampered or malformed
// client message.
func IsDecodeError(err error) bool {
	return errors.Is(err, ErrDecryptFailed) ||
		errors.Is(err, ErrSignatureInvalid) ||
		errors.Is(err, ErrInvalidFormat)
}

// wrapEncodingError maps lib/encoding errors onto hxtree sentinels.
func wrapEncodingError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, encoding.ErrInvalidFormat) {
		return ErrInvalidFormat
	}
	if errors.Is(err, encoding.ErrSignatureInvalid) {
		return ErrSignatureInvalid
	}
	if errors.Is(err, encoding.ErrDecryptFailed) {
		return ErrDecryptFailed
	}
	return err
}
