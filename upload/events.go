package upload

import (
	"github.com/pthm/hxtree"
	"github.com/pthm/hxtree/lib/event"
)

// Upload event kinds. Succeeded and Failed are both Finished; the two
// missing-stream failures are Failed.
var (
	KindStarted        = event.NewKind("upload.started", hxtree.KindComponent)
	KindFinished       = event.NewKind("upload.finished", hxtree.KindComponent)
	KindSucceeded      = event.NewKind("upload.succeeded", KindFinished)
	KindFailed         = event.NewKind("upload.failed", KindFinished)
	KindNoInputStream  = event.NewKind("upload.failed.noinput", KindFailed)
	KindNoOutputStream = event.NewKind("upload.failed.nooutput", KindFailed)
)

// StartedEvent is fired when the client starts sending a file.
type StartedEvent struct {
	hxtree.Event
	filename      string
	mimeType      string
	contentLength int64
}

func (e *StartedEvent) Filename() string { return e.filename }
func (e *StartedEvent) MIMEType() string { return e.mimeType }

// ContentLength returns the announced size, or -1 if unknown.
func (e *StartedEvent) ContentLength() int64 { return e.contentLength }

// Upload returns the source component.
func (e *StartedEvent) Upload() *Upload { return e.Component().(*Upload) }

// FinishedEvent is the common part of every terminal upload event.
type FinishedEvent struct {
	hxtree.Event
	filename string
	mimeType string
	length   int64
}

func (e *FinishedEvent) Filename() string { return e.filename }
func (e *FinishedEvent) MIMEType() string { return e.mimeType }
func (e *FinishedEvent) Length() int64    { return e.length }
func (e *FinishedEvent) Upload() *Upload  { return e.Component().(*Upload) }

func (e *FinishedEvent) finished() *FinishedEvent { return e }

// SucceededEvent is fired after the whole file has been written.
type SucceededEvent struct {
	FinishedEvent
}

// FailedEvent is fired when an upload ends without success. Its Kind tells
// failure classes apart; Reason carries the underlying error.
type FailedEvent struct {
	FinishedEvent
	reason error
}

// Reason returns why the upload failed.
func (e *FailedEvent) Reason() error { return e.reason }

func (e *FailedEvent) failed() *FailedEvent { return e }

// NoInputStreamEvent is fired when the request carried no file.
type NoInputStreamEvent struct {
	FailedEvent
}

// NoOutputStreamEvent is fired when the receiver provided nowhere to write.
type NoOutputStreamEvent struct {
	FailedEvent
}

type finishedEvent interface {
	finished() *FinishedEvent
}

type failedEvent interface {
	failed() *FailedEvent
}

type StartedListener interface {
	UploadStarted(e *StartedEvent)
}

// FinishedListener receives both successful and failed uploads.
type FinishedListener interface {
	UploadFinished(e *FinishedEvent)
}

type SucceededListener interface {
	UploadSucceeded(e *SucceededEvent)
}

// FailedListener receives every failure class. Use Kind to distinguish
// them:
//
//	if e.Kind().Is(upload.KindNoOutputStream) { ... }
type FailedListener interface {
	UploadFailed(e *FailedEvent)
}

// ProgressListener is told how many bytes have arrived. It is kept apart
// from the event router and called directly from the stream callbacks.
type ProgressListener interface {
	UpdateProgress(readBytes, contentLength int64)
}

// Listener bindings for the upload listener interfaces.
var (
	StartedBinding = hxtree.ListenerBinding{
		Kind:   KindStarted,
		Method: "UploadStarted",
		Bind: func(l any) (event.Func, bool) {
			sl, ok := l.(StartedListener)
			if !ok {
				return nil, false
			}
			return func(e event.Event) { sl.UploadStarted(e.(*StartedEvent)) }, true
		},
	}

	FinishedBinding = hxtree.ListenerBinding{
		Kind:   KindFinished,
		Method: "UploadFinished",
		Bind: func(l any) (event.Func, bool) {
			fl, ok := l.(FinishedListener)
			if !ok {
				return nil, false
			}
			return func(e event.Event) {
				if fe, ok := e.(finishedEvent); ok {
					fl.UploadFinished(fe.finished())
				}
			}, true
		},
	}

	SucceededBinding = hxtree.ListenerBinding{
		Kind:   KindSucceeded,
		Method: "UploadSucceeded",
		Bind: func(l any) (event.Func, bool) {
			sl, ok := l.(SucceededListener)
			if !ok {
				return nil, false
			}
			return func(e event.Event) { sl.UploadSucceeded(e.(*SucceededEvent)) }, true
		},
	}

	FailedBinding = hxtree.ListenerBinding{
		Kind:   KindFailed,
		Method: "UploadFailed",
		Bind: func(l any) (event.Func, bool) {
			fl, ok := l.(FailedListener)
			if !ok {
				return nil, false
			}
			return func(e event.Event) {
				if fe, ok := e.(failedEvent); ok {
					fl.UploadFailed(fe.failed())
				}
			}, true
		},
	}
)
