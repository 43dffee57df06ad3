// Package upload provides the Upload component, a file field whose bytes
// arrive through a separate stream rather than the variable channel.
//
// The transport drives an Upload through the lib/stream callbacks from the
// goroutine reading the request body. Upload guards its own state with a
// mutex and fires events outside it; the transport additionally runs each
// callback inside Application.Access so listeners may touch other
// components.
package upload

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/pthm/hxtree"
	"github.com/pthm/hxtree/lib/event"
	"github.com/pthm/hxtree/lib/stream"
)

// Client variables.
const (
	VarPollForStart = "pollForStart"
	VarAction       = "action"
)

var (
	// ErrAlreadyUploading is returned by StartUpload while an upload is in
	// progress.
	ErrAlreadyUploading = errors.New("upload: already uploading")
	// ErrNoReceiver is reported when an upload arrives before SetReceiver.
	ErrNoReceiver = errors.New("upload: no receiver")
)

// Receiver provides the destination of an uploaded file.
type Receiver interface {
	ReceiveUpload(filename, mimeType string) (io.Writer, error)
}

// ReceiverFunc adapts a function to Receiver.
type ReceiverFunc func(filename, mimeType string) (io.Writer, error)

func (f ReceiverFunc) ReceiveUpload(filename, mimeType string) (io.Writer, error) {
	return f(filename, mimeType)
}

// Upload is a file upload field. It implements stream.Variable.
type Upload struct {
	hxtree.Base

	mu            sync.Mutex
	receiver      Receiver
	uploading     bool
	interrupted   bool
	notStarted    bool
	forceSubmit   bool
	contentLength int64
	bytesRead     int64
	nextID        int
	buttonCaption string
	tabIndex      int
	lastStarted   *stream.Event
	progress      []ProgressListener
}

var _ stream.Variable = (*Upload)(nil)

// New returns an Upload with the given caption writing to receiver.
// receiver may be nil and set later.
func New(caption string, receiver Receiver) *Upload {
	u := &Upload{
		receiver:      receiver,
		contentLength: -1,
		buttonCaption: "Upload",
	}
	u.Init(u)
	u.RegisterBinding(StartedBinding, FinishedBinding, FailedBinding, SucceededBinding)
	if caption != "" {
		u.SetCaption(caption)
	}
	return u
}

func (u *Upload) TagName() string { return "upload" }

func (u *Upload) Receiver() Receiver {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.receiver
}

func (u *Upload) SetReceiver(r Receiver) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.receiver = r
}

// StartUpload moves the upload to the uploading state and advances the
// attempt id.
func (u *Upload) StartUpload() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.startLocked()
}

func (u *Upload) startLocked() error {
	if u.uploading {
		return ErrAlreadyUploading
	}
	u.uploading = true
	u.nextID++
	return nil
}

// InterruptUpload asks the stream to stop. The stream notices on its next
// chunk; this call returns immediately.
func (u *Upload) InterruptUpload() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.uploading {
		u.interrupted = true
	}
}

// endUpload returns to idle. Every terminal callback ends here.
func (u *Upload) endUpload() {
	u.mu.Lock()
	u.uploading = false
	u.contentLength = -1
	u.interrupted = false
	u.lastStarted = nil
	u.mu.Unlock()
	u.RequestRepaint()
}

func (u *Upload) IsUploading() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.uploading
}

// BytesRead returns the bytes received so far in the current or last
// upload.
func (u *Upload) BytesRead() int64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.bytesRead
}

// UploadSize returns the announced size of the current upload, or -1.
func (u *Upload) UploadSize() int64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.contentLength
}

// AttemptID returns the id the client must echo in VarPollForStart.
func (u *Upload) AttemptID() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.nextID
}

func (u *Upload) ButtonCaption() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.buttonCaption
}

// SetButtonCaption sets the submit button text. An empty caption hides
// the button; the upload then has to be started with SubmitUpload.
func (u *Upload) SetButtonCaption(caption string) {
	u.mu.Lock()
	u.buttonCaption = caption
	u.mu.Unlock()
	u.RequestRepaint()
}

// SubmitUpload makes the client submit the selected file on the next
// paint.
func (u *Upload) SubmitUpload() {
	u.RequestRepaint()
	u.mu.Lock()
	u.forceSubmit = true
	u.mu.Unlock()
}

// RequestRepaint cancels a pending SubmitUpload before repainting.
func (u *Upload) RequestRepaint() {
	u.mu.Lock()
	u.forceSubmit = false
	u.mu.Unlock()
	u.Base.RequestRepaint()
}

func (u *Upload) TabIndex() int { return u.tabIndex }

func (u *Upload) SetTabIndex(index int) {
	u.tabIndex = index
	u.RequestRepaint()
}

// ChangeVariables answers the client's start poll. A poll for the current
// attempt while idle means the client never started sending.
func (u *Upload) ChangeVariables(source any, vars map[string]any) error {
	raw, ok := vars[VarPollForStart]
	if !ok {
		return nil
	}
	id, err := hxtree.IntVariable(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", VarPollForStart, err)
	}

	u.mu.Lock()
	stale := u.uploading || id != u.nextID
	if !stale {
		u.notStarted = true
	}
	u.mu.Unlock()
	if !stale {
		u.Base.RequestRepaint()
	}
	return nil
}

// PaintContent consumes the one-shot notStarted and forceSubmit flags.
// While either is set, only that flag is painted.
func (u *Upload) PaintContent(t hxtree.PaintTarget) error {
	u.mu.Lock()
	notStarted, forceSubmit := u.notStarted, u.forceSubmit
	u.notStarted = false
	u.forceSubmit = false
	uploading, caption, nextID := u.uploading, u.buttonCaption, u.nextID
	u.mu.Unlock()

	if notStarted {
		return t.AddAttribute("notStarted", true)
	}
	if forceSubmit {
		return t.AddAttribute("forceSubmit", true)
	}

	if u.tabIndex != 0 {
		if err := t.AddAttribute("tabindex", u.tabIndex); err != nil {
			return err
		}
	}
	if err := t.AddAttribute("state", uploading); err != nil {
		return err
	}
	if caption != "" {
		if err := t.AddAttribute("buttoncaption", caption); err != nil {
			return err
		}
	}
	if err := t.AddAttribute("nextid", nextID); err != nil {
		return err
	}
	return t.AddVariable(VarAction, "upload/"+u.ComponentID())
}

// AddStartedListener registers l for StartedEvents.
func (u *Upload) AddStartedListener(l StartedListener) (event.Handle, error) {
	return u.AddBoundListener(StartedBinding, l)
}

func (u *Upload) RemoveStartedListener(l StartedListener) {
	u.RemoveBoundListener(StartedBinding, l)
}

// AddFinishedListener registers l for both successful and failed uploads.
func (u *Upload) AddFinishedListener(l FinishedListener) (event.Handle, error) {
	return u.AddBoundListener(FinishedBinding, l)
}

func (u *Upload) RemoveFinishedListener(l FinishedListener) {
	u.RemoveBoundListener(FinishedBinding, l)
}

func (u *Upload) AddSucceededListener(l SucceededListener) (event.Handle, error) {
	return u.AddBoundListener(SucceededBinding, l)
}

func (u *Upload) RemoveSucceededListener(l SucceededListener) {
	u.RemoveBoundListener(SucceededBinding, l)
}

// AddFailedListener registers l for every failure class.
func (u *Upload) AddFailedListener(l FailedListener) (event.Handle, error) {
	return u.AddBoundListener(FailedBinding, l)
}

func (u *Upload) RemoveFailedListener(l FailedListener) {
	u.RemoveBoundListener(FailedBinding, l)
}

// AddProgressListener registers l once.
func (u *Upload) AddProgressListener(l ProgressListener) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, existing := range u.progress {
		if existing == l {
			return
		}
	}
	u.progress = append(u.progress, l)
}

func (u *Upload) RemoveProgressListener(l ProgressListener) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for i, existing := range u.progress {
		if existing == l {
			u.progress = append(u.progress[:i:i], u.progress[i+1:]...)
			return
		}
	}
}

// ProgressListeners returns the registered progress listeners.
func (u *Upload) ProgressListeners() []ProgressListener {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]ProgressListener, len(u.progress))
	copy(out, u.progress)
	return out
}

// ListenProgress reports whether any progress listener is registered.
func (u *Upload) ListenProgress() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.progress) > 0
}

// OnProgress records the received byte count and notifies progress
// listeners.
func (u *Upload) OnProgress(e stream.Event) {
	u.mu.Lock()
	u.bytesRead = e.BytesReceived
	listeners := make([]ProgressListener, len(u.progress))
	copy(listeners, u.progress)
	u.mu.Unlock()

	for _, l := range listeners {
		l.UpdateProgress(e.BytesReceived, e.ContentLength)
	}
}

func (u *Upload) IsInterrupted() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.interrupted
}

// OutputStream asks the receiver for the destination of the file announced
// by the last StreamingStarted.
func (u *Upload) OutputStream() (io.Writer, error) {
	u.mu.Lock()
	receiver := u.receiver
	var filename, mimeType string
	if u.lastStarted != nil {
		filename, mimeType = u.lastStarted.FileName, u.lastStarted.MIMEType
	}
	u.lastStarted = nil
	u.mu.Unlock()

	if receiver == nil {
		return nil, ErrNoReceiver
	}
	return receiver.ReceiveUpload(filename, mimeType)
}

// StreamingStarted begins an attempt unless StartUpload already did, then
// fires StartedEvent.
func (u *Upload) StreamingStarted(e stream.Event) {
	u.mu.Lock()
	if !u.uploading {
		// Cannot fail: not uploading.
		_ = u.startLocked()
	}
	u.contentLength = e.ContentLength
	u.bytesRead = 0
	started := e
	u.lastStarted = &started
	u.mu.Unlock()

	u.FireEvent(&StartedEvent{
		Event:         hxtree.NewEvent(KindStarted, u),
		filename:      e.FileName,
		mimeType:      e.MIMEType,
		contentLength: e.ContentLength,
	})
}

// StreamingFinished fires SucceededEvent and returns to idle.
func (u *Upload) StreamingFinished(e stream.Event) {
	u.mu.Lock()
	u.bytesRead = e.BytesReceived
	u.mu.Unlock()

	u.FireEvent(&SucceededEvent{FinishedEvent: u.finishedEvent(KindSucceeded, e, e.ContentLength)})
	u.endUpload()
}

// StreamingFailed classifies the failure, fires the matching FailedEvent
// and returns to idle.
func (u *Upload) StreamingFailed(e stream.FailedEvent) {
	switch {
	case errors.Is(e.Err, stream.ErrNoInputStream):
		u.FireEvent(&NoInputStreamEvent{FailedEvent: FailedEvent{
			FinishedEvent: u.finishedEvent(KindNoInputStream, e.Event, 0),
			reason:        e.Err,
		}})
	case errors.Is(e.Err, stream.ErrNoOutputStream):
		u.FireEvent(&NoOutputStreamEvent{FailedEvent: FailedEvent{
			FinishedEvent: u.finishedEvent(KindNoOutputStream, e.Event, 0),
			reason:        e.Err,
		}})
	default:
		u.FireEvent(&FailedEvent{
			FinishedEvent: u.finishedEvent(KindFailed, e.Event, e.BytesReceived),
			reason:        e.Err,
		})
	}
	u.endUpload()
}

func (u *Upload) finishedEvent(kind event.Kind, e stream.Event, length int64) FinishedEvent {
	return FinishedEvent{
		Event:    hxtree.NewEvent(kind, u),
		filename: e.FileName,
		mimeType: e.MIMEType,
		length:   length,
	}
}
