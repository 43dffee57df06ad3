package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/pthm/hxtree"
	"github.com/pthm/hxtree/lib/stream"
)

type recorder struct {
	started   []*StartedEvent
	finished  []*FinishedEvent
	succeeded []*SucceededEvent
	failed    []*FailedEvent
	progress  [][2]int64
}

func (r *recorder) UploadStarted(e *StartedEvent)     { r.started = append(r.started, e) }
func (r *recorder) UploadFinished(e *FinishedEvent)   { r.finished = append(r.finished, e) }
func (r *recorder) UploadSucceeded(e *SucceededEvent) { r.succeeded = append(r.succeeded, e) }
func (r *recorder) UploadFailed(e *FailedEvent)       { r.failed = append(r.failed, e) }
func (r *recorder) UpdateProgress(read, length int64) {
	r.progress = append(r.progress, [2]int64{read, length})
}

func newRecorded(t *testing.T, receiver Receiver) (*Upload, *recorder) {
	t.Helper()
	u := New("File", receiver)
	rec := &recorder{}
	if _, err := u.AddStartedListener(rec); err != nil {
		t.Fatal(err)
	}
	if _, err := u.AddFinishedListener(rec); err != nil {
		t.Fatal(err)
	}
	if _, err := u.AddSucceededListener(rec); err != nil {
		t.Fatal(err)
	}
	if _, err := u.AddFailedListener(rec); err != nil {
		t.Fatal(err)
	}
	return u, rec
}

func bufferReceiver(buf *bytes.Buffer) Receiver {
	return ReceiverFunc(func(string, string) (io.Writer, error) { return buf, nil })
}

func TestStartUploadTwiceFails(t *testing.T) {
	u := New("", nil)
	if err := u.StartUpload(); err != nil {
		t.Fatalf("first StartUpload() error = %v", err)
	}
	if err := u.StartUpload(); !errors.Is(err, ErrAlreadyUploading) {
		t.Errorf("second StartUpload() error = %v, want ErrAlreadyUploading", err)
	}
}

func TestUploadRoundTrip(t *testing.T) {
	u, rec := newRecorded(t, nil)

	if err := u.StartUpload(); err != nil {
		t.Fatal(err)
	}
	u.StreamingFinished(stream.Event{FileName: "a.txt", MIMEType: "text/plain", ContentLength: 3, BytesReceived: 3})

	if u.IsUploading() {
		t.Error("IsUploading() = true after StreamingFinished")
	}
	if len(rec.succeeded) != 1 {
		t.Fatalf("SucceededEvents = %d, want 1", len(rec.succeeded))
	}
	if len(rec.finished) != 1 {
		t.Errorf("FinishedEvents = %d, want 1", len(rec.finished))
	}
	if len(rec.failed) != 0 {
		t.Errorf("FailedEvents = %d, want 0", len(rec.failed))
	}
	if got := rec.succeeded[0].Filename(); got != "a.txt" {
		t.Errorf("Filename() = %q, want a.txt", got)
	}
	if got := rec.succeeded[0].Upload(); got != u {
		t.Errorf("Upload() = %p, want %p", got, u)
	}
	if err := u.StartUpload(); err != nil {
		t.Errorf("StartUpload() after finish error = %v", err)
	}
}

func TestReceiveWritesFile(t *testing.T) {
	var buf bytes.Buffer
	u, rec := newRecorded(t, bufferReceiver(&buf))
	u.AddProgressListener(rec)

	data := strings.Repeat("x", 10)
	meta := stream.Event{FileName: "x.bin", MIMEType: "application/octet-stream", ContentLength: 10}
	err := stream.Receive(context.Background(), u, strings.NewReader(data), meta, stream.Options{ChunkSize: 4})
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}

	if buf.String() != data {
		t.Errorf("written = %q, want %q", buf.String(), data)
	}
	if len(rec.started) != 1 {
		t.Fatalf("StartedEvents = %d, want 1", len(rec.started))
	}
	if got := rec.started[0].ContentLength(); got != 10 {
		t.Errorf("ContentLength() = %d, want 10", got)
	}
	if len(rec.succeeded) != 1 {
		t.Fatalf("SucceededEvents = %d, want 1", len(rec.succeeded))
	}
	if got := rec.succeeded[0].Length(); got != 10 {
		t.Errorf("Length() = %d, want 10", got)
	}
	want := [][2]int64{{4, 10}, {8, 10}, {10, 10}}
	if diff := cmp.Diff(want, rec.progress); diff != "" {
		t.Errorf("progress mismatch (-want +got):\n%s", diff)
	}
	if u.BytesRead() != 10 {
		t.Errorf("BytesRead() = %d, want 10", u.BytesRead())
	}
	if u.IsUploading() {
		t.Error("IsUploading() = true after Receive")
	}
	if u.UploadSize() != -1 {
		t.Errorf("UploadSize() = %d, want -1 when idle", u.UploadSize())
	}
}

func TestStreamingFailedClassification(t *testing.T) {
	tests := []struct {
		name     string
		receiver Receiver
		in       io.Reader
		want     string
	}{
		{
			name: "no input",
			receiver: ReceiverFunc(func(string, string) (io.Writer, error) {
				return io.Discard, nil
			}),
			in:   nil,
			want: "noinput",
		},
		{
			name:     "no receiver",
			receiver: nil,
			in:       strings.NewReader("data"),
			want:     "nooutput",
		},
		{
			name: "nil writer",
			receiver: ReceiverFunc(func(string, string) (io.Writer, error) {
				return nil, nil
			}),
			in:   strings.NewReader("data"),
			want: "nooutput",
		},
		{
			name: "write error",
			receiver: ReceiverFunc(func(string, string) (io.Writer, error) {
				return failingWriter{}, nil
			}),
			in:   strings.NewReader("data"),
			want: "failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, rec := newRecorded(t, tt.receiver)
			if err := stream.Receive(context.Background(), u, tt.in, stream.Event{ContentLength: -1}, stream.Options{}); err == nil {
				t.Fatal("Receive() error = nil")
			}
			if len(rec.failed) != 1 {
				t.Fatalf("FailedEvents = %d, want 1", len(rec.failed))
			}
			if len(rec.finished) != 1 {
				t.Errorf("FinishedEvents = %d, want 1", len(rec.finished))
			}
			if len(rec.succeeded) != 0 {
				t.Errorf("SucceededEvents = %d, want 0", len(rec.succeeded))
			}

			e := rec.failed[0]
			var got string
			switch {
			case e.Kind().Is(KindNoInputStream):
				got = "noinput"
			case e.Kind().Is(KindNoOutputStream):
				got = "nooutput"
			case e.Kind().Is(KindFailed):
				got = "failed"
			}
			if got != tt.want {
				t.Errorf("failure class = %q, want %q", got, tt.want)
			}
			if e.Reason() == nil {
				t.Error("Reason() = nil")
			}
			if u.IsUploading() {
				t.Error("IsUploading() = true after failure")
			}
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

type interruptingReader struct {
	u *Upload
	n int
}

func (r *interruptingReader) Read(p []byte) (int, error) {
	r.n++
	if r.n == 2 {
		r.u.InterruptUpload()
	}
	p[0] = 'x'
	return 1, nil
}

func TestInterruptUpload(t *testing.T) {
	var buf bytes.Buffer
	u, rec := newRecorded(t, bufferReceiver(&buf))

	in := &interruptingReader{u: u}
	err := stream.Receive(context.Background(), u, in, stream.Event{ContentLength: -1}, stream.Options{ChunkSize: 1})
	if !errors.Is(err, stream.ErrInterrupted) {
		t.Fatalf("Receive() error = %v, want ErrInterrupted", err)
	}
	if len(rec.failed) != 1 {
		t.Fatalf("FailedEvents = %d, want 1", len(rec.failed))
	}
	if !errors.Is(rec.failed[0].Reason(), stream.ErrInterrupted) {
		t.Errorf("Reason() = %v, want ErrInterrupted", rec.failed[0].Reason())
	}
	if u.IsInterrupted() {
		t.Error("IsInterrupted() = true after the upload ended")
	}
	if buf.Len() != 2 {
		t.Errorf("written = %d bytes, want 2", buf.Len())
	}
}

// chunkSignal reports each progress callback without blocking the stream.
type chunkSignal chan struct{}

func (c chunkSignal) UpdateProgress(read, length int64) {
	select {
	case c <- struct{}{}:
	default:
	}
}

func newAttached(t *testing.T, u *Upload) *hxtree.Application {
	t.Helper()
	app := hxtree.NewApplication()
	if err := app.AddWindow(hxtree.NewWindow("main", u)); err != nil {
		t.Fatal(err)
	}
	return app
}

func TestInterruptFromSessionWhileReceiving(t *testing.T) {
	var buf bytes.Buffer
	u, rec := newRecorded(t, bufferReceiver(&buf))
	app := newAttached(t, u)
	chunks := make(chunkSignal, 1)
	u.AddProgressListener(chunks)

	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		meta := stream.Event{FileName: "big.bin", ContentLength: -1}
		done <- stream.Receive(context.Background(), u, pr, meta, stream.Options{ChunkSize: 4, Sync: app.Access})
	}()

	if _, err := pw.Write([]byte("abcd")); err != nil {
		t.Fatal(err)
	}
	<-chunks

	app.Access(func() {
		u.InterruptUpload()
		u.SetCaption("stopping")
	})
	// Feed one more chunk in case the stream is already blocked in Read.
	go func() { _, _ = pw.Write([]byte("efgh")) }()

	err := <-done
	_ = pr.Close()

	if !errors.Is(err, stream.ErrInterrupted) {
		t.Fatalf("Receive() error = %v, want ErrInterrupted", err)
	}
	app.Access(func() {
		if u.IsUploading() {
			t.Error("IsUploading() = true after interrupted stream")
		}
		if u.IsInterrupted() {
			t.Error("IsInterrupted() = true after returning to idle")
		}
		if len(rec.failed) != 1 || !rec.failed[0].Kind().Is(KindFailed) {
			t.Errorf("FailedEvents = %d, want 1", len(rec.failed))
		}
		if len(rec.succeeded) != 0 {
			t.Errorf("SucceededEvents = %d, want 0", len(rec.succeeded))
		}
		if u.Caption() != "stopping" {
			t.Errorf("Caption() = %q, want stopping", u.Caption())
		}
	})
	if err := u.StartUpload(); err != nil {
		t.Errorf("StartUpload() after interrupt error = %v", err)
	}
}

func TestSessionMutationsRaceReceive(t *testing.T) {
	for i := 0; i < 50; i++ {
		var buf bytes.Buffer
		u, _ := newRecorded(t, bufferReceiver(&buf))
		app := newAttached(t, u)

		done := make(chan error, 1)
		go func() {
			meta := stream.Event{FileName: "race.bin", ContentLength: 64}
			in := strings.NewReader(strings.Repeat("x", 64))
			done <- stream.Receive(context.Background(), u, in, meta, stream.Options{ChunkSize: 4, Sync: app.Access})
		}()

		stop := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				app.Access(func() {
					u.InterruptUpload()
					u.SetCaption("busy")
				})
			}
		}()

		err := <-done
		close(stop)
		wg.Wait()

		if err != nil && !errors.Is(err, stream.ErrInterrupted) {
			t.Fatalf("iteration %d: Receive() error = %v", i, err)
		}
		if u.IsUploading() {
			t.Fatalf("iteration %d: IsUploading() = true after Receive returned", i)
		}
		if err := u.StartUpload(); err != nil {
			t.Fatalf("iteration %d: StartUpload() error = %v", i, err)
		}
	}
}

func TestInterruptWhileIdleIsIgnored(t *testing.T) {
	u := New("", nil)
	u.InterruptUpload()
	if u.IsInterrupted() {
		t.Error("IsInterrupted() = true while idle")
	}
}

func TestStreamingStartedKeepsExplicitStart(t *testing.T) {
	u := New("", nil)
	if err := u.StartUpload(); err != nil {
		t.Fatal(err)
	}
	id := u.AttemptID()
	u.StreamingStarted(stream.Event{ContentLength: 5})
	if u.AttemptID() != id {
		t.Errorf("AttemptID() = %d, want %d", u.AttemptID(), id)
	}
	if u.UploadSize() != 5 {
		t.Errorf("UploadSize() = %d, want 5", u.UploadSize())
	}
}

func TestProgressListenerRegistration(t *testing.T) {
	u := New("", nil)
	if u.ListenProgress() {
		t.Error("ListenProgress() = true without listeners")
	}
	rec := &recorder{}
	u.AddProgressListener(rec)
	u.AddProgressListener(rec)
	if got := len(u.ProgressListeners()); got != 1 {
		t.Errorf("ProgressListeners() = %d, want 1", got)
	}
	u.RemoveProgressListener(rec)
	if u.ListenProgress() {
		t.Error("ListenProgress() = true after removal")
	}
}

func TestPaintIdle(t *testing.T) {
	u := New("File", nil)
	u.SetTabIndex(3)

	result, err := hxtree.TestPaint(u)
	if err != nil {
		t.Fatal(err)
	}
	root := result.Root()
	if root.Tag != "upload" {
		t.Errorf("Tag = %q, want upload", root.Tag)
	}
	checks := map[string]any{
		"state":         false,
		"buttoncaption": "Upload",
		"nextid":        0,
		"tabindex":      3,
	}
	for name, want := range checks {
		if got, _ := root.Attr(name); got != want {
			t.Errorf("Attr(%q) = %v, want %v", name, got, want)
		}
	}
	if _, ok := root.Var(VarAction); !ok {
		t.Error("action variable not painted")
	}
}

func TestPollForStartPaintsNotStartedOnce(t *testing.T) {
	u := New("", nil)

	// A poll for another attempt is ignored.
	if err := u.ChangeVariables(nil, map[string]any{VarPollForStart: 7}); err != nil {
		t.Fatal(err)
	}
	result, err := hxtree.TestPaint(u)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := result.Root().Attr("notStarted"); ok {
		t.Error("notStarted painted for a stale poll")
	}

	if err := u.ChangeVariables(nil, map[string]any{VarPollForStart: int64(0)}); err != nil {
		t.Fatal(err)
	}
	result, err = hxtree.TestPaint(u)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := result.Root().Attr("notStarted"); v != true {
		t.Errorf("notStarted = %v, want true", v)
	}
	if _, ok := result.Root().Attr("state"); ok {
		t.Error("state painted alongside notStarted")
	}

	result, err = hxtree.TestPaint(u)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := result.Root().Attr("notStarted"); ok {
		t.Error("notStarted painted twice")
	}
}

func TestPollForStartWhileUploading(t *testing.T) {
	u := New("", nil)
	if err := u.StartUpload(); err != nil {
		t.Fatal(err)
	}
	if err := u.ChangeVariables(nil, map[string]any{VarPollForStart: u.AttemptID()}); err != nil {
		t.Fatal(err)
	}
	result, err := hxtree.TestPaint(u)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := result.Root().Attr("notStarted"); ok {
		t.Error("notStarted painted while uploading")
	}
}

func TestPollForStartRejectsBadValue(t *testing.T) {
	u := New("", nil)
	if err := u.ChangeVariables(nil, map[string]any{VarPollForStart: "one"}); err == nil {
		t.Error("ChangeVariables() error = nil for a string id")
	}
}

func TestSubmitUpload(t *testing.T) {
	u := New("", nil)
	u.SubmitUpload()

	result, err := hxtree.TestPaint(u)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := result.Root().Attr("forceSubmit"); v != true {
		t.Errorf("forceSubmit = %v, want true", v)
	}

	result, err = hxtree.TestPaint(u)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := result.Root().Attr("forceSubmit"); ok {
		t.Error("forceSubmit painted twice")
	}
}

func TestRepaintCancelsSubmit(t *testing.T) {
	u := New("", nil)
	u.SubmitUpload()
	u.SetButtonCaption("Send")

	result, err := hxtree.TestPaint(u)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := result.Root().Attr("forceSubmit"); ok {
		t.Error("forceSubmit survived a later repaint request")
	}
	if v, _ := result.Root().Attr("buttoncaption"); v != "Send" {
		t.Errorf("buttoncaption = %v, want Send", v)
	}
}

func TestAddListenerThroughBindings(t *testing.T) {
	u := New("", nil)
	rec := &recorder{}
	// recorder implements every upload listener; the most recently
	// registered binding wins.
	if _, err := u.AddListener(rec); err != nil {
		t.Fatalf("AddListener() error = %v", err)
	}
	if !u.HasListeners(KindSucceeded) {
		t.Error("HasListeners(KindSucceeded) = false")
	}
	if err := u.RemoveListener(rec); err != nil {
		t.Fatalf("RemoveListener() error = %v", err)
	}
	if u.HasListeners(KindSucceeded) {
		t.Error("HasListeners(KindSucceeded) = true after removal")
	}
}

func TestUploadThroughRegistry(t *testing.T) {
	var buf bytes.Buffer
	var field *Upload
	rec := &recorder{}
	reg := hxtree.NewRegistry([]byte("upload-test-key"), func(log *zap.Logger) *hxtree.Application {
		app := hxtree.NewApplication(hxtree.WithLogger(log))
		field = New("Attachment", bufferReceiver(&buf))
		if _, err := field.AddSucceededListener(rec); err != nil {
			t.Fatal(err)
		}
		if err := app.AddWindow(hxtree.NewWindow("main", field)); err != nil {
			t.Fatal(err)
		}
		return app
	})
	client := hxtree.NewTestClient(reg)
	if _, err := client.Open(); err != nil {
		t.Fatal(err)
	}

	res, err := client.Upload(field.ComponentID(), "notes.txt", "text/plain", strings.NewReader("hello"))
	if err != nil {
		t.Fatal(err)
	}
	if !res.HasStatus(204) {
		t.Fatalf("status = %d, want 204", res.StatusCode)
	}
	if buf.String() != "hello" {
		t.Errorf("received %q, want hello", buf.String())
	}
	if len(rec.succeeded) != 1 || rec.succeeded[0].Filename() != "notes.txt" {
		t.Fatalf("succeeded = %+v", rec.succeeded)
	}
	if got := rec.succeeded[0].MIMEType(); got != "text/plain" {
		t.Errorf("MIMEType() = %q, want text/plain", got)
	}

	// The field repainted itself idle with the next attempt id.
	msg, err := client.Send(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(msg.Changes) != 1 || msg.Changes[0].ID() != field.ComponentID() {
		t.Fatalf("changes = %+v, want the upload field", msg.Changes)
	}
	if v, _ := msg.Changes[0].Attr("state"); v != false {
		t.Errorf("state = %v, want false", v)
	}
}

func TestUploadRejectedWithoutReceiver(t *testing.T) {
	field := New("", nil)
	reg := hxtree.NewRegistry([]byte("upload-test-key"), func(log *zap.Logger) *hxtree.Application {
		app := hxtree.NewApplication(hxtree.WithLogger(log))
		if err := app.AddWindow(hxtree.NewWindow("main", field)); err != nil {
			t.Fatal(err)
		}
		return app
	})
	client := hxtree.NewTestClient(reg)
	if _, err := client.Open(); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	if _, err := field.AddFailedListener(rec); err != nil {
		t.Fatal(err)
	}

	res, err := client.Upload(field.ComponentID(), "a.bin", "", strings.NewReader("x"))
	if err != nil {
		t.Fatal(err)
	}
	if !res.HasStatus(422) {
		t.Errorf("status = %d, want 422", res.StatusCode)
	}
	if len(rec.failed) != 1 || !rec.failed[0].Kind().Is(KindNoOutputStream) {
		t.Errorf("failed = %+v, want one NoOutputStream failure", rec.failed)
	}
	if !errors.Is(rec.failed[0].Reason(), ErrNoReceiver) {
		t.Errorf("Reason() = %v, want ErrNoReceiver", rec.failed[0].Reason())
	}
}
