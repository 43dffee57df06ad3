// Package stream defines the callback contract between a component that
// receives streamed bytes (such as an upload) and the transport goroutine
// that reads them, plus Receive, the pump the transport runs.
//
// Callbacks are invoked from the reading goroutine, which is usually not the
// session goroutine. Implementations must synchronise before touching shared
// state. Cancellation is cooperative: Receive polls IsInterrupted between
// chunks.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Failure classes reported through Variable.StreamingFailed.
var (
	ErrNoInputStream  = errors.New("stream: no input stream")
	ErrNoOutputStream = errors.New("stream: no output stream")
	ErrInterrupted    = errors.New("stream: upload interrupted")
)

// DefaultChunkSize is the read buffer size used by Receive.
const DefaultChunkSize = 4096

// Event describes the stream at the moment a callback fires.
type Event struct {
	FileName      string
	MIMEType      string
	ContentLength int64 // -1 if unknown
	BytesReceived int64
}

// FailedEvent carries the reason a stream ended unsuccessfully.
type FailedEvent struct {
	Event
	Err error
}

// Variable is implemented by components that accept a byte stream.
type Variable interface {
	// ListenProgress reports whether OnProgress should be called.
	ListenProgress() bool
	OnProgress(e Event)
	IsInterrupted() bool
	// OutputStream is called once, after StreamingStarted.
	OutputStream() (io.Writer, error)
	StreamingStarted(e Event)
	StreamingFinished(e Event)
	StreamingFailed(e FailedEvent)
}

// Options tune Receive.
type Options struct {
	ChunkSize int
	// Sync wraps every callback. The transport passes the session lock here
	// so callbacks never interleave with request handling.
	Sync func(func())
}

// Receive pumps in into v's output stream until EOF, interruption, context
// cancellation or error. Exactly one of StreamingFinished or StreamingFailed
// is called once StreamingStarted has been called. The returned error is the
// one reported to StreamingFailed, or nil.
func Receive(ctx context.Context, v Variable, in io.Reader, meta Event, opts Options) error {
	sync := opts.Sync
	if sync == nil {
		sync = func(f func()) { f() }
	}
	chunk := opts.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}

	state := meta
	state.BytesReceived = 0

	sync(func() { v.StreamingStarted(state) })

	var closer io.Closer
	closeOut := func() {
		if closer != nil {
			closer.Close()
			closer = nil
		}
	}
	fail := func(err error) error {
		closeOut()
		sync(func() { v.StreamingFailed(FailedEvent{Event: state, Err: err}) })
		return err
	}

	if in == nil {
		return fail(ErrNoInputStream)
	}

	var out io.Writer
	var err error
	sync(func() { out, err = v.OutputStream() })
	if err != nil {
		return fail(fmt.Errorf("%w: %w", ErrNoOutputStream, err))
	}
	if out == nil {
		return fail(ErrNoOutputStream)
	}
	// The receiver sees a closed stream by the time it is told the outcome.
	if c, ok := out.(io.Closer); ok {
		closer = c
	}

	var listen bool
	sync(func() { listen = v.ListenProgress() })

	buf := make([]byte, chunk)
	for {
		if err := ctx.Err(); err != nil {
			return fail(fmt.Errorf("%w: %v", ErrInterrupted, err))
		}
		var interrupted bool
		sync(func() { interrupted = v.IsInterrupted() })
		if interrupted {
			return fail(ErrInterrupted)
		}

		n, rerr := in.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return fail(werr)
			}
			state.BytesReceived += int64(n)
			if listen {
				progress := state
				sync(func() { v.OnProgress(progress) })
			}
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return fail(rerr)
		}
	}

	if state.ContentLength < 0 {
		state.ContentLength = state.BytesReceived
	}
	closeOut()
	sync(func() { v.StreamingFinished(state) })
	return nil
}
