package hxtree

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/gorilla/websocket"
	"github.com/pthm/hxtree/internal/logging"
	"github.com/pthm/hxtree/lib/encoding"
	"github.com/pthm/hxtree/lib/paint"
	"github.com/pthm/hxtree/lib/stream"
	"go.uber.org/zap"
)

// RequestHeader must be "true" on every mutating request. Browsers do not
// attach custom headers to cross-site form posts, so its presence proves the
// request came from the client renderer.
const RequestHeader = "X-Hxtree-Request"

// DefaultCookieName is the session cookie used unless WithCookieName is
// given.
const DefaultCookieName = "hxtree-session"

// ClientMessage carries variable changes from the client, keyed by
// component id and then variable name.
type ClientMessage struct {
	Seq       uint64                    `msgpack:"s"`
	Variables map[string]map[string]any `msgpack:"v,omitempty"`
}

// ServerMessage answers a ClientMessage with the repainted components.
type ServerMessage struct {
	Seq     uint64        `msgpack:"s"`
	Changes []*paint.Node `msgpack:"c,omitempty"`
}

// ApplicationFactory creates the application for a new session.
type ApplicationFactory func(logger *zap.Logger) *Application

type session struct {
	id       string
	app      *Application
	lastSeen time.Time
}

// Registry owns the sessions of one mounted application and serves the
// HTTP and WebSocket transport for them.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session
	factory  ApplicationFactory
	encoder  *encoding.Encoder
	mux      *http.ServeMux
	upgrader websocket.Upgrader

	logger    *zap.Logger
	sensitive bool
	cookie    string
	timeout   time.Duration
	title     string
	now       func() time.Time

	// OnError writes the response for a failed request. Customize it to
	// render application-specific error pages.
	OnError func(http.ResponseWriter, *http.Request, error)
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the transport logger. Applications created by the
// factory receive a child of it.
func WithRegistryLogger(l *zap.Logger) RegistryOption {
	return func(reg *Registry) {
		reg.logger = l
	}
}

// WithSensitive encrypts messages instead of only signing them.
func WithSensitive() RegistryOption {
	return func(reg *Registry) {
		reg.sensitive = true
	}
}

// WithCookieName overrides DefaultCookieName.
func WithCookieName(name string) RegistryOption {
	return func(reg *Registry) {
		reg.cookie = name
	}
}

// WithSessionTimeout closes sessions idle for longer than d. Zero keeps
// sessions until CloseSession is called.
func WithSessionTimeout(d time.Duration) RegistryOption {
	return func(reg *Registry) {
		reg.timeout = d
	}
}

// WithTitle sets the page title of the initial HTML page.
func WithTitle(title string) RegistryOption {
	return func(reg *Registry) {
		reg.title = title
	}
}

// NewRegistry creates a session registry. key signs or encrypts messages;
// keys shorter than 32 bytes are stretched. factory is called once per new
// session.
func NewRegistry(key []byte, factory ApplicationFactory, opts ...RegistryOption) *Registry {
	enc, err := encoding.NewEncoder(key)
	if err != nil {
		panic(fmt.Sprintf("hxtree: failed to create encoder: %v", err))
	}
	if factory == nil {
		panic("hxtree: nil application factory")
	}

	reg := &Registry{
		sessions: make(map[string]*session),
		factory:  factory,
		encoder:  enc,
		mux:      http.NewServeMux(),
		logger:   zap.NewNop(),
		cookie:   DefaultCookieName,
		title:    "hxtree",
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(reg)
	}

	reg.OnError = func(w http.ResponseWriter, r *http.Request, err error) {
		switch {
		case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrUnknownComponent):
			http.Error(w, "Not found", http.StatusNotFound)
		case IsDecodeError(err):
			http.Error(w, "Bad request", http.StatusBadRequest)
		default:
			http.Error(w, "Internal error", http.StatusInternalServerError)
		}
	}

	reg.mux.HandleFunc("GET /{$}", reg.handlePage)
	reg.mux.HandleFunc("POST /uidl", reg.handleUIDL)
	reg.mux.HandleFunc("GET /ws", reg.handleWebSocket)
	reg.mux.HandleFunc("POST /upload/{id}", reg.handleUpload)
	return reg
}

// Encoder returns the message codec.
func (reg *Registry) Encoder() *encoding.Encoder {
	return reg.encoder
}

// IsSensitive reports whether messages are encrypted.
func (reg *Registry) IsSensitive() bool {
	return reg.sensitive
}

// Handler returns the HTTP handler for the transport routes. Mount it with
// http.StripPrefix when serving below the root.
func (reg *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			if !IsClientRequest(r) {
				http.Error(w, "Forbidden: client request header required", http.StatusForbidden)
				return
			}
		}
		reg.mux.ServeHTTP(w, r)
	})
}

// Session returns the application of the session with the given id.
func (reg *Registry) Session(id string) (*Application, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	s, ok := reg.sessions[id]
	if !ok {
		return nil, false
	}
	return s.app, true
}

// SessionCount returns the number of open sessions.
func (reg *Registry) SessionCount() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.sessions)
}

// CloseSession detaches the session's windows and forgets it.
func (reg *Registry) CloseSession(id string) {
	reg.mu.Lock()
	s, ok := reg.sessions[id]
	delete(reg.sessions, id)
	reg.mu.Unlock()
	if ok {
		s.app.Access(s.app.Close)
		reg.logger.Info("session closed", zap.String("session", id))
	}
}

// Sweep closes sessions idle for longer than the session timeout.
func (reg *Registry) Sweep() int {
	if reg.timeout <= 0 {
		return 0
	}
	cutoff := reg.now().Add(-reg.timeout)
	var expired []string
	reg.mu.RLock()
	for id, s := range reg.sessions {
		if s.lastSeen.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	reg.mu.RUnlock()
	for _, id := range expired {
		reg.CloseSession(id)
	}
	return len(expired)
}

func (reg *Registry) newSession() (*session, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}
	id := hex.EncodeToString(raw[:])
	app := reg.factory(reg.logger.With(zap.String("session", id)))
	if app == nil {
		return nil, errors.New("hxtree: application factory returned nil")
	}
	s := &session{id: id, app: app, lastSeen: reg.now()}

	reg.mu.Lock()
	reg.sessions[id] = s
	reg.mu.Unlock()
	reg.logger.Info("session opened", zap.String("session", id))
	return s, nil
}

func (reg *Registry) lookup(r *http.Request) (*session, error) {
	c, err := r.Cookie(reg.cookie)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	s, ok := reg.sessions[c.Value]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.lastSeen = reg.now()
	return s, nil
}

func (reg *Registry) handlePage(w http.ResponseWriter, r *http.Request) {
	reg.Sweep()
	s, err := reg.lookup(r)
	if err != nil {
		s, err = reg.newSession()
		if err != nil {
			reg.OnError(w, r, err)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     reg.cookie,
			Value:    s.id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	var nodes []*paint.Node
	s.app.Access(func() {
		main := s.app.MainWindow()
		if main == nil {
			err = fmt.Errorf("%w: no main window", ErrNotAttached)
			return
		}
		nodes, err = s.app.PaintWindow(main)
	})
	if err != nil {
		reg.logger.Error("initial paint failed", zap.String("session", s.id), zap.Error(err))
		reg.OnError(w, r, err)
		return
	}

	if err := Render(w, r, reg.page(nodes)); err != nil {
		reg.logger.Warn("page render failed", zap.Error(err))
	}
}

func (reg *Registry) page(nodes []*paint.Node) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		head := `<!DOCTYPE html><html><head><meta charset="utf-8"><title>` +
			templ.EscapeString(reg.title) + `</title></head><body>`
		if _, err := io.WriteString(w, head); err != nil {
			return err
		}
		if err := paint.HTML(nodes...).Render(ctx, w); err != nil {
			return err
		}
		if err := NotificationContainer().Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

// exchange decodes one client message, applies it and encodes the answer.
func (reg *Registry) exchange(s *session, encoded string) (string, error) {
	var msg ClientMessage
	if err := reg.encoder.Decode(encoded, reg.sensitive, &msg); err != nil {
		return "", wrapEncodingError(err)
	}

	var changes []*paint.Node
	var err error
	s.app.Access(func() {
		s.app.ChangeVariables(msg.Variables)
		changes, err = s.app.Changes()
	})
	if err != nil {
		return "", err
	}

	out, err := reg.encoder.Encode(ServerMessage{Seq: msg.Seq, Changes: changes}, reg.sensitive)
	if err != nil {
		return "", fmt.Errorf("failed to encode server message: %w", err)
	}
	return out, nil
}

func (reg *Registry) handleUIDL(w http.ResponseWriter, r *http.Request) {
	s, err := reg.lookup(r)
	if err != nil {
		reg.OnError(w, r, err)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		reg.OnError(w, r, err)
		return
	}

	out, err := reg.exchange(s, strings.TrimSpace(string(body)))
	if err != nil {
		reg.logger.Warn("uidl exchange failed", zap.String("session", s.id), zap.Error(err))
		reg.OnError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, out)
}

func (reg *Registry) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s, err := reg.lookup(r)
	if err != nil {
		reg.OnError(w, r, err)
		return
	}
	conn, err := reg.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		reg.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	reg.logger.Debug("websocket connected", zap.String("session", s.id))

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				reg.logger.Warn("websocket read failed", zap.String("session", s.id), zap.Error(err))
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}

		reg.mu.Lock()
		s.lastSeen = reg.now()
		reg.mu.Unlock()

		out, err := reg.exchange(s, string(data))
		if err != nil {
			reg.logger.Warn("websocket exchange failed", zap.String("session", s.id), zap.Error(err))
			msg := websocket.FormatCloseMessage(websocket.CloseInvalidFramePayloadData, "bad message")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(out)); err != nil {
			reg.logger.Warn("websocket write failed", zap.String("session", s.id), zap.Error(err))
			return
		}
	}
}

// handleUpload streams the request body into a stream.Variable component.
// The body is either the raw file, described by the Content-Type header and
// the "filename" query parameter, or a multipart form whose first file part
// is used.
func (reg *Registry) handleUpload(w http.ResponseWriter, r *http.Request) {
	s, err := reg.lookup(r)
	if err != nil {
		reg.OnError(w, r, err)
		return
	}

	id := r.PathValue("id")
	var target stream.Variable
	s.app.Access(func() {
		c, ok := s.app.ComponentByID(id)
		if !ok || !c.IsEnabled() || !c.IsVisible() {
			return
		}
		target, _ = c.(stream.Variable)
	})
	if target == nil {
		reg.OnError(w, r, fmt.Errorf("%w: %s", ErrUnknownComponent, id))
		return
	}

	in, meta, err := uploadSource(r)
	if err != nil {
		reg.OnError(w, r, err)
		return
	}

	log := reg.logger.With(zap.String("session", s.id), logging.Component(id, "upload"))
	log.Debug("upload started", zap.String("file", meta.FileName), zap.Int64("length", meta.ContentLength))

	err = stream.Receive(r.Context(), target, in, meta, stream.Options{Sync: s.app.Access})
	if err != nil {
		log.Info("upload failed", zap.Error(err))
		// The failure has been delivered to the component; the client only
		// needs to know the transfer did not complete.
		http.Error(w, "Upload failed", http.StatusUnprocessableEntity)
		return
	}
	log.Debug("upload finished")
	w.WriteHeader(http.StatusNoContent)
}

func uploadSource(r *http.Request) (io.Reader, stream.Event, error) {
	meta := stream.Event{
		FileName:      r.URL.Query().Get("filename"),
		MIMEType:      r.Header.Get("Content-Type"),
		ContentLength: r.ContentLength,
	}

	mediaType, _, _ := mime.ParseMediaType(meta.MIMEType)
	if mediaType != "multipart/form-data" {
		return r.Body, meta, nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, meta, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			// No file part: the component is told there was no input.
			meta.MIMEType = ""
			return nil, meta, nil
		}
		if err != nil {
			return nil, meta, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
		if part.FileName() == "" {
			continue
		}
		return part, partMeta(part), nil
	}
}

func partMeta(part *multipart.Part) stream.Event {
	return stream.Event{
		FileName:      part.FileName(),
		MIMEType:      part.Header.Get("Content-Type"),
		ContentLength: -1,
	}
}
