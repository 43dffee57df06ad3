package hxtree

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/pthm/hxtree/lib/paint"
)

// TestResult holds painted output for assertions.
//
// Provides convenience methods for asserting on the node tree, the rendered
// HTML, and, for transport tests, the HTTP status and headers.
type TestResult struct {
	Nodes      []*paint.Node
	HTML       string
	StatusCode int
	Headers    http.Header
}

// TestPaint paints c and renders the result as HTML.
//
// Use this for unit tests of PaintContent when no application or transport
// is involved:
//
//	result, err := hxtree.TestPaint(field)
//	if v, _ := result.Root().Var("text"); v != "hello" {
//	    t.Fatal("wrong value painted")
//	}
func TestPaint(c Component) (*TestResult, error) {
	t := paint.NewTarget()
	if err := c.Paint(t); err != nil {
		return nil, err
	}
	nodes, err := t.Nodes()
	if err != nil {
		return nil, err
	}
	return newTestResult(nodes, http.StatusOK, make(http.Header))
}

// TestChanges returns the application's pending changes, painted.
func TestChanges(app *Application) (*TestResult, error) {
	var nodes []*paint.Node
	var err error
	app.Access(func() { nodes, err = app.Changes() })
	if err != nil {
		return nil, err
	}
	return newTestResult(nodes, http.StatusOK, make(http.Header))
}

func newTestResult(nodes []*paint.Node, status int, headers http.Header) (*TestResult, error) {
	var buf bytes.Buffer
	if err := paint.HTML(nodes...).Render(context.Background(), &buf); err != nil {
		return nil, err
	}
	return &TestResult{
		Nodes:      nodes,
		HTML:       buf.String(),
		StatusCode: status,
		Headers:    headers,
	}, nil
}

// Root returns the first painted node, or nil.
func (r *TestResult) Root() *paint.Node {
	if len(r.Nodes) == 0 {
		return nil
	}
	return r.Nodes[0]
}

// Find returns the painted node with the given component id, or nil.
func (r *TestResult) Find(id string) *paint.Node {
	for _, n := range r.Nodes {
		if found := n.Find(id); found != nil {
			return found
		}
	}
	return nil
}

// FindTag returns every painted node with the given tag, depth first.
func (r *TestResult) FindTag(tag string) []*paint.Node {
	var out []*paint.Node
	var walk func(n *paint.Node)
	walk = func(n *paint.Node) {
		if n.Tag == tag {
			out = append(out, n)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, n := range r.Nodes {
		walk(n)
	}
	return out
}

// HTMLContains checks if the HTML contains a substring.
func (r *TestResult) HTMLContains(substr string) bool {
	return strings.Contains(r.HTML, substr)
}

// HTMLContainsAll checks if the HTML contains all the given substrings.
func (r *TestResult) HTMLContainsAll(substrs ...string) bool {
	for _, s := range substrs {
		if !strings.Contains(r.HTML, s) {
			return false
		}
	}
	return true
}

// IsOK checks if the status code is 200.
func (r *TestResult) IsOK() bool {
	return r.StatusCode == http.StatusOK
}

// HasStatus checks if the status code matches.
func (r *TestResult) HasStatus(code int) bool {
	return r.StatusCode == code
}

// TestClient drives a Registry the way the client renderer does, keeping
// the session cookie between requests.
//
//	client := hxtree.NewTestClient(reg)
//	page, _ := client.Open()
//	msg, _ := client.Send(map[string]map[string]any{
//	    fieldID: {"text": "hello"},
//	})
type TestClient struct {
	reg     *Registry
	handler http.Handler
	cookies []*http.Cookie
	seq     uint64
}

// NewTestClient returns a client without a session.
func NewTestClient(reg *Registry) *TestClient {
	return &TestClient{reg: reg, handler: reg.Handler()}
}

func (c *TestClient) do(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	if set := rec.Result().Cookies(); len(set) > 0 {
		c.cookies = set
	}
	return rec
}

// SessionID returns the session the client holds, or "".
func (c *TestClient) SessionID() string {
	for _, ck := range c.cookies {
		if ck.Name == c.reg.cookie {
			return ck.Value
		}
	}
	return ""
}

// Application returns the application of the client's session.
func (c *TestClient) Application() *Application {
	app, _ := c.reg.Session(c.SessionID())
	return app
}

// Open loads the initial page, creating a session if the client has none.
func (c *TestClient) Open() (*TestResult, error) {
	rec := c.do(httptest.NewRequest(http.MethodGet, "/", nil))
	return &TestResult{
		HTML:       rec.Body.String(),
		StatusCode: rec.Code,
		Headers:    rec.Header(),
	}, nil
}

// Send posts a variable-change message and decodes the answer.
func (c *TestClient) Send(vars map[string]map[string]any) (*ServerMessage, error) {
	c.seq++
	encoded, err := c.reg.encoder.Encode(ClientMessage{Seq: c.seq, Variables: vars}, c.reg.sensitive)
	if err != nil {
		return nil, err
	}

	req := httptest.NewRequest(http.MethodPost, "/uidl", strings.NewReader(encoded))
	req.Header.Set(RequestHeader, "true")
	rec := c.do(req)
	if rec.Code != http.StatusOK {
		return nil, fmt.Errorf("uidl: status %d: %s", rec.Code, strings.TrimSpace(rec.Body.String()))
	}

	var msg ServerMessage
	if err := c.reg.encoder.Decode(rec.Body.String(), c.reg.sensitive, &msg); err != nil {
		return nil, wrapEncodingError(err)
	}
	return &msg, nil
}

// Upload posts body as a raw file upload to the component with id.
func (c *TestClient) Upload(id, filename, mimeType string, body io.Reader) (*TestResult, error) {
	req := httptest.NewRequest(http.MethodPost, "/upload/"+id+"?filename="+filename, body)
	req.Header.Set(RequestHeader, "true")
	if mimeType != "" {
		req.Header.Set("Content-Type", mimeType)
	}
	rec := c.do(req)
	return &TestResult{
		HTML:       rec.Body.String(),
		StatusCode: rec.Code,
		Headers:    rec.Header(),
	}, nil
}
