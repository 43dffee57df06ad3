package hxtree

import (
	"fmt"
	"net/http"

	"github.com/a-h/templ"
)

// Render writes a templ component to the HTTP response.
//
// Sets Content-Type to text/html and renders the component using the
// request's context:
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    hxtree.Render(w, r, paint.HTML(nodes...))
//	}
func Render(w http.ResponseWriter, r *http.Request, component templ.Component) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(r.Context(), w)
}

// IsClientRequest reports whether the request carries RequestHeader, as
// every request sent by the client renderer does.
func IsClientRequest(r *http.Request) bool {
	return r.Header.Get(RequestHeader) == "true"
}

// SessionID returns the session cookie value, or "" if the request has none.
func SessionID(r *http.Request, cookieName string) string {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	c, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// IntVariable converts a decoded client variable to an int. Client messages
// may carry any integer width, or a float when produced by a JSON client.
func IntVariable(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int8:
		return int(n), nil
	case int16:
		return int(n), nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint8:
		return int(n), nil
	case uint16:
		return int(n), nil
	case uint32:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		return int(n), nil
	}
	return 0, fmt.Errorf("unexpected value %T", v)
}
