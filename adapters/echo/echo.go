// Package hxtreeecho provides Echo framework integration for hxtree.
//
// Mount a session registry onto an Echo instance or group:
//
//	e := echo.New()
//	reg := hxtreeecho.Mount(e, newApp)
//
// Or mount on a group with middleware:
//
//	g := e.Group("/app", authMiddleware)
//	reg := hxtreeecho.MountGroup(g, newApp, hxtreeecho.WithSensitive())
package hxtreeecho

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/pthm/hxtree"
	"go.uber.org/zap"
)

// Option configures the Mount and MountGroup functions.
type Option func(*options)

type options struct {
	key     []byte
	path    string
	regOpts []hxtree.RegistryOption
}

// WithKey sets the message key for the registry.
// The key should be at least 32 bytes of cryptographically random data.
// If not provided, a random key is generated (suitable for development only).
func WithKey(key []byte) Option {
	return func(o *options) {
		o.key = key
	}
}

// WithPath sets the URL path prefix for the transport routes.
// Defaults to "/_hx/".
func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

// WithSensitive encrypts messages instead of only signing them.
func WithSensitive() Option {
	return WithRegistryOptions(hxtree.WithSensitive())
}

// WithLogger sets the transport logger.
func WithLogger(l *zap.Logger) Option {
	return WithRegistryOptions(hxtree.WithRegistryLogger(l))
}

// WithRegistryOptions passes options through to hxtree.NewRegistry.
func WithRegistryOptions(opts ...hxtree.RegistryOption) Option {
	return func(o *options) {
		o.regOpts = append(o.regOpts, opts...)
	}
}

// Mount creates a registry and mounts its handler on an Echo instance.
//
//	e := echo.New()
//	reg := hxtreeecho.Mount(e, newApp)
//
//	// With options:
//	reg := hxtreeecho.Mount(e, newApp, hxtreeecho.WithKey(key))
func Mount(e *echo.Echo, factory hxtree.ApplicationFactory, opts ...Option) *hxtree.Registry {
	reg, path := newRegistry(factory, opts)
	e.Any(path+"*", wrap(reg))
	return reg
}

// MountGroup creates a registry and mounts its handler on an Echo group.
// This allows sessions to share middleware with the group (auth, logging, etc.).
//
//	g := e.Group("/app", authMiddleware)
//	reg := hxtreeecho.MountGroup(g, newApp)
func MountGroup(g *echo.Group, factory hxtree.ApplicationFactory, opts ...Option) *hxtree.Registry {
	reg, path := newRegistry(factory, opts)
	g.Any(path+"*", wrap(reg))
	return reg
}

func newRegistry(factory hxtree.ApplicationFactory, opts []Option) (*hxtree.Registry, string) {
	o := &options{path: "/_hx/"}
	for _, opt := range opts {
		opt(o)
	}
	if !strings.HasSuffix(o.path, "/") {
		o.path += "/"
	}

	key := o.key
	if key == nil {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic(fmt.Sprintf("hxtreeecho: failed to generate random key: %v", err))
		}
	}

	return hxtree.NewRegistry(key, factory, o.regOpts...), o.path
}

// wrap hands the request to the registry with the mount prefix removed, so
// the registry sees "/", "/uidl", "/ws" and "/upload/{id}".
func wrap(reg *hxtree.Registry) echo.HandlerFunc {
	h := reg.Handler()
	return func(c echo.Context) error {
		r := c.Request()
		r2 := new(http.Request)
		*r2 = *r
		u := *r.URL
		u.Path = "/" + c.Param("*")
		u.RawPath = ""
		r2.URL = &u
		h.ServeHTTP(c.Response(), r2)
		return nil
	}
}

// Render writes a templ component to the Echo response.
//
//	func handler(c echo.Context) error {
//	    return hxtreeecho.Render(c, myTemplate())
//	}
func Render(c echo.Context, component templ.Component) error {
	return hxtree.Render(c.Response(), c.Request(), component)
}
