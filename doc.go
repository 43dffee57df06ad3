// Package hxtree is the core of a server-side component-tree UI framework.
//
// The whole user interface of a session lives on the server as a tree of
// components. The browser runs a thin renderer that displays painted
// component state and sends back variable changes; hxtree applies those
// changes, lets components fire events, and repaints whatever changed.
//
// # Components
//
// Every widget embeds Base and binds itself with Init so that lifecycle and
// paint hooks reach its overrides:
//
//	type Button struct {
//	    hxtree.Base
//	}
//
//	func NewButton(caption string) *Button {
//	    b := &Button{}
//	    b.Init(b)
//	    b.SetCaption(caption)
//	    return b
//	}
//
//	func (b *Button) TagName() string { return "button" }
//
// Base carries the state every component shares: style tokens, caption,
// icon, enabled/visible/read-only flags, locale and component error.
// Enabled and visible are effective only when every ancestor agrees;
// read-only is inherited from any ancestor. A component's own flags are
// never rewritten by its ancestors.
//
// # Trees and lifecycle
//
// Containers (ContainerBase, OrderedLayout, Window) own ordered children. A
// component is attached while its tree reaches a Window registered with an
// Application. Attach and Detach run exactly once per transition: adding
// an already attached subtree again does not re-enter the hooks.
//
// # Events
//
// Components keep a lib/event Router. Typed registration methods such as
// AddFocusListener bind one listener interface each; AddListener accepts any
// listener type a component has registered a ListenerBinding for and
// returns a handle. Repaint requests travel separately, upward from the
// component that changed, and reach each repaint listener once.
//
// # Paint cycle and transport
//
// The Application collects repaint requests into a dirty set. After
// applying a ClientMessage it paints the dirty components into a
// lib/paint.Target and returns the nodes in a ServerMessage. Registry
// serves sessions over HTTP and WebSocket:
//
//	reg := hxtree.NewRegistry(key, func(log *zap.Logger) *hxtree.Application {
//	    app := hxtree.NewApplication(hxtree.WithLogger(log))
//	    app.AddWindow(hxtree.NewWindow("Hello", hxtree.NewLabel("world")))
//	    return app
//	})
//	http.Handle("/", reg.Handler())
//
// Messages are msgpack encoded and HMAC signed, or AES-GCM encrypted with
// WithSensitive.
//
// # Concurrency
//
// A component tree belongs to one session and is not safe for concurrent
// use. The transport mutates it inside Application.Access; other goroutines
// that touch components, such as upload progress callbacks, must do the
// same.
package hxtree
