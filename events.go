package hxtree

import "github.com/pthm/hxtree/lib/event"

// Event kinds raised by the core. Widget packages register their own kinds
// beneath KindComponent.
var (
	KindComponent       = event.NewKind("component", event.Any)
	KindError           = event.NewKind("component.error", KindComponent)
	KindRepaintRequest  = event.NewKind("component.repaint", event.Any)
	KindComponentAttach = event.NewKind("container.attach", KindComponent)
	KindComponentDetach = event.NewKind("container.detach", KindComponent)
	KindLayoutClick     = event.NewKind("layout.click", KindComponent)
	KindValueChange     = event.NewKind("field.valuechange", KindComponent)
)

// Event is the base of every component-originated event. Concrete events
// embed it and add their own payload.
type Event struct {
	kind   event.Kind
	source Component
}

// NewEvent creates an event of the given kind raised by source.
func NewEvent(kind event.Kind, source Component) Event {
	return Event{kind: kind, source: source}
}

// Kind returns the event's kind tag.
func (e *Event) Kind() event.Kind { return e.kind }

// Source returns the originating component as an untyped value.
func (e *Event) Source() any { return e.source }

// Component returns the originating component.
func (e *Event) Component() Component { return e.source }

// ComponentEvent is satisfied by every event that embeds Event.
type ComponentEvent interface {
	event.Event
	Component() Component
}

// Listener receives every event a component fires.
type Listener interface {
	ComponentEvent(e ComponentEvent)
}

// ErrorEvent reports a failure attributed to a component.
type ErrorEvent struct {
	Event
	err error
}

// NewErrorEvent creates an ErrorEvent for err raised by source.
func NewErrorEvent(err error, source Component) *ErrorEvent {
	return &ErrorEvent{Event: NewEvent(KindError, source), err: err}
}

// Err returns the reported error.
func (e *ErrorEvent) Err() error { return e.err }

// ErrorMessage returns the error text.
func (e *ErrorEvent) ErrorMessage() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

// ErrorListener receives ErrorEvents.
type ErrorListener interface {
	ComponentError(e *ErrorEvent)
}

// ValueChangeEvent is fired once when a field commits a new value.
type ValueChangeEvent struct {
	Event
	value any
}

// Value returns the committed value.
func (e *ValueChangeEvent) Value() any { return e.value }

// ValueChangeListener receives committed value changes.
type ValueChangeListener interface {
	ValueChange(e *ValueChangeEvent)
}

// ComponentAttachEvent is fired by a container after a child is added.
type ComponentAttachEvent struct {
	Event
	attached Component
}

// Attached returns the added child.
func (e *ComponentAttachEvent) Attached() Component { return e.attached }

// ComponentDetachEvent is fired by a container after a child is removed.
type ComponentDetachEvent struct {
	Event
	detached Component
}

// Detached returns the removed child.
func (e *ComponentDetachEvent) Detached() Component { return e.detached }

// ComponentAttachListener receives ComponentAttachEvents.
type ComponentAttachListener interface {
	ComponentAttachedToContainer(e *ComponentAttachEvent)
}

// ComponentDetachListener receives ComponentDetachEvents.
type ComponentDetachListener interface {
	ComponentDetachedFromContainer(e *ComponentDetachEvent)
}

// ListenerBinding routes one listener interface through the generic router.
//
// Bind adapts l to an event.Func if l implements the binding's interface.
// Components keep a chain of bindings; AddListener offers a listener to each
// binding in turn, most recently registered first.
type ListenerBinding struct {
	Kind   event.Kind
	Method string
	Bind   func(l any) (event.Func, bool)
}

// ListenerBinding values for the core listener interfaces.
var (
	ComponentListenerBinding = ListenerBinding{
		Kind:   KindComponent,
		Method: "ComponentEvent",
		Bind: func(l any) (event.Func, bool) {
			cl, ok := l.(Listener)
			if !ok {
				return nil, false
			}
			return func(e event.Event) {
				if ce, ok := e.(ComponentEvent); ok {
					cl.ComponentEvent(ce)
				}
			}, true
		},
	}

	ErrorListenerBinding = ListenerBinding{
		Kind:   KindError,
		Method: "ComponentError",
		Bind: func(l any) (event.Func, bool) {
			el, ok := l.(ErrorListener)
			if !ok {
				return nil, false
			}
			return func(e event.Event) { el.ComponentError(e.(*ErrorEvent)) }, true
		},
	}

	ValueChangeBinding = ListenerBinding{
		Kind:   KindValueChange,
		Method: "ValueChange",
		Bind: func(l any) (event.Func, bool) {
			vl, ok := l.(ValueChangeListener)
			if !ok {
				return nil, false
			}
			return func(e event.Event) { vl.ValueChange(e.(*ValueChangeEvent)) }, true
		},
	}

	ComponentAttachBinding = ListenerBinding{
		Kind:   KindComponentAttach,
		Method: "ComponentAttachedToContainer",
		Bind: func(l any) (event.Func, bool) {
			al, ok := l.(ComponentAttachListener)
			if !ok {
				return nil, false
			}
			return func(e event.Event) { al.ComponentAttachedToContainer(e.(*ComponentAttachEvent)) }, true
		},
	}

	ComponentDetachBinding = ListenerBinding{
		Kind:   KindComponentDetach,
		Method: "ComponentDetachedFromContainer",
		Bind: func(l any) (event.Func, bool) {
			dl, ok := l.(ComponentDetachListener)
			if !ok {
				return nil, false
			}
			return func(e event.Event) { dl.ComponentDetachedFromContainer(e.(*ComponentDetachEvent)) }, true
		},
	}
)

// RepaintRequestEvent tells a listener that a component needs repainting.
type RepaintRequestEvent struct {
	source Component
}

// Kind returns KindRepaintRequest.
func (e *RepaintRequestEvent) Kind() event.Kind { return KindRepaintRequest }

// Source returns the component that asked to be repainted.
func (e *RepaintRequestEvent) Source() any { return e.source }

// Paintable returns the component that asked to be repainted.
func (e *RepaintRequestEvent) Paintable() Component { return e.source }

// RepaintRequestListener is notified when a component or one of its
// descendants requests a repaint. Implementations must be comparable.
type RepaintRequestListener interface {
	RepaintRequested(e *RepaintRequestEvent)
}

// RepaintSet records which repaint listeners have already been notified
// during one propagation up the tree.
type RepaintSet map[RepaintRequestListener]struct{}

// Has reports whether l has been notified.
func (s RepaintSet) Has(l RepaintRequestListener) bool {
	_, ok := s[l]
	return ok
}
