// Package event provides the listener registry shared by every component.
//
// A Router stores listener entries keyed by (kind, target, method). Firing an
// event delivers it to every entry whose kind is the event's kind or one of
// its ancestors. Dispatch iterates a snapshot taken when Fire is called, so
// listeners may add or remove registrations from inside a callback without
// affecting the pass in progress.
package event

// Event is the minimal contract of anything a Router can dispatch.
type Event interface {
	Kind() Kind
	Source() any
}

// Func is the invocable bound to a listener entry.
type Func func(Event)

// Handle identifies a single registration. The zero Handle is never issued.
type Handle uint64

type entry struct {
	handle Handle
	kind   Kind
	target any
	method string
	fn     Func
}

func (e *entry) matches(kind Kind, target any, method string) bool {
	return e.kind == kind && e.target == target && e.method == method
}

// Router is a multi-listener registry. The zero value is ready to use.
//
// Router is not safe for concurrent use; components are mutated from a
// single session goroutine at a time.
type Router struct {
	entries []*entry
	next    Handle
}

// Add registers fn to receive events of kind (and its sub-kinds) on behalf
// of target. method names the callback so that one target may bind several
// callbacks for the same kind.
//
// Registering the same (kind, target, method) twice stores a single entry
// and returns the handle of the existing one. target must be comparable.
// A nil target registers an anonymous func: every such call gets its own
// entry and can only be removed by handle.
func (r *Router) Add(kind Kind, target any, method string, fn Func) Handle {
	if target != nil {
		for _, e := range r.entries {
			if e.matches(kind, target, method) {
				return e.handle
			}
		}
	}
	if r.entries == nil {
		r.entries = make([]*entry, 0, 4)
	}
	r.next++
	r.entries = append(r.entries, &entry{
		handle: r.next,
		kind:   kind,
		target: target,
		method: method,
		fn:     fn,
	})
	return r.next
}

// Remove deletes the registration identified by h.
// Returns false if no such registration exists.
func (r *Router) Remove(h Handle) bool {
	for i, e := range r.entries {
		if e.handle == h {
			r.removeAt(i)
			return true
		}
	}
	return false
}

// RemoveMatching deletes the registration with exactly this
// (kind, target, method). Returns false if none matched.
func (r *Router) RemoveMatching(kind Kind, target any, method string) bool {
	if target == nil {
		return false
	}
	for i, e := range r.entries {
		if e.matches(kind, target, method) {
			r.removeAt(i)
			return true
		}
	}
	return false
}

func (r *Router) removeAt(i int) {
	// Build a fresh slice: a snapshot held by an in-flight Fire must not
	// observe the shift.
	entries := make([]*entry, 0, len(r.entries)-1)
	entries = append(entries, r.entries[:i]...)
	r.entries = append(entries, r.entries[i+1:]...)
}

// RemoveAll clears every registration. The router stays usable.
func (r *Router) RemoveAll() {
	r.entries = nil
}

// Fire delivers e to every entry registered for e's kind or an ancestor of
// it. Registrations added or removed during dispatch take effect on the next
// call.
func (r *Router) Fire(e Event) {
	if len(r.entries) == 0 {
		return
	}
	snapshot := make([]*entry, len(r.entries))
	copy(snapshot, r.entries)

	kind := e.Kind()
	for _, en := range snapshot {
		if kind.Is(en.kind) {
			en.fn(e)
		}
	}
}

// Has reports whether any entry is registered for kind or a sub-kind, so
// Has(parent) is true when only a child kind has listeners. This matches
// Listeners.
func (r *Router) Has(kind Kind) bool {
	for _, e := range r.entries {
		if e.kind.Is(kind) {
			return true
		}
	}
	return false
}

// Listeners returns the targets of entries registered for kind or one of its
// sub-kinds, in registration order.
func (r *Router) Listeners(kind Kind) []any {
	var targets []any
	for _, e := range r.entries {
		if e.kind.Is(kind) {
			targets = append(targets, e.target)
		}
	}
	return targets
}

// Len returns the number of registrations.
func (r *Router) Len() int {
	return len(r.entries)
}
