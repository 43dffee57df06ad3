package event

import (
	"fmt"
	"sync"
)

// Kind tags an event type. Kinds form a single-inheritance hierarchy rooted
// at Any, so a listener registered for a kind also receives events of every
// sub-kind.
//
// Kinds are registered once, at package initialisation:
//
//	var KindFinished = event.NewKind("upload.finished", hxtree.KindComponent)
//	var KindSucceeded = event.NewKind("upload.succeeded", KindFinished)
type Kind int

// Any is the root of the kind hierarchy.
const Any Kind = 0

type kindInfo struct {
	name   string
	parent Kind
}

var (
	kindsMu sync.RWMutex
	kinds   = []kindInfo{{name: "any", parent: Any}}
)

// NewKind registers a kind with the given parent.
// Panics if parent has not been registered.
func NewKind(name string, parent Kind) Kind {
	kindsMu.Lock()
	defer kindsMu.Unlock()

	if int(parent) < 0 || int(parent) >= len(kinds) {
		panic(fmt.Sprintf("event: unknown parent kind %d for %q", parent, name))
	}
	kinds = append(kinds, kindInfo{name: name, parent: parent})
	return Kind(len(kinds) - 1)
}

// Parent returns the direct parent of k. The parent of Any is Any.
func (k Kind) Parent() Kind {
	kindsMu.RLock()
	defer kindsMu.RUnlock()
	if !k.valid() {
		return Any
	}
	return kinds[k].parent
}

// Is reports whether k is ancestor or one of its descendants.
func (k Kind) Is(ancestor Kind) bool {
	kindsMu.RLock()
	defer kindsMu.RUnlock()

	if !k.valid() {
		return false
	}
	for cur := k; ; cur = kinds[cur].parent {
		if cur == ancestor {
			return true
		}
		if cur == Any {
			return false
		}
	}
}

func (k Kind) String() string {
	kindsMu.RLock()
	defer kindsMu.RUnlock()
	if !k.valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kinds[k].name
}

// valid must be called with kindsMu held.
func (k Kind) valid() bool {
	return int(k) >= 0 && int(k) < len(kinds)
}
