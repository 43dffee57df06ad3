package event

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

var (
	kindBase  = NewKind("test.base", Any)
	kindChild = NewKind("test.child", kindBase)
	kindOther = NewKind("test.other", Any)
)

type testEvent struct {
	kind   Kind
	source any
}

func (e *testEvent) Kind() Kind  { return e.kind }
func (e *testEvent) Source() any { return e.source }

type recorder struct {
	name string
	got  *[]string
}

func (r *recorder) fn(e Event) {
	*r.got = append(*r.got, r.name+":"+e.Kind().String())
}

func TestKindIs(t *testing.T) {
	tests := []struct {
		kind, ancestor Kind
		want           bool
	}{
		{kindChild, kindBase, true},
		{kindChild, Any, true},
		{kindBase, kindBase, true},
		{kindBase, kindChild, false},
		{kindOther, kindBase, false},
		{Kind(9999), Any, false},
	}
	for _, tt := range tests {
		if got := tt.kind.Is(tt.ancestor); got != tt.want {
			t.Errorf("%v.Is(%v) = %v, want %v", tt.kind, tt.ancestor, got, tt.want)
		}
	}
}

func TestKindParent(t *testing.T) {
	if kindChild.Parent() != kindBase {
		t.Errorf("Parent() = %v, want %v", kindChild.Parent(), kindBase)
	}
	if Any.Parent() != Any {
		t.Errorf("Any.Parent() = %v, want Any", Any.Parent())
	}
}

func TestNewKindUnknownParentPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unknown parent")
		}
	}()
	NewKind("bad", Kind(123456))
}

func TestRouterFireMatchesSubKinds(t *testing.T) {
	var got []string
	var r Router
	a := &recorder{name: "a", got: &got}
	b := &recorder{name: "b", got: &got}

	r.Add(kindBase, a, "fn", a.fn)
	r.Add(kindChild, b, "fn", b.fn)

	r.Fire(&testEvent{kind: kindChild})
	r.Fire(&testEvent{kind: kindBase})
	r.Fire(&testEvent{kind: kindOther})

	want := []string{"a:test.child", "b:test.child", "a:test.base"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("delivery mismatch (-want +got):\n%s", diff)
	}
}

func TestRouterAddIsIdempotentPerTuple(t *testing.T) {
	var got []string
	var r Router
	a := &recorder{name: "a", got: &got}

	h1 := r.Add(kindBase, a, "fn", a.fn)
	h2 := r.Add(kindBase, a, "fn", a.fn)
	if h1 != h2 {
		t.Errorf("duplicate Add returned %v, want %v", h2, h1)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}

	// Same target, different method: distinct entry.
	h3 := r.Add(kindBase, a, "other", a.fn)
	if h3 == h1 {
		t.Error("different method should yield a different handle")
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
}

func TestRouterRemove(t *testing.T) {
	var got []string
	var r Router
	a := &recorder{name: "a", got: &got}

	h := r.Add(kindBase, a, "fn", a.fn)
	r.Add(kindBase, a, "second", a.fn)

	if !r.Remove(h) {
		t.Fatal("Remove() = false, want true")
	}
	if r.Remove(h) {
		t.Error("second Remove() = true, want false")
	}
	if !r.RemoveMatching(kindBase, a, "second") {
		t.Error("RemoveMatching() = false, want true")
	}
	if r.RemoveMatching(kindBase, a, "second") {
		t.Error("RemoveMatching() on empty router = true, want false")
	}

	r.Fire(&testEvent{kind: kindBase})
	if len(got) != 0 {
		t.Errorf("got %v after removal, want nothing", got)
	}
}

func TestRouterRemoveAllKeepsRouterUsable(t *testing.T) {
	var got []string
	var r Router
	a := &recorder{name: "a", got: &got}

	r.Add(kindBase, a, "fn", a.fn)
	r.RemoveAll()
	r.Fire(&testEvent{kind: kindBase})
	if len(got) != 0 {
		t.Fatalf("got %v after RemoveAll, want nothing", got)
	}

	r.Add(kindBase, a, "fn", a.fn)
	r.Fire(&testEvent{kind: kindBase})
	if len(got) != 1 {
		t.Errorf("got %d deliveries, want 1", len(got))
	}
}

func TestRouterSelfRemovalDuringFire(t *testing.T) {
	var r Router
	var calls []string
	var selfHandle Handle

	type target struct{ name string }
	first, second, third := &target{"first"}, &target{"second"}, &target{"third"}

	r.Add(kindBase, first, "fn", func(Event) { calls = append(calls, "first") })
	selfHandle = r.Add(kindBase, second, "fn", func(Event) {
		calls = append(calls, "second")
		r.Remove(selfHandle)
	})
	r.Add(kindBase, third, "fn", func(Event) { calls = append(calls, "third") })

	r.Fire(&testEvent{kind: kindBase})
	if diff := cmp.Diff([]string{"first", "second", "third"}, calls); diff != "" {
		t.Errorf("first dispatch (-want +got):\n%s", diff)
	}

	calls = nil
	r.Fire(&testEvent{kind: kindBase})
	if diff := cmp.Diff([]string{"first", "third"}, calls); diff != "" {
		t.Errorf("second dispatch (-want +got):\n%s", diff)
	}
}

func TestRouterAddDuringFireNotDeliveredInSamePass(t *testing.T) {
	var r Router
	count := 0
	type target struct{ n int }

	r.Add(kindBase, &target{1}, "fn", func(Event) {
		r.Add(kindBase, &target{2}, "fn", func(Event) { count++ })
	})

	r.Fire(&testEvent{kind: kindBase})
	if count != 0 {
		t.Errorf("listener added during dispatch ran %d times, want 0", count)
	}
	r.Fire(&testEvent{kind: kindBase})
	if count != 1 {
		t.Errorf("listener ran %d times on next dispatch, want 1", count)
	}
}

func TestRouterHasAndListeners(t *testing.T) {
	var r Router
	type target struct{ name string }
	a, b := &target{"a"}, &target{"b"}

	if r.Has(kindBase) {
		t.Error("empty router Has() = true")
	}

	r.Add(kindChild, a, "fn", func(Event) {})
	r.Add(kindOther, b, "fn", func(Event) {})

	if !r.Has(kindBase) {
		t.Error("Has(base) = false, want true (child registered)")
	}
	if r.Has(kindChild) == false {
		t.Error("Has(child) = false, want true")
	}

	got := r.Listeners(kindBase)
	if len(got) != 1 || got[0] != a {
		t.Errorf("Listeners(base) = %v, want [a]", got)
	}
	if got := r.Listeners(Any); len(got) != 2 {
		t.Errorf("Listeners(Any) len = %d, want 2", len(got))
	}
}

func TestRouterAnonymousFuncsAreNotDeduplicated(t *testing.T) {
	var r Router
	var n int
	h1 := r.Add(kindBase, nil, "", func(Event) { n++ })
	h2 := r.Add(kindBase, nil, "", func(Event) { n++ })
	if h1 == h2 {
		t.Fatal("anonymous registrations share a handle")
	}
	if r.RemoveMatching(kindBase, nil, "") {
		t.Error("RemoveMatching(nil target) = true, want false")
	}

	r.Fire(&testEvent{kind: kindChild})
	if n != 2 {
		t.Errorf("deliveries = %d, want 2", n)
	}

	r.Remove(h1)
	r.Fire(&testEvent{kind: kindBase})
	if n != 3 {
		t.Errorf("deliveries = %d, want 3", n)
	}
}
