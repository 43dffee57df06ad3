package hxtree

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pthm/hxtree/lib/event"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type errorRecorder struct {
	events []*ErrorEvent
}

func (r *errorRecorder) ComponentError(e *ErrorEvent) {
	r.events = append(r.events, e)
}

// failingField rejects every variable change.
type failingField struct {
	Base
}

func newFailingField() *failingField {
	f := &failingField{}
	f.Init(f)
	return f
}

func (f *failingField) ChangeVariables(source any, vars map[string]any) error {
	return errors.New("boom")
}

func TestAddWindowNames(t *testing.T) {
	app := NewApplication()
	a := NewWindow("a")
	b := NewWindow("b")
	named := NewWindow("named")
	if err := named.SetName("1"); err != nil {
		t.Fatal(err)
	}

	for _, w := range []*Window{named, a, b} {
		if err := app.AddWindow(w); err != nil {
			t.Fatalf("AddWindow() error = %v", err)
		}
	}
	if a.Name() != "2" || b.Name() != "3" {
		t.Errorf("names = %q, %q, want 2, 3", a.Name(), b.Name())
	}
	if app.MainWindow() != named {
		t.Error("MainWindow() is not the first window added")
	}
	if app.Window("3") != b {
		t.Error(`Window("3") did not return b`)
	}

	dup := NewWindow("dup")
	_ = dup.SetName("2")
	if err := app.AddWindow(dup); !errors.Is(err, ErrWindowName) {
		t.Errorf("AddWindow(duplicate) error = %v, want ErrWindowName", err)
	}
	if err := a.SetName("x"); !errors.Is(err, ErrWindowName) {
		t.Errorf("SetName() on an added window error = %v, want ErrWindowName", err)
	}

	other := NewApplication()
	if err := other.AddWindow(a); !errors.Is(err, ErrWindowName) {
		t.Errorf("AddWindow() from another application error = %v", err)
	}

	app.RemoveWindow(named)
	if app.MainWindow() != a {
		t.Error("MainWindow() did not move to the next window")
	}
	app.Close()
	if len(app.Windows()) != 0 {
		t.Errorf("Windows() = %d after Close, want 0", len(app.Windows()))
	}
}

func TestComponentIDsFollowAttachOrder(t *testing.T) {
	a, b := NewLabel("a"), NewLabel("b")
	_, w := newAttachedWindow(t, a, b)

	if w.ComponentID() != "PID1" {
		t.Errorf("window id = %q, want PID1", w.ComponentID())
	}
	if a.ComponentID() != "PID2" || b.ComponentID() != "PID3" {
		t.Errorf("ids = %q, %q, want PID2, PID3", a.ComponentID(), b.ComponentID())
	}
}

func TestComponentMovedBetweenApplicationsGetsNewID(t *testing.T) {
	moved := NewLabel("moved")
	_, w1 := newAttachedWindow(t, NewLabel("x"), moved)
	if moved.ComponentID() != "PID3" {
		t.Fatalf("moved id = %q, want PID3", moved.ComponentID())
	}

	r := NewLabel("r")
	app2, w2 := newAttachedWindow(t, NewLabel("q"), r)
	if r.ComponentID() != "PID3" {
		t.Fatalf("r id = %q, want PID3", r.ComponentID())
	}

	if err := w2.AddComponent(moved); err != nil {
		t.Fatal(err)
	}
	if moved.ComponentID() != "PID4" {
		t.Errorf("moved id = %q after move, want PID4", moved.ComponentID())
	}
	if c, ok := app2.ComponentByID("PID3"); !ok || c != Component(r) {
		t.Errorf("ComponentByID(PID3) = %v, want r", c)
	}
	if w1.ComponentCount() != 1 {
		t.Errorf("old window children = %d, want 1", w1.ComponentCount())
	}

	// Re-attaching within the same application keeps the id.
	w2.RemoveComponent(moved)
	if err := w2.AddComponent(moved); err != nil {
		t.Fatal(err)
	}
	if moved.ComponentID() != "PID4" {
		t.Errorf("moved id = %q after re-attach, want PID4", moved.ComponentID())
	}
}

func TestChangesPaintsTopmostDirty(t *testing.T) {
	a := NewLabel("a")
	inner := NewVerticalLayout(a)
	b := NewLabel("b")
	app, w := newAttachedWindow(t, inner, b)

	if _, err := app.PaintWindow(w); err != nil {
		t.Fatal(err)
	}
	if got := len(app.Dirty()); got != 0 {
		t.Fatalf("Dirty() = %d after PaintWindow, want 0", got)
	}

	b.SetValue("b2")
	a.SetValue("a2")
	inner.SetSpacing(true)

	var ids []string
	for _, c := range app.Dirty() {
		ids = append(ids, c.ComponentID())
	}
	want := []string{inner.ComponentID(), a.ComponentID(), b.ComponentID()}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Errorf("Dirty() order mismatch (-want +got):\n%s", diff)
	}

	result, err := TestChanges(app)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Nodes) != 2 {
		t.Fatalf("Changes() = %d roots, want 2 (inner and b)", len(result.Nodes))
	}
	if result.Nodes[0].ID() != inner.ComponentID() {
		t.Errorf("first change = %q, want %q", result.Nodes[0].ID(), inner.ComponentID())
	}
	if n := result.Find(a.ComponentID()); n == nil || n.Text != "a2" {
		t.Errorf("a painted as %+v, want text a2 inside inner", n)
	}
	if len(app.Dirty()) != 0 {
		t.Error("Dirty() not cleared by Changes")
	}
}

func TestDetachedComponentsAreNotDirty(t *testing.T) {
	l := NewLabel("x")
	app, w := newAttachedWindow(t, l)
	if _, err := app.PaintWindow(w); err != nil {
		t.Fatal(err)
	}
	w.RemoveComponent(l)
	l.SetValue("y")
	for _, c := range app.Dirty() {
		if c == Component(l) {
			t.Error("detached label is dirty")
		}
	}
}

func TestChangeVariablesRejectsInactiveOwners(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	app := NewApplication(WithLogger(zap.New(core)))

	enabled := NewTextField("enabled")
	disabled := NewTextField("disabled")
	hidden := NewTextField("hidden")
	readOnly := NewTextField("readonly")
	w := NewWindow("main", enabled, disabled, hidden, readOnly)
	if err := app.AddWindow(w); err != nil {
		t.Fatal(err)
	}
	disabled.SetEnabled(false)
	hidden.SetVisible(false)
	readOnly.SetReadOnly(true)

	app.ChangeVariables(map[string]map[string]any{
		enabled.ComponentID():  {VarText: "a"},
		disabled.ComponentID(): {VarText: "b"},
		hidden.ComponentID():   {VarText: "c"},
		readOnly.ComponentID(): {VarText: "d"},
		"PID999":               {VarText: "e"},
	})

	if enabled.Value() != "a" {
		t.Errorf("enabled Value() = %q, want a", enabled.Value())
	}
	for _, f := range []*TextField{disabled, hidden, readOnly} {
		if f.Value() != "" {
			t.Errorf("%s Value() = %q, want empty", f.Caption(), f.Value())
		}
	}
	if got := logs.FilterMessage("variable change rejected").Len(); got != 2 {
		t.Errorf("rejections logged = %d, want 2", got)
	}
	if got := logs.FilterMessage("variable change for unknown component").Len(); got != 1 {
		t.Errorf("unknown component logged = %d, want 1", got)
	}
}

func TestChangeVariablesReachReadOnlyOwners(t *testing.T) {
	app := NewApplication()
	field := NewTextField("name")
	layout := NewVerticalLayout(field)
	if err := app.AddWindow(NewWindow("main", layout)); err != nil {
		t.Fatal(err)
	}
	layout.SetReadOnly(true)

	rec := recordField(t, field)
	var clicks []*LayoutClickEvent
	layout.AddEventFunc(KindLayoutClick, func(e event.Event) {
		clicks = append(clicks, e.(*LayoutClickEvent))
	})

	app.ChangeVariables(map[string]map[string]any{
		field.ComponentID():  {VarFocus: true, VarText: "typed", VarBlur: true},
		layout.ComponentID(): {VarLayoutClick: map[string]any{"component": field.ComponentID()}},
	})

	if diff := cmp.Diff([]string{"focus", "blur"}, rec.log); diff != "" {
		t.Errorf("field events mismatch (-want +got):\n%s", diff)
	}
	if field.Value() != "" {
		t.Errorf("Value() = %q, read-only field must ignore client text", field.Value())
	}
	if len(clicks) != 1 {
		t.Fatalf("layout clicks = %d, want 1", len(clicks))
	}
	if clicks[0].ChildComponent() != Component(field) {
		t.Errorf("ChildComponent() = %v, want the field", clicks[0].ChildComponent())
	}
}

func TestReportErrorRouting(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	app := NewApplication(WithLogger(zap.New(core)))
	f := newFailingField()
	w := NewWindow("main", f)
	if err := app.AddWindow(w); err != nil {
		t.Fatal(err)
	}

	appErrors := &errorRecorder{}
	app.AddErrorListener(appErrors)

	app.ChangeVariables(map[string]map[string]any{f.ComponentID(): {"x": 1}})
	if len(appErrors.events) != 1 {
		t.Fatalf("application errors = %d, want 1", len(appErrors.events))
	}
	if got := appErrors.events[0].ErrorMessage(); got != "boom" {
		t.Errorf("ErrorMessage() = %q, want boom", got)
	}
	if appErrors.events[0].Component() != Component(f) {
		t.Error("error source is not the failing field")
	}

	compErrors := &errorRecorder{}
	if _, err := f.AddListener(compErrors); err != nil {
		t.Fatal(err)
	}
	app.ChangeVariables(map[string]map[string]any{f.ComponentID(): {"x": 1}})
	if len(compErrors.events) != 1 || len(appErrors.events) != 1 {
		t.Errorf("component errors = %d, application errors = %d, want 1, 1",
			len(compErrors.events), len(appErrors.events))
	}

	if got := logs.FilterMessage("component error").Len(); got != 2 {
		t.Errorf("errors logged = %d, want 2", got)
	}

	app.RemoveErrorListener(appErrors)
	app.ReportError(nil, errors.New("orphan"))
	if len(appErrors.events) != 1 {
		t.Error("removed error listener still notified")
	}
}

func TestAccessSerializes(t *testing.T) {
	app := NewApplication()
	l := NewLabel("0")
	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				app.Access(func() { l.SetValue(l.Value() + "x") })
			}
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}
	if got := len(l.Value()); got != 401 {
		t.Errorf("len(Value()) = %d, want 401", got)
	}
}
