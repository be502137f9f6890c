package portable_test

import (
	"testing"

	werrors "github.com/km-arc/go-webbeans/framework/errors"
	"github.com/km-arc/go-webbeans/framework/portable"
)

// ── stub extensions ───────────────────────────────────────────────────────────

type countingExtension struct {
	observeCalls int
	shutdowns    int
}

func (x *countingExtension) Observe(d *portable.Dispatcher) {
	x.observeCalls++
	portable.Observe(d, func(*portable.BeforeShutdown) { x.shutdowns++ })
}

// namedExtension reports its own display name.
type namedExtension struct{ countingExtension }

func (x *namedExtension) ExtensionName() string { return "audit" }

func newRegistry() (*portable.ExtensionRegistry, *portable.Dispatcher) {
	d := portable.NewDispatcher(werrors.NewStack())
	return portable.NewExtensionRegistry(d), d
}

// ── ExtensionRegistry ─────────────────────────────────────────────────────────

func TestRegistry_Register_ObserveCalledImmediately(t *testing.T) {
	reg, _ := newRegistry()

	x := &countingExtension{}
	if err := reg.Register(x); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if x.observeCalls != 1 {
		t.Errorf("Observe() should be called once on registration, got %d", x.observeCalls)
	}
}

func TestRegistry_ListenersReceiveEvents(t *testing.T) {
	reg, d := newRegistry()

	x := &countingExtension{}
	_ = reg.Register(x)
	d.Fire(portable.NewBeforeShutdown())

	if x.shutdowns != 1 {
		t.Errorf("expected the extension to observe BeforeShutdown once, got %d", x.shutdowns)
	}
}

func TestRegistry_DuplicateRegister_Ignored(t *testing.T) {
	reg, d := newRegistry()

	x := &countingExtension{}
	_ = reg.Register(x)
	_ = reg.Register(x)
	d.Fire(portable.NewBeforeShutdown())

	if x.observeCalls != 1 {
		t.Errorf("Observe() should be called once, got %d", x.observeCalls)
	}
	if got := len(reg.Extensions()); got != 1 {
		t.Errorf("expected 1 extension, got %d", got)
	}
	if x.shutdowns != 1 {
		t.Errorf("listeners must not be registered twice, got %d deliveries", x.shutdowns)
	}
}

func TestRegistry_Extensions_InRegistrationOrder(t *testing.T) {
	reg, _ := newRegistry()

	a, b := &countingExtension{}, &namedExtension{}
	_ = reg.Register(a)
	_ = reg.Register(b)

	exts := reg.Extensions()
	if len(exts) != 2 || exts[0] != a || exts[1] != b {
		t.Errorf("unexpected extensions %v", exts)
	}
}

func TestRegistry_Sealed_FalseBeforeSeal(t *testing.T) {
	reg, _ := newRegistry()
	if reg.Sealed() {
		t.Error("Sealed() should be false before Seal()")
	}
	reg.Seal()
	reg.Seal()
	if !reg.Sealed() {
		t.Error("Sealed() should be true after Seal()")
	}
}

func TestRegistry_RegisterAfterSeal_Rejected(t *testing.T) {
	reg, _ := newRegistry()
	reg.Seal()

	x := &countingExtension{}
	err := reg.Register(x)
	if !werrors.Is(err, werrors.ErrIllegalState) {
		t.Fatalf("expected an illegal state error, got %v", err)
	}
	if x.observeCalls != 0 {
		t.Error("Observe() must not be called for rejected extensions")
	}
}

// valueExtension is registered by value; its slice field makes it
// incomparable.
type valueExtension struct{ seen []string }

func (x valueExtension) Observe(d *portable.Dispatcher) {}

func TestRegistry_IncomparableExtension_Rejected(t *testing.T) {
	reg, _ := newRegistry()

	err := reg.Register(valueExtension{})
	if !werrors.Is(err, werrors.ErrIllegalState) {
		t.Fatalf("expected an illegal state error, got %v", err)
	}
	if got := len(reg.Extensions()); got != 0 {
		t.Errorf("expected no extension, got %d", got)
	}
}

func TestRegistry_NilExtension_Rejected(t *testing.T) {
	reg, _ := newRegistry()
	if err := reg.Register(nil); !werrors.Is(err, werrors.ErrIllegalState) {
		t.Fatalf("expected an illegal state error, got %v", err)
	}
}

func TestName(t *testing.T) {
	if got := portable.Name(&namedExtension{}); got != "audit" {
		t.Errorf("Name() = %q, want audit", got)
	}
	want := "github.com/km-arc/go-webbeans/framework/portable_test.countingExtension"
	if got := portable.Name(&countingExtension{}); got != want {
		t.Errorf("Name() = %q, want %q", got, want)
	}
}
