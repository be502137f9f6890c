package portable

import (
	"reflect"

	"github.com/km-arc/go-webbeans/framework/annotated"
	"github.com/km-arc/go-webbeans/framework/errors"
)

// ── Extension interface ───────────────────────────────────────────────────────

// Extension observes container lifecycle events. Observe is called once,
// when the extension is registered, and must only register listeners.
//
//	type auditExtension struct{ seen []string }
//
//	func (x *auditExtension) Observe(d *portable.Dispatcher) {
//	    portable.Observe(d, func(e *portable.ProcessManagedBean) {
//	        x.seen = append(x.seen, e.Bean().Key())
//	    })
//	    portable.Observe(d, func(e *portable.AfterBeanDiscovery) {
//	        e.AddBean(auditBean(x))
//	    })
//	}
type Extension interface {
	Observe(d *Dispatcher)
}

// Named extensions report a display name used in logs and the inspection
// API. Others are named after their type.
type Named interface {
	ExtensionName() string
}

// Name returns the display name of ext.
func Name(ext Extension) string {
	if n, ok := ext.(Named); ok {
		return n.ExtensionName()
	}
	return annotated.TypeKey(reflect.TypeOf(ext))
}

// ── ExtensionRegistry ─────────────────────────────────────────────────────────

// ExtensionRegistry keeps registered extensions in registration order and
// attaches them to a dispatcher. It is sealed when discovery starts; later
// registrations are rejected.
type ExtensionRegistry struct {
	dispatcher *Dispatcher
	extensions []Extension
	registered map[Extension]bool
	sealed     bool
}

// NewExtensionRegistry creates a registry bound to d.
func NewExtensionRegistry(d *Dispatcher) *ExtensionRegistry {
	return &ExtensionRegistry{
		dispatcher: d,
		registered: make(map[Extension]bool),
	}
}

// Register adds ext and lets it observe the dispatcher. Registering the same
// instance twice is a no-op. ext must be comparable, normally a pointer.
func (r *ExtensionRegistry) Register(ext Extension) error {
	if ext == nil {
		return errors.IllegalState("nil extension")
	}
	if !reflect.TypeOf(ext).Comparable() {
		return errors.IllegalState("extension %s is not comparable; register a pointer", Name(ext))
	}
	if r.registered[ext] {
		return nil
	}
	if r.sealed {
		return errors.IllegalState("extension %s registered after discovery started", Name(ext))
	}
	r.registered[ext] = true
	ext.Observe(r.dispatcher)
	r.extensions = append(r.extensions, ext)
	return nil
}

// Seal rejects further registrations. Idempotent.
func (r *ExtensionRegistry) Seal() { r.sealed = true }

// Sealed returns true once Seal has been called.
func (r *ExtensionRegistry) Sealed() bool { return r.sealed }

// Extensions returns the registered extensions in registration order.
func (r *ExtensionRegistry) Extensions() []Extension { return r.extensions }
