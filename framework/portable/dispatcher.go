package portable

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/km-arc/go-webbeans/framework/errors"
)

// ── Phase token ───────────────────────────────────────────────────────────────

// phase is embedded in every lifecycle event. It is active only while the
// dispatcher delivers the event; afterwards every mutation panics.
type phase struct {
	name   string
	active atomic.Bool
	fired  atomic.Bool
	errs   *errors.Stack
	// stack length when delivery started
	base int
}

func (p *phase) token() *phase { return p }

// Phase returns the event name, used as the definition error phase.
func (p *phase) Phase() string { return p.name }

// Active reports whether the event is being delivered.
func (p *phase) Active() bool { return p.active.Load() }

func (p *phase) guard(op string) {
	if !p.active.Load() {
		panic(errors.InactiveEvent(p.name, op))
	}
}

// failed reports whether a definition error was recorded during this
// delivery.
func (p *phase) failed() bool { return p.errs.Len() > p.base }

// AddDefinitionError records err on the deployment's error stack. It never
// fails while the event is active; failures are reported when the stack is
// inspected.
func (p *phase) AddDefinitionError(err error) {
	p.guard("AddDefinitionError")
	p.errs.Push(p.name, err)
}

// Event is a lifecycle event. All events are defined in this package.
type Event interface {
	Phase() string
	Active() bool
	AddDefinitionError(err error)
	token() *phase
}

// ── Dispatcher ────────────────────────────────────────────────────────────────

// Dispatcher delivers lifecycle events to extension listeners, synchronously
// and in registration order.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners map[reflect.Type][]func(Event)
	errs      *errors.Stack
	logger    *zap.Logger
	onFire    func(event string)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// OnFire registers a hook called once per delivered event.
func OnFire(fn func(event string)) Option {
	return func(d *Dispatcher) { d.onFire = fn }
}

// NewDispatcher creates a dispatcher pushing definition errors onto errs.
func NewDispatcher(errs *errors.Stack, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		listeners: make(map[reflect.Type][]func(Event)),
		errs:      errs,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Observe registers fn for events of type E.
//
//	portable.Observe(d, func(e *portable.ProcessProducer) {
//	    e.SetProducer(traced(e.Producer()))
//	})
func Observe[E Event](d *Dispatcher, fn func(E)) {
	key := reflect.TypeOf((*E)(nil)).Elem()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[key] = append(d.listeners[key], func(e Event) { fn(e.(E)) })
}

// Listeners returns the number of listeners for events of e's type.
func (d *Dispatcher) Listeners(e Event) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners[reflect.TypeOf(e)])
}

// Fire delivers e to its listeners. The event is active only for the
// duration of the call.
func (d *Dispatcher) Fire(e Event) {
	d.mu.RLock()
	ls := slices.Clone(d.listeners[reflect.TypeOf(e)])
	d.mu.RUnlock()

	d.withPhase(e, func() {
		for _, l := range ls {
			d.invoke(e, l)
		}
	})
	if d.onFire != nil {
		d.onFire(e.Phase())
	}
	d.logger.Debug("lifecycle event fired",
		zap.String("event", e.Phase()),
		zap.Int("listeners", len(ls)),
	)
}

// withPhase activates the event token for fn and invalidates it afterwards,
// even when fn panics. An event is delivered at most once.
func (d *Dispatcher) withPhase(e Event, fn func()) {
	p := e.token()
	if !p.fired.CompareAndSwap(false, true) {
		panic(errors.IllegalState("event %s was already fired", p.name))
	}
	p.errs = d.errs
	p.base = d.errs.Len()
	p.active.Store(true)
	defer p.active.Store(false)
	fn()
}

// invoke runs a listener, turning a panic into a definition error.
func (d *Dispatcher) invoke(e Event, l func(Event)) {
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%v", r)
			}
			d.logger.Warn("extension listener panicked",
				zap.String("event", e.Phase()),
				zap.Error(err),
			)
			d.errs.Push(e.Phase(), fmt.Errorf("listener panicked: %w", err))
		}
	}()
	l(e)
}
