// Package app is the demo bean archive deployed by the webbeans CLI.
package app

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/go-webbeans/framework/annotated"
	"github.com/km-arc/go-webbeans/framework/bean"
	"github.com/km-arc/go-webbeans/framework/config"
	"github.com/km-arc/go-webbeans/framework/event"
	"github.com/km-arc/go-webbeans/framework/portable"
)

// ── Types ─────────────────────────────────────────────────────────────────────

type Clock interface {
	Now() time.Time
}

type Greeting interface {
	Greet(name string) string
}

// OrderPlaced is fired by the CLI once the archive is deployed.
type OrderPlaced struct {
	ID       string
	Customer string
}

// SystemClock is the application wide Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Greeter greets customers and remembers who placed orders.
type Greeter struct {
	Clock  Clock             `inject:""`
	App    *config.AppConfig `inject:""`
	Log    *zap.Logger       `inject:""`
	Prefix string            `produces:"" named:"salutation"`

	customers []string
	released  int
}

func (g *Greeter) Greet(name string) string {
	prefix := g.Prefix
	if prefix == "" {
		prefix = "Hello"
	}
	return prefix + ", " + name + " from " + g.App.Name
}

// GetAudience produces the customers seen so far.
func (g *Greeter) GetAudience() []string {
	return append([]string(nil), g.customers...)
}

// Release disposes an audience produced by GetAudience.
func (g *Greeter) Release(audience []string) { g.released += len(audience) }

func (g *Greeter) OnOrderPlaced(e OrderPlaced, meta *bean.EventMetadata) {
	g.customers = append(g.customers, e.Customer)
	g.Log.Info("order placed",
		zap.String("order", e.ID),
		zap.String("customer", e.Customer),
		zap.Stringer("event", meta.Type),
	)
}

// Released returns how many audience entries were disposed.
func (g *Greeter) Released() int { return g.released }

// Shouting decorates every Greeting. It is abstract: Greet is delegated.
type Shouting struct {
	Inner Greeting `delegate:""`
}

func (s *Shouting) Shout(name string) string { return strings.ToUpper(s.Inner.Greet(name)) }

// Timed intercepts beans bound with Timed.
type Timed struct {
	Log *zap.Logger `inject:""`
}

func (t *Timed) Measure() error { return nil }

// Archive returns the demo types in deployment order.
func Archive() []*annotated.Type {
	return []*annotated.Type{
		annotated.Describe[SystemClock](annotated.Of(annotated.ApplicationScoped)).
			Implements((*Clock)(nil)).
			MustBuild(),
		annotated.Describe[Greeter](annotated.Of(annotated.ApplicationScoped), annotated.Name("greeter"), annotated.Of("Timed")).
			Implements((*Greeting)(nil)).
			Method("GetAudience", annotated.Of(annotated.Produces), annotated.Of(annotated.Named)).
			Disposer("Release").
			Observer("OnOrderPlaced").
			MustBuild(),
		annotated.Describe[Shouting](annotated.Of(annotated.Decorator)).
			Abstract().
			Implements((*Greeting)(nil)).
			MustBuild(),
		annotated.Describe[Timed](annotated.Of(annotated.Interceptor), annotated.Of("Timed")).
			Method("Measure", annotated.Of(annotated.AroundInvoke)).
			MustBuild(),
	}
}

// ── Extension ─────────────────────────────────────────────────────────────────

// Audit declares the Timed binding, records every managed bean and counts
// placed orders.
type Audit struct {
	Beans  []string
	Orders int
}

func (a *Audit) ExtensionName() string { return "audit" }

func (a *Audit) Observe(d *portable.Dispatcher) {
	portable.Observe(d, func(e *portable.BeforeBeanDiscovery) {
		e.AddInterceptorBinding("Timed")
	})
	portable.Observe(d, func(e *portable.ProcessManagedBean) {
		a.Beans = append(a.Beans, e.AnnotatedBeanClass().SimpleName())
	})
	portable.Observe(d, func(e *portable.AfterBeanDiscovery) {
		e.AddObserverMethod(&event.ObserverMethod{
			ObservedType: annotated.TypeOf[OrderPlaced](),
			Qualifiers:   annotated.Annotations{annotated.Of(annotated.Any)},
			Priority:     -1,
			Func: func(any, *bean.EventMetadata) error {
				a.Orders++
				return nil
			},
		})
	})
}

// Extensions returns the extensions of the demo archive.
func Extensions() []portable.Extension {
	return []portable.Extension{&Audit{}}
}
