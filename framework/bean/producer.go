package bean

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/km-arc/go-webbeans/framework/annotated"
)

// ── Injection points ──────────────────────────────────────────────────────────

// InjectionPoint is one declared dependency of a bean.
type InjectionPoint struct {
	Type       reflect.Type
	Qualifiers annotated.Annotations
	Member     annotated.Member
	Parameter  *annotated.Parameter // nil for field injection points
	Bean       *Bean
	Delegate   bool
	Transient  bool
}

func (ip *InjectionPoint) String() string {
	owner := "<none>"
	if ip.Member != nil && ip.Member.DeclaringType() != nil {
		owner = ip.Member.DeclaringType().Name() + "." + ip.Member.MemberName()
	}
	if ip.Parameter != nil {
		owner = fmt.Sprintf("%s[%d]", owner, ip.Parameter.Position())
	}
	return fmt.Sprintf("%s %v at %s", ip.Type, ip.Qualifiers, owner)
}

// ── Producers ─────────────────────────────────────────────────────────────────

// Producer creates and disposes instances for a bean.
type Producer interface {
	Produce(cc CreationalContext) (any, error)
	Dispose(instance any)
	InjectionPoints() []*InjectionPoint
}

// InjectionTarget is the producer of a managed bean: it also performs member
// injection and lifecycle callbacks.
type InjectionTarget interface {
	Producer
	Inject(instance any, cc CreationalContext) error
	PostConstruct(instance any) error
	PreDestroy(instance any)
}

// DisposalAware producers accept a disposal method wired after discovery.
type DisposalAware interface {
	SetDisposalMethod(m *annotated.Method, ips []*InjectionPoint)
}

// ProducerFunc adapts a plain function into a Producer with no injection points.
type ProducerFunc func(cc CreationalContext) (any, error)

func (f ProducerFunc) Produce(cc CreationalContext) (any, error) { return f(cc) }
func (f ProducerFunc) Dispose(any)                               {}
func (f ProducerFunc) InjectionPoints() []*InjectionPoint        { return nil }

// ── Event metadata ────────────────────────────────────────────────────────────

// EventMetadata describes the event currently being delivered to an observer.
type EventMetadata struct {
	Type           reflect.Type
	Qualifiers     annotated.Annotations
	InjectionPoint *InjectionPoint
}

// ── Creational context ────────────────────────────────────────────────────────

// CreationalContext carries per-creation state: dependent instances to
// destroy with their parent.
type CreationalContext interface {
	Bean() *Bean
	AddDependent(b *Bean, instance any)
	Release()
}

type dependent struct {
	bean     *Bean
	instance any
}

// DefaultCreationalContext is the container's CreationalContext. It may carry
// the metadata of the event being delivered.
type DefaultCreationalContext struct {
	mu            sync.Mutex
	bean          *Bean
	parent        *DefaultCreationalContext
	dependents    []dependent
	eventMetadata *EventMetadata
}

// NewCreationalContext creates a context for creating instances of b.
func NewCreationalContext(b *Bean) *DefaultCreationalContext {
	return &DefaultCreationalContext{bean: b}
}

func (cc *DefaultCreationalContext) Bean() *Bean { return cc.bean }

// Child creates a context for a dependency of cc's bean. Event metadata is
// inherited.
func (cc *DefaultCreationalContext) Child(b *Bean) *DefaultCreationalContext {
	return &DefaultCreationalContext{bean: b, parent: cc, eventMetadata: cc.eventMetadata}
}

// Creating reports whether b is being created by cc or one of its parents.
func (cc *DefaultCreationalContext) Creating(b *Bean) bool {
	for c := cc; c != nil; c = c.parent {
		if c.bean != nil && c.bean == b {
			return true
		}
	}
	return false
}

// WithEventMetadata attaches metadata for an active event delivery.
func (cc *DefaultCreationalContext) WithEventMetadata(m *EventMetadata) *DefaultCreationalContext {
	cc.eventMetadata = m
	return cc
}

// EventMetadata returns the carried metadata, if any.
func (cc *DefaultCreationalContext) EventMetadata() (*EventMetadata, bool) {
	return cc.eventMetadata, cc.eventMetadata != nil
}

func (cc *DefaultCreationalContext) AddDependent(b *Bean, instance any) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.dependents = append(cc.dependents, dependent{bean: b, instance: instance})
}

// Release disposes dependent instances in reverse creation order.
func (cc *DefaultCreationalContext) Release() {
	cc.mu.Lock()
	deps := cc.dependents
	cc.dependents = nil
	cc.mu.Unlock()
	for i := len(deps) - 1; i >= 0; i-- {
		d := deps[i]
		if p := d.bean.Producer(); p != nil {
			p.Dispose(d.instance)
		}
	}
}
