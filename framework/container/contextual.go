package container

import (
	"sync"

	"github.com/google/uuid"

	"github.com/km-arc/go-webbeans/framework/annotated"
	"github.com/km-arc/go-webbeans/framework/bean"
	"github.com/km-arc/go-webbeans/framework/errors"
)

// Context stores the contextual instances of one scope.
//
// Extensions supply contexts for scopes the container does not implement:
//
//	portable.Observe(d, func(e *portable.AfterBeanDiscovery) {
//	    e.AddContext(container.NewCachedContext(annotated.RequestScoped))
//	})
type Context interface {
	Scope() string
	// Get returns the instance of b, creating it with cc if needed.
	Get(b *bean.Bean, cc bean.CreationalContext) (any, error)
	// GetExisting returns the instance of b without creating one.
	GetExisting(b *bean.Bean) (any, bool)
	// Destroy disposes every instance of the context.
	Destroy()
}

// Create produces a new instance of b. Injection targets also get member
// injection and their post construct callback.
func Create(b *bean.Bean, cc bean.CreationalContext) (any, error) {
	p := b.Producer()
	if p == nil {
		return nil, errors.IllegalState("%s has no producer", b)
	}
	instance, err := p.Produce(cc)
	if err != nil {
		return nil, err
	}
	if it, ok := p.(bean.InjectionTarget); ok {
		if err := it.Inject(instance, cc); err != nil {
			return nil, err
		}
		if err := it.PostConstruct(instance); err != nil {
			return nil, err
		}
	}
	return instance, nil
}

// Destroy disposes instance and releases its dependents.
func Destroy(b *bean.Bean, instance any, cc bean.CreationalContext) {
	if p := b.Producer(); p != nil {
		p.Dispose(instance)
	}
	if cc != nil {
		cc.Release()
	}
}

// ── Dependent ─────────────────────────────────────────────────────────────────

// dependentContext creates a new instance on every lookup. Instances belong
// to the creational context of the bean they are injected into.
type dependentContext struct{}

func (dependentContext) Scope() string { return annotated.Dependent }

func (dependentContext) Get(b *bean.Bean, cc bean.CreationalContext) (any, error) {
	return Create(b, cc)
}

func (dependentContext) GetExisting(*bean.Bean) (any, bool) { return nil, false }

func (dependentContext) Destroy() {}

// ── Cached ────────────────────────────────────────────────────────────────────

type entry struct {
	mu       sync.Mutex
	created  bool
	bean     *bean.Bean
	instance any
	cc       bean.CreationalContext
}

// cachedContext keeps one instance per bean until Destroy.
type cachedContext struct {
	scope   string
	mu      sync.Mutex
	entries map[uuid.UUID]*entry
	order   []*entry
}

// NewCachedContext returns a context holding one instance per bean for its
// whole lifetime. Instances are destroyed in reverse creation order.
func NewCachedContext(scope string) Context {
	return &cachedContext{scope: scope, entries: make(map[uuid.UUID]*entry)}
}

func (c *cachedContext) Scope() string { return c.scope }

func (c *cachedContext) lookup(b *bean.Bean) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[b.ID()]
	if !ok {
		e = &entry{bean: b}
		c.entries[b.ID()] = e
	}
	return e
}

// Get creates the instance at most once. Creation holds only the bean's own
// entry lock, so instances of other beans can be created meanwhile.
func (c *cachedContext) Get(b *bean.Bean, cc bean.CreationalContext) (any, error) {
	e := c.lookup(b)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.created {
		return e.instance, nil
	}
	instance, err := Create(b, cc)
	if err != nil {
		return nil, err
	}
	e.instance, e.cc, e.created = instance, cc, true

	c.mu.Lock()
	c.order = append(c.order, e)
	c.mu.Unlock()
	return instance, nil
}

func (c *cachedContext) GetExisting(b *bean.Bean) (any, bool) {
	c.mu.Lock()
	e, ok := c.entries[b.ID()]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.instance, e.created
}

func (c *cachedContext) Destroy() {
	c.mu.Lock()
	order := c.order
	c.order = nil
	c.entries = make(map[uuid.UUID]*entry)
	c.mu.Unlock()
	for i := len(order) - 1; i >= 0; i-- {
		e := order[i]
		Destroy(e.bean, e.instance, e.cc)
	}
}
