// Package container provides the bean registry (BeanManager), the scope
// contexts and the default producers of managed and producer beans.
//
// # Overview
//
// Beans are added by the deployment pipeline once their definition is
// complete. AddBean seals the bean; its metadata is read-only from then on and
// may be read from any goroutine. Per-creation state lives in the
// bean.CreationalContext passed to every creation call.
//
// # Lookup
//
//	// Typesafe resolution, Default qualifier implied
//	b, err := m.Lookup(reflect.TypeOf(&Greeter{}))
//
//	// Generic (preferred)
//	greeter, err := container.Resolve[*Greeter](m)
//	polite, err := container.Resolve[Greeting](m, annotated.Name("polite"))
//
//	// EL name
//	beans := m.BeansByName("greeter")
//
// # Scopes
//
// Dependent beans get a new instance per injection, destroyed with the
// instance they were injected into. Singleton and ApplicationScoped beans are
// cached until Shutdown. Other scopes need a Context registered through
// AddContext (usually from an AfterBeanDiscovery listener); lookups in a scope
// without context fail with CONTEXT_NOT_ACTIVE.
//
// # Lifecycle callbacks
//
// Instances implementing PostConstructor are initialized after injection;
// instances implementing PreDestroyer are cleaned up when their context is
// destroyed.
//
//	func (g *Greeter) PostConstruct() error { return g.load() }
//	func (g *Greeter) PreDestroy()          { g.flush() }
package container
