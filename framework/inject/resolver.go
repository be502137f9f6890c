// Package inject turns constructors, fields and methods into ordered
// injection points.
package inject

import (
	"github.com/km-arc/go-webbeans/framework/annotated"
	"github.com/km-arc/go-webbeans/framework/bean"
	"github.com/km-arc/go-webbeans/framework/metadata"
)

// Resolver produces the injection points of a bean's members, ordered by
// parameter position.
type Resolver interface {
	ConstructorInjectionPoints(owner *bean.Bean, c *annotated.Constructor) []*bean.InjectionPoint
	FieldInjectionPoint(owner *bean.Bean, f *annotated.Field) *bean.InjectionPoint
	MethodInjectionPoints(owner *bean.Bean, m *annotated.Method) []*bean.InjectionPoint
}

// NewResolver returns the default Resolver. Qualifiers are classified with
// annotations; an injection point without qualifiers gets Default.
func NewResolver(annotations *metadata.AnnotationManager) Resolver {
	return &resolver{annotations: annotations}
}

type resolver struct {
	annotations *metadata.AnnotationManager
}

func (r *resolver) ConstructorInjectionPoints(owner *bean.Bean, c *annotated.Constructor) []*bean.InjectionPoint {
	return r.parameters(owner, c)
}

func (r *resolver) FieldInjectionPoint(owner *bean.Bean, f *annotated.Field) *bean.InjectionPoint {
	return &bean.InjectionPoint{
		Type:       f.BaseType(),
		Qualifiers: r.qualifiers(f, f.MemberName()),
		Member:     f,
		Bean:       owner,
		Delegate:   f.IsAnnotationPresent(annotated.Delegate),
		Transient:  f.IsAnnotationPresent(annotated.Transient),
	}
}

// MethodInjectionPoints skips the observed event and disposed instance
// parameters; those are matched, not injected.
func (r *resolver) MethodInjectionPoints(owner *bean.Bean, m *annotated.Method) []*bean.InjectionPoint {
	return r.parameters(owner, m)
}

func (r *resolver) parameters(owner *bean.Bean, c annotated.Callable) []*bean.InjectionPoint {
	var out []*bean.InjectionPoint
	for _, p := range c.Parameters() {
		if p.IsAnnotationPresent(annotated.Observes) || p.IsAnnotationPresent(annotated.Disposes) {
			continue
		}
		out = append(out, &bean.InjectionPoint{
			Type:       p.BaseType(),
			Qualifiers: r.qualifiers(p, ""),
			Member:     c,
			Parameter:  p,
			Bean:       owner,
			Delegate:   p.IsAnnotationPresent(annotated.Delegate),
			Transient:  p.IsAnnotationPresent(annotated.Transient),
		})
	}
	return out
}

func (r *resolver) qualifiers(a annotated.Annotated, defaultName string) annotated.Annotations {
	var qs annotated.Annotations
	for _, q := range r.annotations.Qualifiers(a.Annotations()) {
		if q.Name == annotated.Named && q.Value("value") == "" && defaultName != "" {
			q = annotated.Name(metadata.LowerFirst(defaultName))
		}
		qs = append(qs, q)
	}
	if len(qs) == 0 {
		qs = annotated.Annotations{annotated.Of(annotated.Default)}
	}
	return qs
}
