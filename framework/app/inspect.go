package app

import (
	"net/http"
	"reflect"
	"sort"

	"github.com/km-arc/go-webbeans/framework/annotated"
	"github.com/km-arc/go-webbeans/framework/bean"
	"github.com/km-arc/go-webbeans/framework/event"
	gohttp "github.com/km-arc/go-webbeans/http"
	"github.com/km-arc/go-webbeans/routing"
)

// BeanView is the JSON form of a registered bean.
type BeanView struct {
	ID              string   `json:"id"`
	Kind            string   `json:"kind"`
	Class           string   `json:"class"`
	Name            string   `json:"name,omitempty"`
	Scope           string   `json:"scope"`
	Types           []string `json:"types"`
	Qualifiers      []string `json:"qualifiers"`
	Stereotypes     []string `json:"stereotypes,omitempty"`
	Enabled         bool     `json:"enabled"`
	Alternative     bool     `json:"alternative"`
	Parent          string   `json:"parent,omitempty"`
	InjectionPoints []string `json:"injection_points,omitempty"`
	Disposer        string   `json:"disposer,omitempty"`
	Decorators      []string `json:"decorators,omitempty"`
	Interceptors    []string `json:"interceptors,omitempty"`
}

// ObserverView is the JSON form of an observer method.
type ObserverView struct {
	Event      string   `json:"event"`
	Qualifiers []string `json:"qualifiers"`
	Bean       string   `json:"bean,omitempty"`
	Method     string   `json:"method,omitempty"`
	Priority   int      `json:"priority"`
	Reception  string   `json:"reception"`
}

// Routes returns the inspection API:
//
//	GET /beans            enabled beans; ?type= filters by bean type, ?disabled=true includes disabled ones
//	GET /beans/{name}     beans with the given EL name
//	GET /observers        observer methods; ?event= filters by observed type
//	GET /report           summary of the deployment, or its failure
//	GET /metrics          Prometheus metrics of the deployment
func (a *Application) Routes() *routing.Router {
	a.routesOnce.Do(func() {
		r := routing.New(a.logger)
		r.Get("/beans", a.listBeans)
		r.Get("/beans/{name}", a.showBeans)
		r.Get("/observers", a.listObservers)
		r.Get("/report", a.showReport)
		r.Handle("/metrics", a.Context().Metrics.Handler())
		a.router = r
	})
	return a.router
}

func (a *Application) listBeans(w http.ResponseWriter, r *http.Request) {
	req, res := gohttp.NewRequest(r), gohttp.NewResponse(w)
	typ := req.Query("type")
	disabled := req.QueryBool("disabled", false)

	views := []BeanView{}
	for _, b := range a.Manager().All() {
		if !b.IsEnabled() && !disabled {
			continue
		}
		if typ != "" && !hasTypeNamed(b, typ) {
			continue
		}
		views = append(views, a.beanView(b))
	}
	res.List(views, len(views))
}

func (a *Application) showBeans(w http.ResponseWriter, r *http.Request) {
	req, res := gohttp.NewRequest(r), gohttp.NewResponse(w)
	name := req.RouteParam("name")

	beans := a.Manager().BeansByName(name)
	if len(beans) == 0 {
		res.NotFound("no bean named " + name)
		return
	}
	views := make([]BeanView, len(beans))
	for i, b := range beans {
		views[i] = a.beanView(b)
	}
	res.List(views, len(views))
}

func (a *Application) listObservers(w http.ResponseWriter, r *http.Request) {
	req, res := gohttp.NewRequest(r), gohttp.NewResponse(w)
	evt := req.Query("event")

	views := []ObserverView{}
	for _, o := range a.Manager().Observers().All() {
		if evt != "" && o.ObservedType.String() != evt && annotated.TypeKey(o.ObservedType) != evt {
			continue
		}
		views = append(views, observerView(o))
	}
	res.List(views, len(views))
}

func (a *Application) showReport(w http.ResponseWriter, r *http.Request) {
	res := gohttp.NewResponse(w)
	if a.failure != nil {
		res.DeploymentError(a.failure)
		return
	}
	rep := a.Report()
	res.Success(map[string]any{
		"deployment":   a.Context().ID.String(),
		"types":        rep.Types,
		"beans":        rep.Beans,
		"decorators":   rep.Decorators,
		"interceptors": rep.Interceptors,
		"observers":    rep.Observers,
		"skipped":      rep.Skipped,
		"failed":       rep.Failed,
		"duration_ms":  rep.Duration.Milliseconds(),
	})
}

// ── Views ─────────────────────────────────────────────────────────────────────

// disposable is implemented by producers with a wired disposal method.
type disposable interface {
	DisposalMethod() *annotated.Method
}

// beanView describes b together with the enabled decorators and
// interceptors that apply to it.
func (a *Application) beanView(b *bean.Bean) BeanView {
	v := BeanView{
		ID:          b.ID().String(),
		Kind:        b.Kind().String(),
		Class:       annotated.TypeKey(b.BeanClass()),
		Name:        b.Name(),
		Scope:       b.Scope(),
		Types:       typeNames(b.Types()),
		Qualifiers:  annotationNames(b.Qualifiers()),
		Stereotypes: b.Stereotypes(),
		Enabled:     b.IsEnabled(),
		Alternative: b.IsAlternative(),
	}
	if p := b.Parent(); p != nil {
		v.Parent = p.Key()
	}
	for _, ip := range b.InjectionPoints() {
		v.InjectionPoints = append(v.InjectionPoints, ip.String())
	}
	if d, ok := b.Producer().(disposable); ok && d.DisposalMethod() != nil {
		v.Disposer = d.DisposalMethod().MemberName()
	}

	ctx := a.Context()
	for _, d := range ctx.Decorators.Resolve(b.Types(), b.Qualifiers()) {
		v.Decorators = append(v.Decorators, annotated.TypeKey(d.Bean.BeanClass()))
	}
	if at := b.Annotated(); at != nil {
		bindings := ctx.Annotations.InterceptorBindings(at.Annotations())
		for _, i := range ctx.Interceptors.Resolve(bindings) {
			v.Interceptors = append(v.Interceptors, annotated.TypeKey(i.Bean.BeanClass()))
		}
	}
	return v
}

func observerView(o *event.ObserverMethod) ObserverView {
	v := ObserverView{
		Event:      o.ObservedType.String(),
		Qualifiers: annotationNames(o.Qualifiers),
		Priority:   o.Priority,
		Reception:  "always",
	}
	if o.Reception == event.IfExists {
		v.Reception = "if-exists"
	}
	if o.Bean != nil {
		v.Bean = o.Bean.Key()
	}
	if o.Method != nil {
		v.Method = o.Method.MemberName()
	}
	return v
}

func hasTypeNamed(b *bean.Bean, name string) bool {
	for _, t := range b.Types() {
		if t.String() == name || annotated.TypeKey(t) == name {
			return true
		}
	}
	return false
}

func typeNames(types []reflect.Type) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}

func annotationNames(as annotated.Annotations) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = a.String()
	}
	sort.Strings(out)
	return out
}
