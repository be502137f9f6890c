// Package providers holds the builtin extensions that expose framework
// services as beans. The application kernel registers them before any
// user extension.
package providers

import (
	"reflect"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/km-arc/go-webbeans/framework/annotated"
	"github.com/km-arc/go-webbeans/framework/bean"
	"github.com/km-arc/go-webbeans/framework/config"
	"github.com/km-arc/go-webbeans/framework/container"
	"github.com/km-arc/go-webbeans/framework/portable"
)

// singleton returns a Builtin singleton bean named name, always producing v.
func singleton(name string, v any) *bean.Bean {
	b := container.NewSyntheticBean(bean.Builtin, reflect.TypeOf(v), annotated.Singleton,
		bean.ProducerFunc(func(bean.CreationalContext) (any, error) { return v, nil }))
	b.SetName(name)
	return b
}

// ── ConfigExtension ───────────────────────────────────────────────────────────

// ConfigExtension exposes the loaded configuration.
//
// Beans:
//   - "config" → *config.Config
//   - "app"    → *config.AppConfig
//
//	type Greeter struct {
//	    Config *config.Config `inject:""`
//	}
type ConfigExtension struct {
	Config *config.Config
}

func (p *ConfigExtension) ExtensionName() string { return "config" }

func (p *ConfigExtension) Observe(d *portable.Dispatcher) {
	portable.Observe(d, func(e *portable.AfterBeanDiscovery) {
		e.AddBean(singleton("config", p.Config))
		e.AddBean(singleton("app", &p.Config.App))
	})
}

// ── LoggerExtension ───────────────────────────────────────────────────────────

// LoggerExtension exposes the deployment logger.
//
// Beans:
//   - "logger" → *zap.Logger
//   - "sugar"  → *zap.SugaredLogger
type LoggerExtension struct {
	Logger *zap.Logger
}

func (p *LoggerExtension) ExtensionName() string { return "logger" }

func (p *LoggerExtension) Observe(d *portable.Dispatcher) {
	portable.Observe(d, func(e *portable.AfterBeanDiscovery) {
		e.AddBean(singleton("logger", p.Logger))
		e.AddBean(singleton("sugar", p.Logger.Sugar()))
	})
}

// ── MetricsExtension ──────────────────────────────────────────────────────────

// MetricsExtension exposes the deployment metrics registry so beans can
// register their own collectors next to the container's.
//
// Beans:
//   - "metrics" → *prometheus.Registry
type MetricsExtension struct {
	Registry *prometheus.Registry
}

func (p *MetricsExtension) ExtensionName() string { return "metrics" }

func (p *MetricsExtension) Observe(d *portable.Dispatcher) {
	portable.Observe(d, func(e *portable.AfterBeanDiscovery) {
		e.AddBean(singleton("metrics", p.Registry))
	})
}
