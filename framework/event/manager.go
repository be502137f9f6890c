package event

import (
	"reflect"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/km-arc/go-webbeans/framework/annotated"
	"github.com/km-arc/go-webbeans/framework/bean"
	"github.com/km-arc/go-webbeans/framework/errors"
)

// NotificationManager is the observer index.
type NotificationManager struct {
	mu        sync.RWMutex
	observers []*ObserverMethod
	resolver  Resolver
	logger    *zap.Logger
}

func NewNotificationManager(r Resolver, logger *zap.Logger) *NotificationManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationManager{resolver: r, logger: logger}
}

// AddObserver indexes o.
func (n *NotificationManager) AddObserver(o *ObserverMethod) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.observers = append(n.observers, o)
}

// All returns every indexed observer in registration order.
func (n *NotificationManager) All() []*ObserverMethod {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]*ObserverMethod(nil), n.observers...)
}

// Observers returns the observers of events of eventType carrying
// qualifiers, ordered by priority then registration.
func (n *NotificationManager) Observers(eventType reflect.Type, qualifiers ...annotated.Annotation) []*ObserverMethod {
	eventQualifiers := EventQualifiers(qualifiers)

	n.mu.RLock()
	var out []*ObserverMethod
	for _, o := range n.observers {
		if matches(o, eventType, eventQualifiers) {
			out = append(out, o)
		}
	}
	n.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

// Fire notifies every matching observer of evt. All observers are notified;
// their failures are joined.
func (n *NotificationManager) Fire(evt any, qualifiers ...annotated.Annotation) error {
	t := reflect.TypeOf(evt)
	meta := &bean.EventMetadata{Type: t, Qualifiers: EventQualifiers(qualifiers)}

	var errs []error
	for _, o := range n.Observers(t, qualifiers...) {
		if err := o.Notify(n.resolver, evt, meta); err != nil {
			n.logger.Warn("observer failed", zap.Stringer("observer", o), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// EventQualifiers returns the qualifiers an event is fired with: the given
// ones or Default, plus Any.
func EventQualifiers(qualifiers []annotated.Annotation) annotated.Annotations {
	out := append(annotated.Annotations(nil), qualifiers...)
	if len(out) == 0 {
		out = append(out, annotated.Of(annotated.Default))
	}
	if !out.Has(annotated.Any) {
		out = append(out, annotated.Of(annotated.Any))
	}
	return out
}

func matches(o *ObserverMethod, eventType reflect.Type, qualifiers annotated.Annotations) bool {
	if eventType == nil || !eventType.AssignableTo(o.ObservedType) {
		return false
	}
	for _, q := range o.Qualifiers {
		if !qualifiers.Contains(q) {
			return false
		}
	}
	return true
}
