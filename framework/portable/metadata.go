package portable

import (
	"github.com/km-arc/go-webbeans/framework/bean"
	"github.com/km-arc/go-webbeans/framework/errors"
)

// EventMetadataProducer supplies the metadata of the event currently being
// delivered. It only works inside an observer notification, where the
// container's creational context carries that metadata.
type EventMetadataProducer struct{}

var _ bean.Producer = EventMetadataProducer{}

func (EventMetadataProducer) Produce(cc bean.CreationalContext) (any, error) {
	dcc, ok := cc.(*bean.DefaultCreationalContext)
	if !ok {
		return nil, errors.IllegalState("EventMetadata requires the container creational context, got %T", cc)
	}
	meta, ok := dcc.EventMetadata()
	if !ok {
		return nil, errors.IllegalState("EventMetadata requested outside of an event delivery")
	}
	return meta, nil
}

func (EventMetadataProducer) Dispose(any) {}

func (EventMetadataProducer) InjectionPoints() []*bean.InjectionPoint { return nil }
