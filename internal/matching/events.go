package matching

import (
	"context"

	"github.com/rotafrete/freight-marketplace/pkg/eventbus"
)

// BusPublisher adapts the NATS event bus to the EventPublisher interface.
type BusPublisher struct {
	bus    *eventbus.Bus
	source string
}

// NewBusPublisher creates a publisher for matching lifecycle events.
func NewBusPublisher(bus *eventbus.Bus, source string) *BusPublisher {
	return &BusPublisher{bus: bus, source: source}
}

// PublishRunCompleted emits a matching.run.completed event. Notification
// delivery on new matches is a downstream consumer's job.
func (p *BusPublisher) PublishRunCompleted(ctx context.Context, event MatchingCompletedEvent) error {
	busEvent, err := eventbus.NewEvent(eventbus.SubjectMatchingRunCompleted, p.source, event)
	if err != nil {
		return err
	}
	return p.bus.Publish(ctx, eventbus.SubjectMatchingRunCompleted, busEvent)
}

// PublishRunFailed emits a matching.run.failed event so monitors can tell an
// aborted run apart from one that matched nothing.
func (p *BusPublisher) PublishRunFailed(ctx context.Context, event MatchingFailedEvent) error {
	busEvent, err := eventbus.NewEvent(eventbus.SubjectMatchingRunFailed, p.source, event)
	if err != nil {
		return err
	}
	return p.bus.Publish(ctx, eventbus.SubjectMatchingRunFailed, busEvent)
}
