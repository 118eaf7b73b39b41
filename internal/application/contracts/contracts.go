package contracts

import (
	"context"

	"github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/event"
)

// EventRecorder durably queues an event for asynchronous publication.
type EventRecorder interface {
	Record(ctx context.Context, evt event.Event) error
}

// EventPublisher delivers an event to subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, evt event.Event) error
}
