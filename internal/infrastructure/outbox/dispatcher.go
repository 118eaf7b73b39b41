package outbox

import (
	"context"
	"time"

	"github.com/rcarvalho-pb/checkout_gateway-go/internal/application/contracts"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/event"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infra/logging"
)

type Dispatcher struct {
	Repo         Repository
	EventBus     contracts.EventPublisher
	Logger       logging.Logger
	PollInterval time.Duration
	BatchSize    int
}

func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.DispatchOnce(ctx)
		}
	}
}

// DispatchOnce publishes one batch and returns how many events were marked
// published. Failed events stay queued for the next run.
func (d *Dispatcher) DispatchOnce(ctx context.Context) int {
	events, err := d.Repo.FindUnpublished(ctx, d.BatchSize)
	if err != nil {
		d.Logger.Error("outbox read failed", map[string]any{"error": err})
		return 0
	}

	published := 0
	for _, evt := range events {
		domainEvent, err := event.Unmarshal(evt.Payload)
		if err != nil {
			d.Logger.Error("outbox event undecodable", map[string]any{
				"outbox-id": evt.ID,
				"error":     err,
			})
			continue
		}

		if err := d.EventBus.Publish(ctx, domainEvent); err != nil {
			d.Logger.Error("outbox publish failed", map[string]any{
				"outbox-id": evt.ID,
				"error":     err,
			})
			continue
		}

		if err := d.Repo.MarkPublished(ctx, evt.ID); err != nil {
			d.Logger.Error("outbox mark failed", map[string]any{
				"outbox-id": evt.ID,
				"error":     err,
			})
			continue
		}
		published++
	}

	return published
}
