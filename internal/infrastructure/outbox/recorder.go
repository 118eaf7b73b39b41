package outbox

import (
	"context"

	"github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/event"
)

type Recorder struct {
	Repo Repository
}

// Record stores the full event envelope; the outbox id is the event id so a
// replayed Record cannot queue the same event twice.
func (r *Recorder) Record(ctx context.Context, evt event.Event) error {
	payload, err := event.Marshal(evt)
	if err != nil {
		return err
	}

	return r.Repo.Save(ctx, OutboxEvent{
		ID:        evt.ID,
		Type:      evt.Type(),
		Payload:   payload,
		CreatedAt: evt.CreatedAt,
	})
}
