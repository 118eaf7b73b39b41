package transaction

import (
	"context"

	"github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/event"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infra/logging"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infra/metrics"
)

// EventHandler is the in-process subscriber used when no broker is
// configured: it counts and logs every published transaction event.
type EventHandler struct {
	Logger  logging.Logger
	Metrics *metrics.Counters
}

func (h *EventHandler) Handle(_ context.Context, evt event.Event) error {
	h.Metrics.IncEventsPublished()

	fields := map[string]any{
		"event-id":       evt.ID,
		"transaction-id": evt.TransactionID,
		"event-type":     string(evt.Type()),
	}

	switch d := evt.Data.(type) {
	case event.Created:
		fields["amount"] = d.Amount
		fields["currency"] = d.Currency
	case event.Processing:
		fields["checkout-id"] = d.CheckoutID
	case event.Attempt:
		fields["checkout-id"] = d.CheckoutID
		fields["provider"] = d.Provider
	case event.Completed:
		fields["checkout-id"] = d.CheckoutID
		fields["payment-id"] = d.PaymentID
	case event.Failed:
		fields["checkout-id"] = d.CheckoutID
		fields["reason"] = d.Reason
	case event.Cancelled:
		fields["reason"] = d.Reason
	case event.Refunded:
		fields["amount"] = d.Amount
		fields["reason"] = d.Reason
	}

	h.Logger.Info("transaction event published", fields)
	return nil
}
