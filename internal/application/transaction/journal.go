package transaction

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rcarvalho-pb/checkout_gateway-go/internal/application/contracts"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/event"
	domainTransaction "github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/transaction"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infra/clock"
)

// Journal appends to a transaction's event log, queues the event for
// publication and moves the transaction status along with it.
type Journal struct {
	Transactions domainTransaction.Repository
	Events       domainTransaction.EventStore
	Recorder     contracts.EventRecorder
	Clock        clock.Clock
}

func (j *Journal) Append(ctx context.Context, transactionID string, data event.Data) (event.Event, error) {
	evt := event.Event{
		ID:            uuid.NewString(),
		TransactionID: transactionID,
		Data:          data,
		CreatedAt:     j.Clock.Now(),
	}

	if err := j.Events.Append(ctx, evt); err != nil {
		return event.Event{}, fmt.Errorf("append %s: %w", evt.Type(), err)
	}
	if err := j.Recorder.Record(ctx, evt); err != nil {
		return event.Event{}, fmt.Errorf("record %s: %w", evt.Type(), err)
	}
	return evt, nil
}

// Advance moves the transaction to next and appends data to its log.
func (j *Journal) Advance(ctx context.Context, transactionID string, next domainTransaction.Status, data event.Data) error {
	tx, err := j.Transactions.FindByID(ctx, transactionID)
	if err != nil {
		return err
	}
	if !tx.Status.CanMoveTo(next) {
		return fmt.Errorf("%w: %s -> %s", domainTransaction.ErrInvalidTransition, tx.Status, next)
	}

	if err := j.Transactions.UpdateStatus(ctx, transactionID, next); err != nil {
		return err
	}

	_, err = j.Append(ctx, transactionID, data)
	return err
}
