package transaction

import (
	"context"
	"errors"

	"github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/event"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidTransition   = errors.New("invalid transaction status transition")
)

type Repository interface {
	Save(ctx context.Context, tx *Transaction) error
	FindByID(ctx context.Context, id string) (*Transaction, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
}

// EventStore is the append-only log of a transaction's events.
type EventStore interface {
	Append(ctx context.Context, evt event.Event) error
	ListByTransaction(ctx context.Context, transactionID string) ([]event.Event, error)
}
