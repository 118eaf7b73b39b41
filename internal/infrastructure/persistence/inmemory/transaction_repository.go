package inmemory

import (
	"context"
	"maps"
	"sync"

	"github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/event"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/transaction"
)

type TransactionRepository struct {
	mu           sync.RWMutex
	transactions map[string]transaction.Transaction
}

func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{
		transactions: make(map[string]transaction.Transaction),
	}
}

func (r *TransactionRepository) Save(_ context.Context, tx *transaction.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *tx
	cp.Metadata = maps.Clone(tx.Metadata)
	r.transactions[tx.ID] = cp
	return nil
}

func (r *TransactionRepository) FindByID(_ context.Context, id string) (*transaction.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tx, ok := r.transactions[id]
	if !ok {
		return nil, transaction.ErrTransactionNotFound
	}
	tx.Metadata = maps.Clone(tx.Metadata)
	return &tx, nil
}

func (r *TransactionRepository) UpdateStatus(_ context.Context, id string, status transaction.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, ok := r.transactions[id]
	if !ok {
		return transaction.ErrTransactionNotFound
	}
	tx.Status = status
	r.transactions[id] = tx
	return nil
}

type EventStore struct {
	mu     sync.RWMutex
	events map[string][]event.Event
}

func NewEventStore() *EventStore {
	return &EventStore{
		events: make(map[string][]event.Event),
	}
}

func (s *EventStore) Append(_ context.Context, evt event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[evt.TransactionID] = append(s.events[evt.TransactionID], evt)
	return nil
}

func (s *EventStore) ListByTransaction(_ context.Context, transactionID string) ([]event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]event.Event(nil), s.events[transactionID]...), nil
}
