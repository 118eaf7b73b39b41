package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/event"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/transaction"
)

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Save(ctx context.Context, tx *transaction.Transaction) error {
	var metadata sql.NullString
	if len(tx.Metadata) > 0 {
		b, err := json.Marshal(tx.Metadata)
		if err != nil {
			return err
		}
		metadata = sql.NullString{String: string(b), Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions
		 (id, amount, currency, reference, status, method_type, metadata, store_id, session_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID,
		tx.Amount,
		tx.Currency,
		tx.Reference,
		string(tx.Status),
		tx.MethodType,
		metadata,
		tx.StoreID,
		tx.SessionID,
		formatTime(tx.CreatedAt),
		formatTime(tx.UpdatedAt),
	)
	return err
}

func (r *TransactionRepository) FindByID(ctx context.Context, id string) (*transaction.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, amount, currency, reference, status, method_type, metadata, store_id, session_id, created_at, updated_at
		 FROM transactions
		 WHERE id = ?`,
		id,
	)

	var (
		tx                   transaction.Transaction
		status               string
		metadata             sql.NullString
		createdAt, updatedAt string
	)

	if err := row.Scan(
		&tx.ID,
		&tx.Amount,
		&tx.Currency,
		&tx.Reference,
		&status,
		&tx.MethodType,
		&metadata,
		&tx.StoreID,
		&tx.SessionID,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound
		}
		return nil, err
	}

	tx.Status = transaction.Status(status)
	if metadata.Valid {
		if err := json.Unmarshal([]byte(metadata.String), &tx.Metadata); err != nil {
			return nil, err
		}
	}

	var err error
	if tx.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if tx.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &tx, nil
}

func (r *TransactionRepository) UpdateStatus(ctx context.Context, id string, status transaction.Status) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		 SET status = ?, updated_at = ?
		 WHERE id = ?`,
		string(status),
		formatTime(time.Now()),
		id,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return transaction.ErrTransactionNotFound
	}

	return nil
}

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) Append(ctx context.Context, evt event.Event) error {
	data, err := event.EncodeData(evt.Data)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO transaction_events (id, transaction_id, event_type, event_data, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		evt.ID,
		evt.TransactionID,
		string(evt.Type()),
		string(data),
		formatTime(evt.CreatedAt),
	)
	return err
}

func (s *EventStore) ListByTransaction(ctx context.Context, transactionID string) ([]event.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, transaction_id, event_type, event_data, created_at
		 FROM transaction_events
		 WHERE transaction_id = ?
		 ORDER BY created_at, rowid`,
		transactionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []event.Event

	for rows.Next() {
		var (
			evt       event.Event
			typ, data string
			createdAt string
		)

		if err := rows.Scan(&evt.ID, &evt.TransactionID, &typ, &data, &createdAt); err != nil {
			return nil, err
		}

		if evt.Data, err = event.DecodeData(event.Type(typ), []byte(data)); err != nil {
			return nil, err
		}
		if evt.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}

		events = append(events, evt)
	}

	return events, rows.Err()
}
