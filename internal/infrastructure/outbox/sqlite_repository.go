package outbox

import (
	"context"
	"database/sql"
	"time"

	"github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/event"
)

type SQLiteRepository struct {
	db *sql.DB
}

// Fixed-width so ORDER BY created_at follows time order.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db}
}

func (r *SQLiteRepository) Save(ctx context.Context, evt OutboxEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO outbox_events (id, event_type, payload, published, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		evt.ID,
		string(evt.Type),
		evt.Payload,
		0,
		evt.CreatedAt.UTC().Format(createdAtLayout),
	)
	return err
}

func (r *SQLiteRepository) FindUnpublished(ctx context.Context, limit int) ([]OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, event_type, payload, published, created_at
		FROM outbox_events
		WHERE published = 0
		ORDER BY created_at, rowid
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []OutboxEvent

	for rows.Next() {
		var (
			evt       OutboxEvent
			typ       string
			published int
			createdAt string
		)

		if err := rows.Scan(
			&evt.ID,
			&typ,
			&evt.Payload,
			&published,
			&createdAt,
		); err != nil {
			return nil, err
		}

		evt.CreatedAt, err = time.Parse(createdAtLayout, createdAt)
		if err != nil {
			return nil, err
		}
		evt.Type = event.Type(typ)
		evt.Published = published == 1
		events = append(events, evt)
	}

	return events, rows.Err()
}

func (r *SQLiteRepository) MarkPublished(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE outbox_events
		SET published = 1
		WHERE id = ?
	`, id)

	return err
}
