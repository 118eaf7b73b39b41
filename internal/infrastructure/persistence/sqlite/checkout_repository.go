package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/checkout"
)

type CheckoutRepository struct {
	db *sql.DB
}

func NewCheckoutRepository(db *sql.DB) *CheckoutRepository {
	return &CheckoutRepository{db: db}
}

const pageColumns = `id, uri, transaction_id, theme_id, display_data, expires_at, accessed_at, claimed_at, completed_at, created_at`

func (r *CheckoutRepository) Save(ctx context.Context, p *checkout.Page) error {
	var display sql.NullString
	if len(p.DisplayData) > 0 {
		display = sql.NullString{String: string(p.DisplayData), Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO checkout_pages (`+pageColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.URI,
		p.TransactionID,
		p.ThemeID,
		display,
		formatNullTime(p.ExpiresAt),
		formatNullTime(p.AccessedAt),
		formatNullTime(p.ClaimedAt),
		formatNullTime(p.CompletedAt),
		formatTime(p.CreatedAt),
	)
	if isUniqueViolation(err, "checkout_pages.uri") {
		return checkout.ErrDuplicateURI
	}
	return err
}

func (r *CheckoutRepository) FindByURI(ctx context.Context, uri string) (*checkout.Page, error) {
	return r.findOne(ctx, `SELECT `+pageColumns+` FROM checkout_pages WHERE uri = ?`, uri)
}

func (r *CheckoutRepository) FindByTransactionID(ctx context.Context, transactionID string) (*checkout.Page, error) {
	return r.findOne(ctx, `SELECT `+pageColumns+` FROM checkout_pages WHERE transaction_id = ?`, transactionID)
}

func (r *CheckoutRepository) findOne(ctx context.Context, query string, arg any) (*checkout.Page, error) {
	var (
		p                                        checkout.Page
		display                                  sql.NullString
		expiresAt, accessedAt, claimedAt, doneAt sql.NullString
		createdAt                                string
	)

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&p.ID,
		&p.URI,
		&p.TransactionID,
		&p.ThemeID,
		&display,
		&expiresAt,
		&accessedAt,
		&claimedAt,
		&doneAt,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, checkout.ErrPageNotFound
	}
	if err != nil {
		return nil, err
	}

	if display.Valid {
		p.DisplayData = []byte(display.String)
	}
	if p.ExpiresAt, err = parseNullTime(expiresAt); err != nil {
		return nil, err
	}
	if p.AccessedAt, err = parseNullTime(accessedAt); err != nil {
		return nil, err
	}
	if p.ClaimedAt, err = parseNullTime(claimedAt); err != nil {
		return nil, err
	}
	if p.CompletedAt, err = parseNullTime(doneAt); err != nil {
		return nil, err
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}

	return &p, nil
}

func (r *CheckoutRepository) Claim(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE checkout_pages
		 SET claimed_at = ?
		 WHERE id = ? AND claimed_at IS NULL AND completed_at IS NULL`,
		formatTime(at),
		id,
	)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 1 {
		return true, nil
	}

	if err := r.exists(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *CheckoutRepository) ReleaseClaim(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE checkout_pages SET claimed_at = NULL WHERE id = ?`,
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
		return checkout.ErrPageNotFound
	}
	return nil
}

func (r *CheckoutRepository) MarkCompleted(ctx context.Context, id string, at time.Time) (time.Time, error) {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE checkout_pages
		 SET completed_at = ?
		 WHERE id = ? AND completed_at IS NULL`,
		formatTime(at),
		id,
	); err != nil {
		return time.Time{}, err
	}

	var completedAt sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT completed_at FROM checkout_pages WHERE id = ?`,
		id,
	).Scan(&completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, checkout.ErrPageNotFound
	}
	if err != nil {
		return time.Time{}, err
	}

	stored, err := parseNullTime(completedAt)
	if err != nil {
		return time.Time{}, err
	}
	if stored == nil {
		return time.Time{}, checkout.ErrPageNotFound
	}
	return *stored, nil
}

func (r *CheckoutRepository) exists(ctx context.Context, id string) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM checkout_pages WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return checkout.ErrPageNotFound
	}
	return err
}

type ThemeRepository struct {
	db *sql.DB
}

func NewThemeRepository(db *sql.DB) *ThemeRepository {
	return &ThemeRepository{db: db}
}

func (r *ThemeRepository) Save(ctx context.Context, t *checkout.Theme) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO checkout_themes (id, name, version, store_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		t.ID,
		t.Name,
		t.Version,
		t.StoreID,
		formatTime(t.CreatedAt),
	)
	return err
}

func (r *ThemeRepository) FindByID(ctx context.Context, id string) (*checkout.Theme, error) {
	var (
		t         checkout.Theme
		createdAt string
	)

	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, version, store_id, created_at
		 FROM checkout_themes
		 WHERE id = ?`,
		id,
	).Scan(&t.ID, &t.Name, &t.Version, &t.StoreID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, checkout.ErrThemeNotFound
	}
	if err != nil {
		return nil, err
	}

	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &t, nil
}
