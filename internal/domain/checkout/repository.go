package checkout

import (
	"context"
	"errors"
	"time"
)

var (
	ErrPageNotFound  = errors.New("checkout page not found")
	ErrThemeNotFound = errors.New("checkout theme not found")
	ErrDuplicateURI  = errors.New("checkout page uri already exists")
)

type Repository interface {
	Save(ctx context.Context, p *Page) error
	FindByURI(ctx context.Context, uri string) (*Page, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*Page, error)
	// Claim sets ClaimedAt when the page is neither claimed nor completed.
	// It reports false when another submission already holds the page.
	Claim(ctx context.Context, id string, at time.Time) (bool, error)
	ReleaseClaim(ctx context.Context, id string) error
	// MarkCompleted sets CompletedAt once and returns the stored value.
	MarkCompleted(ctx context.Context, id string, at time.Time) (time.Time, error)
}

type ThemeRepository interface {
	Save(ctx context.Context, t *Theme) error
	FindByID(ctx context.Context, id string) (*Theme, error)
}
