package checkout

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	domainCheckout "github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/checkout"
	domainTransaction "github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/transaction"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infra/clock"
)

var (
	ErrSessionNotFound = errors.New("checkout session not found")
	ErrSessionExpired  = errors.New("checkout session expired")
	// ErrSessionUnavailable means the session is completed or another
	// submission currently holds it.
	ErrSessionUnavailable = errors.New("checkout session unavailable")
)

const uriBytes = 24

// maxURIAttempts bounds regeneration on the (practically impossible) uri collision.
const maxURIAttempts = 3

// Session is a checkout page together with the transaction it settles.
type Session struct {
	Page        *domainCheckout.Page
	Transaction *domainTransaction.Transaction
}

type Manager struct {
	Pages        domainCheckout.Repository
	Transactions domainTransaction.Repository
	Clock        clock.Clock
}

type ProvisionRequest struct {
	TransactionID string
	ThemeID       string
	DisplayData   json.RawMessage
	ExpiresAt     *time.Time
}

// Provision stores a new page for the transaction under a fresh random uri.
func (m *Manager) Provision(ctx context.Context, req ProvisionRequest) (*domainCheckout.Page, error) {
	for attempt := 0; attempt < maxURIAttempts; attempt++ {
		uri, err := newURI()
		if err != nil {
			return nil, err
		}

		page := &domainCheckout.Page{
			ID:            uuid.NewString(),
			URI:           uri,
			TransactionID: req.TransactionID,
			ThemeID:       req.ThemeID,
			DisplayData:   req.DisplayData,
			ExpiresAt:     req.ExpiresAt,
			CreatedAt:     m.Clock.Now(),
		}

		err = m.Pages.Save(ctx, page)
		if errors.Is(err, domainCheckout.ErrDuplicateURI) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return page, nil
	}
	return nil, domainCheckout.ErrDuplicateURI
}

func (m *Manager) ResolveByURI(ctx context.Context, uri string) (*Session, error) {
	page, err := m.Pages.FindByURI(ctx, uri)
	if errors.Is(err, domainCheckout.ErrPageNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	tx, err := m.Transactions.FindByID(ctx, page.TransactionID)
	if errors.Is(err, domainTransaction.ErrTransactionNotFound) {
		// A page without its transaction is a partial write; treat as absent.
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	return &Session{Page: page, Transaction: tx}, nil
}

// EnsureUsable rejects sessions that are expired or already completed.
func (m *Manager) EnsureUsable(s *Session) error {
	if s.Page.Expired(m.Clock.Now()) {
		return ErrSessionExpired
	}
	if s.Page.Completed() {
		return ErrSessionUnavailable
	}
	return nil
}

// Claim reserves the page for a single in-flight submission.
func (m *Manager) Claim(ctx context.Context, pageID string) error {
	ok, err := m.Pages.Claim(ctx, pageID, m.Clock.Now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionUnavailable
	}
	return nil
}

func (m *Manager) Release(ctx context.Context, pageID string) error {
	return m.Pages.ReleaseClaim(ctx, pageID)
}

// MarkCompleted stamps completion once; later calls return the first stamp.
func (m *Manager) MarkCompleted(ctx context.Context, pageID string) (time.Time, error) {
	at, err := m.Pages.MarkCompleted(ctx, pageID, m.Clock.Now())
	if errors.Is(err, domainCheckout.ErrPageNotFound) {
		return time.Time{}, ErrSessionNotFound
	}
	return at, err
}

func newURI() (string, error) {
	b := make([]byte, uriBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate checkout uri: %w", err)
	}
	return hex.EncodeToString(b), nil
}
