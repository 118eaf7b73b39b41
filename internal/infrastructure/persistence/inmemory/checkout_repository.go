package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/checkout"
)

type CheckoutRepository struct {
	mu    sync.RWMutex
	pages map[string]*checkout.Page
	byURI map[string]string
}

func NewCheckoutRepository() *CheckoutRepository {
	return &CheckoutRepository{
		pages: make(map[string]*checkout.Page),
		byURI: make(map[string]string),
	}
}

func (r *CheckoutRepository) Save(_ context.Context, p *checkout.Page) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byURI[p.URI]; exists {
		return checkout.ErrDuplicateURI
	}
	r.pages[p.ID] = clonePage(p)
	r.byURI[p.URI] = p.ID
	return nil
}

func (r *CheckoutRepository) FindByURI(_ context.Context, uri string) (*checkout.Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byURI[uri]
	if !ok {
		return nil, checkout.ErrPageNotFound
	}
	return clonePage(r.pages[id]), nil
}

func (r *CheckoutRepository) FindByTransactionID(_ context.Context, transactionID string) (*checkout.Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.pages {
		if p.TransactionID == transactionID {
			return clonePage(p), nil
		}
	}
	return nil, checkout.ErrPageNotFound
}

func (r *CheckoutRepository) Claim(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pages[id]
	if !ok {
		return false, checkout.ErrPageNotFound
	}
	if p.ClaimedAt != nil || p.CompletedAt != nil {
		return false, nil
	}
	p.ClaimedAt = &at
	return true, nil
}

func (r *CheckoutRepository) ReleaseClaim(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pages[id]
	if !ok {
		return checkout.ErrPageNotFound
	}
	p.ClaimedAt = nil
	return nil
}

func (r *CheckoutRepository) MarkCompleted(_ context.Context, id string, at time.Time) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pages[id]
	if !ok {
		return time.Time{}, checkout.ErrPageNotFound
	}
	if p.CompletedAt == nil {
		p.CompletedAt = &at
	}
	return *p.CompletedAt, nil
}

// Pages returns a snapshot of every stored page.
func (r *CheckoutRepository) Pages() []*checkout.Page {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*checkout.Page, 0, len(r.pages))
	for _, p := range r.pages {
		out = append(out, clonePage(p))
	}
	return out
}

func clonePage(p *checkout.Page) *checkout.Page {
	cp := *p
	cp.DisplayData = append([]byte(nil), p.DisplayData...)
	cp.ExpiresAt = cloneTime(p.ExpiresAt)
	cp.AccessedAt = cloneTime(p.AccessedAt)
	cp.ClaimedAt = cloneTime(p.ClaimedAt)
	cp.CompletedAt = cloneTime(p.CompletedAt)
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

type ThemeRepository struct {
	mu     sync.RWMutex
	themes map[string]checkout.Theme
}

func NewThemeRepository() *ThemeRepository {
	return &ThemeRepository{
		themes: make(map[string]checkout.Theme),
	}
}

func (r *ThemeRepository) Save(_ context.Context, t *checkout.Theme) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.themes[t.ID] = *t
	return nil
}

func (r *ThemeRepository) FindByID(_ context.Context, id string) (*checkout.Theme, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.themes[id]
	if !ok {
		return nil, checkout.ErrThemeNotFound
	}
	return &t, nil
}
