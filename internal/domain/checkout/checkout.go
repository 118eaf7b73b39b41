package checkout

import (
	"encoding/json"
	"time"
)

// Page is the single-use payer session of one transaction, addressed by URI.
type Page struct {
	ID            string
	URI           string
	TransactionID string
	ThemeID       string
	DisplayData   json.RawMessage
	ExpiresAt     *time.Time
	AccessedAt    *time.Time
	ClaimedAt     *time.Time
	CompletedAt   *time.Time
	CreatedAt     time.Time
}

func (p *Page) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && !p.ExpiresAt.After(now)
}

func (p *Page) Completed() bool {
	return p.CompletedAt != nil
}

// Usable reports whether a payer may still submit through this page.
func (p *Page) Usable(now time.Time) bool {
	return !p.Expired(now) && !p.Completed()
}

type Theme struct {
	ID        string
	Name      string
	Version   string
	StoreID   string
	CreatedAt time.Time
}
