package transaction

import "time"

type Status string

const (
	StatusCreated    Status = "created"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// MethodCheckoutPage is the only payment method this service issues.
const MethodCheckoutPage = "checkout_page"

// Transaction is an amount owed to a store. Amount is held in minor units of
// Currency and never changes after creation.
type Transaction struct {
	ID         string
	Amount     int64
	Currency   string
	Reference  string
	Status     Status
	MethodType string
	Metadata   map[string]string
	StoreID    string
	SessionID  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CanMoveTo reports whether the status hook from s to next is allowed.
func (s Status) CanMoveTo(next Status) bool {
	switch s {
	case StatusCreated:
		return next == StatusProcessing || next == StatusCancelled
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	case StatusFailed:
		return next == StatusProcessing
	}
	return false
}
