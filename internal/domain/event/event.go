package event

import "time"

type Type string

const (
	TransactionCreated    Type = "transaction_created"
	TransactionProcessing Type = "transaction_processing"
	TransactionCompleted  Type = "transaction_completed"
	TransactionFailed     Type = "transaction_failed"
	TransactionCancelled  Type = "transaction_cancelled"
	PaymentAttempt        Type = "payment_attempt"
	Refund                Type = "refund"
)

// Data is the closed set of transaction event payloads. Only types in this
// package implement it.
type Data interface {
	Type() Type
	isData()
}

// Event is one entry of a transaction's append-only log.
type Event struct {
	ID            string
	TransactionID string
	Data          Data
	CreatedAt     time.Time
}

func (e Event) Type() Type {
	if e.Data == nil {
		return ""
	}
	return e.Data.Type()
}
