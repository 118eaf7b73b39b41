package payment

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Status is the authorization state reported by the PSP.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailure
}

var ErrTimeout = errors.New("payment processing timed out")

// RejectedError is a terminal refusal reported by the PSP, either when the
// card is refused on submission or when authorization resolves to failure.
type RejectedError struct {
	Reason   string
	AtSubmit bool
}

func (e *RejectedError) Error() string {
	if e.Reason == "" {
		return "payment rejected"
	}
	return fmt.Sprintf("payment rejected: %s", e.Reason)
}

// Card is payer-supplied card data. It is never persisted.
type Card struct {
	Provider   Brand
	HolderName string
	Number     string
	Month      int
	Year       int
	CVV        string
}

// ExpiryDate renders the MM/YY form sent to the PSP.
func (c Card) ExpiryDate() string {
	return fmt.Sprintf("%02d/%02d", c.Month, c.Year%100)
}

func (c Card) Last4() string {
	if len(c.Number) < 4 {
		return c.Number
	}
	return c.Number[len(c.Number)-4:]
}

// Authorization is what gets submitted to the PSP.
type Authorization struct {
	Amount   decimal.Decimal
	Currency string
	Card     Card
}

type StatusReport struct {
	Status Status
	Reason string
}
