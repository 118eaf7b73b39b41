package policy

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotPositive         Kind = "not_positive"
	KindCryptoUnsupported   Kind = "crypto_unsupported"
	KindUnsupportedCurrency Kind = "unsupported_currency"
	KindCeilingExceeded     Kind = "ceiling_exceeded"
	KindPrecisionExceeded   Kind = "precision_exceeded"
)

// Error is a policy violation. Its message is returned verbatim to API
// callers and must stay stable.
type Error struct {
	Kind     Kind
	Currency string
	// Decimals is the allowed number of decimal places for KindPrecisionExceeded.
	Decimals int32
	msg      string
}

func (e *Error) Error() string { return e.msg }

// Is matches any policy error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrNotPositive         = &Error{Kind: KindNotPositive}
	ErrCryptoUnsupported   = &Error{Kind: KindCryptoUnsupported}
	ErrUnsupportedCurrency = &Error{Kind: KindUnsupportedCurrency}
	ErrCeilingExceeded     = &Error{Kind: KindCeilingExceeded}
	ErrPrecisionExceeded   = &Error{Kind: KindPrecisionExceeded}

	// ErrRatesUnavailable marks an exchange-rate lookup failure. It is an
	// infrastructure error and never a policy violation.
	ErrRatesUnavailable = errors.New("exchange rates unavailable")
)

func notPositive() *Error {
	return &Error{Kind: KindNotPositive, msg: "Amount must be greater than 0."}
}

func cryptoUnsupported(currency string) *Error {
	return &Error{
		Kind:     KindCryptoUnsupported,
		Currency: currency,
		msg:      "Cryptocurrencies are not supported.",
	}
}

func unsupportedCurrency(currency string) *Error {
	return &Error{
		Kind:     KindUnsupportedCurrency,
		Currency: currency,
		msg:      fmt.Sprintf("Currency %s is not supported.", currency),
	}
}

func ceilingExceeded(currency, ceiling, reference string) *Error {
	return &Error{
		Kind:     KindCeilingExceeded,
		Currency: currency,
		msg:      fmt.Sprintf("Amount exceeds the maximum allowed of %s %s.", ceiling, reference),
	}
}

func precisionExceeded(currency string, decimals int32) *Error {
	return &Error{
		Kind:     KindPrecisionExceeded,
		Currency: currency,
		Decimals: decimals,
		msg:      fmt.Sprintf("Amount for %s must have at most %d decimal places.", currency, decimals),
	}
}
