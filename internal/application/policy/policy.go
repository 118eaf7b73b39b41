package policy

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/money"
)

// RateProvider returns spot rates quoted as units of each currency per one
// unit of base.
type RateProvider interface {
	Rates(ctx context.Context, base string) (map[string]decimal.Decimal, error)
}

type Service struct {
	Rates             RateProvider
	ReferenceCurrency string
	Ceiling           decimal.Decimal
}

func NewService(rates RateProvider, reference string, ceiling int64) *Service {
	return &Service{
		Rates:             rates,
		ReferenceCurrency: money.Normalize(reference),
		Ceiling:           decimal.NewFromInt(ceiling),
	}
}

type check struct {
	svc      *Service
	amount   decimal.Decimal
	currency string
	rates    map[string]decimal.Decimal
}

type rule func(ctx context.Context, c *check) error

// Rules run in order and stop at the first violation.
var rules = []rule{
	requirePositive,
	rejectCrypto,
	requireQuoted,
	requireWithinCeiling,
	requirePrecision,
}

// ValidatePolicy checks amount in currency (already normalized) against every
// rule. It returns a *Error for violations and wraps ErrRatesUnavailable when
// the rate source cannot be reached.
func (s *Service) ValidatePolicy(ctx context.Context, amount decimal.Decimal, currency string) error {
	c := &check{svc: s, amount: amount, currency: currency}
	for _, r := range rules {
		if err := r(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func requirePositive(_ context.Context, c *check) error {
	if !c.amount.IsPositive() {
		return notPositive()
	}
	return nil
}

func rejectCrypto(_ context.Context, c *check) error {
	if money.IsCrypto(c.currency) {
		return cryptoUnsupported(c.currency)
	}
	return nil
}

func requireQuoted(ctx context.Context, c *check) error {
	rates, err := c.svc.Rates.Rates(ctx, c.svc.ReferenceCurrency)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRatesUnavailable, err)
	}
	c.rates = rates

	if c.currency == c.svc.ReferenceCurrency {
		return nil
	}
	rate, ok := rates[c.currency]
	if !ok || !rate.IsPositive() {
		return unsupportedCurrency(c.currency)
	}
	return nil
}

func requireWithinCeiling(_ context.Context, c *check) error {
	converted := c.amount
	if c.currency != c.svc.ReferenceCurrency {
		converted = c.amount.Div(c.rates[c.currency])
	}

	if converted.GreaterThan(c.svc.Ceiling) {
		return ceilingExceeded(c.currency, c.svc.Ceiling.String(), c.svc.ReferenceCurrency)
	}
	return nil
}

func requirePrecision(_ context.Context, c *check) error {
	allowed := money.MinorUnits(c.currency)
	if money.Decimals(c.amount) > allowed {
		return precisionExceeded(c.currency, allowed)
	}
	return nil
}
