package transaction

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	checkoutApplication "github.com/rcarvalho-pb/checkout_gateway-go/internal/application/checkout"
	domainCheckout "github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/checkout"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/event"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/money"
	domainTransaction "github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/transaction"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infra/clock"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infra/logging"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infra/metrics"
)

var ErrThemeNotFound = errors.New("checkout theme not found")

type PolicyValidator interface {
	ValidatePolicy(ctx context.Context, amount decimal.Decimal, currency string) error
}

type CheckoutProvisioner interface {
	Provision(ctx context.Context, req checkoutApplication.ProvisionRequest) (*domainCheckout.Page, error)
}

type Service struct {
	Policy       PolicyValidator
	Transactions domainTransaction.Repository
	Themes       domainCheckout.ThemeRepository
	Checkouts    CheckoutProvisioner
	Journal      *Journal
	Clock        clock.Clock
	Logger       logging.Logger
	Metrics      *metrics.Counters
}

type CreateRequest struct {
	Amount      decimal.Decimal
	Currency    string
	Reference   string
	Metadata    map[string]string
	ExpiresAt   *time.Time
	ThemeID     string
	DisplayData json.RawMessage
	StoreID     string
	SessionID   string
}

type Created struct {
	TransactionID string
	CheckoutURI   string
}

// CreateTransaction validates the amount, stores the transaction with its
// transaction_created event and provisions its checkout page. The writes are
// sequential; a crash between them leaves a transaction without a page.
func (s *Service) CreateTransaction(ctx context.Context, req CreateRequest) (*Created, error) {
	currency := money.Normalize(req.Currency)

	if err := s.Policy.ValidatePolicy(ctx, req.Amount, currency); err != nil {
		return nil, err
	}

	theme, err := s.Themes.FindByID(ctx, req.ThemeID)
	if errors.Is(err, domainCheckout.ErrThemeNotFound) {
		return nil, ErrThemeNotFound
	}
	if err != nil {
		return nil, err
	}
	if theme.StoreID != req.StoreID {
		return nil, ErrThemeNotFound
	}

	amount, err := money.ToMinor(req.Amount, currency)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	tx := &domainTransaction.Transaction{
		ID:         uuid.NewString(),
		Amount:     amount,
		Currency:   currency,
		Reference:  req.Reference,
		Status:     domainTransaction.StatusCreated,
		MethodType: domainTransaction.MethodCheckoutPage,
		Metadata:   req.Metadata,
		StoreID:    req.StoreID,
		SessionID:  req.SessionID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.Transactions.Save(ctx, tx); err != nil {
		return nil, err
	}

	if _, err := s.Journal.Append(ctx, tx.ID, event.Created{
		Amount:     tx.Amount,
		Currency:   tx.Currency,
		Reference:  tx.Reference,
		MethodType: tx.MethodType,
		StoreID:    tx.StoreID,
		SessionID:  tx.SessionID,
	}); err != nil {
		return nil, err
	}

	page, err := s.Checkouts.Provision(ctx, checkoutApplication.ProvisionRequest{
		TransactionID: tx.ID,
		ThemeID:       theme.ID,
		DisplayData:   req.DisplayData,
		ExpiresAt:     req.ExpiresAt,
	})
	if err != nil {
		s.Logger.Error("checkout provisioning failed", map[string]any{
			"transaction-id": tx.ID,
			"error":          err,
		})
		return nil, err
	}

	s.Metrics.IncTransactionsCreated()
	s.Logger.Info("transaction created", map[string]any{
		"transaction-id": tx.ID,
		"checkout-id":    page.ID,
		"store-id":       tx.StoreID,
		"currency":       tx.Currency,
		"amount":         tx.Amount,
	})

	return &Created{TransactionID: tx.ID, CheckoutURI: page.URI}, nil
}
