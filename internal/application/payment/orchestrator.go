package payment

import (
	"context"
	"errors"
	"maps"
	"time"

	checkoutApplication "github.com/rcarvalho-pb/checkout_gateway-go/internal/application/checkout"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/application/worker"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/event"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/money"
	domainPayment "github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/payment"
	domainTransaction "github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/transaction"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infra/logging"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infra/metrics"
)

// settleTimeout bounds the writes that record a decided outcome after the
// caller's context is gone.
const settleTimeout = 5 * time.Second

type Sessions interface {
	ResolveByURI(ctx context.Context, uri string) (*checkoutApplication.Session, error)
	EnsureUsable(s *checkoutApplication.Session) error
	Claim(ctx context.Context, pageID string) error
	Release(ctx context.Context, pageID string) error
	MarkCompleted(ctx context.Context, pageID string) (time.Time, error)
}

// Gateway is the PSP boundary.
type Gateway interface {
	Submit(ctx context.Context, auth domainPayment.Authorization) (string, error)
	PollStatus(ctx context.Context, paymentID string) (domainPayment.StatusReport, error)
}

type Trail interface {
	Advance(ctx context.Context, transactionID string, next domainTransaction.Status, data event.Data) error
}

type Orchestrator struct {
	Sessions Sessions
	Gateway  Gateway
	Trail    Trail
	Poller   *worker.Poller
	Logger   logging.Logger
	Metrics  *metrics.Counters
}

// SubmitCardInfo resolves the checkout session behind uri, submits the card
// to the PSP and polls until the authorization is decided or the poll budget
// runs out. Only one submission may hold a session at a time.
func (o *Orchestrator) SubmitCardInfo(ctx context.Context, uri string, card domainPayment.Card) error {
	session, err := o.Sessions.ResolveByURI(ctx, uri)
	if err != nil {
		return err
	}
	if err := o.Sessions.EnsureUsable(session); err != nil {
		return err
	}

	page, tx := session.Page, session.Transaction
	fields := map[string]any{
		"transaction-id": tx.ID,
		"checkout-id":    page.ID,
	}

	if err := o.Sessions.Claim(ctx, page.ID); err != nil {
		return err
	}

	if err := o.Trail.Advance(ctx, tx.ID, domainTransaction.StatusProcessing, event.Attempt{
		CheckoutID: page.ID,
		Provider:   string(card.Provider),
		CardLast4:  card.Last4(),
	}); err != nil {
		settleCtx, cancel := settleContext(ctx)
		defer cancel()
		o.release(settleCtx, page.ID, fields)
		return err
	}

	paymentID, err := o.Gateway.Submit(ctx, domainPayment.Authorization{
		Amount:   money.FromMinor(tx.Amount, tx.Currency),
		Currency: tx.Currency,
		Card:     card,
	})
	if err != nil {
		o.Logger.Error("payment submission failed", withError(fields, err))
		settleCtx, cancel := settleContext(ctx)
		defer cancel()
		o.fail(settleCtx, tx.ID, page.ID, "", reasonOf(err), fields)
		return err
	}
	fields["payment-id"] = paymentID

	var report domainPayment.StatusReport
	err = o.Poller.Poll(ctx, fields, func(ctx context.Context, _ int) (bool, error) {
		r, err := o.Gateway.PollStatus(ctx, paymentID)
		if err != nil {
			return false, err
		}
		report = r
		return r.Status.Terminal(), nil
	})

	switch {
	case errors.Is(err, worker.ErrBudgetExhausted):
		o.Metrics.IncTimedOut()
		// The PSP may still authorize later: the claim stays held and the
		// transaction stays processing for manual reconciliation.
		o.Logger.Error("payment polling timed out", fields)
		return domainPayment.ErrTimeout
	case err != nil:
		o.Logger.Error("payment polling aborted", withError(fields, err))
		return err
	}

	// The PSP has decided: record it even if the caller has gone away.
	settleCtx, cancel := settleContext(ctx)
	defer cancel()

	if report.Status == domainPayment.StatusFailure {
		o.fail(settleCtx, tx.ID, page.ID, paymentID, report.Reason, fields)
		return &domainPayment.RejectedError{Reason: report.Reason}
	}

	completedAt, err := o.Sessions.MarkCompleted(settleCtx, page.ID)
	if err != nil {
		o.Logger.Error("marking checkout completed failed", withError(fields, err))
		return err
	}

	if err := o.Trail.Advance(settleCtx, tx.ID, domainTransaction.StatusCompleted, event.Completed{
		CheckoutID: page.ID,
		PaymentID:  paymentID,
	}); err != nil {
		o.Logger.Error("recording completion failed", withError(fields, err))
	}

	o.Metrics.IncSucceeded()
	fields["completed-at"] = completedAt
	o.Logger.Info("payment authorized", fields)
	return nil
}

// fail records a decided failure and frees the session so the payer may try
// another card.
func (o *Orchestrator) fail(ctx context.Context, transactionID, pageID, paymentID, reason string, fields map[string]any) {
	o.Metrics.IncFailed()

	if err := o.Trail.Advance(ctx, transactionID, domainTransaction.StatusFailed, event.Failed{
		CheckoutID: pageID,
		PaymentID:  paymentID,
		Reason:     reason,
	}); err != nil {
		o.Logger.Error("recording failure failed", withError(fields, err))
	}
	o.release(ctx, pageID, fields)
}

func (o *Orchestrator) release(ctx context.Context, pageID string, fields map[string]any) {
	if err := o.Sessions.Release(ctx, pageID); err != nil {
		o.Logger.Error("releasing checkout claim failed", withError(fields, err))
	}
}

// settleContext keeps ctx values but drops its cancellation.
func settleContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
}

func reasonOf(err error) string {
	var rejected *domainPayment.RejectedError
	if errors.As(err, &rejected) {
		return rejected.Reason
	}
	return "psp unavailable"
}

func withError(fields map[string]any, err error) map[string]any {
	out := make(map[string]any, len(fields)+1)
	maps.Copy(out, fields)
	out["error"] = err
	return out
}
