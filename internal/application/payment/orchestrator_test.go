package payment_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	checkoutApplication "github.com/rcarvalho-pb/checkout_gateway-go/internal/application/checkout"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/application/payment"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/application/transaction"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/application/worker"
	domainCheckout "github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/checkout"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/event"
	domainPayment "github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/payment"
	domainTransaction "github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/transaction"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infra/clock"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infra/logging"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infra/metrics"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infrastructure/persistence/inmemory"
)

type fakeGateway struct {
	submits  atomic.Int32
	polls    atomic.Int32
	submitFn func(ctx context.Context, auth domainPayment.Authorization) (string, error)
	pollFn   func(ctx context.Context, attempt int) (domainPayment.StatusReport, error)
}

func (f *fakeGateway) Submit(ctx context.Context, auth domainPayment.Authorization) (string, error) {
	f.submits.Add(1)
	if f.submitFn == nil {
		return "pay-1", nil
	}
	return f.submitFn(ctx, auth)
}

func (f *fakeGateway) PollStatus(ctx context.Context, _ string) (domainPayment.StatusReport, error) {
	n := int(f.polls.Add(1))
	return f.pollFn(ctx, n)
}

// strictSessions and strictTrail refuse to write once ctx is done, the way
// the SQL repositories do.
type strictSessions struct{ payment.Sessions }

func (s strictSessions) Claim(ctx context.Context, pageID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Sessions.Claim(ctx, pageID)
}

func (s strictSessions) Release(ctx context.Context, pageID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Sessions.Release(ctx, pageID)
}

func (s strictSessions) MarkCompleted(ctx context.Context, pageID string) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	return s.Sessions.MarkCompleted(ctx, pageID)
}

type strictTrail struct{ payment.Trail }

func (s strictTrail) Advance(ctx context.Context, transactionID string, next domainTransaction.Status, data event.Data) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Trail.Advance(ctx, transactionID, next, data)
}

type noopRecorder struct{}

func (noopRecorder) Record(context.Context, event.Event) error { return nil }

type fixture struct {
	orchestrator *payment.Orchestrator
	gateway      *fakeGateway
	clock        *clock.Fake
	transactions *inmemory.TransactionRepository
	events       *inmemory.EventStore
	pages        *inmemory.CheckoutRepository
	metrics      *metrics.Counters
	page         *domainCheckout.Page
}

var start = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, expiresAt *time.Time) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		gateway:      &fakeGateway{},
		clock:        clock.NewFake(start),
		transactions: inmemory.NewTransactionRepository(),
		events:       inmemory.NewEventStore(),
		pages:        inmemory.NewCheckoutRepository(),
		metrics:      &metrics.Counters{},
	}

	require.NoError(t, f.transactions.Save(ctx, &domainTransaction.Transaction{
		ID:       "tx-1",
		Amount:   10000,
		Currency: "USD",
		Status:   domainTransaction.StatusCreated,
	}))

	sessions := &checkoutApplication.Manager{
		Pages:        f.pages,
		Transactions: f.transactions,
		Clock:        f.clock,
	}
	page, err := sessions.Provision(ctx, checkoutApplication.ProvisionRequest{
		TransactionID: "tx-1",
		ThemeID:       "theme-1",
		ExpiresAt:     expiresAt,
	})
	require.NoError(t, err)
	f.page = page

	f.orchestrator = &payment.Orchestrator{
		Sessions: strictSessions{sessions},
		Gateway:  f.gateway,
		Trail: strictTrail{&transaction.Journal{
			Transactions: f.transactions,
			Events:       f.events,
			Recorder:     noopRecorder{},
			Clock:        f.clock,
		}},
		Poller:  worker.NewPoller(20, time.Second, f.clock, logging.Nop{}, f.metrics),
		Logger:  logging.Nop{},
		Metrics: f.metrics,
	}
	return f
}

func (f *fixture) submit(ctx context.Context) error {
	return f.orchestrator.SubmitCardInfo(ctx, f.page.URI, domainPayment.Card{
		Provider:   domainPayment.BrandVisa,
		HolderName: "Jane Doe",
		Number:     "4242424242424242",
		Month:      12,
		Year:       2030,
		CVV:        "123",
	})
}

func (f *fixture) status(t *testing.T) domainTransaction.Status {
	t.Helper()
	tx, err := f.transactions.FindByID(context.Background(), "tx-1")
	require.NoError(t, err)
	return tx.Status
}

func (f *fixture) currentPage(t *testing.T) *domainCheckout.Page {
	t.Helper()
	p, err := f.pages.FindByURI(context.Background(), f.page.URI)
	require.NoError(t, err)
	return p
}

func (f *fixture) eventTypes(t *testing.T) []event.Type {
	t.Helper()
	events, err := f.events.ListByTransaction(context.Background(), "tx-1")
	require.NoError(t, err)
	out := make([]event.Type, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type())
	}
	return out
}

func waiting() (domainPayment.StatusReport, error) {
	return domainPayment.StatusReport{Status: domainPayment.StatusWaiting}, nil
}

func TestSubmitCardInfo_SuccessOnThirdPoll(t *testing.T) {
	f := newFixture(t, nil)

	var auth domainPayment.Authorization
	f.gateway.submitFn = func(_ context.Context, a domainPayment.Authorization) (string, error) {
		auth = a
		return "pay-1", nil
	}
	f.gateway.pollFn = func(_ context.Context, n int) (domainPayment.StatusReport, error) {
		if n < 3 {
			return waiting()
		}
		return domainPayment.StatusReport{Status: domainPayment.StatusSuccess}, nil
	}

	require.NoError(t, f.submit(context.Background()))

	require.Equal(t, "100.00", auth.Amount.StringFixed(2))
	require.Equal(t, "USD", auth.Currency)
	require.Equal(t, int32(3), f.gateway.polls.Load())
	require.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, f.clock.Sleeps())

	page := f.currentPage(t)
	require.NotNil(t, page.CompletedAt)
	require.Equal(t, domainTransaction.StatusCompleted, f.status(t))
	require.Equal(t, []event.Type{event.PaymentAttempt, event.TransactionCompleted}, f.eventTypes(t))
	require.Equal(t, uint64(1), f.metrics.Snapshot().SubmissionsSucceeded)

	require.ErrorIs(t, f.submit(context.Background()), checkoutApplication.ErrSessionUnavailable)
	require.Equal(t, int32(1), f.gateway.submits.Load())
}

func TestSubmitCardInfo_TimeoutKeepsClaim(t *testing.T) {
	f := newFixture(t, nil)
	f.gateway.pollFn = func(context.Context, int) (domainPayment.StatusReport, error) {
		return waiting()
	}

	err := f.submit(context.Background())

	require.ErrorIs(t, err, domainPayment.ErrTimeout)
	require.Equal(t, int32(20), f.gateway.polls.Load())
	require.Nil(t, f.currentPage(t).CompletedAt)
	require.NotNil(t, f.currentPage(t).ClaimedAt)
	require.Equal(t, domainTransaction.StatusProcessing, f.status(t))
	require.Equal(t, uint64(1), f.metrics.Snapshot().SubmissionsTimedOut)

	require.ErrorIs(t, f.submit(context.Background()), checkoutApplication.ErrSessionUnavailable)
	require.Equal(t, int32(1), f.gateway.submits.Load())
}

func TestSubmitCardInfo_BrokenPSPExhaustsBudget(t *testing.T) {
	f := newFixture(t, nil)
	f.gateway.pollFn = func(context.Context, int) (domainPayment.StatusReport, error) {
		return domainPayment.StatusReport{}, errors.New("502 bad gateway")
	}

	err := f.submit(context.Background())

	require.ErrorIs(t, err, domainPayment.ErrTimeout)
	require.Equal(t, int32(20), f.gateway.polls.Load())
	require.Equal(t, uint64(20), f.metrics.Snapshot().PollErrors)
}

func TestSubmitCardInfo_TransientPollErrorsAreRetried(t *testing.T) {
	f := newFixture(t, nil)
	f.gateway.pollFn = func(_ context.Context, n int) (domainPayment.StatusReport, error) {
		if n <= 2 {
			return domainPayment.StatusReport{}, errors.New("connection reset")
		}
		return domainPayment.StatusReport{Status: domainPayment.StatusSuccess}, nil
	}

	require.NoError(t, f.submit(context.Background()))
	require.Equal(t, uint64(2), f.metrics.Snapshot().PollErrors)
	require.Equal(t, domainTransaction.StatusCompleted, f.status(t))
}

func TestSubmitCardInfo_FailureReleasesClaim(t *testing.T) {
	f := newFixture(t, nil)
	f.gateway.pollFn = func(_ context.Context, n int) (domainPayment.StatusReport, error) {
		if n == 1 {
			return domainPayment.StatusReport{Status: domainPayment.StatusFailure, Reason: "insufficient funds"}, nil
		}
		return domainPayment.StatusReport{Status: domainPayment.StatusSuccess}, nil
	}

	err := f.submit(context.Background())

	var rejected *domainPayment.RejectedError
	require.ErrorAs(t, err, &rejected)
	require.Equal(t, "insufficient funds", rejected.Reason)
	require.Equal(t, domainTransaction.StatusFailed, f.status(t))
	require.Nil(t, f.currentPage(t).ClaimedAt)
	require.Nil(t, f.currentPage(t).CompletedAt)

	require.NoError(t, f.submit(context.Background()))
	require.Equal(t, domainTransaction.StatusCompleted, f.status(t))
	require.Equal(t, []event.Type{
		event.PaymentAttempt,
		event.TransactionFailed,
		event.PaymentAttempt,
		event.TransactionCompleted,
	}, f.eventTypes(t))
}

func TestSubmitCardInfo_RejectedAtSubmit(t *testing.T) {
	f := newFixture(t, nil)
	f.gateway.submitFn = func(context.Context, domainPayment.Authorization) (string, error) {
		return "", &domainPayment.RejectedError{Reason: "card number not recognized", AtSubmit: true}
	}
	f.gateway.pollFn = func(context.Context, int) (domainPayment.StatusReport, error) {
		t.Fatal("must not poll after a rejected submission")
		return domainPayment.StatusReport{}, nil
	}

	err := f.submit(context.Background())

	var rejected *domainPayment.RejectedError
	require.ErrorAs(t, err, &rejected)
	require.Equal(t, domainTransaction.StatusFailed, f.status(t))
	require.Nil(t, f.currentPage(t).ClaimedAt)
	require.Equal(t, uint64(1), f.metrics.Snapshot().SubmissionsFailed)
}

func TestSubmitCardInfo_UnknownURI(t *testing.T) {
	f := newFixture(t, nil)

	err := f.orchestrator.SubmitCardInfo(context.Background(), "nope", domainPayment.Card{})

	require.ErrorIs(t, err, checkoutApplication.ErrSessionNotFound)
	require.Equal(t, int32(0), f.gateway.submits.Load())
}

func TestSubmitCardInfo_ExpiredSession(t *testing.T) {
	expires := start.Add(-time.Minute)
	f := newFixture(t, &expires)

	require.ErrorIs(t, f.submit(context.Background()), checkoutApplication.ErrSessionExpired)
	require.Equal(t, int32(0), f.gateway.submits.Load())
	require.Equal(t, domainTransaction.StatusCreated, f.status(t))
}

func TestSubmitCardInfo_CancelledWhilePolling(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.gateway.pollFn = func(context.Context, int) (domainPayment.StatusReport, error) {
		cancel()
		return waiting()
	}

	err := f.submit(ctx)

	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, int32(1), f.gateway.polls.Load())
	require.Nil(t, f.currentPage(t).CompletedAt)
}

func TestSubmitCardInfo_SuccessRecordedAfterCallerLeaves(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.gateway.pollFn = func(context.Context, int) (domainPayment.StatusReport, error) {
		cancel()
		return domainPayment.StatusReport{Status: domainPayment.StatusSuccess}, nil
	}

	require.NoError(t, f.submit(ctx))

	require.NotNil(t, f.currentPage(t).CompletedAt)
	require.Equal(t, domainTransaction.StatusCompleted, f.status(t))
	require.Equal(t, []event.Type{event.PaymentAttempt, event.TransactionCompleted}, f.eventTypes(t))
}

func TestSubmitCardInfo_FailureRecordedAfterCallerLeaves(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.gateway.pollFn = func(context.Context, int) (domainPayment.StatusReport, error) {
		cancel()
		return domainPayment.StatusReport{Status: domainPayment.StatusFailure, Reason: "card declined"}, nil
	}

	var rejected *domainPayment.RejectedError
	require.ErrorAs(t, f.submit(ctx), &rejected)

	require.Equal(t, domainTransaction.StatusFailed, f.status(t))
	require.Nil(t, f.currentPage(t).ClaimedAt)

	require.ErrorAs(t, f.submit(context.Background()), &rejected)
	require.Equal(t, int32(2), f.gateway.submits.Load())
}

func TestSubmitCardInfo_CancelledSubmitReleasesClaim(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.gateway.submitFn = func(ctx context.Context, _ domainPayment.Authorization) (string, error) {
		cancel()
		return "", ctx.Err()
	}

	require.ErrorIs(t, f.submit(ctx), context.Canceled)

	require.Equal(t, domainTransaction.StatusFailed, f.status(t))
	require.Nil(t, f.currentPage(t).ClaimedAt)
	require.Equal(t, []event.Type{event.PaymentAttempt, event.TransactionFailed}, f.eventTypes(t))
}
