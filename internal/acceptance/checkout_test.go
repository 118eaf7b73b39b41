package acceptance_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cucumber/godog"
	_ "modernc.org/sqlite"

	checkoutApplication "github.com/rcarvalho-pb/checkout_gateway-go/internal/application/checkout"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/application/payment"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/application/policy"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/application/transaction"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/application/worker"
	domainCheckout "github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/checkout"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/event"
	domainPayment "github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/payment"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infra/clock"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infra/logging"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infra/metrics"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infrastructure/eventbus"
	httpapi "github.com/rcarvalho-pb/checkout_gateway-go/internal/infrastructure/http"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infrastructure/outbox"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infrastructure/persistence/sqlite"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infrastructure/psp"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infrastructure/rates"
)

var jwtSecret = []byte("acceptance-secret")

const rateTable = `{"result":"success","base_code":"EUR","rates":{"EUR":1,"USD":1.10,"JPY":160,"KWD":0.33,"GBP":0.85}}`

type checkoutWorld struct {
	db         *sql.DB
	router     http.Handler
	events     *sqlite.EventStore
	dispatcher *outbox.Dispatcher
	published  int

	ratesServer *httptest.Server
	pspServer   *httptest.Server
	simulator   *psp.Simulator

	response *httptest.ResponseRecorder
	body     map[string]any
	lastTxID string
	lastURI  string
}

func (w *checkoutWorld) setUp() error {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return err
	}
	db.SetMaxOpenConns(1)
	if err := sqlite.RunMigrations(db); err != nil {
		return err
	}
	w.db = db

	w.ratesServer = httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		rw.Write([]byte(rateTable))
	}))
	w.simulator = psp.NewSimulator(0, approve)
	w.pspServer = httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		w.simulator.Handler().ServeHTTP(rw, r)
	}))

	clk := clock.NewFake(time.Now().UTC())
	counters := &metrics.Counters{}
	logger := logging.Nop{}

	transactions := sqlite.NewTransactionRepository(db)
	outboxRepo := outbox.NewSQLiteRepository(db)
	w.events = sqlite.NewEventStore(db)

	journal := &transaction.Journal{
		Transactions: transactions,
		Events:       w.events,
		Recorder:     &outbox.Recorder{Repo: outboxRepo},
		Clock:        clk,
	}
	sessions := &checkoutApplication.Manager{
		Pages:        sqlite.NewCheckoutRepository(db),
		Transactions: transactions,
		Clock:        clk,
	}

	bus := eventbus.NewInMemoryBus()
	bus.SubscribeAll(func(context.Context, event.Event) error {
		w.published++
		return nil
	})
	w.dispatcher = &outbox.Dispatcher{
		Repo:      outboxRepo,
		EventBus:  bus,
		Logger:    logger,
		BatchSize: 100,
	}

	w.router = httpapi.NewRouter(httpapi.Routes{
		Transactions: &httpapi.TransactionHandler{
			Service: &transaction.Service{
				Policy: policy.NewService(&rates.CachedProvider{
					Next:   rates.NewHTTPProvider(w.ratesServer.URL, time.Second),
					Cache:  rates.NewMemoryCache(clk),
					TTL:    time.Minute,
					Logger: logger,
				}, "EUR", 1_000_000),
				Transactions: transactions,
				Themes:       sqlite.NewThemeRepository(db),
				Checkouts:    sessions,
				Journal:      journal,
				Clock:        clk,
				Logger:       logger,
				Metrics:      counters,
			},
			Logger: logger,
		},
		Checkout: &httpapi.CheckoutHandler{
			Payments: &payment.Orchestrator{
				Sessions: sessions,
				Gateway:  psp.NewClient(w.pspServer.URL, time.Second),
				Trail:    journal,
				Poller:   worker.NewPoller(20, time.Second, clk, logger, counters),
				Logger:   logger,
				Metrics:  counters,
			},
			Sessions: sessions,
			Clock:    clk,
			Logger:   logger,
		},
		Auth:    &httpapi.Authenticator{Secret: jwtSecret},
		Limiter: httpapi.NewIPRateLimiter(1000, 1000),
		Metrics: counters,
	})
	return nil
}

func (w *checkoutWorld) tearDown() {
	if w.pspServer != nil {
		w.pspServer.Close()
	}
	if w.ratesServer != nil {
		w.ratesServer.Close()
	}
	if w.db != nil {
		w.db.Close()
	}
	*w = checkoutWorld{}
}

func approve(string) psp.Decision {
	return psp.Decision{Status: domainPayment.StatusSuccess}
}

func (w *checkoutWorld) do(method, target, body, token string) error {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w.response = httptest.NewRecorder()
	w.router.ServeHTTP(w.response, req)

	w.body = nil
	if w.response.Body.Len() > 0 {
		if err := json.Unmarshal(w.response.Body.Bytes(), &w.body); err != nil {
			return fmt.Errorf("decode response %q: %w", w.response.Body.String(), err)
		}
	}
	return nil
}

func (w *checkoutWorld) aStoreWithTheme(storeID, themeID string) error {
	return sqlite.NewThemeRepository(w.db).Save(context.Background(), &domainCheckout.Theme{
		ID:        themeID,
		Name:      "default",
		Version:   "1",
		StoreID:   storeID,
		CreatedAt: time.Now().UTC(),
	})
}

func (w *checkoutWorld) aPSPThatApprovesAfter(polls int) error {
	w.simulator = psp.NewSimulator(polls, approve)
	return nil
}

func (w *checkoutWorld) aPSPThatNeverResolves() error {
	w.simulator = psp.NewSimulator(1_000, approve)
	return nil
}

func (w *checkoutWorld) aPSPThatDeclines(reason string) error {
	w.simulator = psp.NewSimulator(0, func(string) psp.Decision {
		return psp.Decision{Status: domainPayment.StatusFailure, Reason: reason}
	})
	return nil
}

func (w *checkoutWorld) storeCreatesTransaction(storeID, amount, currency, themeID string) error {
	token, err := httpapi.SignMerchantToken(jwtSecret, storeID, "sess-"+storeID, time.Hour)
	if err != nil {
		return err
	}

	body := fmt.Sprintf(`{"amount":%s,"currency":%q,"reference":"order-1","checkoutPage":{"themeId":%q,"title":"Order 1"}}`,
		amount, currency, themeID)
	if err := w.do(http.MethodPost, "/payments/transactions", body, token); err != nil {
		return err
	}

	if data, ok := w.body["data"].(map[string]any); ok {
		w.lastTxID, _ = data["id"].(string)
		w.lastURI, _ = data["uri"].(string)
	}
	return nil
}

func (w *checkoutWorld) storeCreatedTransaction(storeID, amount, currency, themeID string) error {
	if err := w.storeCreatesTransaction(storeID, amount, currency, themeID); err != nil {
		return err
	}
	return w.theResponseStatusIs(http.StatusCreated)
}

func (w *checkoutWorld) payerSubmitsCard(provider, number string) error {
	return w.payerSubmitsCardTo(provider, number, w.lastURI)
}

func (w *checkoutWorld) payerSubmitsCardTo(provider, number, uri string) error {
	body := fmt.Sprintf(`{"provider":%q,"holderName":"Jane Doe","cardNumber":%q,"month":12,"year":2030,"cvv":"123"}`,
		provider, number)
	return w.do(http.MethodPost, "/payments/submit-card-infos?uri="+uri, body, "")
}

func (w *checkoutWorld) theResponseStatusIs(status int) error {
	if w.response.Code != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, w.response.Code, w.response.Body.String())
	}
	return nil
}

func (w *checkoutWorld) theResponseErrorIs(msg string) error {
	if got := w.body["error"]; got != msg {
		return fmt.Errorf("expected error %q, got %v", msg, got)
	}
	return nil
}

func (w *checkoutWorld) theResponseReasonIs(reason string) error {
	if got := w.body["reason"]; got != reason {
		return fmt.Errorf("expected reason %q, got %v", reason, got)
	}
	return nil
}

func (w *checkoutWorld) theResponseHasLocation() error {
	want := "/transactions/" + w.lastTxID
	if got := w.response.Header().Get("Location"); w.lastTxID == "" || got != want {
		return fmt.Errorf("expected Location %q, got %q", want, got)
	}
	return nil
}

func (w *checkoutWorld) thePaymentIsReportedSuccessful() error {
	if w.body["success"] != true {
		return fmt.Errorf("expected success, got %s", w.response.Body.String())
	}
	return nil
}

func (w *checkoutWorld) checkoutPage() (map[string]any, error) {
	rec := httptest.NewRecorder()
	w.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payments/checkout-pages/"+w.lastURI, nil))
	if rec.Code != http.StatusOK {
		return nil, fmt.Errorf("checkout page lookup returned %d", rec.Code)
	}

	var out struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (w *checkoutWorld) theCheckoutPageShowsCurrency(currency string) error {
	page, err := w.checkoutPage()
	if err != nil {
		return err
	}
	if page["currency"] != currency {
		return fmt.Errorf("expected currency %q, got %v", currency, page["currency"])
	}
	return nil
}

func (w *checkoutWorld) theCheckoutPageIsCompleted() error {
	page, err := w.checkoutPage()
	if err != nil {
		return err
	}
	if page["completedAt"] == nil {
		return fmt.Errorf("expected completedAt to be set")
	}
	return nil
}

func (w *checkoutWorld) theCheckoutPageIsNotCompleted() error {
	page, err := w.checkoutPage()
	if err != nil {
		return err
	}
	if page["completedAt"] != nil {
		return fmt.Errorf("expected completedAt to be null, got %v", page["completedAt"])
	}
	return nil
}

func (w *checkoutWorld) theTransactionHasEvents(count int, typ string) error {
	events, err := w.events.ListByTransaction(context.Background(), w.lastTxID)
	if err != nil {
		return err
	}

	n := 0
	for _, e := range events {
		if e.Type() == event.Type(typ) {
			n++
		}
	}
	if n != count {
		return fmt.Errorf("expected %d %s events, got %d", count, typ, n)
	}
	return nil
}

func (w *checkoutWorld) theOutboxPublishes(count int) error {
	w.dispatcher.DispatchOnce(context.Background())
	if w.published != count {
		return fmt.Errorf("expected %d published events, got %d", count, w.published)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	w := &checkoutWorld{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		return ctx, w.setUp()
	})
	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		w.tearDown()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^a store "([^"]*)" with checkout theme "([^"]*)"$`, w.aStoreWithTheme)
	ctx.Step(`^a PSP that approves payments after (\d+) pending polls$`, w.aPSPThatApprovesAfter)
	ctx.Step(`^a PSP that never resolves payments$`, w.aPSPThatNeverResolves)
	ctx.Step(`^a PSP that declines payments with reason "([^"]*)"$`, w.aPSPThatDeclines)
	ctx.Step(`^store "([^"]*)" created a transaction of (-?[0-9.]+) "([^"]*)" with theme "([^"]*)"$`, w.storeCreatedTransaction)

	// When steps
	ctx.Step(`^store "([^"]*)" creates a transaction of (-?[0-9.]+) "([^"]*)" with theme "([^"]*)"$`, w.storeCreatesTransaction)
	ctx.Step(`^the payer submits "([^"]*)" card "([^"]*)"$`, w.payerSubmitsCard)
	ctx.Step(`^the payer submits "([^"]*)" card "([^"]*)" to checkout page "([^"]*)"$`, w.payerSubmitsCardTo)

	// Then steps
	ctx.Step(`^the response status is (\d+)$`, w.theResponseStatusIs)
	ctx.Step(`^the response error is "([^"]*)"$`, w.theResponseErrorIs)
	ctx.Step(`^the response reason is "([^"]*)"$`, w.theResponseReasonIs)
	ctx.Step(`^the response has a Location header for the transaction$`, w.theResponseHasLocation)
	ctx.Step(`^the payment is reported successful$`, w.thePaymentIsReportedSuccessful)
	ctx.Step(`^the checkout page shows currency "([^"]*)"$`, w.theCheckoutPageShowsCurrency)
	ctx.Step(`^the checkout page is completed$`, w.theCheckoutPageIsCompleted)
	ctx.Step(`^the checkout page is not completed$`, w.theCheckoutPageIsNotCompleted)
	ctx.Step(`^the transaction has exactly (\d+) "([^"]*)" events?$`, w.theTransactionHasEvents)
	ctx.Step(`^the outbox publishes (\d+) events?$`, w.theOutboxPublishes)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"../../features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
