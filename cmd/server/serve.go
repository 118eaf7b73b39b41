package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcarvalho-pb/checkout_gateway-go/internal/application/checkout"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/application/contracts"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/application/payment"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/application/policy"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/application/transaction"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/application/worker"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infra/clock"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infra/config"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infra/logging"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infra/metrics"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infrastructure/eventbus"
	httpapi "github.com/rcarvalho-pb/checkout_gateway-go/internal/infrastructure/http"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infrastructure/outbox"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infrastructure/persistence/sqlite"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infrastructure/psp"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infrastructure/rates"
)

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the checkout HTTP API and the outbox dispatcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			logger, err := logging.NewProduction()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := sqlite.RunMigrations(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	clk := clock.System{}
	counters := &metrics.Counters{}

	transactionRepo := sqlite.NewTransactionRepository(db)
	checkoutRepo := sqlite.NewCheckoutRepository(db)
	outboxRepo := outbox.NewSQLiteRepository(db)

	rateCache, closeCache := newRateCache(cfg, clk)
	defer closeCache()

	policyService := policy.NewService(&rates.CachedProvider{
		Next:   rates.NewHTTPProvider(cfg.Rates.BaseURL, cfg.Rates.Timeout),
		Cache:  rateCache,
		TTL:    cfg.Rates.CacheTTL,
		Logger: logger,
	}, cfg.Policy.ReferenceCurrency, cfg.Policy.Ceiling)

	journal := &transaction.Journal{
		Transactions: transactionRepo,
		Events:       sqlite.NewEventStore(db),
		Recorder:     &outbox.Recorder{Repo: outboxRepo},
		Clock:        clk,
	}

	sessions := &checkout.Manager{
		Pages:        checkoutRepo,
		Transactions: transactionRepo,
		Clock:        clk,
	}

	transactionService := &transaction.Service{
		Policy:       policyService,
		Transactions: transactionRepo,
		Themes:       sqlite.NewThemeRepository(db),
		Checkouts:    sessions,
		Journal:      journal,
		Clock:        clk,
		Logger:       logger,
		Metrics:      counters,
	}

	orchestrator := &payment.Orchestrator{
		Sessions: sessions,
		Gateway:  psp.NewClient(cfg.PSP.BaseURL, cfg.PSP.Timeout),
		Trail:    journal,
		Poller:   worker.NewPoller(cfg.Polling.MaxAttempts, cfg.Polling.Interval, clk, logger, counters),
		Logger:   logger,
		Metrics:  counters,
	}

	publisher, closePublisher := newPublisher(cfg, logger, counters)
	defer closePublisher()

	dispatcher := &outbox.Dispatcher{
		Repo:         outboxRepo,
		EventBus:     publisher,
		Logger:       logger,
		PollInterval: cfg.Outbox.PollInterval,
		BatchSize:    cfg.Outbox.BatchSize,
	}
	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		dispatcher.Run(ctx)
	}()

	limiter := httpapi.NewIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	go limiter.Run(ctx, 5*time.Minute, 30*time.Minute)

	router := httpapi.NewRouter(httpapi.Routes{
		Transactions: &httpapi.TransactionHandler{
			Service: transactionService,
			Logger:  logger,
		},
		Checkout: &httpapi.CheckoutHandler{
			Payments: orchestrator,
			Sessions: sessions,
			Clock:    clk,
			Logger:   logger,
		},
		Auth:    &httpapi.Authenticator{Secret: []byte(cfg.Auth.JWTSecret)},
		Limiter: limiter,
		Metrics: counters,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("checkout gateway listening", map[string]any{
		"addr":     cfg.HTTP.Addr,
		"database": cfg.Database.Path,
	})
	err = listen(ctx, srv)

	// Stop the dispatcher before the database closes.
	cancel()
	<-dispatched
	return err
}

func newRateCache(cfg *config.Config, clk clock.Clock) (rates.Cache, func()) {
	if cfg.Redis.Addr == "" {
		return rates.NewMemoryCache(clk), func() {}
	}
	cache := rates.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	return cache, func() { cache.Close() }
}

// newPublisher sends outbox events to Kafka when brokers are configured and
// to the in-process bus otherwise.
func newPublisher(cfg *config.Config, logger logging.Logger, counters *metrics.Counters) (contracts.EventPublisher, func()) {
	if len(cfg.Kafka.Brokers) > 0 {
		publisher := &eventbus.KafkaPublisher{
			Writer: eventbus.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic),
		}
		return publisher, func() { publisher.Close() }
	}

	bus := eventbus.NewInMemoryBus()
	handler := &transaction.EventHandler{Logger: logger, Metrics: counters}
	bus.SubscribeAll(handler.Handle)
	return bus, func() {}
}
