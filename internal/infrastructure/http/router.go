package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infra/metrics"
)

type Routes struct {
	Transactions *TransactionHandler
	Checkout     *CheckoutHandler
	Auth         *Authenticator
	Limiter      *IPRateLimiter
	Metrics      *metrics.Counters
}

func NewRouter(rt Routes) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(limitBody)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, rt.Metrics.Snapshot())
	})

	r.Route("/payments", func(r chi.Router) {
		r.With(rt.Auth.Middleware).Post("/transactions", rt.Transactions.CreateTransaction)
		r.With(rt.Limiter.Middleware).Post("/submit-card-infos", rt.Checkout.SubmitCardInfos)
		r.Get("/checkout-pages/{uri}", rt.Checkout.GetCheckoutPage)
	})

	return r
}
