package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	checkoutApplication "github.com/rcarvalho-pb/checkout_gateway-go/internal/application/checkout"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/application/policy"
	transactionApplication "github.com/rcarvalho-pb/checkout_gateway-go/internal/application/transaction"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/money"
	domainPayment "github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/payment"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infra/logging"
)

const timeoutMessage = "Payment processing timed out."

type errorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

type dataBody struct {
	Data any `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError is the only place errors become HTTP responses. Anything it
// does not recognize is logged and answered with an opaque 500.
func writeError(w http.ResponseWriter, r *http.Request, logger logging.Logger, err error) {
	var (
		policyErr  *policy.Error
		rejected   *domainPayment.RejectedError
		badRequest *requestError
	)

	switch {
	case errors.As(err, &badRequest):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: badRequest.msg})
	case errors.As(err, &policyErr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: policyErr.Error()})
	case errors.Is(err, money.ErrTooPrecise):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, transactionApplication.ErrThemeNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Checkout theme not found."})
	case errors.Is(err, checkoutApplication.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Checkout page not found."})
	case errors.Is(err, checkoutApplication.ErrSessionExpired):
		writeJSON(w, http.StatusGone, errorBody{Error: "Checkout page has expired."})
	case errors.Is(err, checkoutApplication.ErrSessionUnavailable):
		writeJSON(w, http.StatusConflict, errorBody{Error: "Checkout page is no longer available."})
	case errors.As(err, &rejected):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Payment was rejected.", Reason: rejected.Reason})
	case errors.Is(err, domainPayment.ErrTimeout):
		writeJSON(w, http.StatusRequestTimeout, errorBody{Error: timeoutMessage})
	default:
		logger.Error("request failed", map[string]any{
			"method": r.Method,
			"path":   r.URL.Path,
			"error":  err,
		})
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}
