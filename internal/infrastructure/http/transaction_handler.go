package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	transactionApplication "github.com/rcarvalho-pb/checkout_gateway-go/internal/application/transaction"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infra/logging"
)

type TransactionCreator interface {
	CreateTransaction(ctx context.Context, req transactionApplication.CreateRequest) (*transactionApplication.Created, error)
}

type TransactionHandler struct {
	Service TransactionCreator
	Logger  logging.Logger
}

type CreateTransactionRequest struct {
	Amount       decimal.Decimal   `json:"amount"`
	Currency     string            `json:"currency"`
	Reference    string            `json:"reference"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	ExpiresAt    *time.Time        `json:"expiresAt,omitempty"`
	CheckoutPage json.RawMessage   `json:"checkoutPage"`
}

type checkoutPageRequest struct {
	ThemeID string `json:"themeId"`
}

type createdTransaction struct {
	ID  string `json:"id"`
	URI string `json:"uri"`
}

func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	merchant, ok := MerchantFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Missing or malformed authorization."})
		return
	}

	body, err := readBody(r)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	if err := validateBody(createTransactionLoader, body); err != nil {
		writeError(w, r, h.Logger, err)
		return
	}

	var req CreateTransactionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, r, h.Logger, &requestError{msg: "Invalid request: " + err.Error() + "."})
		return
	}
	var page checkoutPageRequest
	if err := json.Unmarshal(req.CheckoutPage, &page); err != nil {
		writeError(w, r, h.Logger, &requestError{msg: "Invalid request: checkoutPage is malformed."})
		return
	}

	created, err := h.Service.CreateTransaction(r.Context(), transactionApplication.CreateRequest{
		Amount:      req.Amount,
		Currency:    req.Currency,
		Reference:   req.Reference,
		Metadata:    req.Metadata,
		ExpiresAt:   req.ExpiresAt,
		ThemeID:     page.ThemeID,
		DisplayData: req.CheckoutPage,
		StoreID:     merchant.StoreID,
		SessionID:   merchant.SessionID,
	})
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}

	w.Header().Set("Location", "/transactions/"+created.TransactionID)
	writeJSON(w, http.StatusCreated, dataBody{Data: createdTransaction{
		ID:  created.TransactionID,
		URI: created.CheckoutURI,
	}})
}
