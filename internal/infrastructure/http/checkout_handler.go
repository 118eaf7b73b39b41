package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	checkoutApplication "github.com/rcarvalho-pb/checkout_gateway-go/internal/application/checkout"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/money"
	domainPayment "github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/payment"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infra/clock"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infra/logging"
)

type CardSubmitter interface {
	SubmitCardInfo(ctx context.Context, uri string, card domainPayment.Card) error
}

type SessionReader interface {
	ResolveByURI(ctx context.Context, uri string) (*checkoutApplication.Session, error)
}

// CheckoutHandler serves the payer-facing endpoints. They are public.
type CheckoutHandler struct {
	Payments CardSubmitter
	Sessions SessionReader
	Clock    clock.Clock
	Logger   logging.Logger
}

type SubmitCardRequest struct {
	Provider   string `json:"provider"`
	HolderName string `json:"holderName"`
	CardNumber string `json:"cardNumber"`
	Month      int    `json:"month"`
	Year       int    `json:"year"`
	CVV        string `json:"cvv"`
}

type checkoutPageView struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transactionId"`
	Amount        json.Number     `json:"amount"`
	Currency      string          `json:"currency"`
	Reference     string          `json:"reference"`
	ThemeID       string          `json:"themeId"`
	DisplayData   json.RawMessage `json:"displayData,omitempty"`
	ExpiresAt     *time.Time      `json:"expiresAt"`
	CompletedAt   *time.Time      `json:"completedAt"`
	Usable        bool            `json:"usable"`
}

func (h *CheckoutHandler) SubmitCardInfos(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		writeError(w, r, h.Logger, &requestError{msg: "Query parameter uri is required."})
		return
	}

	body, err := readBody(r)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	if err := validateBody(submitCardLoader, body); err != nil {
		writeError(w, r, h.Logger, err)
		return
	}

	var req SubmitCardRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, r, h.Logger, &requestError{msg: "Invalid request: " + err.Error() + "."})
		return
	}

	provider, _ := domainPayment.ParseBrand(req.Provider)
	card := domainPayment.Card{
		Provider:   provider,
		HolderName: req.HolderName,
		Number:     req.CardNumber,
		Month:      req.Month,
		Year:       req.Year,
		CVV:        req.CVV,
	}

	if err := h.Payments.SubmitCardInfo(r.Context(), uri, card); err != nil {
		writeError(w, r, h.Logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *CheckoutHandler) GetCheckoutPage(w http.ResponseWriter, r *http.Request) {
	session, err := h.Sessions.ResolveByURI(r.Context(), chi.URLParam(r, "uri"))
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}

	page, tx := session.Page, session.Transaction
	amount := money.FromMinor(tx.Amount, tx.Currency)

	writeJSON(w, http.StatusOK, dataBody{Data: checkoutPageView{
		ID:            page.ID,
		TransactionID: tx.ID,
		Amount:        json.Number(amount.StringFixed(money.MinorUnits(tx.Currency))),
		Currency:      tx.Currency,
		Reference:     tx.Reference,
		ThemeID:       page.ThemeID,
		DisplayData:   page.DisplayData,
		ExpiresAt:     page.ExpiresAt,
		CompletedAt:   page.CompletedAt,
		Usable:        page.Usable(h.Clock.Now()),
	}})
}
