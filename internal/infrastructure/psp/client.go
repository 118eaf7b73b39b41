package psp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/money"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/payment"
)

var ErrUnavailable = errors.New("psp unavailable")

// Client speaks the PSP's JSON API. It does no business logic.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type payRequest struct {
	Amount        json.Number   `json:"amount"`
	Currency      string        `json:"currency"`
	PaymentMethod paymentMethod `json:"paymentMethod"`
}

type paymentMethod struct {
	Type       string `json:"type"`
	CardNumber string `json:"cardNumber"`
	ExpiryDate string `json:"expiryDate"`
	CVV        string `json:"cvv"`
	HolderName string `json:"holderName"`
}

type payResponse struct {
	ID string `json:"id"`
}

type statusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Submit sends the card for authorization and returns the PSP payment id.
// A 4xx answer is a card rejection; anything else unexpected is ErrUnavailable.
func (c *Client) Submit(ctx context.Context, auth payment.Authorization) (string, error) {
	body, err := json.Marshal(payRequest{
		Amount:   json.Number(auth.Amount.StringFixed(money.MinorUnits(auth.Currency))),
		Currency: auth.Currency,
		PaymentMethod: paymentMethod{
			Type:       string(auth.Card.Provider),
			CardNumber: auth.Card.Number,
			ExpiryDate: auth.Card.ExpiryDate(),
			CVV:        auth.Card.CVV,
			HolderName: auth.Card.HolderName,
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/pay", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var out payResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", fmt.Errorf("%w: decode pay response: %w", ErrUnavailable, err)
		}
		if out.ID == "" {
			return "", fmt.Errorf("%w: empty payment id", ErrUnavailable)
		}
		return out.ID, nil

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return "", &payment.RejectedError{Reason: readReason(resp.Body), AtSubmit: true}

	default:
		return "", fmt.Errorf("%w: pay returned %d", ErrUnavailable, resp.StatusCode)
	}
}

// PollStatus reads the current authorization state. Every failure here is
// transport-level and safe to retry.
func (c *Client) PollStatus(ctx context.Context, paymentID string) (payment.StatusReport, error) {
	endpoint := c.BaseURL + "/payments/" + url.PathEscape(paymentID) + "/status"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return payment.StatusReport{}, err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return payment.StatusReport{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return payment.StatusReport{}, fmt.Errorf("status poll returned %d", resp.StatusCode)
	}

	var out statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return payment.StatusReport{}, fmt.Errorf("decode status: %w", err)
	}

	switch s := payment.Status(out.Status); s {
	case payment.StatusWaiting, payment.StatusSuccess, payment.StatusFailure:
		return payment.StatusReport{Status: s, Reason: out.Error}, nil
	default:
		return payment.StatusReport{}, fmt.Errorf("unknown payment status %q", out.Status)
	}
}

func readReason(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}

	var e errorResponse
	if json.Unmarshal(b, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(b))
}
