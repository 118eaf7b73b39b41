package psp

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/payment"
)

// Decision is how a simulated authorization eventually resolves.
type Decision struct {
	Status payment.Status
	Reason string
}

// RandomDecision approves 70% of payments.
func RandomDecision(string) Decision {
	if rand.Intn(100) < 70 {
		return Decision{Status: payment.StatusSuccess}
	}
	return Decision{Status: payment.StatusFailure, Reason: "insufficient funds"}
}

type simulatedPayment struct {
	decision Decision
	polls    int
}

// Simulator is a local stand-in for the PSP. Payments answer "waiting" for
// WaitPolls polls and then report the outcome chosen by Decide.
type Simulator struct {
	WaitPolls int
	Decide    func(cardNumber string) Decision

	mu       sync.Mutex
	payments map[string]*simulatedPayment
}

func NewSimulator(waitPolls int, decide func(string) Decision) *Simulator {
	if decide == nil {
		decide = RandomDecision
	}
	return &Simulator{
		WaitPolls: waitPolls,
		Decide:    decide,
		payments:  make(map[string]*simulatedPayment),
	}
}

func (s *Simulator) Handler() http.Handler {
	r := chi.NewRouter()
	r.Post("/pay", s.pay)
	r.Get("/payments/{id}/status", s.status)
	return r
}

func (s *Simulator) pay(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	number := req.PaymentMethod.CardNumber
	brand := payment.DetectBrand(number)
	if brand == payment.BrandUnknown || !payment.LuhnValid(number) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "card number not recognized"})
		return
	}
	if declared, ok := payment.ParseBrand(req.PaymentMethod.Type); ok && declared != brand {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "card number does not match provider " + string(declared)})
		return
	}

	id := uuid.NewString()

	s.mu.Lock()
	s.payments[id] = &simulatedPayment{decision: s.Decide(number)}
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, payResponse{ID: id})
}

func (s *Simulator) status(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	p, ok := s.payments[id]
	var (
		polls    int
		decision Decision
	)
	if ok {
		p.polls++
		polls, decision = p.polls, p.decision
	}
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "payment not found"})
		return
	}

	if polls <= s.WaitPolls {
		writeJSON(w, http.StatusOK, statusResponse{Status: string(payment.StatusWaiting)})
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Status: string(decision.Status),
		Error:  decision.Reason,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
