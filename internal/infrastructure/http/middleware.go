package httpapi

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 1 << 20

// Merchant is the authenticated caller of the merchant API.
type Merchant struct {
	StoreID   string
	SessionID string
}

type merchantKey struct{}

func MerchantFrom(ctx context.Context) (Merchant, bool) {
	m, ok := ctx.Value(merchantKey{}).(Merchant)
	return m, ok
}

// MerchantClaims is the bearer token payload issued by the merchant dashboard.
type MerchantClaims struct {
	StoreID   string `json:"store_id"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Authenticator checks HMAC-signed merchant tokens.
type Authenticator struct {
	Secret []byte
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Missing or malformed authorization."})
			return
		}

		claims := &MerchantClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(*jwt.Token) (any, error) {
			return a.Secret, nil
		}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
		if err != nil || !token.Valid {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Invalid token."})
			return
		}
		if claims.StoreID == "" {
			writeJSON(w, http.StatusForbidden, errorBody{Error: "Session is not bound to a store."})
			return
		}

		ctx := context.WithValue(r.Context(), merchantKey{}, Merchant{
			StoreID:   claims.StoreID,
			SessionID: claims.SessionID,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SignMerchantToken issues a token for the given store. Used by tooling and tests.
func SignMerchantToken(secret []byte, storeID, sessionID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := MerchantClaims{
		StoreID:   storeID,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

type ipLimiter struct {
	limiter *rate.Limiter
	last    time.Time
}

// IPRateLimiter keeps one token bucket per client address.
type IPRateLimiter struct {
	RPS   float64
	Burst int

	mu       sync.Mutex
	limiters map[string]*ipLimiter
}

func NewIPRateLimiter(rps float64, burst int) *IPRateLimiter {
	return &IPRateLimiter{
		RPS:      rps,
		Burst:    burst,
		limiters: make(map[string]*ipLimiter),
	}
}

func (l *IPRateLimiter) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	il, ok := l.limiters[ip]
	if !ok {
		il = &ipLimiter{limiter: rate.NewLimiter(rate.Limit(l.RPS), l.Burst)}
		l.limiters[ip] = il
	}
	il.last = now
	return il.limiter.AllowN(now, 1)
}

// Prune drops limiters idle for longer than idle.
func (l *IPRateLimiter) Prune(now time.Time, idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for ip, il := range l.limiters {
		if now.Sub(il.last) > idle {
			delete(l.limiters, ip)
			removed++
		}
	}
	return removed
}

// Run prunes idle limiters every interval until ctx is done.
func (l *IPRateLimiter) Run(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.Prune(now, idle)
		}
	}
}

func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(remoteIP(r), time.Now()) {
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "Too many requests."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// remoteIP expects middleware.RealIP to have run first.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		next.ServeHTTP(w, r)
	})
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return nil, &requestError{msg: "Request body is too large."}
	}
	return body, err
}
