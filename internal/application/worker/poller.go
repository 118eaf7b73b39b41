package worker

import (
	"context"
	"errors"
	"maps"
	"time"

	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infra/clock"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infra/logging"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infra/metrics"
)

var ErrBudgetExhausted = errors.New("poll budget exhausted")

// AttemptFunc performs one poll. Returning done stops the loop. A non-nil
// error is transient: it is logged and the next attempt runs.
type AttemptFunc func(ctx context.Context, attempt int) (done bool, err error)

// Poller repeats an attempt until it reports done or MaxAttempts is reached,
// waiting Interval before every attempt.
type Poller struct {
	MaxAttempts int
	Interval    time.Duration
	Clock       clock.Clock
	Logger      logging.Logger
	Metrics     *metrics.Counters
}

func NewPoller(maxAttempts int, interval time.Duration, c clock.Clock, logger logging.Logger, m *metrics.Counters) *Poller {
	return &Poller{
		MaxAttempts: maxAttempts,
		Interval:    interval,
		Clock:       c,
		Logger:      logger,
		Metrics:     m,
	}
}

// Poll returns nil once fn reports done, ErrBudgetExhausted when every attempt
// ran without resolution, or ctx.Err() when the caller goes away.
func (p *Poller) Poll(ctx context.Context, fields map[string]any, fn AttemptFunc) error {
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := p.Clock.Sleep(ctx, p.Interval); err != nil {
			return err
		}

		p.Metrics.IncPollAttempts()
		done, err := fn(ctx, attempt)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			p.Metrics.IncPollErrors()
			p.Logger.Error("poll attempt failed", withAttempt(fields, attempt, err))
			continue
		}

		if done {
			return nil
		}
	}

	return ErrBudgetExhausted
}

func withAttempt(fields map[string]any, attempt int, err error) map[string]any {
	out := make(map[string]any, len(fields)+2)
	maps.Copy(out, fields)
	out["attempt"] = attempt
	out["error"] = err
	return out
}
