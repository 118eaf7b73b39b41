package metrics

import "sync/atomic"

type Counters struct {
	TransactionsCreated  uint64
	SubmissionsSucceeded uint64
	SubmissionsFailed    uint64
	SubmissionsTimedOut  uint64
	PollAttempts         uint64
	PollErrors           uint64
	EventsPublished      uint64
}

func (c *Counters) IncTransactionsCreated() {
	atomic.AddUint64(&c.TransactionsCreated, 1)
}

func (c *Counters) IncSucceeded() {
	atomic.AddUint64(&c.SubmissionsSucceeded, 1)
}

func (c *Counters) IncFailed() {
	atomic.AddUint64(&c.SubmissionsFailed, 1)
}

func (c *Counters) IncTimedOut() {
	atomic.AddUint64(&c.SubmissionsTimedOut, 1)
}

func (c *Counters) IncPollAttempts() {
	atomic.AddUint64(&c.PollAttempts, 1)
}

func (c *Counters) IncPollErrors() {
	atomic.AddUint64(&c.PollErrors, 1)
}

func (c *Counters) IncEventsPublished() {
	atomic.AddUint64(&c.EventsPublished, 1)
}

// Snapshot is a point-in-time copy safe to serialize.
type Snapshot struct {
	TransactionsCreated  uint64 `json:"transactionsCreated"`
	SubmissionsSucceeded uint64 `json:"submissionsSucceeded"`
	SubmissionsFailed    uint64 `json:"submissionsFailed"`
	SubmissionsTimedOut  uint64 `json:"submissionsTimedOut"`
	PollAttempts         uint64 `json:"pollAttempts"`
	PollErrors           uint64 `json:"pollErrors"`
	EventsPublished      uint64 `json:"eventsPublished"`
}

func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		TransactionsCreated:  atomic.LoadUint64(&c.TransactionsCreated),
		SubmissionsSucceeded: atomic.LoadUint64(&c.SubmissionsSucceeded),
		SubmissionsFailed:    atomic.LoadUint64(&c.SubmissionsFailed),
		SubmissionsTimedOut:  atomic.LoadUint64(&c.SubmissionsTimedOut),
		PollAttempts:         atomic.LoadUint64(&c.PollAttempts),
		PollErrors:           atomic.LoadUint64(&c.PollErrors),
		EventsPublished:      atomic.LoadUint64(&c.EventsPublished),
	}
}
