package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Limits holds the per-minute ceilings. A zero ceiling disables that
// dimension.
type Limits struct {
	// TokensPerMinute caps the token throughput per minute window.
	TokensPerMinute int64

	// RequestsPerMinute caps the request count per minute window.
	RequestsPerMinute int64
}

// Store persists budget counters keyed by {metric, minute-bucket} and
// performs the atomic two-ceiling reservation. Implementations must be safe
// for concurrent use and must guarantee that the compare and both increments
// happen as one atomic step.
type Store interface {
	// Reserve attempts to add tokens and requests to the counters of the
	// given minute bucket. It returns true only if both resulting totals
	// stay within their ceilings; on false or error nothing is committed.
	// A ceiling of zero means the dimension is unlimited.
	Reserve(ctx context.Context, bucket int64, tokens, requests, tokenCeiling, requestCeiling int64) (bool, error)
}

// Ledger is the shared budget front-end. All concurrent callers of a
// deployment hold references to one Ledger (or to ledgers backed by the
// same store), never their own counters.
type Ledger struct {
	store  Store
	limits Limits
	now    func() time.Time
	log    *slog.Logger
}

// Option customizes a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source. Tests use this to pin the minute
// bucket.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New creates a Ledger over the given store and ceilings.
// logger may be nil, in which case slog.Default() is used.
func New(store Store, limits Limits, logger *slog.Logger, opts ...Option) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Ledger{
		store:  store,
		limits: limits,
		now:    time.Now,
		log:    logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Limits returns the configured ceilings.
func (l *Ledger) Limits() Limits {
	return l.limits
}

// TryReserve attempts to reserve tokens and requests against the current
// minute window. It returns (true, nil) when the reservation committed,
// (false, nil) when the budget is saturated, and (false, err) when the
// store is unreachable. The store-error case is a deliberate deny: callers
// must never proceed unmetered.
func (l *Ledger) TryReserve(ctx context.Context, tokens, requests int64) (bool, error) {
	if tokens < 0 || requests < 0 {
		return false, fmt.Errorf("ledger: negative reservation (tokens=%d requests=%d)", tokens, requests)
	}
	bucket := l.now().Unix() / 60
	ok, err := l.store.Reserve(ctx, bucket, tokens, requests, l.limits.TokensPerMinute, l.limits.RequestsPerMinute)
	if err != nil {
		l.log.Error("budget store unreachable, denying reservation",
			"bucket", bucket, "tokens", tokens, "requests", requests, "error", err)
		return false, fmt.Errorf("ledger: store reserve: %w", err)
	}
	return ok, nil
}
