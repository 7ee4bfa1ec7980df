package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Default policy values.
const (
	DefaultBase       = time.Second
	DefaultCap        = 60 * time.Second
	DefaultJitterFrac = 0.25
)

// Hints carries server-provided retry guidance extracted from a throttled
// response. Zero values mean the hint was absent.
type Hints struct {
	// RetryAfter is the Retry-After header, when present.
	RetryAfter time.Duration

	// ResetRequests is the time until the request-count window resets.
	ResetRequests time.Duration

	// ResetTokens is the time until the token-throughput window resets.
	ResetTokens time.Duration
}

// min returns the smallest non-zero hint, or zero when no hint is set.
func (h Hints) min() time.Duration {
	best := time.Duration(0)
	for _, d := range []time.Duration{h.RetryAfter, h.ResetRequests, h.ResetTokens} {
		if d <= 0 {
			continue
		}
		if best == 0 || d < best {
			best = d
		}
	}
	return best
}

// Policy computes retry waits. The zero value is not usable; construct with
// Default or New.
type Policy struct {
	// Base is the wait for attempt 0 (before exponential growth).
	Base time.Duration

	// Cap bounds the exponential wait. Server hints are not capped: the
	// service knows its own reset schedule better than we do.
	Cap time.Duration

	// JitterFrac is the maximum fraction of the exponential wait added as
	// uniform jitter. Hints receive no jitter.
	JitterFrac float64

	// rnd yields uniform values in [0,1). Injectable for deterministic tests.
	rnd func() float64
}

// Default returns a policy with 1s base, 60s cap, and 25% jitter.
func Default() Policy {
	return New(DefaultBase, DefaultCap)
}

// New returns a policy with the given base and cap and the default jitter.
func New(base, cap time.Duration) Policy {
	if base <= 0 {
		base = DefaultBase
	}
	if cap <= 0 {
		cap = DefaultCap
	}
	return Policy{
		Base:       base,
		Cap:        cap,
		JitterFrac: DefaultJitterFrac,
		rnd:        rand.Float64,
	}
}

// WithRand returns a copy of the policy using the given jitter source.
func (p Policy) WithRand(rnd func() float64) Policy {
	p.rnd = rnd
	return p
}

// Compute returns how long to wait before retry number attempt (0-based).
// A non-zero hint takes precedence: the smallest available hint is returned
// verbatim. Otherwise the wait is min(Base·2^attempt, Cap) plus up to
// JitterFrac of itself.
func (p Policy) Compute(h Hints, attempt int) time.Duration {
	if hinted := h.min(); hinted > 0 {
		return hinted
	}
	if attempt < 0 {
		attempt = 0
	}
	base := p.Base
	if base <= 0 {
		base = DefaultBase
	}
	cap := p.Cap
	if cap <= 0 {
		cap = DefaultCap
	}
	wait := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if wait > cap || wait <= 0 { // <=0 guards float overflow on huge attempts
		wait = cap
	}
	if p.JitterFrac > 0 && p.rnd != nil {
		wait += time.Duration(float64(wait) * p.JitterFrac * p.rnd())
	}
	return wait
}
