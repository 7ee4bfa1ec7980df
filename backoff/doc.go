// Package backoff computes retry waits for throttled or failing requests.
//
// When the service says when to come back (Retry-After, rate-limit reset
// headers), the smallest available hint wins. Otherwise the wait grows
// exponentially per attempt, capped, with up to 25% uniform jitter so
// coordinated retries spread out:
//
//	pol := backoff.Default()
//	wait := pol.Compute(backoff.Hints{}, attempt)
//
// Compute is a pure function of its inputs (the jitter source is injectable),
// so policies are trivially testable and have no side effects beyond the
// caller choosing to sleep.
package backoff
