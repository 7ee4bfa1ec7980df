package executor

import (
	"errors"
	"time"

	"github.com/dubkit/dubkit/model"
)

// ErrBudgetSaturated indicates the budget window stayed full for the
// whole bounded wait; the batch was never sent.
var ErrBudgetSaturated = errors.New("budget saturated")

// MissingPolicy decides what happens to items still untranslated after
// the follow-up call.
type MissingPolicy int

const (
	// MissingStrict fails the batch when any item stays untranslated.
	MissingStrict MissingPolicy = iota

	// MissingFallback substitutes the source text for untranslated items
	// and reports the batch as partial.
	MissingFallback
)

// String returns the policy name.
func (p MissingPolicy) String() string {
	switch p {
	case MissingStrict:
		return "strict"
	case MissingFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Policy configures how an Executor handles failures.
type Policy struct {
	// MaxAttempts bounds provider calls per batch, including the first.
	MaxAttempts int

	// RequestTimeout bounds a single provider call.
	RequestTimeout time.Duration

	// BudgetWait is the pause between budget reservation attempts when
	// the window is full.
	BudgetWait time.Duration

	// BudgetAttempts bounds reservation attempts before the batch fails
	// with ErrBudgetSaturated.
	BudgetAttempts int

	// Missing selects strict or fallback handling of untranslated items.
	Missing MissingPolicy

	// Downgrade picks the model for follow-up calls. The zero value
	// keeps follow-ups on the original model.
	Downgrade model.DowngradeChain

	// ProviderFallback enables one attempt on the fallback client after
	// the primary fails a batch outright. Off by default so runs pinned
	// to a provider never silently switch.
	ProviderFallback bool

	// RepartitionMin is the smallest batch size eligible for halving
	// after exhausted throttling. Below it the batch just fails.
	RepartitionMin int
}

// DefaultPolicy returns the policy used when none is given.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    4,
		RequestTimeout: 2 * time.Minute,
		BudgetWait:     5 * time.Second,
		BudgetAttempts: 12,
		Missing:        MissingFallback,
		Downgrade:      model.DefaultDowngrade,
		RepartitionMin: 2,
	}
}

func (p *Policy) normalize() {
	d := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.RequestTimeout <= 0 {
		p.RequestTimeout = d.RequestTimeout
	}
	if p.BudgetWait <= 0 {
		p.BudgetWait = d.BudgetWait
	}
	if p.BudgetAttempts <= 0 {
		p.BudgetAttempts = d.BudgetAttempts
	}
	if p.RepartitionMin <= 0 {
		p.RepartitionMin = d.RepartitionMin
	}
}
