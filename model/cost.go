package model

import (
	"sync"
)

// Usage tracks token usage for a model.
type Usage struct {
	InputTokens  int
	OutputTokens int
	Requests     int
}

// Add adds the given usage to this usage.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.Requests += other.Requests
}

// TotalTokens returns the total tokens used.
func (u *Usage) TotalTokens() int {
	return u.InputTokens + u.OutputTokens
}

// Pricing holds per-million-token pricing for a model.
type Pricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// Prices contains current pricing per model family (as of 2025).
var Prices = map[Name]Pricing{
	GPT41:     {InputPerMillion: 2.0, OutputPerMillion: 8.0},
	GPT41Mini: {InputPerMillion: 0.4, OutputPerMillion: 1.6},
	GPT41Nano: {InputPerMillion: 0.1, OutputPerMillion: 0.4},
	GPT4o:     {InputPerMillion: 2.5, OutputPerMillion: 10.0},
	GPT4oMini: {InputPerMillion: 0.15, OutputPerMillion: 0.6},
}

// CostTracker tracks token usage and estimated costs across models.
// Methods are safe for concurrent use; worker goroutines record into one
// shared tracker.
type CostTracker struct {
	mu     sync.RWMutex
	totals map[Name]Usage
}

// NewCostTracker creates a new cost tracker.
func NewCostTracker() *CostTracker {
	return &CostTracker{
		totals: make(map[Name]Usage),
	}
}

// Record adds a usage record for the given model. Full model identifiers
// are normalized to their family, so dated snapshots aggregate together.
func (t *CostTracker) Record(model Name, input, output int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := Normalize(string(model))
	u := t.totals[key]
	u.InputTokens += input
	u.OutputTokens += output
	u.Requests++
	t.totals[key] = u
}

// Usage returns the accumulated usage for a model family.
func (t *CostTracker) Usage(model Name) Usage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.totals[Normalize(string(model))]
}

// Summary returns a copy of all usage totals.
func (t *CostTracker) Summary() map[Name]Usage {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[Name]Usage, len(t.totals))
	for k, v := range t.totals {
		result[k] = v
	}
	return result
}

// TotalUsage returns aggregated usage across all models.
func (t *CostTracker) TotalUsage() Usage {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var total Usage
	for _, u := range t.totals {
		total.Add(u)
	}
	return total
}

// EstimatedCost calculates the estimated cost based on current pricing.
// Usage for models without a price entry contributes nothing.
func (t *CostTracker) EstimatedCost() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var total float64
	for model, usage := range t.totals {
		prices, ok := Prices[model]
		if !ok {
			continue
		}
		inputCost := float64(usage.InputTokens) / 1_000_000 * prices.InputPerMillion
		outputCost := float64(usage.OutputTokens) / 1_000_000 * prices.OutputPerMillion
		total += inputCost + outputCost
	}
	return total
}

// Reset clears all tracked usage.
func (t *CostTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totals = make(map[Name]Usage)
}
