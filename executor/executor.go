package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dubkit/dubkit/backoff"
	"github.com/dubkit/dubkit/batch"
	"github.com/dubkit/dubkit/ledger"
	"github.com/dubkit/dubkit/model"
	"github.com/dubkit/dubkit/provider"
	"github.com/dubkit/dubkit/reconcile"
	"github.com/dubkit/dubkit/subtitle"
)

// DefaultConcurrency is the in-flight slot count when none is configured.
const DefaultConcurrency = 4

// Executor processes batches against a provider under a shared budget.
// Construct with New; the zero value is not usable.
type Executor struct {
	client      provider.Client
	fallback    provider.Client
	ledger      *ledger.Ledger
	partitioner *batch.Partitioner
	policy      Policy
	backoff     backoff.Policy
	slots       chan struct{}
	log         *slog.Logger
	costs       *model.CostTracker

	// sleep is swapped out by tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures an Executor.
type Option func(*Executor)

// WithPolicy sets the failure-handling policy.
func WithPolicy(p Policy) Option {
	return func(e *Executor) { e.policy = p }
}

// WithBackoff sets the retry backoff policy.
func WithBackoff(p backoff.Policy) Option {
	return func(e *Executor) { e.backoff = p }
}

// WithConcurrency sets the number of in-flight slots.
func WithConcurrency(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.slots = make(chan struct{}, n)
		}
	}
}

// WithFallback sets the client tried once after the primary fails a
// batch outright. Has no effect unless Policy.ProviderFallback is set.
func WithFallback(c provider.Client) Option {
	return func(e *Executor) { e.fallback = c }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Executor) {
		if log != nil {
			e.log = log
		}
	}
}

// WithCostTracker sets a shared cost tracker.
func WithCostTracker(t *model.CostTracker) Option {
	return func(e *Executor) {
		if t != nil {
			e.costs = t
		}
	}
}

// New creates an Executor sending batches to client under the budget
// held by lg. A nil partitioner gets a default one.
func New(client provider.Client, lg *ledger.Ledger, p *batch.Partitioner, opts ...Option) *Executor {
	if p == nil {
		p = batch.NewPartitioner(nil, "")
	}
	e := &Executor{
		client:      client,
		ledger:      lg,
		partitioner: p,
		policy:      DefaultPolicy(),
		backoff:     backoff.Default(),
		slots:       make(chan struct{}, DefaultConcurrency),
		log:         slog.Default(),
		costs:       model.NewCostTracker(),
		sleep:       sleepCtx,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.policy.normalize()
	return e
}

// Costs returns the executor's cost tracker.
func (e *Executor) Costs() *model.CostTracker { return e.costs }

// Process drives one batch to completion. It blocks for an in-flight
// slot, then holds it until the batch resolves, repartition sub-batches
// included. Safe for concurrent use.
func (e *Executor) Process(ctx context.Context, b batch.Batch) BatchResult {
	if b.Len() == 0 {
		return BatchResult{Batch: b, Status: StatusSuccess}
	}
	select {
	case e.slots <- struct{}{}:
	case <-ctx.Done():
		return BatchResult{Batch: b, Status: StatusFailure, Err: ctx.Err()}
	}
	defer func() { <-e.slots }()
	return e.process(ctx, b)
}

func (e *Executor) process(ctx context.Context, b batch.Batch) BatchResult {
	res := BatchResult{Batch: b, Status: StatusFailure}
	cost := e.partitioner.Cost(b.Segments)
	req := provider.Request{Items: itemsFor(b.Segments)}

	var lastErr error
	for attempt := 0; attempt < e.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			wait := e.backoff.Compute(hintsFrom(lastErr), attempt-1)
			if err := e.pause(ctx, wait, &res); err != nil {
				res.Err = err
				return res
			}
		}
		if err := e.reserve(ctx, cost, &res); err != nil {
			res.Err = err
			e.log.Error("budget reservation failed",
				"batch", b.ID, "tokens", cost, "error", err)
			return res
		}

		resp, err := e.call(ctx, e.client, req)
		res.Attempts++
		if err != nil {
			lastErr = err
			if !provider.IsRetryable(err) {
				break
			}
			e.log.Warn("provider call failed",
				"batch", b.ID, "attempt", attempt+1, "error", err)
			continue
		}

		e.costs.Record(model.Name(resp.Model), resp.Usage.InputTokens, resp.Usage.OutputTokens)
		items, perr := reconcile.Parse(resp.Content)
		if perr != nil {
			lastErr = perr
			e.log.Warn("unparseable reply",
				"batch", b.ID, "attempt", attempt+1, "error", perr)
			continue
		}
		return e.finish(ctx, e.client, b, resp.Model, items, res)
	}

	if errors.Is(lastErr, provider.ErrRateLimited) && b.Len() >= e.policy.RepartitionMin && b.Len() > 1 {
		return e.repartition(ctx, b, res)
	}

	if e.policy.ProviderFallback && e.fallback != nil {
		e.log.Warn("switching to fallback provider",
			"batch", b.ID, "provider", e.fallback.Provider(), "error", lastErr)
		if r, ok := e.tryFallback(ctx, b, req, cost, res); ok {
			return r
		}
	}

	res.Err = lastErr
	e.log.Error("batch failed",
		"batch", b.ID, "attempts", res.Attempts, "waited", res.Waited, "error", lastErr)
	return res
}

// tryFallback makes a single attempt on the fallback client. A false
// return means the caller keeps the primary's failure.
func (e *Executor) tryFallback(ctx context.Context, b batch.Batch, req provider.Request, cost int, res BatchResult) (BatchResult, bool) {
	if err := e.reserve(ctx, cost, &res); err != nil {
		return res, false
	}
	resp, err := e.call(ctx, e.fallback, req)
	res.Attempts++
	if err != nil {
		e.log.Warn("fallback provider failed", "batch", b.ID, "error", err)
		return res, false
	}
	e.costs.Record(model.Name(resp.Model), resp.Usage.InputTokens, resp.Usage.OutputTokens)
	items, perr := reconcile.Parse(resp.Content)
	if perr != nil {
		e.log.Warn("fallback reply unparseable", "batch", b.ID, "error", perr)
		return res, false
	}
	return e.finish(ctx, e.fallback, b, resp.Model, items, res), true
}

// finish reconciles a parsed reply against the batch, issuing at most one
// follow-up for missing items, then resolves what remains by policy.
func (e *Executor) finish(ctx context.Context, c provider.Client, b batch.Batch, usedModel string, items []provider.Translation, res BatchResult) BatchResult {
	n := b.Len()
	r := reconcile.Match(n, items)
	if len(r.Extra) > 0 {
		e.log.Warn("reply contained unknown ids", "batch", b.ID, "extra", r.Extra)
	}
	if !r.Complete() {
		e.followUp(ctx, c, b, usedModel, r, &res)
	}

	out := make([]subtitle.Segment, n)
	copy(out, b.Segments)
	for id, text := range r.Resolved {
		out[id-1].Translation = text
	}

	if r.Complete() {
		res.Status = StatusSuccess
		res.Segments = out
		res.Err = nil
		return res
	}

	for _, id := range r.Missing {
		res.Missing = append(res.Missing, b.Segments[id-1].Index)
	}
	switch e.policy.Missing {
	case MissingFallback:
		for _, id := range r.Missing {
			out[id-1].Translation = out[id-1].Text
		}
		res.Status = StatusPartial
		res.Segments = out
		res.Err = nil
		e.log.Warn("substituted source text",
			"batch", b.ID, "missing", len(r.Missing))
	default:
		res.Status = StatusFailure
		res.Err = fmt.Errorf("%d of %d items untranslated after follow-up", len(r.Missing), n)
		e.log.Error("batch incomplete",
			"batch", b.ID, "missing", len(r.Missing), "error", res.Err)
	}
	return res
}

// followUp sends one narrow call covering exactly the missing items.
// It takes one fresh budget reservation; a full window skips the
// follow-up rather than waiting on it.
func (e *Executor) followUp(ctx context.Context, c provider.Client, b batch.Batch, usedModel string, r *reconcile.Result, res *BatchResult) {
	missingSegs := make([]subtitle.Segment, 0, len(r.Missing))
	for _, id := range r.Missing {
		missingSegs = append(missingSegs, b.Segments[id-1])
	}
	cost := e.partitioner.Cost(missingSegs)
	granted, err := e.ledger.TryReserve(ctx, int64(cost), 1)
	if err != nil || !granted {
		e.log.Warn("follow-up skipped, no budget",
			"batch", b.ID, "missing", len(r.Missing))
		return
	}

	fuModel := e.policy.Downgrade.FollowUp(model.Name(usedModel))
	req := provider.Request{
		Model: string(fuModel),
		Items: r.FollowUp(func(id int) string { return b.Segments[id-1].Text }),
	}
	resp, err := e.call(ctx, c, req)
	res.Attempts++
	if err != nil {
		e.log.Warn("follow-up failed", "batch", b.ID, "error", err)
		return
	}
	e.costs.Record(model.Name(resp.Model), resp.Usage.InputTokens, resp.Usage.OutputTokens)
	items, perr := reconcile.Parse(resp.Content)
	if perr != nil {
		e.log.Warn("follow-up reply unparseable", "batch", b.ID, "error", perr)
		return
	}
	r.Merge(b.Len(), items)
}

// repartition halves a batch whose retries were eaten by throttling and
// processes each half in turn inside the already-held slot.
func (e *Executor) repartition(ctx context.Context, b batch.Batch, res BatchResult) BatchResult {
	e.log.Warn("repartitioning after throttling", "batch", b.ID, "size", b.Len())

	mid := b.Len() / 2
	halves := []batch.Batch{
		{ID: uuid.NewString(), Index: b.Index, Offset: b.Offset, Segments: b.Segments[:mid]},
		{ID: uuid.NewString(), Index: b.Index, Offset: b.Offset + mid, Segments: b.Segments[mid:]},
	}

	res.Status = StatusSuccess
	res.Err = nil
	for _, half := range halves {
		hr := e.process(ctx, half)
		res.Attempts += hr.Attempts
		res.Waited += hr.Waited
		res.Segments = append(res.Segments, hr.Segments...)
		res.Missing = append(res.Missing, hr.Missing...)
		switch hr.Status {
		case StatusFailure:
			res.Status = StatusFailure
			res.Err = hr.Err
		case StatusPartial:
			if res.Status != StatusFailure {
				res.Status = StatusPartial
			}
		}
	}
	if res.Status == StatusFailure {
		res.Segments = nil
	}
	sort.Ints(res.Missing)
	return res
}

// reserve takes a budget reservation, waiting out full windows up to the
// policy's bounded attempts. Store errors fail the batch immediately;
// the ledger already logged them.
func (e *Executor) reserve(ctx context.Context, tokens int, res *BatchResult) error {
	for i := 0; i < e.policy.BudgetAttempts; i++ {
		granted, err := e.ledger.TryReserve(ctx, int64(tokens), 1)
		if err != nil {
			return err
		}
		if granted {
			return nil
		}
		if i < e.policy.BudgetAttempts-1 {
			if err := e.pause(ctx, e.policy.BudgetWait, res); err != nil {
				return err
			}
		}
	}
	return ErrBudgetSaturated
}

func (e *Executor) call(ctx context.Context, c provider.Client, req provider.Request) (*provider.Response, error) {
	cctx, cancel := context.WithTimeout(ctx, e.policy.RequestTimeout)
	defer cancel()
	return c.Translate(cctx, req)
}

func (e *Executor) pause(ctx context.Context, d time.Duration, res *BatchResult) error {
	if d <= 0 {
		return nil
	}
	res.Waited += d
	return e.sleep(ctx, d)
}

func itemsFor(segs []subtitle.Segment) []provider.Item {
	items := make([]provider.Item, len(segs))
	for i, s := range segs {
		items[i] = provider.Item{ID: i + 1, Text: s.Text}
	}
	return items
}

func hintsFrom(err error) backoff.Hints {
	var pe *provider.Error
	if errors.As(err, &pe) {
		return backoff.Hints{
			RetryAfter:    pe.RetryAfter,
			ResetRequests: pe.ResetRequests,
			ResetTokens:   pe.ResetTokens,
		}
	}
	return backoff.Hints{}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
