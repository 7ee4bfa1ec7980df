package executor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dubkit/dubkit/backoff"
	"github.com/dubkit/dubkit/batch"
	"github.com/dubkit/dubkit/ledger"
	"github.com/dubkit/dubkit/model"
	"github.com/dubkit/dubkit/provider"
	"github.com/dubkit/dubkit/subtitle"
)

type reply struct {
	resp *provider.Response
	err  error
}

// scriptedClient returns pre-programmed replies in order, then keeps
// repeating the last one. Thread safe; records every request it saw.
type scriptedClient struct {
	mu      sync.Mutex
	script  []func(req provider.Request) reply
	calls   []provider.Request
	pointer int
}

func (c *scriptedClient) Translate(ctx context.Context, req provider.Request) (*provider.Response, error) {
	c.mu.Lock()
	step := c.script[c.pointer]
	if c.pointer < len(c.script)-1 {
		c.pointer++
	}
	c.calls = append(c.calls, req)
	c.mu.Unlock()
	r := step(req)
	return r.resp, r.err
}

func (c *scriptedClient) Provider() string { return "scripted" }
func (c *scriptedClient) Close() error     { return nil }

func (c *scriptedClient) requests() []provider.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]provider.Request, len(c.calls))
	copy(out, c.calls)
	return out
}

// fullReply answers every item with "T:" + source text.
func fullReply(modelName string) func(req provider.Request) reply {
	return func(req provider.Request) reply {
		items := make([]provider.Translation, len(req.Items))
		for i, it := range req.Items {
			items[i] = provider.Translation{ID: it.ID, Translation: "T:" + it.Text}
		}
		b, _ := json.Marshal(provider.ReplyEnvelope{Items: items})
		return reply{resp: &provider.Response{
			Content: string(b),
			Model:   modelName,
			Usage:   provider.Usage{InputTokens: 100, OutputTokens: 50},
		}}
	}
}

// partialReply answers all items except the given ids.
func partialReply(modelName string, skip ...int) func(req provider.Request) reply {
	skipped := make(map[int]bool, len(skip))
	for _, id := range skip {
		skipped[id] = true
	}
	return func(req provider.Request) reply {
		var items []provider.Translation
		for _, it := range req.Items {
			if skipped[it.ID] {
				continue
			}
			items = append(items, provider.Translation{ID: it.ID, Translation: "T:" + it.Text})
		}
		b, _ := json.Marshal(provider.ReplyEnvelope{Items: items})
		return reply{resp: &provider.Response{Content: string(b), Model: modelName}}
	}
}

func malformedReply() func(req provider.Request) reply {
	return func(req provider.Request) reply {
		return reply{resp: &provider.Response{Content: "I'd rather not.", Model: "gpt-4.1-mini"}}
	}
}

func errorReply(err error) func(req provider.Request) reply {
	return func(req provider.Request) reply { return reply{err: err} }
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testLedger(tokensPerMinute int64) *ledger.Ledger {
	limits := ledger.Limits{TokensPerMinute: tokensPerMinute}
	return ledger.New(ledger.NewMemoryStore(), limits, testLogger())
}

func testSegments(n int) []subtitle.Segment {
	segs := make([]subtitle.Segment, n)
	for i := range segs {
		segs[i] = subtitle.Segment{Index: i, Text: "line " + string(rune('a'+i))}
	}
	return segs
}

func testBatch(n int) batch.Batch {
	return batch.Batch{ID: "b-test", Segments: testSegments(n)}
}

// noSleep skips real waiting and records requested durations.
func noSleep(record *[]time.Duration) func(ctx context.Context, d time.Duration) error {
	var mu sync.Mutex
	return func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		*record = append(*record, d)
		mu.Unlock()
		return nil
	}
}

func newExecutor(c provider.Client, opts ...Option) *Executor {
	base := []Option{
		WithLogger(testLogger()),
		WithBackoff(backoff.Default().WithRand(func() float64 { return 0 })),
	}
	return New(c, testLedger(0), nil, append(base, opts...)...)
}

func TestProcess_Success(t *testing.T) {
	client := &scriptedClient{script: []func(provider.Request) reply{fullReply("gpt-4.1-mini")}}
	e := newExecutor(client)

	res := e.Process(context.Background(), testBatch(3))

	require.Equal(t, StatusSuccess, res.Status)
	require.NoError(t, res.Err)
	require.Len(t, res.Segments, 3)
	for i, s := range res.Segments {
		assert.Equal(t, i, s.Index)
		assert.Equal(t, "T:"+s.Text, s.Translation)
	}
	assert.Equal(t, 1, res.Attempts)
	assert.Zero(t, res.Waited)
	assert.True(t, res.OK())

	usage := e.Costs().Usage(model.GPT41Mini)
	assert.Equal(t, 100, usage.InputTokens)
	assert.Equal(t, 1, usage.Requests)
}

func TestProcess_EmptyBatch(t *testing.T) {
	e := newExecutor(&scriptedClient{script: []func(provider.Request) reply{fullReply("m")}})

	res := e.Process(context.Background(), batch.Batch{ID: "empty"})
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Zero(t, res.Attempts)
}

func TestProcess_FollowUpCompletes(t *testing.T) {
	client := &scriptedClient{script: []func(provider.Request) reply{
		partialReply("gpt-4.1", 2),
		fullReply("gpt-4.1-mini"),
	}}
	e := newExecutor(client)

	res := e.Process(context.Background(), testBatch(3))

	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 2, res.Attempts)
	require.Len(t, res.Segments, 3)
	for _, s := range res.Segments {
		assert.NotEmpty(t, s.Translation)
	}

	calls := client.requests()
	require.Len(t, calls, 2)
	// The follow-up re-requests exactly the missing item, original id
	// intact, on the next model tier down.
	require.Len(t, calls[1].Items, 1)
	assert.Equal(t, 2, calls[1].Items[0].ID)
	assert.Equal(t, string(model.GPT41Mini), calls[1].Model)
}

func TestProcess_MissingStrict(t *testing.T) {
	client := &scriptedClient{script: []func(provider.Request) reply{
		partialReply("gpt-4.1-mini", 2),
		partialReply("gpt-4.1-mini", 2),
	}}
	p := DefaultPolicy()
	p.Missing = MissingStrict
	e := newExecutor(client, WithPolicy(p))

	res := e.Process(context.Background(), testBatch(3))

	require.Equal(t, StatusFailure, res.Status)
	require.Error(t, res.Err)
	assert.Equal(t, []int{1}, res.Missing)
	assert.Empty(t, res.Segments)
	assert.False(t, res.OK())
}

func TestProcess_MissingFallbackSubstitutes(t *testing.T) {
	client := &scriptedClient{script: []func(provider.Request) reply{
		partialReply("gpt-4.1-mini", 2),
		partialReply("gpt-4.1-mini", 2),
	}}
	p := DefaultPolicy()
	p.Missing = MissingFallback
	e := newExecutor(client, WithPolicy(p))

	res := e.Process(context.Background(), testBatch(3))

	require.Equal(t, StatusPartial, res.Status)
	require.NoError(t, res.Err)
	require.Len(t, res.Segments, 3)
	assert.Equal(t, []int{1}, res.Missing)
	// The untranslated segment carries its source text.
	assert.Equal(t, res.Segments[1].Text, res.Segments[1].Translation)
	assert.Equal(t, "T:"+res.Segments[0].Text, res.Segments[0].Translation)
}

func TestProcess_RetriesMalformedWithBackoff(t *testing.T) {
	client := &scriptedClient{script: []func(provider.Request) reply{
		malformedReply(),
		malformedReply(),
		fullReply("gpt-4.1-mini"),
	}}
	var slept []time.Duration
	bo := backoff.Default().WithRand(func() float64 { return 0 })
	e := newExecutor(client, WithBackoff(bo))
	e.sleep = noSleep(&slept)

	res := e.Process(context.Background(), testBatch(2))

	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 3, res.Attempts)

	want := bo.Compute(backoff.Hints{}, 0) + bo.Compute(backoff.Hints{}, 1)
	assert.Equal(t, want, res.Waited)
	assert.Equal(t, []time.Duration{
		bo.Compute(backoff.Hints{}, 0),
		bo.Compute(backoff.Hints{}, 1),
	}, slept)
}

func TestProcess_ThrottleHintsShortenBackoff(t *testing.T) {
	throttle := &provider.Error{
		Provider:   "scripted",
		Op:         "translate",
		Err:        provider.ErrRateLimited,
		Retryable:  true,
		RetryAfter: 30 * time.Millisecond,
	}
	client := &scriptedClient{script: []func(provider.Request) reply{
		errorReply(throttle),
		fullReply("gpt-4.1-mini"),
	}}
	var slept []time.Duration
	e := newExecutor(client)
	e.sleep = noSleep(&slept)

	res := e.Process(context.Background(), testBatch(2))

	require.Equal(t, StatusSuccess, res.Status)
	require.Len(t, slept, 1)
	assert.Equal(t, 30*time.Millisecond, slept[0])
}

func TestProcess_NonRetryableFailsFast(t *testing.T) {
	client := &scriptedClient{script: []func(provider.Request) reply{
		errorReply(provider.NewError("scripted", "translate", provider.ErrInvalidRequest, false)),
	}}
	e := newExecutor(client)

	res := e.Process(context.Background(), testBatch(2))

	require.Equal(t, StatusFailure, res.Status)
	assert.Equal(t, 1, res.Attempts)
	assert.ErrorIs(t, res.Err, provider.ErrInvalidRequest)
}

func TestProcess_BudgetSaturated(t *testing.T) {
	client := &scriptedClient{script: []func(provider.Request) reply{fullReply("m")}}
	p := DefaultPolicy()
	p.BudgetAttempts = 3
	p.BudgetWait = 10 * time.Millisecond

	var slept []time.Duration
	e := New(client, testLedger(1), nil,
		WithLogger(testLogger()), WithPolicy(p))
	e.sleep = noSleep(&slept)

	res := e.Process(context.Background(), testBatch(2))

	require.Equal(t, StatusFailure, res.Status)
	assert.ErrorIs(t, res.Err, ErrBudgetSaturated)
	assert.Zero(t, res.Attempts)
	assert.Len(t, slept, 2)
	assert.Equal(t, 20*time.Millisecond, res.Waited)
	assert.Empty(t, client.requests())
}

func TestProcess_RepartitionsAfterThrottling(t *testing.T) {
	throttle := &provider.Error{
		Provider:  "scripted",
		Op:        "translate",
		Err:       provider.ErrRateLimited,
		Retryable: true,
	}
	// Multi-item requests are always throttled; single items go through.
	step := func(req provider.Request) reply {
		if len(req.Items) > 1 {
			return reply{err: throttle}
		}
		return fullReply("gpt-4.1-mini")(req)
	}
	client := &scriptedClient{script: []func(provider.Request) reply{step}}

	p := DefaultPolicy()
	p.MaxAttempts = 1
	var slept []time.Duration
	e := newExecutor(client, WithPolicy(p))
	e.sleep = noSleep(&slept)

	res := e.Process(context.Background(), testBatch(4))

	require.Equal(t, StatusSuccess, res.Status)
	require.Len(t, res.Segments, 4)
	for i, s := range res.Segments {
		assert.Equal(t, i, s.Index)
		assert.Equal(t, "T:"+s.Text, s.Translation)
	}
	// 4, then 2+2, then four singles.
	assert.Equal(t, 7, res.Attempts)
}

func TestProcess_NoProviderSwitchWhenPinned(t *testing.T) {
	primary := &scriptedClient{script: []func(provider.Request) reply{
		errorReply(provider.NewError("primary", "translate", provider.ErrInvalidRequest, false)),
	}}
	fallback := &scriptedClient{script: []func(provider.Request) reply{fullReply("m")}}

	e := newExecutor(primary, WithFallback(fallback))

	res := e.Process(context.Background(), testBatch(2))

	require.Equal(t, StatusFailure, res.Status)
	assert.Empty(t, fallback.requests(), "fallback must stay untouched unless enabled")
}

func TestProcess_ProviderFallback(t *testing.T) {
	primary := &scriptedClient{script: []func(provider.Request) reply{
		errorReply(provider.NewError("primary", "translate", provider.ErrInvalidRequest, false)),
	}}
	fallback := &scriptedClient{script: []func(provider.Request) reply{fullReply("gpt-4o-mini")}}

	p := DefaultPolicy()
	p.ProviderFallback = true
	e := newExecutor(primary, WithPolicy(p), WithFallback(fallback))

	res := e.Process(context.Background(), testBatch(2))

	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 2, res.Attempts)
	require.Len(t, fallback.requests(), 1)
}

func TestProcess_ContextCanceled(t *testing.T) {
	client := &scriptedClient{script: []func(provider.Request) reply{fullReply("m")}}
	e := newExecutor(client, WithConcurrency(1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Occupy the only slot so Process must wait on the canceled context.
	e.slots <- struct{}{}
	defer func() { <-e.slots }()

	res := e.Process(ctx, testBatch(1))
	require.Equal(t, StatusFailure, res.Status)
	assert.ErrorIs(t, res.Err, context.Canceled)
}

func TestProcess_ConcurrentBatches(t *testing.T) {
	client := &scriptedClient{script: []func(provider.Request) reply{fullReply("gpt-4.1-mini")}}
	e := newExecutor(client, WithConcurrency(4))

	var wg sync.WaitGroup
	results := make([]BatchResult, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = e.Process(context.Background(), testBatch(2))
		}(i)
	}
	wg.Wait()

	for i, res := range results {
		assert.Equal(t, StatusSuccess, res.Status, "batch %d", i)
	}
	assert.Equal(t, 8, e.Costs().TotalUsage().Requests)
}

func TestProcess_LedgerErrorFailsClosed(t *testing.T) {
	client := &scriptedClient{script: []func(provider.Request) reply{fullReply("m")}}
	lg := ledger.New(failingStore{}, ledger.Limits{TokensPerMinute: 1000}, testLogger())
	e := New(client, lg, nil, WithLogger(testLogger()))

	res := e.Process(context.Background(), testBatch(2))

	require.Equal(t, StatusFailure, res.Status)
	require.Error(t, res.Err)
	assert.Empty(t, client.requests())
}

type failingStore struct{}

func (failingStore) Reserve(ctx context.Context, bucket int64, tokens, requests, tokenCeiling, requestCeiling int64) (bool, error) {
	return false, errors.New("store down")
}
