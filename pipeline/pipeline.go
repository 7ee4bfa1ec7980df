package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dubkit/dubkit/batch"
	"github.com/dubkit/dubkit/executor"
	"github.com/dubkit/dubkit/subtitle"
)

// DefaultWindowSize is the segment count per dispatch window.
const DefaultWindowSize = 20

// ProgressFunc receives completion percent and a run state, one of
// "streaming", "draining", or "done". Called from a single goroutine.
type ProgressFunc func(percent int, status string)

// Options configures an Orchestrator.
type Options struct {
	// WindowSize is how many segments accumulate before a window is
	// partitioned and dispatched. The final window may be shorter.
	WindowSize int

	// MaxBatchTokens caps the estimated cost of one batch. Non-positive
	// uses the partitioner's model limit.
	MaxBatchTokens int

	// MaxBatchItems additionally caps the segment count per batch.
	// Non-positive leaves batches bounded by tokens only.
	MaxBatchItems int

	// OnProgress, when set, is called as batches complete.
	OnProgress ProgressFunc

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Orchestrator runs the batch translation pipeline.
type Orchestrator struct {
	exec        *executor.Executor
	partitioner *batch.Partitioner
	opts        Options

	read atomic.Int64
	eof  atomic.Bool
}

// New creates an Orchestrator dispatching through exec. A nil
// partitioner gets a default one.
func New(exec *executor.Executor, p *batch.Partitioner, opts Options) *Orchestrator {
	if p == nil {
		p = batch.NewPartitioner(nil, "")
	}
	if opts.WindowSize <= 0 {
		opts.WindowSize = DefaultWindowSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Orchestrator{exec: exec, partitioner: p, opts: opts}
}

// Run drains src and returns every segment translated, ordered by
// arrival. On failure it still returns whatever segments completed,
// ordered, together with the first batch error. A duplicate index in the
// results also fails the run; that means two batches claimed the same
// segment.
func (o *Orchestrator) Run(ctx context.Context, src subtitle.Source) ([]subtitle.Segment, error) {
	o.read.Store(0)
	o.eof.Store(false)

	results := make(chan executor.BatchResult)
	var wg sync.WaitGroup

	prodErr := make(chan error, 1)
	go func() {
		prodErr <- o.produce(ctx, src, &wg, results)
		o.eof.Store(true)
		wg.Wait()
		close(results)
	}()

	completed := make(map[int]subtitle.Segment)
	var firstErr error
	for r := range results {
		if r.Status == executor.StatusFailure {
			o.opts.Logger.Error("batch failed, draining remaining work",
				"batch", r.Batch.ID, "attempts", r.Attempts, "error", r.Err)
			if firstErr == nil {
				firstErr = fmt.Errorf("batch %s: %w", r.Batch.ID, r.Err)
			}
			continue
		}
		for _, s := range r.Segments {
			if _, dup := completed[s.Index]; dup {
				// Two batches claimed the same segment. Keep the first
				// translation and fail the run after the drain.
				if firstErr == nil {
					firstErr = fmt.Errorf("pipeline: segment %d translated twice (batch %s)", s.Index, r.Batch.ID)
				}
				continue
			}
			completed[s.Index] = s
		}
		o.progress(len(completed))
	}

	if err := <-prodErr; err != nil && firstErr == nil {
		firstErr = fmt.Errorf("pipeline: source: %w", err)
	}

	total := int(o.read.Load())
	out := make([]subtitle.Segment, 0, len(completed))
	for i := 0; i < total; i++ {
		if s, ok := completed[i]; ok {
			out = append(out, s)
		}
	}
	if firstErr != nil {
		if o.opts.OnProgress != nil {
			o.opts.OnProgress(percentOf(len(completed), total), "done")
		}
		return out, firstErr
	}
	if len(out) != total {
		// Every batch reported success yet indexes are missing.
		return out, fmt.Errorf("pipeline: %d of %d segments unaccounted for", total-len(out), total)
	}
	if o.opts.OnProgress != nil {
		o.opts.OnProgress(100, "done")
	}
	o.opts.Logger.Info("run complete", "segments", total)
	return out, nil
}

// produce reads src to EOF, dispatching a window of batches whenever
// WindowSize segments have accumulated. Indexes are assigned by arrival
// order regardless of what the source put in them.
func (o *Orchestrator) produce(ctx context.Context, src subtitle.Source, wg *sync.WaitGroup, results chan<- executor.BatchResult) error {
	window := make([]subtitle.Segment, 0, o.opts.WindowSize)
	n := 0
	for {
		seg, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			o.flush(ctx, window, wg, results)
			return err
		}
		seg.Index = n
		n++
		o.read.Store(int64(n))

		window = append(window, seg)
		if len(window) >= o.opts.WindowSize {
			o.flush(ctx, window, wg, results)
			window = make([]subtitle.Segment, 0, o.opts.WindowSize)
		}
	}
	o.flush(ctx, window, wg, results)
	return nil
}

// flush partitions one window and dispatches its batches.
func (o *Orchestrator) flush(ctx context.Context, window []subtitle.Segment, wg *sync.WaitGroup, results chan<- executor.BatchResult) {
	if len(window) == 0 {
		return
	}
	var batches []batch.Batch
	if o.opts.MaxBatchItems > 0 {
		batches = o.partitioner.ByCount(window, o.opts.MaxBatchItems, o.opts.MaxBatchTokens)
	} else {
		batches = o.partitioner.ByTokens(window, o.opts.MaxBatchTokens)
	}
	o.opts.Logger.Debug("window dispatched",
		"segments", len(window), "batches", len(batches))
	for _, b := range batches {
		b.Offset = window[0].Index + b.Offset
		wg.Add(1)
		go func(b batch.Batch) {
			defer wg.Done()
			results <- o.exec.Process(ctx, b)
		}(b)
	}
}

func (o *Orchestrator) progress(done int) {
	if o.opts.OnProgress == nil {
		return
	}
	status := "streaming"
	if o.eof.Load() {
		status = "draining"
	}
	total := int(o.read.Load())
	p := percentOf(done, total)
	// Hold 100 back for the final report.
	if p >= 100 {
		p = 99
	}
	o.opts.OnProgress(p, status)
}

func percentOf(done, total int) int {
	if total <= 0 {
		return 0
	}
	return done * 100 / total
}
