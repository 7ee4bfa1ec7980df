package batch

import (
	"github.com/google/uuid"

	"github.com/dubkit/dubkit/subtitle"
	"github.com/dubkit/dubkit/tokens"
)

// Batch is a contiguous run of segments dispatched as one provider call.
type Batch struct {
	// ID identifies the batch in logs and budget accounting.
	ID string

	// Index is the batch's position within its partition, from 0.
	Index int

	// Offset is the position of the first segment within the original
	// input slice.
	Offset int

	// Segments is the payload, in input order.
	Segments []subtitle.Segment
}

// Len returns the number of segments in the batch.
func (b Batch) Len() int { return len(b.Segments) }

// Partitioner splits segment runs into batches under a token ceiling.
// The zero value is not usable; construct with NewPartitioner.
type Partitioner struct {
	counter *tokens.EstimatingCounter
	model   string
}

// NewPartitioner creates a Partitioner estimating costs for the given
// model. An empty model uses the default token limits.
func NewPartitioner(counter *tokens.EstimatingCounter, model string) *Partitioner {
	if counter == nil {
		counter = tokens.NewEstimatingCounter()
	}
	return &Partitioner{counter: counter, model: model}
}

// Cost estimates the total tokens one call for these segments will
// consume: the request envelope, every item with its framing, and the
// expected reply. Estimates never under-count.
func (p *Partitioner) Cost(segments []subtitle.Segment) int {
	input := tokens.RequestOverhead
	for _, s := range segments {
		input += p.counter.Count(s.Text) + tokens.ItemOverhead
	}
	return input + tokens.EstimateOutput(input, len(segments))
}

// ByTokens partitions segments so every batch's Cost is at most
// maxTokens. A non-positive maxTokens falls back to the model's context
// limit. Runs over the ceiling are halved recursively; a lone segment
// over the ceiling is emitted as a batch of one. Concatenating the
// returned batches' segments reproduces the input.
func (p *Partitioner) ByTokens(segments []subtitle.Segment, maxTokens int) []Batch {
	if len(segments) == 0 {
		return nil
	}
	if maxTokens <= 0 {
		maxTokens = tokens.ModelLimit(p.model)
	}

	// Work list of [start, end) runs still to be placed. Processing front
	// to back keeps output in input order without a sort afterwards.
	type span struct{ start, end int }
	work := []span{{0, len(segments)}}
	var out []Batch

	for len(work) > 0 {
		sp := work[0]
		work = work[1:]

		run := segments[sp.start:sp.end]
		if len(run) == 1 || p.Cost(run) <= maxTokens {
			out = append(out, Batch{
				ID:       uuid.NewString(),
				Index:    len(out),
				Offset:   sp.start,
				Segments: run,
			})
			continue
		}

		mid := sp.start + (sp.end-sp.start)/2
		// Prepend so halves are processed before later spans.
		work = append([]span{{sp.start, mid}, {mid, sp.end}}, work...)
	}
	return out
}

// ByCount partitions segments into runs of at most count segments, then
// revalidates each run against maxTokens. Oversized runs split further
// exactly as ByTokens would.
func (p *Partitioner) ByCount(segments []subtitle.Segment, count, maxTokens int) []Batch {
	if len(segments) == 0 || count <= 0 {
		return nil
	}

	var out []Batch
	for start := 0; start < len(segments); start += count {
		end := start + count
		if end > len(segments) {
			end = len(segments)
		}
		for _, b := range p.ByTokens(segments[start:end], maxTokens) {
			b.Index = len(out)
			b.Offset += start
			out = append(out, b)
		}
	}
	return out
}
