package executor

import (
	"time"

	"github.com/dubkit/dubkit/batch"
	"github.com/dubkit/dubkit/subtitle"
)

// Status classifies a batch outcome.
type Status int

const (
	// StatusSuccess means every segment got a translation.
	StatusSuccess Status = iota

	// StatusPartial means some segments carry substituted source text.
	StatusPartial

	// StatusFailure means the batch produced no usable output.
	StatusFailure
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusPartial:
		return "partial"
	case StatusFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// BatchResult is the discriminated outcome of processing one batch.
// Status tells which fields are meaningful: Segments on success and
// partial, Err on failure, Missing on partial and failure.
type BatchResult struct {
	// Batch is the processed batch.
	Batch batch.Batch

	// Status classifies the outcome.
	Status Status

	// Segments carries the batch's segments with Translation filled.
	// Empty on failure.
	Segments []subtitle.Segment

	// Missing lists the segment indexes left untranslated, ascending.
	Missing []int

	// Err is the terminal error on failure, nil otherwise.
	Err error

	// Attempts counts provider calls made for this batch, follow-ups
	// included.
	Attempts int

	// Waited is the total time spent sleeping on backoff and budget
	// waits.
	Waited time.Duration
}

// OK reports whether the batch produced output.
func (r BatchResult) OK() bool { return r.Status != StatusFailure }
