package subtitle

import (
	"context"
	"io"
)

// Segment is one timestamped unit of source text awaiting translation.
// Start and End are offsets into the media in seconds, matching the
// timestamps emitted by common speech-to-text models.
type Segment struct {
	// Index is the position of the segment in arrival order, starting at 0.
	Index int `json:"index"`

	// Start is the segment start time in seconds.
	Start float64 `json:"start"`

	// End is the segment end time in seconds.
	End float64 `json:"end"`

	// Text is the transcribed source-language text.
	Text string `json:"text"`

	// Translation is the translated text. Empty until the segment is
	// resolved; holds the original Text when fallback substitution applies.
	Translation string `json:"translation,omitempty"`
}

// Translated reports whether the segment has a translation.
func (s Segment) Translated() bool {
	return s.Translation != ""
}

// Source is a lazy, finite, non-restartable sequence of segments.
// Next returns io.EOF after the last segment. Implementations are not
// required to be safe for concurrent callers; the pipeline reads from a
// single producer goroutine.
type Source interface {
	// Next returns the next segment in arrival order, or io.EOF when the
	// stream is exhausted. The context controls cancellation while waiting
	// for a segment to become available.
	Next(ctx context.Context) (Segment, error)
}

// SliceSource yields segments from an in-memory slice.
type SliceSource struct {
	segments []Segment
	pos      int
}

// NewSliceSource creates a Source backed by the given slice.
// The slice is not copied; callers must not mutate it while reading.
func NewSliceSource(segments []Segment) *SliceSource {
	return &SliceSource{segments: segments}
}

// Next returns the next segment or io.EOF.
func (s *SliceSource) Next(ctx context.Context) (Segment, error) {
	if err := ctx.Err(); err != nil {
		return Segment{}, err
	}
	if s.pos >= len(s.segments) {
		return Segment{}, io.EOF
	}
	seg := s.segments[s.pos]
	s.pos++
	return seg, nil
}

// ChanSource yields segments from a channel. The stream ends when the
// channel is closed. Useful for bridging an in-process transcriber.
type ChanSource struct {
	ch <-chan Segment
}

// NewChanSource creates a Source that reads from ch until it is closed.
func NewChanSource(ch <-chan Segment) *ChanSource {
	return &ChanSource{ch: ch}
}

// Next blocks until a segment arrives, the channel closes (io.EOF), or the
// context is cancelled.
func (s *ChanSource) Next(ctx context.Context) (Segment, error) {
	select {
	case <-ctx.Done():
		return Segment{}, ctx.Err()
	case seg, ok := <-s.ch:
		if !ok {
			return Segment{}, io.EOF
		}
		return seg, nil
	}
}
