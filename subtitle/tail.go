package subtitle

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// streamLine is one line of the transcription JSONL stream. A line carries
// either a segment or the end-of-stream marker, never both.
type streamLine struct {
	Segment *Segment `json:"segment,omitempty"`
	Done    bool     `json:"done,omitempty"`
}

// WriteStream encodes segments as a JSONL stream and terminates it with the
// done marker. Intended for transcriber-side use and tests.
func WriteStream(w io.Writer, segments []Segment) error {
	enc := json.NewEncoder(w)
	for i := range segments {
		if err := enc.Encode(streamLine{Segment: &segments[i]}); err != nil {
			return fmt.Errorf("encode segment %d: %w", segments[i].Index, err)
		}
	}
	if err := enc.Encode(streamLine{Done: true}); err != nil {
		return fmt.Errorf("encode done marker: %w", err)
	}
	return nil
}

// TailSource follows a transcription JSONL file as it is written and yields
// each segment as soon as its line is complete. The stream ends at the
// {"done":true} marker.
//
// File watching uses fsnotify with a polling fallback, so the source works
// on filesystems without inotify support (network mounts, some containers).
type TailSource struct {
	path   string
	file   *os.File
	ch     chan Segment
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTailSource opens the stream file and starts following it.
// The file must already exist; the transcriber creates it before writing.
func NewTailSource(path string) (*TailSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stream file: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &TailSource{
		path:   path,
		file:   file,
		ch:     make(chan Segment, 64),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go t.follow(ctx)
	return t, nil
}

// Next returns the next segment in arrival order, io.EOF after the done
// marker, or the context error on cancellation.
func (t *TailSource) Next(ctx context.Context) (Segment, error) {
	select {
	case <-ctx.Done():
		return Segment{}, ctx.Err()
	case seg, ok := <-t.ch:
		if !ok {
			return Segment{}, io.EOF
		}
		return seg, nil
	}
}

// Close stops following and releases the file handle.
func (t *TailSource) Close() error {
	t.cancel()
	<-t.done
	return t.file.Close()
}

// follow drives the watcher loop and closes the segment channel on end of
// stream or cancellation.
func (t *TailSource) follow(ctx context.Context) {
	defer close(t.done)
	defer close(t.ch)

	reader := bufio.NewReader(t.file)

	// Drain whatever is already on disk before waiting for events.
	if done := t.readLines(ctx, reader); done {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		t.followPolling(ctx, reader)
		return
	}
	defer watcher.Close()

	// Watch the directory; watching the file directly misses writers that
	// replace it.
	if err := watcher.Add(filepath.Dir(t.path)); err != nil {
		t.followPolling(ctx, reader)
		return
	}

	baseName := filepath.Base(t.path)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != baseName || !event.Has(fsnotify.Write) {
				continue
			}
			if done := t.readLines(ctx, reader); done {
				return
			}
		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
			// Watcher errors are usually recoverable; keep following.
		}
	}
}

// followPolling is the fallback when fsnotify is unavailable.
func (t *TailSource) followPolling(ctx context.Context, reader *bufio.Reader) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if done := t.readLines(ctx, reader); done {
				return
			}
		}
	}
}

// readLines delivers every complete line currently available. It reports
// true once the done marker has been read. Partial trailing lines are left
// in the reader for the next round.
func (t *TailSource) readLines(ctx context.Context, reader *bufio.Reader) bool {
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			// Incomplete line: rewind so the next read sees it whole.
			if len(line) > 0 {
				if _, serr := t.file.Seek(-int64(len(line)), io.SeekCurrent); serr == nil {
					reader.Reset(t.file)
				}
			}
			return false
		}
		var sl streamLine
		if err := json.Unmarshal(line, &sl); err != nil {
			// Malformed lines are the writer's bug; skip rather than stall.
			continue
		}
		if sl.Done {
			return true
		}
		if sl.Segment == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return true
		case t.ch <- *sl.Segment:
		}
	}
}
