// Package subtitle defines the segment data model shared across the pipeline
// and the sources that produce segments.
//
// A Segment is one timestamped unit of source text awaiting translation. The
// upstream transcription component yields segments lazily, in arrival order,
// exactly once; the Source interface models that contract:
//
//	src := subtitle.NewSliceSource(segments)
//	for {
//	    seg, err := src.Next(ctx)
//	    if errors.Is(err, io.EOF) {
//	        break
//	    }
//	    ...
//	}
//
// For transcribers that write their output incrementally as JSON Lines,
// TailSource follows the file as it grows (fsnotify with polling fallback)
// and yields each segment as soon as its line lands:
//
//	src, _ := subtitle.NewTailSource("transcript.jsonl")
//	defer src.Close()
//
// The stream is finite: the writer terminates it with a {"done":true} line.
package subtitle
