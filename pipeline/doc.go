// Package pipeline overlaps segment intake with batch translation.
//
// An Orchestrator reads segments from a subtitle.Source as they arrive,
// groups them into windows, partitions each window into token-bounded
// batches, and dispatches every batch concurrently through an Executor.
// Translation of early windows proceeds while later segments are still
// being produced, so a transcriber feeding the source overlaps with
// translation instead of serializing before it.
//
// Batches complete in whatever order the provider allows. The
// orchestrator reassembles results by segment index, verifies each index
// lands exactly once, and returns the full run in input order. A failed
// batch never aborts the others: all in-flight work drains, completed
// translations are kept, and the first failure is reported alongside
// whatever output exists.
package pipeline
