// Package batch partitions subtitle segments into translation batches.
//
// A batch is the unit of work sent to a provider: a contiguous run of
// segments small enough that the request plus its expected reply fit under
// a token ceiling. Partitioning preserves order, never interleaves, and
// concatenating the batches of a split reproduces the input exactly.
//
// ByTokens splits by estimated cost, halving any run that exceeds the
// ceiling until every batch fits or is a single segment. A single segment
// over the ceiling still ships alone; the provider is the final arbiter of
// what fits. ByCount splits into fixed-size runs first, then revalidates
// each run against the ceiling.
package batch
