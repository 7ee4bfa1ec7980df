// Package executor drives one batch through budget reservation, the
// provider call, and reply reconciliation.
//
// An Executor holds a fixed number of in-flight slots. Process blocks for
// a slot, reserves the batch's estimated tokens from the shared budget
// ledger, and calls the provider. Throttling and transient failures retry
// with exponential backoff, honoring any reset hints the service sent.
// Partial replies trigger a single narrow follow-up covering exactly the
// missing items, optionally on a cheaper model. What remains missing after
// that is resolved by policy: fail the batch, or substitute the source
// text so the run can finish.
//
// A batch that exhausts its retries on throttling is split in half and
// each half processed in turn, still inside the held slot. Smaller
// requests fit through a congested budget window where the original
// could not.
package executor
