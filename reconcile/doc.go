// Package reconcile binds model replies back to the items of a batch.
//
// Models are non-deterministic text generators: replies may arrive as a
// bare JSON array, wrapped in an {"items": [...]} envelope, inside a
// fenced code block, or buried in prose. Parse recovers the translation
// list from any of those shapes. Match then resolves each translation to
// its source item strictly by id: a translation counts only if its id
// names an item of the batch, the first occurrence of an id wins, ids
// outside the batch are reported as extras, and unanswered ids are
// reported as missing so the caller can issue a narrow follow-up.
package reconcile
