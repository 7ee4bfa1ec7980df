// Package dubkit provides the concurrency core of a batch subtitle
// translation pipeline: it overlaps an incrementally produced transcription
// stream with rate-limited, batched machine translation.
//
// Each subpackage can be used independently:
//
//   - subtitle: segment data model and incremental segment sources
//   - tokens: token cost estimation for texts and expected replies
//   - ledger: shared per-minute token/request budget with atomic reservation
//   - batch: token- and count-bounded partitioning of segment sequences
//   - backoff: retry wait computation from server hints or exponential decay
//   - provider: the translation service boundary (wire types, errors, registry)
//   - openai: OpenAI-compatible chat-completions translation client
//   - reconcile: id-keyed matching of returned translations to request items
//   - executor: one external call per batch under budget, retry, and repair
//   - pipeline: producer/consumer orchestration with in-order reassembly
//   - model: model tiers, pricing, and usage tracking
//   - config: configuration loading (YAML/TOML) and live reload
//
// # Quick Start
//
// Translate a fixed list of segments:
//
//	store := ledger.NewMemoryStore()
//	led := ledger.New(store, ledger.Limits{TokensPerMinute: 90000, RequestsPerMinute: 60}, nil)
//	client, _ := provider.New("openai", provider.Config{Model: "gpt-4.1-mini", TargetLang: "spanish"})
//	exec := executor.New(client, led, nil)
//	orch := pipeline.New(exec, nil, pipeline.Options{WindowSize: 20, MaxBatchTokens: 4000})
//	out, err := orch.Run(ctx, subtitle.NewSliceSource(segments))
//
// # Design Philosophy
//
//   - One explicit object per shared resource, passed by reference; no
//     package-level mutable state on the hot path
//   - Budget counters live in a shared store (Redis) so ceilings hold across
//     processes, not just goroutines
//   - Expected outcomes (partial replies, substituted segments) are explicit
//     result values; errors are reserved for faults
//   - Interfaces for extensibility, concrete types for simplicity
package dubkit
