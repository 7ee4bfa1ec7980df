// Package model provides model tiers, pricing, and cost tracking for
// translation runs.
//
// Translation is a volume workload: most batches do fine on a small
// model, and follow-up calls for a handful of missing lines need even
// less. The package maps full model identifiers to capability tiers and
// offers downgrade chains that pick a cheaper model for narrow retries.
//
// # Cost Tracking
//
//	tracker := model.NewCostTracker()
//	tracker.Record(model.GPT41Mini, 1000, 500) // input, output tokens
//	cost := tracker.EstimatedCost()
//
// # Follow-Up Downgrade
//
//	chain := model.DefaultDowngrade
//	followUp := chain.FollowUp(model.GPT41) // gpt-4.1-mini
package model
