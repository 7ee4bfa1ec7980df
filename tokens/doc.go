// Package tokens estimates the token cost of translation requests.
//
// Estimation is based on the rule-of-thumb that approximately 4 characters
// equals 1 token for English text, rounded up so the estimate never
// meaningfully under-counts. This keeps budget reservations conservative
// without requiring a model-specific tokenizer.
//
// # Counter
//
//	counter := tokens.NewEstimatingCounter()
//	count := counter.Count("Hello, world!")     // 4 tokens
//	fits := counter.FitsInLimit("text", 1000)   // true if <= 1000 tokens
//
// # Reply estimation
//
// A translation reply roughly mirrors its input plus per-item wire framing.
// EstimateOutput biases upward and caps the estimate at the input size plus
// a fixed margin:
//
//	out := tokens.EstimateOutput(inputTokens, itemCount)
//
// # Model limits
//
//	limit := tokens.ModelLimit("gpt-4.1-mini")  // 128000
package tokens
