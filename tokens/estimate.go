package tokens

// RequestOverhead is the fixed token cost of the non-payload parts of a
// translation request: system instruction, schema constraint, and message
// framing. Measured against the default prompt and rounded up.
const RequestOverhead = 220

// ItemOverhead is the per-item wire framing cost ({"id":N,"text":"..."}
// plus separators) on top of the item text itself.
const ItemOverhead = 8

// OutputMargin caps how far the reply estimate may exceed the input size.
// Translations track their source closely; anything past input + margin is
// over-reservation that starves concurrent callers for no benefit.
const OutputMargin = 512

// outputExpansion biases the reply estimate upward: target languages are
// frequently wordier than the source, and the reply repeats ids and framing.
const (
	outputExpansionNum = 6
	outputExpansionDen = 5
)

// EstimateOutput estimates the token size of a translation reply for a
// request carrying inputTokens of payload across itemCount items. The
// estimate deliberately over-counts but never exceeds inputTokens +
// OutputMargin.
func EstimateOutput(inputTokens, itemCount int) int {
	if inputTokens < 0 {
		inputTokens = 0
	}
	if itemCount < 0 {
		itemCount = 0
	}
	est := inputTokens*outputExpansionNum/outputExpansionDen + itemCount*ItemOverhead
	if limit := inputTokens + OutputMargin; est > limit {
		est = limit
	}
	return est
}
