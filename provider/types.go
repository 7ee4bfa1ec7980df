package provider

import (
	"fmt"
	"time"
)

// Item is one translation request unit. IDs are unique and contiguous from
// 1 within a batch; they exist only on the wire and never leak upstream.
type Item struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// Translation is one returned item. The service echoes the id of the item
// it translated; only the id binds a translation to its source.
type Translation struct {
	ID          int    `json:"id" jsonschema:"required,description=id of the source item this translation belongs to"`
	Translation string `json:"translation" jsonschema:"required,description=translated text of the source item"`
}

// Request is one batch translation call.
type Request struct {
	// Model selects the model. Empty uses the client's configured default.
	Model string

	// System is the system instruction guiding the translation.
	System string

	// Items is the ordered batch payload. IDs must be positive and
	// strictly increasing; follow-up calls carry the original ids of the
	// items they re-request.
	Items []Item

	// MaxTokens caps the reply length. 0 leaves it to the provider.
	MaxTokens int
}

// Usage tracks token consumption reported by the service.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Response is the raw outcome of one call. Content is whatever text the
// model produced; parsing and id reconciliation happen downstream.
type Response struct {
	// Content is the raw reply text.
	Content string

	// Model is the model that actually served the call.
	Model string

	// Usage is the reported token consumption (zero when not reported).
	Usage Usage

	// Duration is the time the call took.
	Duration time.Duration
}

// Validate checks the structural invariants of a request.
func (r Request) Validate() error {
	if len(r.Items) == 0 {
		return fmt.Errorf("%w: empty item list", ErrInvalidRequest)
	}
	prev := 0
	for i, item := range r.Items {
		if item.ID <= prev {
			return fmt.Errorf("%w: item %d has id %d, ids must be positive and strictly increasing", ErrInvalidRequest, i, item.ID)
		}
		prev = item.ID
	}
	return nil
}

// SystemInstruction builds the default system instruction for translating
// into the given target language. Providers may override it via
// Config.SystemPrompt.
func SystemInstruction(targetLang string) string {
	return fmt.Sprintf(
		"You are a subtitle translator. Translate each item of the JSON array "+
			"the user sends into %s. Reply with a JSON object {\"items\": [...]} "+
			"where each element is {\"id\": <same id>, \"translation\": <translated text>}. "+
			"Keep translations natural and conversational, suitable for subtitles. "+
			"Return every id exactly once and nothing else.",
		targetLang)
}
