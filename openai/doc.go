// Package openai implements the translation client for OpenAI-compatible
// chat-completions APIs.
//
// The client sends each batch as a single chat call: a system instruction
// plus a user message carrying the items as a JSON array. Structured output
// is requested via the json_schema response format so replies parse
// reliably. Throttling responses are surfaced as provider errors carrying
// the service's Retry-After and quota-reset hints.
//
// The package registers itself under the name "openai":
//
//	import _ "github.com/dubkit/dubkit/openai"
//
//	client, err := provider.New("openai", provider.Config{
//	    Model:      "gpt-4.1-mini",
//	    TargetLang: "spanish",
//	})
//
// Any endpoint speaking the chat-completions dialect works through
// Config.BaseURL (Azure, OpenRouter, local inference servers).
package openai
