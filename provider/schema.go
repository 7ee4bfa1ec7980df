package provider

import (
	"github.com/invopop/jsonschema"
)

// ReplyEnvelope is the wire shape models are instructed to reply with.
// Wrapping the array in an object keeps the schema root an object, which
// structured-output modes require.
type ReplyEnvelope struct {
	Items []Translation `json:"items" jsonschema:"required,description=one translation per source item"`
}

// ResponseSchema returns the JSON schema for ReplyEnvelope, suitable for
// structured-output response formats. The schema is fully inlined so
// providers that reject $ref can consume it.
func ResponseSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
	}
	return reflector.Reflect(&ReplyEnvelope{})
}
