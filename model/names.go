package model

import "strings"

// Name represents a normalized model family name.
type Name string

// GPT-4.1 model family constants.
const (
	GPT41     Name = "gpt-4.1"
	GPT41Mini Name = "gpt-4.1-mini"
	GPT41Nano Name = "gpt-4.1-nano"
)

// GPT-4o model family constants.
const (
	GPT4o     Name = "gpt-4o"
	GPT4oMini Name = "gpt-4o-mini"
)

// Tier represents a model capability tier.
type Tier int

// Tier constants representing model capability levels.
const (
	TierNano Tier = iota
	TierMini
	TierStandard
)

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case TierNano:
		return "nano"
	case TierMini:
		return "mini"
	case TierStandard:
		return "standard"
	default:
		return "unknown"
	}
}

// TierFor returns the tier for a given model.
func TierFor(model Name) Tier {
	switch Normalize(string(model)) {
	case GPT41Nano:
		return TierNano
	case GPT41Mini, GPT4oMini:
		return TierMini
	default:
		return TierStandard
	}
}

// Normalize converts a full model identifier to its family alias.
// For example, "gpt-4.1-mini-2025-04-14" becomes "gpt-4.1-mini" and
// "gpt-4o-2024-08-06" becomes "gpt-4o". If the name is already a family
// alias or doesn't match any known pattern, it is returned as-is.
func Normalize(name string) Name {
	switch Name(name) {
	case GPT41, GPT41Mini, GPT41Nano, GPT4o, GPT4oMini:
		return Name(name)
	}
	lower := strings.ToLower(name)

	// Check specific suffixes before the bare families.
	if strings.HasPrefix(lower, "gpt-4.1") {
		if strings.Contains(lower, "-nano") {
			return GPT41Nano
		}
		if strings.Contains(lower, "-mini") {
			return GPT41Mini
		}
		return GPT41
	}
	if strings.HasPrefix(lower, "gpt-4o") {
		if strings.Contains(lower, "-mini") {
			return GPT4oMini
		}
		return GPT4o
	}

	return Name(name)
}
