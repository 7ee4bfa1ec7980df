package model

// DowngradeChain defines the order of models to step down through when a
// cheaper model will do. Follow-up calls re-requesting a few missing
// translations are the typical consumer.
type DowngradeChain struct {
	// Models in descending order of capability.
	Models []Name
}

// DefaultDowngrade steps through the GPT-4.1 family.
var DefaultDowngrade = DowngradeChain{
	Models: []Name{GPT41, GPT41Mini, GPT41Nano},
}

// NoDowngrade keeps every call on the original model.
var NoDowngrade = DowngradeChain{}

// FollowUp returns the model to use for a follow-up call after a partial
// reply from current. The chain steps down one tier; a model already at
// the bottom, or not in the chain at all, stays put.
func (c *DowngradeChain) FollowUp(current Name) Name {
	family := Normalize(string(current))
	for i, m := range c.Models {
		if m == family && i < len(c.Models)-1 {
			return c.Models[i+1]
		}
	}
	return current
}

// CanDowngrade reports whether current has a cheaper tier below it in the
// chain.
func (c *DowngradeChain) CanDowngrade(current Name) bool {
	family := Normalize(string(current))
	for i, m := range c.Models {
		if m == family {
			return i < len(c.Models)-1
		}
	}
	return false
}
