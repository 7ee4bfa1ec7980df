package openai

import (
	"github.com/dubkit/dubkit/provider"
)

func init() {
	provider.Register("openai", func(cfg provider.Config) (provider.Client, error) {
		return New(cfg)
	})
}
