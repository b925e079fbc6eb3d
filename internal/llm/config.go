// Package llm provides the LLM client abstraction used by tailoring and cover letters.
package llm

import "maps"

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for short free-text generation such as cover letters
	TierLite ModelTier = "lite"
	// TierStandard is for structured output: tailored resume content
	TierStandard ModelTier = "standard"
	// TierAdvanced is for rewrites that need stronger reasoning
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// ProviderGemini is the Google Gemini provider
const ProviderGemini Provider = "gemini"

// Config holds the model configuration for the application
type Config struct {
	Provider    Provider
	Models      map[ModelTier]string
	Temperature float32
}

// DefaultConfig returns the default Gemini configuration
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Temperature: 0.2,
	}
}

// GetModel returns the model name for a given tier, falling back to standard then lite.
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a copy of the config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	out := &Config{
		Provider:    c.Provider,
		Models:      maps.Clone(c.Models),
		Temperature: c.Temperature,
	}
	if out.Models == nil {
		out.Models = make(map[ModelTier]string)
	}
	out.Models[tier] = model
	return out
}
