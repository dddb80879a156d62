package config

import "time"

// Default values mirror the tool's documented behavior: descriptions in
// English, regions rendered at 150 DPI, modest retry and pacing limits.
const (
	DefaultModel             = "gpt-4o"
	DefaultLanguage          = "en"
	DefaultDPI               = 150.0
	DefaultJPEGQuality       = 85
	DefaultMaxTokens         = 300
	DefaultRequestTimeout    = 90 * time.Second
	DefaultRequestsPerMinute = 60
	DefaultMaxRetries        = 3
	DefaultContextTags       = 2
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Model:             DefaultModel,
		OpenAIKey:         "${OPENAI_API_KEY}",
		Language:          DefaultLanguage,
		DPI:               DefaultDPI,
		JPEGQuality:       DefaultJPEGQuality,
		MaxTokens:         DefaultMaxTokens,
		RequestTimeout:    DefaultRequestTimeout,
		RequestsPerMinute: DefaultRequestsPerMinute,
		MaxRetries:        DefaultMaxRetries,
		ContextTags:       DefaultContextTags,
	}
}
