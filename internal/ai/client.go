// Package ai turns a captured receipt image into a normalized field set by
// calling an external vision completion service. Every unhappy path is a
// typed outcome, not an error: the pipeline's contract is to always complete
// and record what happened in the explanation trail.
package ai

import (
	"strings"
	"time"
)

// Provider identifiers accepted in configuration.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

const (
	defaultTimeout   = 45 * time.Second
	minTimeout       = 5 * time.Second
	defaultMaxTokens = 2600
	minMaxTokens     = 800
	maxMaxTokens     = 8000

	defaultOpenAIModel    = "gpt-4o-mini"
	defaultAnthropicModel = "claude-3-5-sonnet-20240620"

	defaultOpenAIBaseURL    = "https://api.openai.com/v1"
	defaultAnthropicBaseURL = "https://api.anthropic.com/v1"
)

// Config holds the extraction adapter's read-only configuration.
type Config struct {
	Provider        string
	APIKey          string
	Model           string
	BaseURL         string
	Timeout         time.Duration
	MaxOutputTokens int
	Enabled         bool
}

// normalized applies defaults and clamps so a partially-filled config is
// always safe to run with.
func (c Config) normalized() Config {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = ProviderOpenAI
	}
	c.APIKey = strings.TrimSpace(c.APIKey)

	c.Model = strings.TrimSpace(c.Model)
	if c.Model == "" {
		switch c.Provider {
		case ProviderAnthropic:
			c.Model = defaultAnthropicModel
		default:
			c.Model = defaultOpenAIModel
		}
	}

	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		switch c.Provider {
		case ProviderAnthropic:
			c.BaseURL = defaultAnthropicBaseURL
		default:
			c.BaseURL = defaultOpenAIBaseURL
		}
	}

	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	} else if c.Timeout < minTimeout {
		c.Timeout = minTimeout
	}

	if c.MaxOutputTokens <= 0 {
		c.MaxOutputTokens = defaultMaxTokens
	} else if c.MaxOutputTokens < minMaxTokens {
		c.MaxOutputTokens = minMaxTokens
	} else if c.MaxOutputTokens > maxMaxTokens {
		c.MaxOutputTokens = maxMaxTokens
	}

	return c
}

// Result is the typed outcome of one extraction attempt. Status is one of
// the model.Status* values; Fields is non-nil only on success.
type Result struct {
	Fields   *Fields
	Status   string
	Provider string
	Model    string
	Reason   string
}

func providerLabel(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return "Anthropic"
	case ProviderOpenAI:
		return "OpenAI"
	default:
		return provider
	}
}
