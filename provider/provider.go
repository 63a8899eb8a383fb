package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/mohammad-safakhou/postforge/config"
	gemini_provider "github.com/mohammad-safakhou/postforge/provider/gemini"
)

// Client represents different LLM providers
type Client string

const (
	Gemini Client = "gemini"
)

// Provider is the interface that all LLM implementations must satisfy.
// Chat sends one system+user exchange and returns the model's text content.
type Provider interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// NewProvider creates a new LLM client based on the provided configuration
func NewProvider(client Client, cfg config.LLMConfig) (Provider, error) {
	switch client {
	case Gemini:
		if cfg.APIKey == "" {
			return nil, errors.New("llm.api_key not set")
		}
		return gemini_provider.NewClient(cfg.APIKey, cfg.Model, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", client)
	}
}

// IsRateLimited reports whether err is a provider rate-limit rejection
// (HTTP 429 class). These are the only calls worth retrying.
func IsRateLimited(err error) bool {
	var re *gemini_provider.RequestError
	if errors.As(err, &re) {
		return re.StatusCode == 429
	}
	return false
}
