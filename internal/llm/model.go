// Package llm implements the language-model collaborators of the pipeline
// on top of Gemini or any OpenAI-compatible endpoint.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/monomind/internal/domain"
)

// Providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Default model names per provider.
const (
	DefaultGeminiModel = "gemini-2.5-flash"
	DefaultOpenAIModel = "gpt-4o-mini"
)

// ErrEmptyResponse is returned when a model produces no text.
var ErrEmptyResponse = errors.New("empty response from model")

// Prompt is one request to a text model.
type Prompt struct {
	System      string
	History     []domain.Message
	User        string
	JSON        bool
	Temperature float32
	MaxTokens   int
	WebSearch   bool
}

// Model generates text for a prompt.
type Model interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// Config selects and configures a model backend.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// NewModel creates the backend named by cfg.Provider.
func NewModel(ctx context.Context, cfg Config) (Model, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderGemini, "":
		return NewGeminiModel(ctx, cfg.APIKey, cfg.Model)
	case ProviderOpenAI:
		return NewOpenAIModel(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("NewModel: unsupported provider %q", cfg.Provider)
	}
}
