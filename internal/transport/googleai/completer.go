// Package googleai answers prompts with Gemini through langchaingo.
package googleai

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"

	"github.com/kailas-cloud/pagevec/internal/domain"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-1.5-flash"

// Config holds the Gemini settings.
type Config struct {
	APIKey      string
	Model       string
	Temperature float64
}

// Completer sends single prompts to a langchaingo model.
type Completer struct {
	model       llms.Model
	temperature float64
}

// New creates a Gemini-backed completer.
func New(ctx context.Context, cfg Config) (*Completer, error) {
	name := cfg.Model
	if name == "" {
		name = DefaultModel
	}
	client, err := googleai.New(ctx,
		googleai.WithAPIKey(cfg.APIKey),
		googleai.WithDefaultModel(name),
	)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return NewWithModel(client, cfg.Temperature), nil
}

// NewWithModel wraps any langchaingo model.
func NewWithModel(m llms.Model, temperature float64) *Completer {
	return &Completer{model: m, temperature: temperature}
}

// Complete returns the model's reply to prompt.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt, llms.WithTemperature(c.temperature))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w: %w", domain.ErrCompletionFailed, err)
	}
	return strings.TrimSpace(out), nil
}
