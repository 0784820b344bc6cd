package domain

import (
	"context"
	"fmt"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// BatchEmbedder vectorizes several texts; output order matches input order.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// HealthChecker verifies provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbedEach calls Embed once per text. Safety net for embedders without a batch path.
func EmbedEach(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed [%d]: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

// InstructionEmbedder prepends an instruction before embedding
// (e.g. "query: " / "passage: " for E5-style models).
type InstructionEmbedder struct {
	inner       Embedder
	instruction string
}

// NewInstructionEmbedder creates a decorator that prepends instruction text.
func NewInstructionEmbedder(inner Embedder, instruction string) *InstructionEmbedder {
	return &InstructionEmbedder{inner: inner, instruction: instruction}
}

// Embed prepends instruction and delegates to the inner embedder.
func (e *InstructionEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.inner.Embed(ctx, e.instruction+text)
	if err != nil {
		return nil, fmt.Errorf("instruction embed: %w", err)
	}
	return vec, nil
}

// EmbedBatch prepends instruction to each text. Falls back to EmbedEach
// when the inner embedder has no batch path.
func (e *InstructionEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = e.instruction + t
	}

	if be, ok := e.inner.(BatchEmbedder); ok {
		out, err := be.EmbedBatch(ctx, prefixed)
		if err != nil {
			return nil, fmt.Errorf("instruction batch embed: %w", err)
		}
		return out, nil
	}

	out, err := EmbedEach(ctx, e.inner, prefixed)
	if err != nil {
		return nil, fmt.Errorf("instruction batch embed fallback: %w", err)
	}
	return out, nil
}
