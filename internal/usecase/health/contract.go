package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks the embedding engine. The model loads lazily,
// so an engine that has not loaded yet is reported separately.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
	Loaded() bool
}

// CompletionChecker checks the generative AI service.
type CompletionChecker interface {
	HealthCheck(ctx context.Context) error
}
