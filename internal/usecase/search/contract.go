package search

import (
	"context"

	dompage "github.com/kailas-cloud/pagevec/internal/domain/page"
)

// Repository lists every record of an owner for in-process ranking.
type Repository interface {
	All(ctx context.Context, owner string) ([]dompage.Record, error)
}

// NearestNeighbors is implemented by repositories with a native vector index.
type NearestNeighbors interface {
	Nearest(ctx context.Context, owner string, vec []float32, k int) ([]dompage.Record, error)
}

// Rewriter turns a query into search terms. It reports false when it fell
// back to the literal query.
type Rewriter interface {
	Rewrite(ctx context.Context, query string) (string, bool)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
