package ingest

import (
	"context"

	"github.com/kailas-cloud/pagevec/internal/domain"
	dompage "github.com/kailas-cloud/pagevec/internal/domain/page"
	"github.com/kailas-cloud/pagevec/internal/usecase/normalize"
)

// Repository defines the storage contract for ingestion.
type Repository interface {
	ExistsByURL(ctx context.Context, owner, sourceURL string) (bool, error)
	Create(ctx context.Context, rec *dompage.Record) error
}

// Acquirer renders a page and extracts its content.
type Acquirer interface {
	Acquire(ctx context.Context, url string) (domain.PageContent, error)
}

// Normalizer cleans raw page text. It never fails; problems degrade the result.
type Normalizer interface {
	Normalize(ctx context.Context, raw string) normalize.Result
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
