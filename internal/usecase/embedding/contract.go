package embedding

import (
	"context"

	"github.com/kailas-cloud/pagevec/internal/domain"
)

// Model is a loaded embedding model.
type Model interface {
	domain.Embedder
	Name() string
	Dimensions() int
}

// Loader loads a model. It may be slow and may fail; the engine calls it
// at most once per flight.
type Loader func(ctx context.Context) (Model, error)
