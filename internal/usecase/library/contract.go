package library

import (
	"context"

	dompage "github.com/kailas-cloud/pagevec/internal/domain/page"
)

// Repository defines the storage contract for browsing an owner's records.
type Repository interface {
	List(ctx context.Context, owner string, f dompage.Filter, offset, limit int) ([]dompage.Record, int, error)
	Get(ctx context.Context, owner, id string) (dompage.Record, error)
	Delete(ctx context.Context, owner, id string) error
}
