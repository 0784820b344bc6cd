package ingest

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/pagevec/internal/domain"
)

// URLChecker reports whether an owner already stored a URL.
type URLChecker interface {
	ExistsByURL(ctx context.Context, owner, sourceURL string) (bool, error)
}

// DedupGuard rejects URLs the owner already ingested before any expensive work starts.
type DedupGuard struct {
	repo URLChecker
}

// NewDedupGuard creates a guard over repo.
func NewDedupGuard(repo URLChecker) *DedupGuard {
	return &DedupGuard{repo: repo}
}

// Check returns domain.ErrAlreadyScraped when owner already has sourceURL.
func (g *DedupGuard) Check(ctx context.Context, owner, sourceURL string) error {
	exists, err := g.repo.ExistsByURL(ctx, owner, sourceURL)
	if err != nil {
		return fmt.Errorf("check duplicate: %w", err)
	}
	if exists {
		return domain.ErrAlreadyScraped
	}
	return nil
}
