package search

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/pagevec/internal/domain"
	dompage "github.com/kailas-cloud/pagevec/internal/domain/page"
	"github.com/kailas-cloud/pagevec/internal/metrics"
)

// MaxQueryLength is the longest accepted query, in characters.
const MaxQueryLength = 4096

// Config tunes result sizes and the candidate source.
type Config struct {
	DefaultLimit        int
	MaxLimit            int
	MinScore            float64
	NativeKNN           bool
	CandidateMultiplier int
}

// Response is the outcome of one search.
type Response struct {
	Query      string
	SearchText string
	Rewritten  bool
	Hits       []Hit
}

// Service answers natural-language queries over an owner's records.
type Service struct {
	repo     Repository
	rewriter Rewriter
	embed    Embedder
	cfg      Config
}

// New creates a search service. Zero config values take defaults.
func New(repo Repository, rewriter Rewriter, embed Embedder, cfg Config) *Service {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 100
	}
	if cfg.DefaultLimit > cfg.MaxLimit {
		cfg.DefaultLimit = cfg.MaxLimit
	}
	if cfg.CandidateMultiplier <= 0 {
		cfg.CandidateMultiplier = 4
	}
	return &Service{repo: repo, rewriter: rewriter, embed: embed, cfg: cfg}
}

// Search rewrites query into search terms, embeds them and ranks owner's
// records by similarity. limit <= 0 takes the default; larger values are capped.
func (s *Service) Search(ctx context.Context, owner, query string, limit int) (Response, error) {
	resp, err := s.search(ctx, owner, query, limit)
	if err != nil {
		metrics.SearchTotal.WithLabelValues(string(domain.Classify(err)) + "_error").Inc()
		return Response{}, err
	}
	metrics.SearchTotal.WithLabelValues("ok").Inc()
	return resp, nil
}

func (s *Service) search(ctx context.Context, owner, query string, limit int) (Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Response{}, domain.ErrQueryRequired
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return Response{}, fmt.Errorf("query longer than %d characters: %w", MaxQueryLength, domain.ErrInvalidQuery)
	}
	limit = s.clampLimit(limit)

	text, rewritten := s.rewriter.Rewrite(ctx, query)
	if rewritten {
		metrics.SearchRewriteTotal.WithLabelValues("rewritten").Inc()
	} else {
		metrics.SearchRewriteTotal.WithLabelValues("literal").Inc()
	}

	vec, err := s.embed.Embed(ctx, text)
	if err != nil {
		return Response{}, fmt.Errorf("embed query: %w", err)
	}

	candidates, err := s.candidates(ctx, owner, vec, limit)
	if err != nil {
		return Response{}, err
	}

	hits, err := rank(vec, candidates, limit, s.cfg.MinScore)
	if err != nil {
		return Response{}, err
	}

	return Response{Query: query, SearchText: text, Rewritten: rewritten, Hits: hits}, nil
}

func (s *Service) candidates(ctx context.Context, owner string, vec []float32, limit int) ([]dompage.Record, error) {
	if nn, ok := s.repo.(NearestNeighbors); ok && s.cfg.NativeKNN {
		return s.nearest(ctx, nn, owner, vec, limit)
	}
	recs, err := s.repo.All(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return recs, nil
}

// nearest widens the KNN fetch until the weakest candidate scores strictly
// below the cutoff, so records tied at the cutoff still reach the
// CreatedAt tie-break. A short page means the owner's records are exhausted.
func (s *Service) nearest(
	ctx context.Context, nn NearestNeighbors, owner string, vec []float32, limit int,
) ([]dompage.Record, error) {
	k := limit * s.cfg.CandidateMultiplier
	for {
		recs, err := nn.Nearest(ctx, owner, vec, k)
		if err != nil {
			return nil, fmt.Errorf("nearest records: %w", err)
		}
		if len(recs) < k {
			return recs, nil
		}
		settled, err := cutoffSettled(vec, recs, limit, s.cfg.MinScore)
		if err != nil {
			return nil, err
		}
		if settled {
			return recs, nil
		}
		metrics.SearchKNNWidenTotal.Inc()
		k *= 2
	}
}

func (s *Service) clampLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		return s.cfg.MaxLimit
	}
	return limit
}
