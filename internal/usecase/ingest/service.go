package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pagevec/internal/domain"
	dompage "github.com/kailas-cloud/pagevec/internal/domain/page"
	logpkg "github.com/kailas-cloud/pagevec/internal/logger"
	"github.com/kailas-cloud/pagevec/internal/metrics"
)

// Error is a failed ingestion: the stage it stopped in and the cause.
type Error struct {
	Stage Stage
	Kind  domain.FailureKind
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ingest %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Service turns a URL into a stored, embedded page record.
type Service struct {
	repo       Repository
	dedup      *DedupGuard
	acquirer   Acquirer
	normalizer Normalizer
	embedder   Embedder
	dim        int
	logger     *zap.Logger

	now   func() time.Time
	newID func() string
}

// New creates an ingestion service. dim is the expected embedding
// dimension; 0 disables the check.
func New(
	repo Repository, acquirer Acquirer, normalizer Normalizer, embedder Embedder,
	dim int, logger *zap.Logger,
) *Service {
	return &Service{
		repo:       repo,
		dedup:      NewDedupGuard(repo),
		acquirer:   acquirer,
		normalizer: normalizer,
		embedder:   embedder,
		dim:        dim,
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

type run struct {
	stage    Stage
	timings  []zap.Field
	degraded bool
}

func (r *run) enter(s Stage) func() {
	r.stage = s
	start := time.Now()
	return func() {
		d := time.Since(start)
		metrics.IngestStageDuration.WithLabelValues(s.String()).Observe(d.Seconds())
		r.timings = append(r.timings, zap.Duration(s.String()+"_duration", d))
	}
}

// Ingest validates rawURL, then acquires, normalizes, embeds and stores the page.
// Failures are *Error values wrapping the domain sentinel of the failed stage.
func (s *Service) Ingest(ctx context.Context, owner, rawURL string) (dompage.Record, error) {
	start := time.Now()
	r := &run{}

	rec, err := s.ingest(ctx, r, owner, rawURL)

	log := logpkg.FromContextOr(ctx, s.logger)
	fields := append([]zap.Field{
		zap.String("owner", owner),
		zap.String("url", rawURL),
		zap.Stringer("stage", r.stage),
		zap.Bool("degraded", r.degraded),
		zap.Duration("duration", time.Since(start)),
	}, r.timings...)

	if err != nil {
		kind := domain.Classify(err)
		metrics.IngestTotal.WithLabelValues(string(kind) + "_error").Inc()
		log.Info("Ingestion failed", append(fields, zap.String("kind", string(kind)), zap.Error(err))...)
		return dompage.Record{}, &Error{Stage: r.stage, Kind: kind, Err: err}
	}

	outcome := "ok"
	if r.degraded {
		outcome = "degraded"
	}
	metrics.IngestTotal.WithLabelValues(outcome).Inc()
	log.Info("Ingestion done", append(fields, zap.String("id", rec.ID()))...)
	return rec, nil
}

func (s *Service) ingest(ctx context.Context, r *run, owner, rawURL string) (dompage.Record, error) {
	r.stage = StageValidate
	sourceURL, err := dompage.NormalizeURL(rawURL)
	if err != nil {
		return dompage.Record{}, err
	}

	done := r.enter(StageDedup)
	err = s.dedup.Check(ctx, owner, sourceURL)
	done()
	if err != nil {
		return dompage.Record{}, err
	}

	done = r.enter(StageAcquire)
	page, err := s.acquirer.Acquire(ctx, sourceURL)
	done()
	if err != nil {
		return dompage.Record{}, fmt.Errorf("acquire: %w", err)
	}

	done = r.enter(StageNormalize)
	norm := s.normalizer.Normalize(ctx, page.Text)
	done()
	r.degraded = norm.Degraded

	done = r.enter(StageEmbed)
	vec, err := s.embedder.Embed(ctx, page.Title+" "+norm.Content.EmbeddingText())
	done()
	if err != nil {
		return dompage.Record{}, fmt.Errorf("embed page: %w", err)
	}
	if s.dim > 0 && len(vec) != s.dim {
		return dompage.Record{}, fmt.Errorf("embed page: got %d dims, want %d: %w",
			len(vec), s.dim, domain.ErrVectorDimMismatch)
	}

	rec, err := dompage.New(s.newID(), owner, sourceURL, page.Title, norm.Content, vec, s.now())
	if err != nil {
		return dompage.Record{}, fmt.Errorf("build record: %w", err)
	}

	done = r.enter(StagePersist)
	err = s.repo.Create(ctx, &rec)
	done()
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyScraped) {
			return dompage.Record{}, err
		}
		return dompage.Record{}, fmt.Errorf("store page: %w", err)
	}

	r.stage = StageDone
	return rec, nil
}
