package embedding

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/pagevec/internal/domain"
	"github.com/kailas-cloud/pagevec/internal/metrics"
	"github.com/kailas-cloud/pagevec/internal/vecmath"
)

// DefaultBatchConcurrency bounds parallel Embed calls inside EmbedBatch.
const DefaultBatchConcurrency = 4

// DefaultLoadTimeout bounds one model load, so a stalled provider fails the
// flight and the next call starts a fresh load.
const DefaultLoadTimeout = 60 * time.Second

// State is the lifecycle stage of the engine's model.
type State int32

const (
	// StateUninitialized means no model is loaded and no load is running.
	StateUninitialized State = iota
	// StateInitializing means a load is in flight.
	StateInitializing
	// StateReady means the model is loaded and serving.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Engine lazily loads one embedding model and serves every caller from it.
// Concurrent first callers share a single load; a failed load is not
// remembered and the next call tries again.
type Engine struct {
	load        Loader
	provider    string
	concurrency int
	loadTimeout time.Duration
	logger      *zap.Logger

	group singleflight.Group
	mu    sync.RWMutex
	model Model
	state atomic.Int32
	loads atomic.Int64
}

// NewEngine creates an engine. Nothing is loaded until the first Embed
// or Warmup. concurrency <= 0 selects DefaultBatchConcurrency.
func NewEngine(load Loader, provider string, concurrency int, logger *zap.Logger) *Engine {
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}
	return &Engine{
		load:        load,
		provider:    provider,
		concurrency: concurrency,
		loadTimeout: DefaultLoadTimeout,
		logger:      logger,
	}
}

// WithLoadTimeout overrides DefaultLoadTimeout. d <= 0 keeps the default.
func (e *Engine) WithLoadTimeout(d time.Duration) *Engine {
	if d > 0 {
		e.loadTimeout = d
	}
	return e
}

// State reports the current lifecycle stage.
func (e *Engine) State() State { return State(e.state.Load()) }

// Loaded reports whether the model is ready.
func (e *Engine) Loaded() bool { return e.State() == StateReady }

// Loads returns how many times the loader has been invoked.
func (e *Engine) Loads() int64 { return e.loads.Load() }

// Dimensions reports the loaded model's output size, 0 before Ready.
func (e *Engine) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.model == nil {
		return 0
	}
	return e.model.Dimensions()
}

// Warmup loads the model now instead of on first use.
func (e *Engine) Warmup(ctx context.Context) error {
	if _, err := e.ensure(ctx); err != nil {
		return err
	}
	return nil
}

// Embed converts text into a vector of the model's dimension.
func (e *Engine) Embed(ctx context.Context, text string) ([]float32, error) {
	m, err := e.ensure(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	vec, err := m.Embed(ctx, text)
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, m.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, m.Name(), "error").Inc()
		return nil, fmt.Errorf("embed: %w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if len(vec) != m.Dimensions() {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, m.Name(), "error").Inc()
		return nil, fmt.Errorf("embed: got %d dims, model has %d: %w",
			len(vec), m.Dimensions(), domain.ErrVectorDimMismatch)
	}
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, m.Name(), "ok").Inc()
	return vec, nil
}

// EmbedBatch embeds every text independently with bounded concurrency.
// Output order matches input order; the first failure cancels the rest.
func (e *Engine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if _, err := e.ensure(ctx); err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, text := range texts {
		g.Go(func() error {
			vec, err := e.Embed(gctx, text)
			if err != nil {
				return fmt.Errorf("text %d: %w", i, err)
			}
			out[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("embed batch: %w", err)
	}
	return out, nil
}

// Similarity returns the cosine similarity of two vectors.
func (e *Engine) Similarity(a, b []float32) (float64, error) {
	return vecmath.Cosine(a, b)
}

// HealthCheck probes the model when it is loaded and can be probed.
// An engine that has not loaded yet is healthy: it loads on demand.
func (e *Engine) HealthCheck(ctx context.Context) error {
	e.mu.RLock()
	m := e.model
	e.mu.RUnlock()
	if m == nil {
		return nil
	}
	if hc, ok := m.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health: %w", err)
		}
	}
	return nil
}

func (e *Engine) ensure(ctx context.Context) (Model, error) {
	e.mu.RLock()
	m := e.model
	e.mu.RUnlock()
	if m != nil {
		return m, nil
	}

	// The load outlives any single caller: one caller giving up must not
	// fail the others waiting on the same flight. It is still bounded by
	// loadTimeout so a hung provider releases the flight.
	ch := e.group.DoChan("model", func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.loadTimeout)
		defer cancel()
		return e.loadOnce(lctx)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for embedding model: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Model), nil
	}
}

func (e *Engine) loadOnce(ctx context.Context) (Model, error) {
	e.mu.RLock()
	m := e.model
	e.mu.RUnlock()
	if m != nil {
		return m, nil
	}

	e.state.Store(int32(StateInitializing))
	e.loads.Add(1)
	start := time.Now()

	m, err := e.load(ctx)
	if err != nil {
		e.state.Store(int32(StateUninitialized))
		metrics.EmbeddingModelLoadsTotal.WithLabelValues("error").Inc()
		e.logger.Error("Embedding model load failed",
			zap.String("provider", e.provider),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("load model: %w: %w", domain.ErrEmbeddingUnavailable, err)
	}

	e.mu.Lock()
	e.model = m
	e.mu.Unlock()
	e.state.Store(int32(StateReady))
	metrics.EmbeddingModelLoadsTotal.WithLabelValues("ok").Inc()

	e.logger.Info("Embedding model loaded",
		zap.String("provider", e.provider),
		zap.String("model", m.Name()),
		zap.Int("dimensions", m.Dimensions()),
		zap.Duration("duration", time.Since(start)),
	)
	return m, nil
}
