package acquire

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/kailas-cloud/pagevec/internal/domain"
	"github.com/kailas-cloud/pagevec/internal/metrics"
)

// DefaultNavigationTimeout bounds page loads when Config leaves it unset.
const DefaultNavigationTimeout = 30 * time.Second

// Config bounds browser usage.
type Config struct {
	MaxSessions       int // concurrent browser sessions
	MaxWaiting        int // acquisitions queued for a free session; 0 fails fast
	NavigationTimeout time.Duration
}

// Service renders pages in a bounded pool of browser sessions.
// Every session is closed on every path, including panics.
//
// admitted caps running plus queued acquisitions; sessions caps running
// ones. Queued callers wait on sessions with their own context, so a
// cancelled request leaves the queue immediately.
type Service struct {
	browser    domain.Browser
	pool       *ants.Pool
	admitted   *semaphore.Weighted
	sessions   *semaphore.Weighted
	waiting    atomic.Int32
	navTimeout time.Duration
	logger     *zap.Logger
}

// New creates the service and its worker pool.
func New(b domain.Browser, cfg Config, logger *zap.Logger) (*Service, error) {
	if cfg.MaxSessions <= 0 {
		return nil, fmt.Errorf("max sessions must be positive, got %d", cfg.MaxSessions)
	}
	if cfg.MaxWaiting < 0 {
		return nil, fmt.Errorf("max waiting must not be negative, got %d", cfg.MaxWaiting)
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = DefaultNavigationTimeout
	}

	// Admission is decided by the semaphores. Submit may still block for the
	// moment between a task returning and its worker becoming idle again.
	pool, err := ants.NewPool(cfg.MaxSessions)
	if err != nil {
		return nil, fmt.Errorf("create browser pool: %w", err)
	}

	return &Service{
		browser:    b,
		pool:       pool,
		admitted:   semaphore.NewWeighted(int64(cfg.MaxSessions + cfg.MaxWaiting)),
		sessions:   semaphore.NewWeighted(int64(cfg.MaxSessions)),
		navTimeout: cfg.NavigationTimeout,
		logger:     logger,
	}, nil
}

// Release stops the worker pool. Running acquisitions finish first.
func (s *Service) Release() {
	s.pool.Release()
}

type outcome struct {
	content domain.PageContent
	err     error
}

// Acquire loads url in a fresh browser session and extracts its content.
// With every session and queue slot taken it fails fast with domain.ErrBusy;
// a caller whose context ends while queued gets domain.ErrCanceled.
func (s *Service) Acquire(ctx context.Context, url string) (domain.PageContent, error) {
	if err := ctx.Err(); err != nil {
		return domain.PageContent{}, canceled(url, err)
	}
	if !s.admitted.TryAcquire(1) {
		metrics.BrowserSessionsTotal.WithLabelValues("busy").Inc()
		return domain.PageContent{}, domain.ErrBusy
	}
	defer s.admitted.Release(1)

	if err := s.waitForSession(ctx); err != nil {
		metrics.BrowserSessionsTotal.WithLabelValues("canceled").Inc()
		return domain.PageContent{}, canceled(url, err)
	}

	done := make(chan outcome, 1)
	err := s.pool.Submit(func() {
		defer s.sessions.Release(1)
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: fmt.Errorf("browser task panic: %v: %w", p, domain.ErrBrowserUnavailable)}
			}
		}()
		c, err := s.run(ctx, url)
		done <- outcome{content: c, err: err}
	})
	if err != nil {
		s.sessions.Release(1)
		return domain.PageContent{}, fmt.Errorf("submit browser task: %w: %w", domain.ErrBrowserUnavailable, err)
	}

	res := <-done
	return res.content, res.err
}

func (s *Service) waitForSession(ctx context.Context) error {
	s.waiting.Add(1)
	metrics.BrowserQueueWaiting.Inc()
	defer func() {
		s.waiting.Add(-1)
		metrics.BrowserQueueWaiting.Dec()
	}()
	return s.sessions.Acquire(ctx, 1) //nolint:wrapcheck // wrapped by canceled
}

func canceled(url string, err error) error {
	return fmt.Errorf("acquire %s: %w: %w", url, domain.ErrCanceled, err)
}

func (s *Service) run(ctx context.Context, url string) (domain.PageContent, error) {
	if err := ctx.Err(); err != nil {
		return domain.PageContent{}, canceled(url, err)
	}

	sess, err := s.browser.Launch(ctx)
	if err != nil {
		metrics.BrowserSessionsTotal.WithLabelValues("launch_error").Inc()
		return domain.PageContent{}, fmt.Errorf("launch: %w: %w", domain.ErrBrowserUnavailable, err)
	}
	metrics.BrowserSessionsActive.Inc()
	defer func() {
		metrics.BrowserSessionsActive.Dec()
		if cerr := sess.Close(); cerr != nil {
			s.logger.Warn("Failed to close browser session", zap.String("url", url), zap.Error(cerr))
		}
	}()

	if err := sess.Navigate(ctx, url, s.navTimeout); err != nil {
		metrics.BrowserSessionsTotal.WithLabelValues("load_error").Inc()
		return domain.PageContent{}, fmt.Errorf("%w: %w", domain.ErrPageLoad, err)
	}

	content, err := extract(ctx, sess)
	if err != nil {
		metrics.BrowserSessionsTotal.WithLabelValues("extract_error").Inc()
		return domain.PageContent{}, err
	}

	metrics.BrowserSessionsTotal.WithLabelValues("ok").Inc()
	return content, nil
}

func extract(ctx context.Context, sess domain.BrowserSession) (content domain.PageContent, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("extract panic: %v: %w", p, domain.ErrExtraction)
		}
	}()
	content, err = sess.Extract(ctx)
	if err != nil {
		return domain.PageContent{}, fmt.Errorf("%w: %w", domain.ErrExtraction, err)
	}
	return content, nil
}
