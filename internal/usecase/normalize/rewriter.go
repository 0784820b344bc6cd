package normalize

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pagevec/internal/metrics"
)

const rewritePrompt = "Extract key search terms from: "

// maxRewriteChars rejects replies that are clearly not a list of search terms.
const maxRewriteChars = 4096

// Rewriter turns a natural-language query into search terms.
type Rewriter struct {
	ai      Completer
	timeout time.Duration
	logger  *zap.Logger
}

// NewRewriter creates a query rewriter. A zero timeout takes DefaultTimeout.
func NewRewriter(ai Completer, timeout time.Duration, logger *zap.Logger) *Rewriter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Rewriter{ai: ai, timeout: timeout, logger: logger}
}

// Rewrite returns the extracted search terms and true, or the query itself
// and false when the AI service fails or replies with nothing usable.
func (r *Rewriter) Rewrite(ctx context.Context, query string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	reply, err := r.ai.Complete(ctx, rewritePrompt+query)
	if err != nil {
		metrics.AIRequestsTotal.WithLabelValues("rewrite", "degraded").Inc()
		r.logger.Warn("Query rewrite failed, using literal query", zap.Error(err))
		return query, false
	}

	terms := stripFences(reply)
	if terms == "" || len(terms) > maxRewriteChars {
		metrics.AIRequestsTotal.WithLabelValues("rewrite", "degraded").Inc()
		r.logger.Warn("Query rewrite unusable, using literal query", zap.Int("reply_len", len(terms)))
		return query, false
	}

	metrics.AIRequestsTotal.WithLabelValues("rewrite", "ok").Inc()
	return terms, true
}
