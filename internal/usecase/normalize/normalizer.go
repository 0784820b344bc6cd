package normalize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pagevec/internal/domain"
	"github.com/kailas-cloud/pagevec/internal/metrics"
)

const (
	// DefaultMaxInputChars caps the page text sent to the AI service.
	DefaultMaxInputChars = 30000
	// DefaultTimeout bounds one AI call.
	DefaultTimeout = 60 * time.Second
)

const normalizePrompt = `Clean and structure the following web page content. ` +
	`Keep the key information and drop navigation, ads and boilerplate. ` +
	`Reply with a single JSON object and nothing else, in the form ` +
	`{"processed_content": "..."}.

Content:
`

var errEmptyContent = errors.New("AI reply has no processed_content")

// Config tunes the normalizer.
type Config struct {
	MaxInputChars int
	Timeout       time.Duration
}

// Result is the tagged outcome of normalization.
// Degraded results carry the failure Reason and truncated raw text.
type Result struct {
	Content  domain.NormalizedContent
	Degraded bool
	Reason   string
}

type payload struct {
	ProcessedContent string `json:"processed_content"`
}

// Normalizer turns raw page text into cleaned content with an AI service.
type Normalizer struct {
	ai       Completer
	maxInput int
	timeout  time.Duration
	logger   *zap.Logger
}

// NewNormalizer creates a normalizer. Zero config values take defaults.
func NewNormalizer(ai Completer, cfg Config, logger *zap.Logger) *Normalizer {
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = DefaultMaxInputChars
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Normalizer{ai: ai, maxInput: cfg.MaxInputChars, timeout: cfg.Timeout, logger: logger}
}

// Normalize never fails: any AI problem yields a degraded Result.
func (n *Normalizer) Normalize(ctx context.Context, raw string) Result {
	p, err := n.complete(ctx, raw)
	if err != nil {
		metrics.AIRequestsTotal.WithLabelValues("normalize", "degraded").Inc()
		n.logger.Warn("AI normalization degraded", zap.Error(err))
		return Result{
			Content: domain.NormalizedContent{
				Error:      err.Error(),
				RawContent: domain.Truncate(raw, domain.RawContentLimit),
			},
			Degraded: true,
			Reason:   err.Error(),
		}
	}

	metrics.AIRequestsTotal.WithLabelValues("normalize", "ok").Inc()
	return Result{
		Content: domain.NormalizedContent{
			ProcessedContent: p.ProcessedContent,
			RawContent:       raw,
		},
	}
}

func (n *Normalizer) complete(ctx context.Context, raw string) (payload, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	reply, err := n.ai.Complete(ctx, normalizePrompt+domain.Truncate(raw, n.maxInput))
	if err != nil {
		return payload{}, fmt.Errorf("normalize content: %w", err)
	}
	return parsePayload(reply)
}

func parsePayload(reply string) (payload, error) {
	var p payload
	if err := json.Unmarshal([]byte(stripFences(reply)), &p); err != nil {
		return payload{}, fmt.Errorf("decode AI reply: %w", err)
	}
	p.ProcessedContent = strings.TrimSpace(p.ProcessedContent)
	if p.ProcessedContent == "" {
		return payload{}, errEmptyContent
	}
	return p, nil
}

// stripFences removes a surrounding markdown code fence, with or without a language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}
