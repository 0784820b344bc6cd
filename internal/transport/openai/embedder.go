package openai

import (
	"context"
	"fmt"
	"sort"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pagevec/internal/domain"
	"github.com/kailas-cloud/pagevec/internal/vecmath"
)

// probeText is embedded once at load time to learn the output dimension.
const probeText = "dimension probe"

// Embedder is an embedding model served over the OpenAI-compatible API
// (OpenAI, a text-embeddings-inference server, Ollama, ...).
// Vectors are L2-normalized so cosine and dot product agree.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	sendDims   bool
	user       string
	logger     *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	// SendDimensions forwards Dimensions in the request for models that
	// support shortening (text-embedding-3-*). TEI and most local servers
	// reject or ignore it.
	SendDimensions bool
	User           string
	Logger         *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider without
// contacting it. Use LoadEmbedder to verify the model first.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		sendDims:   cfg.SendDimensions,
		user:       cfg.User,
		logger:     cfg.Logger,
	}
}

// LoadEmbedder creates the provider and embeds a probe text to confirm the
// model answers with the configured dimension. Dimensions == 0 adopts
// whatever the model returns.
func LoadEmbedder(ctx context.Context, cfg *Config) (*Embedder, error) {
	e := NewEmbedder(cfg)

	vecs, err := e.create(ctx, []string{probeText})
	if err != nil {
		return nil, fmt.Errorf("probe model %s: %w", cfg.Model, err)
	}
	got := len(vecs[0])
	if e.dimensions > 0 && got != e.dimensions {
		return nil, fmt.Errorf("model %s returns %d dims, configured %d: %w",
			cfg.Model, got, e.dimensions, domain.ErrVectorDimMismatch)
	}
	e.dimensions = got

	if e.logger != nil {
		e.logger.Debug("Embedding model probed",
			zap.String("model", cfg.Model),
			zap.Int("dimensions", got),
		)
	}
	return e, nil
}

// Name returns the model identifier.
func (e *Embedder) Name() string { return string(e.model) }

// Dimensions returns the vector size the model produces.
func (e *Embedder) Dimensions() int { return e.dimensions }

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.create(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch implements domain.BatchEmbedder with a single API request.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return e.create(ctx, texts)
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (e *Embedder) create(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.user,
	}
	if e.sendDims && e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, parseAPIError("embedding", err, domain.ErrEmbeddingUnavailable)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response has %d vectors for %d inputs: %w",
			len(resp.Data), len(texts), domain.ErrEmbeddingUnavailable)
	}

	// Servers may answer out of order; Index is authoritative.
	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })

	out := make([][]float32, len(resp.Data))
	for i := range resp.Data {
		vec := resp.Data[i].Embedding
		if len(vec) == 0 {
			return nil, fmt.Errorf("empty embedding at index %d: %w", i, domain.ErrEmbeddingUnavailable)
		}
		out[i] = vecmath.Normalize(vec)
	}
	return out, nil
}
