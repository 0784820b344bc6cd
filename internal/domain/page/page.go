package page

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kailas-cloud/pagevec/internal/domain"
)

// MaxURLLength is the longest source URL accepted for ingestion.
const MaxURLLength = 2048

// Record is one ingested page (immutable value object).
// A Record only ever exists fully embedded; there are no partial records.
type Record struct {
	id        string
	owner     string
	sourceURL string
	title     string
	content   domain.NormalizedContent
	embedding []float32
	createdAt time.Time
}

// New validates and creates a Record.
func New(
	id, owner, sourceURL, title string,
	content domain.NormalizedContent, embedding []float32, createdAt time.Time,
) (Record, error) {
	if id == "" {
		return Record{}, fmt.Errorf("record ID is required")
	}
	if owner == "" {
		return Record{}, fmt.Errorf("owner is required")
	}
	if sourceURL == "" {
		return Record{}, fmt.Errorf("source URL is required: %w", domain.ErrInvalidURL)
	}
	if content.ProcessedContent == "" && content.Error == "" {
		return Record{}, fmt.Errorf("content needs processed text or an error marker")
	}
	if content.ProcessedContent != "" && content.Error != "" {
		return Record{}, fmt.Errorf("content cannot be both processed and degraded")
	}
	if len(embedding) == 0 {
		return Record{}, fmt.Errorf("embedding is required")
	}
	if createdAt.IsZero() {
		return Record{}, fmt.Errorf("created time is required")
	}

	vec := make([]float32, len(embedding))
	copy(vec, embedding)

	return Record{
		id:        id,
		owner:     owner,
		sourceURL: sourceURL,
		title:     title,
		content:   content,
		embedding: vec,
		createdAt: createdAt.UTC().Truncate(time.Millisecond),
	}, nil
}

// Reconstruct creates a Record without validation (storage hydration).
func Reconstruct(
	id, owner, sourceURL, title string,
	content domain.NormalizedContent, embedding []float32, createdAt time.Time,
) Record {
	return Record{
		id: id, owner: owner, sourceURL: sourceURL, title: title,
		content: content, embedding: embedding, createdAt: createdAt,
	}
}

// ID returns the record identifier.
func (r *Record) ID() string { return r.id }

// Owner returns the owning account reference.
func (r *Record) Owner() string { return r.owner }

// SourceURL returns the ingested URL.
func (r *Record) SourceURL() string { return r.sourceURL }

// Title returns the page title, possibly empty.
func (r *Record) Title() string { return r.title }

// Content returns the normalized content.
func (r *Record) Content() domain.NormalizedContent { return r.content }

// Embedding returns the embedding vector.
func (r *Record) Embedding() []float32 { return r.embedding }

// CreatedAt returns the creation time.
func (r *Record) CreatedAt() time.Time { return r.createdAt }

// NormalizeURL validates a user supplied URL and returns its canonical form:
// absolute http(s), lower-cased scheme and host, no fragment.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("url is required: %w", domain.ErrInvalidURL)
	}
	if len(raw) > MaxURLLength {
		return "", fmt.Errorf("url too long (max %d): %w", MaxURLLength, domain.ErrInvalidURL)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url: %w: %w", domain.ErrInvalidURL, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q: %w", u.Scheme, domain.ErrInvalidURL)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("url has no host: %w", domain.ErrInvalidURL)
	}

	u.Scheme = scheme
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}

// Filter narrows a library listing. Empty fields match everything.
// Matching is case-insensitive and by containment.
type Filter struct {
	Title string
	URL   string
}

// IsEmpty reports whether the filter matches every record.
func (f Filter) IsEmpty() bool {
	return strings.TrimSpace(f.Title) == "" && strings.TrimSpace(f.URL) == ""
}
