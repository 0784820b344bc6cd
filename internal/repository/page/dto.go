package page

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/pagevec/internal/db"
	"github.com/kailas-cloud/pagevec/internal/domain"
	dompage "github.com/kailas-cloud/pagevec/internal/domain/page"
)

// pageDoc is the JSON document stored per record.
type pageDoc struct {
	ID               string    `json:"id"`
	Owner            string    `json:"owner"`
	SourceURL        string    `json:"source_url"`
	URLText          string    `json:"url_text"`
	Title            string    `json:"title"`
	ProcessedContent string    `json:"processed_content,omitempty"`
	Error            string    `json:"error,omitempty"`
	RawContent       string    `json:"raw_content"`
	Embedding        []float32 `json:"embedding"`
	CreatedAt        int64     `json:"created_at"` // unix millis
}

func toDoc(r *dompage.Record) pageDoc {
	c := r.Content()
	return pageDoc{
		ID:               r.ID(),
		Owner:            r.Owner(),
		SourceURL:        r.SourceURL(),
		URLText:          strings.Join(db.Tokenize(r.SourceURL()), " "),
		Title:            r.Title(),
		ProcessedContent: c.ProcessedContent,
		Error:            c.Error,
		RawContent:       c.RawContent,
		Embedding:        r.Embedding(),
		CreatedAt:        r.CreatedAt().UnixMilli(),
	}
}

func (d *pageDoc) toRecord() dompage.Record {
	return dompage.Reconstruct(
		d.ID, d.Owner, d.SourceURL, d.Title,
		domain.NormalizedContent{
			ProcessedContent: d.ProcessedContent,
			Error:            d.Error,
			RawContent:       d.RawContent,
		},
		d.Embedding,
		time.UnixMilli(d.CreatedAt).UTC(),
	)
}

// decodeDoc accepts both a bare object (FT.SEARCH RETURN $) and the
// single-element array JSON.GET returns for the root path.
func decodeDoc(raw string) (pageDoc, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "[") {
		var docs []pageDoc
		if err := json.Unmarshal([]byte(raw), &docs); err != nil {
			return pageDoc{}, fmt.Errorf("unmarshal page array: %w", err)
		}
		if len(docs) == 0 {
			return pageDoc{}, domain.ErrNotFound
		}
		return docs[0], nil
	}
	var d pageDoc
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return pageDoc{}, fmt.Errorf("unmarshal page: %w", err)
	}
	return d, nil
}
