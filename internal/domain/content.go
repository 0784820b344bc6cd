package domain

// PageMeta holds the document-level meta tags of a page.
type PageMeta struct {
	Description string `json:"description"`
	Keywords    string `json:"keywords"`
}

// PageContent is what a browser session extracts from a rendered page.
type PageContent struct {
	Title  string
	Text   string
	Links  []string
	Images []string
	Meta   PageMeta
}

// RawContentLimit caps the raw text kept on a degraded record.
const RawContentLimit = 1000

// NormalizedContent is the stored form of a page's text.
// Exactly one of ProcessedContent and Error is set; RawContent is always set.
type NormalizedContent struct {
	ProcessedContent string `json:"processedContent,omitempty"`
	Error            string `json:"error,omitempty"`
	RawContent       string `json:"rawContent"`
}

// Degraded reports whether the AI normalization step failed for this content.
func (c NormalizedContent) Degraded() bool { return c.Error != "" }

// EmbeddingText returns the text that represents the content for embedding:
// the processed text when present, else the raw text.
func (c NormalizedContent) EmbeddingText() string {
	if c.ProcessedContent != "" {
		return c.ProcessedContent
	}
	return c.RawContent
}

// Truncate returns the first n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
