package pagevec

import "time"

// Content is the normalized text of a page. Error is set when AI
// normalization failed and only a truncated RawContent was kept.
type Content struct {
	ProcessedContent string `json:"processedContent,omitempty"`
	Error            string `json:"error,omitempty"`
	RawContent       string `json:"rawContent"`
}

// Record is a stored page.
type Record struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Content   Content   `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Pagination describes one page of a listing.
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// RecordList is one page of stored records, newest first.
type RecordList struct {
	Data       []Record   `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// ListParams filters and pages a listing. Zero values use server defaults.
type ListParams struct {
	Title string
	URL   string
	Page  int
	Limit int
}

// Hit is one ranked search result.
type Hit struct {
	Record
	Score float64 `json:"score"`
}

// SearchResult is the outcome of a semantic search.
type SearchResult struct {
	Query      string `json:"query"`
	SearchText string `json:"searchText"`
	Rewritten  bool   `json:"rewritten"`
	Results    []Hit  `json:"results"`
}

// Health is the service health report.
type Health struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}
