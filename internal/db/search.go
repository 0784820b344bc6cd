package db

// ScoreField is the alias FT.SEARCH KNN queries assign to the vector distance.
const ScoreField = "__vector_score"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	PreFilter    string // FT query syntax, "" or "*" for no filter
	VectorField  string
	Vector       []float32
	K            int
	ReturnFields []string
}

// ListQuery is the input for a paginated, optionally sorted FT.SEARCH.
type ListQuery struct {
	IndexName    string
	Query        string
	SortBy       string
	Descending   bool
	Offset       int
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key   string
	Score float64 // cosine similarity for KNN hits, 0 otherwise
	// Distance is the raw metric returned by the engine (KNN only).
	Distance float64
	Fields   map[string]string
}
