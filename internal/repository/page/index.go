package page

import "github.com/kailas-cloud/pagevec/internal/db"

// Index attribute names.
const (
	fieldOwner     = "owner"
	fieldSourceURL = "source_url"
	fieldTitle     = "title"
	fieldURLText   = "url_text"
	fieldCreatedAt = "created_at"
	fieldEmbedding = "embedding"
)

// buildIndex describes the FT index over stored page documents.
// FLAT keeps KNN exact so native candidates match a full scan.
func buildIndex(prefix string, dim int) (*db.IndexDefinition, error) {
	return db.NewIndex(prefix+"pages:idx").
		OnJSON().
		Prefix(prefix+"page:").
		NoStopwords().
		TagWithOpts("$."+fieldOwner, "", true).As(fieldOwner).
		TagWithOpts("$."+fieldSourceURL, "", true).As(fieldSourceURL).
		Text("$." + fieldTitle).As(fieldTitle).
		Text("$." + fieldURLText).As(fieldURLText).
		Numeric("$." + fieldCreatedAt).As(fieldCreatedAt).Sortable().
		VectorFlat("$."+fieldEmbedding, dim, db.DistanceCosine, 0).As(fieldEmbedding).
		Build()
}
