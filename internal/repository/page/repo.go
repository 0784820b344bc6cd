package page

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/pagevec/internal/db"
	"github.com/kailas-cloud/pagevec/internal/domain"
	dompage "github.com/kailas-cloud/pagevec/internal/domain/page"
)

// scanBatch is the page size used when reading every record of an owner.
const scanBatch = 500

// store is the consumer interface for page records (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	SetNX(ctx context.Context, key string, value []byte) (bool, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo stores page records as JSON documents with an FT index on top.
type Repo struct {
	store  store
	prefix string
	dim    int
}

// New creates a page repository. prefix namespaces every key; dim is the
// embedding dimension the vector index is built for.
func New(s store, prefix string, dim int) *Repo {
	return &Repo{store: s, prefix: prefix, dim: dim}
}

// EnsureIndex creates the FT index. An existing index is left untouched.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	def, err := buildIndex(r.prefix, r.dim)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", def.Name, err)
	}
	return nil
}

// ExistsByURL reports whether owner already has a record for sourceURL.
func (r *Repo) ExistsByURL(ctx context.Context, owner, sourceURL string) (bool, error) {
	key := r.urlKey(owner, sourceURL)
	ok, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check exists %s: %w", key, err)
	}
	return ok, nil
}

// Create persists a new record. The owner+URL key is claimed first with
// SET NX; losing that race yields domain.ErrAlreadyScraped.
func (r *Repo) Create(ctx context.Context, rec *dompage.Record) error {
	data, err := json.Marshal(toDoc(rec))
	if err != nil {
		return fmt.Errorf("marshal page: %w", err)
	}

	urlKey := r.urlKey(rec.Owner(), rec.SourceURL())
	claimed, err := r.store.SetNX(ctx, urlKey, []byte(rec.ID()))
	if err != nil {
		return fmt.Errorf("claim %s: %w", urlKey, err)
	}
	if !claimed {
		return domain.ErrAlreadyScraped
	}

	key := r.pageKey(rec.ID())
	if err := r.store.JSONSet(ctx, key, "$", data); err != nil {
		if delErr := r.store.Del(ctx, urlKey); delErr != nil {
			return fmt.Errorf("json.set %s: %w (release %s: %v)", key, err, urlKey, delErr)
		}
		return fmt.Errorf("json.set %s: %w", key, err)
	}
	return nil
}

// Get returns owner's record by ID. Records of other owners are reported
// as missing.
func (r *Repo) Get(ctx context.Context, owner, id string) (dompage.Record, error) {
	key := r.pageKey(id)
	raw, err := r.store.JSONGet(ctx, key, "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return dompage.Record{}, domain.ErrNotFound
		}
		return dompage.Record{}, fmt.Errorf("json.get %s: %w", key, err)
	}
	doc, err := decodeDoc(string(raw))
	if err != nil {
		return dompage.Record{}, err
	}
	if doc.Owner != owner {
		return dompage.Record{}, domain.ErrNotFound
	}
	return doc.toRecord(), nil
}

// List returns one page of owner's records, newest first, and the total
// number of matches.
func (r *Repo) List(
	ctx context.Context, owner string, f dompage.Filter, offset, limit int,
) ([]dompage.Record, int, error) {
	res, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName:    r.indexName(),
		Query:        r.listQuery(owner, f),
		SortBy:       fieldCreatedAt,
		Descending:   true,
		Offset:       offset,
		Limit:        limit,
		ReturnFields: []string{"$"},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("search list: %w", err)
	}
	recs, err := r.decodeEntries(res.Entries)
	if err != nil {
		return nil, 0, err
	}
	return recs, res.Total, nil
}

// Delete removes owner's record and releases its URL key.
func (r *Repo) Delete(ctx context.Context, owner, id string) error {
	rec, err := r.Get(ctx, owner, id)
	if err != nil {
		return err
	}
	key := r.pageKey(id)
	if err := r.store.Del(ctx, key, r.urlKey(owner, rec.SourceURL())); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

// All returns every record of owner, newest first.
func (r *Repo) All(ctx context.Context, owner string) ([]dompage.Record, error) {
	var out []dompage.Record
	for offset := 0; ; offset += scanBatch {
		recs, total, err := r.List(ctx, owner, dompage.Filter{}, offset, scanBatch)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
		if len(recs) < scanBatch || offset+scanBatch >= total {
			return out, nil
		}
	}
}

// Nearest returns up to k of owner's records closest to vec by cosine
// distance, nearest first.
func (r *Repo) Nearest(ctx context.Context, owner string, vec []float32, k int) ([]dompage.Record, error) {
	if len(vec) != r.dim {
		return nil, fmt.Errorf("query vector has %d dims, index has %d: %w",
			len(vec), r.dim, domain.ErrVectorDimMismatch)
	}
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName(),
		PreFilter:    db.TagFilter(fieldOwner, owner),
		VectorField:  fieldEmbedding,
		Vector:       vec,
		K:            k,
		ReturnFields: []string{"$"},
	})
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}
	return r.decodeEntries(res.Entries)
}

func (r *Repo) decodeEntries(entries []db.SearchEntry) ([]dompage.Record, error) {
	recs := make([]dompage.Record, 0, len(entries))
	for _, e := range entries {
		raw := e.Fields["$"]
		if raw == "" {
			// Expired or deleted between index lookup and load.
			continue
		}
		doc, err := decodeDoc(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.Key, err)
		}
		recs = append(recs, doc.toRecord())
	}
	return recs, nil
}

func (r *Repo) listQuery(owner string, f dompage.Filter) string {
	return db.And(
		db.TagFilter(fieldOwner, owner),
		db.ContainsFilter(fieldTitle, f.Title),
		db.ContainsFilter(fieldURLText, f.URL),
	)
}

func (r *Repo) pageKey(id string) string {
	return r.prefix + "page:" + id
}

func (r *Repo) urlKey(owner, sourceURL string) string {
	sum := sha256.Sum256([]byte(sourceURL))
	return r.prefix + "url:" + owner + ":" + hex.EncodeToString(sum[:])
}

func (r *Repo) indexName() string {
	return r.prefix + "pages:idx"
}
