package page

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/pagevec/internal/db"
	"github.com/kailas-cloud/pagevec/internal/domain"
	dompage "github.com/kailas-cloud/pagevec/internal/domain/page"
)

// --- EnsureIndex ---

func TestEnsureIndex_Definition(t *testing.T) {
	repo, ms := newTestRepo(t)

	var got *db.IndexDefinition
	ms.createIndexFn = func(_ context.Context, def *db.IndexDefinition) error {
		got = def
		return nil
	}

	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "FT.CREATE pagevec:pages:idx ON JSON PREFIX pagevec:page: STOPWORDS 0 SCHEMA " +
		"$.owner AS owner TAG $.source_url AS source_url TAG $.title AS title TEXT " +
		"$.url_text AS url_text TEXT $.created_at AS created_at NUMERIC SORTABLE " +
		"$.embedding AS embedding VECTOR FLAT"
	if got.String() != want {
		t.Errorf("index =\n%s\nwant\n%s", got.String(), want)
	}
	if got.Fields[5].VectorDim != 3 || got.Fields[5].VectorDistance != db.DistanceCosine {
		t.Errorf("vector field = %+v", got.Fields[5])
	}
	if !got.Fields[0].TagCaseSensitive {
		t.Error("owner tag should be case sensitive")
	}
}

func TestEnsureIndex_AlreadyExists(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error { return db.ErrIndexExists }

	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("existing index should be tolerated, got %v", err)
	}
}

func TestEnsureIndex_Error(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error { return errors.New("conn refused") }

	if err := repo.EnsureIndex(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

// --- ExistsByURL ---

func TestExistsByURL_KeyPerOwner(t *testing.T) {
	repo, ms := newTestRepo(t)

	var keys []string
	ms.existsFn = func(_ context.Context, key string) (bool, error) {
		keys = append(keys, key)
		return strings.Contains(key, ":alice:"), nil
	}

	ctx := context.Background()
	a, err := repo.ExistsByURL(ctx, "alice", "https://example.com")
	if err != nil || !a {
		t.Fatalf("alice: exists=%v err=%v", a, err)
	}
	b, err := repo.ExistsByURL(ctx, "bob", "https://example.com")
	if err != nil || b {
		t.Fatalf("bob: exists=%v err=%v", b, err)
	}
	if !strings.HasPrefix(keys[0], "pagevec:url:alice:") || len(keys[0]) != len("pagevec:url:alice:")+64 {
		t.Errorf("unexpected url key %q", keys[0])
	}
}

func TestURLKey_SharedByCreateExistsAndDelete(t *testing.T) {
	repo, ms := newTestRepo(t)
	rec := testRecord(t, "id-1", "alice", "https://example.com")
	ctx := context.Background()

	var claimed, checked string
	var released []string
	ms.setNXFn = func(_ context.Context, key string, _ []byte) (bool, error) {
		claimed = key
		return true, nil
	}
	ms.existsFn = func(_ context.Context, key string) (bool, error) {
		checked = key
		return true, nil
	}
	ms.jsonGetFn = func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		return []byte("[" + docJSON(t, &rec) + "]"), nil
	}
	ms.delFn = func(_ context.Context, keys ...string) error {
		released = keys
		return nil
	}

	if err := repo.Create(ctx, &rec); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.ExistsByURL(ctx, "alice", "https://example.com"); err != nil {
		t.Fatal(err)
	}
	if err := repo.Delete(ctx, "alice", "id-1"); err != nil {
		t.Fatal(err)
	}
	if claimed == "" || checked != claimed || len(released) != 2 || released[1] != claimed {
		t.Errorf("claimed %q, checked %q, released %v", claimed, checked, released)
	}
}

// --- Create ---

func TestCreate_Success(t *testing.T) {
	repo, ms := newTestRepo(t)
	rec := testRecord(t, "id-1", "alice", "https://example.com/Go")

	ms.setNXFn = func(_ context.Context, key string, value []byte) (bool, error) {
		if !strings.HasPrefix(key, "pagevec:url:alice:") || string(value) != "id-1" {
			t.Errorf("SetNX(%q, %q)", key, value)
		}
		return true, nil
	}
	var stored string
	ms.jsonSetFn = func(_ context.Context, key, path string, data []byte) error {
		if key != "pagevec:page:id-1" || path != "$" {
			t.Errorf("JSONSet(%q, %q)", key, path)
		}
		stored = string(data)
		return nil
	}

	if err := repo.Create(context.Background(), &rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{`"owner":"alice"`, `"url_text":"https example com go"`, `"created_at":1777629600000`} {
		if !strings.Contains(stored, want) {
			t.Errorf("stored doc missing %s: %s", want, stored)
		}
	}
}

func TestCreate_RaceLoser(t *testing.T) {
	repo, ms := newTestRepo(t)
	rec := testRecord(t, "id-2", "alice", "https://example.com")

	ms.setNXFn = func(_ context.Context, _ string, _ []byte) (bool, error) { return false, nil }
	ms.jsonSetFn = func(_ context.Context, _, _ string, _ []byte) error {
		t.Error("JSONSet must not run when the URL is taken")
		return nil
	}

	err := repo.Create(context.Background(), &rec)
	if !errors.Is(err, domain.ErrAlreadyScraped) {
		t.Errorf("expected ErrAlreadyScraped, got %v", err)
	}
}

func TestCreate_WriteFailureReleasesURL(t *testing.T) {
	repo, ms := newTestRepo(t)
	rec := testRecord(t, "id-1", "alice", "https://example.com")

	ms.jsonSetFn = func(_ context.Context, _, _ string, _ []byte) error { return errors.New("OOM") }
	var released []string
	ms.delFn = func(_ context.Context, keys ...string) error {
		released = append(released, keys...)
		return nil
	}

	if err := repo.Create(context.Background(), &rec); err == nil {
		t.Fatal("expected error")
	}
	if len(released) != 1 || !strings.HasPrefix(released[0], "pagevec:url:alice:") {
		t.Errorf("released = %v", released)
	}
}

// --- Get ---

func TestGet_OtherOwnerIsNotFound(t *testing.T) {
	repo, ms := newTestRepo(t)
	rec := testRecord(t, "id-1", "alice", "https://example.com")
	ms.jsonGetFn = func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		return []byte("[" + docJSON(t, &rec) + "]"), nil
	}

	if _, err := repo.Get(context.Background(), "bob", "id-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGet_RoundTrip(t *testing.T) {
	repo, ms := newTestRepo(t)
	rec := testRecord(t, "id-1", "alice", "https://example.com")
	ms.jsonGetFn = func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		return []byte("[" + docJSON(t, &rec) + "]"), nil
	}

	got, err := repo.Get(context.Background(), "alice", "id-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title() != "Go Blog" || got.Content().ProcessedContent != "clean text" {
		t.Errorf("unexpected record %+v", got)
	}
	if !got.CreatedAt().Equal(rec.CreatedAt()) {
		t.Errorf("CreatedAt() = %v, want %v", got.CreatedAt(), rec.CreatedAt())
	}
	if len(got.Embedding()) != 3 {
		t.Errorf("embedding dims = %d", len(got.Embedding()))
	}
}

func TestGet_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.jsonGetFn = func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		return nil, &db.Error{Op: db.OpJSONGet, Err: errors.New("timeout")}
	}

	_, err := repo.Get(context.Background(), "alice", "id-1")
	if err == nil || errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
}

// --- List ---

func TestList_QueryAndPaging(t *testing.T) {
	repo, ms := newTestRepo(t)
	rec := testRecord(t, "id-1", "alice", "https://example.com")

	ms.searchListFn = func(_ context.Context, q *db.ListQuery) (*db.SearchResult, error) {
		want := "@owner:{alice} @title:(*go*) @url_text:(*example*)"
		if q.Query != want {
			t.Errorf("query = %q, want %q", q.Query, want)
		}
		if q.SortBy != "created_at" || !q.Descending {
			t.Errorf("sort = %s desc=%v", q.SortBy, q.Descending)
		}
		if q.Offset != 20 || q.Limit != 10 {
			t.Errorf("paging = %d/%d", q.Offset, q.Limit)
		}
		return &db.SearchResult{Total: 21, Entries: []db.SearchEntry{
			{Key: "pagevec:page:id-1", Fields: map[string]string{"$": docJSON(t, &rec)}},
		}}, nil
	}

	recs, total, err := repo.List(context.Background(), "alice",
		dompage.Filter{Title: "Go", URL: "EXAMPLE"}, 20, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 21 || len(recs) != 1 || recs[0].ID() != "id-1" {
		t.Errorf("total=%d recs=%d", total, len(recs))
	}
}

func TestList_NoFilter(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchListFn = func(_ context.Context, q *db.ListQuery) (*db.SearchResult, error) {
		if q.Query != "@owner:{alice}" {
			t.Errorf("query = %q", q.Query)
		}
		return &db.SearchResult{}, nil
	}
	if _, _, err := repo.List(context.Background(), "alice", dompage.Filter{}, 0, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- Delete ---

func TestDelete_RemovesRecordAndURLKey(t *testing.T) {
	repo, ms := newTestRepo(t)
	rec := testRecord(t, "id-1", "alice", "https://example.com")
	ms.jsonGetFn = func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		return []byte("[" + docJSON(t, &rec) + "]"), nil
	}
	var deleted []string
	ms.delFn = func(_ context.Context, keys ...string) error {
		deleted = keys
		return nil
	}

	if err := repo.Delete(context.Background(), "alice", "id-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deleted) != 2 || deleted[0] != "pagevec:page:id-1" || !strings.HasPrefix(deleted[1], "pagevec:url:alice:") {
		t.Errorf("deleted = %v", deleted)
	}
}

func TestDelete_Missing(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.delFn = func(_ context.Context, _ ...string) error {
		t.Error("Del must not run for a missing record")
		return nil
	}
	if err := repo.Delete(context.Background(), "alice", "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// --- All / Nearest ---

func TestAll_Paginates(t *testing.T) {
	repo, ms := newTestRepo(t)
	rec := testRecord(t, "id-1", "alice", "https://example.com")
	doc := docJSON(t, &rec)

	calls := 0
	ms.searchListFn = func(_ context.Context, q *db.ListQuery) (*db.SearchResult, error) {
		calls++
		n := scanBatch
		if q.Offset > 0 {
			n = 2
		}
		entries := make([]db.SearchEntry, n)
		for i := range entries {
			entries[i] = db.SearchEntry{Key: "k", Fields: map[string]string{"$": doc}}
		}
		return &db.SearchResult{Total: scanBatch + 2, Entries: entries}, nil
	}

	recs, err := repo.All(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != scanBatch+2 || calls != 2 {
		t.Errorf("records=%d calls=%d", len(recs), calls)
	}
}

func TestNearest(t *testing.T) {
	repo, ms := newTestRepo(t)
	rec := testRecord(t, "id-1", "alice", "https://example.com")

	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.PreFilter != "@owner:{alice}" || q.VectorField != "embedding" || q.K != 7 {
			t.Errorf("unexpected query %+v", q)
		}
		return &db.SearchResult{Total: 2, Entries: []db.SearchEntry{
			{Key: "pagevec:page:id-1", Score: 0.9, Fields: map[string]string{"$": docJSON(t, &rec)}},
			{Key: "pagevec:page:gone", Fields: map[string]string{}},
		}}, nil
	}

	recs, err := repo.Nearest(context.Background(), "alice", []float32{1, 0, 0}, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 1 || recs[0].ID() != "id-1" {
		t.Errorf("recs = %v", recs)
	}
}

func TestNearest_DimMismatch(t *testing.T) {
	repo, _ := newTestRepo(t)
	_, err := repo.Nearest(context.Background(), "alice", []float32{1, 0}, 5)
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Errorf("expected ErrVectorDimMismatch, got %v", err)
	}
}
