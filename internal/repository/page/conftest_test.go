package page

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/kailas-cloud/pagevec/internal/db"
	"github.com/kailas-cloud/pagevec/internal/domain"
	dompage "github.com/kailas-cloud/pagevec/internal/domain/page"
)

const testPrefix = "pagevec:"

// mockStore implements the consumer interface for tests.
type mockStore struct {
	jsonSetFn     func(ctx context.Context, key, path string, data []byte) error
	jsonGetFn     func(ctx context.Context, key string, paths ...string) ([]byte, error)
	setNXFn       func(ctx context.Context, key string, value []byte) (bool, error)
	delFn         func(ctx context.Context, keys ...string) error
	existsFn      func(ctx context.Context, key string) (bool, error)
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	searchListFn  func(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	searchKNNFn   func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

func (m *mockStore) JSONSet(ctx context.Context, key, path string, data []byte) error {
	if m.jsonSetFn != nil {
		return m.jsonSetFn(ctx, key, path, data)
	}
	return nil
}

func (m *mockStore) JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error) {
	if m.jsonGetFn != nil {
		return m.jsonGetFn(ctx, key, paths...)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) SetNX(ctx context.Context, key string, value []byte) (bool, error) {
	if m.setNXFn != nil {
		return m.setNXFn(ctx, key, value)
	}
	return true, nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) error {
	if m.delFn != nil {
		return m.delFn(ctx, keys...)
	}
	return nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error) {
	if m.searchListFn != nil {
		return m.searchListFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, testPrefix, 3), ms
}

func testRecord(t *testing.T, id, owner, url string) dompage.Record {
	t.Helper()
	rec, err := dompage.New(id, owner, url, "Go Blog",
		domain.NormalizedContent{ProcessedContent: "clean text", RawContent: "raw text"},
		[]float32{0.1, 0.2, 0.3},
		time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("build record: %v", err)
	}
	return rec
}

func docJSON(t *testing.T, rec *dompage.Record) string {
	t.Helper()
	data, err := json.Marshal(toDoc(rec))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(data)
}
