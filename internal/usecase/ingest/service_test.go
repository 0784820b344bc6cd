package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pagevec/internal/domain"
	dompage "github.com/kailas-cloud/pagevec/internal/domain/page"
	"github.com/kailas-cloud/pagevec/internal/usecase/normalize"
)

// --- Mocks ---

type mockRepo struct {
	exists    bool
	existsErr error
	createErr error
	created   []dompage.Record
	checked   []string
}

func (m *mockRepo) ExistsByURL(_ context.Context, owner, sourceURL string) (bool, error) {
	m.checked = append(m.checked, owner+"|"+sourceURL)
	return m.exists, m.existsErr
}

func (m *mockRepo) Create(_ context.Context, rec *dompage.Record) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, *rec)
	return nil
}

type mockAcquirer struct {
	content domain.PageContent
	err     error
	calls   int
}

func (m *mockAcquirer) Acquire(_ context.Context, _ string) (domain.PageContent, error) {
	m.calls++
	return m.content, m.err
}

type mockNormalizer struct {
	result normalize.Result
	calls  int
}

func (m *mockNormalizer) Normalize(_ context.Context, _ string) normalize.Result {
	m.calls++
	return m.result
}

type mockEmbedder struct {
	vec   []float32
	err   error
	texts []string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.texts = append(m.texts, text)
	return m.vec, m.err
}

type fixture struct {
	repo *mockRepo
	acq  *mockAcquirer
	norm *mockNormalizer
	emb  *mockEmbedder
	svc  *Service
}

var fixedNow = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func newFixture() *fixture {
	f := &fixture{
		repo: &mockRepo{},
		acq:  &mockAcquirer{content: domain.PageContent{Title: "Go Blog", Text: "raw text"}},
		norm: &mockNormalizer{result: normalize.Result{
			Content: domain.NormalizedContent{ProcessedContent: "clean text", RawContent: "raw text"},
		}},
		emb: &mockEmbedder{vec: []float32{0.6, 0.8, 0}},
	}
	f.svc = New(f.repo, f.acq, f.norm, f.emb, 3, zap.NewNop())
	f.svc.now = func() time.Time { return fixedNow }
	f.svc.newID = func() string { return "id-1" }
	return f
}

func (f *fixture) assertNothingStored(t *testing.T) {
	t.Helper()
	if len(f.repo.created) != 0 {
		t.Errorf("expected nothing stored, got %d records", len(f.repo.created))
	}
}

func assertFailure(t *testing.T, err error, sentinel error, stage Stage, kind domain.FailureKind) {
	t.Helper()
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected %v, got %v", sentinel, err)
	}
	var ie *Error
	if !errors.As(err, &ie) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if ie.Stage != stage {
		t.Errorf("stage = %s, want %s", ie.Stage, stage)
	}
	if ie.Kind != kind || domain.Classify(err) != kind {
		t.Errorf("kind = %s, want %s", ie.Kind, kind)
	}
}

// --- Tests ---

func TestIngest_Success(t *testing.T) {
	f := newFixture()

	rec, err := f.svc.Ingest(context.Background(), "alice", "https://Example.com/go#top")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID() != "id-1" || rec.Owner() != "alice" {
		t.Errorf("identity = %q/%q", rec.ID(), rec.Owner())
	}
	if rec.SourceURL() != "https://example.com/go" {
		t.Errorf("SourceURL() = %q", rec.SourceURL())
	}
	if rec.Title() != "Go Blog" || rec.Content().ProcessedContent != "clean text" {
		t.Errorf("record = %q / %+v", rec.Title(), rec.Content())
	}
	if !rec.CreatedAt().Equal(fixedNow) {
		t.Errorf("CreatedAt() = %v", rec.CreatedAt())
	}

	if f.acq.calls != 1 || f.norm.calls != 1 || len(f.emb.texts) != 1 || len(f.repo.created) != 1 {
		t.Errorf("calls: acquire=%d normalize=%d embed=%d create=%d",
			f.acq.calls, f.norm.calls, len(f.emb.texts), len(f.repo.created))
	}
	if f.emb.texts[0] != "Go Blog clean text" {
		t.Errorf("embedding text = %q", f.emb.texts[0])
	}
	if f.repo.checked[0] != "alice|https://example.com/go" {
		t.Errorf("dedup checked %q", f.repo.checked[0])
	}
}

func TestIngest_InvalidURL(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Ingest(context.Background(), "alice", "not a url")
	assertFailure(t, err, domain.ErrInvalidURL, StageValidate, domain.FailureClient)
	if len(f.repo.checked) != 0 || f.acq.calls != 0 {
		t.Error("invalid URL must stop before any other stage")
	}
}

func TestIngest_DuplicateDoesNoWork(t *testing.T) {
	f := newFixture()
	f.repo.exists = true

	_, err := f.svc.Ingest(context.Background(), "alice", "https://example.com/go")
	assertFailure(t, err, domain.ErrAlreadyScraped, StageDedup, domain.FailureClient)
	if err.(*Error).Err.Error() != "URL already scraped for this user" {
		t.Errorf("message = %q", err.(*Error).Err.Error())
	}
	if f.acq.calls != 0 || f.norm.calls != 0 || len(f.emb.texts) != 0 {
		t.Error("duplicate must not launch a browser, call AI or embed")
	}
	f.assertNothingStored(t)
}

func TestIngest_DedupStoreError(t *testing.T) {
	f := newFixture()
	f.repo.existsErr = errors.New("connection refused")

	_, err := f.svc.Ingest(context.Background(), "alice", "https://example.com")
	if domain.Classify(err) != domain.FailureServer {
		t.Errorf("kind = %s", domain.Classify(err))
	}
	if f.acq.calls != 0 {
		t.Error("acquire must not run when dedup fails")
	}
}

func TestIngest_PageLoadFailure(t *testing.T) {
	f := newFixture()
	f.acq.err = fmt.Errorf("%w: %w", domain.ErrPageLoad, context.DeadlineExceeded)

	_, err := f.svc.Ingest(context.Background(), "alice", "https://slow.example")
	assertFailure(t, err, domain.ErrPageLoad, StageAcquire, domain.FailureClient)
	if f.norm.calls != 0 || len(f.emb.texts) != 0 {
		t.Error("later stages must not run")
	}
	f.assertNothingStored(t)
}

func TestIngest_BrowserUnavailable(t *testing.T) {
	f := newFixture()
	f.acq.err = domain.ErrBrowserUnavailable

	_, err := f.svc.Ingest(context.Background(), "alice", "https://example.com")
	assertFailure(t, err, domain.ErrBrowserUnavailable, StageAcquire, domain.FailureServer)
}

func TestIngest_AIFailureDegrades(t *testing.T) {
	f := newFixture()
	f.norm.result = normalize.Result{
		Content:  domain.NormalizedContent{Error: "quota exceeded", RawContent: "raw text"},
		Degraded: true,
		Reason:   "quota exceeded",
	}

	rec, err := f.svc.Ingest(context.Background(), "alice", "https://example.com")
	if err != nil {
		t.Fatalf("degraded ingestion should succeed: %v", err)
	}
	if !rec.Content().Degraded() || rec.Content().RawContent != "raw text" {
		t.Errorf("content = %+v", rec.Content())
	}
	if f.emb.texts[0] != "Go Blog raw text" {
		t.Errorf("embedding text = %q", f.emb.texts[0])
	}
	if len(f.repo.created) != 1 {
		t.Error("degraded record should be stored")
	}
}

func TestIngest_EmbeddingFailureStoresNothing(t *testing.T) {
	f := newFixture()
	f.emb.err = fmt.Errorf("%w: model load", domain.ErrEmbeddingUnavailable)

	_, err := f.svc.Ingest(context.Background(), "alice", "https://example.com")
	assertFailure(t, err, domain.ErrEmbeddingUnavailable, StageEmbed, domain.FailureServer)
	f.assertNothingStored(t)
}

func TestIngest_DimensionMismatchStoresNothing(t *testing.T) {
	f := newFixture()
	f.emb.vec = []float32{1, 0}

	_, err := f.svc.Ingest(context.Background(), "alice", "https://example.com")
	assertFailure(t, err, domain.ErrVectorDimMismatch, StageEmbed, domain.FailureServer)
	f.assertNothingStored(t)
}

func TestIngest_CreateRaceLoser(t *testing.T) {
	f := newFixture()
	f.repo.createErr = domain.ErrAlreadyScraped

	_, err := f.svc.Ingest(context.Background(), "alice", "https://example.com")
	assertFailure(t, err, domain.ErrAlreadyScraped, StagePersist, domain.FailureClient)
}

func TestIngest_StoreFailure(t *testing.T) {
	f := newFixture()
	f.repo.createErr = errors.New("OOM command not allowed")

	_, err := f.svc.Ingest(context.Background(), "alice", "https://example.com")
	var ie *Error
	if !errors.As(err, &ie) || ie.Stage != StagePersist || ie.Kind != domain.FailureServer {
		t.Fatalf("err = %v", err)
	}
}

func TestDedupGuard(t *testing.T) {
	repo := &mockRepo{}
	g := NewDedupGuard(repo)
	if err := g.Check(context.Background(), "alice", "https://a.example"); err != nil {
		t.Fatalf("fresh URL: %v", err)
	}
	repo.exists = true
	if err := g.Check(context.Background(), "alice", "https://a.example"); !errors.Is(err, domain.ErrAlreadyScraped) {
		t.Fatalf("expected ErrAlreadyScraped, got %v", err)
	}
}

func TestStage_String(t *testing.T) {
	if StageEmbed.String() != "embed" || Stage(99).String() != "unknown" {
		t.Error("unexpected stage names")
	}
}
