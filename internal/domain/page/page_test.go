package page

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/pagevec/internal/domain"
)

var created = time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)

func okContent() domain.NormalizedContent {
	return domain.NormalizedContent{ProcessedContent: "clean", RawContent: "raw"}
}

func TestNew_Valid(t *testing.T) {
	vec := []float32{0.1, 0.2}
	r, err := New("id-1", "alice", "https://example.com", "Example", okContent(), vec, created)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ID() != "id-1" || r.Owner() != "alice" {
		t.Errorf("identity = %q/%q", r.ID(), r.Owner())
	}
	if r.SourceURL() != "https://example.com" {
		t.Errorf("SourceURL() = %q", r.SourceURL())
	}
	if r.Title() != "Example" {
		t.Errorf("Title() = %q", r.Title())
	}
	if r.Content().ProcessedContent != "clean" {
		t.Errorf("Content() = %+v", r.Content())
	}
	if !r.CreatedAt().Equal(created.Truncate(time.Millisecond)) {
		t.Errorf("CreatedAt() = %v", r.CreatedAt())
	}

	// Mutating the input vector must not affect the record
	vec[0] = 9
	if r.Embedding()[0] != 0.1 {
		t.Error("embedding mutation leaked into record")
	}
}

func TestNew_DegradedContent(t *testing.T) {
	c := domain.NormalizedContent{Error: "timeout", RawContent: "raw"}
	r, err := New("id-1", "alice", "https://example.com", "", c, []float32{1}, created)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.Content().Degraded() {
		t.Error("expected degraded content")
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		owner   string
		url     string
		content domain.NormalizedContent
		vec     []float32
		at      time.Time
	}{
		{"empty id", "", "alice", "https://a.b", okContent(), []float32{1}, created},
		{"empty owner", "id", "", "https://a.b", okContent(), []float32{1}, created},
		{"empty url", "id", "alice", "", okContent(), []float32{1}, created},
		{"no content", "id", "alice", "https://a.b", domain.NormalizedContent{RawContent: "x"}, []float32{1}, created},
		{"both", "id", "alice", "https://a.b",
			domain.NormalizedContent{ProcessedContent: "p", Error: "e"}, []float32{1}, created},
		{"no embedding", "id", "alice", "https://a.b", okContent(), nil, created},
		{"zero time", "id", "alice", "https://a.b", okContent(), []float32{1}, time.Time{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.id, tc.owner, tc.url, "", tc.content, tc.vec, tc.at); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://Example.COM/path?q=1#frag", "https://example.com/path?q=1"},
		{"  http://example.com  ", "http://example.com"},
		{"HTTPS://example.com/A", "https://example.com/A"},
	}
	for _, tc := range tests {
		got, err := NormalizeURL(tc.in)
		if err != nil {
			t.Fatalf("NormalizeURL(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeURL_Invalid(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"example.com",
		"ftp://example.com",
		"javascript:alert(1)",
		"http://",
		"https://" + strings.Repeat("a", MaxURLLength),
	}
	for _, in := range inputs {
		_, err := NormalizeURL(in)
		if !errors.Is(err, domain.ErrInvalidURL) {
			t.Errorf("NormalizeURL(%q) err = %v, want ErrInvalidURL", in, err)
		}
	}
}
