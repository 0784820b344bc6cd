package library

import (
	"context"
	"fmt"

	dompage "github.com/kailas-cloud/pagevec/internal/domain/page"
)

// MaxPage caps the requested page number so the offset cannot overflow.
const MaxPage = 1_000_000

// Page is one page of a listing.
type Page struct {
	Items []dompage.Record
	Total int
	Page  int
	Limit int
	Pages int
}

// Service lists, reads and deletes an owner's records.
type Service struct {
	repo            Repository
	defaultPageSize int
	maxPageSize     int
}

// New creates a library service.
func New(repo Repository) *Service {
	return &Service{repo: repo, defaultPageSize: 10, maxPageSize: 100}
}

// WithPagination configures page size limits.
func (s *Service) WithPagination(defaultPageSize, maxPageSize int) *Service {
	if defaultPageSize > 0 {
		s.defaultPageSize = defaultPageSize
	}
	if maxPageSize > 0 {
		s.maxPageSize = maxPageSize
	}
	return s
}

// List returns records newest first. page counts from 1; out-of-range
// values take the first page and the default size. Pages past MaxPage
// are read as MaxPage.
func (s *Service) List(ctx context.Context, owner string, f dompage.Filter, page, limit int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit <= 0 {
		limit = s.defaultPageSize
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}

	items, total, err := s.repo.List(ctx, owner, f, (page-1)*limit, limit)
	if err != nil {
		return Page{}, fmt.Errorf("list records: %w", err)
	}

	return Page{
		Items: items,
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: (total + limit - 1) / limit,
	}, nil
}

// Get returns one record. Missing and foreign records are domain.ErrNotFound.
func (s *Service) Get(ctx context.Context, owner, id string) (dompage.Record, error) {
	rec, err := s.repo.Get(ctx, owner, id)
	if err != nil {
		return dompage.Record{}, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// Delete removes one record. Missing and foreign records are domain.ErrNotFound.
func (s *Service) Delete(ctx context.Context, owner, id string) error {
	if err := s.repo.Delete(ctx, owner, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}
