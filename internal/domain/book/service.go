package book

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Service holds catalog business logic on top of a Repository.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a book Service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// List returns books matching filter, newest first.
func (s *Service) List(ctx context.Context, filter Filter) ([]Book, error) {
	books, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "list books")
	}
	return books, nil
}

// Get returns a single book or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*Book, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get book %s", id)
	}
	return b, nil
}

// Create stamps timestamps on b and persists it. The store assigns b.ID.
func (s *Service) Create(ctx context.Context, b *Book) error {
	now := s.now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	if err := s.repo.Create(ctx, b); err != nil {
		return errors.Wrap(err, "create book")
	}
	return nil
}

// Update merges patch into the stored book. Fields absent from the patch
// keep their previous values. An empty patch returns the current record.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (*Book, error) {
	if patch.Empty() {
		return s.Get(ctx, id)
	}
	b, err := s.repo.Update(ctx, id, patch, s.now().UTC())
	if err != nil {
		return nil, errors.Wrapf(err, "update book %s", id)
	}
	return b, nil
}

// Delete removes a book and returns the removed record. Orders referencing
// the book are left untouched.
func (s *Service) Delete(ctx context.Context, id string) (*Book, error) {
	b, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "delete book %s", id)
	}
	return b, nil
}
