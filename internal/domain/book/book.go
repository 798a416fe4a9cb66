package book

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested book does not exist.
var ErrNotFound = errors.New("book not found")

// Category groups books on the storefront.
type Category string

const (
	CategoryBusiness   Category = "business"
	CategoryTechnology Category = "technology"
	CategoryFiction    Category = "fiction"
	CategoryHorror     Category = "horror"
	CategoryAdventure  Category = "adventure"
)

// Categories lists every category accepted by the catalog.
var Categories = []Category{
	CategoryBusiness,
	CategoryTechnology,
	CategoryFiction,
	CategoryHorror,
	CategoryAdventure,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Book is a catalog listing.
type Book struct {
	ID          string
	Title       string
	Description string
	Category    Category
	CoverImage  string
	OldPrice    decimal.Decimal
	NewPrice    decimal.Decimal
	Trending    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Patch carries the fields of a partial update. Nil fields keep their
// stored value.
type Patch struct {
	Title       *string
	Description *string
	Category    *Category
	CoverImage  *string
	OldPrice    *decimal.Decimal
	NewPrice    *decimal.Decimal
	Trending    *bool
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil &&
		p.Description == nil &&
		p.Category == nil &&
		p.CoverImage == nil &&
		p.OldPrice == nil &&
		p.NewPrice == nil &&
		p.Trending == nil
}

// Apply returns a copy of b with the patch merged in.
func (p Patch) Apply(b Book) Book {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.Category != nil {
		b.Category = *p.Category
	}
	if p.CoverImage != nil {
		b.CoverImage = *p.CoverImage
	}
	if p.OldPrice != nil {
		b.OldPrice = *p.OldPrice
	}
	if p.NewPrice != nil {
		b.NewPrice = *p.NewPrice
	}
	if p.Trending != nil {
		b.Trending = *p.Trending
	}
	return b
}

// Filter narrows a listing. Zero values match everything.
type Filter struct {
	Category Category
	Trending *bool
}

// Repository defines persistence operations for books.
type Repository interface {
	List(ctx context.Context, filter Filter) ([]Book, error)
	GetByID(ctx context.Context, id string) (*Book, error)
	GetByIDs(ctx context.Context, ids []string) ([]Book, error)
	Create(ctx context.Context, b *Book) error
	Update(ctx context.Context, id string, patch Patch, updatedAt time.Time) (*Book, error)
	Delete(ctx context.Context, id string) (*Book, error)
}
