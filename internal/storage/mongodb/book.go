package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xenking/bookstore-api/internal/domain/book"
)

var _ book.Repository = (*BookRepository)(nil)

type bookDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Category    string             `bson:"category"`
	CoverImage  string             `bson:"coverImage"`
	OldPrice    decimal.Decimal    `bson:"oldPrice"`
	NewPrice    decimal.Decimal    `bson:"newPrice"`
	Trending    bool               `bson:"trending"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

// BookRepository implements book.Repository backed by MongoDB.
type BookRepository struct {
	coll *mongo.Collection
}

// NewBookRepository returns a BookRepository using c.
func NewBookRepository(c *Client) *BookRepository {
	return &BookRepository{coll: c.db.Collection(booksCollection)}
}

// List returns books matching f, newest first.
func (r *BookRepository) List(ctx context.Context, f book.Filter) ([]book.Book, error) {
	filter := bson.D{}
	if f.Category != "" {
		filter = append(filter, bson.E{Key: "category", Value: string(f.Category)})
	}
	if f.Trending != nil {
		filter = append(filter, bson.E{Key: "trending", Value: *f.Trending})
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("finding books: %w", err)
	}

	var docs []bookDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding books: %w", err)
	}
	return mapBooks(docs), nil
}

// GetByID returns the book with the given hex id. Malformed ids are reported
// as book.ErrNotFound.
func (r *BookRepository) GetByID(ctx context.Context, id string) (*book.Book, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, book.ErrNotFound
	}

	var doc bookDoc
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, book.ErrNotFound
		}
		return nil, fmt.Errorf("finding book %q: %w", id, err)
	}

	b := mapBook(doc)
	return &b, nil
}

// GetByIDs returns the books found among ids. Missing and malformed ids are
// silently skipped; callers compare the result against their input.
func (r *BookRepository) GetByIDs(ctx context.Context, ids []string) ([]book.Book, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return nil, nil
	}

	cur, err := r.coll.Find(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: oids}}}})
	if err != nil {
		return nil, fmt.Errorf("finding books by ids: %w", err)
	}

	var docs []bookDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding books: %w", err)
	}
	return mapBooks(docs), nil
}

// Create inserts b and assigns its ID.
func (r *BookRepository) Create(ctx context.Context, b *book.Book) error {
	doc := toBookDoc(*b)
	doc.ID = primitive.NewObjectID()

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("inserting book: %w", err)
	}
	b.ID = doc.ID.Hex()
	return nil
}

// Update applies p to the stored book and returns the updated document.
func (r *BookRepository) Update(ctx context.Context, id string, p book.Patch, updatedAt time.Time) (*book.Book, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, book.ErrNotFound
	}

	set := patchToSet(p)
	set = append(set, bson.E{Key: "updatedAt", Value: updatedAt})

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc bookDoc
	err = r.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: set}},
		opts,
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, book.ErrNotFound
		}
		return nil, fmt.Errorf("updating book %q: %w", id, err)
	}

	b := mapBook(doc)
	return &b, nil
}

// Delete removes the book and returns its last state.
func (r *BookRepository) Delete(ctx context.Context, id string) (*book.Book, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, book.ErrNotFound
	}

	var doc bookDoc
	if err := r.coll.FindOneAndDelete(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, book.ErrNotFound
		}
		return nil, fmt.Errorf("deleting book %q: %w", id, err)
	}

	b := mapBook(doc)
	return &b, nil
}

func patchToSet(p book.Patch) bson.D {
	var set bson.D
	if p.Title != nil {
		set = append(set, bson.E{Key: "title", Value: *p.Title})
	}
	if p.Description != nil {
		set = append(set, bson.E{Key: "description", Value: *p.Description})
	}
	if p.Category != nil {
		set = append(set, bson.E{Key: "category", Value: string(*p.Category)})
	}
	if p.CoverImage != nil {
		set = append(set, bson.E{Key: "coverImage", Value: *p.CoverImage})
	}
	if p.OldPrice != nil {
		set = append(set, bson.E{Key: "oldPrice", Value: *p.OldPrice})
	}
	if p.NewPrice != nil {
		set = append(set, bson.E{Key: "newPrice", Value: *p.NewPrice})
	}
	if p.Trending != nil {
		set = append(set, bson.E{Key: "trending", Value: *p.Trending})
	}
	return set
}

func toBookDoc(b book.Book) bookDoc {
	return bookDoc{
		Title:       b.Title,
		Description: b.Description,
		Category:    string(b.Category),
		CoverImage:  b.CoverImage,
		OldPrice:    b.OldPrice,
		NewPrice:    b.NewPrice,
		Trending:    b.Trending,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func mapBook(d bookDoc) book.Book {
	return book.Book{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Category:    book.Category(d.Category),
		CoverImage:  d.CoverImage,
		OldPrice:    d.OldPrice,
		NewPrice:    d.NewPrice,
		Trending:    d.Trending,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

func mapBooks(docs []bookDoc) []book.Book {
	out := make([]book.Book, len(docs))
	for i, d := range docs {
		out[i] = mapBook(d)
	}
	return out
}
