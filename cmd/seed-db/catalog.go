package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/bookstore-api/db"
	"github.com/xenking/bookstore-api/internal/domain/book"
)

// insertConcurrency bounds parallel inserts against the database.
const insertConcurrency = 8

// bookJSON is the seed file format, the same shape the API accepts on
// create-book.
type bookJSON struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Trending    bool            `json:"trending"`
	CoverImage  string          `json:"coverImage"`
	OldPrice    decimal.Decimal `json:"oldPrice"`
	NewPrice    decimal.Decimal `json:"newPrice"`
}

// loadCatalog reads path, or the embedded catalog when path is empty.
func loadCatalog(path string) ([]book.Book, error) {
	if path == "" {
		return parseCatalog(bytes.NewReader(db.SeedBooks))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open books file")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = bufio.NewReader(f)
	if filepath.Ext(path) == ".gz" {
		gz, err := pgzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}
	return parseCatalog(r)
}

// parseCatalog decodes a JSON array of books and checks each entry.
func parseCatalog(r io.Reader) ([]book.Book, error) {
	var raw []bookJSON
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "parse books JSON")
	}

	books := make([]book.Book, 0, len(raw))
	for i, b := range raw {
		c := book.Category(b.Category)
		switch {
		case b.Title == "":
			return nil, errors.Errorf("book %d: title is required", i)
		case !c.Valid():
			return nil, errors.Errorf("book %d (%s): unknown category %q", i, b.Title, b.Category)
		case b.OldPrice.IsNegative(), b.NewPrice.IsNegative():
			return nil, errors.Errorf("book %d (%s): negative price", i, b.Title)
		}
		books = append(books, book.Book{
			Title:       b.Title,
			Description: b.Description,
			Category:    c,
			CoverImage:  b.CoverImage,
			OldPrice:    b.OldPrice,
			NewPrice:    b.NewPrice,
			Trending:    b.Trending,
		})
	}
	return books, nil
}

// insertBooks creates every book through the catalog service and returns the
// number inserted.
func insertBooks(ctx context.Context, svc *book.Service, books []book.Book) (int, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(insertConcurrency)
	for i := range books {
		g.Go(func() error {
			if err := svc.Create(ctx, &books[i]); err != nil {
				return errors.Wrapf(err, "create %q", books[i].Title)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(books), nil
}
