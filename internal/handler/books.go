package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/bookstore-api/internal/domain/book"
)

type createBookRequest struct {
	Title       string           `json:"title" validate:"required,max=200"`
	Description string           `json:"description" validate:"required,max=5000"`
	Category    string           `json:"category" validate:"required,oneof=business technology fiction horror adventure"`
	CoverImage  string           `json:"coverImage" validate:"required,max=2048"`
	OldPrice    *decimal.Decimal `json:"oldPrice" validate:"required,gte=0"`
	NewPrice    *decimal.Decimal `json:"newPrice" validate:"required,gte=0"`
	Trending    bool             `json:"trending"`
}

// updateBookRequest mirrors createBookRequest with every field optional.
// Fields that are present obey the same rules.
type updateBookRequest struct {
	Title       *string          `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string          `json:"description" validate:"omitempty,min=1,max=5000"`
	Category    *string          `json:"category" validate:"omitempty,oneof=business technology fiction horror adventure"`
	CoverImage  *string          `json:"coverImage" validate:"omitempty,min=1,max=2048"`
	OldPrice    *decimal.Decimal `json:"oldPrice" validate:"omitempty,gte=0"`
	NewPrice    *decimal.Decimal `json:"newPrice" validate:"omitempty,gte=0"`
	Trending    *bool            `json:"trending"`
}

func (req updateBookRequest) patch() book.Patch {
	p := book.Patch{
		Title:       req.Title,
		Description: req.Description,
		CoverImage:  req.CoverImage,
		OldPrice:    req.OldPrice,
		NewPrice:    req.NewPrice,
		Trending:    req.Trending,
	}
	if req.Category != nil {
		c := book.Category(*req.Category)
		p.Category = &c
	}
	return p
}

type bookResponse struct {
	ID          string          `json:"_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	CoverImage  string          `json:"coverImage"`
	OldPrice    decimal.Decimal `json:"oldPrice"`
	NewPrice    decimal.Decimal `json:"newPrice"`
	Trending    bool            `json:"trending"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type bookMessageResponse struct {
	Message string       `json:"message"`
	Book    bookResponse `json:"book"`
}

func toBookResponse(b book.Book) bookResponse {
	return bookResponse{
		ID:          b.ID,
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

// listBooks handles GET /api/books?category=&trending=.
func (h *Handler) listBooks(w http.ResponseWriter, r *http.Request) {
	var f book.Filter
	q := r.URL.Query()

	if c := q.Get("category"); c != "" {
		f.Category = book.Category(c)
		if !f.Category.Valid() {
			h.fail(w, r, &requestError{
				status:  http.StatusBadRequest,
				message: "validation failed",
				fields:  map[string]string{"category": "must be one of: " + categoryList()},
			})
			return
		}
	}
	if t := q.Get("trending"); t != "" {
		trending, err := strconv.ParseBool(t)
		if err != nil {
			h.fail(w, r, &requestError{
				status:  http.StatusBadRequest,
				message: "validation failed",
				fields:  map[string]string{"trending": "must be true or false"},
			})
			return
		}
		f.Trending = &trending
	}

	books, err := h.books.List(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	out := make([]bookResponse, len(books))
	for i, b := range books {
		out[i] = toBookResponse(b)
	}
	writeJSON(w, http.StatusOK, out)
}

// getBook handles GET /api/books/{id}.
func (h *Handler) getBook(w http.ResponseWriter, r *http.Request) {
	b, err := h.books.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookResponse(*b))
}

// createBook handles POST /api/books/create-book.
func (h *Handler) createBook(w http.ResponseWriter, r *http.Request) {
	var req createBookRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	b := &book.Book{
		Title:       req.Title,
		Description: req.Description,
		Category:    book.Category(req.Category),
		CoverImage:  req.CoverImage,
		OldPrice:    *req.OldPrice,
		NewPrice:    *req.NewPrice,
		Trending:    req.Trending,
	}
	if err := h.books.Create(r.Context(), b); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, bookMessageResponse{
		Message: "Book posted successfully",
		Book:    toBookResponse(*b),
	})
}

// updateBook handles PUT /api/books/edit/{id}.
func (h *Handler) updateBook(w http.ResponseWriter, r *http.Request) {
	var req updateBookRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	b, err := h.books.Update(r.Context(), chi.URLParam(r, "id"), req.patch())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, bookMessageResponse{
		Message: "Book updated successfully",
		Book:    toBookResponse(*b),
	})
}

// deleteBook handles DELETE /api/books/{id}.
func (h *Handler) deleteBook(w http.ResponseWriter, r *http.Request) {
	b, err := h.books.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, bookMessageResponse{
		Message: "Book deleted successfully",
		Book:    toBookResponse(*b),
	})
}

func categoryList() string {
	names := make([]string, len(book.Categories))
	for i, c := range book.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
