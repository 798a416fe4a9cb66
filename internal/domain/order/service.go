package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/bookstore-api/internal/domain/auth"
	"github.com/xenking/bookstore-api/internal/domain/book"
)

// MaxQuantity caps the copies of one book in a single order, after
// repeated lines are merged.
const MaxQuantity = 1000

// ErrEmptyItems is returned when an order has no line items.
var ErrEmptyItems = errors.New("items required")

// BookNotFoundError indicates an order references a book that does not exist.
type BookNotFoundError struct {
	BookID string
}

func (e *BookNotFoundError) Error() string {
	return fmt.Sprintf("book %s not found", e.BookID)
}

// InvalidQuantityError indicates a line item quantity outside 1..MaxQuantity.
type InvalidQuantityError struct {
	BookID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity for book %s must be between 1 and %d", e.BookID, MaxQuantity)
}

// LineItem is a requested book and quantity.
type LineItem struct {
	BookID   string
	Quantity int
}

// PlaceOrderRequest holds the input for placing an order. Any client-side
// total is deliberately absent: totals are always recomputed.
type PlaceOrderRequest struct {
	Name    string
	Email   string
	Phone   string
	Address Address
	Items   []LineItem
}

// Service encapsulates order placement and listing.
type Service struct {
	books  book.Repository
	orders Repository
	now    func() time.Time
}

// NewService creates an order Service.
func NewService(books book.Repository, orders Repository) *Service {
	return &Service{books: books, orders: orders, now: time.Now}
}

// PlaceOrder validates the items, prices them from the current catalog and
// persists the order on behalf of the caller.
func (s *Service) PlaceOrder(ctx context.Context, caller auth.Identity, req PlaceOrderRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	items, err := mergeItems(req.Items)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.BookID
	}

	fetched, err := s.books.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get books")
	}
	byID := make(map[string]book.Book, len(fetched))
	for _, b := range fetched {
		byID[b.ID] = b
	}

	total := decimal.Zero
	lines := make([]Item, len(items))
	for i, item := range items {
		b, ok := byID[item.BookID]
		if !ok {
			return nil, &BookNotFoundError{BookID: item.BookID}
		}
		lines[i] = Item{
			BookID:   b.ID,
			Title:    b.Title,
			Quantity: item.Quantity,
			Price:    b.NewPrice,
		}
		total = total.Add(b.NewPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	o := &Order{
		UserID:     caller.UserID,
		Name:       strings.TrimSpace(req.Name),
		Email:      normalizeEmail(req.Email),
		Phone:      strings.TrimSpace(req.Phone),
		Address:    req.Address,
		Items:      lines,
		TotalPrice: total.Round(2),
		CreatedAt:  s.now().UTC(),
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return o, nil
}

// ListForUser returns the orders placed under email. Non-admin callers only
// ever see orders they own.
func (s *Service) ListForUser(ctx context.Context, caller auth.Identity, email string) ([]Order, error) {
	q := Query{Email: normalizeEmail(email)}
	if !caller.IsAdmin() {
		q.UserID = caller.UserID
	}
	orders, err := s.orders.List(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// ListAll returns every order. Admin only.
func (s *Service) ListAll(ctx context.Context, caller auth.Identity) ([]Order, error) {
	if !caller.IsAdmin() {
		return nil, auth.ErrForbidden
	}
	orders, err := s.orders.List(ctx, Query{})
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// mergeItems folds repeated book ids into one line, keeping first-seen order.
// Every quantity, before and after merging, must lie in 1..MaxQuantity.
func mergeItems(items []LineItem) ([]LineItem, error) {
	out := make([]LineItem, 0, len(items))
	idx := make(map[string]int, len(items))
	for _, item := range items {
		if item.Quantity <= 0 || item.Quantity > MaxQuantity {
			return nil, &InvalidQuantityError{BookID: item.BookID}
		}
		i, ok := idx[item.BookID]
		if !ok {
			idx[item.BookID] = len(out)
			out = append(out, item)
			continue
		}
		// Both operands are at most MaxQuantity, so the sum cannot overflow.
		if out[i].Quantity+item.Quantity > MaxQuantity {
			return nil, &InvalidQuantityError{BookID: item.BookID}
		}
		out[i].Quantity += item.Quantity
	}
	return out, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
