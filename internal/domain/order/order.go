package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Address is the shipping address captured at checkout.
type Address struct {
	City    string
	Country string
	State   string
	Zipcode string
}

// Order is a completed checkout. Orders are never mutated after creation.
type Order struct {
	ID         string
	UserID     string
	Name       string
	Email      string
	Phone      string
	Address    Address
	Items      []Item
	TotalPrice decimal.Decimal
	CreatedAt  time.Time
}

// Item is a line of an order. Title and Price are snapshots taken at
// checkout so that later catalog edits or deletions do not rewrite history.
type Item struct {
	BookID   string
	Title    string
	Quantity int
	Price    decimal.Decimal
}

// Query selects orders for listing. Empty fields match everything.
type Query struct {
	UserID string
	Email  string
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	List(ctx context.Context, q Query) ([]Order, error)
}
