package stats

import (
	"context"

	"github.com/shopspring/decimal"
)

// Stats is the admin dashboard summary.
type Stats struct {
	TotalOrders   int64
	TotalSales    decimal.Decimal
	BooksSold     int64
	TrendingBooks int64
	TotalBooks    int64
	MonthlySales  []MonthlySales
}

// MonthlySales aggregates orders placed in one calendar month (UTC).
type MonthlySales struct {
	// Month is formatted as YYYY-MM.
	Month       string
	TotalSales  decimal.Decimal
	TotalOrders int64
}

// OrderTotals aggregates every stored order.
type OrderTotals struct {
	Orders    int64
	Sales     decimal.Decimal
	BooksSold int64
}

// Repository defines the read-only queries backing Stats.
type Repository interface {
	OrderTotals(ctx context.Context) (OrderTotals, error)
	// MonthlySales returns months in ascending order.
	MonthlySales(ctx context.Context) ([]MonthlySales, error)
	CountBooks(ctx context.Context) (int64, error)
	CountTrendingBooks(ctx context.Context) (int64, error)
}
