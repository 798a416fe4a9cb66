package mongodb

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/xenking/bookstore-api/internal/domain/stats"
)

var _ stats.Repository = (*StatsRepository)(nil)

// StatsRepository runs the admin dashboard aggregations.
type StatsRepository struct {
	books  *mongo.Collection
	orders *mongo.Collection
}

// NewStatsRepository returns a StatsRepository using c.
func NewStatsRepository(c *Client) *StatsRepository {
	return &StatsRepository{
		books:  c.db.Collection(booksCollection),
		orders: c.db.Collection(ordersCollection),
	}
}

// OrderTotals sums order count, revenue and units sold over all orders.
func (r *StatsRepository) OrderTotals(ctx context.Context) (stats.OrderTotals, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "orders", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "sales", Value: bson.D{{Key: "$sum", Value: "$totalPrice"}}},
			{Key: "booksSold", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$sum", Value: "$items.quantity"}}}}},
		}}},
	}

	cur, err := r.orders.Aggregate(ctx, pipeline)
	if err != nil {
		return stats.OrderTotals{}, fmt.Errorf("aggregating order totals: %w", err)
	}

	var rows []struct {
		Orders    int64           `bson:"orders"`
		Sales     decimal.Decimal `bson:"sales"`
		BooksSold int64           `bson:"booksSold"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return stats.OrderTotals{}, fmt.Errorf("decoding order totals: %w", err)
	}
	if len(rows) == 0 {
		return stats.OrderTotals{}, nil
	}
	return stats.OrderTotals{
		Orders:    rows[0].Orders,
		Sales:     rows[0].Sales,
		BooksSold: rows[0].BooksSold,
	}, nil
}

// MonthlySales groups orders by UTC calendar month, oldest first.
func (r *StatsRepository) MonthlySales(ctx context.Context) ([]stats.MonthlySales, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$dateToString", Value: bson.D{
				{Key: "format", Value: "%Y-%m"},
				{Key: "date", Value: "$createdAt"},
			}}}},
			{Key: "totalSales", Value: bson.D{{Key: "$sum", Value: "$totalPrice"}}},
			{Key: "totalOrders", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cur, err := r.orders.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregating monthly sales: %w", err)
	}

	var rows []struct {
		Month       string          `bson:"_id"`
		TotalSales  decimal.Decimal `bson:"totalSales"`
		TotalOrders int64           `bson:"totalOrders"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decoding monthly sales: %w", err)
	}

	out := make([]stats.MonthlySales, len(rows))
	for i, row := range rows {
		out[i] = stats.MonthlySales{
			Month:       row.Month,
			TotalSales:  row.TotalSales.Round(2),
			TotalOrders: row.TotalOrders,
		}
	}
	return out, nil
}

// CountBooks returns the catalog size.
func (r *StatsRepository) CountBooks(ctx context.Context) (int64, error) {
	n, err := r.books.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("counting books: %w", err)
	}
	return n, nil
}

// CountTrendingBooks returns the number of books flagged trending.
func (r *StatsRepository) CountTrendingBooks(ctx context.Context) (int64, error) {
	n, err := r.books.CountDocuments(ctx, bson.D{{Key: "trending", Value: true}})
	if err != nil {
		return 0, fmt.Errorf("counting trending books: %w", err)
	}
	return n, nil
}
