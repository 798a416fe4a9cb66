package stats

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockRepo struct {
	totals     OrderTotals
	monthly    []MonthlySales
	books      int64
	trending   int64
	monthlyErr error
}

func (m *mockRepo) OrderTotals(context.Context) (OrderTotals, error) { return m.totals, nil }

func (m *mockRepo) MonthlySales(ctx context.Context) ([]MonthlySales, error) {
	if m.monthlyErr != nil {
		return nil, m.monthlyErr
	}
	return m.monthly, nil
}

func (m *mockRepo) CountBooks(context.Context) (int64, error)         { return m.books, nil }
func (m *mockRepo) CountTrendingBooks(context.Context) (int64, error) { return m.trending, nil }

// --- Tests ---

func TestCompute(t *testing.T) {
	repo := &mockRepo{
		totals: OrderTotals{Orders: 3, Sales: decimal.RequireFromString("59.994"), BooksSold: 7},
		monthly: []MonthlySales{
			{Month: "2024-01", TotalSales: decimal.NewFromInt(20), TotalOrders: 1},
			{Month: "2024-02", TotalSales: decimal.RequireFromString("39.99"), TotalOrders: 2},
		},
		books:    12,
		trending: 4,
	}

	got, err := NewService(repo).Compute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), got.TotalOrders)
	assert.True(t, decimal.RequireFromString("59.99").Equal(got.TotalSales))
	assert.Equal(t, int64(7), got.BooksSold)
	assert.Equal(t, int64(12), got.TotalBooks)
	assert.Equal(t, int64(4), got.TrendingBooks)
	require.Len(t, got.MonthlySales, 2)
	assert.Equal(t, "2024-01", got.MonthlySales[0].Month)
}

func TestCompute_Empty(t *testing.T) {
	got, err := NewService(&mockRepo{}).Compute(context.Background())
	require.NoError(t, err)
	assert.Zero(t, got.TotalOrders)
	assert.True(t, got.TotalSales.IsZero())
	assert.NotNil(t, got.MonthlySales)
	assert.Empty(t, got.MonthlySales)
}

func TestCompute_Error(t *testing.T) {
	repo := &mockRepo{monthlyErr: errors.New("db down")}
	_, err := NewService(repo).Compute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monthly sales")
}
