//go:build integration

package mongodb

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"

	"github.com/xenking/bookstore-api/internal/domain/book"
	"github.com/xenking/bookstore-api/internal/domain/order"
	"github.com/xenking/bookstore-api/internal/domain/user"
)

var testURI string

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	ctr, err := tcmongo.Run(ctx, "mongo:7")
	if err != nil {
		log.Fatalf("start mongodb: %v", err)
	}
	defer func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			log.Printf("terminate mongodb: %v", err)
		}
	}()

	testURI, err = ctr.ConnectionString(ctx)
	if err != nil {
		log.Fatalf("connection string: %v", err)
	}

	return m.Run()
}

// newTestClient connects to a fresh, uniquely named database.
func newTestClient(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()

	c, err := Connect(ctx, testURI, fmt.Sprintf("test_%d", time.Now().UnixNano()))
	require.NoError(t, err)
	require.NoError(t, c.EnsureIndexes(ctx))

	t.Cleanup(func() {
		_ = c.Database().Drop(context.Background())
		_ = c.Close(context.Background())
	})
	return c
}

func newBook(title string, cat book.Category, price string, trending bool, at time.Time) *book.Book {
	return &book.Book{
		Title:     title,
		Category:  cat,
		OldPrice:  decimal.RequireFromString(price).Add(decimal.NewFromInt(5)),
		NewPrice:  decimal.RequireFromString(price),
		Trending:  trending,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func TestBookRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewBookRepository(newTestClient(t))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	older := newBook("Older", book.CategoryFiction, "10.00", true, base)
	newer := newBook("Newer", book.CategoryBusiness, "19.99", false, base.Add(time.Hour))
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))
	require.NotEmpty(t, older.ID)

	t.Run("list newest first", func(t *testing.T) {
		got, err := repo.List(ctx, book.Filter{})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Newer", got[0].Title)
		assert.True(t, decimal.RequireFromString("19.99").Equal(got[0].NewPrice))
	})

	t.Run("filters", func(t *testing.T) {
		trending := true
		got, err := repo.List(ctx, book.Filter{Trending: &trending})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, older.ID, got[0].ID)

		got, err = repo.List(ctx, book.Filter{Category: book.CategoryBusiness})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, newer.ID, got[0].ID)
	})

	t.Run("get by ids skips unknown", func(t *testing.T) {
		got, err := repo.GetByIDs(ctx, []string{older.ID, "000000000000000000000000", "garbage"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, older.ID, got[0].ID)
	})

	t.Run("partial update", func(t *testing.T) {
		title := "Renamed"
		at := base.Add(2 * time.Hour)
		got, err := repo.Update(ctx, older.ID, book.Patch{Title: &title}, at)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Title)
		assert.True(t, older.NewPrice.Equal(got.NewPrice))
		assert.Equal(t, book.CategoryFiction, got.Category)
		assert.True(t, at.Equal(got.UpdatedAt))
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "not-an-object-id")
		require.ErrorIs(t, err, book.ErrNotFound)
		_, err = repo.GetByID(ctx, "000000000000000000000000")
		require.ErrorIs(t, err, book.ErrNotFound)
		_, err = repo.Delete(ctx, "000000000000000000000000")
		require.ErrorIs(t, err, book.ErrNotFound)
	})

	t.Run("delete returns last state", func(t *testing.T) {
		got, err := repo.Delete(ctx, newer.ID)
		require.NoError(t, err)
		assert.Equal(t, "Newer", got.Title)

		_, err = repo.GetByID(ctx, newer.ID)
		require.ErrorIs(t, err, book.ErrNotFound)
	})
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestClient(t))

	u := &user.User{Username: "alice", PasswordHash: "hash", Role: user.RoleAdmin, CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.Create(ctx, u))
	require.NotEmpty(t, u.ID)

	err := repo.Create(ctx, &user.User{Username: "alice", PasswordHash: "x", Role: user.RoleUser})
	require.ErrorIs(t, err, user.ErrDuplicate)

	got, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, user.RoleAdmin, got.Role)
	assert.Equal(t, "hash", got.PasswordHash)

	_, err = repo.FindByUsername(ctx, "bob")
	require.ErrorIs(t, err, user.ErrNotFound)
}

func TestOrderAndStatsRepositories(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	books := NewBookRepository(c)
	orders := NewOrderRepository(c)
	statsRepo := NewStatsRepository(c)

	b := newBook("Dune", book.CategoryFiction, "12.50", true, time.Now().UTC())
	require.NoError(t, books.Create(ctx, b))

	place := func(userID, email string, qty int, at time.Time) *order.Order {
		price := b.NewPrice
		o := &order.Order{
			UserID:     userID,
			Name:       "Buyer",
			Email:      email,
			Items:      []order.Item{{BookID: b.ID, Title: b.Title, Quantity: qty, Price: price}},
			TotalPrice: price.Mul(decimal.NewFromInt(int64(qty))),
			CreatedAt:  at,
		}
		require.NoError(t, orders.Create(ctx, o))
		return o
	}

	jan := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)
	first := place("u1", "a@example.com", 2, jan)
	place("u2", "a@example.com", 1, feb)
	place("u2", "b@example.com", 1, feb)

	got, err := orders.List(ctx, order.Query{UserID: "u1", Email: "a@example.com"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, "Dune", got[0].Items[0].Title)

	got, err = orders.List(ctx, order.Query{Email: "a@example.com"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	// Deleting the book must not change revenue.
	_, err = books.Delete(ctx, b.ID)
	require.NoError(t, err)

	totals, err := statsRepo.OrderTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), totals.Orders)
	assert.Equal(t, int64(4), totals.BooksSold)
	assert.True(t, decimal.RequireFromString("50").Equal(totals.Sales), "sales %s", totals.Sales)

	monthly, err := statsRepo.MonthlySales(ctx)
	require.NoError(t, err)
	require.Len(t, monthly, 2)
	assert.Equal(t, "2024-01", monthly[0].Month)
	assert.Equal(t, int64(1), monthly[0].TotalOrders)
	assert.Equal(t, "2024-02", monthly[1].Month)
	assert.Equal(t, int64(2), monthly[1].TotalOrders)

	n, err := statsRepo.CountBooks(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
