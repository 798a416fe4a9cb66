package handler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/bookstore-api/internal/domain/book"
	"github.com/xenking/bookstore-api/internal/domain/order"
	"github.com/xenking/bookstore-api/internal/domain/stats"
	"github.com/xenking/bookstore-api/internal/domain/user"
)

// memStore is an in-memory implementation of every repository the handler
// depends on.
type memStore struct {
	mu     sync.Mutex
	seq    int
	books  []book.Book
	orders []order.Order
	users  map[string]user.User
}

func newMemStore() *memStore {
	return &memStore{users: map[string]user.User{}}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s%d", prefix, s.seq)
}

func (s *memStore) bookIndex(id string) int {
	for i, b := range s.books {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// --- book.Repository ---

type memBooks struct{ *memStore }

var _ book.Repository = memBooks{}

func (m memBooks) List(_ context.Context, f book.Filter) ([]book.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []book.Book
	for i := len(m.books) - 1; i >= 0; i-- {
		b := m.books[i]
		if f.Category != "" && b.Category != f.Category {
			continue
		}
		if f.Trending != nil && b.Trending != *f.Trending {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (m memBooks) GetByID(_ context.Context, id string) (*book.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.bookIndex(id)
	if i < 0 {
		return nil, book.ErrNotFound
	}
	b := m.books[i]
	return &b, nil
}

func (m memBooks) GetByIDs(_ context.Context, ids []string) ([]book.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []book.Book
	for _, id := range ids {
		if i := m.bookIndex(id); i >= 0 {
			out = append(out, m.books[i])
		}
	}
	return out, nil
}

func (m memBooks) Create(_ context.Context, b *book.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b.ID = m.nextID("b")
	m.books = append(m.books, *b)
	return nil
}

func (m memBooks) Update(_ context.Context, id string, p book.Patch, updatedAt time.Time) (*book.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.bookIndex(id)
	if i < 0 {
		return nil, book.ErrNotFound
	}
	b := p.Apply(m.books[i])
	b.UpdatedAt = updatedAt
	m.books[i] = b
	return &b, nil
}

func (m memBooks) Delete(_ context.Context, id string) (*book.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.bookIndex(id)
	if i < 0 {
		return nil, book.ErrNotFound
	}
	b := m.books[i]
	m.books = append(m.books[:i], m.books[i+1:]...)
	return &b, nil
}

// --- order.Repository ---

type memOrders struct{ *memStore }

var _ order.Repository = memOrders{}

func (m memOrders) Create(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o.ID = m.nextID("o")
	m.orders = append(m.orders, *o)
	return nil
}

func (m memOrders) List(_ context.Context, q order.Query) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []order.Order
	for i := len(m.orders) - 1; i >= 0; i-- {
		o := m.orders[i]
		if q.UserID != "" && o.UserID != q.UserID {
			continue
		}
		if q.Email != "" && o.Email != q.Email {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// --- user.Repository ---

type memUsers struct{ *memStore }

var _ user.Repository = memUsers{}

func (m memUsers) Create(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[u.Username]; ok {
		return user.ErrDuplicate
	}
	u.ID = m.nextID("u")
	m.users[u.Username] = *u
	return nil
}

func (m memUsers) FindByUsername(_ context.Context, username string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[username]
	if !ok {
		return nil, user.ErrNotFound
	}
	return &u, nil
}

// --- stats.Repository ---

type memStats struct{ *memStore }

var _ stats.Repository = memStats{}

func (m memStats) OrderTotals(context.Context) (stats.OrderTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := stats.OrderTotals{Sales: decimal.Zero}
	for _, o := range m.orders {
		t.Orders++
		t.Sales = t.Sales.Add(o.TotalPrice)
		for _, it := range o.Items {
			t.BooksSold += int64(it.Quantity)
		}
	}
	return t, nil
}

func (m memStats) MonthlySales(context.Context) ([]stats.MonthlySales, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byMonth := map[string]*stats.MonthlySales{}
	for _, o := range m.orders {
		key := o.CreatedAt.UTC().Format("2006-01")
		ms, ok := byMonth[key]
		if !ok {
			ms = &stats.MonthlySales{Month: key}
			byMonth[key] = ms
		}
		ms.TotalOrders++
		ms.TotalSales = ms.TotalSales.Add(o.TotalPrice)
	}

	out := make([]stats.MonthlySales, 0, len(byMonth))
	for _, ms := range byMonth {
		out = append(out, *ms)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

func (m memStats) CountBooks(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.books)), nil
}

func (m memStats) CountTrendingBooks(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, b := range m.books {
		if b.Trending {
			n++
		}
	}
	return n, nil
}
