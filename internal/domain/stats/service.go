package stats

import (
	"context"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"
)

// Service computes admin statistics.
type Service struct {
	repo Repository
}

// NewService creates a stats Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Compute runs the independent aggregate queries concurrently and merges
// them. The first failing query cancels the rest.
func (s *Service) Compute(ctx context.Context) (*Stats, error) {
	var (
		totals   OrderTotals
		monthly  []MonthlySales
		books    int64
		trending int64
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if totals, err = s.repo.OrderTotals(ctx); err != nil {
			return errors.Wrap(err, "order totals")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if monthly, err = s.repo.MonthlySales(ctx); err != nil {
			return errors.Wrap(err, "monthly sales")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if books, err = s.repo.CountBooks(ctx); err != nil {
			return errors.Wrap(err, "count books")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if trending, err = s.repo.CountTrendingBooks(ctx); err != nil {
			return errors.Wrap(err, "count trending books")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if monthly == nil {
		monthly = []MonthlySales{}
	}
	return &Stats{
		TotalOrders:   totals.Orders,
		TotalSales:    totals.Sales.Round(2),
		BooksSold:     totals.BooksSold,
		TrendingBooks: trending,
		TotalBooks:    books,
		MonthlySales:  monthly,
	}, nil
}
