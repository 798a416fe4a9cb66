package handler

import (
	"net/http"

	"github.com/shopspring/decimal"
)

type monthlySalesResponse struct {
	Month       string          `json:"month"`
	TotalSales  decimal.Decimal `json:"totalSales"`
	TotalOrders int64           `json:"totalOrders"`
}

type statsResponse struct {
	TotalOrders   int64                  `json:"totalOrders"`
	TotalSales    decimal.Decimal        `json:"totalSales"`
	BooksSold     int64                  `json:"booksSold"`
	TrendingBooks int64                  `json:"trendingBooks"`
	TotalBooks    int64                  `json:"totalBooks"`
	MonthlySales  []monthlySalesResponse `json:"monthlySales"`
}

// adminStats handles GET /api/admin/stats.
func (h *Handler) adminStats(w http.ResponseWriter, r *http.Request) {
	s, err := h.stats.Compute(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	monthly := make([]monthlySalesResponse, len(s.MonthlySales))
	for i, m := range s.MonthlySales {
		monthly[i] = monthlySalesResponse(m)
	}
	writeJSON(w, http.StatusOK, statsResponse{
		TotalOrders:   s.TotalOrders,
		TotalSales:    s.TotalSales,
		BooksSold:     s.BooksSold,
		TrendingBooks: s.TrendingBooks,
		TotalBooks:    s.TotalBooks,
		MonthlySales:  monthly,
	})
}
