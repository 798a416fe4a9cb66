package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/bookstore-api/internal/domain/auth"
	"github.com/xenking/bookstore-api/internal/domain/book"
	"github.com/xenking/bookstore-api/internal/domain/order"
	"github.com/xenking/bookstore-api/internal/domain/stats"
	"github.com/xenking/bookstore-api/internal/domain/user"
	"github.com/xenking/bookstore-api/pkg/httpmiddleware"
)

func init() {
	// Prices are JSON numbers on the wire.
	decimal.MarshalJSONWithoutQuotes = true
}

// Handler serves the /api routes, delegating business logic to the domain
// services.
type Handler struct {
	books    *book.Service
	orders   *order.Service
	stats    *stats.Service
	auth     *auth.Service
	validate *validator.Validate

	ordersPlaced metric.Int64Counter
	authFailures metric.Int64Counter
}

// NewHandler constructs a Handler. Counters are registered on meter.
func NewHandler(
	books *book.Service,
	orders *order.Service,
	statsSvc *stats.Service,
	authSvc *auth.Service,
	meter metric.Meter,
) (*Handler, error) {
	ordersPlaced, err := meter.Int64Counter("bookstore.orders.placed",
		metric.WithDescription("Orders placed"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders counter")
	}
	authFailures, err := meter.Int64Counter("bookstore.auth.failures",
		metric.WithDescription("Rejected logins and tokens"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "auth failures counter")
	}

	return &Handler{
		books:        books,
		orders:       orders,
		stats:        statsSvc,
		auth:         authSvc,
		validate:     newValidator(),
		ordersPlaced: ordersPlaced,
		authFailures: authFailures,
	}, nil
}

// Routes returns the router for everything under /api. authLimit, when not
// nil, is applied to the credential endpoints.
func (h *Handler) Routes(authLimit httpmiddleware.Middleware) chi.Router {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	admin := h.requireRole(user.RoleAdmin)
	authenticated := h.requireRole("")

	r.Route("/books", func(r chi.Router) {
		r.Get("/", h.listBooks)
		r.Get("/{id}", h.getBook)
		r.With(admin).Post("/create-book", h.createBook)
		r.With(admin).Put("/edit/{id}", h.updateBook)
		r.With(admin).Delete("/{id}", h.deleteBook)
	})

	r.Route("/orders", func(r chi.Router) {
		r.With(authenticated).Post("/", h.createOrder)
		r.With(admin).Get("/", h.listAllOrders)
		r.With(authenticated).Get("/{email}", h.listOrdersForUser)
	})

	r.Route("/auth", func(r chi.Router) {
		if authLimit != nil {
			r.Use(authLimit)
		}
		r.With(h.optionalAuth).Post("/register", h.register)
		r.Post("/login", h.login)
	})

	r.With(admin).Get("/admin/stats", h.adminStats)

	return r
}
