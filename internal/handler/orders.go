package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/bookstore-api/internal/domain/order"
)

type addressDTO struct {
	City    string `json:"city" validate:"required,max=100"`
	Country string `json:"country" validate:"max=100"`
	State   string `json:"state" validate:"max=100"`
	Zipcode string `json:"zipcode" validate:"max=20"`
}

type orderItemRequest struct {
	BookID   string `json:"bookId" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=1,lte=1000"`
}

// phoneNumber accepts a JSON string or number.
type phoneNumber string

func (p *phoneNumber) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = phoneNumber(s)
		return nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return err
	}
	*p = phoneNumber(n.String())
	return nil
}

type createOrderRequest struct {
	Name    string             `json:"name" validate:"required,max=200"`
	Email   string             `json:"email" validate:"required,email"`
	Phone   phoneNumber        `json:"phone" validate:"required,max=32"`
	Address addressDTO         `json:"address" validate:"required"`
	Items   []orderItemRequest `json:"items" validate:"omitempty,max=100,dive"`
	// ProductIDs is the legacy payload: each id is one copy of a book.
	ProductIDs []string `json:"productIds" validate:"omitempty,max=100,dive,required"`
	// TotalPrice is accepted for compatibility and ignored.
	TotalPrice *decimal.Decimal `json:"totalPrice"`
}

func (req createOrderRequest) lineItems() []order.LineItem {
	items := make([]order.LineItem, 0, len(req.Items)+len(req.ProductIDs))
	for _, it := range req.Items {
		items = append(items, order.LineItem{BookID: it.BookID, Quantity: it.Quantity})
	}
	if len(items) == 0 {
		for _, id := range req.ProductIDs {
			items = append(items, order.LineItem{BookID: id, Quantity: 1})
		}
	}
	return items
}

type orderItemResponse struct {
	BookID   string          `json:"bookId"`
	Title    string          `json:"title"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type orderResponse struct {
	ID         string              `json:"_id"`
	UserID     string              `json:"userId"`
	Name       string              `json:"name"`
	Email      string              `json:"email"`
	Phone      string              `json:"phone"`
	Address    addressDTO          `json:"address"`
	Items      []orderItemResponse `json:"items"`
	ProductIDs []string            `json:"productIds"`
	TotalPrice decimal.Decimal     `json:"totalPrice"`
	CreatedAt  time.Time           `json:"createdAt"`
}

func toOrderResponse(o order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	ids := make([]string, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemResponse(it)
		ids[i] = it.BookID
	}
	return orderResponse{
		ID:         o.ID,
		UserID:     o.UserID,
		Name:       o.Name,
		Email:      o.Email,
		Phone:      o.Phone,
		Address:    addressDTO(o.Address),
		Items:      items,
		ProductIDs: ids,
		TotalPrice: o.TotalPrice,
		CreatedAt:  o.CreatedAt,
	}
}

func toOrderResponses(orders []order.Order) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i, o := range orders {
		out[i] = toOrderResponse(o)
	}
	return out
}

// createOrder handles POST /api/orders.
func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	o, err := h.orders.PlaceOrder(r.Context(), identity(r), order.PlaceOrderRequest{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   string(req.Phone),
		Address: order.Address(req.Address),
		Items:   req.lineItems(),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.ordersPlaced.Add(r.Context(), 1)
	writeJSON(w, http.StatusCreated, toOrderResponse(*o))
}

// listOrdersForUser handles GET /api/orders/{email}.
func (h *Handler) listOrdersForUser(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListForUser(r.Context(), identity(r), chi.URLParam(r, "email"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(orders))
}

// listAllOrders handles GET /api/orders.
func (h *Handler) listAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListAll(r.Context(), identity(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(orders))
}
