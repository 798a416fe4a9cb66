package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/bookstore-api/internal/domain/auth"
	"github.com/xenking/bookstore-api/internal/domain/book"
	"github.com/xenking/bookstore-api/internal/domain/order"
	"github.com/xenking/bookstore-api/internal/domain/user"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// errorResponse is the body of every non-2xx API response.
type errorResponse struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// requestError is a client error detected at the HTTP boundary.
type requestError struct {
	status  int
	message string
	fields  map[string]string
}

func (e *requestError) Error() string { return e.message }

func badRequest(msg string) error {
	return &requestError{status: http.StatusBadRequest, message: msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, fields map[string]string) {
	writeJSON(w, status, errorResponse{Code: status, Message: msg, Fields: fields})
}

// fail maps err to a status and writes it. Unmapped errors are logged and
// reported as an opaque 500.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg, fields := mapError(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	}
	writeError(w, status, msg, fields)
}

func mapError(err error) (status int, msg string, fields map[string]string) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return reqErr.status, reqErr.message, reqErr.fields
	}

	var bookErr *order.BookNotFoundError
	if errors.As(err, &bookErr) {
		return http.StatusBadRequest, bookErr.Error(), nil
	}
	var qtyErr *order.InvalidQuantityError
	if errors.As(err, &qtyErr) {
		return http.StatusBadRequest, qtyErr.Error(), nil
	}

	switch {
	case errors.Is(err, book.ErrNotFound):
		return http.StatusNotFound, "Book not found", nil
	case errors.Is(err, order.ErrEmptyItems):
		return http.StatusBadRequest, "Order must contain at least one book", nil
	case errors.Is(err, user.ErrDuplicate):
		return http.StatusConflict, "Username already exists", nil
	case errors.Is(err, auth.ErrInvalidRole):
		return http.StatusBadRequest, "Invalid role", nil
	case errors.Is(err, auth.ErrInvalidUsername):
		return http.StatusBadRequest, "Username is required", nil
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials", nil
	case errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized, "Access denied. No token provided", nil
	case errors.Is(err, auth.ErrTokenExpired):
		return http.StatusUnauthorized, "Token expired", nil
	case errors.Is(err, auth.ErrTokenInvalid):
		return http.StatusUnauthorized, "Invalid token", nil
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, "Access denied. Insufficient permissions", nil
	default:
		return http.StatusInternalServerError, "internal server error", nil
	}
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields,
// trailing data and oversized bodies, then validates it.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return &requestError{status: http.StatusRequestEntityTooLarge, message: "request body too large"}
		case errors.Is(err, io.EOF):
			return badRequest("request body is empty")
		default:
			return badRequest("invalid JSON: " + err.Error())
		}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return badRequest("request body must contain a single JSON object")
	}

	return h.check(dst)
}
