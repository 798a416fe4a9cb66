package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/bookstore-api/internal/domain/auth"
	"github.com/xenking/bookstore-api/internal/domain/user"
)

type registerRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	// bcrypt ignores input past 72 bytes.
	Password string `json:"password" validate:"required,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type registerResponse struct {
	Message string       `json:"message"`
	User    userResponse `json:"user"`
}

type loginResponse struct {
	Message   string       `json:"message"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      userResponse `json:"user"`
}

// bearerToken returns the token from "Authorization: Bearer <token>", or ""
// when the header is absent or uses another scheme.
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// requireRole verifies the bearer token and, when role is not empty, that the
// caller holds it. The identity is stored in the request context.
func (h *Handler) requireRole(role user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := h.auth.Authorize(bearerToken(r), role)
			if err != nil {
				h.recordAuthFailure(r.Context(), err)
				h.fail(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// optionalAuth attaches the caller's identity when a valid token is present
// and otherwise lets the request through anonymously.
func (h *Handler) optionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := bearerToken(r); token != "" {
			if id, err := h.auth.Verify(token); err == nil {
				r = r.WithContext(auth.WithIdentity(r.Context(), id))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) recordAuthFailure(ctx context.Context, err error) {
	reason := "other"
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		reason = "missing_token"
	case errors.Is(err, auth.ErrTokenExpired):
		reason = "expired_token"
	case errors.Is(err, auth.ErrTokenInvalid):
		reason = "invalid_token"
	case errors.Is(err, auth.ErrForbidden):
		reason = "forbidden"
	case errors.Is(err, auth.ErrInvalidCredentials):
		reason = "invalid_credentials"
	}
	h.authFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// identity returns the caller set by requireRole. Routes without the guard
// never call it.
func identity(r *http.Request) auth.Identity {
	id, _ := auth.IdentityFrom(r.Context())
	return id
}

// register handles POST /api/auth/register.
func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	var caller *auth.Identity
	if id, ok := auth.IdentityFrom(r.Context()); ok {
		caller = &id
	}

	u, err := h.auth.Register(r.Context(), auth.RegisterRequest{
		Username: req.Username,
		Password: req.Password,
		Role:     user.Role(req.Role),
	}, caller)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		Message: "User registered successfully",
		User:    userResponse{ID: u.ID, Username: u.Username, Role: string(u.Role)},
	})
}

// login handles POST /api/auth/login.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.recordAuthFailure(r.Context(), err)
		}
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Message:   "Authentication successful",
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		User:      userResponse{ID: res.User.ID, Username: res.User.Username, Role: string(res.User.Role)},
	})
}
