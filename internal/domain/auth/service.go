package auth

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/bookstore-api/internal/domain/user"
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown username or a
	// wrong password. The two cases are indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMissingToken is returned when a request carries no bearer token.
	ErrMissingToken = errors.New("missing token")
	// ErrTokenInvalid is returned for malformed or badly signed tokens.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned for well-signed tokens past their expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrForbidden is returned when the caller lacks the required role.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidRole is returned when a registration names an unknown role.
	ErrInvalidRole = errors.New("invalid role")
	// ErrInvalidUsername is returned when a username is blank after trimming.
	ErrInvalidUsername = errors.New("invalid username")
)

// RegisterRequest holds the input for creating an account.
type RegisterRequest struct {
	Username string
	Password string
	Role     user.Role
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *user.User
}

// ServiceConfig holds non-dependency settings for the Service.
type ServiceConfig struct {
	// OpenAdminSignup lets anyone register an admin account. When false only
	// an existing admin may create another one.
	OpenAdminSignup bool
}

// Service implements registration, login and token verification.
type Service struct {
	users  user.Repository
	hasher *PasswordHasher
	tokens *TokenIssuer
	cfg    ServiceConfig
	now    func() time.Time

	// dummyHash is compared against on unknown usernames so that login
	// latency does not reveal which usernames exist.
	dummyHash string
}

// NewService creates an auth Service.
func NewService(cfg ServiceConfig, users user.Repository, hasher *PasswordHasher, tokens *TokenIssuer) (*Service, error) {
	dummy, err := hasher.Hash("dummy-password-for-timing")
	if err != nil {
		return nil, err
	}
	return &Service{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		cfg:       cfg,
		now:       time.Now,
		dummyHash: dummy,
	}, nil
}

// Register creates a user with a salted password hash. caller is the
// identity of the requester if one authenticated, and is consulted only for
// admin registrations when open admin signup is disabled.
func (s *Service) Register(ctx context.Context, req RegisterRequest, caller *Identity) (*user.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, ErrInvalidUsername
	}
	role := req.Role
	if role == "" {
		role = user.RoleUser
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if role == user.RoleAdmin && !s.cfg.OpenAdminSignup && (caller == nil || !caller.IsAdmin()) {
		return nil, ErrForbidden
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	u := &user.User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrDuplicate) {
			return nil, user.ErrDuplicate
		}
		return nil, errors.Wrap(err, "create user")
	}
	return u, nil
}

// Login checks the credentials and issues a token on success.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	u, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	switch {
	case errors.Is(err, user.ErrNotFound):
		s.hasher.Compare(s.dummyHash, password)
		return nil, ErrInvalidCredentials
	case err != nil:
		return nil, errors.Wrap(err, "find user")
	}

	if !s.hasher.Compare(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	token, exp, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: exp, User: u}, nil
}

// Verify decodes a bearer token into an Identity.
func (s *Service) Verify(token string) (Identity, error) {
	return s.tokens.Verify(token)
}

// Authorize verifies token and checks that it carries role. An empty role
// accepts any authenticated caller.
func (s *Service) Authorize(token string, role user.Role) (Identity, error) {
	id, err := s.tokens.Verify(token)
	if err != nil {
		return Identity{}, err
	}
	if role != "" && id.Role != role {
		return id, ErrForbidden
	}
	return id, nil
}
