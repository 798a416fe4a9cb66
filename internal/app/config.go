package app

import (
	"os"
	"regexp"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (BOOKSTORE_ prefix), flags, YAML config files or a
// local .env file.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"MongoDB connection URI (BOOKSTORE_DATABASE_URL, DB_URL or MONGODB_URI)" flag:"database-url"`
	DatabaseName string `default:"book-store" usage:"MongoDB database name" flag:"database-name"`
	Auth         AuthConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// AuthConfig controls token signing and password hashing.
type AuthConfig struct {
	JWTSecret       string        `usage:"HMAC secret for signing tokens (BOOKSTORE_AUTH_JWT_SECRET or JWT_SECRET_KEY)" flag:"jwt-secret"`
	TokenTTL        time.Duration `default:"24h" usage:"Lifetime of issued tokens" flag:"token-ttl"`
	PasswordCost    int           `default:"10" usage:"bcrypt cost factor" flag:"password-cost"`
	OpenAdminSignup bool          `default:"true" usage:"Allow anyone to register an admin account" flag:"open-admin-signup"`
}

// RateLimitConfig controls the per-client sliding window rate limiter on the
// credential endpoints.
type RateLimitConfig struct {
	Max    int           `default:"20" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
	// TrustProxy keys clients by the last X-Forwarded-For hop. Enable only
	// behind a proxy that appends it.
	TrustProxy bool `default:"false" usage:"Key rate limits by the proxy-appended X-Forwarded-For hop" flag:"rate-limit-trust-proxy"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"http://localhost:5173" usage:"Allowed CORS origins"`
	OriginPatterns   []string `default:"^https://mern-book-store-frontend(-\\w+)*\\.vercel\\.app$" usage:"Regular expressions matching allowed origins" flag:"cors-origin-patterns"`
	AllowCredentials bool     `default:"true" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from .env, environment variables and YAML
// config files, applies platform-specific defaults and validates the result.
func LoadConfig() (*Config, error) {
	// A missing .env is the normal case outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "BOOKSTORE",
		Files:     []string{"config.yaml", "/etc/bookstore/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Render,
// Vercel, Atlas, etc.) that use standard names like DB_URL and PORT to the
// application's BOOKSTORE_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	for _, key := range []string{"DB_URL", "MONGODB_URI"} {
		if c.DatabaseURL != "" {
			break
		}
		c.DatabaseURL = os.Getenv(key)
	}
	if c.Auth.JWTSecret == "" {
		c.Auth.JWTSecret = os.Getenv("JWT_SECRET_KEY")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set BOOKSTORE_DATABASE_URL, DB_URL or MONGODB_URI")
	}
	if c.DatabaseName == "" {
		return errors.New("database name is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT secret is required: set BOOKSTORE_AUTH_JWT_SECRET or JWT_SECRET_KEY")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.Errorf("token TTL must be positive, got %s", c.Auth.TokenTTL)
	}
	if c.Auth.PasswordCost < 4 || c.Auth.PasswordCost > 31 {
		return errors.Errorf("password cost must be between 4 and 31, got %d", c.Auth.PasswordCost)
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate limit max and window must be positive")
	}
	if _, err := c.CORS.compilePatterns(); err != nil {
		return err
	}
	return nil
}

func (c CORSConfig) compilePatterns() ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(c.OriginPatterns))
	for _, p := range c.OriginPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, errors.Wrapf(err, "compile CORS origin pattern %q", p)
		}
		out = append(out, re)
	}
	return out, nil
}
