package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Addr:         defaultAddr,
		DatabaseURL:  "mongodb://localhost:27017",
		DatabaseName: "book-store",
		Auth: AuthConfig{
			JWTSecret:    "secret",
			TokenTTL:     24 * time.Hour,
			PasswordCost: 10,
		},
		RateLimit: RateLimitConfig{Max: 20, Window: time.Minute},
		CORS: CORSConfig{
			Origins:        []string{"http://localhost:5173"},
			OriginPatterns: []string{`^https://mern-book-store-frontend(-\w+)*\.vercel\.app$`},
		},
	}
}

func TestApplyPlatformDefaults(t *testing.T) {
	tests := []struct {
		name       string
		env        map[string]string
		cfg        func(*Config)
		wantDB     string
		wantSecret string
		wantAddr   string
	}{
		{
			name:     "nothing set",
			wantAddr: defaultAddr,
		},
		{
			name:       "platform variables",
			env:        map[string]string{"DB_URL": "mongodb://db", "JWT_SECRET_KEY": "s3", "PORT": "5000"},
			wantDB:     "mongodb://db",
			wantSecret: "s3",
			wantAddr:   "0.0.0.0:5000",
		},
		{
			name:     "MONGODB_URI fallback",
			env:      map[string]string{"MONGODB_URI": "mongodb://atlas"},
			wantDB:   "mongodb://atlas",
			wantAddr: defaultAddr,
		},
		{
			name:     "DB_URL wins over MONGODB_URI",
			env:      map[string]string{"DB_URL": "mongodb://first", "MONGODB_URI": "mongodb://second"},
			wantDB:   "mongodb://first",
			wantAddr: defaultAddr,
		},
		{
			name: "explicit settings are kept",
			env:  map[string]string{"DB_URL": "mongodb://db", "JWT_SECRET_KEY": "s3", "PORT": "5000"},
			cfg: func(c *Config) {
				c.DatabaseURL = "mongodb://explicit"
				c.Auth.JWTSecret = "explicit"
				c.Addr = "127.0.0.1:9000"
			},
			wantDB:     "mongodb://explicit",
			wantSecret: "explicit",
			wantAddr:   "127.0.0.1:9000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"DB_URL", "MONGODB_URI", "JWT_SECRET_KEY", "PORT"} {
				t.Setenv(key, tt.env[key])
			}

			cfg := Config{Addr: defaultAddr}
			if tt.cfg != nil {
				tt.cfg(&cfg)
			}
			cfg.applyPlatformDefaults()

			assert.Equal(t, tt.wantDB, cfg.DatabaseURL)
			assert.Equal(t, tt.wantSecret, cfg.Auth.JWTSecret)
			assert.Equal(t, tt.wantAddr, cfg.Addr)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "no database", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: "database URL is required"},
		{name: "no database name", mutate: func(c *Config) { c.DatabaseName = "" }, wantErr: "database name"},
		{name: "no secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: "JWT secret is required"},
		{name: "zero ttl", mutate: func(c *Config) { c.Auth.TokenTTL = 0 }, wantErr: "token TTL"},
		{name: "cost too low", mutate: func(c *Config) { c.Auth.PasswordCost = 3 }, wantErr: "password cost"},
		{name: "zero rate limit", mutate: func(c *Config) { c.RateLimit.Max = 0 }, wantErr: "rate limit"},
		{name: "bad origin pattern", mutate: func(c *Config) { c.CORS.OriginPatterns = []string{"("} }, wantErr: "CORS origin pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCompilePatterns(t *testing.T) {
	patterns, err := validConfig().CORS.compilePatterns()
	require.NoError(t, err)
	require.Len(t, patterns, 1)

	assert.True(t, patterns[0].MatchString("https://mern-book-store-frontend.vercel.app"))
	assert.True(t, patterns[0].MatchString("https://mern-book-store-frontend-git-main-team.vercel.app"))
	assert.False(t, patterns[0].MatchString("https://evil.example.com"))
	assert.False(t, patterns[0].MatchString("https://mern-book-store-frontend.vercel.app.evil.com"))
}
