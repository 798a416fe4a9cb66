package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/bookstore-api/internal/domain/auth"
	"github.com/xenking/bookstore-api/internal/domain/book"
	"github.com/xenking/bookstore-api/internal/domain/order"
	"github.com/xenking/bookstore-api/internal/domain/stats"
	"github.com/xenking/bookstore-api/internal/handler"
	"github.com/xenking/bookstore-api/internal/storage/mongodb"
	"github.com/xenking/bookstore-api/pkg/health"
	"github.com/xenking/bookstore-api/pkg/httpmiddleware"
)

const serviceName = "bookstore-api"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr), zap.String("database", cfg.DatabaseName))

	// MongoDB client + indexes.
	db, err := mongodb.Connect(ctx, cfg.DatabaseURL, cfg.DatabaseName)
	if err != nil {
		return errors.Wrap(err, "connect to mongodb")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := db.Close(closeCtx); err != nil {
			lg.Error("Close database", zap.Error(err))
		}
	}()
	lg.Info("Connected to MongoDB")

	if err := db.EnsureIndexes(ctx); err != nil {
		return errors.Wrap(err, "ensure indexes")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("mongodb", 5*time.Second, health.PingCheck(db))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc", time.Second, health.GCMaxPauseCheck(time.Second))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	h, err := newHandler(db, cfg, m.MeterProvider().Meter(serviceName))
	if err != nil {
		return err
	}

	router, err := newRouter(ctx, lg, cfg, h, healthSvc)
	if err != nil {
		return err
	}

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           httpmiddleware.Wrap(router, httpmiddleware.Instrument(serviceName, m)),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// newHandler builds the repositories and domain services on top of db and
// returns the API handler.
func newHandler(db *mongodb.Client, cfg *Config, meter metric.Meter) (*handler.Handler, error) {
	bookRepo := mongodb.NewBookRepository(db)
	orderRepo := mongodb.NewOrderRepository(db)

	tokens, err := auth.NewTokenIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	if err != nil {
		return nil, errors.Wrap(err, "create token issuer")
	}
	authService, err := auth.NewService(
		auth.ServiceConfig{OpenAdminSignup: cfg.Auth.OpenAdminSignup},
		mongodb.NewUserRepository(db),
		auth.NewPasswordHasher(cfg.Auth.PasswordCost),
		tokens,
	)
	if err != nil {
		return nil, errors.Wrap(err, "create auth service")
	}

	h, err := handler.NewHandler(
		book.NewService(bookRepo),
		order.NewService(bookRepo, orderRepo),
		stats.NewService(mongodb.NewStatsRepository(db)),
		authService,
		meter,
	)
	if err != nil {
		return nil, errors.Wrap(err, "create handler")
	}
	return h, nil
}

// newRouter mounts the API, health probes and banner behind the shared
// middleware chain. Route-aware middleware runs inside chi so the matched
// pattern is available to it.
func newRouter(ctx context.Context, lg *zap.Logger, cfg *Config, h *handler.Handler, healthSvc *health.Health) (chi.Router, error) {
	patterns, err := cfg.CORS.compilePatterns()
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:        cfg.CORS.Origins,
			AllowOriginPatterns: patterns,
			AllowHeaders:        []string{"Content-Type", "Authorization"},
			ExposeHeaders:       []string{httpmiddleware.RequestIDHeader},
			AllowCredentials:    cfg.CORS.AllowCredentials,
			MaxAge:              86400,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.LogRequests(),
		httpmiddleware.Labeler(),
	)

	r.Get("/livez", healthSvc.LiveEndpoint)
	r.Get("/readyz", healthSvc.ReadyEndpoint)
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Book Store Server is running!"))
	})

	authLimit := httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
		Max:        cfg.RateLimit.Max,
		Window:     cfg.RateLimit.Window,
		TrustProxy: cfg.RateLimit.TrustProxy,
	})
	r.Mount("/api", h.Routes(authLimit))

	return r, nil
}
