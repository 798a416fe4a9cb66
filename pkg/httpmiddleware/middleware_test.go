package httpmiddleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWrap_Order(t *testing.T) {
	var trace []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				trace = append(trace, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Wrap(okHandler(), mark("outer"), mark("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"outer", "inner"}, trace)
}

func TestCORS(t *testing.T) {
	cfg := CORSConfig{
		AllowOrigins:        []string{"http://localhost:5173"},
		AllowOriginPatterns: []*regexp.Regexp{regexp.MustCompile(`^https://shop(-\w+)*\.vercel\.app$`)},
		AllowHeaders:        []string{"Content-Type", "Authorization"},
		AllowCredentials:    true,
		MaxAge:              600,
	}
	handler := CORS(cfg)(okHandler())

	tests := []struct {
		name       string
		method     string
		origin     string
		preflight  bool
		wantStatus int
		wantOrigin string
	}{
		{name: "exact origin", method: http.MethodGet, origin: "http://localhost:5173", wantStatus: http.StatusOK, wantOrigin: "http://localhost:5173"},
		{name: "exact origin case insensitive", method: http.MethodGet, origin: "HTTP://LOCALHOST:5173", wantStatus: http.StatusOK, wantOrigin: "http://localhost:5173"},
		{name: "pattern origin", method: http.MethodGet, origin: "https://shop-git-main-team.vercel.app", wantStatus: http.StatusOK, wantOrigin: "https://shop-git-main-team.vercel.app"},
		{name: "pattern is anchored", method: http.MethodGet, origin: "https://evil.com/https://shop.vercel.app", wantStatus: http.StatusOK},
		{name: "unknown origin", method: http.MethodGet, origin: "https://evil.com", wantStatus: http.StatusOK},
		{name: "no origin", method: http.MethodGet, wantStatus: http.StatusOK},
		{name: "preflight allowed", method: http.MethodOptions, origin: "http://localhost:5173", preflight: true, wantStatus: http.StatusNoContent, wantOrigin: "http://localhost:5173"},
		{name: "preflight rejected", method: http.MethodOptions, origin: "https://evil.com", preflight: true, wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/books", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Contains(t, w.Header().Values("Vary"), "Origin")

			if tt.wantOrigin == "" {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
				return
			}
			assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
			if tt.preflight {
				assert.Equal(t, "Content-Type, Authorization", w.Header().Get("Access-Control-Allow-Headers"))
				assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
				assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "DELETE")
			}
		})
	}
}

func TestCORS_WildcardWithoutCredentials(t *testing.T) {
	handler := CORS(CORSConfig{AllowOrigins: []string{"*"}})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_WildcardIgnoredWithCredentials(t *testing.T) {
	handler := CORS(CORSConfig{AllowOrigins: []string{"*"}, AllowCredentials: true})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	handler := Wrap(panicking, InjectLogger(zap.New(core)), Recovery())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body errorBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, http.StatusInternalServerError, body.Code)
	assert.NotContains(t, body.Message, "boom")
	assert.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
}

func TestRecovery_AbortHandler(t *testing.T) {
	handler := Recovery()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		reuse    bool
	}{
		{name: "generated when absent"},
		{name: "reused when valid", incoming: "abc-123", reuse: true},
		{name: "replaced when too long", incoming: strings.Repeat("x", 129)},
		{name: "replaced when not printable", incoming: "bad\x01id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				seen = RequestIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			require.NotEmpty(t, seen)
			assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
			if tt.reuse {
				assert.Equal(t, tt.incoming, seen)
			} else {
				assert.NotEqual(t, tt.incoming, seen)
			}
		})
	}
}

func TestLogRequests(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	r := chi.NewRouter()
	r.Use(RequestID(), InjectLogger(zap.New(core)), LogRequests())
	r.Get("/api/books/{id}", func(w http.ResponseWriter, r *http.Request) {
		zctx.From(r.Context()).Info("Handling")
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/books/42", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("Request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	assert.Equal(t, "/api/books/{id}", fields["route"])
	assert.Equal(t, int64(http.StatusNotFound), fields["status"])
	assert.Equal(t, "req-1", fields["request_id"])

	handling := logs.FilterMessage("Handling").All()
	require.Len(t, handling, 1)
	assert.Equal(t, "req-1", handling[0].ContextMap()["request_id"])
}
