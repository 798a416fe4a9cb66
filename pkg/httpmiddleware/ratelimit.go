package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the sliding window rate limiter.
type RateLimitConfig struct {
	// Max requests per key per Window.
	Max    int
	Window time.Duration
	// KeyFunc identifies the client. Defaults to ClientIP, or to
	// ForwardedClientIP when TrustProxy is set.
	KeyFunc func(*http.Request) string
	// TrustProxy keys clients by the address the fronting proxy appended to
	// X-Forwarded-For. Leave it off when the server is reachable directly:
	// the header is client-controlled.
	TrustProxy bool
}

// window counts requests in the current fixed window and remembers the
// previous one so the limit can be evaluated over a sliding window.
type window struct {
	start     time.Time
	count     float64
	prevCount float64
}

type limiter struct {
	max    int
	size   time.Duration
	keyFor func(*http.Request) string
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

func newLimiter(cfg RateLimitConfig) *limiter {
	keyFor := cfg.KeyFunc
	switch {
	case keyFor != nil:
	case cfg.TrustProxy:
		keyFor = ForwardedClientIP
	default:
		keyFor = ClientIP
	}
	return &limiter{
		max:     cfg.Max,
		size:    cfg.Window,
		keyFor:  keyFor,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

// take records a request for key if it fits the limit. It reports the
// remaining budget and when the current window ends.
func (l *limiter) take(key string) (remaining int, reset time.Time, ok bool) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, found := l.windows[key]
	if !found {
		w = &window{start: now.Truncate(l.size)}
		l.windows[key] = w
	}
	if elapsed := now.Sub(w.start); elapsed >= l.size {
		if elapsed >= 2*l.size {
			w.prevCount = 0
		} else {
			w.prevCount = w.count
		}
		w.count = 0
		w.start = now.Truncate(l.size)
	}

	// Weight the previous window by how much of it the sliding window still
	// covers.
	weight := 1 - now.Sub(w.start).Seconds()/l.size.Seconds()
	used := w.prevCount*math.Max(weight, 0) + w.count
	reset = w.start.Add(l.size)

	if used >= float64(l.max) {
		return 0, reset, false
	}
	w.count++
	return max(int(float64(l.max)-used-1), 0), reset, true
}

// evict drops keys idle for two full windows.
func (l *limiter) evict() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, w := range l.windows {
		if now.Sub(w.start) >= 2*l.size {
			delete(l.windows, key)
		}
	}
}

func (l *limiter) middleware(next http.Handler) http.Handler {
	limit := strconv.Itoa(l.max)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remaining, reset, ok := l.take(l.keyFor(r))

		h := w.Header()
		h.Set("X-RateLimit-Limit", limit)
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if !ok {
			retry := max(reset.Sub(l.now()), 0)
			h.Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			writeError(w, http.StatusTooManyRequests, "too many requests, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit enforces a per-client sliding window limit and answers 429 with
// the JSON error envelope once it is exceeded. Idle keys are never evicted;
// use RateLimitWithCleanup for long-running servers.
func RateLimit(cfg RateLimitConfig) Middleware {
	return newLimiter(cfg).middleware
}

// RateLimitWithCleanup is RateLimit plus a goroutine that evicts idle keys
// every two windows until ctx is done.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := newLimiter(cfg)
	go func() {
		ticker := time.NewTicker(2 * l.size)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.evict()
			}
		}
	}()
	return l.middleware
}

// ClientIP returns the host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ForwardedClientIP returns the last X-Forwarded-For hop, then X-Real-IP,
// then ClientIP. Only the last hop is written by the fronting proxy; earlier
// hops come from the client and may be forged.
func ForwardedClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		if last := strings.TrimSpace(hops[len(hops)-1]); last != "" {
			return last
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return ClientIP(r)
}
