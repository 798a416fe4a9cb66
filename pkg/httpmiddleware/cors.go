package httpmiddleware

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	// AllowOrigins are matched case-insensitively. "*" allows every origin
	// unless AllowCredentials is set, in which case it is ignored.
	AllowOrigins []string
	// AllowOriginPatterns are matched against the raw Origin header, e.g.
	// per-branch preview deployments.
	AllowOriginPatterns []*regexp.Regexp
	// AllowMethods defaults to GET, POST, PUT, PATCH, DELETE, OPTIONS.
	AllowMethods []string
	// AllowHeaders, when empty, echoes Access-Control-Request-Headers.
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	// MaxAge in seconds; zero omits the header.
	MaxAge int
}

type originPolicy struct {
	any      bool
	exact    map[string]string // lowercase -> configured spelling
	patterns []*regexp.Regexp
}

func newOriginPolicy(cfg CORSConfig) originPolicy {
	p := originPolicy{
		exact:    make(map[string]string, len(cfg.AllowOrigins)),
		patterns: cfg.AllowOriginPatterns,
	}
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			p.any = !cfg.AllowCredentials
			continue
		}
		p.exact[strings.ToLower(o)] = o
	}
	return p
}

// allow returns the Access-Control-Allow-Origin value for origin, or "" if
// origin is rejected.
func (p originPolicy) allow(origin string) string {
	if p.any {
		return "*"
	}
	if o, ok := p.exact[strings.ToLower(origin)]; ok {
		return o
	}
	for _, re := range p.patterns {
		if re.MatchString(origin) {
			return origin
		}
	}
	return ""
}

// CORS handles preflight requests and decorates actual requests from allowed
// origins. Disallowed origins get no CORS headers; the browser then blocks
// the response.
func CORS(cfg CORSConfig) Middleware {
	policy := newOriginPolicy(cfg)

	methods := strings.Join(cfg.AllowMethods, ", ")
	if methods == "" {
		methods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	}
	headers := strings.Join(cfg.AllowHeaders, ", ")
	expose := strings.Join(cfg.ExposeHeaders, ", ")
	maxAge := ""
	if cfg.MaxAge > 0 {
		maxAge = strconv.Itoa(cfg.MaxAge)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if !policy.any {
				h.Add("Vary", "Origin")
			}

			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			allowed := policy.allow(origin)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Add("Vary", "Access-Control-Request-Method")
				h.Add("Vary", "Access-Control-Request-Headers")
				if allowed != "" {
					h.Set("Access-Control-Allow-Origin", allowed)
					h.Set("Access-Control-Allow-Methods", methods)
					switch {
					case headers != "":
						h.Set("Access-Control-Allow-Headers", headers)
					case r.Header.Get("Access-Control-Request-Headers") != "":
						h.Set("Access-Control-Allow-Headers", r.Header.Get("Access-Control-Request-Headers"))
					}
					if cfg.AllowCredentials {
						h.Set("Access-Control-Allow-Credentials", "true")
					}
					if maxAge != "" {
						h.Set("Access-Control-Max-Age", maxAge)
					}
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if allowed != "" {
				h.Set("Access-Control-Allow-Origin", allowed)
				if cfg.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				if expose != "" {
					h.Set("Access-Control-Expose-Headers", expose)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
