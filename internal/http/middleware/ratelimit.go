package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/gestaozabele/igreja/internal/http/render"
)

// RateLimiter mantém um token bucket por chave; chaves ociosas expiram.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	maxIdle time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(reqPerSec float64, burst int) *RateLimiter {
	return &RateLimiter{
		limit:   rate.Limit(reqPerSec),
		burst:   burst,
		maxIdle: 10 * time.Minute,
		buckets: make(map[string]*bucket),
	}
}

// Allow consome um token da chave.
func (l *RateLimiter) Allow(key string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		for k, old := range l.buckets {
			if now.Sub(old.lastSeen) > l.maxIdle {
				delete(l.buckets, k)
			}
		}
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

func (l *RateLimiter) middleware(key func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if k := key(r); k != "" && !l.Allow(k) {
				w.Header().Set("Retry-After", "1")
				render.Error(w, http.StatusTooManyRequests, "RATE_LIMIT", "limite de requisições excedido", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IPRateLimit limita por IP de origem (RealIP do chi já aplicado).
func IPRateLimit(l *RateLimiter) func(http.Handler) http.Handler {
	return l.middleware(func(r *http.Request) string {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return host
		}
		return r.RemoteAddr
	})
}

// UserRateLimit limita por usuário autenticado.
func UserRateLimit(l *RateLimiter) func(http.Handler) http.Handler {
	return l.middleware(func(r *http.Request) string {
		return GetSubject(r.Context())
	})
}
