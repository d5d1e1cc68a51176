package auth

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"marquee/models"
)

// SessionCookie is the cookie carrying the session token for browser clients
const SessionCookie = "session_token"

type ctxKeyUser struct{}

// Resolver maps a session token to its user
type Resolver interface {
	Resolve(ctx context.Context, token string) (*models.User, error)
}

// TokenFromRequest reads the bearer token, falling back to the session cookie
func TokenFromRequest(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if len(authz) > 7 && strings.EqualFold(authz[:7], "bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// Gate resolves the caller and stores it in the request context. Requests
// without a valid session pass through with no caller attached. Any other
// resolve failure is handed to fail and the request stops there.
func Gate(resolver Resolver, fail http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := TokenFromRequest(r); token != "" {
				user, err := resolver.Resolve(r.Context(), token)
				switch {
				case err == nil:
					r = r.WithContext(WithUser(r.Context(), user))
				case !errors.Is(err, ErrNoSession):
					log.Error("Failed to resolve session", "err", err)
					fail(w, r)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithUser returns a copy of ctx carrying user
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, ctxKeyUser{}, user)
}

// UserFromContext returns the caller, or nil when the request is anonymous
func UserFromContext(ctx context.Context) *models.User {
	if u, ok := ctx.Value(ctxKeyUser{}).(*models.User); ok {
		return u
	}
	return nil
}

// UserID returns the caller's id, or "" when the request is anonymous
func UserID(ctx context.Context) string {
	if u := UserFromContext(ctx); u != nil {
		return u.ID
	}
	return ""
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per client address
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	now      func() time.Time
	mu       sync.Mutex
	visitors map[string]*visitor
}

// NewRateLimiter allows perSecond requests per client with the given burst
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		now:      time.Now,
		visitors: make(map[string]*visitor),
	}
}

// Allow reports whether a request from key may proceed
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = rl.now()
	rl.mu.Unlock()
	return v.limiter.Allow()
}

// Prune forgets clients not seen for longer than idle and returns how many
// were dropped. A forgotten client starts again with a full bucket.
func (rl *RateLimiter) Prune(idle time.Duration) int {
	cutoff := rl.now().Add(-idle)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	dropped := 0
	for key, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, key)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of tracked clients
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

// Middleware rejects requests over the limit by calling reject
func (rl *RateLimiter) Middleware(reject http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(clientAddr(r)) {
				log.Warn("Rate limit exceeded", "remote", clientAddr(r), "path", r.URL.Path)
				reject(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
