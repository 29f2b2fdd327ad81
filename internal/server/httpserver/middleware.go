package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/dailydiary/internal/common"
	"github.com/dmitrijs2005/dailydiary/internal/server/gateway"
	"github.com/dmitrijs2005/dailydiary/internal/server/models"
	"golang.org/x/time/rate"
)

type ctxKey string

const requestIDKey ctxKey = "requestID"

const requestIDHeader = "X-Request-ID"

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id, _ = common.MakeRandHexString(8)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func (s *Server) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				w.Header().Set("Connection", "close")
				s.serverError(w, r, fmt.Errorf("panic: %v", p))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authenticate binds the user id of a live session cookie to the request
// context. Requests without a valid session pass through unbound.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(s.cookieName)
		if err != nil || c.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := s.auth.ResolveSession(r.Context(), c.Value)
		switch {
		case err == nil:
			r = r.WithContext(gateway.WithUserID(r.Context(), userID))
		case errors.Is(err, common.ErrUnauthenticated):
			s.clearSessionCookie(w)
		default:
			s.serverError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// userHandler is a handler that needs the resolved current user.
type userHandler func(w http.ResponseWriter, r *http.Request, user *models.User)

func (s *Server) requireUser(h userHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.gateway.CurrentUser(r.Context())
		if err != nil {
			switch {
			case errors.Is(err, common.ErrUnauthenticated):
				writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Session expired. Please sign in again.")
			case errors.Is(err, common.ErrSessionInvalid):
				s.clearSessionCookie(w)
				writeError(w, http.StatusUnauthorized, "SESSION_INVALID", "User not found")
			default:
				s.serverError(w, r, err)
			}
			return
		}
		h(w, r, user)
	})
}

func (s *Server) limitLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.loginLimiter.allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many login attempts. Please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ipLimiter keeps one token bucket per client address. Buckets idle for
// longer than it takes them to refill are dropped.
type ipLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idle      time.Duration
	now       func() time.Time
	lastSweep time.Time
	limiters  map[string]*clientLimiter
}

type clientLimiter struct {
	lim  *rate.Limiter
	seen time.Time
}

// newIPLimiter allows perMinute requests per client with the given burst.
// A non-positive perMinute disables limiting.
func newIPLimiter(perMinute, burst int) *ipLimiter {
	if burst < 1 {
		burst = 1
	}
	l := &ipLimiter{
		limit:    rate.Inf,
		burst:    burst,
		idle:     time.Minute,
		now:      time.Now,
		limiters: map[string]*clientLimiter{},
	}
	if perMinute > 0 {
		every := time.Minute / time.Duration(perMinute)
		l.limit = rate.Every(every)
		l.idle = max(l.idle, every*time.Duration(burst))
	}
	return l
}

func (l *ipLimiter) allow(ip string) bool {
	if l.limit == rate.Inf {
		return true
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.idle {
		l.sweep(now)
	}
	c, ok := l.limiters[ip]
	if !ok {
		c = &clientLimiter{lim: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = c
	}
	c.seen = now
	return c.lim.AllowN(now, 1)
}

// sweep must be called with mu held.
func (l *ipLimiter) sweep(now time.Time) {
	for ip, c := range l.limiters {
		if now.Sub(c.seen) >= l.idle {
			delete(l.limiters, ip)
		}
	}
	l.lastSweep = now
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
