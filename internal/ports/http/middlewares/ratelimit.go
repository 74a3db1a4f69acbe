package middlewares

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleSweep = 5 * time.Minute

type RateLimitArgs struct {
	// Requests per Window for one client IP. Zero disables limiting.
	Requests int
	Window   time.Duration
	// Burst defaults to Requests.
	Burst int
	// Reject writes the response for a limited request.
	Reject http.HandlerFunc
}

type ipLimiters struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	limit     rate.Limit
	burst     int
	lastSweep time.Time
}

func (l *ipLimiters) get(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= limiterIdleSweep {
		// a full bucket has been idle long enough to forget
		for k, lim := range l.limiters {
			if lim.TokensAt(now) >= float64(l.burst) {
				delete(l.limiters, k)
			}
		}
		l.lastSweep = now
	}

	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}
	return lim
}

// RateLimit throttles requests per client IP with a token bucket. Put it
// after middleware.RealIP so proxied clients are told apart.
func RateLimit(args RateLimitArgs) func(http.Handler) http.Handler {
	if args.Requests <= 0 || args.Window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if args.Burst <= 0 {
		args.Burst = args.Requests
	}
	if args.Reject == nil {
		args.Reject = func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}
	}

	limiters := &ipLimiters{
		limiters:  make(map[string]*rate.Limiter),
		limit:     rate.Limit(float64(args.Requests) / args.Window.Seconds()),
		burst:     args.Burst,
		lastSweep: time.Now(),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			lim := limiters.get(clientIP(r), now)
			if !lim.AllowN(now, 1) {
				wait := (1 - lim.TokensAt(now)) / float64(limiters.limit)
				w.Header().Set("Retry-After", strconv.Itoa(max(int(math.Ceil(wait)), 1)))
				args.Reject(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
