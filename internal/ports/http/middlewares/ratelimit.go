package middlewares

import (
	"math"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/pkg/httpx"
)

const (
	DefaultRateLimit = rate.Limit(1)
	DefaultBurst     = 5

	limiterIdleTTL = 10 * time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP.
// Buckets idle for longer than limiterIdleTTL are dropped on the next sweep.
type RateLimiter struct {
	rps        rate.Limit
	burst      int
	errhandler *httpx.ErrorHandler
	now        func() time.Time

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
}

type RateLimiterArgs struct {
	RPS        float64
	Burst      int
	Errhandler *httpx.ErrorHandler
	Now        func() time.Time
}

func NewRateLimiter(args RateLimiterArgs) *RateLimiter {
	rl := &RateLimiter{
		rps:        rate.Limit(args.RPS),
		burst:      args.Burst,
		errhandler: args.Errhandler,
		now:        args.Now,
		visitors:   make(map[string]*visitor),
	}
	if args.RPS <= 0 {
		rl.rps = DefaultRateLimit
	}
	if rl.burst <= 0 {
		rl.burst = DefaultBurst
	}
	if rl.errhandler == nil {
		rl.errhandler = httpx.NewErrorHandler()
	}
	if rl.now == nil {
		rl.now = time.Now
	}
	rl.lastSweep = rl.now()

	return rl
}

func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "RateLimiter.Limit")
		if wait := rl.reserve(httpx.ClientIP(r)); wait > 0 {
			retryAfter := int(math.Ceil(wait.Seconds()))
			rl.errhandler.HandleError(w, r, span, errorx.NewRateLimitExceededWithRetry(retryAfter), "rate limit exceeded")
			span.End()
			return
		}
		span.End()

		next.ServeHTTP(w, r)
	})
}

// reserve takes a token for ip. It returns how long the caller would have to
// wait, or zero when the request may proceed.
func (rl *RateLimiter) reserve(ip string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now

	res := v.limiter.ReserveN(now, 1)
	if !res.OK() {
		return time.Duration(math.MaxInt64)
	}
	delay := res.DelayFrom(now)
	if delay > 0 {
		res.CancelAt(now)
	}
	return delay
}

func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < limiterIdleTTL {
		return
	}
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > limiterIdleTTL {
			delete(rl.visitors, ip)
		}
	}
	rl.lastSweep = now
}
