package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/54b3r/quoteseek/internal/logging"
)

const (
	// defaultRateLimit is the sustained per-IP question rate (per second).
	defaultRateLimit = 10
	// defaultRateBurst is the per-IP burst of questions.
	defaultRateBurst = 20

	// queryRoute is the only route behind the limiter. Every accepted
	// question may cost a retrieval and several model calls.
	queryRoute = "/api/query"

	// limiterIdleTTL is how long an IP's bucket survives without traffic.
	limiterIdleTTL = 5 * time.Minute
	// limiterSweepInterval is how often idle buckets are dropped.
	limiterSweepInterval = time.Minute
)

// clientBucket is one IP's token bucket.
type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter throttles question submission per client IP so one caller
// cannot fill the job queue for everyone else.
type rateLimiter struct {
	// route labels log lines and the rejection counter.
	route string
	// retryAfter is the Retry-After value, in whole seconds, sent on 429.
	retryAfter string

	mu      sync.Mutex
	buckets map[string]*clientBucket
	rps     rate.Limit
	burst   int

	// rejected counts refused requests; may be nil.
	rejected prometheus.Counter
	log      *slog.Logger
}

// newRateLimiter returns a limiter for route and a stop function for its
// background sweep.
func newRateLimiter(route string, rps float64, burst int, rejected prometheus.Counter, log *slog.Logger) (*rateLimiter, func()) {
	retry := 1
	if rps > 0 && rps < 1 {
		retry = int(1/rps + 0.5)
	}
	rl := &rateLimiter{
		route:      route,
		retryAfter: strconv.Itoa(retry),
		buckets:    make(map[string]*clientBucket),
		rps:        rate.Limit(rps),
		burst:      burst,
		rejected:   rejected,
		log:        log,
	}

	done := make(chan struct{})
	go func() {
		t := time.NewTicker(limiterSweepInterval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case now := <-t.C:
				rl.sweep(now)
			}
		}
	}()
	return rl, func() { close(done) }
}

// allow takes a token from ip's bucket, creating the bucket on first use.
func (rl *rateLimiter) allow(ip string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[ip]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.buckets[ip] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// sweep drops buckets idle for longer than limiterIdleTTL.
func (rl *rateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, b := range rl.buckets {
		if now.Sub(b.lastSeen) > limiterIdleTTL {
			delete(rl.buckets, ip)
		}
	}
}

// middleware answers 429 with Retry-After once a client exceeds its budget.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if rl.allow(ip, time.Now()) {
			next.ServeHTTP(w, r)
			return
		}

		if rl.rejected != nil {
			rl.rejected.Inc()
		}
		logging.FromContext(r.Context()).Warn("server: question rate limited",
			slog.String("route", rl.route),
			slog.String("client_ip", ip),
		)
		w.Header().Set("Retry-After", rl.retryAfter)
		writeJSONError(w, "too many questions, slow down", http.StatusTooManyRequests)
	})
}

// clientIP returns the host part of RemoteAddr. X-Forwarded-For is ignored.
func clientIP(r *http.Request) string {
	addr := r.RemoteAddr
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i]
		}
	}
	return addr
}
