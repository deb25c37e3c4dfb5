// Package cache holds verified quote results keyed by normalized query text
// and result count, so repeated questions are answered without running the
// retrieval and generation pipeline again.
package cache

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/54b3r/quoteseek/internal/verify"
)

// DefaultTTL is how long an entry is served when no TTL is configured.
const DefaultTTL = 30 * time.Minute

// entry is one cached result set and the time it was stored.
type entry struct {
	// createdAt is the time of the most recent Put for this key.
	createdAt time.Time
	// quotes is the verified result set.
	quotes []verify.Quote
}

// QueryCache is a mutex-guarded TTL cache. It has no capacity bound and
// performs no proactive sweep: expiry is checked lazily on read.
type QueryCache struct {
	// mu protects entries.
	mu sync.Mutex
	// entries maps Key(query, count) to its stored result.
	entries map[string]entry
	// ttl is the validity window of an entry.
	ttl time.Duration
	// now is the clock; replaced in tests.
	now func() time.Time
	// metrics counts lookups by outcome.
	metrics *cacheMetrics
}

// cacheMetrics holds the Prometheus metrics owned by the cache.
type cacheMetrics struct {
	// lookupsTotal counts Get calls, partitioned by result: "hit", "miss", "expired".
	lookupsTotal *prometheus.CounterVec
	// entries is the number of keys currently held, expired or not.
	entries prometheus.Gauge
}

func newCacheMetrics(reg prometheus.Registerer) *cacheMetrics {
	factory := promauto.With(reg)
	return &cacheMetrics{
		lookupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quoteseek",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Query cache lookups, partitioned by result.",
		}, []string{"result"}),
		entries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "quoteseek",
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Number of entries held by the query cache.",
		}),
	}
}

// New returns an empty cache. A ttl <= 0 selects DefaultTTL. Metrics are
// registered against reg; a nil reg uses a private registry.
func New(ttl time.Duration, reg prometheus.Registerer) *QueryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &QueryCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
		metrics: newCacheMetrics(reg),
	}
}

// Key derives the cache key for a query and result count. Surrounding and
// repeated whitespace are collapsed and letters are lower-cased, so trivially
// different spellings of the same question share an entry.
func Key(query string, count int) string {
	norm := strings.ToLower(strings.Join(strings.Fields(query), " "))
	return strconv.Itoa(count) + "\x00" + norm
}

// Get returns the quotes stored for (query, count) if present and unexpired.
func (c *QueryCache) Get(query string, count int) ([]verify.Quote, bool) {
	key := Key(query, count)

	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()

	switch {
	case !ok:
		c.metrics.lookupsTotal.WithLabelValues("miss").Inc()
		return nil, false
	case c.now().Sub(e.createdAt) >= c.ttl:
		c.metrics.lookupsTotal.WithLabelValues("expired").Inc()
		return nil, false
	}

	c.metrics.lookupsTotal.WithLabelValues("hit").Inc()
	return append([]verify.Quote(nil), e.quotes...), true
}

// Put stores quotes for (query, count), replacing any previous entry and
// resetting its timestamp.
func (c *QueryCache) Put(query string, count int, quotes []verify.Quote) {
	stored := append([]verify.Quote(nil), quotes...)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[Key(query, count)] = entry{createdAt: c.now(), quotes: stored}
	c.metrics.entries.Set(float64(len(c.entries)))
}

// Len returns the number of stored entries, including expired ones not yet
// overwritten.
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
