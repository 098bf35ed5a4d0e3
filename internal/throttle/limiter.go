package throttle

import (
	"context"
	"sync"
	"time"

	"github.com/nimasrn/inquiry-desk/pkg/redis"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter caps how many submissions one client key may make per window.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Redis is a fixed-window counter shared by every API instance.
type Redis struct {
	adapter redis.RedisAdapter
	limit   int
	window  time.Duration
}

func NewRedis(adapter redis.RedisAdapter, limit int, window time.Duration) *Redis {
	return &Redis{adapter: adapter, limit: limit, window: window}
}

func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	n, ttl, err := r.adapter.IncrWindow(ctx, "throttle:"+key, r.window)
	if err != nil {
		return Decision{}, errors.Wrap(err, "throttle counter")
	}
	if n > int64(r.limit) {
		return Decision{Allowed: false, RetryAfter: ttl}, nil
	}
	return Decision{Allowed: true, Remaining: r.limit - int(n)}, nil
}

// Local is an in-process token bucket per key, used when no redis is configured.
type Local struct {
	mu      sync.Mutex
	every   rate.Limit
	burst   int
	window  time.Duration
	buckets map[string]*bucket
	swept   time.Time
	now     func() time.Time
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewLocal allows limit events per window with a burst of limit.
func NewLocal(limit int, window time.Duration) *Local {
	return &Local{
		every:   rate.Every(window / time.Duration(limit)),
		burst:   limit,
		window:  window,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (l *Local) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evict(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.every, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	r := b.lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Decision{Allowed: false, RetryAfter: delay}, nil
	}
	return Decision{Allowed: true, Remaining: int(b.lim.TokensAt(now))}, nil
}

// evict drops buckets idle for a full window; they would be full again anyway.
// It scans at most once per window.
func (l *Local) evict(now time.Time) {
	if now.Sub(l.swept) < l.window {
		return
	}
	l.swept = now
	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.window {
			delete(l.buckets, k)
		}
	}
}

// Nop never throttles.
type Nop struct{}

func (Nop) Allow(context.Context, string) (Decision, error) {
	return Decision{Allowed: true}, nil
}
