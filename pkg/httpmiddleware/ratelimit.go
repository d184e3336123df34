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

	"github.com/go-faster/jx"
)

// RateLimitConfig configures the per-client sliding window limiter.
type RateLimitConfig struct {
	// Max is the number of requests a client may make per window. Zero
	// disables limiting.
	Max int
	// Window is the length of the sliding window.
	Window time.Duration
	// KeyFunc identifies the client of a request. Defaults to ClientIP.
	KeyFunc func(*http.Request) string
}

// counter holds the request counts of a client over the current and the
// previous window.
type counter struct {
	prev      float64
	curr      float64
	currStart time.Time
}

type limiter struct {
	cfg RateLimitConfig

	mu      sync.Mutex
	clients map[string]*counter
}

func newLimiter(cfg RateLimitConfig) *limiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientIP
	}
	return &limiter{
		cfg:     cfg,
		clients: make(map[string]*counter),
	}
}

// take records a request of client at now. It returns the requests left in
// the window, the time the window resets and whether the request fits.
func (l *limiter) take(client string, now time.Time) (left int, reset time.Time, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, found := l.clients[client]
	if !found {
		c = &counter{currStart: now.Truncate(l.cfg.Window)}
		l.clients[client] = c
	}

	if elapsed := now.Sub(c.currStart); elapsed >= l.cfg.Window {
		// A gap of two windows or more forgets the previous count.
		if elapsed >= 2*l.cfg.Window {
			c.prev = 0
		} else {
			c.prev = c.curr
		}
		c.curr = 0
		c.currStart = now.Truncate(l.cfg.Window)
	}

	// The previous window counts in proportion to its overlap with the
	// sliding window ending now.
	overlap := 1 - now.Sub(c.currStart).Seconds()/l.cfg.Window.Seconds()
	overlap = max(overlap, 0)
	used := c.prev*overlap + c.curr
	reset = c.currStart.Add(l.cfg.Window)

	if used >= float64(l.cfg.Max) {
		return 0, reset, false
	}
	c.curr++
	left = max(int(float64(l.cfg.Max)-used-1), 0)
	return left, reset, true
}

// evict drops clients idle for two windows.
func (l *limiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for client, c := range l.clients {
		if now.Sub(c.currStart) >= 2*l.cfg.Window {
			delete(l.clients, client)
		}
	}
}

// RateLimit returns a middleware limiting each client to cfg.Max requests
// per sliding cfg.Window. Rejected requests get 429 with a Retry-After
// header. Idle clients are evicted in the background until ctx is done.
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	if cfg.Max <= 0 || cfg.Window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	l := newLimiter(cfg)
	go func() {
		ticker := time.NewTicker(2 * cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				l.evict(now)
			}
		}
	}()

	limit := strconv.Itoa(cfg.Max)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			left, reset, ok := l.take(l.cfg.KeyFunc(r), time.Now())

			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(left))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			wait := max(time.Until(reset), 0)
			h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			h.Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)

			var e jx.Encoder
			e.ObjStart()
			e.FieldStart("code")
			e.Int(http.StatusTooManyRequests)
			e.FieldStart("message")
			e.Str("rate limit exceeded")
			e.ObjEnd()
			_, _ = w.Write(e.Bytes())
		})
	}
}

// ClientIP identifies a client by the first X-Forwarded-For address, then
// X-Real-IP, then the connection address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// HeaderOrIP identifies registers by the value of header, so several
// registers behind one NAT get separate budgets. Requests without the
// header fall back to ClientIP.
func HeaderOrIP(header string) func(*http.Request) string {
	return func(r *http.Request) string {
		if v := r.Header.Get(header); v != "" {
			return "key:" + v
		}
		return "ip:" + ClientIP(r)
	}
}
