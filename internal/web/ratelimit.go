package web

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// clientLimiter holds one token bucket per client IP.
type clientLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   rate.Limit
	burst   int
	idle    time.Duration
	now     func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newClientLimiter allows perMinute requests per client with the given burst.
func newClientLimiter(perMinute, burst int) *clientLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &clientLimiter{
		clients: make(map[string]*client),
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   burst,
		idle:    10 * time.Minute,
		now:     time.Now,
	}
}

func (cl *clientLimiter) allow(ip string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	now := cl.now()
	c, ok := cl.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(cl.limit, cl.burst)}
		cl.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// sweep forgets clients idle for longer than the idle window.
func (cl *clientLimiter) sweep() {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	cutoff := cl.now().Add(-cl.idle)
	for ip, c := range cl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(cl.clients, ip)
		}
	}
}

// run sweeps periodically until done is closed.
func (cl *clientLimiter) run(done <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			cl.sweep()
		}
	}
}

// middleware rejects clients over their rate with 429. RemoteAddr has
// already been rewritten by TrustedRealIP.
func (cl *clientLimiter) middleware(onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr
			if host, _, err := net.SplitHostPort(ip); err == nil {
				ip = host
			}

			if !cl.allow(ip) {
				retry := time.Duration(float64(time.Second) / float64(cl.limit))
				w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
				onLimit(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
