package api

import (
	"net"
	"net/http"
	"strings"
	"sync"

	"schoollend/internal/config"

	"golang.org/x/time/rate"
)

const clientKeyUnknown = "unknown"

// rateLimiter держит отдельный token bucket на каждого клиента.
type rateLimiter struct {
	limiters sync.Map
	cfg      config.APIRateLimitConfig
	proxies  []*net.IPNet
}

// newRateLimiter expects a validated config; unparsable proxies are ignored.
func newRateLimiter(cfg config.APIRateLimitConfig) *rateLimiter {
	proxies, _ := cfg.ProxyNets()
	return &rateLimiter{
		cfg:     cfg,
		proxies: proxies,
	}
}

func (l *rateLimiter) enabled() bool {
	return l != nil && l.cfg.RPS > 0
}

// allow reports whether key may proceed; a non-positive RPS disables limiting.
func (l *rateLimiter) allow(key string) bool {
	if !l.enabled() {
		return true
	}
	return l.getLimiter(key).Allow()
}

func (l *rateLimiter) getLimiter(key string) *rate.Limiter {
	if v, ok := l.limiters.Load(key); ok {
		if lim, ok := v.(*rate.Limiter); ok {
			return lim
		}
	}

	burst := l.cfg.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(l.cfg.RPS), burst)
	actual, loaded := l.limiters.LoadOrStore(key, lim)
	if loaded {
		if actualLim, ok := actual.(*rate.Limiter); ok {
			return actualLim
		}
	}
	return lim
}

func (l *rateLimiter) trusted(ip net.IP) bool {
	if l == nil || ip == nil {
		return false
	}
	for _, n := range l.proxies {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// clientIP keys HTTP limits by the caller address. X-Forwarded-For is read
// only when the direct peer is a trusted proxy: the rightmost untrusted hop wins.
func (l *rateLimiter) clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return clientKeyUnknown
	}
	if !l.trusted(net.ParseIP(host)) {
		return host
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		ip := net.ParseIP(hop)
		if ip == nil {
			break
		}
		if !l.trusted(ip) {
			return ip.String()
		}
	}
	return host
}
