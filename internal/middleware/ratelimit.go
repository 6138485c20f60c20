package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/soaringjerry/gradtrack/internal/services"
)

const rateLimitScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
if current > tonumber(ARGV[2]) then
  return 0
end
return 1
`

// RedisLimiter is a fixed-window counter shared by every server instance. A nil
// limiter, or one whose Redis call fails, allows everything.
type RedisLimiter struct {
	client *redis.Client
	script *redis.Script
	prefix string
}

func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	if client == nil {
		return nil
	}
	if prefix == "" {
		prefix = "gradtrack"
	}
	return &RedisLimiter{client: client, script: redis.NewScript(rateLimitScript), prefix: prefix}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) bool {
	if l == nil || l.client == nil {
		return true
	}
	if key == "" || limit <= 0 || window <= 0 {
		return true
	}
	ttl := window.Milliseconds()
	if ttl <= 0 {
		ttl = 1
	}
	ctx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
	defer cancel()
	allowed, err := l.script.Run(ctx, l.client, []string{l.prefix + ":rl:" + key}, ttl, limit).Int64()
	if err != nil {
		return true
	}
	return allowed == 1
}

// RateLimit rejects a client after limit requests per window with 429. Clients are
// keyed by address; see TrustedProxies.ClientIP.
func RateLimit(l *RedisLimiter, scope string, limit int, window time.Duration, proxies TrustedProxies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(r.Context(), scope+":"+proxies.ClientIP(r), limit, window) {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				writeError(w, r, http.StatusTooManyRequests,
					services.NewKeyedError(services.ErrorTooManyRequests, "login.rate_limited"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// TrustedProxies lists the networks whose X-Forwarded-For header is believed. With
// none configured the header is ignored and the peer address is used.
type TrustedProxies []*net.IPNet

// ParseTrustedProxies accepts plain addresses and CIDR blocks.
func ParseTrustedProxies(entries []string) (TrustedProxies, error) {
	var out TrustedProxies
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if !strings.Contains(e, "/") {
			ip := net.ParseIP(e)
			if ip == nil {
				return nil, fmt.Errorf("trusted proxy %q is not an address", e)
			}
			bits := 8 * net.IPv6len
			if ip4 := ip.To4(); ip4 != nil {
				ip, bits = ip4, 8*net.IPv4len
			}
			out = append(out, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(e)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func (p TrustedProxies) trusts(addr string) bool {
	ip := net.ParseIP(strings.TrimSpace(addr))
	if ip == nil {
		return false
	}
	for _, n := range p {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP returns the peer address, or, when the peer is a trusted proxy, the nearest
// X-Forwarded-For hop that is not itself trusted.
func (p TrustedProxies) ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if len(p) == 0 || !p.trusts(host) {
		return host
	}
	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !p.trusts(hop) {
			return hop
		}
		host = hop
	}
	return host
}
