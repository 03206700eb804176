// Package http holds the relay's shared HTTP plumbing: client IP and request
// ID middleware, the login rate limiter and JSON response helpers.
package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/rs/zerolog"
)

type contextKey string

const clientIPContextKey contextKey = "client_ip"

// TrustedProxies lists the networks whose X-Forwarded-For and X-Real-IP
// headers are believed. Requests from anywhere else are keyed on RemoteAddr.
type TrustedProxies []netip.Prefix

// ParseTrustedProxies parses CIDRs; a bare address is taken as a single host.
func ParseTrustedProxies(cidrs []string) (TrustedProxies, error) {
	proxies := make(TrustedProxies, 0, len(cidrs))
	for _, cidr := range cidrs {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}

		if !strings.Contains(cidr, "/") {
			addr, err := netip.ParseAddr(cidr)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", cidr, err)
			}
			proxies = append(proxies, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
			continue
		}

		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", cidr, err)
		}
		proxies = append(proxies, prefix.Masked())
	}
	return proxies, nil
}

// Contains reports whether ip belongs to a trusted proxy network.
func (tp TrustedProxies) Contains(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()

	for _, prefix := range tp {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// ExtractClientIP returns the client address for r. Forwarding headers are
// only consulted when the peer is a trusted proxy; X-Forwarded-For is then
// walked from the right, skipping trusted hops, so a client cannot pick its
// own address by prepending entries.
func ExtractClientIP(r *http.Request, trusted TrustedProxies) string {
	peer := remoteHost(r.RemoteAddr)
	if !trusted.Contains(peer) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if _, err := netip.ParseAddr(hop); err != nil {
				break
			}
			if i == 0 || !trusted.Contains(hop) {
				return hop
			}
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if _, err := netip.ParseAddr(xri); err == nil {
			return xri
		}
	}

	return peer
}

func remoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// ClientIPFromContext extracts the client IP from the request context.
// This should be called from handlers wrapped by ClientIPMiddleware.
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPContextKey).(string)
	return ip
}

// ClientIPMiddleware stores the client IP in the request context and adds it
// to the request's zerolog context. The IP keys the login rate limiter.
func ClientIPMiddleware(trusted TrustedProxies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ExtractClientIP(r, trusted)
			ctx := context.WithValue(r.Context(), clientIPContextKey, ip)

			logger := zerolog.Ctx(ctx).With().Str("client_ip", ip).Logger()
			next.ServeHTTP(w, r.WithContext(logger.WithContext(ctx)))
		})
	}
}
