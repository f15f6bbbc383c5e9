package http

import (
	"net"
	"net/http"
	"strings"
)

// ParseTrustedProxies turns CIDR strings into networks, skipping invalid entries
func ParseTrustedProxies(cidrs []string) []*net.IPNet {
	networks := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, ipNet, err := net.ParseCIDR(strings.TrimSpace(cidr))
		if err != nil {
			continue
		}
		networks = append(networks, ipNet)
	}
	return networks
}

// ExtractClientIP returns the caller address used for rate limiting and audit logs.
// X-Forwarded-For and X-Real-IP are honoured only when the direct peer is a
// trusted proxy; otherwise RemoteAddr wins.
func ExtractClientIP(r *http.Request, trusted []*net.IPNet) string {
	remoteIP := remoteAddr(r)

	if !isTrusted(remoteIP, trusted) {
		return remoteIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, ip := range strings.Split(xff, ",") {
			ip = strings.TrimSpace(ip)
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}

	return remoteIP
}

func remoteAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}

func isTrusted(ip string, trusted []*net.IPNet) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, ipNet := range trusted {
		if ipNet.Contains(parsed) {
			return true
		}
	}
	return false
}
