package httputil

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the address the request originated from. With
// trustProxy set, the leftmost X-Forwarded-For hop or X-Real-IP is used
// when it parses as an IP; otherwise the host part of RemoteAddr.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := forwardedIP(r.Header); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func forwardedIP(h http.Header) string {
	if xff := h.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return ip
		}
	}
	if ip := strings.TrimSpace(h.Get("X-Real-IP")); net.ParseIP(ip) != nil {
		return ip
	}
	return ""
}
