package middleware

import (
	"net"
	"net/http"
	"strings"
)

// KeyFunc extracts the client identifier from a request. An empty result rejects the
// request with 400.
type KeyFunc func(r *http.Request) string

// KeyByRemoteAddr uses the host part of r.RemoteAddr.
func KeyByRemoteAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

// KeyByForwardedFor uses the left-most X-Forwarded-For entry, then X-Real-IP, then the
// remote address. Only use it behind a proxy that overwrites these headers.
func KeyByForwardedFor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return KeyByRemoteAddr(r)
}
