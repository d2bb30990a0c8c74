package gate

import (
	"net"
	"net/http"
	"strings"
)

// ClientAddr extracts the client network address for binding and rate
// limiting. With trusted proxy headers, the first X-Forwarded-For entry
// (the original client) wins; otherwise RemoteAddr with the port stripped.
func ClientAddr(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			if ip := strings.TrimSpace(parts[0]); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

// requestIsHTTPS reports whether the client connection is HTTPS, either
// directly or via a trusted X-Forwarded-Proto.
func requestIsHTTPS(r *http.Request, trustProxy bool) bool {
	if r.TLS != nil {
		return true
	}
	if trustProxy && strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return true
	}
	return false
}
