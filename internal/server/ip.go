package server

import (
	"net"
	"net/http"
	"strings"
)

// ------------------------------------------------------------
// Remote address for request logs.
//
// Push deliveries reach the relay through the platform's front end,
// which appends the caller to X-Forwarded-For. RemoteAddr is then the
// proxy, so the header is preferred. The value is only logged; nothing
// is authorized on it.
// ------------------------------------------------------------

// isPublicIP reports whether ip is routable (not private, loopback or
// link-local).
func isPublicIP(ip net.IP) bool {
	if ip == nil {
		return false
	}
	if ip.IsPrivate() {
		return false
	}
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return false
	}
	return true
}

func safeParseIP(s string) net.IP {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return net.ParseIP(s)
}

// remoteIP
//
// Priority:
//  1. first public address in X-Forwarded-For
//  2. RemoteAddr host, public or not (local runs, sidecars)
func remoteIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, part := range strings.Split(xff, ",") {
			if ip := safeParseIP(part); isPublicIP(ip) {
				return ip.String()
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	if ip := safeParseIP(host); ip != nil {
		return ip.String()
	}
	return host
}
