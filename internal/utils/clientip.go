package utils

import (
	"net/http"
	"strings"
)

// ClientIP derives the caller address from proxy headers in priority order:
// first X-Forwarded-For entry, CF-Connecting-IP, X-Real-IP, then "unknown".
func ClientIP(h http.Header) string {
	if fwd := h.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
	}
	if ip := strings.TrimSpace(h.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if ip := strings.TrimSpace(h.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return "unknown"
}
