package api

import (
	"log/slog"
	"net/http"
)

// Catalog mutations are the only writes morel accepts over the admin
// surface, so each one leaves an audit line tying the change to the caller.
func auditLog(r *http.Request, action, resourceType, resourceID string, detail ...any) {
	attrs := append([]any{
		"action", action,
		"resource_type", resourceType,
		"resource_id", resourceID,
		"ip", clientIP(r),
		"request_id", RequestIDFromContext(r.Context()),
	}, detail...)
	slog.Info("audit", attrs...)
}

// clientIP prefers the proxy-supplied forwarding header, falling back to the
// socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}
