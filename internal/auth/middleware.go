package auth

import (
	"encoding/json"
	"net/http"
	"strings"
)

// AdminAuthMiddleware returns middleware that authenticates requests against
// the configured bcrypt admin key hash. The plaintext key travels in the
// Authorization header as a bearer token. An empty hash disables the admin
// surface entirely.
//
// onFailure and onSuccess, when non-nil, are invoked for metrics.
func AdminAuthMiddleware(adminKeyHash string, onSuccess, onFailure func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKeyHash == "" {
				writeForbidden(w, "admin access is not configured")
				return
			}

			token := extractBearerToken(r)
			if token == "" {
				if onFailure != nil {
					onFailure()
				}
				writeUnauthorized(w, "missing or malformed authorization header")
				return
			}

			if !VerifyKey(adminKeyHash, token) {
				if onFailure != nil {
					onFailure()
				}
				writeUnauthorized(w, "invalid admin key")
				return
			}

			if onSuccess != nil {
				onSuccess()
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error: errorBody{
			Code:    "unauthorized",
			Message: message,
		},
	})
}

func writeForbidden(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error: errorBody{
			Code:    "forbidden",
			Message: message,
		},
	})
}
