package api

import "net/http"

// wellKnownManifest is the static JSON manifest for /.well-known/morel.json.
const wellKnownManifest = `{
  "name": "Morel",
  "description": "AI model routing and usage accounting for mycology research",
  "version": "0.1.0",
  "api_base": "/api/v1",
  "auth": {
    "type": "bearer",
    "header": "Authorization"
  },
  "endpoints": {
    "recommend": "/api/v1/recommend",
    "models": "/api/v1/models",
    "usage": "/api/v1/usage",
    "usage_summary": "/api/v1/usage/summary",
    "usage_export": "/api/v1/usage/export"
  },
  "health": "/health"
}`

// WellKnownHandler returns the static Morel well-known manifest.
func WellKnownHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(wellKnownManifest))
}
