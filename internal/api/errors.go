package api

import (
	"encoding/json"
	"net/http"
)

// maxBodySize caps request bodies (1 MB). Recording payloads are tiny; the
// only large field callers send is the prompt, which has its own tighter cap
// in the recommend handler.
const maxBodySize = 1 << 20

// apiError is the detail carried inside every error envelope. Clients switch
// on Code; Message is for humans.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

// writeError writes the standard JSON error envelope.
func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, errorEnvelope{Error: apiError{Code: code, Message: message}})
}

// writeJSON writes data as JSON with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// readJSON decodes the request body into v, enforcing maxBodySize.
func readJSON(r *http.Request, v interface{}) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodySize)
	return json.NewDecoder(body).Decode(v)
}
