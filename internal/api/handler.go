// Package api provides HTTP handlers for the Virtual HR API.
package api

import (
	"encoding/json"
	"net/http"
)

// ServiceName and ServiceVersion identify the API on the root endpoint.
const (
	ServiceName    = "virtual-hr"
	ServiceVersion = "1.0.0"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// Root returns basic service information.
func Root(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]string{
		"service": ServiceName,
		"version": ServiceVersion,
		"status":  "running",
	})
}
