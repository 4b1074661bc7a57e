package handlers

import (
	"encoding/json"
	"net/http"
)

// writeError emits the JSON error body every endpoint shares.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
