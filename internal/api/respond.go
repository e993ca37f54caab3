package api

import (
	"encoding/json"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

func writeErrorList(w http.ResponseWriter, status int, code string, messages, warnings []string) {
	writeJSON(w, status, ErrorResponse{Error: code, Messages: messages, Warnings: warnings})
}
