package server

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the error object in every non-2xx response
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps the error body
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error codes
const (
	CodeInvalidInput = "invalid_input"
	CodeInvalidLevel = "invalid_level"
	CodeNotFound     = "not_found"
	CodeUpstream     = "upstream_unavailable"
	CodeCancelled    = "cancelled"
	CodeInternal     = "internal"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       r.URL.Path,
		"method":     r.Method,
		"request_id": RequestIDFromContext(r.Context()),
	}
	if status >= 500 {
		s.logger.Error("http.error", fields)
	} else {
		s.logger.Warn("http.error", fields)
	}
	writeJSON(w, status, ErrorResponse{Error: ErrorBody{Code: code, Message: message}})
}
