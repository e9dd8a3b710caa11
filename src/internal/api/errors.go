package api

import (
	"encoding/json"
	"net/http"
)

// ErrorCode is the machine-readable error kind of an API response.
type ErrorCode string

const (
	ErrCodeNotFound      ErrorCode = "not_found"
	ErrCodeForbidden     ErrorCode = "forbidden"
	ErrCodeInternalError ErrorCode = "internal_error"
)

// APIError is the body of a failed request.
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Status  int       `json:"status"`
}

// ErrorResponse wraps an APIError for JSON responses.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: APIError{Code: code, Message: message, Status: status}})
}

// WriteNotFound writes a 404 for path.
func WriteNotFound(w http.ResponseWriter, path string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, path+" not found")
}

// WriteForbidden writes a 403.
func WriteForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

// WriteInternalError writes a 500.
func WriteInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternalError, message)
}
