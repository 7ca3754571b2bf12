// Package httpx provides the JSON response envelope shared by all HTTP handlers.
package httpx

import (
	"encoding/json"
	"net/http"
	"time"
)

// Code is a stable numeric error code surfaced to API clients.
type Code int

// Error codes carried in the response envelope.
const (
	CodeSuccess            Code = 0
	CodeUnauthenticated    Code = 1001
	CodeInvalidCredentials Code = 1002
	CodeForbidden          Code = 1003
	CodeRateLimited        Code = 1029
	CodeValidation         Code = 4001
	CodeNotFound           Code = 4004
	CodeDuplicate          Code = 4009
	CodeInternal           Code = 5000
	CodeClassForbidden     Code = 5005
)

// Response is the envelope every API endpoint answers with.
type Response struct {
	Code      Code      `json:"code"`
	Message   string    `json:"message"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// JSON sends an arbitrary body with the given status code.
func JSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Success sends a 200 envelope wrapping data.
func Success(w http.ResponseWriter, data any, message string) {
	JSON(w, http.StatusOK, Response{
		Code:      CodeSuccess,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// Error sends an envelope carrying a stable numeric error code.
func Error(w http.ResponseWriter, status int, code Code, message string) {
	JSON(w, status, Response{
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

// DecodeJSON decodes a JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}
