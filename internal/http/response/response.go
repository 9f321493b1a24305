// Package response provides standardized HTTP response formatting and error handling utilities.
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	domainerrors "github.com/devoverflow/overflow-server/internal/errors"
	"github.com/devoverflow/overflow-server/internal/store"
)

// Version is the envelope format version sent as "v".
const Version = 1

// Envelope wraps every successful response body.
type Envelope struct {
	Version int  `json:"v"`
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

// ErrorEnvelope wraps every error response body.
type ErrorEnvelope struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON writes a success envelope with the given status code.
func JSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	write(w, status, Envelope{Version: Version, Success: true, Data: data}, logger)
}

// Success writes a successful JSON response (200 OK).
func Success(w http.ResponseWriter, data any, logger *slog.Logger) {
	JSON(w, http.StatusOK, data, logger)
}

// Error writes an error envelope.
func Error(w http.ResponseWriter, status int, code domainerrors.Code, message string, logger *slog.Logger) {
	write(w, status, ErrorEnvelope{Version: Version, Code: string(code), Message: message}, logger)
}

// Unauthorized writes a 401 Unauthorized response.
func Unauthorized(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusUnauthorized, domainerrors.CodeUnauthorized, message, logger)
}

// MethodNotAllowed writes a 405 response.
func MethodNotAllowed(w http.ResponseWriter, logger *slog.Logger) {
	Error(w, http.StatusMethodNotAllowed, domainerrors.CodeValidation, "method not allowed", logger)
}

// FromError maps any error returned by a service to the domain error sent
// to clients. Batch failures are mapped by class: constraint to CONSTRAINT,
// referential to NOT_FOUND, transport to UNAVAILABLE. Anything unrecognized
// becomes INTERNAL with a generic message.
func FromError(err error) *domainerrors.Error {
	var de *domainerrors.Error
	if errors.As(err, &de) {
		return de
	}

	if kind, ok := store.FailureOf(err); ok {
		switch kind {
		case store.FailureConstraint:
			return domainerrors.Constraint("the change conflicts with existing data")
		case store.FailureReferential:
			return domainerrors.NotFound("a referenced record does not exist")
		default:
			return domainerrors.Unavailable("the store is unavailable, try again")
		}
	}

	if errors.Is(err, store.ErrNotFound) {
		return domainerrors.NotFound("not found")
	}

	return domainerrors.Internal("internal server error")
}

func write(w http.ResponseWriter, status int, body any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		if logger != nil {
			logger.Error("Failed to encode JSON response", "error", err)
		}
	}
}
