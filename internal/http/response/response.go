// Package response provides the JSON envelope written by page routes and guards.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/talkboard/talkboard-web/internal/errors"
)

// StateLoading is the envelope state of a placeholder response.
const StateLoading = "loading"

// Envelope provides a consistent JSON response structure.
type Envelope struct {
	Data     any    `json:"data,omitempty"`
	Error    string `json:"error,omitempty"`
	Code     string `json:"code,omitempty"`
	Details  any    `json:"details,omitempty"`
	Message  string `json:"message,omitempty"`
	State    string `json:"state,omitempty"`
	Redirect string `json:"redirect,omitempty"`
	Success  bool   `json:"success"`
}

// Write writes env with the given status code.
func Write(w http.ResponseWriter, status int, env Envelope, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(env); err != nil && logger != nil {
		logger.Error("Failed to encode JSON response", "error", err)
	}
}

// JSON writes data in a success or failure envelope depending on status.
func JSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	Write(w, status, Envelope{Success: status < 400, Data: data}, logger)
}

// Success writes a successful JSON response (200 OK).
func Success(w http.ResponseWriter, data any, logger *slog.Logger) {
	JSON(w, http.StatusOK, data, logger)
}

// Error writes an error response with the given status code.
func Error(w http.ResponseWriter, status int, message string, logger *slog.Logger) {
	Write(w, status, Envelope{Error: message}, logger)
}

// NotFound writes a 404 Not Found response.
func NotFound(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusNotFound, message, logger)
}

// Loading writes the placeholder a guard returns while the session or role is
// still being resolved. Clients retry after the Retry-After delay.
func Loading(w http.ResponseWriter, logger *slog.Logger) {
	w.Header().Set("Retry-After", "1")
	w.Header().Set("Cache-Control", "no-store")
	Write(w, http.StatusAccepted, Envelope{State: StateLoading}, logger)
}

// Redirect sends the browser to location with 303 See Other.
func Redirect(w http.ResponseWriter, r *http.Request, location string) {
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// HandleError writes an appropriate HTTP response based on the error type.
// Coded errors keep their code, message and details; unknown errors become 500.
func HandleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var appErr *errors.Error
	if errors.As(err, &appErr) {
		Write(w, appErr.HTTPStatus(), Envelope{
			Error:   appErr.Message,
			Code:    string(appErr.Code),
			Details: appErr.Details,
		}, logger)
		return
	}

	if logger != nil {
		logger.Error("Unhandled error", "error", err)
	}
	Write(w, http.StatusInternalServerError, Envelope{
		Error: "Something went wrong. Please try again.",
		Code:  string(errors.CodeInternal),
	}, logger)
}
