package api

import (
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/talkboard/talkboard-web/internal/errors"
	"github.com/talkboard/talkboard-web/internal/guard"
	"github.com/talkboard/talkboard-web/internal/http/response"
)

// APIError is a custom error type that implements huma.StatusError.
// It renders domain errors in the same envelope the page routes use.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Success bool   `json:"success"`
	Message string `json:"error" doc:"Human-readable error message"`
	Code    string `json:"code" doc:"Machine-readable error code"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// RegisterErrorHandler configures huma to use domain errors.
// Call this before creating the huma.API.
func RegisterErrorHandler() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		for _, err := range errs {
			var domainErr *domainerrors.Error
			if domainerrors.As(err, &domainErr) {
				return withNavigation(&APIError{
					status:  domainErr.HTTPStatus(),
					Code:    string(domainErr.Code),
					Message: domainErr.Message,
					Details: domainErr.Details,
				})
			}
		}

		if status == http.StatusUnprocessableEntity && len(errs) > 0 {
			details := make([]string, 0, len(errs))
			for _, err := range errs {
				details = append(details, err.Error())
			}
			return &APIError{
				status:  http.StatusBadRequest,
				Code:    string(domainerrors.CodeValidation),
				Message: message,
				Details: strings.Join(details, "; "),
			}
		}

		return withNavigation(&APIError{
			status:  status,
			Code:    statusToCode(status),
			Message: message,
		})
	}
}

// withNavigation tells browser clients where to go after a 401 or 403.
// Errors that already carry details, such as the post limit, keep them.
func withNavigation(e *APIError) *APIError {
	if e.Details != nil {
		return e
	}
	switch e.status {
	case http.StatusUnauthorized:
		e.Details = map[string]string{"redirect": guard.SignInPath}
	case http.StatusForbidden:
		e.Details = map[string]string{"redirect": guard.ForbiddenPath}
	}
	return e
}

// statusToCode maps HTTP status codes to our domain error codes.
func statusToCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return string(domainerrors.CodeValidation)
	case http.StatusInternalServerError:
		return string(domainerrors.CodeInternal)
	default:
		return string(domainerrors.CodeForStatus(status))
	}
}

// EnvelopeTransformer wraps successful huma bodies in the response envelope.
// Error bodies are already shaped by APIError.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	if !strings.HasPrefix(status, "2") || v == nil {
		return v, nil
	}
	switch v.(type) {
	case response.Envelope, *response.Envelope, *APIError:
		return v, nil
	}
	return response.Envelope{Success: true, Data: v}, nil
}
