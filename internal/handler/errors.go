package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/pkordes/group-trips/internal/domain"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable machine-readable code plus a message for people.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// notFoundBody returns an ErrorResponse for a missing resource.
// The caller supplies the human-readable message (e.g. "trip not found")
// because the handler is the layer that knows what was being looked up.
func notFoundBody(message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: "not_found", Message: message}}
}

// validationBody returns an ErrorResponse for a domain validation failure.
// The message is extracted from the wrapped domain.ErrValidation error.
func validationBody(err error) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: "validation_error", Message: unwrapMessage(err)}}
}

// requestBody returns an ErrorResponse for a bad request rejected before
// reaching the service layer (e.g. missing or malformed body).
func requestBody(message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: "validation_error", Message: message}}
}

// storageBody is returned when the stored collection could not be decoded.
func storageBody() ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{
		Code:    "storage_error",
		Message: "stored data could not be read; retry later",
	}}
}

func internalBody() ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{
		Code:    "internal_error",
		Message: "the request could not be completed; retry later",
	}}
}

// validationMarker is the text domain.ErrValidation contributes to a wrapped error.
var validationMarker = domain.ErrValidation.Error() + ": "

// unwrapMessage extracts the human-readable part from a wrapped sentinel error.
// e.g. "service.TripService.Create: validation error: name is required" → "name is required"
func unwrapMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if i := strings.LastIndex(msg, validationMarker); i >= 0 && i+len(validationMarker) < len(msg) {
		return msg[i+len(validationMarker):]
	}
	return msg
}

// writeServiceError maps a service error onto a response. Domain errors
// become 404/422; anything else is logged and reported as a 500 the client
// may retry.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, noun string, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, notFoundBody(noun+" not found"))
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity, validationBody(err))
	case errors.Is(err, domain.ErrCorrupt):
		s.log.ErrorContext(r.Context(), "stored collection is corrupt", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, storageBody())
	default:
		s.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, internalBody())
	}
}
