package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/imposter/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeNotHost              = "NOT_HOST"
	CodeRoomNotFound         = "ROOM_NOT_FOUND"
	CodeInvalidPhase         = "INVALID_PHASE"
	CodeAlreadyInRoom        = "ALREADY_IN_ROOM"
	CodeInsufficientPlayers  = "INSUFFICIENT_PLAYERS"
	CodeInvalidConfiguration = "INVALID_CONFIGURATION"
	CodeUnknownCategory      = "UNKNOWN_CATEGORY"
	CodeRoomCodesExhausted   = "ROOM_CODES_EXHAUSTED"
	CodeInternalError        = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// FromError returns the stable code and user-facing message for err
func FromError(err error) APIError {
	return toHTTPError(err).apiError
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, model.ErrRoomNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeRoomNotFound, "Room not found"}}
	case errors.Is(err, model.ErrInvalidPhase):
		return &httpError{http.StatusConflict, APIError{CodeInvalidPhase, "Not allowed in the current phase"}}
	case errors.Is(err, model.ErrNotHost):
		return &httpError{http.StatusForbidden, APIError{CodeNotHost, "Only the host can perform this action"}}
	case errors.Is(err, model.ErrNotInRoom):
		return &httpError{http.StatusForbidden, APIError{CodeUnauthorized, "Not a member of this room"}}
	case errors.Is(err, model.ErrAlreadyInRoom):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyInRoom, "Already in a room"}}
	case errors.Is(err, model.ErrInsufficientPlayers):
		return &httpError{http.StatusConflict, APIError{CodeInsufficientPlayers, "Not enough players to start"}}
	case errors.Is(err, model.ErrInvalidConfiguration):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidConfiguration, err.Error()}}
	case errors.Is(err, model.ErrUnknownCategory):
		return &httpError{http.StatusNotFound, APIError{CodeUnknownCategory, err.Error()}}
	case errors.Is(err, model.ErrInvalidCommand):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, err.Error()}}
	case errors.Is(err, model.ErrRoomCodeExhausted):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeRoomCodesExhausted, "No room codes available, try again"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
