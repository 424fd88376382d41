package httputil

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/AdamBeresnev/meet-control/internal/meet"
)

func InternalServerError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	WriteJSON(w, http.StatusInternalServerError, ErrorBody{Error: "internal server error"})
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("bad request", "message", msg, "error", err)
	} else {
		slog.Warn("bad request", "message", msg)
	}
	WriteJSON(w, http.StatusBadRequest, ErrorBody{Error: msg})
}

func NotFound(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("not found", "message", msg, "error", err)
	} else {
		slog.Warn("not found", "message", msg)
	}
	WriteJSON(w, http.StatusNotFound, ErrorBody{Error: msg})
}

type ErrorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

var conflicts = []error{
	meet.ErrAthleteAlreadyActive,
	meet.ErrDuplicateAttempt,
	meet.ErrAlreadyEnrolled,
	meet.ErrPlatformInUse,
	meet.ErrInvalidTransition,
}

var unprocessable = []error{
	meet.ErrInvalidDuration,
	meet.ErrNoActiveAttempt,
	meet.ErrInvalidAttemptSequence,
	meet.ErrNoWaitingAthlete,
	meet.ErrAttemptsExhausted,
	meet.ErrInvalidWeight,
	meet.ErrInvalidResult,
}

// StatusOf maps a service error to the HTTP status it is reported with.
func StatusOf(err error) int {
	var validation *meet.ValidationError
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.Is(err, meet.ErrPersistenceFailure):
		return http.StatusInternalServerError
	case errors.Is(err, meet.ErrNotFound):
		return http.StatusNotFound
	}
	for _, target := range conflicts {
		if errors.Is(err, target) {
			return http.StatusConflict
		}
	}
	for _, target := range unprocessable {
		if errors.Is(err, target) {
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

// Error writes err as a JSON error body. Internal errors are logged and
// hidden from the client.
func Error(w http.ResponseWriter, msg string, err error) {
	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		InternalServerError(w, msg, err)
		return
	}

	body := ErrorBody{Error: err.Error()}
	var validation *meet.ValidationError
	if errors.As(err, &validation) {
		body.Field = validation.Field
	}
	slog.Info("request rejected", "message", msg, "status", status, "error", err)
	WriteJSON(w, status, body)
}
