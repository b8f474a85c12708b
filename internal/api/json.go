package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/tessera/internal/apperr"
)

const maxBody = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// decode reads a JSON body into v and validates it when v implements
// validation.Validatable.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty body: %w", apperr.ErrInvalidInput)
		}
		return fmt.Errorf("invalid JSON body: %w", apperr.ErrInvalidInput)
	}
	if vv, ok := v.(validation.Validatable); ok {
		return vv.Validate()
	}
	return nil
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrToolNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrInvalidInput),
		errors.Is(err, apperr.ErrIndexOutOfRange),
		errors.Is(err, apperr.ErrInvalidHierarchy):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrUnsupportedOperation):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the status for err. Internal errors are logged and
// reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error(op+" failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		writeJSON(w, status, errorBody("internal error"))
		return
	}
	writeJSON(w, status, errorBody(err.Error()))
}
