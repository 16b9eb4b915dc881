package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/taskmanager/taskmanager-go/internal/logging"
	"github.com/taskmanager/taskmanager-go/internal/service"
)

const maxBodyBytes = 1 << 20 // 1MB

// responder carries what every handler needs to report failures.
// With exposeErrors set, 500 responses include the underlying error.
type responder struct {
	log          *slog.Logger
	exposeErrors bool
}

func (rs responder) logger(r *http.Request) *slog.Logger {
	return logging.FromContext(r.Context(), rs.log)
}

func (rs responder) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	rs.logger(r).ErrorContext(r.Context(), msg, "error", err, "method", r.Method, "path", r.URL.Path)

	body := map[string]string{"message": msg}
	if rs.exposeErrors {
		body["detail"] = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, body)
}

// decodeJSON reads a JSON request body into dst. An empty body leaves dst
// untouched so that validation reports the missing fields. It writes the
// error response itself and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, messageBody("Request body too large."))
		return false
	}
	writeJSON(w, http.StatusBadRequest, messageBody("Invalid request body."))
	return false
}

// writeValidation writes a 422 if err is a ValidationError and reports whether it did.
func writeValidation(w http.ResponseWriter, err error) bool {
	var verr *service.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"message": "The given data was invalid.",
		"errors":  verr.Fields,
	})
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func messageBody(msg string) map[string]string {
	return map[string]string{"message": msg}
}
