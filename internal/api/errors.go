package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"qs-rls-manager/internal/domain"
)

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err through domain.Classify. Unclassified errors are
// logged and reported without their text.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, errorType := domain.Classify(err)
	msg := err.Error()
	if errorType == "InternalError" {
		h.logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = http.StatusText(http.StatusInternalServerError)
	}
	writeJSON(w, status, ErrorResponse{Status: status, ErrorType: errorType, Message: msg})
}

// decodeJSON reads a size-limited JSON body into v. Malformed input is a
// validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.ErrValidation("request body exceeds %d bytes", maxJSONBody)
		}
		return domain.ErrValidation("invalid request body: %v", err)
	}
	return nil
}

// logOutcome records a failed pipeline at the level its status warrants.
func (h *Handler) logOutcome(r *http.Request, pipeline, arn string, status int, msg string) {
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	h.logger.Log(r.Context(), level, "pipeline finished", "pipeline", pipeline, "dataset", arn, "status", status, "message", msg)
}
