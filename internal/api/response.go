package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/kartiksharma1227/LawyerUp/internal/alert"
	"github.com/kartiksharma1227/LawyerUp/internal/analyser"
	"github.com/kartiksharma1227/LawyerUp/internal/articles"
	"github.com/kartiksharma1227/LawyerUp/internal/casefile"
	"github.com/kartiksharma1227/LawyerUp/internal/chat"
	"github.com/kartiksharma1227/LawyerUp/internal/monitor"
)

// genericErrorMsg is returned for unexpected failures; the detail stays in
// the logs.
const genericErrorMsg = "Internal server error. Please try again later."

// errorResponse is the envelope for every failed request.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// writeJSON writes a JSON response with the given status code. The body is
// encoded into a buffer first so headers are only sent after successful
// encoding and a proper 500 can still be returned when encoding fails.
func writeJSON(w http.ResponseWriter, status int, data any) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Debug("failed to write response body", "error", err)
	}
}

// writeError writes the failure envelope.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}

// writeServiceError maps domain errors onto HTTP statuses: known-state
// failures become 400s, missing resources 404s, and everything else a 500
// with a generic message.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, casefile.ErrUploadLimit),
		errors.Is(err, casefile.ErrTextTooShort),
		errors.Is(err, casefile.ErrNoText),
		errors.Is(err, casefile.ErrTooFewTerms),
		errors.Is(err, articles.ErrNoCaseFile),
		errors.Is(err, monitor.ErrInvalidArticles),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, analyser.ErrNoPDF),
		errors.Is(err, analyser.ErrNoText),
		errors.Is(err, analyser.ErrNoQuestion):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, analyser.ErrNoDocument),
		errors.Is(err, alert.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, genericErrorMsg)
	}
}

// decodeJSON decodes a request body into v. An empty body is not an error;
// callers keep their defaults.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
