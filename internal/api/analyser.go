package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/kartiksharma1227/LawyerUp/internal/analyser"
)

// maxAnalyserBytes caps one analyser upload across all files.
const maxAnalyserBytes = 25 << 20

// analyserHandler serves the document analyser endpoints.
type analyserHandler struct {
	svc    AnalyserService
	logger *slog.Logger
}

type analyserUploadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	analyser.UploadResult
}

// upload handles POST /api/v1/analyser/documents: a multipart form with one
// or more PDFs under `pdfs`. A new upload replaces the previous document.
func (h *analyserHandler) upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAnalyserBytes)
	if err := r.ParseMultipartForm(maxAnalyserBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "uploaded files too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	var docs []analyser.Document
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["pdfs"] {
			f, err := header.Open()
			if err != nil {
				h.logger.Warn("opening uploaded file", "file", header.Filename, "error", err)
				continue
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				h.logger.Warn("reading uploaded file", "file", header.Filename, "error", err)
				continue
			}
			docs = append(docs, analyser.Document{Name: header.Filename, Data: data})
		}
	}

	result, err := h.svc.Upload(r.Context(), userID, docs)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, analyserUploadResponse{
		Success:      true,
		Message:      "PDFs processed successfully!",
		UploadResult: *result,
	})
}

type explainResponse struct {
	Success     bool   `json:"success"`
	Explanation string `json:"explanation"`
}

// explain handles GET /api/v1/analyser/explanation?language=.
func (h *analyserHandler) explain(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	explanation, err := h.svc.Explain(r.Context(), userID, r.URL.Query().Get("language"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, explainResponse{Success: true, Explanation: explanation})
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Success bool   `json:"success"`
	Answer  string `json:"answer"`
}

// ask handles POST /api/v1/analyser/questions.
func (h *analyserHandler) ask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req askRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	answer, err := h.svc.Ask(r.Context(), userID, req.Question)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, askResponse{Success: true, Answer: answer})
}
