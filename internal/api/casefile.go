package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kartiksharma1227/LawyerUp/internal/casefile"
)

// maxCaseFileBytes caps one uploaded case PDF.
const maxCaseFileBytes = 10 << 20

// caseFileHandler serves case-file uploads and the monitoring profile.
type caseFileHandler struct {
	svc    CaseFileService
	logger *slog.Logger
}

type caseFileResponse struct {
	Success             bool     `json:"success"`
	UserID              string   `json:"user_id"`
	DocName             string   `json:"doc_name"`
	ExtractedTermsCount int      `json:"extracted_terms_count"`
	ChunksIndexed       int      `json:"chunks_indexed"`
	ExtractedTerms      []string `json:"extracted_terms"`
}

// upload handles POST /api/v1/case-file: a multipart form with the case PDF
// under `pdf` and an optional `doc_name` override.
func (h *caseFileHandler) upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxCaseFileBytes)
	if err := r.ParseMultipartForm(maxCaseFileBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "uploaded file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("pdf")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided in request")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "Empty filename")
		return
	}
	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		writeError(w, http.StatusBadRequest, "Only PDF files are supported")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading uploaded file failed")
		return
	}

	docName := r.FormValue("doc_name")
	if docName == "" {
		docName = header.Filename
	}

	result, err := h.svc.Upload(r.Context(), userID, docName, data)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, caseFileResponse{
		Success:             true,
		UserID:              userID,
		DocName:             result.DocName,
		ExtractedTermsCount: len(result.ExtractedTerms),
		ChunksIndexed:       result.ChunksIndexed,
		ExtractedTerms:      result.ExtractedTerms,
	})
}

type profileResponse struct {
	Success bool `json:"success"`
	casefile.Status
}

// profile handles GET /api/v1/profile.
func (h *caseFileHandler) profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	status, err := h.svc.Status(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{Success: true, Status: *status})
}
