package api

import (
	"log/slog"
	"net/http"

	"github.com/kartiksharma1227/LawyerUp/internal/chat"
	"github.com/kartiksharma1227/LawyerUp/internal/security"
)

// chatHandler serves the legal chat assistant.
type chatHandler struct {
	svc     ChatService
	prompts *security.PromptValidator
	logger  *slog.Logger
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
}

// send handles POST /api/v1/chat.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// Screening is advisory: detections are logged and the message still
	// goes through.
	if result := h.prompts.Validate(req.Message); !result.Safe {
		h.logger.Warn("possible prompt injection in chat message",
			"user_id", userID, "patterns", len(result.Patterns))
	}

	answer, err := h.svc.Chat(r.Context(), userID, req.Message)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Success: true, Response: answer})
}

type historyResponse struct {
	Success bool                `json:"success"`
	History []chat.HistoryEntry `json:"history"`
}

// history handles GET /api/v1/chat/history.
func (h *chatHandler) history(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	entries, err := h.svc.History(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, historyResponse{Success: true, History: entries})
}
