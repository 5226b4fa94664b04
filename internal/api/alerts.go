package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kartiksharma1227/LawyerUp/internal/alert"
)

// alertsHandler serves stored impact alerts.
type alertsHandler struct {
	store  AlertStore
	logger *slog.Logger
}

// alertView is the client-facing shape of one alert.
type alertView struct {
	ID               string                  `json:"id"`
	Title            string                  `json:"title"`
	ArticleLink      string                  `json:"article_link"`
	Summary          string                  `json:"summary"`
	ImpactAnalysis   string                  `json:"impact_analysis"`
	RelatedDocuments []alert.RelatedDocument `json:"related_documents"`
	Priority         string                  `json:"priority"`
	Status           string                  `json:"status"`
	CreatedAt        time.Time               `json:"created_at"`
	ReadAt           *time.Time              `json:"read_at,omitempty"`
}

type alertListResponse struct {
	Success bool        `json:"success"`
	Count   int         `json:"count"`
	Alerts  []alertView `json:"alerts"`
}

// list handles GET /api/v1/alerts. The optional status query filters by
// read state.
func (h *alertsHandler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	status := r.URL.Query().Get("status")
	if status != "" && status != alert.StatusUnread && status != alert.StatusRead {
		writeError(w, http.StatusBadRequest, "status must be unread or read")
		return
	}

	alerts, err := h.store.ListByUser(r.Context(), userID, status, alert.DefaultListLimit)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	views := make([]alertView, 0, len(alerts))
	for _, a := range alerts {
		views = append(views, alertView{
			ID:               a.ID.String(),
			Title:            a.Title,
			ArticleLink:      a.ArticleLink,
			Summary:          a.Summary,
			ImpactAnalysis:   a.ImpactAnalysis,
			RelatedDocuments: a.RelatedDocuments,
			Priority:         a.Priority,
			Status:           a.Status,
			CreatedAt:        a.CreatedAt,
			ReadAt:           a.ReadAt,
		})
	}

	writeJSON(w, http.StatusOK, alertListResponse{Success: true, Count: len(views), Alerts: views})
}

type markReadResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	Status  string `json:"status"`
}

// markRead handles POST /api/v1/alerts/{id}/read.
func (h *alertsHandler) markRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid alert id")
		return
	}

	if err := h.store.MarkRead(r.Context(), id, userID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, markReadResponse{Success: true, ID: id.String(), Status: alert.StatusRead})
}
