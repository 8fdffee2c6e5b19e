package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/nikhilbhutani/voiceguard/internal/audit"
	"github.com/nikhilbhutani/voiceguard/internal/models"
)

// AnalysisLister reads the analysis log.
type AnalysisLister interface {
	ListAnalyses(ctx context.Context, q audit.AnalysisQuery) ([]models.VoiceAnalysis, error)
}

type AdminHandler struct {
	lister AnalysisLister
}

// NewAdminHandler accepts a nil lister when no database is configured.
func NewAdminHandler(lister AnalysisLister) *AdminHandler {
	return &AdminHandler{lister: lister}
}

func (h *AdminHandler) Analyses(w http.ResponseWriter, r *http.Request) {
	if h.lister == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "analysis log not configured"})
		return
	}

	q := audit.AnalysisQuery{}
	q.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	q.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	q.UnsafeOnly, _ = strconv.ParseBool(r.URL.Query().Get("unsafe"))

	if s := r.URL.Query().Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "since must be RFC3339"})
			return
		}
		q.Since = &t
	}

	rows, err := h.lister.ListAnalyses(r.Context(), q)
	if err != nil {
		slog.Error("failed to list analyses", "error", err, "request_id", middleware.GetReqID(r.Context()))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list analyses"})
		return
	}

	if rows == nil {
		rows = []models.VoiceAnalysis{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"analyses": rows, "count": len(rows)})
}
