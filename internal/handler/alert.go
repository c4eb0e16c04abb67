package handler

import (
	"errors"
	"net/http"

	"github.com/infinitops/infinitops/internal/model"
	"github.com/infinitops/infinitops/internal/server/middleware"
	"github.com/infinitops/infinitops/internal/store"
)

// AlertHandler manages monitoring alerts. Acknowledging an alert records the
// authenticated principal as the acknowledger.
type AlertHandler struct {
	store *store.Store
}

// NewAlertHandler creates a new AlertHandler.
func NewAlertHandler(st *store.Store) *AlertHandler {
	return &AlertHandler{store: st}
}

type alertRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// CreateAlert records a new alert.
// POST /api/v1/alerts
func (h *AlertHandler) CreateAlert(w http.ResponseWriter, r *http.Request) {
	var req alertRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	if req.Severity == "" {
		req.Severity = model.SeverityInfo
	}

	alert := &model.Alert{
		Title:       req.Title,
		Description: req.Description,
		Severity:    req.Severity,
		Status:      "open",
	}
	if err := h.store.CreateAlert(r.Context(), alert); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create alert: "+err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, alert)
}

// ListAlerts returns all alerts, newest first.
// GET /api/v1/alerts
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.store.ListAlerts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list alerts: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: alerts,
		Meta:     &model.ResponseMeta{Count: len(alerts)},
	})
}

// AcknowledgeAlert marks an alert as seen by the authenticated principal.
// POST /api/v1/alerts/{alertID}/ack
func (h *AlertHandler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt64(r, "alertID")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid alert id")
		return
	}

	user := middleware.GetPrincipal(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := h.store.AcknowledgeAlert(r.Context(), id, user.ID); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Alert not found")
		case errors.Is(err, store.ErrDuplicate):
			writeError(w, http.StatusConflict, "Alert already acknowledged")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to acknowledge alert: "+err.Error())
		}
		return
	}

	alert, err := h.store.GetAlert(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load alert: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, alert)
}
