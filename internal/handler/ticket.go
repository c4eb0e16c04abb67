package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/infinitops/infinitops/internal/model"
	"github.com/infinitops/infinitops/internal/store"
)

// TicketHandler manages support tickets.
type TicketHandler struct {
	store *store.Store
}

// NewTicketHandler creates a new TicketHandler.
func NewTicketHandler(st *store.Store) *TicketHandler {
	return &TicketHandler{store: st}
}

type ticketRequest struct {
	Title         string     `json:"title" validate:"required"`
	Description   string     `json:"description"`
	Status        string     `json:"status"`
	Priority      string     `json:"priority"`
	ClientID      int64      `json:"client_id" validate:"required"`
	AssigneeID    *int64     `json:"assignee_id"`
	SLAExpiration *time.Time `json:"sla_expiration"`
}

// CreateTicket opens a new ticket. Status defaults to open and priority to
// medium when omitted.
// POST /api/v1/tickets
func (h *TicketHandler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	var req ticketRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	if req.Status == "" {
		req.Status = model.TicketOpen
	}
	if req.Priority == "" {
		req.Priority = model.PriorityMedium
	}
	if !model.ValidTicketStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "Unknown ticket status: "+req.Status)
		return
	}
	if !model.ValidTicketPriority(req.Priority) {
		writeError(w, http.StatusBadRequest, "Unknown ticket priority: "+req.Priority)
		return
	}

	if _, err := h.store.GetClient(r.Context(), req.ClientID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "Unknown client")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to check client: "+err.Error())
		return
	}

	ticket := &model.Ticket{
		Title:         req.Title,
		Description:   req.Description,
		Status:        req.Status,
		Priority:      req.Priority,
		ClientID:      req.ClientID,
		AssigneeID:    req.AssigneeID,
		SLAExpiration: req.SLAExpiration,
	}
	if err := h.store.CreateTicket(r.Context(), ticket); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create ticket: "+err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

// ListTickets returns tickets, optionally filtered with ?status=.
// GET /api/v1/tickets
func (h *TicketHandler) ListTickets(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !model.ValidTicketStatus(status) {
		writeError(w, http.StatusBadRequest, "Unknown ticket status: "+status)
		return
	}

	tickets, err := h.store.ListTickets(r.Context(), status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tickets: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: tickets,
		Meta:     &model.ResponseMeta{Count: len(tickets)},
	})
}

// GetTicket returns a single ticket by id.
// GET /api/v1/tickets/{ticketID}
func (h *TicketHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt64(r, "ticketID")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid ticket id")
		return
	}

	ticket, err := h.store.GetTicket(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Ticket not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get ticket: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

// UpdateTicket modifies an existing ticket.
// PUT /api/v1/tickets/{ticketID}
func (h *TicketHandler) UpdateTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt64(r, "ticketID")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid ticket id")
		return
	}

	existing, err := h.store.GetTicket(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Ticket not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get ticket: "+err.Error())
		return
	}

	var req ticketRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Title != "" {
		existing.Title = req.Title
	}
	if req.Description != "" {
		existing.Description = req.Description
	}
	if req.Status != "" {
		if !model.ValidTicketStatus(req.Status) {
			writeError(w, http.StatusBadRequest, "Unknown ticket status: "+req.Status)
			return
		}
		existing.Status = req.Status
	}
	if req.Priority != "" {
		if !model.ValidTicketPriority(req.Priority) {
			writeError(w, http.StatusBadRequest, "Unknown ticket priority: "+req.Priority)
			return
		}
		existing.Priority = req.Priority
	}
	if req.ClientID != 0 {
		existing.ClientID = req.ClientID
	}
	if req.AssigneeID != nil {
		existing.AssigneeID = req.AssigneeID
	}
	if req.SLAExpiration != nil {
		existing.SLAExpiration = req.SLAExpiration
	}

	if err := h.store.UpdateTicket(r.Context(), existing); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update ticket: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

// DeleteTicket removes a ticket.
// DELETE /api/v1/tickets/{ticketID}
func (h *TicketHandler) DeleteTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt64(r, "ticketID")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid ticket id")
		return
	}

	if err := h.store.DeleteTicket(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Ticket not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete ticket: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
