package handler

import (
	"errors"
	"net/http"

	"github.com/infinitops/infinitops/internal/model"
	"github.com/infinitops/infinitops/internal/store"
)

// ClientHandler manages the managed-customer records.
type ClientHandler struct {
	store *store.Store
}

// NewClientHandler creates a new ClientHandler.
func NewClientHandler(st *store.Store) *ClientHandler {
	return &ClientHandler{store: st}
}

type clientRequest struct {
	Name         string `json:"name" validate:"required"`
	ContactInfo  string `json:"contact_info"`
	ServiceLevel string `json:"service_level"`
}

// CreateClient registers a new client.
// POST /api/v1/clients
func (h *ClientHandler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	if req.ServiceLevel == "" {
		req.ServiceLevel = model.ServiceStandard
	}

	client := &model.Client{
		Name:         req.Name,
		ContactInfo:  req.ContactInfo,
		ServiceLevel: req.ServiceLevel,
	}
	if err := h.store.CreateClient(r.Context(), client); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create client: "+err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, client)
}

// ListClients returns all clients.
// GET /api/v1/clients
func (h *ClientHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.store.ListClients(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list clients: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: clients,
		Meta:     &model.ResponseMeta{Count: len(clients)},
	})
}

// GetClient returns a single client by id.
// GET /api/v1/clients/{clientID}
func (h *ClientHandler) GetClient(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt64(r, "clientID")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid client id")
		return
	}

	client, err := h.store.GetClient(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Client not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get client: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, client)
}

// UpdateClient modifies an existing client.
// PUT /api/v1/clients/{clientID}
func (h *ClientHandler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt64(r, "clientID")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid client id")
		return
	}

	existing, err := h.store.GetClient(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Client not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get client: "+err.Error())
		return
	}

	var req clientRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Name != "" {
		existing.Name = req.Name
	}
	if req.ContactInfo != "" {
		existing.ContactInfo = req.ContactInfo
	}
	if req.ServiceLevel != "" {
		existing.ServiceLevel = req.ServiceLevel
	}

	if err := h.store.UpdateClient(r.Context(), existing); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update client: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

// DeleteClient removes a client.
// DELETE /api/v1/clients/{clientID}
func (h *ClientHandler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt64(r, "clientID")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid client id")
		return
	}

	if err := h.store.DeleteClient(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Client not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete client: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
