package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dimas1q/quick-estimate/internal/api/middleware"
	"github.com/dimas1q/quick-estimate/internal/domain/client"
)

// Client Handlers

func (h *Handlers) ListClients(w http.ResponseWriter, r *http.Request) {
	f := client.Filter{
		Name:    r.URL.Query().Get("name"),
		Company: r.URL.Query().Get("company"),
	}

	clients, total, err := h.clients.List(r.Context(), middleware.GetUserID(r.Context()), f, clientPageFrom(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"clients": clients,
		"total":   total,
	})
}

func (h *Handlers) CreateClient(w http.ResponseWriter, r *http.Request) {
	var in client.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	created, err := h.clients.Create(r.Context(), middleware.GetUserID(r.Context()), in)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handlers) GetClient(w http.ResponseWriter, r *http.Request) {
	c, err := h.clients.Get(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) UpdateClient(w http.ResponseWriter, r *http.Request) {
	var in client.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	updated, err := h.clients.Update(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"), in)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (h *Handlers) DeleteClient(w http.ResponseWriter, r *http.Request) {
	if err := h.clients.Delete(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id")); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Client deleted"})
}

func (h *Handlers) ListClientLogs(w http.ResponseWriter, r *http.Request) {
	logs, total, err := h.clients.Logs(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"), clientPageFrom(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"logs":  logs,
		"total": total,
	})
}

func clientPageFrom(r *http.Request) client.Page {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	return client.Page{Limit: limit, Offset: offset}
}
