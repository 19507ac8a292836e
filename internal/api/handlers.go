package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dimas1q/quick-estimate/internal/api/middleware"
	"github.com/dimas1q/quick-estimate/internal/domain/client"
	"github.com/dimas1q/quick-estimate/internal/domain/estimate"
)

type Handlers struct {
	estimates *estimate.Service
	clients   *client.Service
}

func NewHandlers(estimates *estimate.Service, clients *client.Service) *Handlers {
	return &Handlers{
		estimates: estimates,
		clients:   clients,
	}
}

// Estimate Handlers

func (h *Handlers) ListEstimates(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	f := estimate.Filter{
		Name:     r.URL.Query().Get("name"),
		ClientID: r.URL.Query().Get("client_id"),
	}
	if r.URL.Query().Get("favorites") == "true" {
		f.FavoriteOf = userID
	}

	estimates, total, err := h.estimates.List(r.Context(), userID, f, pageFrom(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"estimates": estimates,
		"total":     total,
	})
}

func (h *Handlers) CreateEstimate(w http.ResponseWriter, r *http.Request) {
	var in estimate.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	created, err := h.estimates.Create(r.Context(), middleware.GetUserID(r.Context()), in)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handlers) GetEstimate(w http.ResponseWriter, r *http.Request) {
	e, err := h.estimates.Get(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

func (h *Handlers) UpdateEstimate(w http.ResponseWriter, r *http.Request) {
	var in estimate.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	updated, err := h.estimates.Update(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"), in)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (h *Handlers) DeleteEstimate(w http.ResponseWriter, r *http.Request) {
	if err := h.estimates.Delete(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id")); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Estimate deleted"})
}

func (h *Handlers) SetFavorite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Favorite bool `json:"favorite"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	err := h.estimates.SetFavorite(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"), req.Favorite)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Version Handlers

func (h *Handlers) ListVersions(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.estimates.ListVersions(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"), pageFrom(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"versions": snaps})
}

func (h *Handlers) GetVersion(w http.ResponseWriter, r *http.Request) {
	version, err := versionParam(r)
	if err != nil {
		respondJSONError(w, "Invalid version number", http.StatusBadRequest)
		return
	}

	snap, err := h.estimates.GetVersion(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"), version)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (h *Handlers) RestoreVersion(w http.ResponseWriter, r *http.Request) {
	version, err := versionParam(r)
	if err != nil {
		respondJSONError(w, "Invalid version number", http.StatusBadRequest)
		return
	}

	restored, err := h.estimates.RestoreVersion(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"), version)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, restored)
}

func (h *Handlers) DeleteVersion(w http.ResponseWriter, r *http.Request) {
	version, err := versionParam(r)
	if err != nil {
		respondJSONError(w, "Invalid version number", http.StatusBadRequest)
		return
	}

	if err := h.estimates.DeleteVersion(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"), version); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Version deleted"})
}

// Log Handlers

func (h *Handlers) ListEstimateLogs(w http.ResponseWriter, r *http.Request) {
	logs, total, err := h.estimates.Logs(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"), pageFrom(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"logs":  logs,
		"total": total,
	})
}

// Note Handlers

func (h *Handlers) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.estimates.ListNotes(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"notes": notes})
}

func (h *Handlers) AddNote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	note, err := h.estimates.AddNote(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"), req.Text)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, note)
}

func (h *Handlers) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	note, err := h.estimates.UpdateNote(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"), req.Text)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, note)
}

func (h *Handlers) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.estimates.DeleteNote(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id")); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Note deleted"})
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// respondDomainError maps domain errors onto HTTP statuses.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, estimate.ErrNotFound),
		errors.Is(err, estimate.ErrVersionNotFound),
		errors.Is(err, estimate.ErrNoteNotFound),
		errors.Is(err, client.ErrNotFound):
		respondJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, estimate.ErrAccessDenied),
		errors.Is(err, client.ErrAccessDenied):
		respondJSONError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, client.ErrHasEstimates):
		respondJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, estimate.ErrNameRequired),
		errors.Is(err, estimate.ErrNoItems),
		errors.Is(err, estimate.ErrInvalidQuantity),
		errors.Is(err, estimate.ErrInvalidPrice),
		errors.Is(err, estimate.ErrInvalidStatus),
		errors.Is(err, estimate.ErrBadPayload),
		errors.Is(err, estimate.ErrClientNotFound),
		errors.Is(err, estimate.ErrNoteTextRequired),
		errors.Is(err, client.ErrNameRequired):
		respondJSONError(w, err.Error(), http.StatusBadRequest)
	default:
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
	}
}

func versionParam(r *http.Request) (int, error) {
	v, err := strconv.Atoi(r.PathValue("version"))
	if err != nil || v < 1 {
		return 0, errors.New("invalid version")
	}
	return v, nil
}

func pageFrom(r *http.Request) estimate.Page {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	return estimate.Page{Limit: limit, Offset: offset}
}
