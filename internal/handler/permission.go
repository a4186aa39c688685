package handler

import (
	"encoding/json"
	"net/http"
	"wfm-backend/internal/service"
)

// ListPermissions - права пользователя на действия с графиком
func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	actor := actorID(r)
	if actor == nil {
		h.respondError(w, service.ErrForbidden)
		return
	}

	action := r.URL.Query().Get("action")
	graphType := r.URL.Query().Get("graph_type")

	permissions, err := h.permissions.ListPermissions(*actor, action, graphType)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, permissions)
}

type loadCalendarRequest struct {
	Path string `json:"path"`
}

// LoadCalendar загружает производственный календарь из JSON-файла
func (h *Handler) LoadCalendar(w http.ResponseWriter, r *http.Request) {
	var req loadCalendarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		h.respondError(w, service.ErrValidation)
		return
	}

	days, err := h.calendar.LoadProductionCalendar(req.Path)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]int{"days": days})
}
