package handler

import (
	"encoding/json"
	"net/http"
	"wfm-backend/internal/service"
)

type tickRequest struct {
	UserID   uint   `json:"user_id"`
	ShopID   uint   `json:"shop_id"`
	Dttm     string `json:"dttm"`
	Type     string `json:"type"`
	Terminal string `json:"terminal"`
}

// HandleTick принимает отметку терминала. Повтор той же отметки
// (user, shop, dttm, type) безопасен.
func (h *Handler) HandleTick(w http.ResponseWriter, r *http.Request) {
	var req tickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, service.ErrValidation)
		return
	}

	dttm, err := parseDateTime(req.Dttm)
	if err != nil || dttm == nil {
		h.respondError(w, service.ErrValidation)
		return
	}

	record, err := h.attendance.HandleTick(service.TickParams{
		UserID:   req.UserID,
		ShopID:   req.ShopID,
		Dttm:     *dttm,
		Type:     req.Type,
		Terminal: req.Terminal,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, record)
}
