package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"wfm-backend/internal/repository"
	"wfm-backend/internal/service"
)

func (h *Handler) timesheetFilter(r *http.Request) (repository.TimesheetFilter, error) {
	filter := repository.TimesheetFilter{}

	shopID, err := queryUint(r, "shop_id")
	if err != nil {
		return filter, err
	}
	filter.ShopID = shopID

	filter.EmployeeIDs, err = queryUintList(r, "employee_ids")
	if err != nil {
		return filter, err
	}

	if filter.DtFrom, err = queryDate(r, "dt_from"); err != nil {
		return filter, err
	}
	if filter.DtTo, err = queryDate(r, "dt_to"); err != nil {
		return filter, err
	}

	if raw := r.URL.Query().Get("timesheet_types"); raw != "" {
		filter.TimesheetTypes = strings.Split(raw, ",")
	}

	return filter, nil
}

// ListTimesheetItems - строки табеля по фильтру
func (h *Handler) ListTimesheetItems(w http.ResponseWriter, r *http.Request) {
	filter, err := h.timesheetFilter(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	items, err := h.timesheet.ListItems(filter)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, items)
}

// TimesheetStats - агрегаты часов по сотрудникам
func (h *Handler) TimesheetStats(w http.ResponseWriter, r *http.Request) {
	filter, err := h.timesheetFilter(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	stats, err := h.timesheet.Stats(filter)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, stats)
}

// TimesheetLines - таблица "сотрудник x вид табеля x дни"
func (h *Handler) TimesheetLines(w http.ResponseWriter, r *http.Request) {
	filter, err := h.timesheetFilter(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	lines, err := h.timesheet.Lines(filter)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, lines)
}

type recalcRequest struct {
	ShopID      uint   `json:"shop_id"`
	DtFrom      string `json:"dt_from"`
	DtTo        string `json:"dt_to"`
	EmployeeIDs []uint `json:"employee_id_in"`
}

// RecalcTimesheet пересчитывает табель магазина за календарный месяц
func (h *Handler) RecalcTimesheet(w http.ResponseWriter, r *http.Request) {
	var req recalcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, service.ErrValidation)
		return
	}

	dtFrom, err := parseDate(req.DtFrom)
	if err != nil {
		h.respondError(w, err)
		return
	}
	dtTo, err := parseDate(req.DtTo)
	if err != nil {
		h.respondError(w, err)
		return
	}

	count, err := h.timesheet.Recalc(req.ShopID, dtFrom, dtTo, req.EmployeeIDs)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]int{"recalculated": count})
}
