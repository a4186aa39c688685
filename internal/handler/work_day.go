package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
	"wfm-backend/internal/models"
	"wfm-backend/internal/repository"
	"wfm-backend/internal/service"
)

// parseDate принимает дату либо момент времени
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, service.ErrValidation
	}
	return t, nil
}

func parseDateTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		t, err = time.Parse("2006-01-02 15:04:05", raw)
		if err != nil {
			return nil, service.ErrValidation
		}
	}
	return &t, nil
}

func queryUintList(r *http.Request, name string) ([]uint, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	var ids []uint
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
		if err != nil {
			return nil, service.ErrValidation
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

func queryBool(r *http.Request, name string) *bool {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	v := raw == "1" || strings.EqualFold(raw, "true")
	return &v
}

// ListWorkDays - выборка рабочих дней по фильтру
func (h *Handler) ListWorkDays(w http.ResponseWriter, r *http.Request) {
	filter := repository.WorkDayFilter{}

	shopID, err := queryUint(r, "shop_id")
	if err != nil {
		h.respondError(w, err)
		return
	}
	filter.ShopID = shopID

	filter.EmployeeIDs, err = queryUintList(r, "employee_ids")
	if err != nil {
		h.respondError(w, err)
		return
	}

	if filter.DtFrom, err = queryDate(r, "dt_from"); err != nil {
		h.respondError(w, err)
		return
	}
	if filter.DtTo, err = queryDate(r, "dt_to"); err != nil {
		h.respondError(w, err)
		return
	}

	filter.IsFact = queryBool(r, "is_fact")
	filter.IsApproved = queryBool(r, "is_approved")
	if raw := r.URL.Query().Get("type_codes"); raw != "" {
		filter.TypeCodes = strings.Split(raw, ",")
	}

	days, err := h.workDays.List(filter)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, days)
}

func (h *Handler) GetWorkDay(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		h.respondError(w, err)
		return
	}

	wd, err := h.workDays.GetByID(id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if wd == nil {
		h.respondError(w, service.ErrNotFound)
		return
	}

	h.respondJSON(w, http.StatusOK, wd)
}

type workDayDetailRequest struct {
	WorkTypeID uint    `json:"work_type_id"`
	WorkPart   float64 `json:"work_part"`
}

type upsertWorkDayRequest struct {
	EmployeeID    *uint                  `json:"employee_id"`
	Dt            string                 `json:"dt"`
	IsFact        bool                   `json:"is_fact"`
	IsApproved    bool                   `json:"is_approved"`
	Type          string                 `json:"type"`
	ShopID        *uint                  `json:"shop_id"`
	EmploymentID  *uint                  `json:"employment_id"`
	DttmWorkStart string                 `json:"dttm_work_start"`
	DttmWorkEnd   string                 `json:"dttm_work_end"`
	IsVacancy     bool                   `json:"is_vacancy"`
	IsOutsource   bool                   `json:"is_outsource"`
	Crop          *bool                  `json:"crop"`
	Comment       string                 `json:"comment"`
	Details       []workDayDetailRequest `json:"details"`
}

// UpsertWorkDay записывает версию рабочего дня
func (h *Handler) UpsertWorkDay(w http.ResponseWriter, r *http.Request) {
	var req upsertWorkDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, service.ErrValidation)
		return
	}

	dt, err := parseDate(req.Dt)
	if err != nil {
		h.respondError(w, err)
		return
	}
	start, err := parseDateTime(req.DttmWorkStart)
	if err != nil {
		h.respondError(w, err)
		return
	}
	end, err := parseDateTime(req.DttmWorkEnd)
	if err != nil {
		h.respondError(w, err)
		return
	}

	wd := &models.WorkDay{
		EmployeeID:    req.EmployeeID,
		Dt:            dt,
		IsFact:        req.IsFact,
		IsApproved:    req.IsApproved,
		TypeCode:      req.Type,
		ShopID:        req.ShopID,
		EmploymentID:  req.EmploymentID,
		DttmWorkStart: start,
		DttmWorkEnd:   end,
		IsVacancy:     req.IsVacancy,
		IsOutsource:   req.IsOutsource,
		Crop:          true,
		Comment:       req.Comment,
	}
	if req.Crop != nil {
		wd.Crop = *req.Crop
	}

	var details []models.WorkDayDetail
	for _, d := range req.Details {
		details = append(details, models.WorkDayDetail{WorkTypeID: d.WorkTypeID, WorkPart: d.WorkPart})
	}

	saved, err := h.workDays.Upsert(wd, details, actorID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, saved)
}

type upsertByCodeRequest struct {
	ShopCode      string `json:"shop_code"`
	Username      string `json:"username"`
	TabelCode     string `json:"tabel_code"`
	Dt            string `json:"dt"`
	Type          string `json:"type"`
	DttmWorkStart string `json:"dttm_work_start"`
	DttmWorkEnd   string `json:"dttm_work_end"`
	WorkType      string `json:"work_type"`
	IsFact        bool   `json:"is_fact"`
	IsApproved    bool   `json:"is_approved"`
}

// UpsertWorkDayByCode записывает день по кодам магазина и сотрудника
func (h *Handler) UpsertWorkDayByCode(w http.ResponseWriter, r *http.Request) {
	var req upsertByCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, service.ErrValidation)
		return
	}

	dt, err := parseDate(req.Dt)
	if err != nil {
		h.respondError(w, err)
		return
	}
	start, err := parseDateTime(req.DttmWorkStart)
	if err != nil {
		h.respondError(w, err)
		return
	}
	end, err := parseDateTime(req.DttmWorkEnd)
	if err != nil {
		h.respondError(w, err)
		return
	}

	saved, err := h.workDays.UpsertByCode(service.UpsertByCodeParams{
		ShopCode:      req.ShopCode,
		Username:      req.Username,
		TabelCode:     req.TabelCode,
		Dt:            dt,
		TypeCode:      req.Type,
		DttmWorkStart: start,
		DttmWorkEnd:   end,
		WorkTypeCode:  req.WorkType,
		IsFact:        req.IsFact,
		IsApproved:    req.IsApproved,
	}, actorID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, saved)
}

type rangeDeleteRequest struct {
	EmployeeIDs     []uint   `json:"employee_ids"`
	DtFrom          string   `json:"dt_from"`
	DtTo            string   `json:"dt_to"`
	Types           []string `json:"types"`
	OnlyCreatedByID *uint    `json:"only_created_by_id"`
}

// RangeDeleteWorkDays удаляет неподтверждённые дни диапазона
func (h *Handler) RangeDeleteWorkDays(w http.ResponseWriter, r *http.Request) {
	var req rangeDeleteRequest
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

	deleted, err := h.workDays.RangeDelete(req.EmployeeIDs, dtFrom, dtTo, req.Types, req.OnlyCreatedByID, actorID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

type approveRangeRequest struct {
	ShopID      uint     `json:"shop_id"`
	DtFrom      string   `json:"dt_from"`
	DtTo        string   `json:"dt_to"`
	IsFact      bool     `json:"is_fact"`
	WdTypes     []string `json:"wd_types"`
	EmployeeIDs []uint   `json:"employee_ids"`
}

// ApproveRange подтверждает диапазон графика
func (h *Handler) ApproveRange(w http.ResponseWriter, r *http.Request) {
	var req approveRangeRequest
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

	actor := actorID(r)
	if actor == nil {
		h.respondError(w, service.ErrForbidden)
		return
	}

	err = h.approval.ApproveRange(service.ApproveParams{
		ShopID:      req.ShopID,
		DtFrom:      dtFrom,
		DtTo:        dtTo,
		IsFact:      req.IsFact,
		WdTypes:     req.WdTypes,
		EmployeeIDs: req.EmployeeIDs,
		ActorUserID: *actor,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

type changeRangeRequest struct {
	NetworkID  uint   `json:"network_id"`
	TabelCode  string `json:"employee_tabel_code"`
	DtFrom     string `json:"dt_from"`
	DtTo       string `json:"dt_to"`
	Type       string `json:"type"`
	IsApproved bool   `json:"is_approved"`
}

// ChangeRange массово проставляет безинтервальный тип дня
func (h *Handler) ChangeRange(w http.ResponseWriter, r *http.Request) {
	var req changeRangeRequest
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

	changed, err := h.workDays.ChangeRange(req.NetworkID, req.TabelCode, dtFrom, dtTo, req.Type, req.IsApproved, actorID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]int{"changed": changed})
}

type exchangeApprovedRequest struct {
	Employee1ID uint     `json:"employee1_id"`
	Employee2ID uint     `json:"employee2_id"`
	Dates       []string `json:"dates"`
}

// ExchangeApproved меняет местами подтверждённые плановые дни двух
// сотрудников
func (h *Handler) ExchangeApproved(w http.ResponseWriter, r *http.Request) {
	var req exchangeApprovedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, service.ErrValidation)
		return
	}

	dates := make([]time.Time, 0, len(req.Dates))
	for _, raw := range req.Dates {
		dt, err := parseDate(raw)
		if err != nil {
			h.respondError(w, err)
			return
		}
		dates = append(dates, dt)
	}

	if err := h.workDays.ExchangeApproved(req.Employee1ID, req.Employee2ID, dates, actorID(r)); err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"status": "exchanged"})
}

type vacancyRequest struct {
	EmployeeID uint `json:"employee_id"`
}

// ConfirmVacancy назначает сотрудника на открытую вакансию
func (h *Handler) ConfirmVacancy(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		h.respondError(w, err)
		return
	}

	var req vacancyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, service.ErrValidation)
		return
	}

	wd, err := h.workDays.ConfirmVacancy(id, req.EmployeeID, actorID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, wd)
}

// RefuseVacancy снимает сотрудника с вакансии
func (h *Handler) RefuseVacancy(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		h.respondError(w, err)
		return
	}

	wd, err := h.workDays.RefuseVacancy(id, actorID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, wd)
}

// ReconfirmVacancy переназначает вакансию на другого сотрудника
func (h *Handler) ReconfirmVacancy(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		h.respondError(w, err)
		return
	}

	var req vacancyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, service.ErrValidation)
		return
	}

	wd, err := h.workDays.ReconfirmVacancyToWorker(id, req.EmployeeID, actorID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, wd)
}
