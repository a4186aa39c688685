package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"
	"wfm-backend/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

// Handler связывает HTTP-маршруты с сервисами движка
type Handler struct {
	workDays    *service.WorkDayService
	approval    *service.ApprovalService
	attendance  *service.AttendanceService
	timesheet   *service.TimesheetService
	permissions *service.PermissionService
	calendar    *service.CalendarService
	logger      *logrus.Logger
}

func NewHandler(
	workDays *service.WorkDayService,
	approval *service.ApprovalService,
	attendance *service.AttendanceService,
	timesheet *service.TimesheetService,
	permissions *service.PermissionService,
	calendar *service.CalendarService,
) *Handler {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	return &Handler{
		workDays:    workDays,
		approval:    approval,
		attendance:  attendance,
		timesheet:   timesheet,
		permissions: permissions,
		calendar:    calendar,
		logger:      logger,
	}
}

// Router собирает маршруты API
func (h *Handler) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-User-ID"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/workdays", func(r chi.Router) {
			r.Get("/", h.ListWorkDays)
			r.Post("/", h.UpsertWorkDay)
			r.Get("/{id}", h.GetWorkDay)
			r.Post("/by_code", h.UpsertWorkDayByCode)
			r.Post("/range_delete", h.RangeDeleteWorkDays)
			r.Post("/approve", h.ApproveRange)
			r.Post("/change_range", h.ChangeRange)
			r.Post("/exchange_approved", h.ExchangeApproved)
		})

		r.Route("/vacancies", func(r chi.Router) {
			r.Post("/{id}/confirm", h.ConfirmVacancy)
			r.Post("/{id}/refuse", h.RefuseVacancy)
			r.Post("/{id}/reconfirm", h.ReconfirmVacancy)
		})

		r.Post("/attendance/tick", h.HandleTick)

		r.Route("/timesheet", func(r chi.Router) {
			r.Get("/items", h.ListTimesheetItems)
			r.Get("/stats", h.TimesheetStats)
			r.Get("/lines", h.TimesheetLines)
			r.Post("/recalc", h.RecalcTimesheet)
		})

		r.Get("/permissions", h.ListPermissions)

		r.Post("/admin/calendar/load", h.LoadCalendar)
	})

	return r
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			h.logger.WithError(err).Error("Failed to encode response")
		}
	}
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.WithError(err).Error("Request failed")
	}
	h.respondJSON(w, status, map[string]string{"error": err.Error()})
}

// errorStatus переводит доменные ошибки в коды HTTP
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrApprovalForbidden),
		errors.Is(err, service.ErrProtectedDay):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrNoActiveEmployment):
		return http.StatusNotFound
	case errors.Is(err, service.ErrOverlap),
		errors.Is(err, service.ErrTaskViolation),
		errors.Is(err, service.ErrMultiObjectUnique),
		errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrVersionsMismatch):
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

// actorID извлекает пользователя из заголовка X-User-ID
func actorID(r *http.Request) *uint {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil
	}
	v := uint(id)
	return &v
}

func queryUint(r *http.Request, name string) (*uint, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil, service.ErrValidation
	}
	v := uint(id)
	return &v, nil
}

func queryDate(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	dt, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, service.ErrValidation
	}
	return &dt, nil
}

func pathUint(r *http.Request, name string) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 32)
	if err != nil {
		return 0, service.ErrValidation
	}
	return uint(id), nil
}
