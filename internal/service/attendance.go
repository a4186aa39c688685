package service

import (
	"time"
	"wfm-backend/internal/models"
	"wfm-backend/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AttendanceConfig - параметры сверки отметок
type AttendanceConfig struct {
	// Максимальное расстояние от отметки до края плана
	TickMaxDiff time.Duration
	// Максимальная длительность одной смены (ограничивает закрытие
	// вчерашней открытой смены)
	MaxWorkShift time.Duration
	// Пропускать уходящие отметки
	SkipLeavingTick bool
}

// TickParams - входящее событие терминала
type TickParams struct {
	UserID   uint
	ShopID   uint
	Dttm     time.Time
	Type     string
	Terminal string
	// Момент поступления; пустой заполняется текущим временем
	DttmEvent time.Time
}

// AttendanceService сверяет отметки терминала с планом и ведёт
// фактические рабочие дни
type AttendanceService struct {
	attendanceRepo repository.AttendanceRepository
	workDayRepo    repository.WorkDayRepository
	employeeRepo   repository.EmployeeRepository
	catalogRepo    repository.CatalogRepository
	shopRepo       repository.ShopRepository
	employmentSvc  *EmploymentService
	calculator     *WorkHoursCalculator
	notifier       Notifier
	recalc         RecalcEnqueuer
	cfg            AttendanceConfig
	logger         *logrus.Logger
}

func NewAttendanceService(
	attendanceRepo repository.AttendanceRepository,
	workDayRepo repository.WorkDayRepository,
	employeeRepo repository.EmployeeRepository,
	catalogRepo repository.CatalogRepository,
	shopRepo repository.ShopRepository,
	employmentSvc *EmploymentService,
	calculator *WorkHoursCalculator,
	notifier Notifier,
	recalc RecalcEnqueuer,
	cfg AttendanceConfig,
) *AttendanceService {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	return &AttendanceService{
		attendanceRepo: attendanceRepo,
		workDayRepo:    workDayRepo,
		employeeRepo:   employeeRepo,
		catalogRepo:    catalogRepo,
		shopRepo:       shopRepo,
		employmentSvc:  employmentSvc,
		calculator:     calculator,
		notifier:       notifier,
		recalc:         recalc,
		cfg:            cfg,
		logger:         logger,
	}
}

// tickScope - коллабораторы обработки отметки, привязанные к одной
// транзакции
type tickScope struct {
	workDays    repository.WorkDayRepository
	catalog     repository.CatalogRepository
	employments *EmploymentService
	calendar    *CalendarService
	schedule    *ShopScheduleService
}

func (s *AttendanceService) txScope(tx *gorm.DB) tickScope {
	return tickScope{
		workDays:    s.workDayRepo.WithTx(tx),
		catalog:     s.catalogRepo.WithTx(tx),
		employments: s.employmentSvc.WithTx(tx),
		calendar:    s.calculator.calendar.WithTx(tx),
		schedule:    s.calculator.shopSchedule.WithTx(tx),
	}
}

// HandleTick принимает событие отметки: сохраняет его, находит
// ближайший план и обновляет фактический день. Повтор того же события
// не меняет состояние.
func (s *AttendanceService) HandleTick(params TickParams) (*models.AttendanceRecord, error) {
	if params.Type == "" {
		params.Type = models.TickNoType
	}
	if params.DttmEvent.IsZero() {
		params.DttmEvent = time.Now()
	}

	record := &models.AttendanceRecord{
		UserID:    params.UserID,
		ShopID:    params.ShopID,
		Dttm:      params.Dttm,
		Type:      params.Type,
		Terminal:  params.Terminal,
		Verified:  true,
		DttmEvent: params.DttmEvent,
	}

	if !record.IsValid() {
		return nil, ErrValidation
	}

	shop, err := s.shopRepo.GetByID(params.ShopID)
	if err != nil {
		return nil, err
	}
	if shop == nil {
		return nil, ErrNotFound
	}

	if params.Type == models.TickNoType {
		// Отметка без типа хранится уже с выведенным типом, поэтому
		// повтор ищется по (user, shop, dttm) без учёта типа
		existing, err := s.attendanceRepo.GetByDttm(params.UserID, params.ShopID, params.Dttm)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			record = existing
		}
	}

	if record.ID == 0 {
		created, err := s.attendanceRepo.Create(record)
		if err != nil {
			return nil, err
		}
		if !created {
			// Повтор события: дальше работаем с уже сохранённой записью
			existing, err := s.attendanceRepo.GetByTick(params.UserID, params.ShopID, params.Dttm, params.Type)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				record = existing
			}
		}
	}

	// Шаги 1-2: ближайший подтверждённый план в окне +-1 день
	plan, err := s.findClosestPlan(params)
	if err != nil {
		return nil, err
	}

	var employeeID uint
	var dt time.Time
	offPlan := false

	if plan != nil {
		employeeID = *plan.EmployeeID
		dt = models.DateOf(plan.Dt)
		if record.Type == models.TickNoType {
			record.Type = inferTickType(params.Dttm, plan)
		}
	} else {
		// Шаг 3: без плана - активное трудоустройство в этом магазине
		employee, err := s.resolveEmployee(params)
		if err != nil {
			return nil, err
		}
		employeeID = employee.ID
		dt = models.DateOf(params.Dttm)
		offPlan = true
		if record.Type == models.TickNoType {
			record.Type = models.TickComing
		}
	}

	record.EmployeeID = &employeeID
	record.Dt = &dt
	if err := s.attendanceRepo.Save(record); err != nil {
		return nil, err
	}

	if s.cfg.SkipLeavingTick && record.Type == models.TickLeaving {
		s.logger.WithField("user_id", params.UserID).Debug("Leaving tick skipped by configuration")
		return record, nil
	}

	// Шаг 4: транзакционное обновление факта
	createdFresh := false
	err = s.workDayRepo.DB().Transaction(func(tx *gorm.DB) error {
		fresh, err := s.applyTick(s.txScope(tx), shop, record, plan, employeeID, dt)
		createdFresh = fresh
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.recalc != nil {
		s.recalc.Enqueue(employeeID, dt.Year(), int(dt.Month()))
	}

	// Шаг 5: факт без плана - оповещение о работе вне графика
	if offPlan && createdFresh && s.notifier != nil {
		s.notifier.NotifyOffPlanWork(employeeID, dt)
	}

	return record, nil
}

// findClosestPlan ищет плановый день, минимизируя расстояние от
// отметки до ближайшего края плана в пределах TickMaxDiff
func (s *AttendanceService) findClosestPlan(params TickParams) (*models.WorkDay, error) {
	employees, err := s.employeeRepo.GetByUserID(params.UserID)
	if err != nil {
		return nil, err
	}
	if len(employees) == 0 {
		return nil, nil
	}

	employeeIDs := make([]uint, 0, len(employees))
	for _, e := range employees {
		employeeIDs = append(employeeIDs, e.ID)
	}

	dtFrom := models.DateOf(params.Dttm).AddDate(0, 0, -1)
	dtTo := models.DateOf(params.Dttm).AddDate(0, 0, 1)
	plans, err := s.workDayRepo.ListPlanApprovedForEmployees(employeeIDs, dtFrom, dtTo, params.ShopID)
	if err != nil {
		return nil, err
	}

	var best *models.WorkDay
	var bestDiff time.Duration
	for _, plan := range plans {
		diff := tickDistance(params.Dttm, params.Type, plan)
		if diff > s.cfg.TickMaxDiff {
			continue
		}
		if best == nil || diff < bestDiff {
			best = plan
			bestDiff = diff
		}
	}

	return best, nil
}

// tickDistance - расстояние от отметки до края плана с учётом типа
func tickDistance(dttm time.Time, tickType string, plan *models.WorkDay) time.Duration {
	toStart := absDuration(dttm.Sub(*plan.DttmWorkStart))
	toEnd := absDuration(dttm.Sub(*plan.DttmWorkEnd))

	switch tickType {
	case models.TickComing:
		return toStart
	case models.TickLeaving:
		return toEnd
	default:
		if toStart < toEnd {
			return toStart
		}
		return toEnd
	}
}

func inferTickType(dttm time.Time, plan *models.WorkDay) string {
	toStart := absDuration(dttm.Sub(*plan.DttmWorkStart))
	toEnd := absDuration(dttm.Sub(*plan.DttmWorkEnd))
	if toStart <= toEnd {
		return models.TickComing
	}
	return models.TickLeaving
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func (s *AttendanceService) resolveEmployee(params TickParams) (*models.Employee, error) {
	employees, err := s.employeeRepo.GetByUserID(params.UserID)
	if err != nil {
		return nil, err
	}

	for _, employee := range employees {
		if _, err := s.employmentSvc.ActiveEmployment(employee.ID, params.Dttm, &params.ShopID, nil); err == nil {
			return employee, nil
		}
	}

	return nil, ErrNoActiveEmployment
}

// applyTick обновляет фактический подтверждённый день и его
// неподтверждённое зеркало под блокировкой строки. Состояние никогда
// не откатывается более поздним событием.
func (s *AttendanceService) applyTick(
	scope tickScope,
	shop *models.Shop,
	record *models.AttendanceRecord,
	plan *models.WorkDay,
	employeeID uint,
	dt time.Time,
) (createdFresh bool, err error) {
	fact, err := scope.workDays.LockVersion(employeeID, dt, true, true)
	if err != nil {
		return false, err
	}

	// Водяной знак: событие старше текущего состояния игнорируется
	if fact != nil && fact.DttmEvent != nil && record.DttmEvent.Before(*fact.DttmEvent) {
		s.logger.WithFields(logrus.Fields{
			"employee_id": employeeID,
			"dt":          dt.Format("2006-01-02"),
		}).Debug("Stale attendance event ignored")
		return false, nil
	}

	if record.Type == models.TickLeaving && (fact == nil || fact.DttmWorkStart == nil) {
		// Уход без открытого факта: сперва попытка закрыть вчерашнюю
		// открытую смену
		closed, err := s.closePreviousDay(scope, shop, record, employeeID, dt)
		if err != nil {
			return false, err
		}
		if closed {
			return false, nil
		}
	}

	dttm := record.Dttm
	if fact == nil {
		shopID := shop.ID
		fact = &models.WorkDay{
			EmployeeID: &employeeID,
			Dt:         dt,
			IsFact:     true,
			IsApproved: true,
			TypeCode:   models.TypeWorkday,
			ShopID:     &shopID,
			// Начало известно и для неожиданного ухода: граница смены
			DttmWorkStart: &dttm,
		}
		if record.Type == models.TickLeaving {
			fact.DttmWorkEnd = &dttm
			start := dttm.Add(-time.Minute)
			fact.DttmWorkStart = &start
		}
		createdFresh = true
	} else {
		switch record.Type {
		case models.TickComing:
			// Приход никогда не сдвигает начало на более позднее время
			if fact.DttmWorkStart == nil || dttm.Before(*fact.DttmWorkStart) {
				fact.DttmWorkStart = &dttm
			}
		case models.TickLeaving:
			// Уход закрывает открытую смену или отодвигает конец позже
			if fact.DttmWorkEnd == nil || dttm.After(*fact.DttmWorkEnd) {
				if fact.DttmWorkStart != nil && dttm.After(*fact.DttmWorkStart) {
					fact.DttmWorkEnd = &dttm
				}
			}
		}
	}

	fact.DttmEvent = &record.DttmEvent

	if err := s.saveFact(scope, shop, fact, plan, employeeID); err != nil {
		return false, err
	}

	if err := s.ensureDetails(scope, shop, fact, plan); err != nil {
		return false, err
	}

	if err := s.mirrorNotApproved(scope, fact); err != nil {
		return false, err
	}

	return createdFresh, nil
}

// closePreviousDay закрывает вчерашнюю открытую смену, если уход
// укладывается в максимальную длительность смены и сеть разрешает
// закрытие через полночь
func (s *AttendanceService) closePreviousDay(
	scope tickScope,
	shop *models.Shop,
	record *models.AttendanceRecord,
	employeeID uint,
	dt time.Time,
) (bool, error) {
	if !shop.Network.AllowCrossDayClose {
		return false, nil
	}

	prevDt := dt.AddDate(0, 0, -1)
	prev, err := scope.workDays.LockVersion(employeeID, prevDt, true, true)
	if err != nil {
		return false, err
	}
	if prev == nil || !prev.IsOpenFact() {
		return false, nil
	}
	if record.Dttm.Sub(*prev.DttmWorkStart) >= s.cfg.MaxWorkShift {
		return false, nil
	}

	dttm := record.Dttm
	prev.DttmWorkEnd = &dttm
	prev.DttmEvent = &record.DttmEvent

	prevPlan, err := scope.workDays.GetVersion(employeeID, prevDt, false, true)
	if err != nil {
		return false, err
	}

	if err := s.saveFact(scope, shop, prev, prevPlan, employeeID); err != nil {
		return false, err
	}
	if err := s.mirrorNotApproved(scope, prev); err != nil {
		return false, err
	}

	s.logger.WithFields(logrus.Fields{
		"employee_id": employeeID,
		"dt":          prevDt.Format("2006-01-02"),
	}).Info("Previous day open fact closed by leaving tick")

	return true, nil
}

// saveFact пересчитывает часы и сохраняет фактический день
func (s *AttendanceService) saveFact(
	scope tickScope,
	shop *models.Shop,
	fact *models.WorkDay,
	plan *models.WorkDay,
	employeeID uint,
) error {
	t, err := scope.catalog.GetWorkDayType(fact.TypeCode)
	if err != nil {
		return err
	}

	var employment *models.Employment
	if fact.EmploymentID != nil {
		employment, err = scope.employments.GetByID(*fact.EmploymentID)
		if err != nil {
			return err
		}
	}
	if employment == nil {
		employment, err = scope.employments.ActiveEmployment(employeeID, fact.Dt, fact.ShopID, nil)
		if err != nil {
			return err
		}
		fact.EmploymentID = &employment.ID
	}

	var position *models.Position
	if employment != nil {
		position = &employment.Position
	}
	rules, err := scope.calendar.BreakRulesFor(position, shop, &shop.Network)
	if err != nil {
		return err
	}

	input := CalcInput{
		WorkDay:    fact,
		Type:       t,
		Employment: employment,
		Shop:       shop,
		Network:    &shop.Network,
		Plan:       plan,
		BreakRules: rules,
	}

	if shop.Network.CropByShopSchedule && fact.Crop {
		open, close, ok, err := scope.schedule.Schedule(shop, fact.Dt)
		if err != nil {
			return err
		}
		if ok {
			input.ShopOpen = &open
			input.ShopClose = &close
		}
	}

	hours := Calculate(input)
	fact.WorkHours = hours.Total
	fact.DayHours = hours.Day
	fact.NightHours = hours.Night
	fact.DttmWorkStartTabel = hours.StartTabel
	fact.DttmWorkEndTabel = hours.EndTabel

	if fact.ID == 0 {
		return scope.workDays.Create(fact)
	}
	return scope.workDays.Save(fact)
}

// ensureDetails заполняет виды работ факта: копия из плана того же
// магазина, сопоставление по каталогу между магазинами, иначе
// приоритетный вид работ трудоустройства
func (s *AttendanceService) ensureDetails(
	scope tickScope,
	shop *models.Shop,
	fact *models.WorkDay,
	plan *models.WorkDay,
) error {
	current, err := scope.workDays.GetByID(fact.ID)
	if err != nil {
		return err
	}
	if current != nil && len(current.Details) > 0 {
		return nil
	}

	var details []models.WorkDayDetail

	if plan != nil && len(plan.Details) > 0 {
		if plan.ShopID != nil && fact.ShopID != nil && *plan.ShopID == *fact.ShopID {
			for _, d := range plan.Details {
				details = append(details, models.WorkDayDetail{
					WorkTypeID: d.WorkTypeID,
					WorkPart:   d.WorkPart,
				})
			}
		} else {
			// Другой магазин: сопоставление по записи каталога
			for _, d := range plan.Details {
				mapped, err := scope.catalog.GetWorkTypeByShopAndName(shop.ID, d.WorkType.WorkTypeNameID)
				if err != nil {
					return err
				}
				if mapped != nil {
					details = append(details, models.WorkDayDetail{
						WorkTypeID: mapped.ID,
						WorkPart:   d.WorkPart,
					})
				}
			}
		}
	}

	if len(details) == 0 && fact.EmploymentID != nil {
		employment, err := scope.employments.GetByID(*fact.EmploymentID)
		if err != nil {
			return err
		}
		if employment != nil && employment.PriorityWorkTypeID != nil {
			details = []models.WorkDayDetail{{WorkTypeID: *employment.PriorityWorkTypeID, WorkPart: 1.0}}
		}
	}

	if len(details) == 0 {
		return nil
	}

	return scope.workDays.ReplaceDetails(fact.ID, details)
}

// mirrorNotApproved отражает подтверждённый факт в неподтверждённую
// версию. Правленая пользователем версия (created_by заполнен)
// не перезаписывается.
func (s *AttendanceService) mirrorNotApproved(scope tickScope, fact *models.WorkDay) error {
	if fact.EmployeeID == nil {
		return nil
	}

	mirror, err := scope.workDays.LockVersion(*fact.EmployeeID, fact.Dt, true, false)
	if err != nil {
		return err
	}

	if mirror == nil {
		copyWd := *fact
		copyWd.ID = 0
		copyWd.IsApproved = false
		copyWd.Details = nil
		copyWd.CreatedByID = nil
		if err := scope.workDays.Create(&copyWd); err != nil {
			return err
		}
		var details []models.WorkDayDetail
		for _, d := range fact.Details {
			details = append(details, models.WorkDayDetail{WorkTypeID: d.WorkTypeID, WorkPart: d.WorkPart})
		}
		if len(details) > 0 {
			return scope.workDays.ReplaceDetails(copyWd.ID, details)
		}
		return nil
	}

	if mirror.CreatedByID != nil {
		return nil
	}

	mirror.DttmWorkStart = fact.DttmWorkStart
	mirror.DttmWorkEnd = fact.DttmWorkEnd
	mirror.DttmWorkStartTabel = fact.DttmWorkStartTabel
	mirror.DttmWorkEndTabel = fact.DttmWorkEndTabel
	mirror.WorkHours = fact.WorkHours
	mirror.DayHours = fact.DayHours
	mirror.NightHours = fact.NightHours
	mirror.TypeCode = fact.TypeCode
	mirror.ShopID = fact.ShopID
	mirror.EmploymentID = fact.EmploymentID
	mirror.DttmEvent = fact.DttmEvent

	return scope.workDays.Save(mirror)
}
