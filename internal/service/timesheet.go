package service

import (
	"time"
	"wfm-backend/internal/models"
	"wfm-backend/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// TimesheetLine - строка табеля для отображения: сотрудник, вид табеля
// и часы по дням месяца
type TimesheetLine struct {
	EmployeeID    uint                       `json:"employee_id"`
	TimesheetType string                     `json:"timesheet_type"`
	Days          map[string]decimal.Decimal `json:"days"`
	TotalHours    decimal.Decimal            `json:"total_hours"`
}

// TimesheetService делит фактические часы месяца на основной и
// дополнительный табели
type TimesheetService struct {
	timesheetRepo repository.TimesheetRepository
	workDayRepo   repository.WorkDayRepository
	employeeRepo  repository.EmployeeRepository
	shopRepo      repository.ShopRepository
	catalogRepo   repository.CatalogRepository
	employmentSvc *EmploymentService
	calendar      *CalendarService
	logger        *logrus.Logger
}

func NewTimesheetService(
	timesheetRepo repository.TimesheetRepository,
	workDayRepo repository.WorkDayRepository,
	employeeRepo repository.EmployeeRepository,
	shopRepo repository.ShopRepository,
	catalogRepo repository.CatalogRepository,
	employmentSvc *EmploymentService,
	calendar *CalendarService,
) *TimesheetService {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	return &TimesheetService{
		timesheetRepo: timesheetRepo,
		workDayRepo:   workDayRepo,
		employeeRepo:  employeeRepo,
		shopRepo:      shopRepo,
		catalogRepo:   catalogRepo,
		employmentSvc: employmentSvc,
		calendar:      calendar,
		logger:        logger,
	}
}

// RecalcMonth пересчитывает табель сотрудника за месяц: фактические
// подтверждённые дни прогоняются через конвейер деления сети, итог
// атомарно заменяет прежние строки. Повторный прогон идемпотентен.
func (s *TimesheetService) RecalcMonth(employeeID uint, year, month int) error {
	employee, err := s.employeeRepo.GetByID(employeeID)
	if err != nil {
		return err
	}
	if employee == nil {
		return ErrNotFound
	}

	network, err := s.shopRepo.GetNetwork(employee.NetworkID)
	if err != nil {
		return err
	}

	dividerCode := models.DividerBase
	if network != nil {
		dividerCode = network.TimesheetDivider
	}

	ctx, err := s.buildContext(employeeID, year, month)
	if err != nil {
		return err
	}

	for _, stage := range dividerPipelineFor(dividerCode) {
		if err := stage.run(ctx); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"employee_id": employeeID,
				"stage":       stage.name,
			}).Error("Timesheet divider stage failed")
			return err
		}
	}

	items := collectItems(ctx)
	if err := s.timesheetRepo.ReplaceForMonth(employeeID, year, month, items); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"employee_id": employeeID,
		"year":        year,
		"month":       month,
		"divider":     dividerCode,
		"items":       len(items),
	}).Info("Timesheet recalculated")

	return nil
}

// buildContext собирает вход деления: фактический табель,
// трудоустройства месяца и месячную норму
func (s *TimesheetService) buildContext(employeeID uint, year, month int) (*dividerContext, error) {
	monthStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)

	employments, err := s.employmentSvc.ActiveInMonth(employeeID, year, month)
	if err != nil {
		return nil, err
	}

	types, err := s.catalogRepo.ListWorkDayTypes()
	if err != nil {
		return nil, err
	}
	dayTypes := map[string]*models.WorkDayType{}
	for i := range types {
		dayTypes[types[i].Code] = &types[i]
	}

	facts, err := s.workDayRepo.ListForMonth(employeeID, year, month, true, true)
	if err != nil {
		return nil, err
	}

	ctx := &dividerContext{
		employeeID:  employeeID,
		monthStart:  monthStart,
		monthEnd:    monthEnd,
		fact:        newMonthSheet(),
		main:        newMonthSheet(),
		additional:  newMonthSheet(),
		employments: employments,
		dayTypes:    dayTypes,
	}

	reduceDays := 0
	for _, wd := range facts {
		t := dayTypes[wd.TypeCode]
		if t == nil {
			continue
		}
		if t.IsReduceNorm {
			reduceDays++
		}

		employment := s.employmentFor(ctx, wd)
		for _, item := range s.flattenWorkDay(wd, t, employment) {
			ctx.fact.add(wd.Dt, item)
		}
	}

	primary := ctx.activeEmployment(monthStart)
	if primary == nil && len(employments) > 0 {
		primary = employments[0]
	}

	region := ""
	if primary != nil {
		region = primary.Shop.Region
	}
	norm, err := s.calendar.MonthNormHours(primary, region, year, month, reduceDays)
	if err != nil {
		return nil, err
	}
	ctx.normHours = norm

	return ctx, nil
}

func (s *TimesheetService) employmentFor(ctx *dividerContext, wd *models.WorkDay) *models.Employment {
	if wd.EmploymentID != nil {
		for _, e := range ctx.employments {
			if e.ID == *wd.EmploymentID {
				return e
			}
		}
	}
	return ctx.activeEmployment(wd.Dt)
}

// flattenWorkDay превращает фактический день максимум в две строки:
// интервальную и, для выходного с оплачиваемыми часами, строку работы
// в выходной
func (s *TimesheetService) flattenWorkDay(wd *models.WorkDay, t *models.WorkDayType, employment *models.Employment) []*models.TimesheetItem {
	var items []*models.TimesheetItem

	var positionID *uint
	if employment != nil {
		p := employment.PositionID
		positionID = &p
	}

	if t.HasTime() && wd.WorkHours.GreaterThan(decimal.Zero) {
		items = append(items, &models.TimesheetItem{
			EmployeeID:     *wd.EmployeeID,
			Dt:             models.DateOf(wd.Dt),
			Source:         models.TimesheetSourceFact,
			ShopID:         wd.ShopID,
			PositionID:     positionID,
			WorkTypeNameID: dominantWorkTypeName(wd.Details),
			DayTypeCode:    wd.TypeCode,
			DttmWorkStart:  wd.DttmWorkStartTabel,
			DttmWorkEnd:    wd.DttmWorkEndTabel,
			DayHours:       wd.DayHours,
			NightHours:     wd.NightHours,
		})
	}

	if t.IsDayoffWithWorkHours() {
		hours := wd.WorkHours
		if hours.LessThanOrEqual(decimal.Zero) {
			hours = s.calendar.DailyNormHours(employment)
		}
		items = append(items, &models.TimesheetItem{
			EmployeeID:  *wd.EmployeeID,
			Dt:          models.DateOf(wd.Dt),
			Source:      models.TimesheetSourceFact,
			ShopID:      wd.ShopID,
			PositionID:  positionID,
			DayTypeCode: wd.TypeCode,
			DayHours:    hours,
			NightHours:  decimal.Zero,
		})
	}

	return items
}

// dominantWorkTypeName - вид работ с наибольшей долей дня
func dominantWorkTypeName(details []models.WorkDayDetail) *uint {
	var best *models.WorkDayDetail
	for i := range details {
		d := &details[i]
		if best == nil || d.WorkPart > best.WorkPart {
			best = d
		}
	}
	if best == nil {
		return nil
	}
	if best.WorkType.WorkTypeNameID != 0 {
		id := best.WorkType.WorkTypeNameID
		return &id
	}
	return nil
}

// collectItems выгружает три табеля в строки хранения
func collectItems(ctx *dividerContext) []models.TimesheetItem {
	var items []models.TimesheetItem
	sheets := []struct {
		sheet *monthSheet
		kind  string
	}{
		{ctx.fact, models.TimesheetFact},
		{ctx.main, models.TimesheetMain},
		{ctx.additional, models.TimesheetAdditional},
	}

	for _, s := range sheets {
		for _, dt := range s.sheet.dates() {
			for _, it := range s.sheet.items(dt) {
				row := *it
				row.ID = 0
				row.EmployeeID = ctx.employeeID
				row.TimesheetType = s.kind
				items = append(items, row)
			}
		}
	}

	return items
}

// ListItems возвращает строки табеля по фильтру
func (s *TimesheetService) ListItems(filter repository.TimesheetFilter) ([]*models.TimesheetItem, error) {
	return s.timesheetRepo.ListItems(filter)
}

// Stats возвращает агрегаты часов по сотрудникам
func (s *TimesheetService) Stats(filter repository.TimesheetFilter) ([]repository.TimesheetStat, error) {
	return s.timesheetRepo.Stats(filter)
}

// Lines группирует строки в таблицу "сотрудник x вид табеля x дни"
func (s *TimesheetService) Lines(filter repository.TimesheetFilter) ([]TimesheetLine, error) {
	items, err := s.timesheetRepo.ListItems(filter)
	if err != nil {
		return nil, err
	}

	byKey := map[[2]interface{}]*TimesheetLine{}
	var order [][2]interface{}
	for _, it := range items {
		key := [2]interface{}{it.EmployeeID, it.TimesheetType}
		line, ok := byKey[key]
		if !ok {
			line = &TimesheetLine{
				EmployeeID:    it.EmployeeID,
				TimesheetType: it.TimesheetType,
				Days:          map[string]decimal.Decimal{},
			}
			byKey[key] = line
			order = append(order, key)
		}

		day := it.Dt.Format("2006-01-02")
		line.Days[day] = line.Days[day].Add(it.TotalHours())
		line.TotalHours = line.TotalHours.Add(it.TotalHours())
	}

	lines := make([]TimesheetLine, 0, len(order))
	for _, key := range order {
		lines = append(lines, *byKey[key])
	}
	return lines, nil
}

// Recalc пересчитывает табель магазина за календарный месяц.
// Диапазон обязан совпадать с границами месяца.
func (s *TimesheetService) Recalc(shopID uint, dtFrom, dtTo time.Time, employeeIDs []uint) (int, error) {
	dtFrom = models.DateOf(dtFrom)
	dtTo = models.DateOf(dtTo)

	monthStart := time.Date(dtFrom.Year(), dtFrom.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)
	if !dtFrom.Equal(monthStart) || !dtTo.Equal(monthEnd) {
		return 0, ErrValidation
	}

	targets := map[uint]bool{}
	for _, id := range employeeIDs {
		targets[id] = true
	}

	if len(targets) == 0 {
		facts, err := s.workDayRepo.List(repository.WorkDayFilter{
			ShopID: &shopID,
			DtFrom: &dtFrom,
			DtTo:   &dtTo,
		})
		if err != nil {
			return 0, err
		}
		for _, wd := range facts {
			if wd.EmployeeID != nil {
				targets[*wd.EmployeeID] = true
			}
		}
	}

	count := 0
	for employeeID := range targets {
		if err := s.RecalcMonth(employeeID, dtFrom.Year(), int(dtFrom.Month())); err != nil {
			return count, err
		}
		count++
	}

	return count, nil
}
