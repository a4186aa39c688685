package service

import (
	"sort"
	"time"
	"wfm-backend/internal/models"

	"github.com/shopspring/decimal"
)

// Пороги деления табеля: дневной потолок основного табеля и нижняя
// граница дня при переносе переработки
var (
	timesheetMaxDayHours = decimal.NewFromInt(12)
	timesheetMinDayHours = decimal.NewFromInt(4)
)

// Минимум выходных в каждом скользящем 7-дневном окне
const weeklyRestMinHolidays = 2

// monthSheet - упорядоченный табель месяца: дата -> строки
type monthSheet struct {
	days map[time.Time][]*models.TimesheetItem
}

func newMonthSheet() *monthSheet {
	return &monthSheet{days: map[time.Time][]*models.TimesheetItem{}}
}

func (m *monthSheet) add(dt time.Time, item *models.TimesheetItem) {
	dt = models.DateOf(dt)
	item.Dt = dt
	m.days[dt] = append(m.days[dt], item)
}

func (m *monthSheet) items(dt time.Time) []*models.TimesheetItem {
	return m.days[models.DateOf(dt)]
}

func (m *monthSheet) replace(dt time.Time, items []*models.TimesheetItem) {
	dt = models.DateOf(dt)
	if len(items) == 0 {
		delete(m.days, dt)
		return
	}
	m.days[dt] = items
}

func (m *monthSheet) totalFor(dt time.Time) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range m.items(dt) {
		sum = sum.Add(it.TotalHours())
	}
	return sum
}

func (m *monthSheet) total() decimal.Decimal {
	sum := decimal.Zero
	for dt := range m.days {
		sum = sum.Add(m.totalFor(dt))
	}
	return sum
}

func (m *monthSheet) dates() []time.Time {
	dates := make([]time.Time, 0, len(m.days))
	for dt := range m.days {
		dates = append(dates, dt)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// dividerContext - состояние одного прогона деления табеля
type dividerContext struct {
	employeeID uint
	monthStart time.Time
	monthEnd   time.Time

	fact       *monthSheet
	main       *monthSheet
	additional *monthSheet

	employments []*models.Employment
	dayTypes    map[string]*models.WorkDayType
	normHours   decimal.Decimal
}

// activeEmployment - действующее трудоустройство на дату,
// при нескольких побеждает больший приоритет
func (ctx *dividerContext) activeEmployment(dt time.Time) *models.Employment {
	var best *models.Employment
	for _, e := range ctx.employments {
		if !e.IsActiveOn(dt) {
			continue
		}
		if best == nil || e.Priority > best.Priority {
			best = e
		}
	}
	return best
}

// isHoliday: дата без строк, с нулевыми часами или только с выходными
// типами без оплачиваемых часов
func (ctx *dividerContext) isHoliday(dt time.Time) bool {
	items := ctx.main.items(dt)
	if len(items) == 0 {
		return true
	}
	if ctx.main.totalFor(dt).LessThanOrEqual(decimal.Zero) {
		return true
	}
	for _, it := range items {
		t := ctx.dayTypes[it.DayTypeCode]
		if t == nil || !t.IsDayoff || t.IsWorkHours {
			return false
		}
	}
	return true
}

// moveDayToAdditional переносит все строки даты из основного табеля
// в дополнительный, делая дату выходным
func (ctx *dividerContext) moveDayToAdditional(dt time.Time) {
	for _, it := range ctx.main.items(dt) {
		if it.TotalHours().GreaterThan(decimal.Zero) {
			ctx.additional.add(dt, it)
		}
	}
	ctx.main.replace(dt, nil)
	ctx.main.add(dt, holidayItem(ctx.employeeID, dt))
}

// dividerStage - именованный шаг конвейера деления
type dividerStage struct {
	name string
	run  func(ctx *dividerContext) error
}

// baseDividerPipeline - базовый конвейер: заполнение основного табеля,
// еженедельный отдых, дневной потолок, месячная норма
func baseDividerPipeline() []dividerStage {
	return []dividerStage{
		{name: "fill_main", run: stageFillMain},
		{name: "weekly_rest", run: stageWeeklyRest},
		{name: "daily_cap", run: stageDailyCap},
		{name: "monthly_norm", run: stageMonthlyNorm},
	}
}

// dividerPipelineFor выбирает конвейер по коду деления сети
func dividerPipelineFor(dividerCode string) []dividerStage {
	switch dividerCode {
	case models.DividerPobeda:
		base := baseDividerPipeline()
		pipeline := make([]dividerStage, 0, len(base)+2)
		pipeline = append(pipeline, base[0])
		pipeline = append(pipeline, dividerStage{name: "employment_mismatch", run: stageEmploymentMismatch})
		pipeline = append(pipeline, base[1:]...)
		pipeline = append(pipeline, dividerStage{name: "holiday_fill", run: stageHolidayFill})
		return pipeline
	default:
		// Находка и сети без особых правил используют базовый конвейер
		return baseDividerPipeline()
	}
}

// stageFillMain копирует фактические строки в основной табель.
// Даты без фактической работы становятся выходными.
func stageFillMain(ctx *dividerContext) error {
	for dt := ctx.monthStart; !dt.After(ctx.monthEnd); dt = dt.AddDate(0, 0, 1) {
		items := ctx.fact.items(dt)

		worked := false
		for _, it := range items {
			clone := *it
			clone.ID = 0
			ctx.main.add(dt, &clone)
			if clone.TotalHours().GreaterThan(decimal.Zero) {
				worked = true
			}
		}

		if !worked {
			ctx.main.replace(dt, nil)
			ctx.main.add(dt, holidayItem(ctx.employeeID, dt))
		}
	}
	return nil
}

func holidayItem(employeeID uint, dt time.Time) *models.TimesheetItem {
	return &models.TimesheetItem{
		EmployeeID:  employeeID,
		Dt:          models.DateOf(dt),
		DayTypeCode: models.TypeHoliday,
		Source:      models.TimesheetSourceSystem,
		DayHours:    decimal.Zero,
		NightHours:  decimal.Zero,
	}
}

// stageWeeklyRest гарантирует два выходных в каждой календарной неделе
// (понедельник-воскресенье), затрагивающей месяц. Дни соседних месяцев
// считаются выходными: их нельзя перенести из этого прогона.
func stageWeeklyRest(ctx *dividerContext) error {
	weekStart := ctx.monthStart
	for weekStart.Weekday() != time.Monday {
		weekStart = weekStart.AddDate(0, 0, -1)
	}

	for ; !weekStart.After(ctx.monthEnd); weekStart = weekStart.AddDate(0, 0, 7) {
		var holidays, workdays []time.Time
		for i := 0; i < 7; i++ {
			dt := weekStart.AddDate(0, 0, i)
			if dt.Before(ctx.monthStart) || dt.After(ctx.monthEnd) {
				holidays = append(holidays, dt)
				continue
			}
			if ctx.isHoliday(dt) {
				holidays = append(holidays, dt)
			} else {
				workdays = append(workdays, dt)
			}
		}

		if len(holidays) >= weeklyRestMinHolidays {
			continue
		}

		if len(holidays) == 1 {
			ctx.moveDayToAdditional(adjacentRestDay(holidays[0], ctx))
			continue
		}

		// Совсем без выходных: последние два дня недели
		for i := 0; i < weeklyRestMinHolidays && i < len(workdays); i++ {
			ctx.moveDayToAdditional(workdays[len(workdays)-1-i])
		}
	}

	return nil
}

// adjacentRestDay выбирает день рядом с единственным выходным:
// суббота для воскресенья, иначе следующий день
func adjacentRestDay(holiday time.Time, ctx *dividerContext) time.Time {
	var candidate time.Time
	if holiday.Weekday() == time.Sunday {
		candidate = holiday.AddDate(0, 0, -1)
	} else {
		candidate = holiday.AddDate(0, 0, 1)
	}
	if candidate.Before(ctx.monthStart) || candidate.After(ctx.monthEnd) {
		if holiday.Weekday() == time.Sunday {
			candidate = holiday.AddDate(0, 0, 1)
		} else {
			candidate = holiday.AddDate(0, 0, -1)
		}
	}
	return candidate
}

// stageDailyCap срезает превышение дневного потолка основного табеля
// в дополнительный
func stageDailyCap(ctx *dividerContext) error {
	for _, dt := range ctx.main.dates() {
		overflow := ctx.main.totalFor(dt).Sub(timesheetMaxDayHours)
		if overflow.LessThanOrEqual(decimal.Zero) {
			continue
		}
		subtractFromDay(ctx, dt, overflow)
	}
	return nil
}

// subtractFromDay снимает hours со строк даты основного табеля
// (с конца) и кладёт снятое в дополнительный
func subtractFromDay(ctx *dividerContext, dt time.Time, hours decimal.Decimal) decimal.Decimal {
	items := ctx.main.items(dt)
	taken := decimal.Zero

	for i := len(items) - 1; i >= 0 && hours.GreaterThan(decimal.Zero); i-- {
		it := items[i]
		portion := decimal.Min(it.TotalHours(), hours)
		if portion.LessThanOrEqual(decimal.Zero) {
			continue
		}
		moved := it.SubtractHours(portion)
		ctx.additional.add(dt, &moved)
		hours = hours.Sub(portion)
		taken = taken.Add(portion)
	}

	var rest []*models.TimesheetItem
	for _, it := range items {
		if !it.IsZero() {
			rest = append(rest, it)
		}
	}
	ctx.main.replace(dt, rest)
	if len(rest) == 0 {
		ctx.main.add(dt, holidayItem(ctx.employeeID, dt))
	}

	return taken
}

// stageMonthlyNorm балансирует основной табель к месячной норме:
// переработка уходит в дополнительный, недоработка добирается обратно
func stageMonthlyNorm(ctx *dividerContext) error {
	overtime := ctx.main.total().Sub(ctx.normHours)

	if overtime.GreaterThan(decimal.Zero) {
		for _, dt := range ctx.main.dates() {
			if overtime.LessThanOrEqual(decimal.Zero) {
				break
			}
			// День не опускается ниже минимального порога
			available := ctx.main.totalFor(dt).Sub(timesheetMinDayHours)
			if available.LessThanOrEqual(decimal.Zero) {
				continue
			}
			portion := decimal.Min(available, overtime)
			overtime = overtime.Sub(subtractFromDay(ctx, dt, portion))
		}
		return nil
	}

	if overtime.LessThan(decimal.Zero) {
		deficit := overtime.Neg()
		for _, dt := range ctx.additional.dates() {
			if deficit.LessThanOrEqual(decimal.Zero) {
				break
			}
			capacity := timesheetMaxDayHours.Sub(ctx.main.totalFor(dt))
			if capacity.LessThanOrEqual(decimal.Zero) {
				continue
			}

			items := ctx.additional.items(dt)
			var rest []*models.TimesheetItem
			for _, it := range items {
				portion := decimal.Min(decimal.Min(it.TotalHours(), capacity), deficit)
				if portion.GreaterThan(decimal.Zero) {
					moved := it.SubtractHours(portion)
					ctx.main.add(dt, &moved)
					capacity = capacity.Sub(portion)
					deficit = deficit.Sub(portion)
				}
				if !it.IsZero() {
					rest = append(rest, it)
				}
			}
			ctx.additional.replace(dt, rest)
		}
	}

	return nil
}

// stageEmploymentMismatch (Победа): строки с магазином или должностью,
// отличными от действующего трудоустройства дня, уходят в дополнительный
func stageEmploymentMismatch(ctx *dividerContext) error {
	for _, dt := range ctx.main.dates() {
		employment := ctx.activeEmployment(dt)
		if employment == nil {
			continue
		}

		items := ctx.main.items(dt)
		var rest []*models.TimesheetItem
		for _, it := range items {
			mismatch := (it.ShopID != nil && *it.ShopID != employment.ShopID) ||
				(it.PositionID != nil && *it.PositionID != employment.PositionID)
			if mismatch && it.TotalHours().GreaterThan(decimal.Zero) {
				ctx.additional.add(dt, it)
			} else {
				rest = append(rest, it)
			}
		}
		ctx.main.replace(dt, rest)
		if len(rest) == 0 {
			ctx.main.add(dt, holidayItem(ctx.employeeID, dt))
		}
	}
	return nil
}

// stageHolidayFill (Победа): пустые даты месяца получают явную строку
// выходного
func stageHolidayFill(ctx *dividerContext) error {
	for dt := ctx.monthStart; !dt.After(ctx.monthEnd); dt = dt.AddDate(0, 0, 1) {
		if len(ctx.main.items(dt)) == 0 {
			ctx.main.add(dt, holidayItem(ctx.employeeID, dt))
		}
	}
	return nil
}
