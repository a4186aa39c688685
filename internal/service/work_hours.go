package service

import (
	"time"
	"wfm-backend/internal/models"
	"wfm-backend/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// HoursResult - итог расчёта часов рабочего дня
type HoursResult struct {
	Total decimal.Decimal
	Day   decimal.Decimal
	Night decimal.Decimal

	// Табельный интервал: эффективные границы после допусков и обрезки
	StartTabel *time.Time
	EndTabel   *time.Time
}

// CalcInput - разрешённый контекст расчёта. План передаётся только
// для фактических дней.
type CalcInput struct {
	WorkDay    *models.WorkDay
	Type       *models.WorkDayType
	Employment *models.Employment
	Shop       *models.Shop
	Network    *models.Network
	Plan       *models.WorkDay
	BreakRules []models.BreakRule

	// Расписание магазина на дату (nil - магазин закрыт, применяется
	// только при включённой обрезке)
	ShopOpen  *time.Time
	ShopClose *time.Time
}

// WorkHoursCalculator считает (всего, день, ночь) часы рабочего дня
// с перерывами, обрезкой, допусками и штрафами
type WorkHoursCalculator struct {
	calendar     *CalendarService
	shopSchedule *ShopScheduleService
	shopRepo     repository.ShopRepository
	workDayRepo  repository.WorkDayRepository
	logger       *logrus.Logger
}

func NewWorkHoursCalculator(
	calendar *CalendarService,
	shopSchedule *ShopScheduleService,
	shopRepo repository.ShopRepository,
	workDayRepo repository.WorkDayRepository,
) *WorkHoursCalculator {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	return &WorkHoursCalculator{
		calendar:     calendar,
		shopSchedule: shopSchedule,
		shopRepo:     shopRepo,
		workDayRepo:  workDayRepo,
		logger:       logger,
	}
}

// withTx возвращает калькулятор с зависимостями, привязанными
// к транзакции
func (c *WorkHoursCalculator) withTx(tx *gorm.DB) *WorkHoursCalculator {
	return &WorkHoursCalculator{
		calendar:     c.calendar.WithTx(tx),
		shopSchedule: c.shopSchedule.WithTx(tx),
		shopRepo:     c.shopRepo.WithTx(tx),
		workDayRepo:  c.workDayRepo.WithTx(tx),
		logger:       c.logger,
	}
}

// ForWorkDay собирает контекст расчёта из хранилища и считает часы.
// Для фактических дней подтягивается плановый двойник.
func (c *WorkHoursCalculator) ForWorkDay(wd *models.WorkDay, t *models.WorkDayType, employment *models.Employment) (HoursResult, error) {
	input := CalcInput{
		WorkDay:    wd,
		Type:       t,
		Employment: employment,
	}

	if wd.ShopID != nil {
		shop, err := c.shopRepo.GetByID(*wd.ShopID)
		if err != nil {
			return HoursResult{}, err
		}
		if shop != nil {
			input.Shop = shop
			input.Network = &shop.Network

			var position *models.Position
			if employment != nil {
				position = &employment.Position
			}
			rules, err := c.calendar.BreakRulesFor(position, shop, &shop.Network)
			if err != nil {
				return HoursResult{}, err
			}
			input.BreakRules = rules

			if shop.Network.CropByShopSchedule && wd.Crop {
				open, close, ok, err := c.shopSchedule.Schedule(shop, wd.Dt)
				if err != nil {
					return HoursResult{}, err
				}
				if ok {
					input.ShopOpen = &open
					input.ShopClose = &close
				}
			}
		}
	}

	if wd.IsFact && wd.EmployeeID != nil {
		plan, err := c.workDayRepo.GetVersion(*wd.EmployeeID, wd.Dt, false, true)
		if err != nil {
			return HoursResult{}, err
		}
		input.Plan = plan
	}

	return Calculate(input), nil
}

// Calculate выполняет расчёт по собранному контексту. Чистая функция:
// вся работа с хранилищем остаётся в ForWorkDay.
func Calculate(in CalcInput) HoursResult {
	wd := in.WorkDay

	// Шаг 1: типы без интервала и открытый факт часов не дают
	if in.Type == nil || !in.Type.HasTime() || !wd.HasInterval() {
		return HoursResult{}
	}

	wstart := *wd.DttmWorkStart
	wend := *wd.DttmWorkEnd
	if !wend.After(wstart) {
		return HoursResult{}
	}

	// Шаг 2: факт в границах плана с допусками
	onlyFactInPlan := wd.IsFact && in.Network != nil && in.Network.OnlyFactHoursInPlan
	if onlyFactInPlan {
		if in.Plan == nil || !in.Plan.HasInterval() {
			return HoursResult{}
		}
		planStart := *in.Plan.DttmWorkStart
		planEnd := *in.Plan.DttmWorkEnd

		lateMin := int(wstart.Sub(planStart).Minutes())
		if lateMin >= 0 && lateMin <= in.Network.AllowedLateArrivalMin {
			wstart = planStart
		} else if wstart.Before(planStart) {
			wstart = planStart
		}

		earlyMin := int(planEnd.Sub(wend).Minutes())
		if earlyMin >= 0 && earlyMin <= in.Network.AllowedEarlyDepartureMin {
			wend = planEnd
		} else if wend.After(planEnd) {
			wend = planEnd
		}
	}

	// Шаг 3: обрезка по расписанию магазина
	cropEnabled := in.Network != nil && in.Network.CropByShopSchedule && wd.Crop
	if cropEnabled {
		if in.ShopOpen == nil || in.ShopClose == nil {
			return HoursResult{}
		}
		if wstart.Before(*in.ShopOpen) {
			wstart = *in.ShopOpen
		}
		if wend.After(*in.ShopClose) {
			wend = *in.ShopClose
		}
	}

	if !wend.After(wstart) {
		return HoursResult{}
	}

	// Шаги 4-5: перерыв по длине смены; если факт всё ещё длиннее
	// плана, перерыв берётся от плановой длины
	grossMin := int(wend.Sub(wstart).Minutes())
	breakBasisMin := grossMin
	if onlyFactInPlan && in.Plan != nil && in.Plan.HasInterval() {
		planGross := int(in.Plan.DttmWorkEnd.Sub(*in.Plan.DttmWorkStart).Minutes())
		if grossMin > planGross {
			breakBasisMin = planGross
		}
	}
	breakMin := BreakMinutesFor(in.BreakRules, breakBasisMin)

	// Шаг 6: штрафы только для факта по знаковым отклонениям
	// от плана (по исходному, не обрезанному интервалу)
	fineMin := 0
	if wd.IsFact && in.Plan != nil && in.Plan.HasInterval() && in.Employment != nil {
		arriveDelta := int(wd.DttmWorkStart.Sub(*in.Plan.DttmWorkStart).Minutes())
		departDelta := int(in.Plan.DttmWorkEnd.Sub(*wd.DttmWorkEnd).Minutes())
		fines := in.Employment.Position.Fines
		fineMin = models.PenaltyFor(fines, models.FineArrive, arriveDelta) +
			models.PenaltyFor(fines, models.FineDepart, departDelta)
	}

	// Шаг 8: ночное окно с переходом через полночь
	nightGrossMin := 0
	if in.Network != nil {
		tnStart, tnEnd := in.Network.NightWindow()
		nightGrossMin = nightOverlapMinutes(wstart, wend, tnStart, tnEnd)
	}
	dayGrossMin := grossMin - nightGrossMin

	// Правило "пополам": при ночи больше половины перерыва день и ночь
	// дебетуются симметрично, иначе весь перерыв вычитается из дня
	halfBreak := decimal.NewFromInt(int64(breakMin)).Div(decimal.NewFromInt(2))
	dayMin := decimal.NewFromInt(int64(dayGrossMin))
	nightMin := decimal.NewFromInt(int64(nightGrossMin))
	if nightMin.GreaterThan(halfBreak) {
		dayMin = dayMin.Sub(halfBreak)
		nightMin = nightMin.Sub(halfBreak)
	} else {
		dayMin = dayMin.Sub(decimal.NewFromInt(int64(breakMin)))
	}

	// Шаг 7: штраф вычитается сперва из дневных минут
	fine := decimal.NewFromInt(int64(fineMin))
	if fine.GreaterThan(decimal.Zero) {
		fromDay := decimal.Min(dayMin, fine)
		dayMin = dayMin.Sub(fromDay)
		nightMin = nightMin.Sub(fine.Sub(fromDay))
	}

	if dayMin.IsNegative() {
		dayMin = decimal.Zero
	}
	if nightMin.IsNegative() {
		nightMin = decimal.Zero
	}

	sixty := decimal.NewFromInt(60)
	night := nightMin.Div(sixty).Round(2)
	total := dayMin.Add(nightMin).Div(sixty).Round(2)
	day := total.Sub(night)

	startTabel := wstart
	endTabel := wend
	return HoursResult{
		Total:      total,
		Day:        day,
		Night:      night,
		StartTabel: &startTabel,
		EndTabel:   &endTabel,
	}
}

// nightOverlapMinutes считает пересечение интервала с ночными окнами
// (tn_start, 24:00) и (00:00, tn_end) каждого затронутого дня
func nightOverlapMinutes(start, end time.Time, tnStartMin, tnEndMin int) int {
	total := 0
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	// Окно предыдущего дня может дотягиваться до начала интервала
	day = day.AddDate(0, 0, -1)

	for !day.After(end) {
		evening := day.Add(time.Duration(tnStartMin) * time.Minute)
		midnight := day.AddDate(0, 0, 1)
		morning := midnight.Add(time.Duration(tnEndMin) * time.Minute)

		total += overlapMinutes(start, end, evening, midnight)
		total += overlapMinutes(start, end, midnight, morning)

		day = midnight
	}

	return total
}

func overlapMinutes(aStart, aEnd, bStart, bEnd time.Time) int {
	s := aStart
	if bStart.After(s) {
		s = bStart
	}
	e := aEnd
	if bEnd.Before(e) {
		e = bEnd
	}
	if !e.After(s) {
		return 0
	}
	return int(e.Sub(s).Minutes())
}
