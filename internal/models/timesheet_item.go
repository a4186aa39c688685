package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Виды табеля
const (
	TimesheetFact       = "F" // фактический
	TimesheetMain       = "M" // основной
	TimesheetAdditional = "A" // дополнительный
)

// Источники строк табеля
const (
	TimesheetSourcePlan   = "plan"
	TimesheetSourceFact   = "fact"
	TimesheetSourceManual = "manual"
	TimesheetSourceSystem = "system"
)

// TimesheetItem - строка фискального табеля: разложение дня сотрудника
// по виду табеля и источнику
type TimesheetItem struct {
	ID uint `gorm:"primaryKey" json:"id"`

	EmployeeID    uint      `gorm:"not null;index:idx_timesheet_employee_day" json:"employee_id"`
	Dt            time.Time `gorm:"type:date;not null;index:idx_timesheet_employee_day" json:"dt"`
	TimesheetType string    `gorm:"type:varchar(1);not null;index" json:"timesheet_type"`
	Source        string    `gorm:"type:varchar(10);not null;default:'system'" json:"source"`

	ShopID         *uint  `gorm:"index" json:"shop_id"`
	PositionID     *uint  `json:"position_id"`
	WorkTypeNameID *uint  `json:"work_type_name_id"`
	DayTypeCode    string `gorm:"type:varchar(4);not null;default:'H'" json:"day_type"`

	DttmWorkStart *time.Time `json:"dttm_work_start"`
	DttmWorkEnd   *time.Time `json:"dttm_work_end"`

	DayHours   decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"day_hours"`
	NightHours decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"night_hours"`

	CreatedAt time.Time `json:"created_at"`
}

func (TimesheetItem) TableName() string {
	return "timesheet_items"
}

// TotalHours возвращает сумму дневных и ночных часов строки
func (it *TimesheetItem) TotalHours() decimal.Decimal {
	return it.DayHours.Add(it.NightHours)
}

// SubtractHours вычитает hours из строки: сперва из ночных, затем из
// дневных часов. Возвращает новую строку с вычтенной частью; у остатка
// сдвигается конец интервала, у вычтенной части - начало.
func (it *TimesheetItem) SubtractHours(hours decimal.Decimal) TimesheetItem {
	if hours.GreaterThan(it.TotalHours()) {
		hours = it.TotalHours()
	}

	taken := *it
	taken.ID = 0
	taken.DayHours = decimal.Zero
	taken.NightHours = decimal.Zero

	rest := hours
	if it.NightHours.GreaterThan(decimal.Zero) {
		fromNight := decimal.Min(it.NightHours, rest)
		it.NightHours = it.NightHours.Sub(fromNight)
		taken.NightHours = fromNight
		rest = rest.Sub(fromNight)
	}
	if rest.GreaterThan(decimal.Zero) {
		fromDay := decimal.Min(it.DayHours, rest)
		it.DayHours = it.DayHours.Sub(fromDay)
		taken.DayHours = fromDay
	}

	// Интервал делится в точке "конец минус вычтенные часы"
	if it.DttmWorkStart != nil && it.DttmWorkEnd != nil {
		cut := it.DttmWorkEnd.Add(-time.Duration(hours.InexactFloat64() * float64(time.Hour)))
		if cut.Before(*it.DttmWorkStart) {
			cut = *it.DttmWorkStart
		}
		cutCopy := cut
		takenEnd := *it.DttmWorkEnd
		taken.DttmWorkStart = &cutCopy
		taken.DttmWorkEnd = &takenEnd
		it.DttmWorkEnd = &cutCopy
	}

	return taken
}

// IsZero сообщает, что в строке не осталось часов
func (it *TimesheetItem) IsZero() bool {
	return it.TotalHours().LessThanOrEqual(decimal.Zero)
}
