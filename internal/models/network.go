package models

import (
	"time"
)

// Коды вариантов разделителя табеля
const (
	DividerBase    = ""
	DividerPobeda  = "pobeda"
	DividerNahodka = "nahodka"
)

// Network - торговая сеть. Хранит сетевые настройки расчёта часов:
// границы ночного времени, допуски опоздания/раннего ухода и флаги
// режима "факт только в границах плана".
type Network struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"uniqueIndex;not null" json:"code"`
	Name string `gorm:"not null" json:"name"`

	// Границы ночного времени в формате "15:04" (окно оборачивается через полночь)
	NightStart string `gorm:"type:varchar(5);not null;default:'22:00'" json:"night_start"`
	NightEnd   string `gorm:"type:varchar(5);not null;default:'06:00'" json:"night_end"`

	// Факт учитывается только в границах планового интервала
	OnlyFactHoursInPlan bool `gorm:"not null;default:false" json:"only_fact_hours_in_plan"`
	// Обрезать фактический интервал по расписанию магазина
	CropByShopSchedule bool `gorm:"not null;default:false" json:"crop_by_shop_schedule"`
	// Разрешить закрывать смену предыдущего дня уходящей отметкой
	AllowCrossDayClose bool `gorm:"not null;default:true" json:"allow_cross_day_close"`

	// Допуски в минутах: в их пределах факт прилипает к плану
	AllowedLateArrivalMin    int `gorm:"not null;default:0" json:"allowed_late_arrival_min"`
	AllowedEarlyDepartureMin int `gorm:"not null;default:0" json:"allowed_early_departure_min"`

	// Перерывы уровня сети (последняя ступень фолбэка)
	BreakSetID *uint `json:"break_set_id"`

	// Вариант разделителя фискального табеля
	TimesheetDivider string `gorm:"type:varchar(20);not null;default:''" json:"timesheet_divider"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Network) TableName() string {
	return "networks"
}

// IsValid проверяет валидность настроек сети
func (n *Network) IsValid() bool {
	if n.Code == "" || n.Name == "" {
		return false
	}
	if _, err := time.Parse("15:04", n.NightStart); err != nil {
		return false
	}
	if _, err := time.Parse("15:04", n.NightEnd); err != nil {
		return false
	}
	switch n.TimesheetDivider {
	case DividerBase, DividerPobeda, DividerNahodka:
	default:
		return false
	}
	return true
}

// NightWindow возвращает границы ночного окна в минутах от полуночи
func (n *Network) NightWindow() (startMin, endMin int) {
	start, _ := time.Parse("15:04", n.NightStart)
	end, _ := time.Parse("15:04", n.NightEnd)
	return start.Hour()*60 + start.Minute(), end.Hour()*60 + end.Minute()
}
