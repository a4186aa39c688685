package models

import (
	"time"
)

// Типы производственного дня
const (
	ProdDayWork    = "W" // рабочий
	ProdDayHoliday = "H" // выходной или праздник
	ProdDayShort   = "S" // сокращённый (предпраздничный)
)

// ProductionDay - день производственного календаря региона.
// Для отсутствующих дат тип выводится из дня недели.
type ProductionDay struct {
	ID     uint      `gorm:"primaryKey" json:"id"`
	Region string    `gorm:"not null;default:'';index:idx_production_day,unique" json:"region"`
	Dt     time.Time `gorm:"type:date;not null;index:idx_production_day,unique" json:"dt"`
	Type   string    `gorm:"type:varchar(1);not null" json:"type"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProductionDay) TableName() string {
	return "production_days"
}

// IsValid проверяет валидность записи календаря
func (p *ProductionDay) IsValid() bool {
	if p.Dt.IsZero() {
		return false
	}
	switch p.Type {
	case ProdDayWork, ProdDayHoliday, ProdDayShort:
		return true
	}
	return false
}

// DefaultProdDayType возвращает тип дня по умолчанию: суббота и
// воскресенье - выходные, остальные - рабочие
func DefaultProdDayType(dt time.Time) string {
	switch dt.Weekday() {
	case time.Saturday, time.Sunday:
		return ProdDayHoliday
	default:
		return ProdDayWork
	}
}

// ShiftTask - задача, привязанная к дню сотрудника. Подтверждение
// графика требует, чтобы смены покрывали интервалы всех задач дня.
type ShiftTask struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	EmployeeID uint      `gorm:"not null;index" json:"employee_id"`
	Dt         time.Time `gorm:"type:date;not null;index" json:"dt"`

	DttmStart time.Time `gorm:"not null" json:"dttm_start"`
	DttmEnd   time.Time `gorm:"not null" json:"dttm_end"`
	Operation string    `json:"operation"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ShiftTask) TableName() string {
	return "shift_tasks"
}

// CoveredBy проверяет, покрывает ли какой-либо из интервалов задачу целиком
func (t *ShiftTask) CoveredBy(days []*WorkDay) bool {
	for _, wd := range days {
		if !wd.HasInterval() {
			continue
		}
		if !wd.DttmWorkStart.After(t.DttmStart) && !wd.DttmWorkEnd.Before(t.DttmEnd) {
			return true
		}
	}
	return false
}
