package models

import (
	"time"
)

// Employment - трудоустройство сотрудника в магазине на должности.
// Активно на дату D, если dt_hired <= D <= dt_fired (dt_fired может быть пустым).
type Employment struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	EmployeeID uint `gorm:"not null;index" json:"employee_id"`
	ShopID     uint `gorm:"not null;index" json:"shop_id"`
	PositionID uint `gorm:"not null;index" json:"position_id"`

	FunctionGroupID *uint `gorm:"index" json:"function_group_id"`

	DtHired time.Time  `gorm:"type:date;not null" json:"dt_hired"`
	DtFired *time.Time `gorm:"type:date" json:"dt_fired"`

	// Ставка в процентах от полной (100 - полная занятость)
	NormWorkHours int `gorm:"not null;default:100" json:"norm_work_hours"`
	Priority      int `gorm:"not null;default:0" json:"priority"`

	// Приоритетный вид работ для фактов без плана
	PriorityWorkTypeID *uint `json:"priority_work_type_id"`

	Employee Employee `gorm:"foreignKey:EmployeeID" json:"employee"`
	Shop     Shop     `gorm:"foreignKey:ShopID" json:"shop"`
	Position Position `gorm:"foreignKey:PositionID" json:"position"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Employment) TableName() string {
	return "employments"
}

// IsActiveOn проверяет, действует ли трудоустройство на дату
func (e *Employment) IsActiveOn(dt time.Time) bool {
	d := DateOf(dt)
	if d.Before(DateOf(e.DtHired)) {
		return false
	}
	if e.DtFired != nil && d.After(DateOf(*e.DtFired)) {
		return false
	}
	return true
}

// IsValid проверяет валидность данных трудоустройства
func (e *Employment) IsValid() bool {
	if e.EmployeeID == 0 || e.ShopID == 0 || e.PositionID == 0 {
		return false
	}
	if e.DtHired.IsZero() {
		return false
	}
	if e.DtFired != nil && e.DtFired.Before(e.DtHired) {
		return false
	}
	if e.NormWorkHours <= 0 || e.NormWorkHours > 200 {
		return false
	}
	return true
}

// DateOf нормализует момент времени до даты (полночь UTC)
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
