package models

import (
	"time"
)

// Типы отметок терминала
const (
	TickComing  = "C" // приход
	TickLeaving = "L" // уход
	TickNoType  = "N" // тип не указан, выводится по ближайшему краю плана
)

// AttendanceRecord - неизменяемое событие отметки на терминале.
// Уникальный индекс по (user, shop, dttm, type) делает приём идемпотентным.
type AttendanceRecord struct {
	ID uint `gorm:"primaryKey" json:"id"`

	UserID     uint  `gorm:"not null;index;uniqueIndex:idx_attendance_tick" json:"user_id"`
	EmployeeID *uint `gorm:"index" json:"employee_id"`
	ShopID     uint  `gorm:"not null;index;uniqueIndex:idx_attendance_tick" json:"shop_id"`

	Dttm time.Time `gorm:"not null;uniqueIndex:idx_attendance_tick" json:"dttm"`
	Type string    `gorm:"type:varchar(1);not null;default:'N';uniqueIndex:idx_attendance_tick" json:"type"`

	// Дата, к которой событие отнесено после сверки с планом
	Dt *time.Time `gorm:"type:date;index" json:"dt"`

	Verified bool   `gorm:"not null;default:true" json:"verified"`
	Terminal string `json:"terminal"`

	// Момент поступления события; более поздний dttm_event побеждает
	DttmEvent time.Time `gorm:"not null" json:"dttm_event"`

	CreatedAt time.Time `json:"created_at"`
}

func (AttendanceRecord) TableName() string {
	return "attendance_records"
}

// IsValid проверяет валидность события
func (a *AttendanceRecord) IsValid() bool {
	if a.UserID == 0 || a.ShopID == 0 || a.Dttm.IsZero() {
		return false
	}
	switch a.Type {
	case TickComing, TickLeaving, TickNoType:
		return true
	}
	return false
}
