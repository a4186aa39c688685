package models

import (
	"time"
)

// Действия над рабочим днём
const (
	ActionCreateUpdate = "CU"
	ActionDelete       = "D"
	ActionApprove      = "A"
)

// Типы графика
const (
	GraphPlan = "P"
	GraphFact = "F"
)

// FunctionGroup - группа прав, назначаемая трудоустройству или
// пользователю напрямую
type FunctionGroup struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"uniqueIndex;not null" json:"code"`
	Name string `gorm:"not null" json:"name"`

	// Разрешение менять защищённые (is_blocked) подтверждённые дни
	HasPermToChangeProtectedWdays bool `gorm:"not null;default:false" json:"has_perm_to_change_protected_wdays"`

	Permissions []GroupPermission `gorm:"foreignKey:FunctionGroupID" json:"permissions,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (FunctionGroup) TableName() string {
	return "function_groups"
}

// GroupPermission - право (action, graph_type, wd_type) с ограничением
// окна дней в прошлое и будущее. Пустой лимит - без ограничения.
type GroupPermission struct {
	ID              uint `gorm:"primaryKey" json:"id"`
	FunctionGroupID uint `gorm:"not null;index" json:"function_group_id"`

	Action     string `gorm:"type:varchar(2);not null" json:"action"`
	GraphType  string `gorm:"type:varchar(1);not null" json:"graph_type"`
	WdTypeCode string `gorm:"type:varchar(4);not null" json:"wd_type"`

	LimitDaysInPast   *int `json:"limit_days_in_past"`
	LimitDaysInFuture *int `json:"limit_days_in_future"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (GroupPermission) TableName() string {
	return "group_permissions"
}

// IsValid проверяет валидность права
func (p *GroupPermission) IsValid() bool {
	switch p.Action {
	case ActionCreateUpdate, ActionDelete, ActionApprove:
	default:
		return false
	}
	switch p.GraphType {
	case GraphPlan, GraphFact:
	default:
		return false
	}
	return p.WdTypeCode != ""
}

// AllowsDate проверяет, попадает ли дата в окно права относительно today
func (p *GroupPermission) AllowsDate(today, dt time.Time) bool {
	days := int(DateOf(dt).Sub(DateOf(today)).Hours() / 24)
	if days < 0 && p.LimitDaysInPast != nil && -days > *p.LimitDaysInPast {
		return false
	}
	if days > 0 && p.LimitDaysInFuture != nil && days > *p.LimitDaysInFuture {
		return false
	}
	return true
}
