package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WorkDay - основная сущность движка. Четыре версии одного дня
// задаются парой (is_fact, is_approved); ключ
// (employee_id, dt, is_fact, is_approved) уникален.
type WorkDay struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// employee_id пуст у открытой вакансии
	EmployeeID *uint     `gorm:"index;uniqueIndex:idx_workday_version" json:"employee_id"`
	Dt         time.Time `gorm:"type:date;not null;index;uniqueIndex:idx_workday_version" json:"dt"`
	IsFact     bool      `gorm:"not null;default:false;uniqueIndex:idx_workday_version" json:"is_fact"`
	IsApproved bool      `gorm:"not null;default:false;uniqueIndex:idx_workday_version" json:"is_approved"`

	TypeCode string      `gorm:"type:varchar(4);not null;default:'E'" json:"type"`
	Type     WorkDayType `gorm:"foreignKey:TypeCode;references:Code" json:"-"`

	ShopID       *uint `gorm:"index" json:"shop_id"`
	EmploymentID *uint `gorm:"index" json:"employment_id"`

	DttmWorkStart *time.Time `json:"dttm_work_start"`
	DttmWorkEnd   *time.Time `json:"dttm_work_end"`

	// Производные поля: пересчитываются при каждом сохранении
	DttmWorkStartTabel *time.Time      `json:"dttm_work_start_tabel"`
	DttmWorkEndTabel   *time.Time      `json:"dttm_work_end_tabel"`
	WorkHours          decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"work_hours"`
	DayHours           decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"day_hours"`
	NightHours         decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"night_hours"`

	IsVacancy   bool `gorm:"not null;default:false" json:"is_vacancy"`
	IsOutsource bool `gorm:"not null;default:false" json:"is_outsource"`
	IsBlocked   bool `gorm:"not null;default:false" json:"is_blocked"`
	// Обрезать факт по расписанию магазина
	Crop bool `gorm:"not null;default:true" json:"crop"`

	CreatedByID    *uint  `json:"created_by"`
	LastEditedByID *uint  `json:"last_edited_by"`
	Comment        string `json:"comment"`

	// Водяной знак для упорядочивания событий посещаемости
	DttmEvent *time.Time `json:"dttm_event"`

	Details []WorkDayDetail `gorm:"foreignKey:WorkDayID" json:"details,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (WorkDay) TableName() string {
	return "work_days"
}

// HasInterval сообщает, заполнены ли оба края интервала
func (wd *WorkDay) HasInterval() bool {
	return wd.DttmWorkStart != nil && wd.DttmWorkEnd != nil
}

// IsOpenVacancy - вакансия без назначенного сотрудника
func (wd *WorkDay) IsOpenVacancy() bool {
	return wd.IsVacancy && wd.EmployeeID == nil
}

// IsOpenFact - фактическая смена с приходом без ухода
func (wd *WorkDay) IsOpenFact() bool {
	return wd.IsFact && wd.DttmWorkStart != nil && wd.DttmWorkEnd == nil
}

// IsValid проверяет согласованность типа и интервала: у типов с
// интервалом заполнены оба края, у чистых выходных - ни одного
// и нет магазина.
func (wd *WorkDay) IsValid(t *WorkDayType) bool {
	if wd.Dt.IsZero() || t == nil {
		return false
	}
	if wd.EmployeeID == nil && !wd.IsVacancy {
		return false
	}
	if t.HasTime() {
		// Открытый факт (только приход) допустим до закрытия смены
		if wd.DttmWorkStart == nil {
			return false
		}
		if !wd.IsFact && wd.DttmWorkEnd == nil {
			return false
		}
		if wd.DttmWorkEnd != nil && !wd.DttmWorkEnd.After(*wd.DttmWorkStart) {
			return false
		}
		return true
	}
	if wd.DttmWorkStart != nil || wd.DttmWorkEnd != nil {
		return false
	}
	if t.IsDayoff && !t.IsWorkHours && wd.ShopID != nil {
		return false
	}
	return true
}

// Overlaps проверяет пересечение интервалов двух рабочих дней
func (wd *WorkDay) Overlaps(other *WorkDay) bool {
	if !wd.HasInterval() || !other.HasInterval() {
		return false
	}
	return wd.DttmWorkStart.Before(*other.DttmWorkEnd) && other.DttmWorkStart.Before(*wd.DttmWorkEnd)
}

// SameVersionKey сообщает, совпадает ли составной ключ версии
func (wd *WorkDay) SameVersionKey(other *WorkDay) bool {
	if wd.EmployeeID == nil || other.EmployeeID == nil {
		return false
	}
	return *wd.EmployeeID == *other.EmployeeID &&
		DateOf(wd.Dt).Equal(DateOf(other.Dt)) &&
		wd.IsFact == other.IsFact &&
		wd.IsApproved == other.IsApproved
}

// WorkDayDetail - разбиение дня по видам работ; сумма work_part
// по деталям одного дня равна 1.0
type WorkDayDetail struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	WorkDayID  uint    `gorm:"not null;index" json:"work_day_id"`
	WorkTypeID uint    `gorm:"not null;index" json:"work_type_id"`
	WorkPart   float64 `gorm:"not null;default:1" json:"work_part"`
	Ordering   int     `gorm:"not null;default:0" json:"ordering"`

	WorkType WorkType `gorm:"foreignKey:WorkTypeID" json:"work_type"`
}

func (WorkDayDetail) TableName() string {
	return "work_day_details"
}

// DetailsPartSum возвращает сумму долей по деталям
func DetailsPartSum(details []WorkDayDetail) float64 {
	sum := 0.0
	for _, d := range details {
		sum += d.WorkPart
	}
	return sum
}
