package models

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Position - должность. Несёт каталог перерывов и правила штрафов
// за опоздание и ранний уход.
type Position struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"uniqueIndex;not null" json:"code"`
	Name string `gorm:"not null" json:"name"`

	// Перерывы уровня должности (первая ступень фолбэка)
	BreakSetID *uint `json:"break_set_id"`

	// Группа прав по умолчанию
	FunctionGroupID *uint `gorm:"index" json:"function_group_id"`

	Fines []WorkHourFine `gorm:"foreignKey:PositionID" json:"fines,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Position) TableName() string {
	return "positions"
}

// BreakSet - именованный набор правил перерывов
type BreakSet struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"not null" json:"name"`

	Rules []BreakRule `gorm:"foreignKey:BreakSetID" json:"rules,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (BreakSet) TableName() string {
	return "break_sets"
}

// BreakRule - тройка (длина смены от, до, перерывы). Побеждает первое
// правило, в чей интервал попала длина смены; перерывы суммируются.
// Список перерывов хранится строкой минут через запятую ("30,15").
type BreakRule struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	BreakSetID uint `gorm:"not null;index" json:"break_set_id"`

	ShiftFromMin int    `gorm:"not null" json:"shift_from_min"`
	ShiftToMin   int    `gorm:"not null" json:"shift_to_min"`
	Breaks       string `gorm:"not null;default:''" json:"breaks"`
	Ordering     int    `gorm:"not null;default:0" json:"ordering"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (BreakRule) TableName() string {
	return "break_rules"
}

// BreakMinutes разбирает список перерывов из строки
func (br *BreakRule) BreakMinutes() []int {
	var res []int
	for _, part := range strings.Split(br.Breaks, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if v, err := strconv.Atoi(part); err == nil {
			res = append(res, v)
		}
	}
	return res
}

// TotalBreakMinutes возвращает суммарный перерыв по правилу
func (br *BreakRule) TotalBreakMinutes() int {
	total := 0
	for _, b := range br.BreakMinutes() {
		total += b
	}
	return total
}

// Matches проверяет, попадает ли длина смены в интервал правила
func (br *BreakRule) Matches(shiftMinutes int) bool {
	return shiftMinutes >= br.ShiftFromMin && shiftMinutes <= br.ShiftToMin
}

// Виды штрафов рабочего времени
const (
	FineArrive = "arrive" // опоздание к началу смены
	FineDepart = "depart" // уход раньше конца смены
)

// WorkHourFine - правило штрафа: при попадании отклонения в интервал
// [from, to] минут из оплаченного времени вычитается penalty минут
type WorkHourFine struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	PositionID uint   `gorm:"not null;index" json:"position_id"`
	Kind       string `gorm:"type:varchar(10);not null" json:"kind"`

	FromMin    int `gorm:"not null" json:"from_min"`
	ToMin      int `gorm:"not null" json:"to_min"`
	PenaltyMin int `gorm:"not null" json:"penalty_min"`
	Ordering   int `gorm:"not null;default:0" json:"ordering"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (WorkHourFine) TableName() string {
	return "work_hour_fines"
}

// IsValid проверяет валидность правила штрафа
func (f *WorkHourFine) IsValid() bool {
	if f.Kind != FineArrive && f.Kind != FineDepart {
		return false
	}
	return f.FromMin >= 0 && f.ToMin >= f.FromMin && f.PenaltyMin >= 0
}

// PenaltyFor возвращает штраф в минутах для знакового отклонения.
// Отрицательное отклонение (пришёл раньше, ушёл позже) штраф не даёт.
func PenaltyFor(fines []WorkHourFine, kind string, deltaMin int) int {
	if deltaMin <= 0 {
		return 0
	}
	matched := make([]WorkHourFine, 0, len(fines))
	for _, f := range fines {
		if f.Kind == kind && deltaMin >= f.FromMin && deltaMin <= f.ToMin {
			matched = append(matched, f)
		}
	}
	if len(matched) == 0 {
		return 0
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Ordering < matched[j].Ordering })
	return matched[0].PenaltyMin
}
