package models

import (
	"time"
)

// Коды типов дня
const (
	TypeWorkday        = "W"  // рабочий день в магазине
	TypeHoliday        = "H"  // выходной
	TypeVacation       = "V"  // отпуск
	TypeSickLeave      = "S"  // больничный
	TypeQualification  = "Q"  // повышение квалификации (с интервалом)
	TypeAbsence        = "A"  // неявка
	TypeMaternity      = "M"  // отпуск по уходу за ребёнком
	TypeBusinessTrip   = "T"  // командировка (с интервалом)
	TypeOther          = "O"  // прочее
	TypeEmpty          = "E"  // не заполнено
	TypeHolidayWork    = "HW" // работа в выходной
	TypeRideAbroad     = "RA" // выезд
	TypeExtraVacation  = "EV" // дополнительный отпуск
	TypeStudyVacation  = "SV" // учебный отпуск
	TypeTruancyVac     = "TV" // отпуск без сохранения оплаты
	TypeStudy          = "ST" // учёба (оплачиваемая, без интервала)
	TypeGovernment     = "G"  // гособязанности
	TypeHolidaySpecial = "HS" // праздничный день
	TypeMedical        = "MC" // медосмотр
	TypeCarrying       = "C"  // донорские дни
)

// WorkDayType - справочник типов дня. Два ортогональных признака:
// is_dayoff (сотрудник не в магазине) и is_work_hours (день даёт
// оплачиваемые часы - например, учёба или командировка).
type WorkDayType struct {
	Code string `gorm:"primaryKey;type:varchar(4)" json:"code"`
	Name string `gorm:"not null" json:"name"`

	IsDayoff        bool `gorm:"not null;default:false" json:"is_dayoff"`
	IsWorkHours     bool `gorm:"not null;default:false" json:"is_work_hours"`
	IsReduceNorm    bool `gorm:"not null;default:false" json:"is_reduce_norm"`
	ShowStatInHours bool `gorm:"not null;default:false" json:"show_stat_in_hours"`
	Ordering        int  `gorm:"not null;default:0" json:"ordering"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (WorkDayType) TableName() string {
	return "work_day_types"
}

// HasTime сообщает, требует ли тип интервал работы.
// Интервал есть у всех "не выходных" типов (W, Q, T, HW).
func (t *WorkDayType) HasTime() bool {
	return !t.IsDayoff
}

// IsDayoffWithWorkHours - выходной из магазина, который при этом
// даёт оплачиваемые часы (учёба, командировка без интервала)
func (t *WorkDayType) IsDayoffWithWorkHours() bool {
	return t.IsDayoff && t.IsWorkHours
}

// DefaultWorkDayTypes возвращает стартовый справочник типов дня
func DefaultWorkDayTypes() []WorkDayType {
	return []WorkDayType{
		{Code: TypeWorkday, Name: "Рабочий день", IsWorkHours: true, ShowStatInHours: true, Ordering: 0},
		{Code: TypeHolidayWork, Name: "Работа в выходной", IsWorkHours: true, ShowStatInHours: true, Ordering: 1},
		{Code: TypeQualification, Name: "Повышение квалификации", IsWorkHours: true, ShowStatInHours: true, Ordering: 2},
		{Code: TypeBusinessTrip, Name: "Командировка", IsWorkHours: true, ShowStatInHours: true, Ordering: 3},
		{Code: TypeHoliday, Name: "Выходной", IsDayoff: true, Ordering: 4},
		{Code: TypeVacation, Name: "Отпуск", IsDayoff: true, IsReduceNorm: true, Ordering: 5},
		{Code: TypeSickLeave, Name: "Больничный", IsDayoff: true, IsReduceNorm: true, Ordering: 6},
		{Code: TypeAbsence, Name: "Неявка", IsDayoff: true, Ordering: 7},
		{Code: TypeMaternity, Name: "Отпуск по уходу", IsDayoff: true, IsReduceNorm: true, Ordering: 8},
		{Code: TypeStudy, Name: "Учёба", IsDayoff: true, IsWorkHours: true, Ordering: 9},
		{Code: TypeMedical, Name: "Медосмотр", IsDayoff: true, IsWorkHours: true, Ordering: 10},
		{Code: TypeGovernment, Name: "Гособязанности", IsDayoff: true, IsReduceNorm: true, Ordering: 11},
		{Code: TypeExtraVacation, Name: "Дополнительный отпуск", IsDayoff: true, IsReduceNorm: true, Ordering: 12},
		{Code: TypeStudyVacation, Name: "Учебный отпуск", IsDayoff: true, IsReduceNorm: true, Ordering: 13},
		{Code: TypeTruancyVac, Name: "Отпуск без оплаты", IsDayoff: true, IsReduceNorm: true, Ordering: 14},
		{Code: TypeRideAbroad, Name: "Выезд", IsDayoff: true, Ordering: 15},
		{Code: TypeHolidaySpecial, Name: "Праздничный день", IsDayoff: true, Ordering: 16},
		{Code: TypeCarrying, Name: "Донорский день", IsDayoff: true, IsWorkHours: true, Ordering: 17},
		{Code: TypeOther, Name: "Прочее", IsDayoff: true, Ordering: 18},
		{Code: TypeEmpty, Name: "Не заполнено", IsDayoff: true, Ordering: 19},
	}
}
