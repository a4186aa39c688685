package models

import (
	"time"
)

// Shop - магазин (или клиника) внутри сети
type Shop struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	Code      string  `gorm:"uniqueIndex;not null" json:"code"`
	Name      string  `gorm:"not null" json:"name"`
	NetworkID uint    `gorm:"not null;index" json:"network_id"`
	Network   Network `gorm:"foreignKey:NetworkID" json:"network"`

	// Часовой пояс магазина (IANA), регион производственного календаря
	Timezone string `gorm:"not null;default:'Europe/Moscow'" json:"timezone"`
	Region   string `gorm:"not null;default:''" json:"region"`

	// Перерывы уровня настроек магазина (вторая ступень фолбэка)
	BreakSetID *uint `json:"break_set_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Shop) TableName() string {
	return "shops"
}

// Location возвращает часовой пояс магазина (UTC при некорректном значении)
func (s *Shop) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ShopSchedule - режим работы магазина на конкретную дату.
// Открытие 00:00 и закрытие 00:00 означают круглосуточный режим.
type ShopSchedule struct {
	ID     uint      `gorm:"primaryKey" json:"id"`
	ShopID uint      `gorm:"not null;index:idx_shop_schedule_day,unique" json:"shop_id"`
	Dt     time.Time `gorm:"type:date;not null;index:idx_shop_schedule_day,unique" json:"dt"`

	OpenTime  string `gorm:"type:varchar(5);not null;default:'00:00'" json:"open_time"`
	CloseTime string `gorm:"type:varchar(5);not null;default:'00:00'" json:"close_time"`
	IsClosed  bool   `gorm:"not null;default:false" json:"is_closed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ShopSchedule) TableName() string {
	return "shop_schedules"
}

// IsValid проверяет валидность расписания
func (ss *ShopSchedule) IsValid() bool {
	if ss.ShopID == 0 || ss.Dt.IsZero() {
		return false
	}
	if _, err := time.Parse("15:04", ss.OpenTime); err != nil {
		return false
	}
	if _, err := time.Parse("15:04", ss.CloseTime); err != nil {
		return false
	}
	return true
}

// Interval возвращает интервал работы магазина на дату в указанном поясе.
// Закрытие переносится на следующий день, когда close <= open при ненулевом open.
// Для закрытого дня возвращает ok=false.
func (ss *ShopSchedule) Interval(loc *time.Location) (open, close time.Time, ok bool) {
	if ss.IsClosed {
		return time.Time{}, time.Time{}, false
	}
	ot, _ := time.Parse("15:04", ss.OpenTime)
	ct, _ := time.Parse("15:04", ss.CloseTime)

	day := time.Date(ss.Dt.Year(), ss.Dt.Month(), ss.Dt.Day(), 0, 0, 0, 0, loc)
	open = day.Add(time.Duration(ot.Hour())*time.Hour + time.Duration(ot.Minute())*time.Minute)
	close = day.Add(time.Duration(ct.Hour())*time.Hour + time.Duration(ct.Minute())*time.Minute)

	// 00:00-00:00 - круглосуточно
	if ss.OpenTime == "00:00" && ss.CloseTime == "00:00" {
		return day, day.AddDate(0, 0, 1), true
	}
	if !close.After(open) {
		close = close.AddDate(0, 0, 1)
	}
	return open, close, true
}
