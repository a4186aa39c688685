package prodcal

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// CalendarJSON - структура для парсинга исходного JSON
// производственного календаря
type CalendarJSON struct {
	Year      int              `json:"year"`
	Region    string           `json:"region"`
	Months    []MonthDays      `json:"months"`
	Statistic CalendarStatistic `json:"statistic"`
}

type MonthDays struct {
	Month int    `json:"month"`
	// Выходные дни через запятую; "*" помечает сокращённый
	// предпраздничный день ("30*" - короткий день 30-го числа)
	Days string `json:"days"`
}

type CalendarStatistic struct {
	Workdays int     `json:"workdays"`
	Holidays int     `json:"holidays"`
	Hours40  float64 `json:"hours40"`
	Hours36  float64 `json:"hours36"`
	Hours24  float64 `json:"hours24"`
}

// Day - день календаря для загрузки в базу
type Day struct {
	Date   time.Time `json:"date"`
	Region string    `json:"region"`
	Type   string    `json:"type"` // W, H или S
}

// День производственного календаря (дублирует коды типов дня в моделях,
// чтобы пакет не зависел от internal)
const (
	DayWork    = "W"
	DayHoliday = "H"
	DayShort   = "S"
)

// ParseCalendarJSON парсит JSON и возвращает дни с отличным от
// рабочего типом (выходные и сокращённые)
func ParseCalendarJSON(filePath string) ([]Day, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON file: %w", err)
	}

	var calendarJSON CalendarJSON
	if err := json.Unmarshal(data, &calendarJSON); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	days := []Day{}

	for _, monthData := range calendarJSON.Months {
		dayStrings := strings.Split(monthData.Days, ",")

		for _, dayStr := range dayStrings {
			dayStr = strings.TrimSpace(dayStr)
			if dayStr == "" {
				continue
			}

			dayType := DayHoliday
			if strings.HasSuffix(dayStr, "*") {
				dayType = DayShort
				dayStr = strings.TrimSuffix(dayStr, "*")
			}
			dayStr = strings.TrimSuffix(dayStr, "+")

			day, err := strconv.Atoi(dayStr)
			if err != nil {
				return nil, fmt.Errorf("failed to parse day '%s' in month %d: %w",
					dayStr, monthData.Month, err)
			}

			date := time.Date(calendarJSON.Year, time.Month(monthData.Month), day, 0, 0, 0, 0, time.UTC)

			days = append(days, Day{
				Date:   date,
				Region: calendarJSON.Region,
				Type:   dayType,
			})
		}
	}

	return days, nil
}

// DaysForMonth возвращает дни календаря для конкретного месяца
func DaysForMonth(days []Day, year, month int) []Day {
	result := []Day{}
	for _, day := range days {
		if day.Date.Year() == year && int(day.Date.Month()) == month {
			result = append(result, day)
		}
	}
	return result
}

// TypeFor возвращает тип дня для даты; для отсутствующих дат
// тип выводится из дня недели
func TypeFor(days []Day, date time.Time) string {
	for _, day := range days {
		if day.Date.Year() == date.Year() &&
			day.Date.Month() == date.Month() &&
			day.Date.Day() == date.Day() {
			return day.Type
		}
	}
	if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
		return DayHoliday
	}
	return DayWork
}
