package service

import (
	"time"
	"wfm-backend/internal/models"
	"wfm-backend/internal/repository"
	"wfm-backend/pkg/prodcal"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Дневная норма полной ставки в часах и сокращение предпраздничного дня
const (
	fullDayNormHours  = 8
	shortDayReduction = 1
)

// CalendarService - производственный календарь и каталог перерывов
type CalendarService struct {
	catalogRepo repository.CatalogRepository
	shopRepo    repository.ShopRepository
	logger      *logrus.Logger
}

func NewCalendarService(catalogRepo repository.CatalogRepository, shopRepo repository.ShopRepository) *CalendarService {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	return &CalendarService{
		catalogRepo: catalogRepo,
		shopRepo:    shopRepo,
		logger:      logger,
	}
}

// WithTx возвращает сервис с репозиториями, привязанными к транзакции
func (s *CalendarService) WithTx(tx *gorm.DB) *CalendarService {
	return &CalendarService{
		catalogRepo: s.catalogRepo.WithTx(tx),
		shopRepo:    s.shopRepo.WithTx(tx),
		logger:      s.logger,
	}
}

// ProductionDay возвращает тип производственного дня региона.
// Для отсутствующих в календаре дат тип выводится из дня недели.
func (s *CalendarService) ProductionDay(region string, dt time.Time) (string, error) {
	day, err := s.catalogRepo.GetProductionDay(region, dt)
	if err != nil {
		return "", err
	}
	if day != nil {
		return day.Type, nil
	}
	// Фолбэк на общероссийский календарь
	if region != "" {
		day, err = s.catalogRepo.GetProductionDay("", dt)
		if err != nil {
			return "", err
		}
		if day != nil {
			return day.Type, nil
		}
	}
	return models.DefaultProdDayType(dt), nil
}

// BreakRulesFor выбирает набор перерывов трёхступенчатым фолбэком:
// должность -> настройки магазина -> сеть. Первый непустой побеждает.
func (s *CalendarService) BreakRulesFor(position *models.Position, shop *models.Shop, network *models.Network) ([]models.BreakRule, error) {
	var setIDs []uint
	if position != nil && position.BreakSetID != nil {
		setIDs = append(setIDs, *position.BreakSetID)
	}
	if shop != nil && shop.BreakSetID != nil {
		setIDs = append(setIDs, *shop.BreakSetID)
	}
	if network != nil && network.BreakSetID != nil {
		setIDs = append(setIDs, *network.BreakSetID)
	}

	for _, setID := range setIDs {
		rules, err := s.catalogRepo.GetBreakRules(setID)
		if err != nil {
			return nil, err
		}
		if len(rules) > 0 {
			return rules, nil
		}
	}

	return nil, nil
}

// BreakMinutesFor возвращает суммарный перерыв для длины смены.
// Побеждает первое правило, в чей интервал попала длина.
func BreakMinutesFor(rules []models.BreakRule, shiftMinutes int) int {
	for _, rule := range rules {
		if rule.Matches(shiftMinutes) {
			return rule.TotalBreakMinutes()
		}
	}
	return 0
}

// MonthNormHours считает месячную норму SAWH трудоустройства:
// рабочие дни по 8 часов минус час за каждый сокращённый день,
// масштабированные ставкой. reduceDays - дни, снижающие норму
// (отпуск, больничный).
func (s *CalendarService) MonthNormHours(employment *models.Employment, region string, year, month int, reduceDays int) (decimal.Decimal, error) {
	startDate := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	endDate := startDate.AddDate(0, 1, -1)

	days, err := s.catalogRepo.ListProductionDays(region, startDate, endDate)
	if err != nil {
		return decimal.Zero, err
	}

	byDate := map[string]string{}
	for _, d := range days {
		byDate[d.Dt.Format("2006-01-02")] = d.Type
	}

	normHours := 0
	workDays := 0
	for dt := startDate; !dt.After(endDate); dt = dt.AddDate(0, 0, 1) {
		dayType, ok := byDate[dt.Format("2006-01-02")]
		if !ok {
			dayType = models.DefaultProdDayType(dt)
		}
		switch dayType {
		case models.ProdDayWork:
			normHours += fullDayNormHours
			workDays++
		case models.ProdDayShort:
			normHours += fullDayNormHours - shortDayReduction
			workDays++
		}
	}

	// Дни, снижающие норму, вычитаются по средней дневной норме
	if reduceDays > 0 && workDays > 0 {
		avg := decimal.NewFromInt(int64(normHours)).Div(decimal.NewFromInt(int64(workDays)))
		reduced := avg.Mul(decimal.NewFromInt(int64(reduceDays)))
		result := decimal.NewFromInt(int64(normHours)).Sub(reduced)
		if result.IsNegative() {
			result = decimal.Zero
		}
		return s.applyNormRate(result, employment), nil
	}

	return s.applyNormRate(decimal.NewFromInt(int64(normHours)), employment), nil
}

func (s *CalendarService) applyNormRate(hours decimal.Decimal, employment *models.Employment) decimal.Decimal {
	rate := 100
	if employment != nil && employment.NormWorkHours > 0 {
		rate = employment.NormWorkHours
	}
	return hours.Mul(decimal.NewFromInt(int64(rate))).Div(decimal.NewFromInt(100)).Round(2)
}

// DailyNormHours - средняя дневная норма ставки для выходных
// с оплачиваемыми часами (учёба, командировка без интервала)
func (s *CalendarService) DailyNormHours(employment *models.Employment) decimal.Decimal {
	return s.applyNormRate(decimal.NewFromInt(fullDayNormHours), employment)
}

// LoadProductionCalendar загружает календарь из государственного JSON
func (s *CalendarService) LoadProductionCalendar(filePath string) (int, error) {
	parsed, err := prodcal.ParseCalendarJSON(filePath)
	if err != nil {
		return 0, err
	}

	var days []models.ProductionDay
	region := ""
	for _, d := range parsed {
		region = d.Region
		days = append(days, models.ProductionDay{
			Region: d.Region,
			Dt:     models.DateOf(d.Date),
			Type:   d.Type,
		})
	}

	if err := s.catalogRepo.ReplaceProductionDays(region, days); err != nil {
		return 0, err
	}

	s.logger.WithFields(logrus.Fields{
		"region": region,
		"days":   len(days),
	}).Info("Production calendar loaded")

	return len(days), nil
}
