package repository

import (
	"time"
	"wfm-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TimesheetFilter - фильтры выборки строк табеля
type TimesheetFilter struct {
	EmployeeIDs    []uint
	ShopID         *uint
	DtFrom         *time.Time
	DtTo           *time.Time
	TimesheetTypes []string
}

// TimesheetStat - агрегат по сотруднику
type TimesheetStat struct {
	EmployeeID      uint            `json:"employee_id"`
	FactHours       decimal.Decimal `json:"fact_hours"`
	MainHours       decimal.Decimal `json:"main_hours"`
	AdditionalHours decimal.Decimal `json:"additional_hours"`
	WorkDays        int             `json:"work_days"`
}

type TimesheetRepository interface {
	ReplaceForMonth(employeeID uint, year, month int, items []models.TimesheetItem) error
	ListItems(filter TimesheetFilter) ([]*models.TimesheetItem, error)
	Stats(filter TimesheetFilter) ([]TimesheetStat, error)
}

type GormTimesheetRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormTimesheetRepository(db *gorm.DB) (*GormTimesheetRepository, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if err := db.AutoMigrate(&models.TimesheetItem{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate timesheet table")
		return nil, err
	}

	logger.Info("Timesheet repository initialized")

	return &GormTimesheetRepository{
		db:     db,
		logger: logger,
	}, nil
}

// ReplaceForMonth атомарно заменяет строки табеля сотрудника за месяц
func (r *GormTimesheetRepository) ReplaceForMonth(employeeID uint, year, month int, items []models.TimesheetItem) error {
	startDate := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	endDate := startDate.AddDate(0, 1, -1)

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("employee_id = ? AND dt BETWEEN ? AND ?",
			employeeID, startDate, endDate).
			Delete(&models.TimesheetItem{}).Error; err != nil {
			r.logger.WithError(err).Error("Failed to delete old timesheet items")
			return err
		}

		if len(items) == 0 {
			return nil
		}

		for i := range items {
			items[i].ID = 0
		}

		if err := tx.Create(&items).Error; err != nil {
			r.logger.WithError(err).Error("Failed to bulk create timesheet items")
			return err
		}

		r.logger.WithFields(logrus.Fields{
			"employee_id": employeeID,
			"year":        year,
			"month":       month,
			"items":       len(items),
		}).Info("Timesheet replaced for month")

		return nil
	})
}

func (r *GormTimesheetRepository) ListItems(filter TimesheetFilter) ([]*models.TimesheetItem, error) {
	var items []*models.TimesheetItem
	result := r.applyFilter(filter).Order("dt, timesheet_type").Find(&items)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to list timesheet items")
		return nil, result.Error
	}
	return items, nil
}

// Stats возвращает агрегаты часов по сотрудникам
func (r *GormTimesheetRepository) Stats(filter TimesheetFilter) ([]TimesheetStat, error) {
	items, err := r.ListItems(filter)
	if err != nil {
		return nil, err
	}

	byEmployee := map[uint]*TimesheetStat{}
	order := []uint{}
	workDays := map[uint]map[string]bool{}

	for _, it := range items {
		stat, ok := byEmployee[it.EmployeeID]
		if !ok {
			stat = &TimesheetStat{EmployeeID: it.EmployeeID}
			byEmployee[it.EmployeeID] = stat
			workDays[it.EmployeeID] = map[string]bool{}
			order = append(order, it.EmployeeID)
		}

		total := it.TotalHours()
		switch it.TimesheetType {
		case models.TimesheetFact:
			stat.FactHours = stat.FactHours.Add(total)
			if total.GreaterThan(decimal.Zero) {
				workDays[it.EmployeeID][it.Dt.Format("2006-01-02")] = true
			}
		case models.TimesheetMain:
			stat.MainHours = stat.MainHours.Add(total)
		case models.TimesheetAdditional:
			stat.AdditionalHours = stat.AdditionalHours.Add(total)
		}
	}

	stats := make([]TimesheetStat, 0, len(order))
	for _, employeeID := range order {
		stat := byEmployee[employeeID]
		stat.WorkDays = len(workDays[employeeID])
		stats = append(stats, *stat)
	}

	return stats, nil
}

func (r *GormTimesheetRepository) applyFilter(filter TimesheetFilter) *gorm.DB {
	query := r.db.Model(&models.TimesheetItem{})
	if len(filter.EmployeeIDs) > 0 {
		query = query.Where("employee_id IN ?", filter.EmployeeIDs)
	}
	if filter.ShopID != nil {
		query = query.Where("shop_id = ?", *filter.ShopID)
	}
	if filter.DtFrom != nil {
		query = query.Where("dt >= ?", models.DateOf(*filter.DtFrom))
	}
	if filter.DtTo != nil {
		query = query.Where("dt <= ?", models.DateOf(*filter.DtTo))
	}
	if len(filter.TimesheetTypes) > 0 {
		query = query.Where("timesheet_type IN ?", filter.TimesheetTypes)
	}
	return query
}
