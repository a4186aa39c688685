package repository

import (
	"errors"
	"time"
	"wfm-backend/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type CatalogRepository interface {
	WithTx(tx *gorm.DB) CatalogRepository

	GetWorkDayType(code string) (*models.WorkDayType, error)
	ListWorkDayTypes() ([]models.WorkDayType, error)
	SeedWorkDayTypes() error

	GetWorkType(id uint) (*models.WorkType, error)
	GetWorkTypeByShopAndName(shopID, workTypeNameID uint) (*models.WorkType, error)
	GetWorkTypeByCode(shopID uint, code string) (*models.WorkType, error)

	GetBreakRules(breakSetID uint) ([]models.BreakRule, error)

	GetProductionDay(region string, dt time.Time) (*models.ProductionDay, error)
	ListProductionDays(region string, dtFrom, dtTo time.Time) ([]models.ProductionDay, error)
	ReplaceProductionDays(region string, days []models.ProductionDay) error
	CountProductionDays() (int64, error)
}

type GormCatalogRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormCatalogRepository(db *gorm.DB) (*GormCatalogRepository, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	// Автомиграция справочников
	if err := db.AutoMigrate(
		&models.WorkDayType{},
		&models.WorkTypeName{},
		&models.WorkType{},
		&models.BreakSet{},
		&models.BreakRule{},
		&models.ProductionDay{},
	); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate catalog tables")
		return nil, err
	}

	logger.Info("Catalog repository initialized")

	return &GormCatalogRepository{
		db:     db,
		logger: logger,
	}, nil
}

// WithTx возвращает репозиторий, привязанный к транзакции
func (r *GormCatalogRepository) WithTx(tx *gorm.DB) CatalogRepository {
	return &GormCatalogRepository{db: tx, logger: r.logger}
}

func (r *GormCatalogRepository) GetWorkDayType(code string) (*models.WorkDayType, error) {
	var t models.WorkDayType
	result := r.db.Where("code = ?", code).First(&t)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get work day type")
		return nil, result.Error
	}

	return &t, nil
}

func (r *GormCatalogRepository) ListWorkDayTypes() ([]models.WorkDayType, error) {
	var types []models.WorkDayType
	result := r.db.Order("ordering").Find(&types)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to list work day types")
		return nil, result.Error
	}
	return types, nil
}

// SeedWorkDayTypes заполняет справочник типов дня при первом запуске
func (r *GormCatalogRepository) SeedWorkDayTypes() error {
	var count int64
	if err := r.db.Model(&models.WorkDayType{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	types := models.DefaultWorkDayTypes()
	if err := r.db.Create(&types).Error; err != nil {
		r.logger.WithError(err).Error("Failed to seed work day types")
		return err
	}

	r.logger.WithField("count", len(types)).Info("Work day types seeded")
	return nil
}

func (r *GormCatalogRepository) GetWorkType(id uint) (*models.WorkType, error) {
	var wt models.WorkType
	result := r.db.Preload("WorkTypeName").First(&wt, id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get work type")
		return nil, result.Error
	}

	return &wt, nil
}

func (r *GormCatalogRepository) GetWorkTypeByShopAndName(shopID, workTypeNameID uint) (*models.WorkType, error) {
	var wt models.WorkType
	result := r.db.Preload("WorkTypeName").
		Where("shop_id = ? AND work_type_name_id = ?", shopID, workTypeNameID).
		First(&wt)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get work type by shop and name")
		return nil, result.Error
	}

	return &wt, nil
}

func (r *GormCatalogRepository) GetWorkTypeByCode(shopID uint, code string) (*models.WorkType, error) {
	var wt models.WorkType
	result := r.db.Preload("WorkTypeName").
		Joins("JOIN work_type_names ON work_type_names.id = work_types.work_type_name_id").
		Where("work_types.shop_id = ? AND work_type_names.code = ?", shopID, code).
		First(&wt)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get work type by code")
		return nil, result.Error
	}

	return &wt, nil
}

func (r *GormCatalogRepository) GetBreakRules(breakSetID uint) ([]models.BreakRule, error) {
	var rules []models.BreakRule
	result := r.db.Where("break_set_id = ?", breakSetID).Order("ordering").Find(&rules)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get break rules")
		return nil, result.Error
	}
	return rules, nil
}

func (r *GormCatalogRepository) GetProductionDay(region string, dt time.Time) (*models.ProductionDay, error) {
	var day models.ProductionDay
	result := r.db.Where("region = ? AND dt = ?", region, models.DateOf(dt)).First(&day)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get production day")
		return nil, result.Error
	}

	return &day, nil
}

func (r *GormCatalogRepository) ListProductionDays(region string, dtFrom, dtTo time.Time) ([]models.ProductionDay, error) {
	var days []models.ProductionDay
	result := r.db.Where("region = ? AND dt >= ? AND dt <= ?",
		region, models.DateOf(dtFrom), models.DateOf(dtTo)).
		Order("dt").
		Find(&days)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to list production days")
		return nil, result.Error
	}
	return days, nil
}

// ReplaceProductionDays заменяет календарь региона (удаление + вставка,
// чтобы избежать дублирования при повторной загрузке)
func (r *GormCatalogRepository) ReplaceProductionDays(region string, days []models.ProductionDay) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("region = ?", region).Delete(&models.ProductionDay{}).Error; err != nil {
			r.logger.WithError(err).Error("Failed to delete old production days")
			return err
		}
		if len(days) == 0 {
			return nil
		}
		if err := tx.Create(&days).Error; err != nil {
			r.logger.WithError(err).Error("Failed to bulk create production days")
			return err
		}
		return nil
	})
}

func (r *GormCatalogRepository) CountProductionDays() (int64, error) {
	var count int64
	result := r.db.Model(&models.ProductionDay{}).Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}
	return count, nil
}
