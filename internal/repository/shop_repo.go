package repository

import (
	"errors"
	"time"
	"wfm-backend/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type ShopRepository interface {
	WithTx(tx *gorm.DB) ShopRepository

	GetByID(id uint) (*models.Shop, error)
	GetByCode(code string) (*models.Shop, error)
	GetNetwork(id uint) (*models.Network, error)
	GetSchedule(shopID uint, dt time.Time) (*models.ShopSchedule, error)
	SaveSchedule(schedule *models.ShopSchedule) error
}

type GormShopRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormShopRepository(db *gorm.DB) (*GormShopRepository, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if err := db.AutoMigrate(&models.Network{}, &models.Shop{}, &models.ShopSchedule{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate shop tables")
		return nil, err
	}

	logger.Info("Shop repository initialized")

	return &GormShopRepository{
		db:     db,
		logger: logger,
	}, nil
}

// WithTx возвращает репозиторий, привязанный к транзакции
func (r *GormShopRepository) WithTx(tx *gorm.DB) ShopRepository {
	return &GormShopRepository{db: tx, logger: r.logger}
}

func (r *GormShopRepository) GetByID(id uint) (*models.Shop, error) {
	var shop models.Shop
	result := r.db.Preload("Network").First(&shop, id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get shop by ID")
		return nil, result.Error
	}

	return &shop, nil
}

func (r *GormShopRepository) GetByCode(code string) (*models.Shop, error) {
	var shop models.Shop
	result := r.db.Preload("Network").Where("code = ?", code).First(&shop)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get shop by code")
		return nil, result.Error
	}

	return &shop, nil
}

func (r *GormShopRepository) GetNetwork(id uint) (*models.Network, error) {
	var network models.Network
	result := r.db.First(&network, id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get network")
		return nil, result.Error
	}

	return &network, nil
}

func (r *GormShopRepository) GetSchedule(shopID uint, dt time.Time) (*models.ShopSchedule, error) {
	var schedule models.ShopSchedule
	result := r.db.Where("shop_id = ? AND dt = ?", shopID, models.DateOf(dt)).First(&schedule)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get shop schedule")
		return nil, result.Error
	}

	return &schedule, nil
}

func (r *GormShopRepository) SaveSchedule(schedule *models.ShopSchedule) error {
	if !schedule.IsValid() {
		r.logger.WithFields(logrus.Fields{
			"shop_id": schedule.ShopID,
			"dt":      schedule.Dt.Format("2006-01-02"),
		}).Warn("Invalid shop schedule data")
		return errors.New("некорректные данные расписания магазина")
	}

	result := r.db.Save(schedule)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to save shop schedule")
		return result.Error
	}

	return nil
}
