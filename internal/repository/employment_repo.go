package repository

import (
	"errors"
	"time"
	"wfm-backend/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type EmploymentRepository interface {
	WithTx(tx *gorm.DB) EmploymentRepository

	Create(employment *models.Employment) error
	Save(employment *models.Employment) error
	GetByID(id uint) (*models.Employment, error)
	ActiveOnDate(employeeID uint, dt time.Time) ([]*models.Employment, error)
	ActiveInRange(employeeID uint, dtFrom, dtTo time.Time) ([]*models.Employment, error)
	ByEmployee(employeeID uint) ([]*models.Employment, error)
	Delete(id uint) error
}

type GormEmploymentRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormEmploymentRepository(db *gorm.DB) (*GormEmploymentRepository, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if err := db.AutoMigrate(
		&models.Position{},
		&models.WorkHourFine{},
		&models.Employment{},
	); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate employment tables")
		return nil, err
	}

	logger.Info("Employment repository initialized")

	return &GormEmploymentRepository{
		db:     db,
		logger: logger,
	}, nil
}

// WithTx возвращает репозиторий, привязанный к транзакции
func (r *GormEmploymentRepository) WithTx(tx *gorm.DB) EmploymentRepository {
	return &GormEmploymentRepository{db: tx, logger: r.logger}
}

func (r *GormEmploymentRepository) Create(employment *models.Employment) error {
	if !employment.IsValid() {
		r.logger.WithField("employee_id", employment.EmployeeID).Warn("Invalid employment data")
		return errors.New("некорректные данные трудоустройства")
	}

	result := r.db.Create(employment)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to create employment")
		return result.Error
	}

	r.logger.WithFields(logrus.Fields{
		"id":          employment.ID,
		"employee_id": employment.EmployeeID,
		"shop_id":     employment.ShopID,
	}).Info("Employment created")

	return nil
}

func (r *GormEmploymentRepository) Save(employment *models.Employment) error {
	if !employment.IsValid() {
		return errors.New("некорректные данные трудоустройства")
	}

	result := r.db.Save(employment)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to save employment")
		return result.Error
	}

	return nil
}

func (r *GormEmploymentRepository) GetByID(id uint) (*models.Employment, error) {
	var employment models.Employment
	result := r.db.
		Preload("Position").
		Preload("Position.Fines").
		Preload("Shop").
		Preload("Shop.Network").
		First(&employment, id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get employment by ID")
		return nil, result.Error
	}

	return &employment, nil
}

// ActiveOnDate возвращает все трудоустройства сотрудника, активные на дату
func (r *GormEmploymentRepository) ActiveOnDate(employeeID uint, dt time.Time) ([]*models.Employment, error) {
	return r.ActiveInRange(employeeID, dt, dt)
}

// ActiveInRange возвращает трудоустройства, пересекающиеся с периодом
func (r *GormEmploymentRepository) ActiveInRange(employeeID uint, dtFrom, dtTo time.Time) ([]*models.Employment, error) {
	var employments []*models.Employment
	result := r.db.
		Preload("Position").
		Preload("Position.Fines").
		Preload("Shop").
		Preload("Shop.Network").
		Where("employee_id = ? AND dt_hired <= ? AND (dt_fired IS NULL OR dt_fired >= ?)",
			employeeID, models.DateOf(dtTo), models.DateOf(dtFrom)).
		Order("dt_hired DESC").
		Find(&employments)

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get active employments")
		return nil, result.Error
	}

	return employments, nil
}

func (r *GormEmploymentRepository) ByEmployee(employeeID uint) ([]*models.Employment, error) {
	var employments []*models.Employment
	result := r.db.
		Preload("Position").
		Preload("Shop").
		Where("employee_id = ?", employeeID).
		Order("dt_hired DESC").
		Find(&employments)

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get employments by employee")
		return nil, result.Error
	}

	return employments, nil
}

func (r *GormEmploymentRepository) Delete(id uint) error {
	result := r.db.Delete(&models.Employment{}, id)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to delete employment")
		return result.Error
	}

	if result.RowsAffected == 0 {
		return errors.New("трудоустройство не найдено")
	}

	r.logger.WithField("id", id).Info("Employment deleted")
	return nil
}
