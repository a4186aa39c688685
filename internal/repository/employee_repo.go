package repository

import (
	"errors"
	"wfm-backend/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type EmployeeRepository interface {
	WithTx(tx *gorm.DB) EmployeeRepository

	Create(employee *models.Employee) error
	GetByID(id uint) (*models.Employee, error)
	GetByTabelCode(networkID uint, tabelCode string) (*models.Employee, error)
	GetByUserID(userID uint) ([]*models.Employee, error)
	GetUserByID(id uint) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
}

type GormEmployeeRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormEmployeeRepository(db *gorm.DB) (*GormEmployeeRepository, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if err := db.AutoMigrate(&models.User{}, &models.Employee{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate employee tables")
		return nil, err
	}

	logger.Info("Employee repository initialized")

	return &GormEmployeeRepository{
		db:     db,
		logger: logger,
	}, nil
}

// WithTx возвращает репозиторий, привязанный к транзакции
func (r *GormEmployeeRepository) WithTx(tx *gorm.DB) EmployeeRepository {
	return &GormEmployeeRepository{db: tx, logger: r.logger}
}

func (r *GormEmployeeRepository) Create(employee *models.Employee) error {
	if !employee.IsValid() {
		r.logger.WithField("tabel_code", employee.TabelCode).Warn("Invalid employee data")
		return errors.New("некорректные данные сотрудника")
	}

	result := r.db.Create(employee)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to create employee")
		return result.Error
	}

	return nil
}

func (r *GormEmployeeRepository) GetByID(id uint) (*models.Employee, error) {
	var employee models.Employee
	result := r.db.Preload("User").First(&employee, id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get employee by ID")
		return nil, result.Error
	}

	return &employee, nil
}

func (r *GormEmployeeRepository) GetByTabelCode(networkID uint, tabelCode string) (*models.Employee, error) {
	var employee models.Employee
	result := r.db.Where("network_id = ? AND tabel_code = ?", networkID, tabelCode).First(&employee)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get employee by tabel code")
		return nil, result.Error
	}

	return &employee, nil
}

func (r *GormEmployeeRepository) GetByUserID(userID uint) ([]*models.Employee, error) {
	var employees []*models.Employee
	result := r.db.Where("user_id = ?", userID).Find(&employees)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get employees by user ID")
		return nil, result.Error
	}
	return employees, nil
}

func (r *GormEmployeeRepository) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	result := r.db.First(&user, id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get user by ID")
		return nil, result.Error
	}

	return &user, nil
}

func (r *GormEmployeeRepository) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	result := r.db.Where("username = ?", username).First(&user)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get user by username")
		return nil, result.Error
	}

	return &user, nil
}
