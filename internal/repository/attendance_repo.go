package repository

import (
	"errors"
	"strings"
	"time"
	"wfm-backend/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type AttendanceRepository interface {
	Create(record *models.AttendanceRecord) (bool, error)
	Save(record *models.AttendanceRecord) error
	GetByID(id uint) (*models.AttendanceRecord, error)
	GetByTick(userID, shopID uint, dttm time.Time, tickType string) (*models.AttendanceRecord, error)
	GetByDttm(userID, shopID uint, dttm time.Time) (*models.AttendanceRecord, error)
	ListByUser(userID uint, limit int) ([]*models.AttendanceRecord, error)
}

type GormAttendanceRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormAttendanceRepository(db *gorm.DB) (*GormAttendanceRepository, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if err := db.AutoMigrate(&models.AttendanceRecord{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate attendance table")
		return nil, err
	}

	logger.Info("Attendance repository initialized")

	return &GormAttendanceRepository{
		db:     db,
		logger: logger,
	}, nil
}

// Create сохраняет событие отметки. Возвращает created=false, когда
// такое событие уже принято (идемпотентность по уникальному индексу).
func (r *GormAttendanceRepository) Create(record *models.AttendanceRecord) (bool, error) {
	if !record.IsValid() {
		r.logger.WithFields(logrus.Fields{
			"user_id": record.UserID,
			"shop_id": record.ShopID,
		}).Warn("Invalid attendance record")
		return false, errors.New("некорректные данные отметки")
	}

	result := r.db.Create(record)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			r.logger.WithFields(logrus.Fields{
				"user_id": record.UserID,
				"dttm":    record.Dttm,
			}).Debug("Duplicate attendance tick ignored")
			return false, nil
		}
		r.logger.WithError(result.Error).Error("Failed to create attendance record")
		return false, result.Error
	}

	return true, nil
}

func (r *GormAttendanceRepository) Save(record *models.AttendanceRecord) error {
	result := r.db.Save(record)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to save attendance record")
		return result.Error
	}
	return nil
}

func (r *GormAttendanceRepository) GetByID(id uint) (*models.AttendanceRecord, error) {
	var record models.AttendanceRecord
	result := r.db.First(&record, id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get attendance record")
		return nil, result.Error
	}

	return &record, nil
}

// GetByTick находит событие по естественному ключу
func (r *GormAttendanceRepository) GetByTick(userID, shopID uint, dttm time.Time, tickType string) (*models.AttendanceRecord, error) {
	var record models.AttendanceRecord
	result := r.db.Where("user_id = ? AND shop_id = ? AND dttm = ? AND type = ?",
		userID, shopID, dttm, tickType).First(&record)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get attendance record by tick")
		return nil, result.Error
	}

	return &record, nil
}

// GetByDttm находит событие пользователя в магазине на момент времени
// независимо от типа отметки
func (r *GormAttendanceRepository) GetByDttm(userID, shopID uint, dttm time.Time) (*models.AttendanceRecord, error) {
	var record models.AttendanceRecord
	result := r.db.Where("user_id = ? AND shop_id = ? AND dttm = ?",
		userID, shopID, dttm).First(&record)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get attendance record by dttm")
		return nil, result.Error
	}

	return &record, nil
}

func (r *GormAttendanceRepository) ListByUser(userID uint, limit int) ([]*models.AttendanceRecord, error) {
	var records []*models.AttendanceRecord
	query := r.db.Where("user_id = ?", userID).Order("dttm DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	result := query.Find(&records)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to list attendance records")
		return nil, result.Error
	}

	return records, nil
}

func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
