package repository

import (
	"errors"
	"wfm-backend/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type PermissionRepository interface {
	WithTx(tx *gorm.DB) PermissionRepository

	GetGroup(id uint) (*models.FunctionGroup, error)
	GroupsForUser(userID uint) ([]*models.FunctionGroup, error)
	ListPermissions(groupIDs []uint, action, graphType string) ([]models.GroupPermission, error)
}

type GormPermissionRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormPermissionRepository(db *gorm.DB) (*GormPermissionRepository, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if err := db.AutoMigrate(&models.FunctionGroup{}, &models.GroupPermission{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate permission tables")
		return nil, err
	}

	logger.Info("Permission repository initialized")

	return &GormPermissionRepository{
		db:     db,
		logger: logger,
	}, nil
}

// WithTx возвращает репозиторий, привязанный к транзакции
func (r *GormPermissionRepository) WithTx(tx *gorm.DB) PermissionRepository {
	return &GormPermissionRepository{db: tx, logger: r.logger}
}

func (r *GormPermissionRepository) GetGroup(id uint) (*models.FunctionGroup, error) {
	var group models.FunctionGroup
	result := r.db.Preload("Permissions").First(&group, id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get function group")
		return nil, result.Error
	}

	return &group, nil
}

// GroupsForUser собирает группы пользователя: прямую группу учётной
// записи и группы всех его активных трудоустройств
func (r *GormPermissionRepository) GroupsForUser(userID uint) ([]*models.FunctionGroup, error) {
	var user models.User
	result := r.db.First(&user, userID)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get user for groups")
		return nil, result.Error
	}

	groupIDs := map[uint]bool{}
	if user.FunctionGroupID != nil {
		groupIDs[*user.FunctionGroupID] = true
	}

	var employmentGroupIDs []uint
	err := r.db.Model(&models.Employment{}).
		Joins("JOIN employees ON employees.id = employments.employee_id").
		Where("employees.user_id = ? AND employments.function_group_id IS NOT NULL", userID).
		Pluck("employments.function_group_id", &employmentGroupIDs).Error
	if err != nil {
		r.logger.WithError(err).Error("Failed to get employment groups")
		return nil, err
	}
	for _, id := range employmentGroupIDs {
		groupIDs[id] = true
	}

	var groups []*models.FunctionGroup
	for id := range groupIDs {
		group, err := r.GetGroup(id)
		if err != nil {
			return nil, err
		}
		if group != nil {
			groups = append(groups, group)
		}
	}

	return groups, nil
}

func (r *GormPermissionRepository) ListPermissions(groupIDs []uint, action, graphType string) ([]models.GroupPermission, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}

	query := r.db.Where("function_group_id IN ?", groupIDs)
	if action != "" {
		query = query.Where("action = ?", action)
	}
	if graphType != "" {
		query = query.Where("graph_type = ?", graphType)
	}

	var permissions []models.GroupPermission
	result := query.Find(&permissions)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to list permissions")
		return nil, result.Error
	}

	return permissions, nil
}
