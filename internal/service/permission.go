package service

import (
	"time"
	"wfm-backend/internal/models"
	"wfm-backend/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PermissionService - проверка прав на действия с рабочими днями
type PermissionService struct {
	permissionRepo repository.PermissionRepository
	shopRepo       repository.ShopRepository
	logger         *logrus.Logger

	// Подменяется в тестах
	now func() time.Time
}

func NewPermissionService(permissionRepo repository.PermissionRepository, shopRepo repository.ShopRepository) *PermissionService {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	return &PermissionService{
		permissionRepo: permissionRepo,
		shopRepo:       shopRepo,
		logger:         logger,
		now:            time.Now,
	}
}

// WithTx возвращает сервис с репозиториями, привязанными к транзакции
func (s *PermissionService) WithTx(tx *gorm.DB) *PermissionService {
	return &PermissionService{
		permissionRepo: s.permissionRepo.WithTx(tx),
		shopRepo:       s.shopRepo.WithTx(tx),
		logger:         s.logger,
		now:            s.now,
	}
}

// May проверяет, разрешено ли пользователю действие
// (action, graph_type, wd_type) на дату. "Сегодня" берётся по часовому
// поясу магазина.
func (s *PermissionService) May(userID uint, action, graphType, wdTypeCode string, dt time.Time, shop *models.Shop) (bool, error) {
	groups, err := s.permissionRepo.GroupsForUser(userID)
	if err != nil {
		return false, err
	}
	if len(groups) == 0 {
		return false, nil
	}

	today := s.now()
	if shop != nil {
		today = today.In(shop.Location())
	}

	for _, group := range groups {
		for _, p := range group.Permissions {
			if p.Action != action || p.GraphType != graphType || p.WdTypeCode != wdTypeCode {
				continue
			}
			if p.AllowsDate(today, dt) {
				return true, nil
			}
		}
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":   userID,
		"action":    action,
		"graph":     graphType,
		"wd_type":   wdTypeCode,
		"dt":        dt.Format("2006-01-02"),
	}).Debug("Permission denied")

	return false, nil
}

// MayTouchProtected проверяет право менять защищённые подтверждённые дни
func (s *PermissionService) MayTouchProtected(userID uint) (bool, error) {
	groups, err := s.permissionRepo.GroupsForUser(userID)
	if err != nil {
		return false, err
	}
	for _, group := range groups {
		if group.HasPermToChangeProtectedWdays {
			return true, nil
		}
	}
	return false, nil
}

// Check применяет May и возвращает доменную ошибку при отказе,
// учитывая защищённые дни
func (s *PermissionService) Check(userID uint, action, graphType string, wd *models.WorkDay, shop *models.Shop) error {
	allowed, err := s.May(userID, action, graphType, wd.TypeCode, wd.Dt, shop)
	if err != nil {
		return err
	}
	if !allowed {
		if action == models.ActionApprove {
			return ErrApprovalForbidden
		}
		return ErrForbidden
	}

	if wd.IsBlocked && wd.IsApproved {
		elevated, err := s.MayTouchProtected(userID)
		if err != nil {
			return err
		}
		if !elevated {
			return ErrProtectedDay
		}
	}

	return nil
}

// ListPermissions возвращает права пользователя для отображения
func (s *PermissionService) ListPermissions(userID uint, action, graphType string) ([]models.GroupPermission, error) {
	groups, err := s.permissionRepo.GroupsForUser(userID)
	if err != nil {
		return nil, err
	}

	groupIDs := make([]uint, 0, len(groups))
	for _, g := range groups {
		groupIDs = append(groupIDs, g.ID)
	}

	return s.permissionRepo.ListPermissions(groupIDs, action, graphType)
}
