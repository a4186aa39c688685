package service

import (
	"fmt"
	"strings"
	"time"
	"wfm-backend/internal/models"
	"wfm-backend/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ApproveParams - область операции подтверждения
type ApproveParams struct {
	ShopID      uint
	DtFrom      time.Time
	DtTo        time.Time
	IsFact      bool
	WdTypes     []string
	EmployeeIDs []uint
	ActorUserID uint
}

// ApprovalService - атомарное подтверждение диапазона графика
type ApprovalService struct {
	workDayRepo repository.WorkDayRepository
	shopRepo    repository.ShopRepository
	permissions *PermissionService
	notifier    Notifier
	recalc      RecalcEnqueuer
	logger      *logrus.Logger
}

func NewApprovalService(
	workDayRepo repository.WorkDayRepository,
	shopRepo repository.ShopRepository,
	permissions *PermissionService,
	notifier Notifier,
	recalc RecalcEnqueuer,
) *ApprovalService {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	return &ApprovalService{
		workDayRepo: workDayRepo,
		shopRepo:    shopRepo,
		permissions: permissions,
		notifier:    notifier,
		recalc:      recalc,
		logger:      logger,
	}
}

// ApproveRange подтверждает черновики в области одной транзакцией.
// Переход - минимальный дифф: подтверждённые строки без черновика
// удаляются, черновики становятся подтверждёнными на месте прежних.
// Оповещения уходят после коммита.
func (s *ApprovalService) ApproveRange(params ApproveParams) error {
	if params.DtTo.Before(params.DtFrom) {
		return ErrValidation
	}

	shop, err := s.shopRepo.GetByID(params.ShopID)
	if err != nil {
		return err
	}
	if shop == nil {
		return ErrNotFound
	}

	graph := models.GraphPlan
	if params.IsFact {
		graph = models.GraphFact
	}

	notApproved := false
	approved := true
	scope := repository.WorkDayFilter{
		ShopID:      &params.ShopID,
		DtFrom:      &params.DtFrom,
		DtTo:        &params.DtTo,
		IsFact:      &params.IsFact,
		TypeCodes:   params.WdTypes,
		EmployeeIDs: params.EmployeeIDs,
	}

	affected := map[uint]bool{}

	err = s.workDayRepo.DB().Transaction(func(tx *gorm.DB) error {
		repo := s.workDayRepo.WithTx(tx)
		permissions := s.permissions.WithTx(tx)

		candidateScope := scope
		candidateScope.IsApproved = &notApproved
		candidates, err := repo.List(candidateScope)
		if err != nil {
			return err
		}

		approvedScope := scope
		approvedScope.IsApproved = &approved
		currentApproved, err := repo.List(approvedScope)
		if err != nil {
			return err
		}

		// Шаг 1: первый отказ в правах отменяет операцию целиком
		for _, wd := range append(append([]*models.WorkDay{}, candidates...), currentApproved...) {
			if err := permissions.Check(params.ActorUserID, models.ActionApprove, graph, wd, shop); err != nil {
				return err
			}
		}

		// Шаги 3-4: пересечения в целевой версии и покрытие задач
		if err := s.checkTargetOverlaps(repo, candidates); err != nil {
			return err
		}
		if err := s.checkTasks(repo, candidates); err != nil {
			return err
		}

		// Шаг 5: минимальный дифф
		hasDraft := map[string]bool{}
		for _, wd := range candidates {
			hasDraft[versionDayKey(wd)] = true
		}

		for _, old := range currentApproved {
			if !hasDraft[versionDayKey(old)] {
				// Подтверждённая строка без черновика удаляется
				if err := repo.DeleteByID(old.ID); err != nil {
					return err
				}
				if old.EmployeeID != nil {
					affected[*old.EmployeeID] = true
				}
			}
		}

		for _, wd := range candidates {
			if wd.EmployeeID != nil {
				old, err := repo.LockVersion(*wd.EmployeeID, wd.Dt, wd.IsFact, true)
				if err != nil {
					return err
				}
				if old != nil {
					if err := repo.DeleteByID(old.ID); err != nil {
						return err
					}
				}
				affected[*wd.EmployeeID] = true
			}

			wd.IsApproved = true
			if err := repo.Save(wd); err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		if isSerializationError(err) {
			return ErrConflict
		}
		return err
	}

	// Шаг 6: побочные эффекты строго после коммита
	for employeeID := range affected {
		if s.recalc != nil {
			s.recalc.Enqueue(employeeID, params.DtFrom.Year(), int(params.DtFrom.Month()))
			if params.DtTo.Month() != params.DtFrom.Month() || params.DtTo.Year() != params.DtFrom.Year() {
				s.recalc.Enqueue(employeeID, params.DtTo.Year(), int(params.DtTo.Month()))
			}
		}
	}
	if s.notifier != nil {
		s.notifier.NotifyApproved(params.ShopID, params.DtFrom, params.DtTo, params.IsFact)
	}

	s.logger.WithFields(logrus.Fields{
		"shop_id": params.ShopID,
		"dt_from": params.DtFrom.Format("2006-01-02"),
		"dt_to":   params.DtTo.Format("2006-01-02"),
		"is_fact": params.IsFact,
	}).Info("Range approved")

	return nil
}

// checkTargetOverlaps проверяет, что после перехода в подтверждённую
// версию интервалы одного сотрудника на дату не пересекаются
func (s *ApprovalService) checkTargetOverlaps(repo repository.WorkDayRepository, candidates []*models.WorkDay) error {
	for i, wd := range candidates {
		if !wd.HasInterval() || wd.EmployeeID == nil {
			continue
		}

		// Пересечения между самими кандидатами
		for j := i + 1; j < len(candidates); j++ {
			other := candidates[j]
			if other.EmployeeID == nil || *other.EmployeeID != *wd.EmployeeID {
				continue
			}
			if wd.Overlaps(other) {
				return ErrOverlap
			}
		}

		// Пересечения с уже подтверждёнными соседями, которые не
		// заменяются этим кандидатом
		target := *wd
		target.IsApproved = true
		peers, err := repo.ListPeers(&target)
		if err != nil {
			return err
		}
		for _, peer := range peers {
			if peer.SameVersionKey(&target) {
				continue
			}
			if wd.Overlaps(peer) {
				return ErrOverlap
			}
		}
	}

	return nil
}

// checkTasks проверяет, что смены покрывают интервалы всех задач дня
func (s *ApprovalService) checkTasks(repo repository.WorkDayRepository, candidates []*models.WorkDay) error {
	byDay := map[string][]*models.WorkDay{}
	for _, wd := range candidates {
		if wd.EmployeeID == nil {
			continue
		}
		key := versionDayKey(wd)
		byDay[key] = append(byDay[key], wd)
	}

	for _, days := range byDay {
		first := days[0]
		tasks, err := repo.ListTasks(*first.EmployeeID, first.Dt)
		if err != nil {
			return err
		}
		for _, task := range tasks {
			if !task.CoveredBy(days) {
				s.logger.WithFields(logrus.Fields{
					"employee_id": *first.EmployeeID,
					"dt":          first.Dt.Format("2006-01-02"),
					"task_id":     task.ID,
				}).Warn("Task not covered by shifts")
				return ErrTaskViolation
			}
		}
	}

	return nil
}

func versionDayKey(wd *models.WorkDay) string {
	employee := uint(0)
	if wd.EmployeeID != nil {
		employee = *wd.EmployeeID
	}
	return fmt.Sprintf("%d:%s", employee, wd.Dt.Format("2006-01-02"))
}

func isSerializationError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "serialize") ||
		strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "could not serialize")
}
