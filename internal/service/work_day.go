package service

import (
	"errors"
	"math"
	"time"
	"wfm-backend/internal/models"
	"wfm-backend/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RecalcEnqueuer принимает задания пересчёта табеля по (сотрудник, месяц)
type RecalcEnqueuer interface {
	Enqueue(employeeID uint, year, month int)
}

// WorkDayService - операции над рабочими днями: запись с пересчётом
// производных полей, выборки, массовое удаление, вакансии и обмен смен
type WorkDayService struct {
	workDayRepo   repository.WorkDayRepository
	catalogRepo   repository.CatalogRepository
	shopRepo      repository.ShopRepository
	employeeRepo  repository.EmployeeRepository
	employmentSvc *EmploymentService
	calculator    *WorkHoursCalculator
	permissions   *PermissionService
	recalc        RecalcEnqueuer
	logger        *logrus.Logger
}

func NewWorkDayService(
	workDayRepo repository.WorkDayRepository,
	catalogRepo repository.CatalogRepository,
	shopRepo repository.ShopRepository,
	employeeRepo repository.EmployeeRepository,
	employmentSvc *EmploymentService,
	calculator *WorkHoursCalculator,
	permissions *PermissionService,
	recalc RecalcEnqueuer,
) *WorkDayService {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	return &WorkDayService{
		workDayRepo:   workDayRepo,
		catalogRepo:   catalogRepo,
		shopRepo:      shopRepo,
		employeeRepo:  employeeRepo,
		employmentSvc: employmentSvc,
		calculator:    calculator,
		permissions:   permissions,
		recalc:        recalc,
		logger:        logger,
	}
}

// withTx возвращает копию сервиса со всеми зависимостями, привязанными
// к транзакции
func (s *WorkDayService) withTx(tx *gorm.DB) *WorkDayService {
	return &WorkDayService{
		workDayRepo:   s.workDayRepo.WithTx(tx),
		catalogRepo:   s.catalogRepo.WithTx(tx),
		shopRepo:      s.shopRepo.WithTx(tx),
		employeeRepo:  s.employeeRepo.WithTx(tx),
		employmentSvc: s.employmentSvc.WithTx(tx),
		calculator:    s.calculator.withTx(tx),
		permissions:   s.permissions.WithTx(tx),
		recalc:        s.recalc,
		logger:        s.logger,
	}
}

func (s *WorkDayService) List(filter repository.WorkDayFilter) ([]*models.WorkDay, error) {
	return s.workDayRepo.List(filter)
}

func (s *WorkDayService) GetByID(id uint) (*models.WorkDay, error) {
	return s.workDayRepo.GetByID(id)
}

// Upsert записывает рабочий день. Существующая строка с тем же ключом
// (employee, dt, is_fact, is_approved) обновляется на месте. Перед
// сохранением пересчитываются производные поля и проверяются
// пересечения с соседями той же версии.
func (s *WorkDayService) Upsert(wd *models.WorkDay, details []models.WorkDayDetail, actorUserID *uint) (*models.WorkDay, error) {
	wd.Dt = models.DateOf(wd.Dt)

	t, err := s.catalogRepo.GetWorkDayType(wd.TypeCode)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrNotFound
	}

	if !wd.IsValid(t) {
		s.logger.WithFields(logrus.Fields{
			"dt":   wd.Dt.Format("2006-01-02"),
			"type": wd.TypeCode,
		}).Warn("Invalid work day data")
		return nil, ErrValidation
	}

	if len(details) > 0 {
		sum := models.DetailsPartSum(details)
		if math.Abs(sum-1.0) > 1e-6 {
			return nil, ErrValidation
		}
	}

	var shop *models.Shop
	if wd.ShopID != nil {
		shop, err = s.shopRepo.GetByID(*wd.ShopID)
		if err != nil {
			return nil, err
		}
		if shop == nil {
			return nil, ErrNotFound
		}
	}

	// Существующая версия обновляется на месте
	var existing *models.WorkDay
	if wd.EmployeeID != nil {
		existing, err = s.workDayRepo.GetVersion(*wd.EmployeeID, wd.Dt, wd.IsFact, wd.IsApproved)
		if err != nil {
			return nil, err
		}
	}

	if actorUserID != nil {
		graph := models.GraphPlan
		if wd.IsFact {
			graph = models.GraphFact
		}
		target := wd
		if existing != nil {
			target = existing
		}
		if err := s.permissions.Check(*actorUserID, models.ActionCreateUpdate, graph, target, shop); err != nil {
			return nil, err
		}
		wd.LastEditedByID = actorUserID
		if existing == nil {
			wd.CreatedByID = actorUserID
		}
	}

	if existing != nil {
		wd.ID = existing.ID
		wd.CreatedAt = existing.CreatedAt
		if wd.CreatedByID == nil {
			wd.CreatedByID = existing.CreatedByID
		}
	}

	if err := s.recompute(wd, t); err != nil {
		return nil, err
	}

	if err := s.checkOverlap(wd); err != nil {
		return nil, err
	}

	if existing != nil {
		if err := s.workDayRepo.Save(wd); err != nil {
			return nil, err
		}
	} else {
		if err := s.workDayRepo.Create(wd); err != nil {
			return nil, err
		}
	}

	if len(details) > 0 {
		if err := s.workDayRepo.ReplaceDetails(wd.ID, details); err != nil {
			return nil, err
		}
	}

	s.enqueueRecalc(wd.EmployeeID, wd.Dt)

	return s.workDayRepo.GetByID(wd.ID)
}

// recompute пересчитывает табельный интервал и часы
func (s *WorkDayService) recompute(wd *models.WorkDay, t *models.WorkDayType) error {
	var employment *models.Employment
	if wd.EmployeeID != nil && t.HasTime() {
		if wd.EmploymentID == nil {
			resolved, err := s.employmentSvc.ActiveEmployment(*wd.EmployeeID, wd.Dt, wd.ShopID, nil)
			if err != nil {
				return err
			}
			employment = resolved
			wd.EmploymentID = &resolved.ID
		} else {
			resolved, err := s.employmentSvc.GetByID(*wd.EmploymentID)
			if err != nil {
				return err
			}
			employment = resolved
		}
	}

	hours, err := s.calculator.ForWorkDay(wd, t, employment)
	if err != nil {
		return err
	}

	wd.WorkHours = hours.Total
	wd.DayHours = hours.Day
	wd.NightHours = hours.Night
	wd.DttmWorkStartTabel = hours.StartTabel
	wd.DttmWorkEndTabel = hours.EndTabel

	return nil
}

// checkOverlap отклоняет пересечение интервалов в одной версии
// (is_fact, is_approved) сотрудника
func (s *WorkDayService) checkOverlap(wd *models.WorkDay) error {
	if !wd.HasInterval() || wd.EmployeeID == nil {
		return nil
	}

	peers, err := s.workDayRepo.ListPeers(wd)
	if err != nil {
		return err
	}

	for _, peer := range peers {
		if wd.Overlaps(peer) {
			s.logger.WithFields(logrus.Fields{
				"employee_id": *wd.EmployeeID,
				"dt":          wd.Dt.Format("2006-01-02"),
				"peer_id":     peer.ID,
			}).Warn("Work time overlap detected")
			return ErrOverlap
		}
	}

	return nil
}

// RangeDelete удаляет неподтверждённые дни сотрудников за период.
// Подтверждённые версии массовым удалением не затрагиваются.
func (s *WorkDayService) RangeDelete(employeeIDs []uint, dtFrom, dtTo time.Time, onlyTypes []string, onlyCreatedByID *uint, actorUserID *uint) (int64, error) {
	if dtTo.Before(dtFrom) {
		return 0, ErrValidation
	}

	filter := repository.WorkDayFilter{
		EmployeeIDs: employeeIDs,
		DtFrom:      &dtFrom,
		DtTo:        &dtTo,
		TypeCodes:   onlyTypes,
		CreatedByID: onlyCreatedByID,
	}

	deleted, err := s.workDayRepo.RangeDelete(filter)
	if err != nil {
		return 0, err
	}

	for _, employeeID := range employeeIDs {
		id := employeeID
		s.enqueueRecalc(&id, dtFrom)
		s.enqueueRecalc(&id, dtTo)
	}

	return deleted, nil
}

// GetPlan возвращает подтверждённый план, а при его отсутствии -
// черновик плана
func (s *WorkDayService) GetPlan(employeeID uint, dt time.Time) (*models.WorkDay, error) {
	approved, err := s.workDayRepo.GetVersion(employeeID, dt, false, true)
	if err != nil {
		return nil, err
	}
	if approved != nil {
		return approved, nil
	}
	return s.workDayRepo.GetVersion(employeeID, dt, false, false)
}

// GetTabel возвращает версию дня для табеля: подтверждённый факт, а при
// его отсутствии подтверждённый план, кроме плана с интервалом без
// фактических часов
func (s *WorkDayService) GetTabel(employeeID uint, dt time.Time) (*models.WorkDay, error) {
	fact, err := s.workDayRepo.GetVersion(employeeID, dt, true, true)
	if err != nil {
		return nil, err
	}
	if fact != nil {
		return fact, nil
	}

	plan, err := s.workDayRepo.GetVersion(employeeID, dt, false, true)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, nil
	}
	if plan.Type.HasTime() && plan.WorkHours.IsZero() {
		return nil, nil
	}
	return plan, nil
}

// ChangeRange проставляет тип дня сотруднику на период (загрузка
// отпусков и больничных из кадровой системы)
func (s *WorkDayService) ChangeRange(networkID uint, tabelCode string, dtFrom, dtTo time.Time, typeCode string, isApproved bool, actorUserID *uint) (int, error) {
	if dtTo.Before(dtFrom) {
		return 0, ErrValidation
	}

	employee, err := s.employeeRepo.GetByTabelCode(networkID, tabelCode)
	if err != nil {
		return 0, err
	}
	if employee == nil {
		return 0, ErrNotFound
	}

	t, err := s.catalogRepo.GetWorkDayType(typeCode)
	if err != nil {
		return 0, err
	}
	if t == nil {
		return 0, ErrNotFound
	}
	if t.HasTime() {
		// Период можно заполнять только типами без интервала
		return 0, ErrValidation
	}

	changed := 0
	for dt := models.DateOf(dtFrom); !dt.After(models.DateOf(dtTo)); dt = dt.AddDate(0, 0, 1) {
		employeeID := employee.ID
		wd := &models.WorkDay{
			EmployeeID: &employeeID,
			Dt:         dt,
			IsFact:     false,
			IsApproved: isApproved,
			TypeCode:   typeCode,
		}
		if _, err := s.Upsert(wd, nil, actorUserID); err != nil {
			return changed, err
		}
		changed++
	}

	return changed, nil
}

// ExchangeApproved меняет местами подтверждённые плановые дни двух
// сотрудников на указанные даты. Обмен атомарен: ошибка на любом шаге
// откатывает уже удалённые дни.
func (s *WorkDayService) ExchangeApproved(employee1ID, employee2ID uint, dates []time.Time, actorUserID *uint) error {
	return s.workDayRepo.DB().Transaction(func(tx *gorm.DB) error {
		txSvc := s.withTx(tx)

		for _, dt := range dates {
			wd1, err := txSvc.workDayRepo.GetVersion(employee1ID, dt, false, true)
			if err != nil {
				return err
			}
			wd2, err := txSvc.workDayRepo.GetVersion(employee2ID, dt, false, true)
			if err != nil {
				return err
			}
			if wd1 == nil || wd2 == nil {
				return ErrNotFound
			}

			// Дни сперва удаляются, чтобы обойти уникальный ключ версии
			if err := txSvc.workDayRepo.DeleteByID(wd1.ID); err != nil {
				return err
			}
			if err := txSvc.workDayRepo.DeleteByID(wd2.ID); err != nil {
				return err
			}

			if err := txSvc.reassign(wd1, employee2ID, actorUserID); err != nil {
				return err
			}
			if err := txSvc.reassign(wd2, employee1ID, actorUserID); err != nil {
				return err
			}
		}

		return nil
	})
}

func (s *WorkDayService) reassign(wd *models.WorkDay, employeeID uint, actorUserID *uint) error {
	fresh := *wd
	fresh.ID = 0
	fresh.EmployeeID = &employeeID
	fresh.EmploymentID = nil
	details := wd.Details
	fresh.Details = nil

	_, err := s.Upsert(&fresh, details, actorUserID)
	return err
}

// ConfirmVacancy назначает сотрудника на открытую вакансию
func (s *WorkDayService) ConfirmVacancy(vacancyID, employeeID uint, actorUserID *uint) (*models.WorkDay, error) {
	vacancy, err := s.workDayRepo.GetByID(vacancyID)
	if err != nil {
		return nil, err
	}
	if vacancy == nil || !vacancy.IsVacancy {
		return nil, ErrNotFound
	}
	if vacancy.EmployeeID != nil {
		return nil, ErrConflict
	}

	vacancy.EmployeeID = &employeeID
	vacancy.EmploymentID = nil
	details := vacancy.Details
	vacancy.Details = nil

	updated, err := s.Upsert(vacancy, details, actorUserID)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"vacancy_id":  vacancyID,
		"employee_id": employeeID,
	}).Info("Vacancy confirmed")

	return updated, nil
}

// RefuseVacancy снимает сотрудника с вакансии, возвращая её в открытые
func (s *WorkDayService) RefuseVacancy(vacancyID uint, actorUserID *uint) (*models.WorkDay, error) {
	vacancy, err := s.workDayRepo.GetByID(vacancyID)
	if err != nil {
		return nil, err
	}
	if vacancy == nil || !vacancy.IsVacancy {
		return nil, ErrNotFound
	}

	formerEmployee := vacancy.EmployeeID
	vacancy.EmployeeID = nil
	vacancy.EmploymentID = nil

	if err := s.workDayRepo.Save(vacancy); err != nil {
		return nil, err
	}

	if formerEmployee != nil {
		s.enqueueRecalc(formerEmployee, vacancy.Dt)
	}

	s.logger.WithField("vacancy_id", vacancyID).Info("Vacancy refused")

	return s.workDayRepo.GetByID(vacancyID)
}

// ReconfirmVacancyToWorker переназначает вакансию на другого сотрудника
func (s *WorkDayService) ReconfirmVacancyToWorker(vacancyID, employeeID uint, actorUserID *uint) (*models.WorkDay, error) {
	if _, err := s.RefuseVacancy(vacancyID, actorUserID); err != nil {
		return nil, err
	}
	return s.ConfirmVacancy(vacancyID, employeeID, actorUserID)
}

// UpsertByCodeParams - запись дня с фолбэком идентификаторов на коды
type UpsertByCodeParams struct {
	ShopCode      string
	Username      string
	TabelCode     string
	Dt            time.Time
	TypeCode      string
	DttmWorkStart *time.Time
	DttmWorkEnd   *time.Time
	WorkTypeCode  string
	IsFact        bool
	IsApproved    bool
}

// UpsertByCode разрешает коды магазина, сотрудника и вида работ
// и записывает день
func (s *WorkDayService) UpsertByCode(params UpsertByCodeParams, actorUserID *uint) (*models.WorkDay, error) {
	shop, err := s.shopRepo.GetByCode(params.ShopCode)
	if err != nil {
		return nil, err
	}
	if shop == nil {
		return nil, ErrNotFound
	}

	var employee *models.Employee
	if params.Username != "" {
		user, err := s.employeeRepo.GetUserByUsername(params.Username)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, ErrNotFound
		}
		employees, err := s.employeeRepo.GetByUserID(user.ID)
		if err != nil {
			return nil, err
		}
		if len(employees) == 0 {
			return nil, ErrNotFound
		}
		if len(employees) > 1 {
			return nil, ErrMultiObjectUnique
		}
		employee = employees[0]
	} else if params.TabelCode != "" {
		employee, err = s.employeeRepo.GetByTabelCode(shop.NetworkID, params.TabelCode)
		if err != nil {
			return nil, err
		}
		if employee == nil {
			return nil, ErrNotFound
		}
	} else {
		return nil, ErrValidation
	}

	var details []models.WorkDayDetail
	if params.WorkTypeCode != "" {
		workType, err := s.catalogRepo.GetWorkTypeByCode(shop.ID, params.WorkTypeCode)
		if err != nil {
			return nil, err
		}
		if workType == nil {
			return nil, ErrNotFound
		}
		details = []models.WorkDayDetail{{WorkTypeID: workType.ID, WorkPart: 1.0}}
	}

	employeeID := employee.ID
	shopID := shop.ID
	wd := &models.WorkDay{
		EmployeeID:    &employeeID,
		Dt:            params.Dt,
		IsFact:        params.IsFact,
		IsApproved:    params.IsApproved,
		TypeCode:      params.TypeCode,
		ShopID:        &shopID,
		DttmWorkStart: params.DttmWorkStart,
		DttmWorkEnd:   params.DttmWorkEnd,
	}

	return s.Upsert(wd, details, actorUserID)
}

// HandleEmploymentDeleted перепривязывает дни удалённого трудоустройства
// к другому активному трудоустройству того же сотрудника; дни без
// замены удаляются (неподтверждённые) или остаются без привязки
func (s *WorkDayService) HandleEmploymentDeleted(employment *models.Employment) error {
	employmentID := employment.ID
	filter := repository.WorkDayFilter{EmployeeIDs: []uint{employment.EmployeeID}}
	days, err := s.workDayRepo.List(filter)
	if err != nil {
		return err
	}

	// Кэш области задачи: дни одной даты разрешаются один раз
	employments := s.employmentSvc.WithRequestCache()

	for _, wd := range days {
		if wd.EmploymentID == nil || *wd.EmploymentID != employmentID {
			continue
		}

		replacement, err := employments.ActiveEmployment(employment.EmployeeID, wd.Dt, wd.ShopID, nil)
		if err != nil && !errors.Is(err, ErrNoActiveEmployment) {
			return err
		}

		if replacement != nil && replacement.ID != employmentID {
			wd.EmploymentID = &replacement.ID
			if err := s.workDayRepo.Save(wd); err != nil {
				return err
			}
			continue
		}

		if !wd.IsApproved {
			if err := s.workDayRepo.DeleteByID(wd.ID); err != nil {
				return err
			}
		} else {
			wd.EmploymentID = nil
			if err := s.workDayRepo.Save(wd); err != nil {
				return err
			}
		}
	}

	s.enqueueRecalc(&employment.EmployeeID, employment.DtHired)
	return nil
}

func (s *WorkDayService) enqueueRecalc(employeeID *uint, dt time.Time) {
	if s.recalc == nil || employeeID == nil {
		return
	}
	s.recalc.Enqueue(*employeeID, dt.Year(), int(dt.Month()))
}
