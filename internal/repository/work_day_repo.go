package repository

import (
	"errors"
	"time"
	"wfm-backend/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WorkDayFilter - фильтры выборки рабочих дней
type WorkDayFilter struct {
	ShopID      *uint
	EmployeeIDs []uint
	DtFrom      *time.Time
	DtTo        *time.Time
	IsFact      *bool
	IsApproved  *bool
	TypeCodes   []string
	CreatedByID *uint
}

type WorkDayRepository interface {
	WithTx(tx *gorm.DB) WorkDayRepository
	DB() *gorm.DB

	Create(wd *models.WorkDay) error
	Save(wd *models.WorkDay) error
	GetByID(id uint) (*models.WorkDay, error)
	GetVersion(employeeID uint, dt time.Time, isFact, isApproved bool) (*models.WorkDay, error)
	LockVersion(employeeID uint, dt time.Time, isFact, isApproved bool) (*models.WorkDay, error)
	List(filter WorkDayFilter) ([]*models.WorkDay, error)
	ListPeers(wd *models.WorkDay) ([]*models.WorkDay, error)
	ListPlanApprovedForEmployees(employeeIDs []uint, dtFrom, dtTo time.Time, shopID uint) ([]*models.WorkDay, error)
	ListForMonth(employeeID uint, year, month int, isFact, isApproved bool) ([]*models.WorkDay, error)
	RangeDelete(filter WorkDayFilter) (int64, error)
	DeleteByID(id uint) error
	ReplaceDetails(workDayID uint, details []models.WorkDayDetail) error
	ListTasks(employeeID uint, dt time.Time) ([]models.ShiftTask, error)
}

type GormWorkDayRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormWorkDayRepository(db *gorm.DB) (*GormWorkDayRepository, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if err := db.AutoMigrate(
		&models.WorkDay{},
		&models.WorkDayDetail{},
		&models.ShiftTask{},
	); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate work day tables")
		return nil, err
	}

	logger.Info("Work day repository initialized")

	return &GormWorkDayRepository{
		db:     db,
		logger: logger,
	}, nil
}

// WithTx возвращает репозиторий, привязанный к транзакции
func (r *GormWorkDayRepository) WithTx(tx *gorm.DB) WorkDayRepository {
	return &GormWorkDayRepository{db: tx, logger: r.logger}
}

func (r *GormWorkDayRepository) DB() *gorm.DB {
	return r.db
}

func (r *GormWorkDayRepository) Create(wd *models.WorkDay) error {
	result := r.db.Omit("Details", "Type").Create(wd)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to create work day")
		return result.Error
	}

	r.logger.WithFields(logrus.Fields{
		"id":          wd.ID,
		"dt":          wd.Dt.Format("2006-01-02"),
		"is_fact":     wd.IsFact,
		"is_approved": wd.IsApproved,
		"type":        wd.TypeCode,
	}).Info("Work day created")

	return nil
}

func (r *GormWorkDayRepository) Save(wd *models.WorkDay) error {
	result := r.db.Omit("Details", "Type").Save(wd)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to save work day")
		return result.Error
	}

	return nil
}

func (r *GormWorkDayRepository) GetByID(id uint) (*models.WorkDay, error) {
	var wd models.WorkDay
	result := r.db.Preload("Type").Preload("Details").Preload("Details.WorkType").First(&wd, id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get work day by ID")
		return nil, result.Error
	}

	return &wd, nil
}

func (r *GormWorkDayRepository) GetVersion(employeeID uint, dt time.Time, isFact, isApproved bool) (*models.WorkDay, error) {
	return r.getVersion(employeeID, dt, isFact, isApproved, false)
}

// LockVersion читает версию дня с блокировкой SELECT FOR UPDATE
func (r *GormWorkDayRepository) LockVersion(employeeID uint, dt time.Time, isFact, isApproved bool) (*models.WorkDay, error) {
	return r.getVersion(employeeID, dt, isFact, isApproved, true)
}

func (r *GormWorkDayRepository) getVersion(employeeID uint, dt time.Time, isFact, isApproved, lock bool) (*models.WorkDay, error) {
	var wd models.WorkDay
	query := r.db.Preload("Type").Preload("Details").Preload("Details.WorkType").
		Where("employee_id = ? AND dt = ? AND is_fact = ? AND is_approved = ?",
			employeeID, models.DateOf(dt), isFact, isApproved)
	// SQLite не поддерживает SELECT FOR UPDATE
	if lock && r.db.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	result := query.First(&wd)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get work day version")
		return nil, result.Error
	}

	return &wd, nil
}

func (r *GormWorkDayRepository) List(filter WorkDayFilter) ([]*models.WorkDay, error) {
	var days []*models.WorkDay
	result := r.applyFilter(filter).
		Preload("Type").Preload("Details").Preload("Details.WorkType").
		Order("dt, dttm_work_start").
		Find(&days)

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to list work days")
		return nil, result.Error
	}

	return days, nil
}

func (r *GormWorkDayRepository) applyFilter(filter WorkDayFilter) *gorm.DB {
	query := r.db.Model(&models.WorkDay{})
	if filter.ShopID != nil {
		query = query.Where("shop_id = ?", *filter.ShopID)
	}
	if len(filter.EmployeeIDs) > 0 {
		query = query.Where("employee_id IN ?", filter.EmployeeIDs)
	}
	if filter.DtFrom != nil {
		query = query.Where("dt >= ?", models.DateOf(*filter.DtFrom))
	}
	if filter.DtTo != nil {
		query = query.Where("dt <= ?", models.DateOf(*filter.DtTo))
	}
	if filter.IsFact != nil {
		query = query.Where("is_fact = ?", *filter.IsFact)
	}
	if filter.IsApproved != nil {
		query = query.Where("is_approved = ?", *filter.IsApproved)
	}
	if len(filter.TypeCodes) > 0 {
		query = query.Where("type_code IN ?", filter.TypeCodes)
	}
	if filter.CreatedByID != nil {
		query = query.Where("created_by_id = ?", *filter.CreatedByID)
	}
	return query
}

// ListPeers возвращает соседей дня в той же версии (is_fact, is_approved)
// в окне dt-1..dt+1 для проверки пересечений (смены бывают многодневными)
func (r *GormWorkDayRepository) ListPeers(wd *models.WorkDay) ([]*models.WorkDay, error) {
	if wd.EmployeeID == nil {
		return nil, nil
	}

	var peers []*models.WorkDay
	query := r.db.
		Where("employee_id = ? AND is_fact = ? AND is_approved = ?",
			*wd.EmployeeID, wd.IsFact, wd.IsApproved).
		Where("dt >= ? AND dt <= ?",
			models.DateOf(wd.Dt).AddDate(0, 0, -1), models.DateOf(wd.Dt).AddDate(0, 0, 1))
	if wd.ID != 0 {
		query = query.Where("id != ?", wd.ID)
	}

	result := query.Find(&peers)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to list peer work days")
		return nil, result.Error
	}

	return peers, nil
}

// ListPlanApprovedForEmployees возвращает подтверждённые плановые дни
// сотрудников в магазине за период (для сверки отметок)
func (r *GormWorkDayRepository) ListPlanApprovedForEmployees(employeeIDs []uint, dtFrom, dtTo time.Time, shopID uint) ([]*models.WorkDay, error) {
	if len(employeeIDs) == 0 {
		return nil, nil
	}

	var days []*models.WorkDay
	result := r.db.Preload("Type").Preload("Details").Preload("Details.WorkType").
		Where("employee_id IN ? AND shop_id = ? AND is_fact = ? AND is_approved = ?",
			employeeIDs, shopID, false, true).
		Where("dt >= ? AND dt <= ?", models.DateOf(dtFrom), models.DateOf(dtTo)).
		Where("dttm_work_start IS NOT NULL AND dttm_work_end IS NOT NULL").
		Find(&days)

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to list plan approved work days")
		return nil, result.Error
	}

	return days, nil
}

func (r *GormWorkDayRepository) ListForMonth(employeeID uint, year, month int, isFact, isApproved bool) ([]*models.WorkDay, error) {
	startDate := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	endDate := startDate.AddDate(0, 1, -1)

	var days []*models.WorkDay
	result := r.db.Preload("Type").Preload("Details").Preload("Details.WorkType").
		Where("employee_id = ? AND is_fact = ? AND is_approved = ? AND dt BETWEEN ? AND ?",
			employeeID, isFact, isApproved, startDate, endDate).
		Order("dt").
		Find(&days)

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to list work days for month")
		return nil, result.Error
	}

	return days, nil
}

// RangeDelete удаляет неподтверждённые дни по фильтру; подтверждённые
// версии массовым удалением не трогаются
func (r *GormWorkDayRepository) RangeDelete(filter WorkDayFilter) (int64, error) {
	notApproved := false
	filter.IsApproved = &notApproved

	query := r.applyFilter(filter)
	result := query.Delete(&models.WorkDay{})
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to range-delete work days")
		return 0, result.Error
	}

	r.logger.WithField("rows_affected", result.RowsAffected).Info("Work days range-deleted")
	return result.RowsAffected, nil
}

func (r *GormWorkDayRepository) DeleteByID(id uint) error {
	if err := r.db.Where("work_day_id = ?", id).Delete(&models.WorkDayDetail{}).Error; err != nil {
		r.logger.WithError(err).Error("Failed to delete work day details")
		return err
	}

	result := r.db.Delete(&models.WorkDay{}, id)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to delete work day")
		return result.Error
	}

	if result.RowsAffected == 0 {
		return errors.New("рабочий день не найден")
	}

	return nil
}

// ReplaceDetails заменяет разбиение дня по видам работ
func (r *GormWorkDayRepository) ReplaceDetails(workDayID uint, details []models.WorkDayDetail) error {
	if err := r.db.Where("work_day_id = ?", workDayID).Delete(&models.WorkDayDetail{}).Error; err != nil {
		r.logger.WithError(err).Error("Failed to clear work day details")
		return err
	}

	if len(details) == 0 {
		return nil
	}

	for i := range details {
		details[i].ID = 0
		details[i].WorkDayID = workDayID
		details[i].Ordering = i
	}

	if err := r.db.Create(&details).Error; err != nil {
		r.logger.WithError(err).Error("Failed to create work day details")
		return err
	}

	return nil
}

func (r *GormWorkDayRepository) ListTasks(employeeID uint, dt time.Time) ([]models.ShiftTask, error) {
	var tasks []models.ShiftTask
	result := r.db.Where("employee_id = ? AND dt = ?", employeeID, models.DateOf(dt)).Find(&tasks)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to list shift tasks")
		return nil, result.Error
	}
	return tasks, nil
}
