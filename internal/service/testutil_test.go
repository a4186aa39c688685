package service

import (
	"testing"
	"time"
	"wfm-backend/internal/models"
	"wfm-backend/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fixture - база в памяти с минимальным каталогом: сеть, магазин,
// сотрудник с трудоустройством и группа с полными правами
type fixture struct {
	db *gorm.DB

	catalogRepo    repository.CatalogRepository
	shopRepo       repository.ShopRepository
	employeeRepo   repository.EmployeeRepository
	employmentRepo repository.EmploymentRepository
	workDayRepo    repository.WorkDayRepository
	attendanceRepo repository.AttendanceRepository
	timesheetRepo  repository.TimesheetRepository
	permissionRepo repository.PermissionRepository

	network    *models.Network
	shop       *models.Shop
	group      *models.FunctionGroup
	user       *models.User
	employee   *models.Employee
	position   *models.Position
	employment *models.Employment
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// База в памяти живёт в одном соединении
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	f := &fixture{db: db}

	f.catalogRepo, err = repository.NewGormCatalogRepository(db)
	require.NoError(t, err)
	f.shopRepo, err = repository.NewGormShopRepository(db)
	require.NoError(t, err)
	f.employeeRepo, err = repository.NewGormEmployeeRepository(db)
	require.NoError(t, err)
	f.employmentRepo, err = repository.NewGormEmploymentRepository(db)
	require.NoError(t, err)
	f.workDayRepo, err = repository.NewGormWorkDayRepository(db)
	require.NoError(t, err)
	f.attendanceRepo, err = repository.NewGormAttendanceRepository(db)
	require.NoError(t, err)
	f.timesheetRepo, err = repository.NewGormTimesheetRepository(db)
	require.NoError(t, err)
	f.permissionRepo, err = repository.NewGormPermissionRepository(db)
	require.NoError(t, err)

	require.NoError(t, f.catalogRepo.SeedWorkDayTypes())

	f.network = &models.Network{
		Code:               "base",
		Name:               "Базовая сеть",
		NightStart:         "22:00",
		NightEnd:           "06:00",
		AllowCrossDayClose: true,
	}
	require.NoError(t, db.Create(f.network).Error)

	f.shop = &models.Shop{
		Code:      "shop-1",
		Name:      "Магазин 1",
		NetworkID: f.network.ID,
		Timezone:  "UTC",
	}
	require.NoError(t, db.Create(f.shop).Error)

	f.group = &models.FunctionGroup{Code: "admins", Name: "Администраторы"}
	require.NoError(t, db.Create(f.group).Error)
	for _, action := range []string{models.ActionCreateUpdate, models.ActionDelete, models.ActionApprove} {
		for _, graph := range []string{models.GraphPlan, models.GraphFact} {
			for _, wdType := range []string{models.TypeWorkday, models.TypeHoliday, models.TypeVacation, models.TypeSickLeave, models.TypeEmpty} {
				p := &models.GroupPermission{
					FunctionGroupID: f.group.ID,
					Action:          action,
					GraphType:       graph,
					WdTypeCode:      wdType,
				}
				require.NoError(t, db.Create(p).Error)
			}
		}
	}

	f.user = &models.User{Username: "ivanov", FunctionGroupID: &f.group.ID}
	require.NoError(t, db.Create(f.user).Error)

	f.employee = &models.Employee{
		UserID:    &f.user.ID,
		TabelCode: "T-001",
		NetworkID: f.network.ID,
	}
	require.NoError(t, db.Create(f.employee).Error)

	f.position = &models.Position{Code: "cashier", Name: "Кассир"}
	require.NoError(t, db.Create(f.position).Error)

	f.employment = &models.Employment{
		EmployeeID:    f.employee.ID,
		ShopID:        f.shop.ID,
		PositionID:    f.position.ID,
		DtHired:       date(2020, 1, 1),
		NormWorkHours: 100,
	}
	require.NoError(t, db.Create(f.employment).Error)

	return f
}

func (f *fixture) saveNetwork(t *testing.T) {
	t.Helper()
	require.NoError(t, f.db.Save(f.network).Error)
}

// addBreakRule подключает к сети набор перерывов с одним правилом
func (f *fixture) addBreakRule(t *testing.T, fromMin, toMin int, breaks string) {
	t.Helper()
	set := &models.BreakSet{Name: "Перерывы"}
	require.NoError(t, f.db.Create(set).Error)
	rule := &models.BreakRule{BreakSetID: set.ID, ShiftFromMin: fromMin, ShiftToMin: toMin, Breaks: breaks}
	require.NoError(t, f.db.Create(rule).Error)
	f.network.BreakSetID = &set.ID
	f.saveNetwork(t)
}

func (f *fixture) calendarService() *CalendarService {
	return NewCalendarService(f.catalogRepo, f.shopRepo)
}

func (f *fixture) calculator() *WorkHoursCalculator {
	return NewWorkHoursCalculator(f.calendarService(), NewShopScheduleService(f.shopRepo), f.shopRepo, f.workDayRepo)
}

func (f *fixture) employmentService() *EmploymentService {
	return NewEmploymentService(f.employmentRepo)
}

func (f *fixture) permissionService(now time.Time) *PermissionService {
	svc := NewPermissionService(f.permissionRepo, f.shopRepo)
	svc.now = func() time.Time { return now }
	return svc
}

func (f *fixture) workDayService(now time.Time) *WorkDayService {
	return NewWorkDayService(
		f.workDayRepo,
		f.catalogRepo,
		f.shopRepo,
		f.employeeRepo,
		f.employmentService(),
		f.calculator(),
		f.permissionService(now),
		nil,
	)
}

func (f *fixture) approvalService(now time.Time) *ApprovalService {
	return NewApprovalService(f.workDayRepo, f.shopRepo, f.permissionService(now), NoopNotifier{}, nil)
}

func (f *fixture) timesheetService() *TimesheetService {
	return NewTimesheetService(
		f.timesheetRepo,
		f.workDayRepo,
		f.employeeRepo,
		f.shopRepo,
		f.catalogRepo,
		f.employmentService(),
		f.calendarService(),
	)
}

func (f *fixture) attendanceService(cfg AttendanceConfig) *AttendanceService {
	return NewAttendanceService(
		f.attendanceRepo,
		f.workDayRepo,
		f.employeeRepo,
		f.catalogRepo,
		f.shopRepo,
		f.employmentService(),
		f.calculator(),
		NoopNotifier{},
		nil,
		cfg,
	)
}

// createWorkDay пишет версию дня напрямую в хранилище, минуя проверки
func (f *fixture) createWorkDay(t *testing.T, dt time.Time, isFact, isApproved bool, typeCode string, start, end *time.Time) *models.WorkDay {
	t.Helper()
	wd := &models.WorkDay{
		EmployeeID:    &f.employee.ID,
		Dt:            models.DateOf(dt),
		IsFact:        isFact,
		IsApproved:    isApproved,
		TypeCode:      typeCode,
		ShopID:        &f.shop.ID,
		EmploymentID:  &f.employment.ID,
		DttmWorkStart: start,
		DttmWorkEnd:   end,
	}
	require.NoError(t, f.workDayRepo.Create(wd))
	return wd
}

func date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func at(year, month, day, hour, minute int) time.Time {
	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
}

func ptr[T any](v T) *T {
	return &v
}
