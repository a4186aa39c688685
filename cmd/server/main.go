package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"wfm-backend/internal/config"
	"wfm-backend/internal/handler"
	"wfm-backend/internal/repository"
	"wfm-backend/internal/service"
	"wfm-backend/pkg/telegram"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	logrus.Info("Initializing config...")
	cfg := config.Get()
	logrus.Info("Config initialized...")

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		logrus.Fatal("Failed to connect to database:", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		logrus.Fatal("Failed to get database instance:", err)
	}

	catalogRepo, err := repository.NewGormCatalogRepository(db)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create catalog repository")
	}

	shopRepo, err := repository.NewGormShopRepository(db)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create shop repository")
	}

	employeeRepo, err := repository.NewGormEmployeeRepository(db)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create employee repository")
	}

	employmentRepo, err := repository.NewGormEmploymentRepository(db)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create employment repository")
	}

	workDayRepo, err := repository.NewGormWorkDayRepository(db)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create work day repository")
	}

	attendanceRepo, err := repository.NewGormAttendanceRepository(db)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create attendance repository")
	}

	timesheetRepo, err := repository.NewGormTimesheetRepository(db)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create timesheet repository")
	}

	permissionRepo, err := repository.NewGormPermissionRepository(db)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create permission repository")
	}

	// Справочник типов дня заполняется при первом старте
	if err := catalogRepo.SeedWorkDayTypes(); err != nil {
		logrus.WithError(err).Fatal("Failed to seed work day types")
	}

	calendarSvc := service.NewCalendarService(catalogRepo, shopRepo)
	scheduleSvc := service.NewShopScheduleService(shopRepo)
	employmentSvc := service.NewEmploymentService(employmentRepo)
	calculator := service.NewWorkHoursCalculator(calendarSvc, scheduleSvc, shopRepo, workDayRepo)
	permissionSvc := service.NewPermissionService(permissionRepo, shopRepo)

	timesheetSvc := service.NewTimesheetService(
		timesheetRepo,
		workDayRepo,
		employeeRepo,
		shopRepo,
		catalogRepo,
		employmentSvc,
		calendarSvc,
	)

	recalcWorker := service.NewRecalcWorker(timesheetSvc, int(cfg.PrevMonthRecalcThresholdDays))

	var notifier service.Notifier = service.NoopNotifier{}
	if cfg.TelegramBotToken != "" && cfg.AlertChatID != 0 {
		client, err := telegram.NewClient(cfg.TelegramBotToken)
		if err != nil {
			logrus.WithError(err).Warn("Failed to create Telegram client, notifications disabled")
		} else {
			logrus.Infof("Authorized on account %s", client.Bot.Self.UserName)
			notifier = service.NewTelegramNotifier(client, cfg.AlertChatID)
		}
	}

	workDaySvc := service.NewWorkDayService(
		workDayRepo,
		catalogRepo,
		shopRepo,
		employeeRepo,
		employmentSvc,
		calculator,
		permissionSvc,
		recalcWorker,
	)

	approvalSvc := service.NewApprovalService(workDayRepo, shopRepo, permissionSvc, notifier, recalcWorker)

	attendanceSvc := service.NewAttendanceService(
		attendanceRepo,
		workDayRepo,
		employeeRepo,
		catalogRepo,
		shopRepo,
		employmentSvc,
		calculator,
		notifier,
		recalcWorker,
		service.AttendanceConfig{
			TickMaxDiff:     time.Duration(cfg.TickMaxDiffSeconds) * time.Second,
			MaxWorkShift:    time.Duration(cfg.MaxWorkShiftSeconds) * time.Second,
			SkipLeavingTick: cfg.SkipLeavingTick,
		},
	)

	// Производственный календарь подгружается из файла, если задан
	if cfg.ProductionCalendarPath != "" {
		if days, err := calendarSvc.LoadProductionCalendar(cfg.ProductionCalendarPath); err != nil {
			logrus.WithError(err).Warn("Failed to load production calendar")
		} else {
			logrus.Infof("Production calendar loaded: %d days", days)
		}
	}

	h := handler.NewHandler(workDaySvc, approvalSvc, attendanceSvc, timesheetSvc, permissionSvc, calendarSvc)

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: h.Router(),
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logrus.Infof("Server listening on :%s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatal("Server failed:", err)
		}
	}()

	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logrus.Infof("Error shutting down server: %v", err)
	}

	recalcWorker.Close()
	notifier.Close()

	if err := sqlDB.Close(); err != nil {
		logrus.Infof("Error closing database: %v", err)
	}

	logrus.Info("Server stopped gracefully")
}
