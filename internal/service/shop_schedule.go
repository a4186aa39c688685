package service

import (
	"time"
	"wfm-backend/internal/models"
	"wfm-backend/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ShopScheduleService - режим работы магазина по датам
type ShopScheduleService struct {
	shopRepo repository.ShopRepository
	logger   *logrus.Logger
}

func NewShopScheduleService(shopRepo repository.ShopRepository) *ShopScheduleService {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	return &ShopScheduleService{
		shopRepo: shopRepo,
		logger:   logger,
	}
}

// WithTx возвращает сервис с репозиторием, привязанным к транзакции
func (s *ShopScheduleService) WithTx(tx *gorm.DB) *ShopScheduleService {
	return &ShopScheduleService{
		shopRepo: s.shopRepo.WithTx(tx),
		logger:   s.logger,
	}
}

// Schedule возвращает интервал работы магазина на дату или ok=false,
// если магазин закрыт. Без записи в базе магазин считается
// круглосуточным.
func (s *ShopScheduleService) Schedule(shop *models.Shop, dt time.Time) (open, close time.Time, ok bool, err error) {
	schedule, err := s.shopRepo.GetSchedule(shop.ID, dt)
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}

	loc := shop.Location()
	if schedule == nil {
		day := time.Date(dt.Year(), dt.Month(), dt.Day(), 0, 0, 0, 0, loc)
		return day, day.AddDate(0, 0, 1), true, nil
	}

	open, close, ok = schedule.Interval(loc)
	return open, close, ok, nil
}

// SetSchedule сохраняет режим работы магазина на дату
func (s *ShopScheduleService) SetSchedule(schedule *models.ShopSchedule) error {
	schedule.Dt = models.DateOf(schedule.Dt)
	return s.shopRepo.SaveSchedule(schedule)
}
