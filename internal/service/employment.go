package service

import (
	"fmt"
	"sort"
	"sync"
	"time"
	"wfm-backend/internal/models"
	"wfm-backend/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// EmploymentService выбирает активное трудоустройство для пары
// (сотрудник, дата) среди пересекающихся строк
type EmploymentService struct {
	employmentRepo repository.EmploymentRepository
	logger         *logrus.Logger

	// Кэш живёт только в копиях области запроса/задачи; у общего
	// экземпляра он nil, иначе записи переживали бы смену
	// трудоустройства
	mu    sync.Mutex
	cache map[string]*models.Employment
}

func NewEmploymentService(employmentRepo repository.EmploymentRepository) *EmploymentService {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	return &EmploymentService{
		employmentRepo: employmentRepo,
		logger:         logger,
	}
}

// WithRequestCache возвращает копию сервиса со свежим кэшем области запроса
func (s *EmploymentService) WithRequestCache() *EmploymentService {
	return &EmploymentService{
		employmentRepo: s.employmentRepo,
		logger:         s.logger,
		cache:          map[string]*models.Employment{},
	}
}

// WithTx возвращает копию со свежим кэшем и репозиторием, привязанным
// к транзакции
func (s *EmploymentService) WithTx(tx *gorm.DB) *EmploymentService {
	return &EmploymentService{
		employmentRepo: s.employmentRepo.WithTx(tx),
		logger:         s.logger,
		cache:          map[string]*models.Employment{},
	}
}

// ActiveEmployment возвращает единственное трудоустройство, покрывающее
// дату. Ранжирование: совпадение приоритетного магазина, затем
// должности якорного дня, затем большая ставка, затем самая свежая
// дата найма.
func (s *EmploymentService) ActiveEmployment(employeeID uint, dt time.Time, priorityShopID *uint, anchorPositionID *uint) (*models.Employment, error) {
	cacheKey := s.cacheKey(employeeID, dt, priorityShopID, anchorPositionID)
	if cached, ok := s.cacheGet(cacheKey); ok {
		return cached, nil
	}

	candidates, err := s.employmentRepo.ActiveOnDate(employeeID, dt)
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		s.logger.WithFields(logrus.Fields{
			"employee_id": employeeID,
			"dt":          dt.Format("2006-01-02"),
		}).Warn("No active employment found")
		return nil, ErrNoActiveEmployment
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]

		aShop := priorityShopID != nil && a.ShopID == *priorityShopID
		bShop := priorityShopID != nil && b.ShopID == *priorityShopID
		if aShop != bShop {
			return aShop
		}

		aPos := anchorPositionID != nil && a.PositionID == *anchorPositionID
		bPos := anchorPositionID != nil && b.PositionID == *anchorPositionID
		if aPos != bPos {
			return aPos
		}

		if a.NormWorkHours != b.NormWorkHours {
			return a.NormWorkHours > b.NormWorkHours
		}

		return a.DtHired.After(b.DtHired)
	})

	chosen := candidates[0]
	s.cachePut(cacheKey, chosen)
	return chosen, nil
}

func (s *EmploymentService) cacheGet(key string) (*models.Employment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache == nil {
		return nil, false
	}
	cached, ok := s.cache[key]
	return cached, ok
}

func (s *EmploymentService) cachePut(key string, employment *models.Employment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache == nil {
		return
	}
	s.cache[key] = employment
}

// ActiveInMonth возвращает трудоустройства, активные хотя бы один день месяца
func (s *EmploymentService) ActiveInMonth(employeeID uint, year, month int) ([]*models.Employment, error) {
	startDate := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	endDate := startDate.AddDate(0, 1, -1)
	return s.employmentRepo.ActiveInRange(employeeID, startDate, endDate)
}

func (s *EmploymentService) GetByID(id uint) (*models.Employment, error) {
	return s.employmentRepo.GetByID(id)
}

func (s *EmploymentService) cacheKey(employeeID uint, dt time.Time, priorityShopID, anchorPositionID *uint) string {
	shop := uint(0)
	if priorityShopID != nil {
		shop = *priorityShopID
	}
	pos := uint(0)
	if anchorPositionID != nil {
		pos = *anchorPositionID
	}
	return fmt.Sprintf("%d:%s:%d:%d", employeeID, dt.Format("2006-01-02"), shop, pos)
}
