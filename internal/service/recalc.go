package service

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const recalcQueueSize = 1024

type recalcKey struct {
	EmployeeID uint
	Year       int
	Month      int
}

// RecalcWorker - фоновая очередь пересчёта табеля. Задачи схлопываются
// по ключу (сотрудник, месяц): повторная постановка при уже ожидающей
// задаче не создаёт дубликата.
type RecalcWorker struct {
	timesheet *TimesheetService

	// Постановка пересчёта предыдущего месяца при изменении
	// трудоустройства в первые дни нового
	prevMonthThresholdDays int

	mu      sync.Mutex
	pending map[recalcKey]bool
	queue   chan recalcKey
	done    chan struct{}
	wg      sync.WaitGroup
	logger  *logrus.Logger
}

func NewRecalcWorker(timesheet *TimesheetService, prevMonthThresholdDays int) *RecalcWorker {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	w := &RecalcWorker{
		timesheet:              timesheet,
		prevMonthThresholdDays: prevMonthThresholdDays,
		pending:                map[recalcKey]bool{},
		queue:                  make(chan recalcKey, recalcQueueSize),
		done:                   make(chan struct{}),
		logger:                 logger,
	}

	w.wg.Add(1)
	go w.run()

	return w
}

// Enqueue ставит пересчёт месяца сотрудника
func (w *RecalcWorker) Enqueue(employeeID uint, year, month int) {
	key := recalcKey{EmployeeID: employeeID, Year: year, Month: month}

	w.mu.Lock()
	if w.pending[key] {
		w.mu.Unlock()
		return
	}
	w.pending[key] = true
	w.mu.Unlock()

	select {
	case w.queue <- key:
	default:
		// Забитая очередь: задача потеряна, снимаем отметку
		w.mu.Lock()
		delete(w.pending, key)
		w.mu.Unlock()
		w.logger.WithFields(logrus.Fields{
			"employee_id": employeeID,
			"year":        year,
			"month":       month,
		}).Warn("Recalc queue full, task dropped")
	}
}

// EnqueueEmploymentChange ставит пересчёт месяца изменения
// трудоустройства; в первые дни месяца дополнительно пересчитывается
// предыдущий
func (w *RecalcWorker) EnqueueEmploymentChange(employeeID uint, dt time.Time) {
	w.Enqueue(employeeID, dt.Year(), int(dt.Month()))

	if dt.Day() <= w.prevMonthThresholdDays {
		prev := dt.AddDate(0, -1, 0)
		w.Enqueue(employeeID, prev.Year(), int(prev.Month()))
	}
}

// Close останавливает воркер после опустошения очереди
func (w *RecalcWorker) Close() {
	close(w.done)
	w.wg.Wait()
}

func (w *RecalcWorker) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			w.drain()
			return
		case key := <-w.queue:
			w.process(key)
		}
	}
}

// drain дорабатывает уже поставленные задачи перед остановкой
func (w *RecalcWorker) drain() {
	for {
		select {
		case key := <-w.queue:
			w.process(key)
		default:
			return
		}
	}
}

func (w *RecalcWorker) process(key recalcKey) {
	w.mu.Lock()
	delete(w.pending, key)
	w.mu.Unlock()

	if err := w.timesheet.RecalcMonth(key.EmployeeID, key.Year, key.Month); err != nil {
		w.logger.WithError(err).WithFields(logrus.Fields{
			"employee_id": key.EmployeeID,
			"year":        key.Year,
			"month":       key.Month,
		}).Error("Timesheet recalc failed")
	}
}
