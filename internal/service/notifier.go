package service

import (
	"fmt"
	"time"
	"wfm-backend/pkg/telegram"

	"github.com/sirupsen/logrus"
)

// Notifier - исходящие оповещения. Отправка строго после коммита и
// никогда не откатывает основную транзакцию.
type Notifier interface {
	NotifyOffPlanWork(employeeID uint, dt time.Time)
	NotifyApproved(shopID uint, dtFrom, dtTo time.Time, isFact bool)
	Close()
}

// NoopNotifier используется, когда канал оповещений не настроен
type NoopNotifier struct{}

func (NoopNotifier) NotifyOffPlanWork(employeeID uint, dt time.Time)            {}
func (NoopNotifier) NotifyApproved(shopID uint, dtFrom, dtTo time.Time, b bool) {}
func (NoopNotifier) Close()                                                     {}

const (
	notifierQueueSize  = 256
	notifierMaxRetries = 3
	notifierRetryDelay = 5 * time.Second
)

// TelegramNotifier отправляет служебные оповещения в Telegram-чат
// с повторами при сбоях доставки (best-effort)
type TelegramNotifier struct {
	client *telegram.Client
	chatID int64
	queue  chan string
	done   chan struct{}
	logger *logrus.Logger
}

func NewTelegramNotifier(client *telegram.Client, chatID int64) *TelegramNotifier {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	n := &TelegramNotifier{
		client: client,
		chatID: chatID,
		queue:  make(chan string, notifierQueueSize),
		done:   make(chan struct{}),
		logger: logger,
	}

	go n.run()

	return n
}

// NotifyOffPlanWork - сотрудник работает не по плану
// (факт без планового дня)
func (n *TelegramNotifier) NotifyOffPlanWork(employeeID uint, dt time.Time) {
	n.enqueue(fmt.Sprintf("⚠️ Сотрудник %d работает не по плану %s",
		employeeID, dt.Format("2006-01-02")))
}

// NotifyApproved - график подтверждён
func (n *TelegramNotifier) NotifyApproved(shopID uint, dtFrom, dtTo time.Time, isFact bool) {
	graph := "план"
	if isFact {
		graph = "факт"
	}
	n.enqueue(fmt.Sprintf("✅ Магазин %d: подтверждён %s %s - %s",
		shopID, graph, dtFrom.Format("2006-01-02"), dtTo.Format("2006-01-02")))
}

func (n *TelegramNotifier) Close() {
	close(n.done)
}

func (n *TelegramNotifier) enqueue(text string) {
	select {
	case n.queue <- text:
	default:
		// Переполненная очередь не должна блокировать запись факта
		n.logger.Warn("Notifier queue full, message dropped")
	}
}

func (n *TelegramNotifier) run() {
	for {
		select {
		case <-n.done:
			return
		case text := <-n.queue:
			n.send(text)
		}
	}
}

func (n *TelegramNotifier) send(text string) {
	for attempt := 1; attempt <= notifierMaxRetries; attempt++ {
		err := n.client.SendMessage(n.chatID, text)
		if err == nil {
			return
		}

		n.logger.WithError(err).WithField("attempt", attempt).Warn("Failed to send notification")

		select {
		case <-n.done:
			return
		case <-time.After(notifierRetryDelay * time.Duration(attempt)):
		}
	}
}
