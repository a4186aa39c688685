package config

import (
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	DatabaseURL string
	ServerPort  string

	// Максимальная длительность одной смены в секундах: ограничивает
	// закрытие вчерашней открытой смены уходящей отметкой
	MaxWorkShiftSeconds int64
	// Максимальное расстояние от отметки до края плана в секундах
	TickMaxDiffSeconds int64
	// Пропускать уходящие отметки (для интеграций, где уход не фиксируется)
	SkipLeavingTick bool
	// Сколько первых дней месяца изменение трудоустройства ещё
	// пересчитывает предыдущий месяц
	PrevMonthRecalcThresholdDays int64

	TelegramBotToken string
	AlertChatID      int64

	ProductionCalendarPath string
}

var instance *Config
var once sync.Once

func Get() *Config {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			logrus.Info("No .env file found, reading environment")
		}

		instance = &Config{
			DatabaseURL:                  getEnv("DATABASE_URL", "postgresql://postgres@localhost:5432/wfm"),
			ServerPort:                   getEnv("SERVER_PORT", "8080"),
			MaxWorkShiftSeconds:          getEnvAsInt("MAX_WORK_SHIFT_SECONDS", 16*3600),
			TickMaxDiffSeconds:           getEnvAsInt("TICK_MAX_DIFF_SECONDS", 2*3600),
			SkipLeavingTick:              getEnvAsBool("SKIP_LEAVING_TICK", false),
			PrevMonthRecalcThresholdDays: getEnvAsInt("PREV_MONTH_RECALC_THRESHOLD_DAYS", 5),
			TelegramBotToken:             getEnv("TELEGRAM_BOT_TOKEN", ""),
			AlertChatID:                  getEnvAsInt("ALERT_CHAT_ID", 0),
			ProductionCalendarPath:       getEnv("PRODUCTION_CALENDAR_PATH", ""),
		}
	})

	return instance
}

func getEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultVal
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valStr := getEnv(name, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}

	return defaultVal
}

func getEnvAsInt(name string, defaultVal int64) int64 {
	valStr := getEnv(name, "")
	if val, err := strconv.Atoi(valStr); err == nil {
		return int64(val)
	}

	return defaultVal
}
