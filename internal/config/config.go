package config

import (
	"os"
	"strconv"
	"time"

	cablerobot "github.com/iwtcode/cableRobot"
	"github.com/joho/godotenv"
)

// AppConfig содержит конфигурацию приложения
type AppConfig struct {
	ServerPort     string
	GinMode        string
	Kafka          KafkaConfig
	StatusInterval time.Duration
	Logging        LoggerConfig
	Robot          *cablerobot.Config
}

// KafkaConfig содержит настройки публикации телеметрии
type KafkaConfig struct {
	Enable bool
	Broker string
	Topic  string
}

// LoggerConfig содержит настройки логгера
type LoggerConfig struct {
	Enable     bool
	LogsDir    string
	Level      string
	SavingDays int
}

// LoadConfiguration загружает конфигурацию из .env файла или переменных окружения
func LoadConfiguration() (*AppConfig, error) {
	_ = godotenv.Load()

	robotCfg, err := cablerobot.Load()
	if err != nil {
		return nil, err
	}

	config := &AppConfig{
		ServerPort: getEnv("APP_PORT", "8082"),
		GinMode:    getEnv("GIN_MODE", "debug"),
		Kafka: KafkaConfig{
			Enable: getEnvAsBool("KAFKA_ENABLE", false),
			Broker: getEnv("KAFKA_BROKER", "localhost:9092"),
			Topic:  getEnv("KAFKA_TOPIC", "cable_robot"),
		},
		StatusInterval: time.Duration(getEnvAsInt("STATUS_STREAM_INTERVAL", 100)) * time.Millisecond,
		Logging: LoggerConfig{
			Enable:     getEnvAsBool("LOGGER_ENABLE", true),
			LogsDir:    getEnv("LOGGER_LOGS_DIR", "./logs"),
			Level:      getEnv("LOGGER_LOG_LEVEL", "DEBUG"),
			SavingDays: getEnvAsInt("LOGGER_SAVING_DAYS", 7),
		},
		Robot: robotCfg,
	}

	return config, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(name string, defaultValue int) int {
	valueStr := getEnv(name, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	val, _ := strconv.ParseBool(value)
	return val
}
