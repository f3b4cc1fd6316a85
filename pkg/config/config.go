package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/vlkv/go-shop/pkg/utils"
)

type Config struct {
	Env      string `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTP   `yaml:"http"`
	Postgres PG     `yaml:"postgres"`
	Redis    Redis  `yaml:"redis"`
	Kafka    Kafka  `yaml:"kafka"`
	SMTP     SMTP   `yaml:"smtp"`
}

type HTTP struct {
	Port    string        `yaml:"port" env:"HTTP_PORT" env-default:":8080"`
	Timeout time.Duration `yaml:"timeout" env-default:"4s"`
}

type PG struct {
	URL string `yaml:"url" env:"DB_URL"`
}

type Redis struct {
	Addr string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
}

type Kafka struct {
	Brokers       []string `yaml:"brokers" env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	OrderTopic    string   `yaml:"order_topic" env:"KAFKA_ORDER_TOPIC" env-default:"order-events"`
	ConsumerGroup string   `yaml:"consumer_group" env:"KAFKA_CONSUMER_GROUP" env-default:"notification-service-group"`
	Retry         Retry    `yaml:"retry"`
}

// Retry bounds one publish attempt sequence and the consumer redelivery
// loop. Injected at construction, never read from globals.
type Retry struct {
	MaxAttempts int           `yaml:"max_attempts" env:"KAFKA_RETRY_MAX_ATTEMPTS" env-default:"3"`
	Backoff     time.Duration `yaml:"backoff" env:"KAFKA_RETRY_BACKOFF" env-default:"2s"`
}

type SMTP struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     string `yaml:"port" env:"SMTP_PORT"`
	User     string `yaml:"user" env:"SMTP_USER"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
}

func MustLoad() *Config {
	configPath := utils.ParseWithFallback("CONFIG_PATH", "./config/local.yaml")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exists: %v\n", err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("error reading config: %v", err)
	}

	return &cfg
}
