package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config is read from the environment, optionally seeded from .env files.
type Config struct {
	Address          string        `env:"ADDRESS" envDefault:":8082"`
	DBDSNs           []string      `env:"DB_DSNS" envSeparator:"," envDefault:"root:@tcp(127.0.0.1:3306)/order-db?parseTime=true"` // first DSN is the primary
	DBConnectRetries int           `env:"DB_CONNECT_RETRIES" envDefault:"10"`
	RedisAddr        string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	KafkaBrokers     []string      `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092,localhost:9093,localhost:9094"`
	KafkaOrderTopic  string        `env:"KAFKA_ORDER_TOPIC" envDefault:"order-topic"`
	KafkaGroupID     string        `env:"KAFKA_GROUP_ID" envDefault:"order-service-group"`
	JWTSecret        string        `env:"JWT_SECRET,required"`
	OrderTimeout     time.Duration `env:"ORDER_TIMEOUT" envDefault:"5s"`
	RateLimit        float64       `env:"RATE_LIMIT" envDefault:"10"`
	RateBurst        int           `env:"RATE_BURST" envDefault:"20"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat        string        `env:"LOG_FORMAT" envDefault:"json"` // json or console
	LogFile          string        `env:"LOG_FILE"`
	Env              string        `env:"ENV" envDefault:"development"`
}

// Load reads files into the environment (missing files are fine) and parses Config.
// Variables already set in the environment win over file values.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if len(cfg.DBDSNs) == 0 {
		return nil, errors.New("parse config: DB_DSNS must list at least one database")
	}
	if cfg.OrderTimeout <= 0 {
		return nil, errors.New("parse config: ORDER_TIMEOUT must be positive")
	}
	return &cfg, nil
}
