// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"finflow-ledger/pkg/db" // Import db package for its Config struct

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// AppConfig holds all application-wide configurations.
type AppConfig struct {
	ServerPort string
	LogLevel   string
	JWTSecret  string
	DB         db.Config

	// MinDepositAmount is the smallest deposit request accepted.
	MinDepositAmount decimal.Decimal
	// PlansFile is the YAML catalog of investment plans seeded at startup. Empty skips seeding.
	PlansFile string
	// MaturitySweepInterval is how often matured positions are completed. Zero disables the sweep.
	MaturitySweepInterval time.Duration
	MaturitySweepWorkers  int
}

// LoadConfig loads configuration from environment variables, reading a .env file first if
// one exists. It returns an error if any variable is present but invalid.
func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	dbPort, err := getEnvInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	maxOpen, err := getEnvInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, err
	}
	maxIdle, err := getEnvInt("DB_MAX_IDLE_CONNS", 10)
	if err != nil {
		return nil, err
	}
	connLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	minDeposit, err := getEnvDecimal("MIN_DEPOSIT_AMOUNT", decimal.NewFromInt(10))
	if err != nil {
		return nil, err
	}
	if minDeposit.IsNegative() {
		return nil, fmt.Errorf("invalid MIN_DEPOSIT_AMOUNT: must not be negative")
	}
	sweepInterval, err := getEnvDuration("MATURITY_SWEEP_INTERVAL", time.Hour)
	if err != nil {
		return nil, err
	}
	sweepWorkers, err := getEnvInt("MATURITY_SWEEP_WORKERS", 4)
	if err != nil {
		return nil, err
	}
	if sweepWorkers <= 0 {
		return nil, fmt.Errorf("invalid MATURITY_SWEEP_WORKERS: must be positive")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return &AppConfig{
		ServerPort: getEnvString("SERVER_PORT", "8080"),
		LogLevel:   getEnvString("LOG_LEVEL", "info"),
		JWTSecret:  jwtSecret,
		DB: db.Config{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            dbPort,
			User:            getEnvString("DB_USER", "user"),
			Password:        getEnvString("DB_PASSWORD", "password"),
			DBName:          getEnvString("DB_NAME", "ledgerdb"),
			SSLMode:         getEnvString("DB_SSLMODE", "disable"),
			MaxOpenConns:    maxOpen,
			MaxIdleConns:    maxIdle,
			ConnMaxLifetime: connLifetime,
		},
		MinDepositAmount:      minDeposit,
		PlansFile:             getEnvString("PLANS_FILE", "plans.yaml"),
		MaturitySweepInterval: sweepInterval,
		MaturitySweepWorkers:  sweepWorkers,
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	if value == "0" {
		return 0, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if parsed < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return parsed, nil
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
