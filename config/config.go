package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Config is the process configuration loaded from the environment.
type Config struct {
	DBDriver string
	DBDSN    string
	NatsURL  string
	Port     string
	TaxRate  decimal.Decimal
	TipRate  decimal.Decimal
}

// Load reads .env (when present) and the environment. Rates default to
// 19% tax and 10% suggested tip.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBDriver: getenv("DB_DRIVER", "mysql"),
		DBDSN:    os.Getenv("DB_DSN"),
		NatsURL:  os.Getenv("NATS_URL"),
		Port:     getenv("PORT", "8080"),
	}

	var err error
	cfg.TaxRate, err = rate("TAX_RATE", "0.19")
	if err != nil {
		return nil, err
	}
	cfg.TipRate, err = rate("TIP_RATE", "0.10")
	if err != nil {
		return nil, err
	}

	if cfg.DBDriver == "mysql" && cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required for the mysql driver")
	}
	return cfg, nil
}

// InitDB opens the configured database. Duplicate-key errors must be
// translatable so concurrent create races surface as conflicts.
func InitDB(cfg *Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{TranslateError: true}

	switch cfg.DBDriver {
	case "mysql":
		return gorm.Open(mysql.Open(cfg.DBDSN), gormCfg)
	case "sqlite":
		dsn := cfg.DBDSN
		if dsn == "" {
			dsn = "pos.db"
		}
		return gorm.Open(sqlite.Open(dsn), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func rate(key, fallback string) (decimal.Decimal, error) {
	raw := getenv(key, fallback)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}
