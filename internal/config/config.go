package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/colmado/internal/money"
)

type Config struct {
	App struct {
		Name     string `envconfig:"APP_NAME" default:"Colmado"`
		Port     int    `envconfig:"PORT" default:"8080"`
		LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"colmado"`
		MaxConns int    `envconfig:"DB_MAX_CONNS" default:"25"`
	}

	Server struct {
		Timeout     time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		CORSOrigins []string      `envconfig:"CORS_ORIGINS" default:"http://localhost:5173"`
	}

	Auth struct {
		// Empty secret disables the bearer-token guard.
		JWTSecret string `envconfig:"JWT_SECRET"`
	}

	Redis struct {
		Addr        string `envconfig:"REDIS_ADDR"`
		Password    string `envconfig:"REDIS_PASSWORD"`
		DB          int    `envconfig:"REDIS_DB" default:"0"`
		SyncChannel string `envconfig:"REDIS_SYNC_CHANNEL" default:"colmado:changes"`
	}

	Settlement struct {
		CommissionRate decimal.Decimal `envconfig:"SETTLEMENT_COMMISSION_RATE" default:"0.038"`
		RetentionRate  decimal.Decimal `envconfig:"SETTLEMENT_RETENTION_RATE" default:"0.02"`
	}

	Accounts Accounts
}

// Accounts holds the chart-of-accounts codes the workflows post to.
type Accounts struct {
	CardClearing        string `envconfig:"ACCOUNT_CARD_CLEARING" default:"1103"`
	RetentionReceivable string `envconfig:"ACCOUNT_RETENTION_RECEIVABLE" default:"1108"`
	Inventory           string `envconfig:"ACCOUNT_INVENTORY" default:"1201"`
	AccountsPayable     string `envconfig:"ACCOUNT_PAYABLE" default:"2101"`
	InventoryGain       string `envconfig:"ACCOUNT_INVENTORY_GAIN" default:"4201"`
	CostOfGoodsSold     string `envconfig:"ACCOUNT_COGS" default:"5101"`
	CommissionExpense   string `envconfig:"ACCOUNT_CARD_COMMISSION" default:"6105"`
	Shrinkage           string `envconfig:"ACCOUNT_SHRINKAGE" default:"6300"`
	ShrinkageDamage     string `envconfig:"ACCOUNT_SHRINKAGE_DAMAGE" default:"6301"`
	ShrinkageTheft      string `envconfig:"ACCOUNT_SHRINKAGE_THEFT" default:"6302"`
	ShrinkageExpiration string `envconfig:"ACCOUNT_SHRINKAGE_EXPIRATION" default:"6303"`
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

// LogLevel maps the configured level name to a slog level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.App.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if !money.ValidRate(c.Settlement.CommissionRate) {
		return fmt.Errorf("invalid SETTLEMENT_COMMISSION_RATE %s: must be a fraction in [0, 1)", c.Settlement.CommissionRate)
	}

	if !money.ValidRate(c.Settlement.RetentionRate) {
		return fmt.Errorf("invalid SETTLEMENT_RETENTION_RATE %s: must be a fraction in [0, 1)", c.Settlement.RetentionRate)
	}

	return nil
}
