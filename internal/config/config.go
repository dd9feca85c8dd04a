package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/env"
)

type Config struct {
	Primary  Primary        `koanf:"primary"`
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Gateway  GatewayConfig  `koanf:"gateway"`
	Logger   LoggerConfig   `koanf:"logger"`
	Worker   WorkerConfig   `koanf:"worker"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`

	// PublicBaseURL is the externally reachable base of this service, used
	// to build the gateway return URL.
	PublicBaseURL string `koanf:"public_base_url" validate:"required"`

	// CheckoutCompletedURL is where the verifier redirects confirmed buyers.
	CheckoutCompletedURL string `koanf:"checkout_completed_url" validate:"required"`

	// VerifyRatePerSecond and VerifyBurst bound the inbound callback rate.
	VerifyRatePerSecond float64 `koanf:"verify_rate_per_second"`
	VerifyBurst         int     `koanf:"verify_burst"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" validate:"required"`
}

// GatewayConfig carries the SizPay endpoints and merchant credentials.
// Credentials are opaque: they are sent to the gateway as-is, never
// validated locally.
type GatewayConfig struct {
	RouteServiceURL string        `koanf:"route_service_url" validate:"required"`
	PaymentPageURL  string        `koanf:"payment_page_url" validate:"required"`
	MerchantID      string        `koanf:"merchant_id" validate:"required"`
	TerminalID      string        `koanf:"terminal_id" validate:"required"`
	Username        string        `koanf:"username" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	ConnTimeout     time.Duration `koanf:"conn_timeout" validate:"required"`

	// IsToman: the store displays Toman while the gateway bills Rials, so
	// amounts are multiplied by 10 before transmission.
	IsToman bool `koanf:"is_toman"`
}

type WorkerConfig struct {
	Interval time.Duration `koanf:"interval" validate:"required"`
	// TokenTTL is how long an unused payment token may stay attached to a
	// pending order before the sweeper clears it.
	TokenTTL  time.Duration `koanf:"token_ttl" validate:"required"`
	BatchSize int           `koanf:"batch_size" validate:"required"`
}

type LoggerConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// NewLogger builds the process-wide slog logger from the configured level
// and format.
func (c LoggerConfig) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(c.Format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	err := k.Load(env.Provider("SIZPAY_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "SIZPAY_")),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}
