package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const defaultJWTSecret = "dev_secret_change_me"

type Config struct {
	App       AppConfig
	Log       LogConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Auth      AuthConfig
	Links     LinksConfig
	Mail      MailConfig
	Events    EventsConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Name        string        `env:"APP_NAME" envDefault:"socialhub"`
	Environment string        `env:"APP_ENV" envDefault:"development"`
	Port        string        `env:"PORT" envDefault:"4000"`
	Timeout     time.Duration `env:"APP_TIMEOUT" envDefault:"30s"`
}

type LogConfig struct {
	Path       string `env:"LOGS_PATH" envDefault:"./logs"`
	FileOutput bool   `env:"LOG_FILE_OUTPUT" envDefault:"false"`
}

type DatabaseConfig struct {
	Driver          string        `env:"DB_DRIVER" envDefault:"postgres"`
	Host            string        `env:"DB_HOST" envDefault:"localhost"`
	Port            int           `env:"DB_PORT" envDefault:"5432"`
	Name            string        `env:"DB_NAME" envDefault:"socialhub"`
	User            string        `env:"DB_USER" envDefault:"postgres"`
	Password        string        `env:"DB_PASSWORD" envDefault:"postgres"`
	SSLMode         string        `env:"DB_SSL_MODE" envDefault:"disable"`
	SQLitePath      string        `env:"DB_SQLITE_PATH" envDefault:"socialhub.db"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"50"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"1h"`
	ConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"10m"`
}

type RedisConfig struct {
	Enabled      bool          `env:"REDIS_ENABLED" envDefault:"false"`
	Host         string        `env:"REDIS_HOST" envDefault:"localhost"`
	Port         int           `env:"REDIS_PORT" envDefault:"6379"`
	Password     string        `env:"REDIS_PASSWORD"`
	Database     int           `env:"REDIS_DB" envDefault:"0"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

type JWTConfig struct {
	Secret    string        `env:"JWT_SECRET" envDefault:"dev_secret_change_me"`
	ExpiresIn time.Duration `env:"JWT_EXPIRES_IN" envDefault:"15m"`
	Issuer    string        `env:"JWT_ISSUER" envDefault:"socialhub"`
}

type AuthConfig struct {
	ConfirmationWindow time.Duration `env:"AUTH_CONFIRMATION_WINDOW" envDefault:"15m"`
	RevokeOnReuse      bool          `env:"AUTH_REVOKE_ON_REUSE" envDefault:"false"`
	PendingRetention   time.Duration `env:"AUTH_PENDING_RETENTION" envDefault:"24h"`
	PendingSweepEvery  time.Duration `env:"AUTH_PENDING_SWEEP_INTERVAL" envDefault:"5m"`
	BcryptCost         int           `env:"AUTH_BCRYPT_COST" envDefault:"10"`
	Argon2MemoryKB     uint32        `env:"AUTH_ARGON2_MEMORY_KB" envDefault:"65536"`
	Argon2Iterations   uint32        `env:"AUTH_ARGON2_ITERATIONS" envDefault:"3"`
	Argon2Parallelism  uint8         `env:"AUTH_ARGON2_PARALLELISM" envDefault:"2"`
}

type LinksConfig struct {
	APIBaseURL      string `env:"API_BASE_URL" envDefault:"http://localhost:4000"`
	FrontendBaseURL string `env:"FRONTEND_BASE_URL" envDefault:"http://localhost:3000"`
}

type MailConfig struct {
	Provider       string `env:"MAIL_PROVIDER" envDefault:"log"`
	FromName       string `env:"MAIL_FROM_NAME" envDefault:"Social Media App"`
	FromAddress    string `env:"MAIL_FROM_ADDRESS" envDefault:"noreply@socialmediaapp.com"`
	SendGridAPIKey string `env:"SENDGRID_API_KEY"`
	SMTPHost       string `env:"SMTP_HOST" envDefault:"smtp.ethereal.email"`
	SMTPPort       int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPSecure     bool   `env:"SMTP_SECURE" envDefault:"false"`
	SMTPUser       string `env:"SMTP_USER"`
	SMTPPass       string `env:"SMTP_PASS"`
}

type EventsConfig struct {
	Enabled       bool   `env:"NATS_ENABLED" envDefault:"false"`
	URL           string `env:"NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	SubjectPrefix string `env:"NATS_SUBJECT_PREFIX" envDefault:"socialhub"`
}

type RateLimitConfig struct {
	Request      int           `env:"RATE_LIMIT_MAX_REQUEST" envDefault:"20"`
	Duration     time.Duration `env:"RATE_LIMIT_DURATION" envDefault:"60s"`
	AuthRequest  int           `env:"AUTH_RATE_LIMIT_MAX_REQUEST" envDefault:"5"`
	AuthDuration time.Duration `env:"AUTH_RATE_LIMIT_DURATION" envDefault:"60s"`
}

func LoadConfig() (*Config, error) {
	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects combinations that would run insecurely or not at all
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.App.Environment == "production" && c.JWT.Secret == defaultJWTSecret {
		return errors.New("JWT_SECRET must be changed in production")
	}
	if c.JWT.ExpiresIn <= 0 {
		return errors.New("JWT_EXPIRES_IN must be positive")
	}
	if c.Auth.ConfirmationWindow <= 0 {
		return errors.New("AUTH_CONFIRMATION_WINDOW must be positive")
	}
	if c.Auth.PendingRetention < c.Auth.ConfirmationWindow {
		return errors.New("AUTH_PENDING_RETENTION must not be shorter than AUTH_CONFIRMATION_WINDOW")
	}

	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	switch c.Mail.Provider {
	case "log":
	case "sendgrid":
		if c.Mail.SendGridAPIKey == "" {
			return errors.New("SENDGRID_API_KEY is required when MAIL_PROVIDER=sendgrid")
		}
	case "smtp":
		if c.Mail.SMTPHost == "" {
			return errors.New("SMTP_HOST is required when MAIL_PROVIDER=smtp")
		}
	default:
		return fmt.Errorf("unsupported MAIL_PROVIDER %q", c.Mail.Provider)
	}

	return nil
}

func (c *Config) DatabaseConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func (c *Config) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
