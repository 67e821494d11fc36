package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultAppName        = "Messenger"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultLogFormat      = "json"
	defaultSchema         = "public"
	defaultJWTSecret      = "default-secret-key"
	defaultSessionTTL     = 30 * 24 * time.Hour
	defaultOTPTTL         = 5 * time.Minute
	defaultSMSTimeout     = 10 * time.Second
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultSMSEndpoint    = "https://smsc.ru/sys/send.php"
)

// Config captures application runtime configuration. It is built once at
// process start and passed to every component.
type Config struct {
	AppName        string        `yaml:"app_name"`
	AppEnv         string        `yaml:"app_env"`
	Port           string        `yaml:"port"`
	LogLevel       string        `yaml:"log_level"`
	LogFormat      string        `yaml:"log_format"`
	DatabaseURL    string        `yaml:"database_url"`
	DBSchema       string        `yaml:"db_schema"`
	RedisURL       string        `yaml:"redis_url"`
	JWTSecret      string        `yaml:"jwt_secret"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	OTPTTL         time.Duration `yaml:"otp_ttl"`
	SMS            SMSConfig     `yaml:"sms"`
	ShutdownPeriod time.Duration `yaml:"shutdown_timeout"`
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl"`
}

// SMSConfig holds delivery channel credentials. An empty APIKey means no
// delivery channel is configured.
type SMSConfig struct {
	APIKey   string        `yaml:"api_key"`
	Sender   string        `yaml:"sender"`
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Load reads the optional YAML file named by CONFIG_FILE, then applies
// environment overrides and validates the result.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		AppName:        defaultAppName,
		AppEnv:         defaultAppEnv,
		Port:           defaultPort,
		LogLevel:       defaultLogLevel,
		LogFormat:      defaultLogFormat,
		DBSchema:       defaultSchema,
		JWTSecret:      defaultJWTSecret,
		SessionTTL:     defaultSessionTTL,
		OTPTTL:         defaultOTPTTL,
		SMS:            SMSConfig{Endpoint: defaultSMSEndpoint, Timeout: defaultSMSTimeout},
		ShutdownPeriod: defaultShutdownDelay,
		IdempotencyTTL: defaultIdempotencyTTL,
	}
}

func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.AppName, "APP_NAME")
	setString(&cfg.AppEnv, "APP_ENV")
	setString(&cfg.Port, "PORT")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.LogFormat, "LOG_FORMAT")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.DBSchema, "DB_SCHEMA")
	setString(&cfg.RedisURL, "REDIS_URL")
	setString(&cfg.JWTSecret, "JWT_SECRET")
	setString(&cfg.SMS.APIKey, "SMS_API_KEY")
	setString(&cfg.SMS.Sender, "SMS_SENDER")
	setString(&cfg.SMS.Endpoint, "SMS_ENDPOINT")

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)

	durations := []struct {
		dst         *time.Duration
		secondsVar  string
		durationVar string
	}{
		{&cfg.ShutdownPeriod, "SHUTDOWN_TIMEOUT_SECONDS", "SHUTDOWN_TIMEOUT"},
		{&cfg.IdempotencyTTL, "IDEMPOTENCY_TTL_SECONDS", "IDEMPOTENCY_TTL"},
		{&cfg.SessionTTL, "SESSION_TTL_SECONDS", "SESSION_TTL"},
		{&cfg.OTPTTL, "OTP_TTL_SECONDS", "OTP_TTL"},
		{&cfg.SMS.Timeout, "SMS_TIMEOUT_SECONDS", "SMS_TIMEOUT"},
	}
	for _, d := range durations {
		if err := setDuration(d.dst, d.secondsVar, d.durationVar); err != nil {
			return err
		}
	}
	return nil
}

func (c Config) validate() error {
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}
	if c.OTPTTL <= 0 {
		return fmt.Errorf("otp ttl must be positive")
	}
	if c.IsDevelopment() {
		return nil
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", c.AppEnv)
	}
	if c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set when APP_ENV=%s", c.AppEnv)
	}
	return nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDevelopment reports whether the app runs in a local/dev environment.
func (c Config) IsDevelopment() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// DeliveryConfigured reports whether a real SMS delivery channel is set up.
func (c Config) DeliveryConfigured() bool {
	return strings.TrimSpace(c.SMS.APIKey) != ""
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func setDuration(dst *time.Duration, secondsVar, durationVar string) error {
	if v := os.Getenv(secondsVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", secondsVar, err)
		}
		*dst = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(durationVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", durationVar, err)
		}
		*dst = d
	}
	return nil
}
