// Package config loads the service configuration from environment variables.
// Outside prod mode a .env file in the working directory is read first;
// variables already present in the environment win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"gitlab.com/ucmsv2/authcode-service/internal/domain/authcode"
	"gitlab.com/ucmsv2/authcode-service/pkg/env"
	"gitlab.com/ucmsv2/authcode-service/pkg/logging"
	"gitlab.com/ucmsv2/authcode-service/pkg/otelx"
)

type StoreDriver string

const (
	StorePostgres StoreDriver = "postgres"
	StoreDynamoDB StoreDriver = "dynamodb"
)

type NotifierKind string

const (
	NotifierSMTP   NotifierKind = "smtp"
	NotifierOutbox NotifierKind = "outbox"
	NotifierLog    NotifierKind = "log"
)

type PostgresConfig struct {
	DSN      string // PG_DSN
	MaxConns int32  // PG_MAX_CONNS
}

type DynamoDBConfig struct {
	Table           string // DYNAMODB_TABLE
	Region          string // AWS_REGION
	Endpoint        string // DYNAMODB_ENDPOINT
	AccessKeyID     string // AWS_ACCESS_KEY_ID
	SecretAccessKey string // AWS_SECRET_ACCESS_KEY
}

type SMTPConfig struct {
	Host               string // SMTP_HOST
	Port               int    // SMTP_PORT
	User               string // SMTP_USER
	Pass               string // SMTP_PASS
	InsecureSkipVerify bool   // SMTP_INSECURE_SKIP_VERIFY
}

type HousekeepingConfig struct {
	Interval  time.Duration // HOUSEKEEPING_INTERVAL, 0 disables
	Retention time.Duration // AUTHCODE_RETENTION
}

type RateLimitConfig struct {
	Requests int           // RATE_LIMIT_REQUESTS, 0 disables
	Window   time.Duration // RATE_LIMIT_WINDOW
	Burst    int           // RATE_LIMIT_BURST
}

type OTELConfig struct {
	Exporter    otelx.Exporter // OTEL_EXPORTER
	Endpoint    string         // OTEL_EXPORTER_OTLP_ENDPOINT
	Insecure    bool           // OTEL_EXPORTER_OTLP_INSECURE
	ServiceName string         // OTEL_SERVICE_NAME
}

type Config struct {
	Mode      env.Mode
	Port      string
	LogFormat logging.Format

	StoreDriver StoreDriver
	Postgres    PostgresConfig
	DynamoDB    DynamoDBConfig

	Notifier NotifierKind
	SMTP     SMTPConfig

	Policy            authcode.Policy
	ConditionalInsert bool
	Housekeeping      HousekeepingConfig

	AllowedOrigins []string
	RateLimit      RateLimitConfig
	OTEL           OTELConfig

	ShutdownGracePeriod time.Duration
}

// Load reads the environment, applies defaults and validates the result.
// Every malformed variable is reported, not only the first one.
func Load() (Config, error) {
	l := loader{}

	mode, err := readMode()
	if err != nil {
		return Config{}, err
	}
	if !mode.IsProd() {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to read .env file: %w", err)
		}
		// the file may set MODE itself
		if mode, err = readMode(); err != nil {
			return Config{}, err
		}
	}

	cfg := Config{
		Mode: mode,
		Port: l.get("PORT", "8080"),

		StoreDriver: StoreDriver(strings.ToLower(l.get("STORE_DRIVER", string(StorePostgres)))),
		Postgres: PostgresConfig{
			DSN:      l.get("PG_DSN", ""),
			MaxConns: int32(l.getInt("PG_MAX_CONNS", 0)),
		},
		DynamoDB: DynamoDBConfig{
			Table:           l.get("DYNAMODB_TABLE", "authcodes"),
			Region:          l.get("AWS_REGION", ""),
			Endpoint:        l.get("DYNAMODB_ENDPOINT", ""),
			AccessKeyID:     l.get("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: l.get("AWS_SECRET_ACCESS_KEY", ""),
		},

		Notifier: NotifierKind(strings.ToLower(l.get("NOTIFIER", string(NotifierSMTP)))),
		SMTP: SMTPConfig{
			Host:               l.get("SMTP_HOST", ""),
			Port:               l.getInt("SMTP_PORT", 587),
			User:               l.get("SMTP_USER", ""),
			Pass:               l.get("SMTP_PASS", ""),
			InsecureSkipVerify: l.getBool("SMTP_INSECURE_SKIP_VERIFY", false),
		},

		Policy: authcode.Policy{
			TTL:      l.getDur("AUTHCODE_TTL", authcode.DefaultTTL),
			Length:   l.getInt("AUTHCODE_LENGTH", authcode.DefaultLength),
			Alphabet: l.get("AUTHCODE_ALPHABET", ""),
		},
		ConditionalInsert: l.getBool("AUTHCODE_CONDITIONAL_INSERT", true),
		Housekeeping: HousekeepingConfig{
			Interval:  l.getDur("HOUSEKEEPING_INTERVAL", time.Hour),
			Retention: l.getDur("AUTHCODE_RETENTION", 24*time.Hour),
		},

		AllowedOrigins: splitCSV(l.get("CORS_ALLOWED_ORIGINS", "")),
		RateLimit: RateLimitConfig{
			Requests: l.getInt("RATE_LIMIT_REQUESTS", 0),
			Window:   l.getDur("RATE_LIMIT_WINDOW", time.Minute),
			Burst:    l.getInt("RATE_LIMIT_BURST", 0),
		},
		OTEL: OTELConfig{
			Endpoint:    l.get("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    l.getBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: l.get("OTEL_SERVICE_NAME", "authcode-service"),
		},

		ShutdownGracePeriod: l.getDur("SHUTDOWN_GRACE_PERIOD", 15*time.Second),
	}

	format, err := logging.ParseFormat(l.get("LOG_FORMAT", string(logging.FormatText)))
	l.add(err)
	cfg.LogFormat = format

	exporter, err := otelx.ParseExporter(l.get("OTEL_EXPORTER", defaultExporter(mode)))
	l.add(err)
	cfg.OTEL.Exporter = exporter

	l.add(cfg.validate())
	if err := errors.Join(l.errs...); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func readMode() (env.Mode, error) {
	raw := strings.TrimSpace(os.Getenv("MODE"))
	if raw == "" {
		return env.Dev, nil
	}
	return env.ParseMode(raw)
}

func defaultExporter(mode env.Mode) string {
	switch mode {
	case env.Prod, env.Dev:
		return string(otelx.ExporterOTLP)
	case env.Local:
		return string(otelx.ExporterStdout)
	default:
		return string(otelx.ExporterNone)
	}
}

func (c Config) validate() error {
	var errs []error

	if strings.TrimSpace(c.Port) == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}

	switch c.StoreDriver {
	case StorePostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("PG_DSN is required for the postgres store"))
		}
		if c.Postgres.MaxConns < 0 {
			errs = append(errs, errors.New("PG_MAX_CONNS must be >= 0"))
		}
	case StoreDynamoDB:
		if c.DynamoDB.Table == "" {
			errs = append(errs, errors.New("DYNAMODB_TABLE must not be empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be one of: postgres, dynamodb, got %q", c.StoreDriver))
	}

	switch c.Notifier {
	case NotifierSMTP, NotifierOutbox:
		if c.SMTP.Host == "" && c.Mode.IsProd() {
			errs = append(errs, fmt.Errorf("SMTP_HOST is required for the %s notifier in prod mode", c.Notifier))
		}
	case NotifierLog:
		if c.Mode.IsProd() {
			errs = append(errs, errors.New("NOTIFIER=log is not allowed in prod mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("NOTIFIER must be one of: smtp, outbox, log, got %q", c.Notifier))
	}
	if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
		errs = append(errs, errors.New("SMTP_PORT must be a valid port"))
	}

	if err := c.Policy.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("auth code policy: %w", err))
	}
	if c.Housekeeping.Interval < 0 {
		errs = append(errs, errors.New("HOUSEKEEPING_INTERVAL must be >= 0"))
	}
	if c.Housekeeping.Retention < 0 {
		errs = append(errs, errors.New("AUTHCODE_RETENTION must be >= 0"))
	}
	if c.RateLimit.Requests < 0 || c.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_REQUESTS and RATE_LIMIT_BURST must be >= 0"))
	}
	if c.RateLimit.Requests > 0 && c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be > 0 when rate limiting is enabled"))
	}
	if c.ShutdownGracePeriod <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_GRACE_PERIOD must be > 0"))
	}

	return errors.Join(errs...)
}

// SMTPFallbackToLog reports whether mail should be logged instead of sent
// because no SMTP server is configured.
func (c Config) SMTPFallbackToLog() bool {
	return c.Notifier == NotifierLog || c.SMTP.Host == ""
}

type loader struct {
	errs []error
}

func (l *loader) add(err error) {
	if err != nil {
		l.errs = append(l.errs, err)
	}
}

func (l *loader) get(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (l *loader) getInt(k string, def int) int {
	v, ok := os.LookupEnv(k)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		l.add(fmt.Errorf("%s must be an integer: %w", k, err))
		return def
	}
	return i
}

func (l *loader) getBool(k string, def bool) bool {
	v, ok := os.LookupEnv(k)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	l.add(fmt.Errorf("%s must be a boolean, got %q", k, v))
	return def
}

func (l *loader) getDur(k string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(k)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		l.add(fmt.Errorf("%s must be a duration: %w", k, err))
		return def
	}
	return d
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
