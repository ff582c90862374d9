// Package config loads configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/nsvirk/nsequotes/pkg/utils/zaplogger"
)

// ErrConfig marks configuration input that prevents startup
var ErrConfig = errors.New("config error")

// MaxWorkers is the upper bound on concurrent quote tasks in one cycle
const MaxWorkers = 8

// Config represents the application configuration
type Config struct {
	APIName        string `env:"QC_APP_NAME" default:"NSE Quote Collector"`
	APIVersion     string `env:"QC_APP_VERSION" default:"v1.0.0"`
	ServerPort     string `env:"QC_SERVER_PORT" default:"5000"`
	ServerLogLevel string `env:"QC_SERVER_LOG_LEVEL" default:"info"`

	DataDir         string `env:"QC_DATA_DIR" default:"data"`
	SymbolFile      string `env:"QC_SYMBOL_FILE" default:"stock_list.txt"`
	SymbolDebugFile string `env:"QC_SYMBOL_DEBUG_FILE" default:"stock_list_debug.txt"`
	HolidayFile     string `env:"QC_HOLIDAY_FILE" default:"market_holidays.txt"`
	Debug           bool   `env:"QC_DEBUG" default:"false"`
	Timezone        string `env:"QC_TIMEZONE" default:"Asia/Kolkata"`

	CycleInterval time.Duration `env:"QC_CYCLE_INTERVAL" default:"60s"`
	IdleInterval  time.Duration `env:"QC_IDLE_INTERVAL" default:"60s"`
	Workers       int           `env:"QC_WORKERS" default:"8"`

	ShutdownTimeout time.Duration `env:"QC_SHUTDOWN_TIMEOUT" default:"90s"`

	NSEBaseURL             string        `env:"QC_NSE_BASE_URL" default:"https://www.nseindia.com"`
	RequestTimeout         time.Duration `env:"QC_REQUEST_TIMEOUT" default:"30s"`
	SessionRefreshSchedule string        `env:"QC_SESSION_REFRESH_SCHEDULE" default:"*/10 9-15 * * 1-5"`

	RedisHost     string        `env:"QC_REDIS_HOST"`
	RedisPort     string        `env:"QC_REDIS_PORT" default:"6379"`
	RedisPassword string        `env:"QC_REDIS_PASSWORD"`
	QuoteCacheTTL time.Duration `env:"QC_QUOTE_CACHE_TTL" default:"24h"`

	DBDriver           string `env:"QC_DB_DRIVER" default:"postgres"`
	DBDsn              string `env:"QC_DB_DSN"`
	DBLogLevel         string `env:"QC_DB_LOG_LEVEL" default:"warn"`
	CycleRetentionDays int    `env:"QC_CYCLE_RETENTION_DAYS" default:"30"`
	CyclePruneSchedule string `env:"QC_CYCLE_PRUNE_SCHEDULE" default:"0 18 * * 1-5"`
}

var (
	SingleLine string = "--------------------------------------------------"
)

var (
	instance *Config
	once     sync.Once
	err      error
)

// Get returns the process-wide configuration, loading it on first use
func Get() (*Config, error) {
	once.Do(func() {
		zaplogger.Info(SingleLine)
		zaplogger.Info("Loading Configuration")
		instance, err = Load()
	})
	return instance, err
}

// Load builds a fresh configuration from a .env file, if any, and the environment
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: failed to load %s: %v", ErrConfig, f, err)
		}
	}

	cfg := &Config{}
	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() error {
	t := reflect.TypeOf(*c)
	v := reflect.ValueOf(c).Elem()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		envTag := field.Tag.Get("env")
		if envTag == "" {
			return fmt.Errorf("missing env tag for field %s", field.Name)
		}

		value, ok := os.LookupEnv(envTag)
		if !ok || value == "" {
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}

		if err := setField(v.Field(i), value); err != nil {
			return fmt.Errorf("%w: env variable %s: %v", ErrConfig, envTag, err)
		}
	}

	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

func setField(f reflect.Value, value string) error {
	if f.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		f.SetInt(int64(d))
		return nil
	}

	switch f.Kind() {
	case reflect.String:
		f.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		f.SetBool(b)
	case reflect.Int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		f.SetInt(int64(n))
	default:
		return fmt.Errorf("unsupported field kind %s", f.Kind())
	}
	return nil
}

func (c *Config) validate() error {
	if c.Workers < 1 || c.Workers > MaxWorkers {
		return fmt.Errorf("%w: QC_WORKERS must be between 1 and %d", ErrConfig, MaxWorkers)
	}
	if c.CycleInterval <= 0 || c.IdleInterval <= 0 {
		return fmt.Errorf("%w: cycle and idle intervals must be positive", ErrConfig)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: QC_SHUTDOWN_TIMEOUT must be positive", ErrConfig)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("%w: invalid QC_TIMEZONE %q: %v", ErrConfig, c.Timezone, err)
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("%w: unsupported QC_DB_DRIVER %q", ErrConfig, c.DBDriver)
	}
	return nil
}

// Location returns the market timezone
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ActiveSymbolFile returns the symbol list used for this run
func (c *Config) ActiveSymbolFile() string {
	if c.Debug {
		return c.SymbolDebugFile
	}
	return c.SymbolFile
}

// ActiveDataDir returns the data root used for this run
func (c *Config) ActiveDataDir() string {
	if c.Debug {
		return filepath.Join(c.DataDir, "test")
	}
	return c.DataDir
}

// RedisEnabled reports whether a Redis host is configured
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

// DatabaseEnabled reports whether a database DSN is configured
func (c *Config) DatabaseEnabled() bool {
	return c.DBDsn != ""
}

// String returns the configuration as a string
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("\n--------------------------------------\n")
	sb.WriteString("Configuration:\n")
	sb.WriteString("--------------------------------------\n")

	t := reflect.TypeOf(*c)
	v := reflect.ValueOf(*c)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		value := fmt.Sprint(v.Field(i).Interface())

		value = maskSensitiveField(field.Name, value)
		sb.WriteString(fmt.Sprintf("  %s:  %s\n", field.Name, value))
	}

	sb.WriteString("--------------------------------------\n")

	return sb.String()
}

func maskSensitiveField(fieldName, value string) string {
	sensitiveFields := []string{"token", "dsn", "secret", "password"}

	fieldNameLower := strings.ToLower(fieldName)
	for _, sensitive := range sensitiveFields {
		if strings.Contains(fieldNameLower, sensitive) {
			return maskValue(value)
		}
	}

	return value
}

func maskValue(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 3 {
		return strings.Repeat("*", 7)
	}
	return value[:3] + strings.Repeat("*", 7)
}
