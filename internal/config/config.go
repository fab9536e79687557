package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Argon2     Argon2Config
	Billing    BillingConfig
	CashDrawer CashDrawerConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	StaticDir       string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns a lib/pq keyword/value connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// URL returns the postgres:// form expected by golang-migrate.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host        string
	Port        string
	Password    string
	DB          int
	SettingsTTL time.Duration
}

func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type JWTConfig struct {
	SecretKey   string
	ExpiryHours int
}

type Argon2Config struct {
	Time       uint32
	Memory     uint32
	Threads    uint8
	KeyLength  uint32
	SaltLength int
}

// BillingConfig controls invoice numbering and tax defaults. Values in
// salon settings take precedence once the settings row exists.
// FiscalYearStartMonth is 1 for calendar years and 4 for April-March.
type BillingConfig struct {
	InvoicePrefix          string
	TaxRateBps             int
	Currency               string
	Timezone               string
	AutoProvisionSequences bool
	FiscalYearStartMonth   int
}

// Location resolves the business timezone, falling back to UTC.
func (c BillingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type CashDrawerConfig struct {
	// Denominations are note and coin face values in minor units.
	Denominations []int64
}

type LogConfig struct {
	Level      string
	Format     string
	TimeFormat string
	Output     string
}

var bindings = map[string]string{
	"server.port":               "PORT",
	"server.allowed_origins":    "CORS_ALLOWED_ORIGINS",
	"server.static_dir":         "STATIC_DIR",
	"database.host":             "DATABASE_HOST",
	"database.port":             "DATABASE_PORT",
	"database.user":             "DATABASE_USER",
	"database.password":         "DATABASE_PASSWORD",
	"database.name":             "DATABASE_NAME",
	"database.ssl_mode":         "DATABASE_SSL_MODE",
	"redis.host":                "REDIS_HOST",
	"redis.port":                "REDIS_PORT",
	"redis.password":            "REDIS_PASSWORD",
	"redis.db":                  "REDIS_DB",
	"redis.settings_ttl":        "REDIS_SETTINGS_TTL",
	"jwt.secret_key":            "JWT_SECRET_KEY",
	"jwt.expiry_hours":          "JWT_EXPIRY_HOURS",
	"argon2.time":               "ARGON2_TIME",
	"argon2.memory":             "ARGON2_MEMORY",
	"argon2.threads":            "ARGON2_THREADS",
	"argon2.key_length":         "ARGON2_KEY_LENGTH",
	"argon2.salt_length":        "ARGON2_SALT_LENGTH",
	"billing.invoice_prefix":    "INVOICE_PREFIX",
	"billing.tax_rate_bps":      "TAX_RATE_BPS",
	"billing.currency":          "CURRENCY",
	"billing.timezone":          "BUSINESS_TIMEZONE",
	"billing.auto_provision":    "AUTO_PROVISION_SEQUENCES",
	"billing.fiscal_year_start": "FISCAL_YEAR_START_MONTH",
	"cash_drawer.denominations": "CASH_DENOMINATIONS",
	"log.level":                 "LOG_LEVEL",
	"log.format":                "LOG_FORMAT",
	"log.time_format":           "LOG_TIME_FORMAT",
	"log.output":                "LOG_OUTPUT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.allowed_origins", "https://*,http://*")
	v.SetDefault("server.static_dir", "./static")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.name", "salon_pos")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Minute*5)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.settings_ttl", 10*time.Minute)

	v.SetDefault("jwt.expiry_hours", 12)

	v.SetDefault("argon2.time", 1)
	v.SetDefault("argon2.memory", 64*1024)
	v.SetDefault("argon2.threads", 4)
	v.SetDefault("argon2.key_length", 32)
	v.SetDefault("argon2.salt_length", 16)

	v.SetDefault("billing.invoice_prefix", "SAL")
	v.SetDefault("billing.tax_rate_bps", 1800)
	v.SetDefault("billing.currency", "INR")
	v.SetDefault("billing.timezone", "Asia/Kolkata")
	v.SetDefault("billing.auto_provision", true)
	v.SetDefault("billing.fiscal_year_start", 1)

	// INR notes and coins, in paise.
	v.SetDefault("cash_drawer.denominations", "100,200,500,1000,2000,5000,10000,20000,50000,200000")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.time_format", time.RFC3339)
	v.SetDefault("log.output", "stdout")
}

// Load reads configuration from the environment (and an optional .env file
// already exported into it) through viper.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom resolves a Config from the given viper instance.
func LoadFrom(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	setDefaults(v)

	denoms, err := parseDenominations(v.GetString("cash_drawer.denominations"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetString("server.port"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			IdleTimeout:     v.GetDuration("server.idle_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			AllowedOrigins:  splitList(v.GetString("server.allowed_origins")),
			StaticDir:       v.GetString("server.static_dir"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetString("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			Name:            v.GetString("database.name"),
			SSLMode:         v.GetString("database.ssl_mode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			Host:        v.GetString("redis.host"),
			Port:        v.GetString("redis.port"),
			Password:    v.GetString("redis.password"),
			DB:          v.GetInt("redis.db"),
			SettingsTTL: v.GetDuration("redis.settings_ttl"),
		},
		JWT: JWTConfig{
			SecretKey:   v.GetString("jwt.secret_key"),
			ExpiryHours: v.GetInt("jwt.expiry_hours"),
		},
		Argon2: Argon2Config{
			Time:       v.GetUint32("argon2.time"),
			Memory:     v.GetUint32("argon2.memory"),
			Threads:    uint8(v.GetUint("argon2.threads")),
			KeyLength:  v.GetUint32("argon2.key_length"),
			SaltLength: v.GetInt("argon2.salt_length"),
		},
		Billing: BillingConfig{
			InvoicePrefix:          v.GetString("billing.invoice_prefix"),
			TaxRateBps:             v.GetInt("billing.tax_rate_bps"),
			Currency:               v.GetString("billing.currency"),
			Timezone:               v.GetString("billing.timezone"),
			AutoProvisionSequences: v.GetBool("billing.auto_provision"),
			FiscalYearStartMonth:   v.GetInt("billing.fiscal_year_start"),
		},
		CashDrawer: CashDrawerConfig{Denominations: denoms},
		Log: LogConfig{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			TimeFormat: v.GetString("log.time_format"),
			Output:     v.GetString("log.output"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.SecretKey == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Billing.TaxRateBps < 0 || c.Billing.TaxRateBps > 10000 {
		return fmt.Errorf("TAX_RATE_BPS must be between 0 and 10000, got %d", c.Billing.TaxRateBps)
	}
	if c.Billing.FiscalYearStartMonth < 1 || c.Billing.FiscalYearStartMonth > 12 {
		return fmt.Errorf("FISCAL_YEAR_START_MONTH must be between 1 and 12, got %d", c.Billing.FiscalYearStartMonth)
	}
	if c.Billing.InvoicePrefix == "" {
		return fmt.Errorf("INVOICE_PREFIX must not be empty")
	}
	if _, err := time.LoadLocation(c.Billing.Timezone); err != nil {
		return fmt.Errorf("BUSINESS_TIMEZONE %q: %w", c.Billing.Timezone, err)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDenominations(s string) ([]int64, error) {
	var out []int64
	for _, part := range splitList(s) {
		var d int64
		if _, err := fmt.Sscanf(part, "%d", &d); err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid cash denomination %q", part)
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one cash denomination is required")
	}
	return out, nil
}
