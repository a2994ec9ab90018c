package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "bookingapi.yaml"

// DefaultEnvFile is the dotenv file loaded before the environment overlay.
const DefaultEnvFile = ".env"

// tenantEnvPrefix prefixes per-tenant variables, e.g.
// BOOKINGAPI_TENANT_PIDDLE_INN_CALENDAR_API_KEY.
const tenantEnvPrefix = "BOOKINGAPI_TENANT_"

// minBcryptCost is the lowest cost accepted for stored admin password hashes.
const minBcryptCost = 10

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Load returns a Config using the hierarchy: defaults < YAML < .env < ENV.
// Both files are optional; a missing file is not an error.
func Load() (*Config, error) {
	if err := loadDotEnv(DefaultEnvFile); err != nil {
		return nil, fmt.Errorf("config dotenv: %w", err)
	}
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv populates the process environment from a dotenv file.
// Variables already present in the environment are never overwritten.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist. A tenant entry present in the
// file replaces the default entry of the same slug.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "BOOKINGAPI_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "BOOKINGAPI_CORS_ORIGINS")
	setDuration(&cfg.Server.RequestTimeout, "BOOKINGAPI_REQUEST_TIMEOUT")

	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "BOOKINGAPI_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "BOOKINGAPI_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "BOOKINGAPI_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "BOOKINGAPI_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "BOOKINGAPI_PG_HEALTH_CHECK")

	setString(&cfg.Logging.Level, "BOOKINGAPI_LOG_LEVEL")
	setString(&cfg.Logging.Service, "BOOKINGAPI_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "BOOKINGAPI_LOG_ASYNC")

	// Auth
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.Auth.JWTSecret, "BOOKINGAPI_JWT_SECRET")
	setDuration(&cfg.Auth.TokenExpiry, "BOOKINGAPI_TOKEN_EXPIRY")
	setInt(&cfg.Auth.BcryptCost, "BOOKINGAPI_BCRYPT_COST")
	setString(&cfg.Auth.ServiceKey, "BOOKINGAPI_SERVICE_KEY")

	setInt(&cfg.Breaker.MaxFailures, "BOOKINGAPI_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "BOOKINGAPI_BREAKER_TIMEOUT")

	setFloat64(&cfg.Rate.RequestsPerSecond, "BOOKINGAPI_RATE_RPS")
	setInt(&cfg.Rate.Burst, "BOOKINGAPI_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "BOOKINGAPI_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "BOOKINGAPI_RATE_MAX_IDLE_TIME")

	// Email (default sender identity)
	setString(&cfg.Email.Host, "EMAIL_HOST")
	setInt(&cfg.Email.Port, "EMAIL_PORT")
	setString(&cfg.Email.User, "EMAIL_USER")
	setString(&cfg.Email.Password, "EMAIL_PASS")
	setString(&cfg.Email.DisplayName, "EMAIL_DISPLAY_NAME")

	setFloat64(&cfg.Pricing.DefaultStandardPrice, "BOOKINGAPI_DEFAULT_STANDARD_PRICE")
	setString(&cfg.Pricing.CleanupSchedule, "BOOKINGAPI_CLEANUP_SCHEDULE")
	setInt(&cfg.Pricing.MaxStayDays, "BOOKINGAPI_MAX_STAY_DAYS")

	setDuration(&cfg.Idempotency.TTL, "BOOKINGAPI_IDEMPOTENCY_TTL")
	setInt64(&cfg.Idempotency.MaxCostBytes, "BOOKINGAPI_IDEMPOTENCY_MAX_BYTES")

	setBool(&cfg.OTEL.Enabled, "BOOKINGAPI_OTEL_ENABLED")
	setString(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.OTEL.ServiceName, "OTEL_SERVICE_NAME")
	setBool(&cfg.OTEL.Insecure, "BOOKINGAPI_OTEL_INSECURE")

	// Tenants
	setString(&cfg.DefaultTenant, "DEFAULT_PROPERTY")
	setString(&cfg.DefaultTenant, "BOOKINGAPI_DEFAULT_TENANT")
	loadTenantEnv(cfg)
}

// loadTenantEnv overlays BOOKINGAPI_TENANT_<SLUG>_<FIELD> variables onto each
// configured tenant. BOOKINGAPI_TENANTS may name additional slugs.
func loadTenantEnv(cfg *Config) {
	if cfg.Tenants == nil {
		cfg.Tenants = make(map[string]Tenant)
	}
	if extra := os.Getenv("BOOKINGAPI_TENANTS"); extra != "" {
		for _, slug := range splitList(extra) {
			if _, ok := cfg.Tenants[slug]; !ok {
				cfg.Tenants[slug] = Tenant{}
			}
		}
	}

	for slug, t := range cfg.Tenants {
		prefix := tenantEnvPrefix + EnvSlug(slug) + "_"
		setString(&t.DisplayName, prefix+"DISPLAY_NAME")
		setString(&t.LogoURL, prefix+"LOGO_URL")
		setString(&t.AdminEmail, prefix+"ADMIN_EMAIL")
		setString(&t.ReadCalendarID, prefix+"READ_CALENDAR_ID")
		setStringSlice(&t.ReadCalendarIDs, prefix+"READ_CALENDAR_IDS")
		setString(&t.WriteCalendarID, prefix+"WRITE_CALENDAR_ID")
		setString(&t.CalendarAPIKey, prefix+"CALENDAR_API_KEY")
		setString(&t.ServiceAccountEmail, prefix+"SERVICE_ACCOUNT_EMAIL")
		setString(&t.ServiceAccountKey, prefix+"SERVICE_ACCOUNT_KEY")
		setString(&t.EmailUser, prefix+"EMAIL_USER")
		setString(&t.EmailPassword, prefix+"EMAIL_PASS")
		cfg.Tenants[slug] = t
	}
}

// EnvSlug converts a tenant slug into its environment variable form.
func EnvSlug(slug string) string {
	return strings.ToUpper(strings.ReplaceAll(slug, "-", "_"))
}

// TenantSlugs returns the configured tenant slugs in sorted order.
func (c *Config) TenantSlugs() []string {
	slugs := make([]string, 0, len(c.Tenants))
	for slug := range c.Tenants {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required (set JWT_SECRET)")
	}
	if cfg.Auth.TokenExpiry <= 0 {
		return errors.New("auth.token_expiry must be positive")
	}
	if cfg.Auth.BcryptCost < minBcryptCost {
		return fmt.Errorf("auth.bcrypt_cost must be >= %d", minBcryptCost)
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.RequestsPerSecond <= 0 {
		return errors.New("rate.requests_per_second must be positive")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.Pricing.DefaultStandardPrice < 0 {
		return errors.New("pricing.default_standard_price must not be negative")
	}
	if cfg.Pricing.MaxStayDays < 1 {
		return errors.New("pricing.max_stay_days must be >= 1")
	}
	if len(cfg.Tenants) == 0 {
		return errors.New("at least one tenant is required")
	}
	for slug := range cfg.Tenants {
		if !slugPattern.MatchString(slug) {
			return fmt.Errorf("tenant slug %q must match %s", slug, slugPattern)
		}
	}
	if _, ok := cfg.Tenants[cfg.DefaultTenant]; !ok {
		return fmt.Errorf("default_tenant %q is not a configured tenant", cfg.DefaultTenant)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = splitList(v)
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

// splitList splits a comma-separated value and drops empty items.
func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
