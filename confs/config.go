package confs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	DefaultHTTPAddr           = "0.0.0.0:3536"
	DefaultEnv                = "development"
	DefaultDBDriver           = "postgres"
	DefaultSQLitePath         = "telemetry.db"
	DefaultJWTTTL             = 24 * time.Hour
	DefaultCredentialCacheTTL = 5 * time.Minute
)

type Config struct {
	HTTPAddr    string
	Env         string
	LogMode     string
	CORSOrigins []string

	Database DatabaseConfig

	JWTSecret string
	JWTTTL    time.Duration

	RedisURL           string
	CredentialCacheTTL time.Duration
}

type DatabaseConfig struct {
	Driver     string
	URL        string
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SQLitePath string
}

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Env)
	return env == "production" || env == "prod"
}

// Load reads .env (if present), then an optional YAML file, then the process
// environment. Environment variables win over file values. The returned slice
// holds every validation problem found.
func Load(configFilePath string) (*Config, []error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, []error{fmt.Errorf("could not load .env: %w", err)}
	}

	k := koanf.New(".")
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	var errs []error

	jwtTTL, err := durationOr("JWT_TTL", k.String("jwt_ttl"), DefaultJWTTTL)
	if err != nil {
		errs = append(errs, err)
	}
	cacheTTL, err := durationOr("CREDENTIAL_CACHE_TTL", k.String("credential_cache_ttl"), DefaultCredentialCacheTTL)
	if err != nil {
		errs = append(errs, err)
	}

	cfg := &Config{
		HTTPAddr:    stringOr("HTTP_ADDR", k.String("http_addr"), DefaultHTTPAddr),
		Env:         stringOr("APP_ENV", k.String("env"), DefaultEnv),
		CORSOrigins: splitList(stringOr("CORS_ORIGINS", strings.Join(k.Strings("cors_origins"), ","), "")),
		Database: DatabaseConfig{
			Driver:     strings.ToLower(stringOr("DB_DRIVER", k.String("database.driver"), DefaultDBDriver)),
			URL:        stringOr("DB_URL", k.String("database.url"), ""),
			Host:       stringOr("DB_HOST", k.String("database.host"), ""),
			Port:       stringOr("DB_PORT", k.String("database.port"), ""),
			User:       stringOr("DB_USER", k.String("database.user"), ""),
			Password:   stringOr("DB_PASSWORD", k.String("database.password"), ""),
			Name:       stringOr("DB_NAME", k.String("database.name"), ""),
			SQLitePath: stringOr("SQLITE_PATH", k.String("database.sqlite_path"), DefaultSQLitePath),
		},
		JWTSecret:          stringOr("JWT_SECRET", k.String("jwt_secret"), ""),
		JWTTTL:             jwtTTL,
		RedisURL:           stringOr("REDIS_URL", k.String("redis_url"), ""),
		CredentialCacheTTL: cacheTTL,
	}
	cfg.LogMode = stringOr("LOG_MODE", k.String("log_mode"), cfg.Env)

	errs = append(errs, cfg.Validate()...)
	return cfg, errs
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() []error {
	var errs []error
	switch c.Database.Driver {
	case "postgres":
		if c.Database.URL == "" && (c.Database.Host == "" || c.Database.Port == "" ||
			c.Database.User == "" || c.Database.Password == "" || c.Database.Name == "") {
			errs = append(errs, fmt.Errorf("missing required database configuration: DB_URL or (DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME)"))
		}
	case "sqlite":
		if c.Database.SQLitePath == "" {
			errs = append(errs, fmt.Errorf("SQLITE_PATH is required when DB_DRIVER=sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver))
	}
	if c.JWTSecret == "" {
		errs = append(errs, fmt.Errorf("JWT_SECRET is required"))
	} else if c.IsProduction() && len(c.JWTSecret) < 32 {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least 32 characters in production"))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, fmt.Errorf("JWT_TTL must be positive"))
	}
	return errs
}

func stringOr(envKey, fileVal, def string) string {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		return v
	}
	if fileVal != "" {
		return fileVal
	}
	return def
}

func durationOr(envKey, fileVal string, def time.Duration) (time.Duration, error) {
	raw := stringOr(envKey, fileVal, "")
	if raw == "" {
		return def, nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d, nil
	}
	// bare integers are seconds
	secs, err := strconv.Atoi(raw)
	if err != nil {
		return def, fmt.Errorf("invalid %s %q: %w", envKey, raw, err)
	}
	return time.Duration(secs) * time.Second, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
