package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"account-api/internal/core"
	"account-api/internal/metrics"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/crypto/bcrypt"
)

// Application holds all the application-wide dependencies.
// DB and Redis are nil when the matching driver is "memory".
type Application struct {
	Config         Config
	Logger         zerolog.Logger
	DB             *pgxpool.Pool
	Redis          *redis.Client
	TracerProvider *trace.TracerProvider
	Registry       *prometheus.Registry
	Metrics        *metrics.Metrics
	Store          core.CredentialStore
	Accounts       core.AccountService
}

const (
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"

	LogoStorageLocal = "local"
	LogoStorageS3    = "s3"
)

// Config holds all the configuration variables for the application.
type Config struct {
	Port                 int      `mapstructure:"PORT"`
	App_Env              string   `mapstructure:"APP_ENV"`
	App_Secret           string   `mapstructure:"APP_SECRET"`
	CORS_Allowed_Origins []string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	StoreDriver          string   `mapstructure:"STORE_DRIVER"`
	DatabaseURL          string   `mapstructure:"DATABASE_URL"`
	DbHost               string   `mapstructure:"DB_HOST"`
	DbPort               int      `mapstructure:"DB_PORT"`
	DbUser               string   `mapstructure:"DB_USER"`
	DbPassword           string   `mapstructure:"DB_PASSWORD"`
	DbName               string   `mapstructure:"DB_NAME"`
	DbSslMode            string   `mapstructure:"DB_SSL_MODE"`
	DbMaxConns           int32    `mapstructure:"DB_MAX_CONNS"`
	DbMinConns           int32    `mapstructure:"DB_MIN_CONNS"`
	RevocationDriver     string   `mapstructure:"REVOCATION_DRIVER"`
	RedisHost            string   `mapstructure:"REDIS_HOST"`
	RedisPort            int      `mapstructure:"REDIS_PORT"`
	RedisPassword        string   `mapstructure:"REDIS_PASSWORD"`
	LogLevel             string   `mapstructure:"LOG_LEVEL"`
	RequestTimeout       int      `mapstructure:"REQUEST_TIMEOUT_SECONDS"`
	JWTTTLMinutes        int      `mapstructure:"JWT_TTL"`
	JWTRefreshTTLMinutes int      `mapstructure:"JWT_REFRESH_TTL"`
	BcryptCost           int      `mapstructure:"BCRYPT_COST"`
	StrictAreaPhone      bool     `mapstructure:"STRICT_AREA_PHONE"`
	// Logo storage
	LogoStorage    string `mapstructure:"LOGO_STORAGE"`
	LogoPublicDir  string `mapstructure:"LOGO_PUBLIC_DIR"`
	S3Bucket       string `mapstructure:"S3_BUCKET"`
	S3Region       string `mapstructure:"S3_REGION"`
	S3Endpoint     string `mapstructure:"S3_ENDPOINT"`
	S3AccessKey    string `mapstructure:"S3_ACCESS_KEY"`
	S3SecretKey    string `mapstructure:"S3_SECRET_KEY"`
	S3UsePathStyle bool   `mapstructure:"S3_USE_PATH_STYLE"`
	// Telemetry
	OtelEnabled          bool   `mapstructure:"OTEL_ENABLED"`
	OtelExporterEndpoint string `mapstructure:"OTEL_EXPORTER_ENDPOINT"`
	// Development seed account
	DefaultUserEmail    string `mapstructure:"DEFAULT_USER_EMAIL"`
	DefaultUserUsername string `mapstructure:"DEFAULT_USER_USERNAME"`
	DefaultUserPassword string `mapstructure:"DEFAULT_USER_PASSWORD"`
}

type ContextKey string

const (
	PrincipalKey = ContextKey("principal")
	RequestIDKey = ContextKey("request_id")
)

// Load reads configuration from secrets, environment variables, or defaults.
func Load() (config Config, err error) {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	viper.Set("APP_ENV", env)

	// Environment-dependent defaults first; the backends are in-memory outside production.
	if env == "production" {
		viper.SetDefault("LOG_LEVEL", "info")
		viper.SetDefault("REQUEST_TIMEOUT_SECONDS", 30)
		viper.SetDefault("STORE_DRIVER", DriverPostgres)
		viper.SetDefault("REVOCATION_DRIVER", DriverRedis)
	} else {
		viper.SetDefault("LOG_LEVEL", "debug")
		viper.SetDefault("REQUEST_TIMEOUT_SECONDS", 60)
		viper.SetDefault("STORE_DRIVER", DriverMemory)
		viper.SetDefault("REVOCATION_DRIVER", DriverMemory)
		viper.SetDefault("DEFAULT_USER_EMAIL", "admin@example.com")
		viper.SetDefault("DEFAULT_USER_USERNAME", "admin")
		viper.SetDefault("DEFAULT_USER_PASSWORD", "admin123!")
	}

	viper.SetDefault("PORT", 8080)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"})
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_SSL_MODE", "disable")
	viper.SetDefault("DB_MAX_CONNS", 30)
	viper.SetDefault("DB_MIN_CONNS", 5)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", 6379)
	viper.SetDefault("JWT_TTL", 60)
	viper.SetDefault("JWT_REFRESH_TTL", 20160)
	viper.SetDefault("BCRYPT_COST", bcrypt.DefaultCost)
	viper.SetDefault("STRICT_AREA_PHONE", false)
	viper.SetDefault("LOGO_STORAGE", LogoStorageLocal)
	viper.SetDefault("LOGO_PUBLIC_DIR", "storage/app/public")
	viper.SetDefault("S3_REGION", "us-east-1")
	viper.SetDefault("OTEL_ENABLED", false)
	viper.SetDefault("OTEL_EXPORTER_ENDPOINT", "jaeger:4318")

	if env == "development" {
		_ = loadEnvFile(".env")
		_ = loadEnvFile("../.env")
	} else {
		loadSecrets(secretsDir)
	}

	viper.AutomaticEnv()
	if err = viper.Unmarshal(&config); err != nil {
		return
	}

	if config.DatabaseURL == "" {
		config.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			config.DbUser, config.DbPassword, config.DbHost, config.DbPort, config.DbName, config.DbSslMode,
		)
	}
	config.StoreDriver = strings.ToLower(config.StoreDriver)
	config.RevocationDriver = strings.ToLower(config.RevocationDriver)
	config.LogoStorage = strings.ToLower(config.LogoStorage)

	return
}

const secretsDir = "/run/secrets"

// secretFiles maps config keys to Docker secret file names.
var secretFiles = map[string]string{
	"APP_SECRET":     "app_secret",
	"DATABASE_URL":   "database_url",
	"DB_HOST":        "db_host",
	"DB_PORT":        "db_port",
	"DB_USER":        "db_user",
	"DB_PASSWORD":    "db_password",
	"DB_NAME":        "db_name",
	"DB_SSL_MODE":    "db_ssl_mode",
	"REDIS_HOST":     "redis_host",
	"REDIS_PORT":     "redis_port",
	"REDIS_PASSWORD": "redis_password",
	"S3_ACCESS_KEY":  "s3_access_key",
	"S3_SECRET_KEY":  "s3_secret_key",
}

// loadSecrets sets every non-empty secret file found under dir, lower or upper case.
func loadSecrets(dir string) {
	for key, name := range secretFiles {
		for _, candidate := range []string{name, strings.ToUpper(name)} {
			content, err := os.ReadFile(filepath.Join(dir, candidate))
			if err != nil {
				continue
			}
			if value := strings.TrimSpace(string(content)); value != "" {
				viper.Set(key, value)
				break
			}
		}
	}
}

// loadEnvFile fills unset environment variables from a KEY=VALUE file.
func loadEnvFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		value = unquote(strings.TrimSpace(value))

		if _, set := os.LookupEnv(key); !set {
			viper.Set(key, value)
			_ = os.Setenv(key, value)
		}
	}
	return scanner.Err()
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errors []string

	if c.App_Secret == "" {
		errors = append(errors, "APP_SECRET is required")
	} else if len(c.App_Secret) < 32 {
		errors = append(errors, "APP_SECRET must be at least 32 characters long")
	}

	switch c.StoreDriver {
	case DriverPostgres:
		if c.DbUser == "" {
			errors = append(errors, "DB_USER is required")
		}
		if c.DbPassword == "" {
			errors = append(errors, "DB_PASSWORD is required")
		}
		if c.DbName == "" {
			errors = append(errors, "DB_NAME is required")
		}
	case DriverMemory:
	default:
		errors = append(errors, fmt.Sprintf("STORE_DRIVER must be %q or %q", DriverPostgres, DriverMemory))
	}

	if c.RevocationDriver != DriverRedis && c.RevocationDriver != DriverMemory {
		errors = append(errors, fmt.Sprintf("REVOCATION_DRIVER must be %q or %q", DriverRedis, DriverMemory))
	}

	switch c.LogoStorage {
	case LogoStorageS3:
		if c.S3Bucket == "" {
			errors = append(errors, "S3_BUCKET is required when LOGO_STORAGE is s3")
		}
	case LogoStorageLocal:
		if c.LogoPublicDir == "" {
			errors = append(errors, "LOGO_PUBLIC_DIR is required")
		}
	default:
		errors = append(errors, fmt.Sprintf("LOGO_STORAGE must be %q or %q", LogoStorageLocal, LogoStorageS3))
	}

	if c.JWTTTLMinutes <= 0 {
		errors = append(errors, "JWT_TTL must be positive")
	}
	if c.JWTRefreshTTLMinutes < c.JWTTTLMinutes {
		errors = append(errors, "JWT_REFRESH_TTL must not be shorter than JWT_TTL")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errors = append(errors, fmt.Sprintf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.App_Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.App_Env == "production"
}

// TokenTTL is the lifetime of an access token.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTTTLMinutes) * time.Minute
}

// RefreshTTL is the absolute window, from first issue, in which a token may be refreshed.
func (c *Config) RefreshTTL() time.Duration {
	return time.Duration(c.JWTRefreshTTLMinutes) * time.Minute
}

// ExpiresInSeconds is the expires_in value reported to clients.
func (c *Config) ExpiresInSeconds() int64 {
	return int64(c.JWTTTLMinutes) * 60
}

func (c *Config) GetRequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// RedisAddr returns host:port for the redis client.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}
