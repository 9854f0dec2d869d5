package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"
)

// Config holds all configuration
type Config struct {
	MySQL      MySQLConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Upload     UploadConfig
	Conversion ConversionConfig
	Migrate    bool
	HTTPAddr   string
}

// MySQLConfig holds MySQL configuration
type MySQLConfig struct {
	DSN string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret        string
	ExpireMinutes int
	Issuer        string
}

// UploadConfig holds credential upload constraints enforced at the
// transport layer before bytes reach the vault.
type UploadConfig struct {
	MaxBytes    int64
	AllowedExts []string
}

// ConversionConfig holds private-key conversion settings
type ConversionConfig struct {
	TimeoutSec      int
	PoolSize        int
	OpenSSLFallback bool
	OpenSSLPath     string
	TempDir         string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		MySQL: MySQLConfig{
			DSN: getEnv("MYSQL_DSN", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASS", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:        os.Getenv("JWT_SECRET"),
			ExpireMinutes: getEnvInt("JWT_EXPIRE_MINUTES", 1440),
			Issuer:        getEnv("JWT_ISSUER", "satvault"),
		},
		Upload: UploadConfig{
			MaxBytes:    int64(getEnvInt("UPLOAD_MAX_BYTES", 2<<20)),
			AllowedExts: splitExts(getEnv("UPLOAD_ALLOWED_EXTS", ".cer,.key")),
		},
		Conversion: ConversionConfig{
			TimeoutSec:      getEnvInt("CONVERSION_TIMEOUT_SEC", 10),
			PoolSize:        getEnvInt("CONVERSION_POOL_SIZE", 4),
			OpenSSLFallback: getEnv("CONVERSION_OPENSSL_FALLBACK", "0") == "1",
			OpenSSLPath:     getEnv("CONVERSION_OPENSSL_PATH", "openssl"),
			TempDir:         getEnv("CONVERSION_TMP_DIR", os.TempDir()),
		},
		Migrate:  getEnv("MIGRATE", "0") == "1",
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
	}

	// Validate required fields
	if cfg.MySQL.DSN == "" {
		return nil, fmt.Errorf("MYSQL_DSN is required")
	}
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Upload.MaxBytes <= 0 {
		return nil, fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}

	return cfg, nil
}

// LoadFromINI loads configuration from an INI file with environment variable
// override. Priority: ENV > INI > default.
func LoadFromINI(iniPath string) (*Config, error) {
	cfgFile, err := ini.Load(iniPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load INI file: %w", err)
	}

	getValue := func(envKey, iniSection, iniKey, defaultValue string) string {
		if value := os.Getenv(envKey); value != "" {
			return value
		}
		if value := cfgFile.Section(iniSection).Key(iniKey).String(); value != "" {
			return value
		}
		return defaultValue
	}

	getValueInt := func(envKey, iniSection, iniKey string, defaultValue int) int {
		if value := os.Getenv(envKey); value != "" {
			if intValue, err := strconv.Atoi(value); err == nil {
				return intValue
			}
		}
		if cfgFile.Section(iniSection).HasKey(iniKey) {
			if value, err := cfgFile.Section(iniSection).Key(iniKey).Int(); err == nil {
				return value
			}
		}
		return defaultValue
	}

	getValueBool := func(envKey, iniSection, iniKey string, defaultValue bool) bool {
		if value := os.Getenv(envKey); value != "" {
			return value == "1" || value == "true"
		}
		if value, err := cfgFile.Section(iniSection).Key(iniKey).Bool(); err == nil {
			return value
		}
		return defaultValue
	}

	cfg := &Config{
		MySQL: MySQLConfig{
			DSN: getValue("MYSQL_DSN", "mysql", "dsn", ""),
		},
		Redis: RedisConfig{
			Addr:     getValue("REDIS_ADDR", "redis", "addr", "localhost:6379"),
			Password: getValue("REDIS_PASS", "redis", "password", ""),
			DB:       getValueInt("REDIS_DB", "redis", "db", 0),
		},
		JWT: JWTConfig{
			Secret:        getValue("JWT_SECRET", "jwt", "secret", ""),
			ExpireMinutes: getValueInt("JWT_EXPIRE_MINUTES", "jwt", "expire_minutes", 1440),
			Issuer:        getValue("JWT_ISSUER", "jwt", "issuer", "satvault"),
		},
		Upload: UploadConfig{
			MaxBytes:    int64(getValueInt("UPLOAD_MAX_BYTES", "upload", "max_bytes", 2<<20)),
			AllowedExts: splitExts(getValue("UPLOAD_ALLOWED_EXTS", "upload", "allowed_exts", ".cer,.key")),
		},
		Conversion: ConversionConfig{
			TimeoutSec:      getValueInt("CONVERSION_TIMEOUT_SEC", "conversion", "timeout_sec", 10),
			PoolSize:        getValueInt("CONVERSION_POOL_SIZE", "conversion", "pool_size", 4),
			OpenSSLFallback: getValueBool("CONVERSION_OPENSSL_FALLBACK", "conversion", "openssl_fallback", false),
			OpenSSLPath:     getValue("CONVERSION_OPENSSL_PATH", "conversion", "openssl_path", "openssl"),
			TempDir:         getValue("CONVERSION_TMP_DIR", "conversion", "tmp_dir", os.TempDir()),
		},
		Migrate:  getValueBool("MIGRATE", "app", "migrate", false),
		HTTPAddr: getValue("HTTP_ADDR", "app", "http_addr", ":8080"),
	}

	if cfg.MySQL.DSN == "" {
		return nil, fmt.Errorf("mysql dsn is required")
	}
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// splitExts normalizes a comma-separated extension list: lowercase, with a
// leading dot, empty entries dropped.
func splitExts(raw string) []string {
	var exts []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if !strings.HasPrefix(part, ".") {
			part = "." + part
		}
		exts = append(exts, part)
	}
	return exts
}
