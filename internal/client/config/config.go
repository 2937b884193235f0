// Package config loads the client configuration from a YAML file overlaid
// with environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultFile - файл конфигурации в рабочей директории
const DefaultFile = "jobhunt.yaml"

// PathEnv - переменная окружения с путем к файлу конфигурации
const PathEnv = "JOBHUNT_CONFIG"

// Драйверы хранилища токенов
const (
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
)

// Config - конфигурация клиента.
// Источники значений (по убыванию приоритета):
//  1. флаги командной строки (накладываются в cmd/client);
//  2. явный путь через флаг -config;
//  3. путь в JOBHUNT_CONFIG;
//  4. ./jobhunt.yaml;
//  5. переменные окружения.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Session SessionConfig `yaml:"session"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig - адрес API
type ServerConfig struct {
	URL     string        `yaml:"url" env:"JOBHUNT_SERVER_URL" env-default:"http://localhost:3001/api"`
	Timeout time.Duration `yaml:"timeout" env:"JOBHUNT_SERVER_TIMEOUT" env-default:"30s"`
}

// StorageConfig - где хранится пара токенов
type StorageConfig struct {
	Driver string `yaml:"driver" env:"JOBHUNT_STORAGE_DRIVER" env-default:"bolt"`
	Path   string `yaml:"path" env:"JOBHUNT_STORAGE_PATH" env-default:"jobhunt-client.db"`
	// Passphrase включает шифрование токенов на диске; в YAML не читается
	Passphrase string `yaml:"-" env:"JOBHUNT_TOKEN_PASSPHRASE"`
}

// SessionConfig - параметры жизненного цикла сессии
type SessionConfig struct {
	RefreshLead      time.Duration `yaml:"refresh_lead" env:"JOBHUNT_REFRESH_LEAD" env-default:"5m"`
	RefreshTimeout   time.Duration `yaml:"refresh_timeout" env:"JOBHUNT_REFRESH_TIMEOUT" env-default:"30s"`
	RetryBase        time.Duration `yaml:"retry_base" env:"JOBHUNT_USER_FETCH_RETRY_BASE" env-default:"500ms"`
	UserFetchRetries uint64        `yaml:"user_fetch_retries" env:"JOBHUNT_USER_FETCH_RETRIES" env-default:"0"`
}

// LogConfig - уровень логирования: debug, info, warn, error
type LogConfig struct {
	Level string `yaml:"level" env:"JOBHUNT_LOG_LEVEL" env-default:"info"`
}

// MetricsConfig - адрес /metrics для команды watch; пустой отключает
type MetricsConfig struct {
	Addr string `yaml:"addr" env:"JOBHUNT_METRICS_ADDR"`
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) JOBHUNT_CONFIG; 3) ./jobhunt.yaml; 4) ENV.
// После чтения файла ENV накладывается поверх значений из YAML.
func Load(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		path = os.Getenv(PathEnv)
	}
	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}

	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read env: %w", err)
		}
		return &cfg, nil
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %q stat failed: %w", path, err)
	}
	// ReadConfig сам накладывает ENV поверх YAML
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config %q: %w", path, err)
	}

	return &cfg, nil
}

// Validate проверяет значения после наложения флагов
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.Server.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("server.url must be an absolute http(s) URL, got %q", c.Server.URL))
	}
	if c.Server.Timeout <= 0 {
		errs = append(errs, errors.New("server.timeout must be positive"))
	}

	switch c.Storage.Driver {
	case DriverBolt, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("storage.driver must be %q or %q, got %q", DriverBolt, DriverSQLite, c.Storage.Driver))
	}
	if c.Storage.Path == "" {
		errs = append(errs, errors.New("storage.path cannot be empty"))
	}

	if c.Session.RefreshLead <= 0 {
		errs = append(errs, errors.New("session.refresh_lead must be positive"))
	}
	if c.Session.RefreshTimeout <= 0 {
		errs = append(errs, errors.New("session.refresh_timeout must be positive"))
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// SlogLevel возвращает уровень логирования; неизвестное значение дает Info
func (c *Config) SlogLevel() slog.Level {
	level, err := ParseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// ParseLevel разбирает уровень логирования
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: unknown level %q", s)
	}
	return level, nil
}
