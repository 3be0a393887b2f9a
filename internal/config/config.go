// Пакет config — загрузка и валидация конфигурации портала формуляров
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации портала.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера (диапазон 1024-65535)
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- Backend API ---

	// Базовый URL backend API (без завершающего слэша)
	APIBaseURL string
	// Таймаут запроса к backend
	APITimeout time.Duration
	// Префикс заголовка Authorization ("" — токен передаётся как есть)
	APIAuthScheme string
	// Путь к CA-сертификату backend (опционально)
	APICACertPath string
	// Путь, проверяемый мониторингом доступности backend
	APIHealthPath string
	// Базовый URL для PDF-шаблонов (по умолчанию равен APIBaseURL)
	PDFBaseURL string

	// --- Экран формуляров ---

	// Место, скрываемое из списка выбора
	ExcludedLocation string
	// Количество строк на странице
	PageSize int
	// Таймаут фоновой очистки устаревших формуляров
	CleanupTimeout time.Duration

	// --- Сессии и состояние ---

	// Секрет для шифрования cookie сессии ("" — случайный ключ)
	SessionSecret string
	// Secure flag для cookie
	SecureCookie bool
	// Время жизни состояния экрана оператора
	StateTTL time.Duration
	// Ёмкость in-memory хранилища состояний
	StateMaxEntries int

	// --- Redis (опционально) ---

	// Адрес Redis ("" — состояние хранится в памяти процесса)
	RedisAddr string
	// Пароль Redis
	RedisPassword string
	// Номер базы Redis
	RedisDB int

	// --- Кэш персон ---

	// Ёмкость LRU-кэша персон
	PersonCacheSize int
	// TTL записи кэша персон
	PersonCacheTTL time.Duration

	// --- PostgreSQL (опционально, журнал действий) ---

	// Хост PostgreSQL ("" — журнал не ведётся)
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- topologymetrics ---

	// Группа сервиса в topologymetrics
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// PC_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("PC_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("PC_PORT: %w", err)
	}
	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("PC_PORT: значение %d вне допустимого диапазона 1024-65535", cfg.Port)
	}

	// PC_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("PC_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("PC_LOG_LEVEL: %w", err)
	}

	// PC_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("PC_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("PC_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- Backend API ---

	// PC_API_BASE_URL — обязательный
	cfg.APIBaseURL, err = getEnvRequired("PC_API_BASE_URL")
	if err != nil {
		return nil, err
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	if u, parseErr := url.Parse(cfg.APIBaseURL); parseErr != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("PC_API_BASE_URL: некорректный URL %q", cfg.APIBaseURL)
	}

	// PC_API_TIMEOUT — таймаут запроса (по умолчанию 15s)
	cfg.APITimeout, err = getEnvDuration("PC_API_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PC_API_TIMEOUT: %w", err)
	}

	// PC_API_AUTH_SCHEME — префикс Authorization (по умолчанию пусто)
	cfg.APIAuthScheme = strings.TrimSpace(os.Getenv("PC_API_AUTH_SCHEME"))

	// PC_API_CA_CERT_PATH — путь к CA-сертификату (опционально)
	cfg.APICACertPath = getEnvDefault("PC_API_CA_CERT_PATH", "")

	// PC_API_HEALTH_PATH — путь проверки доступности (по умолчанию /)
	cfg.APIHealthPath = getEnvDefault("PC_API_HEALTH_PATH", "/")
	if !strings.HasPrefix(cfg.APIHealthPath, "/") {
		return nil, fmt.Errorf("PC_API_HEALTH_PATH: путь %q должен начинаться с /", cfg.APIHealthPath)
	}

	// PC_PDF_BASE_URL — база для PDF (по умолчанию = PC_API_BASE_URL)
	cfg.PDFBaseURL = strings.TrimRight(getEnvDefault("PC_PDF_BASE_URL", cfg.APIBaseURL), "/")

	// --- Экран формуляров ---

	// PC_EXCLUDED_LOCATION — скрываемое место (по умолчанию DIRECCION DE TRANSPORTE)
	cfg.ExcludedLocation = getEnvDefault("PC_EXCLUDED_LOCATION", "DIRECCION DE TRANSPORTE")

	// PC_PAGE_SIZE — строк на странице (по умолчанию 10)
	cfg.PageSize, err = getEnvInt("PC_PAGE_SIZE", 10)
	if err != nil {
		return nil, fmt.Errorf("PC_PAGE_SIZE: %w", err)
	}
	if cfg.PageSize < 1 || cfg.PageSize > 100 {
		return nil, fmt.Errorf("PC_PAGE_SIZE: значение %d вне допустимого диапазона 1-100", cfg.PageSize)
	}

	// PC_CLEANUP_TIMEOUT — таймаут фоновой очистки (по умолчанию 30s)
	cfg.CleanupTimeout, err = getEnvDuration("PC_CLEANUP_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PC_CLEANUP_TIMEOUT: %w", err)
	}

	// --- Сессии и состояние ---

	cfg.SessionSecret = getEnvDefault("PC_SESSION_SECRET", "")

	cfg.SecureCookie, err = getEnvBool("PC_SECURE_COOKIE", false)
	if err != nil {
		return nil, fmt.Errorf("PC_SECURE_COOKIE: %w", err)
	}

	// PC_STATE_TTL — время жизни состояния (по умолчанию 8h)
	cfg.StateTTL, err = getEnvDuration("PC_STATE_TTL", 8*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("PC_STATE_TTL: %w", err)
	}

	// PC_STATE_MAX_ENTRIES — ёмкость in-memory хранилища (по умолчанию 1000)
	cfg.StateMaxEntries, err = getEnvInt("PC_STATE_MAX_ENTRIES", 1000)
	if err != nil {
		return nil, fmt.Errorf("PC_STATE_MAX_ENTRIES: %w", err)
	}
	if cfg.StateMaxEntries < 1 {
		return nil, fmt.Errorf("PC_STATE_MAX_ENTRIES: значение %d должно быть положительным", cfg.StateMaxEntries)
	}

	// --- Redis ---

	cfg.RedisAddr = getEnvDefault("PC_REDIS_ADDR", "")
	cfg.RedisPassword = getEnvDefault("PC_REDIS_PASSWORD", "")
	cfg.RedisDB, err = getEnvInt("PC_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("PC_REDIS_DB: %w", err)
	}

	// --- Кэш персон ---

	cfg.PersonCacheSize, err = getEnvInt("PC_PERSON_CACHE_SIZE", 5000)
	if err != nil {
		return nil, fmt.Errorf("PC_PERSON_CACHE_SIZE: %w", err)
	}
	if cfg.PersonCacheSize < 1 {
		return nil, fmt.Errorf("PC_PERSON_CACHE_SIZE: значение %d должно быть положительным", cfg.PersonCacheSize)
	}

	cfg.PersonCacheTTL, err = getEnvDuration("PC_PERSON_CACHE_TTL", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("PC_PERSON_CACHE_TTL: %w", err)
	}

	// --- PostgreSQL ---

	// PC_DB_HOST — опциональный; если задан, остальные параметры обязательны
	cfg.DBHost = getEnvDefault("PC_DB_HOST", "")
	if cfg.DBHost != "" {
		cfg.DBPort, err = getEnvInt("PC_DB_PORT", 5432)
		if err != nil {
			return nil, fmt.Errorf("PC_DB_PORT: %w", err)
		}

		cfg.DBName, err = getEnvRequired("PC_DB_NAME")
		if err != nil {
			return nil, err
		}

		cfg.DBUser, err = getEnvRequired("PC_DB_USER")
		if err != nil {
			return nil, err
		}

		cfg.DBPassword, err = getEnvRequired("PC_DB_PASSWORD")
		if err != nil {
			return nil, err
		}

		cfg.DBSSLMode = getEnvDefault("PC_DB_SSL_MODE", "disable")
		validSSLModes := map[string]bool{
			"disable": true, "require": true, "verify-ca": true, "verify-full": true,
		}
		if !validSSLModes[cfg.DBSSLMode] {
			return nil, fmt.Errorf("PC_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
		}
	}

	// --- topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("PC_DEPHEALTH_GROUP", "portal")

	cfg.DephealthCheckInterval, err = getEnvDuration("PC_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PC_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("PC_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PC_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// AuditEnabled сообщает, настроен ли PostgreSQL для журнала действий.
func (c *Config) AuditEnabled() bool {
	return c.DBHost != ""
}

// RedisEnabled сообщает, используется ли Redis для состояния экранов.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает postgres:// URL (для golang-migrate и topologymetrics).
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     c.DBName,
		RawQuery: "sslmode=" + c.DBSSLMode,
	}
	return u.String()
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
