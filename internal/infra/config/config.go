// Пакет config отвечает за сбор и предоставление конфигурации бота.
// Он:
//  1. читает переменные окружения (опционально подмешивая .env через godotenv),
//  2. нормализует и валидирует входные значения, подставляя значения по умолчанию,
//  3. накапливает предупреждения о подставленных дефолтах,
//  4. предоставляет потокобезопасный доступ к результату.
//
// Бизнес-контекст: бот собирает фото из объявлений OLX/Otodom. Конфиг среды управляет
// подключением к Bot API, хранилищу состояния (Redis или bbolt), удалённому браузеру,
// логированием, лимитами скачивания и списком администраторов.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"el-estate-bot/internal/infra/timeutil"

	"github.com/joho/godotenv"
)

// EnvConfig описывает параметры, приходящие из окружения. Значения уже прошли
// валидацию в loadConfig, поэтому по месту использования их можно не перепроверять.
type EnvConfig struct {
	BotToken   string
	AdminIDs   []int64
	RedisURL   string
	BrowserURL string // SELENIUM_URL: endpoint удалённого браузера; пусто — локальный headless Chrome

	StoreBackend string
	BoltFile     string

	HealthPort         int
	RateLimitRPS       int
	ImagesDir          string
	ScrapeTimeout      time.Duration
	BrowserMaxParallel int
	AppTimezone        string

	LogLevel string
	// Файловое логирование
	LogFile           string
	LogFileMaxSize    int
	LogFileMaxBackups int
	LogFileMaxAge     int
	LogFileCompress   bool

	CLIEnable bool
	// AppTimeout — через сколько остановиться самостоятельно; 0 — работать до сигнала.
	AppTimeout time.Duration
}

// Config хранит конфигурацию среды и предупреждения, накопленные при чтении.
type Config struct {
	Env      EnvConfig
	warnings []string
	mu       sync.RWMutex
}

// Значения по умолчанию.
const (
	defaultRedisURL           = "redis://localhost:6379/0"
	defaultStoreBackend       = StoreRedis
	defaultBoltFile           = "data/state.bbolt"
	defaultHealthPort         = 8080
	defaultRateLimitRPS       = 5
	defaultImagesDir          = "images"
	defaultScrapeTimeoutSec   = 45
	defaultBrowserMaxParallel = 2
	defaultAppTimezone        = "Europe/Kyiv"
	defaultLogLevel           = "info"
	defaultLogFile            = "/app/logs/app.log"
	defaultLogFileMaxSize     = 10
	defaultLogFileMaxBackups  = 5
	defaultLogFileMaxAge      = 30
	defaultLogFileCompress    = false
	defaultCLIEnable          = false
)

// Поддерживаемые бэкенды хранилища состояния.
const (
	StoreRedis = "redis"
	StoreBolt  = "bolt"
)

var (
	cfgMu       sync.Mutex
	cfgInstance *Config

	// AppLocation — таймзона, в которой считаются границы суток/недель для статистики.
	AppLocation = time.UTC
)

// ErrAlreadyLoaded возвращается при повторном вызове Load.
var ErrAlreadyLoaded = errors.New("config already loaded")

// Load — точка входа для инициализации глобальной конфигурации. Повторный вызов
// запрещён, чтобы не ловить гонки конфигурации на старте.
func Load(envPath string) error {
	cfgMu.Lock()
	defer cfgMu.Unlock()
	if cfgInstance != nil {
		return ErrAlreadyLoaded
	}
	cfg, err := loadConfig(envPath)
	if err != nil {
		return err
	}
	loc, err := timeutil.ParseLocation(cfg.Env.AppTimezone)
	if err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE %q: %w", cfg.Env.AppTimezone, err)
	}
	AppLocation = loc
	cfgInstance = cfg
	return nil
}

// Get возвращает загруженную конфигурацию. До Load возвращает nil.
func Get() *Config {
	cfgMu.Lock()
	defer cfgMu.Unlock()
	return cfgInstance
}

// Env возвращает снимок EnvConfig из глобального singleton.
func Env() EnvConfig {
	return Get().Env
}

// Warnings возвращает копию предупреждений, возникших при загрузке.
func Warnings() []string {
	c := Get()
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.warnings)
}

// loadConfig выполняет фактическую загрузку без установки глобального состояния.
// Файл .env необязателен: его отсутствие даёт предупреждение, а не ошибку, так как
// в контейнере переменные приходят из окружения.
func loadConfig(envPath string) (*Config, error) {
	var warnings []string

	if envPath != "" {
		if _, statErr := os.Stat(envPath); statErr == nil {
			if err := godotenv.Load(envPath); err != nil {
				return nil, fmt.Errorf("failed to load .env: %w", err)
			}
		} else {
			appendWarningf(&warnings, "env file %q not found; using process environment only", envPath)
		}
	}

	botToken := strings.TrimSpace(os.Getenv("BOT_TOKEN"))
	if botToken == "" {
		return nil, errors.New("env BOT_TOKEN must be set")
	}

	adminIDs := ParseAdminIDs(os.Getenv("ADMIN_IDS"))
	if len(adminIDs) == 0 {
		appendWarningf(&warnings, "env ADMIN_IDS is empty; admin commands are disabled")
	}

	storeBackend := sanitizeChoice("STORE_BACKEND", os.Getenv("STORE_BACKEND"), defaultStoreBackend,
		[]string{StoreRedis, StoreBolt}, &warnings)

	env := EnvConfig{
		BotToken:           botToken,
		AdminIDs:           adminIDs,
		RedisURL:           sanitizeString("REDIS_URL", os.Getenv("REDIS_URL"), defaultRedisURL, &warnings),
		BrowserURL:         strings.TrimRight(strings.TrimSpace(os.Getenv("SELENIUM_URL")), "/"),
		StoreBackend:       storeBackend,
		BoltFile:           sanitizeString("BOLT_FILE", os.Getenv("BOLT_FILE"), defaultBoltFile, &warnings),
		HealthPort:         parseIntDefault("HEALTH_PORT", defaultHealthPort, validPort, &warnings),
		RateLimitRPS:       parseIntDefault("RATE_LIMIT_RPS", defaultRateLimitRPS, greaterThanZero, &warnings),
		ImagesDir:          sanitizeString("IMAGES_DIR", os.Getenv("IMAGES_DIR"), defaultImagesDir, &warnings),
		ScrapeTimeout:      time.Duration(parseIntDefault("SCRAPE_TIMEOUT_SEC", defaultScrapeTimeoutSec, greaterThanZero, &warnings)) * time.Second,
		BrowserMaxParallel: parseIntDefault("BROWSER_MAX_PARALLEL", defaultBrowserMaxParallel, greaterThanZero, &warnings),
		AppTimezone:        sanitizeTimezone(os.Getenv("APP_TIMEZONE"), defaultAppTimezone, &warnings),
		LogLevel:           sanitizeLogLevel(os.Getenv("LOG_LEVEL"), defaultLogLevel, &warnings),
		LogFile:            sanitizeString("LOG_FILE", os.Getenv("LOG_FILE"), defaultLogFile, &warnings),
		LogFileMaxSize:     parseIntDefault("LOG_FILE_MAX_SIZE_MB", defaultLogFileMaxSize, greaterThanZero, &warnings),
		LogFileMaxBackups:  parseIntDefault("LOG_FILE_MAX_BACKUPS", defaultLogFileMaxBackups, nonNegative, &warnings),
		LogFileMaxAge:      parseIntDefault("LOG_FILE_MAX_AGE_DAYS", defaultLogFileMaxAge, nonNegative, &warnings),
		LogFileCompress:    parseBoolDefault("LOG_FILE_COMPRESS", defaultLogFileCompress, &warnings),
		CLIEnable:          parseBoolDefault("CLI_ENABLE", defaultCLIEnable, &warnings),
		AppTimeout:         parseOptionalSeconds("APP_TIMEOUT_SEC", &warnings),
	}
	if env.BrowserURL == "" {
		appendWarningf(&warnings, "env SELENIUM_URL is not set; using local headless Chrome")
	}

	return &Config{Env: env, warnings: warnings}, nil
}

// ParseAdminIDs разбирает CSV со списком числовых id. Пустые и некорректные элементы
// пропускаются молча, дубликаты схлопываются, порядок первого появления сохраняется.
func ParseAdminIDs(value string) []int64 {
	var out []int64
	for part := range strings.SplitSeq(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// parseIntDefault читает name как int. Если пусто/некорректно/не проходит validator —
// возвращает defaultVal и пишет предупреждение.
func parseIntDefault(name string, defaultVal int, validator func(int) bool, warnings *[]string) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		appendWarningf(warnings, "env %s is not set; using default %d", name, defaultVal)
		return defaultVal
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		appendWarningf(warnings, "env %s value %q is not a valid integer; using default %d", name, value, defaultVal)
		return defaultVal
	}
	if validator != nil && !validator(v) {
		appendWarningf(warnings, "env %s value %d does not satisfy constraints; using default %d", name, v, defaultVal)
		return defaultVal
	}
	return v
}

// parseBoolDefault читает name как bool; при ошибке — defaultVal с предупреждением.
func parseBoolDefault(name string, defaultVal bool, warnings *[]string) bool {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return defaultVal
	}
	v, err := strconv.ParseBool(value)
	if err != nil {
		appendWarningf(warnings, "env %s value %q is not a valid boolean; using default %v", name, value, defaultVal)
		return defaultVal
	}
	return v
}

// parseOptionalSeconds читает необязательную длительность в секундах. Пусто — 0 без
// предупреждения; некорректное или отрицательное значение — 0 с предупреждением.
func parseOptionalSeconds(name string, warnings *[]string) time.Duration {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return 0
	}
	v, err := strconv.Atoi(value)
	if err != nil || v < 0 {
		appendWarningf(warnings, "env %s value %q is not a non-negative integer; timeout disabled", name, value)
		return 0
	}
	return time.Duration(v) * time.Second
}

func appendWarningf(warnings *[]string, format string, args ...any) {
	if warnings == nil {
		return
	}
	*warnings = append(*warnings, fmt.Sprintf(format, args...))
}

func greaterThanZero(v int) bool { return v > 0 }
func nonNegative(v int) bool     { return v >= 0 }
func validPort(v int) bool       { return v > 0 && v < 65536 }

// sanitizeLogLevel ограничивает LOG_LEVEL набором {debug, info, warn, error}.
func sanitizeLogLevel(level string, defaultVal string, warnings *[]string) string {
	lvl := strings.ToLower(strings.TrimSpace(level))
	switch lvl {
	case "":
		return defaultVal
	case "debug", "info", "warn", "error":
		return lvl
	default:
		appendWarningf(warnings, "env LOG_LEVEL value %q is invalid; using default %q", level, defaultVal)
		return defaultVal
	}
}

// sanitizeString возвращает значение или fallback с предупреждением, если оно пустое.
func sanitizeString(name, value, fallback string, warnings *[]string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		appendWarningf(warnings, "env %s is not set; using default %q", name, fallback)
		return fallback
	}
	return v
}

// sanitizeChoice приводит значение к одному из allowed (без учёта регистра).
func sanitizeChoice(name, value, fallback string, allowed []string, warnings *[]string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return fallback
	}
	if slices.Contains(allowed, v) {
		return v
	}
	appendWarningf(warnings, "env %s value %q is invalid; using default %q", name, value, fallback)
	return fallback
}

// sanitizeTimezone проверяет IANA-зону или UTC-смещение.
func sanitizeTimezone(value string, fallback string, warnings *[]string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return fallback
	}
	if _, err := timeutil.ParseLocation(v); err != nil {
		appendWarningf(warnings, "env APP_TIMEZONE %q is invalid; using default %q", v, fallback)
		return fallback
	}
	return v
}
