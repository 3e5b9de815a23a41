package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig — корневая структура конфигурации.
// Она зеркалит структуру config.yaml.
type AppConfig struct {
	Models          ModelsConfig     `yaml:"models"`
	S3              S3Config         `yaml:"s3"`
	Ads             AdsConfig        `yaml:"ads"`
	Validation      ValidationConfig `yaml:"validation"`
	Budget          BudgetConfig     `yaml:"budget"`
	ImageProcessing ImageProcConfig  `yaml:"image_processing"`
	Workbook        WorkbookConfig   `yaml:"workbook"`
	App             AppSpecific      `yaml:"app"`
}

// ModelsConfig — настройки vision моделей.
type ModelsConfig struct {
	DefaultVision string              `yaml:"default_vision"` // Алиас по умолчанию (например, "gpt-4o-mini")
	Definitions   map[string]ModelDef `yaml:"definitions"`
}

// ModelDef — параметры конкретной модели.
type ModelDef struct {
	Provider    string        `yaml:"provider"`   // "openai", "zai" и т.д.
	ModelName   string        `yaml:"model_name"` // Реальное имя в API
	APIKey      string        `yaml:"api_key"`    // Поддерживает ${VAR}
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"` // "60s", "1m"
	BaseURL     string        `yaml:"base_url"`
}

// S3Config — настройки объектного хранилища.
type S3Config struct {
	Endpoint     string `yaml:"endpoint"`
	Region       string `yaml:"region"`
	Bucket       string `yaml:"bucket"`
	AccessKey    string `yaml:"access_key"` // Поддерживает ${VAR}
	SecretKey    string `yaml:"secret_key"` // Поддерживает ${VAR}
	UseSSL       bool   `yaml:"use_ssl"`
	SourcePrefix string `yaml:"source_prefix"` // Откуда берём исходные креативы
	TargetPrefix string `yaml:"target_prefix"` // Куда раскладываем по иерархии
}

// AdsConfig — настройки рекламного API (обновление бюджетов).
type AdsConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	RateLimit  int    `yaml:"rate_limit"`  // Запросов в минуту
	BurstLimit int    `yaml:"burst_limit"` // Burst для rate limiter
	Timeout    string `yaml:"timeout"`     // Timeout для HTTP запросов (например, "30s")
}

// GetDefaults возвращает дефолтные значения для незаполненных полей.
func (c *AdsConfig) GetDefaults() AdsConfig {
	result := *c

	if result.BaseURL == "" {
		result.BaseURL = "https://ads-api.example.com"
	}
	if result.RateLimit == 0 {
		result.RateLimit = 60
	}
	if result.BurstLimit == 0 {
		result.BurstLimit = 5
	}
	if result.Timeout == "" {
		result.Timeout = "30s"
	}

	return result
}

// ValidationConfig — настройки пайплайна валидации.
type ValidationConfig struct {
	MaxRetries int `yaml:"max_retries"` // Попытки вызова анализатора изображений
}

// GetDefaults возвращает дефолтные значения для незаполненных полей.
func (c *ValidationConfig) GetDefaults() ValidationConfig {
	result := *c
	if result.MaxRetries <= 0 {
		result.MaxRetries = 3
	}
	return result
}

// BudgetConfig — пороги и множители перераспределения бюджета.
//
// Ноль в любом поле означает "не задано" и заменяется значением по умолчанию.
// Чтобы фактически отключить уменьшение одиночных креативов, задайте
// low_threshold малым положительным числом (например, 0.0001).
type BudgetConfig struct {
	MaxRetries     int     `yaml:"max_retries"`
	HighThreshold  float64 `yaml:"high_threshold"`  // Одиночный креатив: score > high → увеличение
	LowThreshold   float64 `yaml:"low_threshold"`   // Одиночный креатив: score < low → уменьшение
	IncreaseFactor float64 `yaml:"increase_factor"` // Множитель для лидеров
	DecreaseFactor float64 `yaml:"decrease_factor"` // Множитель для отстающих
}

// GetDefaults возвращает дефолтные значения для незаполненных полей.
func (c *BudgetConfig) GetDefaults() BudgetConfig {
	result := *c

	if result.MaxRetries <= 0 {
		result.MaxRetries = 3
	}
	if result.HighThreshold == 0 {
		result.HighThreshold = 0.7
	}
	if result.LowThreshold == 0 {
		result.LowThreshold = 0.3
	}
	if result.IncreaseFactor == 0 {
		result.IncreaseFactor = 1.2
	}
	if result.DecreaseFactor == 0 {
		result.DecreaseFactor = 0.8
	}

	return result
}

// ImageProcConfig — настройки обработки изображений.
type ImageProcConfig struct {
	MaxWidth  int `yaml:"max_width"`   // Ширина для отправки в vision модель
	Quality   int `yaml:"quality"`     // Качество JPEG для vision модели
	MaxSizeKB int `yaml:"max_size_kb"` // Лимит размера обработанного PNG
}

// GetDefaults возвращает дефолтные значения для незаполненных полей.
func (c *ImageProcConfig) GetDefaults() ImageProcConfig {
	result := *c
	if result.MaxWidth == 0 {
		result.MaxWidth = 1024
	}
	if result.Quality == 0 {
		result.Quality = 85
	}
	if result.MaxSizeKB == 0 {
		result.MaxSizeKB = 100
	}
	return result
}

// WorkbookConfig — выгрузка таблицы с настройками и метриками.
type WorkbookConfig struct {
	Path string `yaml:"path"`
}

// AppSpecific — общие настройки приложения.
type AppSpecific struct {
	Debug      bool   `yaml:"debug"`
	TmpDir     string `yaml:"tmp_dir"`
	ReportsDir string `yaml:"reports_dir"`
	LogDir     string `yaml:"log_dir"`
	LockFile   string `yaml:"lock_file"`
	Schedule   string `yaml:"schedule"` // cron выражение с секундами, пусто = один прогон
}

// GetDefaults возвращает дефолтные значения для незаполненных полей.
func (c *AppSpecific) GetDefaults() AppSpecific {
	result := *c
	if result.TmpDir == "" {
		result.TmpDir = "tmp"
	}
	if result.ReportsDir == "" {
		result.ReportsDir = filepath.Join(result.TmpDir, "reports")
	}
	if result.LogDir == "" {
		result.LogDir = "."
	}
	if result.LockFile == "" {
		result.LockFile = filepath.Join(result.TmpDir, "creative-sorter.lock")
	}
	return result
}

// Load читает YAML файл, подставляет ENV переменные и возвращает готовую структуру.
//
// Перед подстановкой подгружается .env из директории конфига (если есть),
// уже выставленные переменные окружения не перезаписываются.
func Load(path string) (*AppConfig, error) {
	// 1. Проверяем существование файла
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found at: %s", path)
	}

	// 2. Подгружаем .env
	if err := loadDotEnv(filepath.Dir(path)); err != nil {
		return nil, err
	}

	// 3. Читаем файл целиком
	rawBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// 4. Подставляем переменные окружения (${VAR} или $VAR)
	contentWithEnv := os.ExpandEnv(string(rawBytes))

	// 5. Парсим YAML в структуру
	var cfg AppConfig
	if err := yaml.Unmarshal([]byte(contentWithEnv), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	cfg.applyDefaults()

	// 6. Валидируем критические настройки
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func loadDotEnv(dir string) error {
	envPath := filepath.Join(dir, ".env")
	err := godotenv.Load(envPath)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", envPath, err)
}

func (c *AppConfig) applyDefaults() {
	c.Ads = c.Ads.GetDefaults()
	c.Validation = c.Validation.GetDefaults()
	c.Budget = c.Budget.GetDefaults()
	c.ImageProcessing = c.ImageProcessing.GetDefaults()
	c.App = c.App.GetDefaults()
}

// validate проверяет обязательные поля.
func (c *AppConfig) validate() error {
	if c.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required")
	}
	if c.S3.Endpoint == "" {
		return fmt.Errorf("s3.endpoint is required")
	}
	if c.Workbook.Path == "" {
		return fmt.Errorf("workbook.path is required")
	}
	if c.Models.DefaultVision != "" {
		if _, ok := c.Models.Definitions[c.Models.DefaultVision]; !ok {
			return fmt.Errorf("default_vision model '%s' is not defined in definitions", c.Models.DefaultVision)
		}
	}
	if c.Budget.LowThreshold > c.Budget.HighThreshold {
		return fmt.Errorf("budget.low_threshold (%.2f) must not exceed budget.high_threshold (%.2f)",
			c.Budget.LowThreshold, c.Budget.HighThreshold)
	}
	if _, err := time.ParseDuration(c.Ads.Timeout); err != nil {
		return fmt.Errorf("invalid ads.timeout format: %w", err)
	}
	return nil
}

// GetVisionModel возвращает конфигурацию модели по умолчанию или по имени.
func (c *AppConfig) GetVisionModel(name string) (ModelDef, bool) {
	if name == "" {
		name = c.Models.DefaultVision
	}
	m, ok := c.Models.Definitions[name]
	return m, ok
}
