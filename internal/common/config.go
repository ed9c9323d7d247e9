package common

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
	OCR       OCRConfig       `mapstructure:"ocr"`
	Normalize NormalizeConfig `mapstructure:"normalize"`
	ShelfLife ShelfLifeConfig `mapstructure:"shelflife"`
	Translate TranslateConfig `mapstructure:"translate"`
	Recipe    RecipeConfig    `mapstructure:"recipe"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string        `mapstructure:"driver" validate:"oneof=postgres sqlite"`
	DSN              string        `mapstructure:"dsn" validate:"required"`
	MaxConns         int32         `mapstructure:"max_conns" validate:"gte=1"`
	MinConns         int32         `mapstructure:"min_conns" validate:"gte=0"`
	MaxConnLifetime  time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `mapstructure:"max_conn_idle_time"`
	DialTimeout      time.Duration `mapstructure:"dial_timeout"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
	AutoMigrate      bool          `mapstructure:"auto_migrate"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string `mapstructure:"grpc_addr" validate:"required"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine        string `mapstructure:"engine" validate:"oneof=cli gosseract"`
	Tesseract     string `mapstructure:"tesseract"`
	Lang          string `mapstructure:"lang" validate:"required"`
	OEM           int    `mapstructure:"oem"`
	TessdataDir   string `mapstructure:"tessdata_dir"`
	Parallel      bool   `mapstructure:"parallel"`
	HEICConverter string `mapstructure:"heic_converter"`
}

// NormalizeConfig holds thresholds for the product-name cascade
type NormalizeConfig struct {
	PatternAccept  float64 `mapstructure:"pattern_accept" validate:"gt=0,lte=1"`
	FuzzyBaseScore int     `mapstructure:"fuzzy_base_score" validate:"gte=0,lte=100"`
}

// ShelfLifeConfig holds shelf-life policy defaults
type ShelfLifeConfig struct {
	DefaultStorageID int64 `mapstructure:"default_storage_id" validate:"gte=1"`
}

// TranslateConfig holds translation API configuration
type TranslateConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url" validate:"omitempty,url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RatePerSec float64       `mapstructure:"rate_per_sec"`
}

// RecipeConfig holds recipe-search configuration
type RecipeConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url" validate:"omitempty,url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRecipes int           `mapstructure:"max_recipes" validate:"gte=1"`
	MaxMissing int           `mapstructure:"max_missing" validate:"gte=0"`
	RatePerSec float64       `mapstructure:"rate_per_sec"`
}

// QueueConfig holds worker queue sizing
type QueueConfig struct {
	Workers int           `mapstructure:"workers" validate:"gte=1"`
	Size    int           `mapstructure:"size" validate:"gte=1"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// IngestConfig holds inbox watcher settings
type IngestConfig struct {
	InboxDir string        `mapstructure:"inbox_dir"`
	UserID   int64         `mapstructure:"user_id"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// LoadConfig reads pantry.yaml (optional) and PANTRY_* environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetConfigName("pantry")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pantry/")

	// PANTRY_DATABASE_DSN -> database.dsn
	v.SetEnvPrefix("PANTRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:pantry.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("database.max_conn_idle_time", 5*time.Minute)
	v.SetDefault("database.dial_timeout", 3*time.Second)
	v.SetDefault("database.statement_timeout", time.Duration(0))
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("server.grpc_addr", ":8080")

	v.SetDefault("ocr.engine", "cli")
	v.SetDefault("ocr.tesseract", "tesseract")
	v.SetDefault("ocr.lang", "tur+eng")
	v.SetDefault("ocr.oem", 3)
	v.SetDefault("ocr.tessdata_dir", "")
	v.SetDefault("ocr.parallel", true)
	v.SetDefault("ocr.heic_converter", "magick")

	v.SetDefault("normalize.pattern_accept", 0.6)
	v.SetDefault("normalize.fuzzy_base_score", 72)

	v.SetDefault("shelflife.default_storage_id", 1)

	v.SetDefault("translate.api_key", "")
	v.SetDefault("translate.base_url", "https://translation.googleapis.com/language/translate/v2")
	v.SetDefault("translate.timeout", 6*time.Second)
	v.SetDefault("translate.rate_per_sec", 5.0)

	v.SetDefault("recipe.api_key", "")
	v.SetDefault("recipe.base_url", "https://api.spoonacular.com")
	v.SetDefault("recipe.timeout", 30*time.Second)
	v.SetDefault("recipe.max_recipes", 10)
	v.SetDefault("recipe.max_missing", 8)
	v.SetDefault("recipe.rate_per_sec", 1.0)

	v.SetDefault("queue.workers", 4)
	v.SetDefault("queue.size", 256)
	v.SetDefault("queue.timeout", 3*time.Minute)

	v.SetDefault("ingest.inbox_dir", "")
	v.SetDefault("ingest.user_id", 1)
	v.SetDefault("ingest.debounce", 500*time.Millisecond)
}

// Validate checks struct tags and cross-field rules.
func (c *Config) Validate() error {
	if err := ValidateStruct(c); err != nil {
		return NewAppError("CONFIG_ERROR", "configuration rejected", err)
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return NewAppError("CONFIG_ERROR", "database.min_conns exceeds max_conns", ErrInvalidInput)
	}
	return nil
}
