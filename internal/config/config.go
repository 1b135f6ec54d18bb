package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server" json:"server"`

	// Database configuration
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Object store upload configuration
	Upload UploadConfig `yaml:"upload" json:"upload"`

	// Per-entity transcoding profiles
	Pipeline PipelineConfig `yaml:"pipeline" json:"pipeline"`

	// Downstream catalog API configuration
	Catalog CatalogConfig `yaml:"catalog" json:"catalog"`

	// Event bus configuration
	Events EventsConfig `yaml:"events" json:"events"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host         string        `yaml:"host" json:"host" env:"CATALOGMEDIA_HOST" default:"0.0.0.0"`
	Port         int           `yaml:"port" json:"port" env:"CATALOGMEDIA_PORT" default:"8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout" env:"CATALOGMEDIA_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout" env:"CATALOGMEDIA_WRITE_TIMEOUT" default:"30s"`
	EnableCORS   bool          `yaml:"enable_cors" json:"enable_cors" env:"CATALOGMEDIA_ENABLE_CORS" default:"true"`
}

// DatabaseConfig holds persistence configuration
type DatabaseConfig struct {
	Type         string `yaml:"type" json:"type" env:"DATABASE_TYPE" default:"sqlite"`
	DataDir      string `yaml:"data_dir" json:"data_dir" env:"CATALOGMEDIA_DATA_DIR" default:"./data"`
	DatabasePath string `yaml:"database_path" json:"database_path" env:"CATALOGMEDIA_DATABASE_PATH"`
	Host         string `yaml:"host" json:"host" env:"POSTGRES_HOST" default:"localhost"`
	Port         int    `yaml:"port" json:"port" env:"POSTGRES_PORT" default:"5432"`
	Username     string `yaml:"username" json:"username" env:"POSTGRES_USER" default:"catalogmedia"`
	Password     string `yaml:"password" json:"-" env:"POSTGRES_PASSWORD"`
	Database     string `yaml:"database" json:"database" env:"POSTGRES_DB" default:"catalogmedia"`
	LogQueries   bool   `yaml:"log_queries" json:"log_queries" env:"DB_LOG_QUERIES" default:"false"`
}

// UploadConfig holds remote object store configuration
type UploadConfig struct {
	Endpoint      string        `yaml:"endpoint" json:"endpoint" env:"CATALOGMEDIA_UPLOAD_ENDPOINT"`
	Preset        string        `yaml:"preset" json:"preset" env:"CATALOGMEDIA_UPLOAD_PRESET" default:"catalog_default"`
	AcceptedTypes []string      `yaml:"accepted_types" json:"accepted_types" env:"CATALOGMEDIA_ACCEPTED_TYPES"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout" env:"CATALOGMEDIA_UPLOAD_TIMEOUT" default:"0s"`
}

// Profile bounds the transcoding and batching behavior for one entity kind
type Profile struct {
	MaxWidth int     `yaml:"max_width" json:"max_width"`
	Quality  float64 `yaml:"quality" json:"quality"`
	MaxItems int     `yaml:"max_items" json:"max_items"`
}

// PipelineConfig holds the per-entity transcoding profiles
type PipelineConfig struct {
	Banner  Profile `yaml:"banner" json:"banner"`
	Product Profile `yaml:"product" json:"product"`
	Bundle  Profile `yaml:"bundle" json:"bundle"`
}

// CatalogConfig holds the downstream create-API configuration
type CatalogConfig struct {
	BaseURL string        `yaml:"base_url" json:"base_url" env:"CATALOGMEDIA_CATALOG_URL"`
	Timeout time.Duration `yaml:"timeout" json:"timeout" env:"CATALOGMEDIA_CATALOG_TIMEOUT" default:"30s"`
}

// EventsConfig holds event bus configuration
type EventsConfig struct {
	BufferSize        int           `yaml:"buffer_size" json:"buffer_size" env:"CATALOGMEDIA_EVENT_BUFFER" default:"1000"`
	MaxEventAge       time.Duration `yaml:"max_event_age" json:"max_event_age" env:"CATALOGMEDIA_EVENT_MAX_AGE" default:"24h"`
	EnablePersistence bool          `yaml:"enable_persistence" json:"enable_persistence" env:"CATALOGMEDIA_EVENT_PERSIST" default:"true"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" env:"CATALOGMEDIA_LOG_LEVEL" default:"info"`
	Format string `yaml:"format" json:"format" env:"CATALOGMEDIA_LOG_FORMAT" default:"text"`
}

// ConfigManager manages application configuration with reload support
type ConfigManager struct {
	config     *Config
	configPath string
	watchers   []ConfigWatcher
	mu         sync.RWMutex
}

// ConfigWatcher is called when configuration changes
type ConfigWatcher func(oldConfig, newConfig *Config)

var (
	globalConfigManager *ConfigManager
	configOnce          sync.Once
)

// GetConfigManager returns the global configuration manager instance
func GetConfigManager() *ConfigManager {
	configOnce.Do(func() {
		globalConfigManager = NewConfigManager()
	})
	return globalConfigManager
}

// NewConfigManager creates a new configuration manager
func NewConfigManager() *ConfigManager {
	return &ConfigManager{
		config:   DefaultConfig(),
		watchers: make([]ConfigWatcher, 0),
	}
}

// DefaultConfig returns the default application configuration.
// The pipeline profiles carry the widths and batch limits each admin
// screen submits with: banners are hero images (wider, single file),
// product galleries allow up to four files, bundles a single cover.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			EnableCORS:   true,
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: "./data",
		},
		Upload: UploadConfig{
			Preset:        "catalog_default",
			AcceptedTypes: []string{"image/*"},
		},
		Pipeline: PipelineConfig{
			Banner:  Profile{MaxWidth: 1200, Quality: 0.8, MaxItems: 1},
			Product: Profile{MaxWidth: 800, Quality: 0.8, MaxItems: 4},
			Bundle:  Profile{MaxWidth: 800, Quality: 0.8, MaxItems: 1},
		},
		Catalog: CatalogConfig{
			Timeout: 30 * time.Second,
		},
		Events: EventsConfig{
			BufferSize:        1000,
			MaxEventAge:       24 * time.Hour,
			EnablePersistence: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from file and environment variables
func (cm *ConfigManager) LoadConfig(configPath string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	oldConfig := *cm.config
	cm.configPath = configPath

	// Start with default configuration
	newConfig := DefaultConfig()

	// Load from file if it exists
	if configPath != "" && fileExists(configPath) {
		if err := cm.loadFromFile(configPath, newConfig); err != nil {
			return fmt.Errorf("failed to load config from file: %w", err)
		}
		log.Printf("✅ Configuration loaded from file: %s", configPath)
	}

	// Override with environment variables
	if err := cm.loadFromEnv(newConfig); err != nil {
		return fmt.Errorf("failed to load config from environment: %w", err)
	}

	// Validate configuration
	if err := cm.validateConfig(newConfig); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	// Apply derived configurations
	cm.applyDerivedConfig(newConfig)

	cm.config = newConfig

	// Notify watchers of config change
	for _, watcher := range cm.watchers {
		go watcher(&oldConfig, newConfig)
	}

	return nil
}

// GetConfig returns the current configuration (thread-safe)
func (cm *ConfigManager) GetConfig() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	// Return a copy to prevent external modifications
	configCopy := *cm.config
	return &configCopy
}

// AddWatcher adds a configuration change watcher
func (cm *ConfigManager) AddWatcher(watcher ConfigWatcher) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.watchers = append(cm.watchers, watcher)
}

// ConfigPath returns the path the configuration was loaded from
func (cm *ConfigManager) ConfigPath() string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.configPath
}

func (cm *ConfigManager) loadFromFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, config)
	case ".json":
		return json.Unmarshal(data, config)
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}
}

func (cm *ConfigManager) loadFromEnv(config *Config) error {
	return loadStructFromEnv(reflect.ValueOf(config).Elem())
}

func loadStructFromEnv(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.CanSet() {
			continue
		}

		// Handle nested structs recursively
		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}

		envValue := os.Getenv(envTag)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set field %s: %w", fieldType.Name, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			duration, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(duration))
		} else {
			intVal, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(intVal)
		}
	case reflect.Float32, reflect.Float64:
		floatVal, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatVal)
	case reflect.Bool:
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolVal)
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			values := strings.Split(value, ",")
			for i, v := range values {
				values[i] = strings.TrimSpace(v)
			}
			field.Set(reflect.ValueOf(values))
		}
	default:
		return fmt.Errorf("unsupported field type: %v", field.Kind())
	}

	return nil
}

func (cm *ConfigManager) validateConfig(config *Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Database.Type != "sqlite" && config.Database.Type != "postgres" {
		return fmt.Errorf("unsupported database type: %s", config.Database.Type)
	}

	for kind, profile := range map[string]Profile{
		"banner":  config.Pipeline.Banner,
		"product": config.Pipeline.Product,
		"bundle":  config.Pipeline.Bundle,
	} {
		if profile.MaxWidth < 1 {
			return fmt.Errorf("invalid max_width for %s profile: %d", kind, profile.MaxWidth)
		}
		if profile.Quality <= 0 || profile.Quality > 1 {
			return fmt.Errorf("invalid quality for %s profile: %g (must be in (0,1])", kind, profile.Quality)
		}
		if profile.MaxItems < 1 {
			return fmt.Errorf("invalid max_items for %s profile: %d", kind, profile.MaxItems)
		}
	}

	return nil
}

func (cm *ConfigManager) applyDerivedConfig(config *Config) {
	if config.Database.DatabasePath == "" && config.Database.Type == "sqlite" {
		config.Database.DatabasePath = filepath.Join(config.Database.DataDir, "catalogmedia.db")
	}

	if len(config.Upload.AcceptedTypes) == 0 {
		config.Upload.AcceptedTypes = []string{"image/*"}
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Global convenience functions

// Get returns the current global configuration
func Get() *Config {
	return GetConfigManager().GetConfig()
}

// Load loads configuration from the specified path
func Load(configPath string) error {
	return GetConfigManager().LoadConfig(configPath)
}

// AddWatcher adds a global configuration watcher
func AddWatcher(watcher ConfigWatcher) {
	GetConfigManager().AddWatcher(watcher)
}
