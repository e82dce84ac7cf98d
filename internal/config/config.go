package config

import (
	"fmt"
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
	Server     ServerConfig     `yaml:"server" json:"server"`
	Database   DatabaseConfig   `yaml:"database" json:"database"`
	Media      MediaConfig      `yaml:"media" json:"media"`
	Processing ProcessingConfig `yaml:"processing" json:"processing"`
	Storage    StorageConfig    `yaml:"storage" json:"storage"`
	Events     EventsConfig     `yaml:"events" json:"events"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host           string        `yaml:"host" json:"host" env:"CLIPFORGE_HOST" default:"0.0.0.0"`
	Port           int           `yaml:"port" json:"port" env:"CLIPFORGE_PORT" default:"8080"`
	ReadTimeout    time.Duration `yaml:"read_timeout" json:"read_timeout" env:"CLIPFORGE_READ_TIMEOUT" default:"30s"`
	WriteTimeout   time.Duration `yaml:"write_timeout" json:"write_timeout" env:"CLIPFORGE_WRITE_TIMEOUT" default:"10m"`
	EnableCORS     bool          `yaml:"enable_cors" json:"enable_cors" env:"CLIPFORGE_ENABLE_CORS" default:"true"`
	TrustedProxies []string      `yaml:"trusted_proxies" json:"trusted_proxies"`
}

// DatabaseConfig selects and tunes the persistence backend
type DatabaseConfig struct {
	Type            string        `yaml:"type" json:"type" env:"DATABASE_TYPE" default:"sqlite"`
	Host            string        `yaml:"host" json:"host" env:"POSTGRES_HOST" default:"localhost"`
	Port            int           `yaml:"port" json:"port" env:"POSTGRES_PORT" default:"5432"`
	Username        string        `yaml:"username" json:"username" env:"POSTGRES_USER" default:"clipforge"`
	Password        string        `yaml:"password" json:"-" env:"POSTGRES_PASSWORD"`
	Database        string        `yaml:"database" json:"database" env:"POSTGRES_DB" default:"clipforge"`
	SQLitePath      string        `yaml:"sqlite_path" json:"sqlite_path" env:"SQLITE_PATH" default:"./data/clipforge.db"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns" env:"DB_MAX_OPEN_CONNS" default:"50"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" default:"2h"`
	LogQueries      bool          `yaml:"log_queries" json:"log_queries" env:"DB_LOG_QUERIES" default:"false"`
}

// MediaConfig governs uploads and generated clip artifacts
type MediaConfig struct {
	UploadDir         string   `yaml:"upload_dir" json:"upload_dir" env:"CLIPFORGE_UPLOAD_DIR" default:"./data/uploads"`
	ClipDir           string   `yaml:"clip_dir" json:"clip_dir" env:"CLIPFORGE_CLIP_DIR" default:"./data/clips"`
	ThumbnailDir      string   `yaml:"thumbnail_dir" json:"thumbnail_dir" env:"CLIPFORGE_THUMBNAIL_DIR" default:"./data/thumbnails"`
	MaxUploadBytes    int64    `yaml:"max_upload_bytes" json:"max_upload_bytes" env:"CLIPFORGE_MAX_UPLOAD_BYTES" default:"524288000"`
	AllowedExtensions []string `yaml:"allowed_extensions" json:"allowed_extensions"`
	FallbackDuration  float64  `yaml:"fallback_duration" json:"fallback_duration" env:"CLIPFORGE_FALLBACK_DURATION" default:"60"`
}

// ProcessingConfig tunes the ffmpeg-backed clip pipeline
type ProcessingConfig struct {
	FFmpegBin        string        `yaml:"ffmpeg_bin" json:"ffmpeg_bin" env:"FFMPEG_BIN" default:"ffmpeg"`
	FFprobeBin       string        `yaml:"ffprobe_bin" json:"ffprobe_bin" env:"FFPROBE_BIN" default:"ffprobe"`
	TranscodeTimeout time.Duration `yaml:"transcode_timeout" json:"transcode_timeout" env:"CLIPFORGE_TRANSCODE_TIMEOUT" default:"10m"`
	ClipRetention    time.Duration `yaml:"clip_retention" json:"clip_retention" env:"CLIPFORGE_CLIP_RETENTION" default:"168h"`
	CleanupInterval  time.Duration `yaml:"cleanup_interval" json:"cleanup_interval" env:"CLIPFORGE_CLEANUP_INTERVAL" default:"1h"`
	EnableThumbnails bool          `yaml:"enable_thumbnails" json:"enable_thumbnails" env:"CLIPFORGE_ENABLE_THUMBNAILS" default:"true"`
	ThumbnailQuality float32       `yaml:"thumbnail_quality" json:"thumbnail_quality" env:"CLIPFORGE_THUMBNAIL_QUALITY" default:"80"`
}

// StorageConfig selects where artifacts live
type StorageConfig struct {
	Backend  string `yaml:"backend" json:"backend" env:"CLIPFORGE_STORAGE_BACKEND" default:"local"`
	S3Bucket string `yaml:"s3_bucket" json:"s3_bucket" env:"CLIPFORGE_S3_BUCKET"`
	S3Region string `yaml:"s3_region" json:"s3_region" env:"CLIPFORGE_S3_REGION" default:"us-east-1"`
	S3Prefix string `yaml:"s3_prefix" json:"s3_prefix" env:"CLIPFORGE_S3_PREFIX" default:"clipforge"`
}

// EventsConfig tunes the event bus
type EventsConfig struct {
	BufferSize int `yaml:"buffer_size" json:"buffer_size" env:"CLIPFORGE_EVENT_BUFFER" default:"256"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" env:"LOG_LEVEL" default:"info"`
	Format string `yaml:"format" json:"format" env:"LOG_FORMAT" default:"text"`
}

// ConfigWatcher is called when configuration changes
type ConfigWatcher func(oldConfig, newConfig *Config)

// ConfigManager manages application configuration with hot-reload support
type ConfigManager struct {
	config     *Config
	configPath string
	watchers   []ConfigWatcher
	mu         sync.RWMutex
}

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

// DefaultConfig returns the default application configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 10 * time.Minute,
			EnableCORS:   true,
		},
		Database: DatabaseConfig{
			Type:            "sqlite",
			Host:            "localhost",
			Port:            5432,
			Username:        "clipforge",
			Database:        "clipforge",
			SQLitePath:      "./data/clipforge.db",
			MaxOpenConns:    50,
			MaxIdleConns:    10,
			ConnMaxLifetime: 2 * time.Hour,
		},
		Media: MediaConfig{
			UploadDir:         "./data/uploads",
			ClipDir:           "./data/clips",
			ThumbnailDir:      "./data/thumbnails",
			MaxUploadBytes:    500 * 1024 * 1024,
			AllowedExtensions: []string{".mp4", ".mov", ".avi", ".mkv", ".webm"},
			FallbackDuration:  60,
		},
		Processing: ProcessingConfig{
			FFmpegBin:        "ffmpeg",
			FFprobeBin:       "ffprobe",
			TranscodeTimeout: 10 * time.Minute,
			ClipRetention:    7 * 24 * time.Hour,
			CleanupInterval:  time.Hour,
			EnableThumbnails: true,
			ThumbnailQuality: 80,
		},
		Storage: StorageConfig{
			Backend:  "local",
			S3Region: "us-east-1",
			S3Prefix: "clipforge",
		},
		Events: EventsConfig{
			BufferSize: 256,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from the given file path (optional) and the
// environment, then notifies watchers.
func (cm *ConfigManager) LoadConfig(configPath string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	oldConfig := *cm.config
	newConfig := DefaultConfig()

	if configPath != "" {
		cm.configPath = configPath
		if _, err := os.Stat(configPath); err == nil {
			if err := loadFromFile(configPath, newConfig); err != nil {
				return fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		}
	}

	if err := loadStructFromEnv(reflect.ValueOf(newConfig).Elem()); err != nil {
		return fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := newConfig.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	cm.config = newConfig

	for _, watcher := range cm.watchers {
		go watcher(&oldConfig, newConfig)
	}

	return nil
}

// GetConfig returns the current configuration (thread-safe)
func (cm *ConfigManager) GetConfig() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	configCopy := *cm.config
	return &configCopy
}

// ConfigPath returns the file path the manager was loaded from, if any.
func (cm *ConfigManager) ConfigPath() string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.configPath
}

// AddWatcher adds a configuration change watcher
func (cm *ConfigManager) AddWatcher(watcher ConfigWatcher) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.watchers = append(cm.watchers, watcher)
}

// Validate checks cross-field constraints that tags cannot express.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Database.Type != "sqlite" && c.Database.Type != "postgres" {
		return fmt.Errorf("database.type must be sqlite or postgres, got %q", c.Database.Type)
	}
	if c.Media.MaxUploadBytes <= 0 {
		return fmt.Errorf("media.max_upload_bytes must be positive")
	}
	if c.Media.FallbackDuration <= 0 {
		return fmt.Errorf("media.fallback_duration must be positive")
	}
	if c.Storage.Backend != "local" && c.Storage.Backend != "s3" {
		return fmt.Errorf("storage.backend must be local or s3, got %q", c.Storage.Backend)
	}
	if c.Storage.Backend == "s3" && c.Storage.S3Bucket == "" {
		return fmt.Errorf("storage.s3_bucket is required for the s3 backend")
	}
	return nil
}

// EnsureDirectories creates the media directories up front so the first
// upload does not race directory creation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Media.UploadDir, c.Media.ClipDir, c.Media.ThumbnailDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating media directory %s: %w", dir, err)
		}
	}
	if c.Database.Type == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(c.Database.SQLitePath), 0o755); err != nil {
			return fmt.Errorf("creating database directory: %w", err)
		}
	}
	return nil
}

// Helper functions for loading

func loadFromFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, config)
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}
}

func loadStructFromEnv(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Duration(0)) {
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
			return nil
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	default:
		return fmt.Errorf("unsupported field kind: %s", field.Kind())
	}
	return nil
}
