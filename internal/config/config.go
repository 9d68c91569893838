package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names an optional YAML file applied before environment overrides.
const ConfigFileEnv = "SELENEX_CONFIG"

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Chrome    ChromeConfig    `yaml:"chrome"`
	Recorder  RecorderConfig  `yaml:"recorder"`
	Log       LogConfig       `yaml:"log"`
	Retention RetentionConfig `yaml:"retention"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	Host            string        `yaml:"host"`
	Mode            string        `yaml:"mode"`
	ReadTimeout     int           `yaml:"read_timeout"`
	WriteTimeout    int           `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver"` // mysql or sqlite
	Host         string `yaml:"host"`
	Port         string `yaml:"port"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	Charset      string `yaml:"charset"`
	Path         string `yaml:"path"` // sqlite file
	MaxIdleConns int    `yaml:"max_idle_conns"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

type JWTConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Secret     string `yaml:"secret"`
	ExpireTime int    `yaml:"expire_time"` // seconds
}

type ChromeConfig struct {
	Path        string        `yaml:"path"`
	Headless    bool          `yaml:"headless"`
	Device      string        `yaml:"device"`
	LoadTimeout time.Duration `yaml:"load_timeout"`
}

type RecorderConfig struct {
	// AncestorLimit bounds element resolution; zero searches to the root.
	AncestorLimit  int           `yaml:"ancestor_limit"`
	MaxParentDepth int           `yaml:"max_parent_depth"`
	MaxTextChars   int           `yaml:"max_text_chars"`
	MaxLandmarks   int           `yaml:"max_landmarks"`
	ScrollWindow   time.Duration `yaml:"scroll_window"`
	Keys           []string      `yaml:"keys"`
	QueueSize      int           `yaml:"queue_size"`
	OutputDir      string        `yaml:"output_dir"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

type RetentionConfig struct {
	Enabled            bool          `yaml:"enabled"`
	Schedule           string        `yaml:"schedule"` // cron spec with seconds
	MaxAge             time.Duration `yaml:"max_age"`
	ReapAfter          time.Duration `yaml:"reap_after"`
	StatusSyncInterval time.Duration `yaml:"status_sync_interval"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Host:            "0.0.0.0",
			Mode:            "debug",
			ReadTimeout:     30,
			WriteTimeout:    30,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:       "sqlite",
			Host:         "127.0.0.1",
			Port:         "3306",
			Username:     "root",
			Password:     "root",
			Database:     "selenex",
			Charset:      "utf8mb4",
			Path:         "selenex.db",
			MaxIdleConns: 10,
			MaxOpenConns: 100,
		},
		JWT: JWTConfig{
			Enabled:    false,
			Secret:     "selenex-secret-key",
			ExpireTime: 24 * 3600,
		},
		Chrome: ChromeConfig{
			Headless:    false,
			Device:      "Desktop 1920x1080",
			LoadTimeout: 30 * time.Second,
		},
		Recorder: RecorderConfig{
			AncestorLimit:  0,
			MaxParentDepth: 5,
			MaxTextChars:   5000,
			MaxLandmarks:   10,
			ScrollWindow:   500 * time.Millisecond,
			Keys:           []string{"Enter", "Escape", "Tab"},
			QueueSize:      1024,
			OutputDir:      ".",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Retention: RetentionConfig{
			Enabled:            true,
			Schedule:           "0 0 3 * * *",
			MaxAge:             30 * 24 * time.Hour,
			ReapAfter:          time.Hour,
			StatusSyncInterval: 30 * time.Second,
		},
	}
}

// LoadConfig builds the configuration from defaults, the optional YAML file named by
// SELENEX_CONFIG, then environment variables, and validates the result.
func LoadConfig() (*Config, error) {
	config := defaults()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := config.loadFile(path); err != nil {
			return nil, err
		}
	}
	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("SERVER_PORT", c.Server.Port)
	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Server.Mode = getEnv("SERVER_MODE", c.Server.Mode)
	c.Server.ReadTimeout = getEnvAsInt("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvAsInt("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.ShutdownTimeout = getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnv("DB_PORT", c.Database.Port)
	c.Database.Username = getEnv("DB_USERNAME", c.Database.Username)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Database = getEnv("DB_NAME", c.Database.Database)
	c.Database.Charset = getEnv("DB_CHARSET", c.Database.Charset)
	c.Database.Path = getEnv("DB_PATH", c.Database.Path)
	c.Database.MaxIdleConns = getEnvAsInt("DB_MAX_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Database.MaxOpenConns = getEnvAsInt("DB_MAX_OPEN_CONNS", c.Database.MaxOpenConns)

	c.JWT.Enabled = getEnvAsBool("JWT_ENABLED", c.JWT.Enabled)
	c.JWT.Secret = getEnv("JWT_SECRET", c.JWT.Secret)
	c.JWT.ExpireTime = getEnvAsInt("JWT_EXPIRE_TIME", c.JWT.ExpireTime)

	c.Chrome.Path = getEnv("CHROME_PATH", c.Chrome.Path)
	c.Chrome.Headless = getEnvAsBool("CHROME_HEADLESS", c.Chrome.Headless)
	c.Chrome.Device = getEnv("CHROME_DEVICE", c.Chrome.Device)
	c.Chrome.LoadTimeout = getEnvAsDuration("CHROME_LOAD_TIMEOUT", c.Chrome.LoadTimeout)

	c.Recorder.AncestorLimit = getEnvAsInt("RECORDER_ANCESTOR_LIMIT", c.Recorder.AncestorLimit)
	c.Recorder.MaxParentDepth = getEnvAsInt("RECORDER_MAX_PARENT_DEPTH", c.Recorder.MaxParentDepth)
	c.Recorder.MaxTextChars = getEnvAsInt("RECORDER_MAX_TEXT_CHARS", c.Recorder.MaxTextChars)
	c.Recorder.MaxLandmarks = getEnvAsInt("RECORDER_MAX_LANDMARKS", c.Recorder.MaxLandmarks)
	c.Recorder.ScrollWindow = getEnvAsDuration("RECORDER_SCROLL_WINDOW", c.Recorder.ScrollWindow)
	c.Recorder.Keys = getEnvAsList("RECORDER_KEYS", c.Recorder.Keys)
	c.Recorder.QueueSize = getEnvAsInt("RECORDER_QUEUE_SIZE", c.Recorder.QueueSize)
	c.Recorder.OutputDir = getEnv("RECORDER_OUTPUT_DIR", c.Recorder.OutputDir)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	c.Retention.Enabled = getEnvAsBool("RETENTION_ENABLED", c.Retention.Enabled)
	c.Retention.Schedule = getEnv("RETENTION_SCHEDULE", c.Retention.Schedule)
	c.Retention.MaxAge = getEnvAsDuration("RETENTION_MAX_AGE", c.Retention.MaxAge)
	c.Retention.ReapAfter = getEnvAsDuration("RETENTION_REAP_AFTER", c.Retention.ReapAfter)
	c.Retention.StatusSyncInterval = getEnvAsDuration("STATUS_SYNC_INTERVAL", c.Retention.StatusSyncInterval)
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
	}
	if c.Recorder.AncestorLimit < 0 {
		errs = append(errs, errors.New("recorder ancestor limit must not be negative"))
	}
	if c.Recorder.MaxParentDepth <= 0 {
		errs = append(errs, errors.New("recorder max parent depth must be positive"))
	}
	if c.Recorder.MaxTextChars <= 0 {
		errs = append(errs, errors.New("recorder max text chars must be positive"))
	}
	if c.Recorder.MaxLandmarks <= 0 {
		errs = append(errs, errors.New("recorder max landmarks must be positive"))
	}
	if c.Recorder.ScrollWindow <= 0 {
		errs = append(errs, errors.New("recorder scroll window must be positive"))
	}
	if len(c.Recorder.Keys) == 0 {
		errs = append(errs, errors.New("recorder keys must not be empty"))
	}
	if c.JWT.Enabled && c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt secret is required when jwt is enabled"))
	}
	if c.JWT.ExpireTime <= 0 {
		errs = append(errs, errors.New("jwt expire time must be positive"))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	if c.Retention.Enabled && c.Retention.MaxAge <= 0 {
		errs = append(errs, errors.New("retention max age must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// GetDSN returns the MySQL DSN, or the database file path for sqlite.
func (c *Config) GetDSN() string {
	if c.Database.Driver == "sqlite" {
		return c.Database.Path
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=%s&parseTime=True&loc=Local",
		c.Database.Username,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.Charset,
	)
}

func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
