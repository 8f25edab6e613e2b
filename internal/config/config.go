package config

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Data      DataConfig      `yaml:"data" envconfig:"DATA"`
	Cleansing CleansingConfig `yaml:"cleansing" envconfig:"CLEANSING"`
	Forecast  ForecastConfig  `yaml:"forecast" envconfig:"FORECAST"`
	Scheduler SchedulerConfig `yaml:"scheduler" envconfig:"SCHEDULER"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	AllowedOrigins  []string      `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" default:"100"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"omitempty,oneof=debug info warn error"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"both" validate:"omitempty,oneof=stdout file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// DataConfig describes where raw consumer spreadsheets live and how to read them.
type DataConfig struct {
	InputDir         string   `yaml:"input_dir" envconfig:"INPUT_DIR" default:"data/raw"`
	FilePatterns     []string `yaml:"file_patterns" envconfig:"FILE_PATTERNS" default:"*.xlsx,*.csv"`
	TimestampFormats []string `yaml:"timestamp_formats" envconfig:"TIMESTAMP_FORMATS"`
}

// CleansingConfig tunes missing-value handling and outlier detection.
type CleansingConfig struct {
	ZScoreThreshold float64 `yaml:"zscore_threshold" envconfig:"ZSCORE_THRESHOLD" default:"3.0"`
	IQRMultiplier   float64 `yaml:"iqr_multiplier" envconfig:"IQR_MULTIPLIER" default:"1.5"`
	MaxGap          int     `yaml:"max_gap" envconfig:"MAX_GAP" default:"3"`
}

// ForecastConfig tunes the demand forecaster.
type ForecastConfig struct {
	HorizonDays    int     `yaml:"horizon_days" envconfig:"HORIZON_DAYS" default:"7"`
	SeasonalPeriod int     `yaml:"seasonal_period" envconfig:"SEASONAL_PERIOD" default:"7" validate:"omitempty,min=1,max=366"`
	Confidence     float64 `yaml:"confidence" envconfig:"CONFIDENCE" default:"0.80"`
}

// SchedulerConfig controls the optional periodic pipeline refresh.
// An empty cron expression disables scheduling.
type SchedulerConfig struct {
	RefreshCron string `yaml:"refresh_cron" envconfig:"REFRESH_CRON"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR" default:"reports"`
	WebDir     string `yaml:"web_dir" envconfig:"WEB_DIR" default:"web"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// Load loads configuration from environment variables and config file.
// Environment variables take precedence over the YAML file, which in turn
// takes precedence over the built-in defaults.
func Load() (*Config, error) {
	var envCfg Config

	if err := envconfig.Process("ENERGYLENS", &envCfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	cfg := envCfg
	configFile := getConfigFilePath()
	if configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, envCfg)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs layers file values over the built-in defaults and env values
// over both. envconfig.Process fills every defaulted field whether or not the
// variable was set, so an env value only wins when it differs from the
// default baseline.
func mergeConfigs(fileConfig, envConfig Config) Config {
	def := envconfigDefaults()
	out := envConfig

	out.Server.Port = pick(envConfig.Server.Port, fileConfig.Server.Port, def.Server.Port)
	out.Server.ReadTimeout = pick(envConfig.Server.ReadTimeout, fileConfig.Server.ReadTimeout, def.Server.ReadTimeout)
	out.Server.WriteTimeout = pick(envConfig.Server.WriteTimeout, fileConfig.Server.WriteTimeout, def.Server.WriteTimeout)
	out.Server.IdleTimeout = pick(envConfig.Server.IdleTimeout, fileConfig.Server.IdleTimeout, def.Server.IdleTimeout)
	out.Server.ShutdownTimeout = pick(envConfig.Server.ShutdownTimeout, fileConfig.Server.ShutdownTimeout, def.Server.ShutdownTimeout)
	out.Server.AllowedOrigins = pickList(envConfig.Server.AllowedOrigins, fileConfig.Server.AllowedOrigins, def.Server.AllowedOrigins)
	out.Server.RateLimitRPS = pick(envConfig.Server.RateLimitRPS, fileConfig.Server.RateLimitRPS, def.Server.RateLimitRPS)
	out.Server.RateLimitBurst = pick(envConfig.Server.RateLimitBurst, fileConfig.Server.RateLimitBurst, def.Server.RateLimitBurst)

	out.Logging.Level = pick(envConfig.Logging.Level, fileConfig.Logging.Level, def.Logging.Level)
	out.Logging.Format = pick(envConfig.Logging.Format, fileConfig.Logging.Format, def.Logging.Format)
	out.Logging.Output = pick(envConfig.Logging.Output, fileConfig.Logging.Output, def.Logging.Output)
	out.Logging.FilePath = pick(envConfig.Logging.FilePath, fileConfig.Logging.FilePath, def.Logging.FilePath)

	out.Data.InputDir = pick(envConfig.Data.InputDir, fileConfig.Data.InputDir, def.Data.InputDir)
	out.Data.FilePatterns = pickList(envConfig.Data.FilePatterns, fileConfig.Data.FilePatterns, def.Data.FilePatterns)
	out.Data.TimestampFormats = pickList(envConfig.Data.TimestampFormats, fileConfig.Data.TimestampFormats, def.Data.TimestampFormats)

	out.Cleansing.ZScoreThreshold = pick(envConfig.Cleansing.ZScoreThreshold, fileConfig.Cleansing.ZScoreThreshold, def.Cleansing.ZScoreThreshold)
	out.Cleansing.IQRMultiplier = pick(envConfig.Cleansing.IQRMultiplier, fileConfig.Cleansing.IQRMultiplier, def.Cleansing.IQRMultiplier)
	out.Cleansing.MaxGap = pick(envConfig.Cleansing.MaxGap, fileConfig.Cleansing.MaxGap, def.Cleansing.MaxGap)

	out.Forecast.HorizonDays = pick(envConfig.Forecast.HorizonDays, fileConfig.Forecast.HorizonDays, def.Forecast.HorizonDays)
	out.Forecast.SeasonalPeriod = pick(envConfig.Forecast.SeasonalPeriod, fileConfig.Forecast.SeasonalPeriod, def.Forecast.SeasonalPeriod)
	out.Forecast.Confidence = pick(envConfig.Forecast.Confidence, fileConfig.Forecast.Confidence, def.Forecast.Confidence)

	out.Scheduler.RefreshCron = pick(envConfig.Scheduler.RefreshCron, fileConfig.Scheduler.RefreshCron, def.Scheduler.RefreshCron)

	out.WebSocket.ReadBufferSize = pick(envConfig.WebSocket.ReadBufferSize, fileConfig.WebSocket.ReadBufferSize, def.WebSocket.ReadBufferSize)
	out.WebSocket.WriteBufferSize = pick(envConfig.WebSocket.WriteBufferSize, fileConfig.WebSocket.WriteBufferSize, def.WebSocket.WriteBufferSize)
	out.WebSocket.PingPeriod = pick(envConfig.WebSocket.PingPeriod, fileConfig.WebSocket.PingPeriod, def.WebSocket.PingPeriod)
	out.WebSocket.PongWait = pick(envConfig.WebSocket.PongWait, fileConfig.WebSocket.PongWait, def.WebSocket.PongWait)

	out.Paths.DataDir = pick(envConfig.Paths.DataDir, fileConfig.Paths.DataDir, def.Paths.DataDir)
	out.Paths.ReportsDir = pick(envConfig.Paths.ReportsDir, fileConfig.Paths.ReportsDir, def.Paths.ReportsDir)
	out.Paths.WebDir = pick(envConfig.Paths.WebDir, fileConfig.Paths.WebDir, def.Paths.WebDir)
	out.Paths.LogsDir = pick(envConfig.Paths.LogsDir, fileConfig.Paths.LogsDir, def.Paths.LogsDir)

	return out
}

// pick resolves one field: env wins when the variable was actually set
// (its value differs from the default), then a non-zero file value, then
// whatever envconfig produced.
func pick[T comparable](env, file, def T) T {
	var zero T
	if env != def {
		return env
	}
	if file != zero {
		return file
	}
	return env
}

func pickList(env, file, def []string) []string {
	if !slices.Equal(env, def) {
		return env
	}
	if len(file) > 0 {
		return file
	}
	return env
}

// applyDefaults fills in values envconfig defaults cannot express.
func (c *Config) applyDefaults() {
	if len(c.Data.TimestampFormats) == 0 {
		c.Data.TimestampFormats = []string{
			"2006-01-02 15:04:05",
			"2006-01-02T15:04:05",
			"2006-01-02 15:04",
			"2006-01-02",
			"02/01/2006 15:04",
			"01/02/2006 15:04",
		}
	}
	if len(c.Data.FilePatterns) == 0 {
		c.Data.FilePatterns = []string{"*.xlsx", "*.csv"}
	}
}

// validate validates the configuration
func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Cleansing.ZScoreThreshold <= 0 {
		return fmt.Errorf("zscore threshold must be positive, got %f", c.Cleansing.ZScoreThreshold)
	}

	if c.Cleansing.IQRMultiplier <= 0 {
		return fmt.Errorf("iqr multiplier must be positive, got %f", c.Cleansing.IQRMultiplier)
	}

	if c.Forecast.HorizonDays <= 0 {
		return fmt.Errorf("forecast horizon must be positive, got %d", c.Forecast.HorizonDays)
	}

	if c.Forecast.Confidence <= 0 || c.Forecast.Confidence >= 1 {
		return fmt.Errorf("forecast confidence must be in (0, 1), got %f", c.Forecast.Confidence)
	}

	if c.Logging.Format != "json" {
		// Structured logs only; the dashboard log viewer expects JSON.
		c.Logging.Format = "json"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// envconfigDefaults mirrors the default tags on the Config struct. Fields
// without a default tag stay zero.
func envconfigDefaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			AllowedOrigins:  []string{"http://localhost:8080"},
			RateLimitRPS:    100,
			RateLimitBurst:  50,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "both",
			FilePath: "logs/app.log",
		},
		Data: DataConfig{
			InputDir:     "data/raw",
			FilePatterns: []string{"*.xlsx", "*.csv"},
		},
		Cleansing: CleansingConfig{
			ZScoreThreshold: 3.0,
			IQRMultiplier:   1.5,
			MaxGap:          3,
		},
		Forecast: ForecastConfig{
			HorizonDays:    7,
			SeasonalPeriod: 7,
			Confidence:     0.80,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
		Paths: PathsConfig{
			DataDir:    "data",
			ReportsDir: "reports",
			WebDir:     "web",
			LogsDir:    "logs",
		},
	}
}

// Default returns default configuration
func Default() *Config {
	cfg := envconfigDefaults()
	cfg.applyDefaults()
	return &cfg
}
