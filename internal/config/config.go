package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	// MaxUploadBytes is the default upload ceiling (10 MiB).
	MaxUploadBytes = 10 * 1024 * 1024

	// TargetArtifactBytes is the default compressed size target (1 MB).
	TargetArtifactBytes = 1000 * 1000

	// MaxDimensionPx is the default cap for the longer image side.
	MaxDimensionPx = 1920
)

// Config represents the main configuration structure
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Limits      LimitsConfig      `mapstructure:"limits"`
	Compression CompressionConfig `mapstructure:"compression"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig contains web server settings
type ServerConfig struct {
	Port            int    `mapstructure:"port"`
	WebDir          string `mapstructure:"web_dir"`
	ReadTimeoutSec  int    `mapstructure:"read_timeout_sec"`
	WriteTimeoutSec int    `mapstructure:"write_timeout_sec"`
	IdleTimeoutSec  int    `mapstructure:"idle_timeout_sec"`
}

// LimitsConfig contains upload constraints
type LimitsConfig struct {
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
}

// CompressionConfig contains image compression settings
type CompressionConfig struct {
	TargetBytes    int64 `mapstructure:"target_bytes"`
	MaxDimension   int   `mapstructure:"max_dimension"`
	InitialQuality int   `mapstructure:"initial_quality"`
	MinQuality     int   `mapstructure:"min_quality"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			WebDir:          "web",
			ReadTimeoutSec:  30,
			WriteTimeoutSec: 60,
			IdleTimeoutSec:  120,
		},
		Limits: LimitsConfig{
			MaxUploadBytes: MaxUploadBytes,
		},
		Compression: CompressionConfig{
			TargetBytes:    TargetArtifactBytes,
			MaxDimension:   MaxDimensionPx,
			InitialQuality: 85,
			MinQuality:     30,
		},
		Logging: LoggingConfig{
			Level:      "info",
			FilePath:   "image-squeeze.log",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     30,
			Compress:   true,
		},
	}
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		// Look for config file in current directory and home directory
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.image-squeeze")
		viper.AddConfigPath("/etc/image-squeeze")
	}

	// Enable environment variable support
	viper.SetEnvPrefix("IMAGE_SQUEEZE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Try to read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	// Unmarshal config
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate and normalize config
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.WebDir == "" {
		c.Server.WebDir = "web"
	}

	if c.Limits.MaxUploadBytes <= 0 {
		c.Limits.MaxUploadBytes = MaxUploadBytes
	}

	if c.Compression.TargetBytes <= 0 {
		c.Compression.TargetBytes = TargetArtifactBytes
	}
	if c.Compression.MaxDimension <= 0 {
		c.Compression.MaxDimension = MaxDimensionPx
	}
	if c.Compression.InitialQuality <= 0 || c.Compression.InitialQuality > 100 {
		c.Compression.InitialQuality = 85
	}
	if c.Compression.MinQuality <= 0 {
		c.Compression.MinQuality = 30
	}
	if c.Compression.MinQuality > c.Compression.InitialQuality {
		return fmt.Errorf("min_quality (%d) exceeds initial_quality (%d)",
			c.Compression.MinQuality, c.Compression.InitialQuality)
	}

	// Validate logging settings
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	return nil
}
