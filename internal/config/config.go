package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the main configuration structure
type Config struct {
	InputDirectory  string           `mapstructure:"input_directory" validate:"required"`
	OutputDirectory *string          `mapstructure:"output_directory"`
	Recursive       bool             `mapstructure:"recursive"`
	Processing      ProcessingConfig `mapstructure:"processing"`
	Optimizer       OptimizerConfig  `mapstructure:"optimizer"`
	Logging         LoggingConfig    `mapstructure:"logging"`
}

// ProcessingConfig contains file processing settings
type ProcessingConfig struct {
	DryRun         bool `mapstructure:"dry_run"`
	CreateBackups  bool `mapstructure:"create_backups"`
	VerifyDecode   bool `mapstructure:"verify_decode"`
	MaxFilesPerRun int  `mapstructure:"max_files_per_run"`
}

// OptimizerConfig contains external PNG recompressor settings
type OptimizerConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Command        string   `mapstructure:"command"`
	ExtraArgs      []string `mapstructure:"extra_args"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
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
		InputDirectory: ".",
		Recursive:      true,
		Processing: ProcessingConfig{
			DryRun:         false,
			CreateBackups:  false,
			VerifyDecode:   true,
			MaxFilesPerRun: 0, // 0 means no limit
		},
		Optimizer: OptimizerConfig{
			Enabled:        false,
			Command:        "zopflipng",
			ExtraArgs:      []string{"--iterations=15", "-my"},
			TimeoutSeconds: 60,
		},
		Logging: LoggingConfig{
			Level:      "info",
			FilePath:   "metazap.log",
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
		viper.AddConfigPath("$HOME/.metazap")
		viper.AddConfigPath("/etc/metazap")
	}

	// Enable environment variable support
	viper.SetEnvPrefix("METAZAP")
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
	if c.InputDirectory == "" {
		return fmt.Errorf("input_directory is required")
	}

	if c.Optimizer.Command == "" {
		c.Optimizer.Command = "zopflipng"
	}
	if c.Optimizer.TimeoutSeconds <= 0 {
		c.Optimizer.TimeoutSeconds = 60
	}

	if c.Processing.MaxFilesPerRun < 0 {
		c.Processing.MaxFilesPerRun = 0
	}

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

// ValidateInput checks that the input directory exists and is a
// directory. This is the only fatal precondition of a run.
func (c *Config) ValidateInput() error {
	if !isValidDir(c.InputDirectory) {
		return fmt.Errorf("input directory does not exist or is not a directory: %s", c.InputDirectory)
	}
	return nil
}

// GetOutputDirectory returns the output directory, or an empty string
// for in-place mode.
func (c *Config) GetOutputDirectory() string {
	if c.OutputDirectory != nil {
		return *c.OutputDirectory
	}
	return ""
}

// IsInPlace returns true if files are overwritten in place
func (c *Config) IsInPlace() bool {
	return c.OutputDirectory == nil || *c.OutputDirectory == "" ||
		*c.OutputDirectory == c.InputDirectory
}

// OptimizerTimeout returns the recompressor execution timeout.
func (c *Config) OptimizerTimeout() time.Duration {
	return time.Duration(c.Optimizer.TimeoutSeconds) * time.Second
}

// Helper functions

func isValidDir(path string) bool {
	if path == "" {
		return false
	}

	expandedPath := os.ExpandEnv(path)
	if strings.HasPrefix(expandedPath, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return false
		}
		expandedPath = filepath.Join(home, expandedPath[1:])
	}

	stat, err := os.Stat(expandedPath)
	return err == nil && stat.IsDir()
}
