package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/remedy-kit/remedy/internal/constants"
)

// Config represents the main configuration structure
type Config struct {
	// Workspace holds workspace layout configuration
	Workspace WorkspaceConfig `json:"workspace" mapstructure:"workspace" yaml:"workspace"`

	// Persistence holds snapshot and journal configuration
	Persistence PersistenceConfig `json:"persistence" mapstructure:"persistence" yaml:"persistence"`

	// Performance holds batch execution configuration
	Performance PerformanceConfig `json:"performance" mapstructure:"performance" yaml:"performance"`

	// Logging holds log destination configuration
	Logging LoggingConfig `json:"logging" mapstructure:"logging" yaml:"logging"`

	// Output holds output formatting configuration
	Output OutputConfig `json:"output" mapstructure:"output" yaml:"output"`
}

// WorkspaceConfig holds the workspace layout
type WorkspaceConfig struct {
	// Root is the workspace directory all analyzed paths must fall inside
	Root string `json:"root" mapstructure:"root" yaml:"root"`

	// StateDir is the engine state directory, relative to the root
	StateDir string `json:"state_dir" mapstructure:"state_dir" yaml:"state_dir"`
}

// PersistenceConfig holds snapshot and journal settings
type PersistenceConfig struct {
	// Retain is how many snapshots of each kind to keep
	Retain int `json:"retain" mapstructure:"retain" yaml:"retain"`

	// Compress writes snapshots zstd-compressed (.json.zst)
	Compress bool `json:"compress" mapstructure:"compress" yaml:"compress"`

	// Journal records merge runs and change events in SQLite
	Journal bool `json:"journal" mapstructure:"journal" yaml:"journal"`
}

// PerformanceConfig holds batch execution settings
type PerformanceConfig struct {
	// MaxConcurrency bounds parallel files in batch apply/discard (0 = auto)
	MaxConcurrency int `json:"max_concurrency" mapstructure:"max_concurrency" yaml:"max_concurrency"`

	// TimeoutSeconds bounds a whole batch operation (0 = default)
	TimeoutSeconds int `json:"timeout_seconds" mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// LoggingConfig holds log destination settings
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `json:"level" mapstructure:"level" yaml:"level"`

	// Format is text or json
	Format string `json:"format" mapstructure:"format" yaml:"format"`

	// ToFile appends logs to <state_dir>/logs/remedy.log instead of stderr
	ToFile bool `json:"to_file" mapstructure:"to_file" yaml:"to_file"`
}

// OutputConfig holds configuration for output formatting
type OutputConfig struct {
	// Format specifies the output format: text, json, yaml
	Format string `json:"format" mapstructure:"format" yaml:"format"`

	// Color controls terminal colors: auto, always, never
	Color string `json:"color" mapstructure:"color" yaml:"color"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Workspace: WorkspaceConfig{
			Root:     ".",
			StateDir: constants.StateDirName,
		},
		Persistence: PersistenceConfig{
			Retain:   constants.DefaultSnapshotRetain,
			Compress: false,
			Journal:  true,
		},
		Performance: PerformanceConfig{
			MaxConcurrency: constants.DefaultMaxConcurrency,
			TimeoutSeconds: constants.DefaultTimeoutSeconds,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			ToFile: false,
		},
		Output: OutputConfig{
			Format: constants.OutputFormatText,
			Color:  "auto",
		},
	}
}

// LoadConfig loads configuration from file or returns default config
func LoadConfig(configPath string) (*Config, error) {
	return LoadConfigWithTarget(configPath, "")
}

// LoadConfigWithTarget loads configuration with target path context.
// If no config path is given, discovery walks up from targetPath.
func LoadConfigWithTarget(configPath string, targetPath string) (*Config, error) {
	if configPath == "" {
		configPath = findDefaultConfig(targetPath)
	}
	return loadConfigFromFile(configPath)
}

// loadConfigFromFile reads and parses a configuration file
func loadConfigFromFile(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	// Create a new viper instance to avoid race conditions
	v := viper.New()
	config := DefaultConfig()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// searchConfigInDirectory searches for configuration files in a specific directory
func searchConfigInDirectory(dir string, candidates []string) string {
	for _, candidate := range candidates {
		path := filepath.Join(dir, candidate)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// findDefaultConfig looks for default configuration files in common locations.
// targetPath is the path being ingested (analysis file or workspace directory).
func findDefaultConfig(targetPath string) string {
	candidates := []string{
		"remedy.yaml",
		"remedy.yml",
		".remedy.yaml",
		".remedy.yml",
		"remedy.json",
		".remedy.json",
	}

	// If targetPath is provided, search from there upward
	if targetPath != "" {
		absPath, err := filepath.Abs(targetPath)
		if err == nil {
			info, err := os.Stat(absPath)
			if err == nil && !info.IsDir() {
				absPath = filepath.Dir(absPath)
			}

			// Search from target directory up to the filesystem root
			volume := filepath.VolumeName(absPath)
			for dir := absPath; ; dir = filepath.Dir(dir) {
				if config := searchConfigInDirectory(dir, candidates); config != "" {
					return config
				}

				parent := filepath.Dir(dir)
				if parent == dir ||
					dir == volume ||
					(volume != "" && dir == volume+string(filepath.Separator)) {
					break
				}
			}
		}
	}

	// Fallback to current directory
	if config := searchConfigInDirectory(".", candidates); config != "" {
		return config
	}

	// Check XDG config directory (Linux/Mac standard)
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		if config := searchConfigInDirectory(filepath.Join(xdgConfig, constants.ToolName), candidates); config != "" {
			return config
		}
	}

	// Check ~/.config/remedy/ (XDG default)
	if home, err := os.UserHomeDir(); err == nil {
		configDir := filepath.Join(home, ".config", constants.ToolName)
		if config := searchConfigInDirectory(configDir, candidates); config != "" {
			return config
		}

		if config := searchConfigInDirectory(home, candidates); config != "" {
			return config
		}
	}

	// Check REMEDY_CONFIG environment variable as fallback
	if envConfig := os.Getenv(constants.EnvVarPrefix + "_CONFIG"); envConfig != "" {
		if _, err := os.Stat(envConfig); err == nil {
			return envConfig
		}
	}

	return ""
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if c.Workspace.StateDir == "" {
		return fmt.Errorf("workspace.state_dir cannot be empty")
	}

	if c.Persistence.Retain < 1 {
		return fmt.Errorf("persistence.retain must be >= 1, got %d", c.Persistence.Retain)
	}

	if c.Performance.MaxConcurrency < 0 {
		return fmt.Errorf("performance.max_concurrency must be >= 0, got %d", c.Performance.MaxConcurrency)
	}

	if c.Performance.TimeoutSeconds < 0 {
		return fmt.Errorf("performance.timeout_seconds must be >= 0, got %d", c.Performance.TimeoutSeconds)
	}

	validFormats := map[string]bool{
		constants.OutputFormatText: true,
		constants.OutputFormatJSON: true,
		constants.OutputFormatYAML: true,
	}
	if !validFormats[c.Output.Format] {
		return fmt.Errorf("invalid output.format '%s', must be one of: text, json, yaml", c.Output.Format)
	}

	validColor := map[string]bool{"auto": true, "always": true, "never": true}
	if !validColor[c.Output.Color] {
		return fmt.Errorf("invalid output.color '%s', must be one of: auto, always, never", c.Output.Color)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging.level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}

	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid logging.format '%s', must be one of: text, json", c.Logging.Format)
	}

	return nil
}

// StateDirPath returns the engine state directory under the workspace root
func (c *Config) StateDirPath() string {
	return filepath.Join(c.Workspace.Root, c.Workspace.StateDir)
}

// SnapshotDirPath returns the snapshot directory
func (c *Config) SnapshotDirPath() string {
	return filepath.Join(c.StateDirPath(), constants.SnapshotDirName)
}

// JournalFilePath returns the SQLite journal location
func (c *Config) JournalFilePath() string {
	return filepath.Join(c.StateDirPath(), constants.JournalFileName)
}

// LogFilePath returns the log file location used when logging.to_file is set
func (c *Config) LogFilePath() string {
	return filepath.Join(c.StateDirPath(), constants.LogDirName, constants.LogFileName)
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *Config, path string) error {
	// Create a new viper instance to avoid race conditions
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("workspace", config.Workspace)
	v.Set("persistence", config.Persistence)
	v.Set("performance", config.Performance)
	v.Set("logging", config.Logging)
	v.Set("output", config.Output)

	return v.WriteConfig()
}
