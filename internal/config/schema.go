// Package config defines the configuration schema for friday.
//
// The file is YAML by default (~/.friday/config.yaml). Paths ending in .json
// are read and written as JSON; both formats use the same camelCase keys.
package config

import (
	"github.com/crystaldolphin/friday/internal/schema"
)

// Storage drivers accepted by StorageConfig.Driver.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// ProviderConfig selects the model backend. Empty fields fall back to the
// provider registry defaults.
type ProviderConfig struct {
	Name           string            `yaml:"name" json:"name"`
	BaseEndpoint   string            `yaml:"baseEndpoint,omitempty" json:"baseEndpoint,omitempty"`
	ChatCompletion string            `yaml:"chatCompletion,omitempty" json:"chatCompletion,omitempty"`
	Model          string            `yaml:"model" json:"model"`
	APIKey         string            `yaml:"apiKey,omitempty" json:"apiKey,omitempty"`
	TimeoutSeconds int               `yaml:"timeoutSeconds" json:"timeoutSeconds"`
	ExtraHeaders   map[string]string `yaml:"extraHeaders,omitempty" json:"extraHeaders,omitempty"`
}

func defaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Name:           "ollama",
		Model:          "llama3.2",
		TimeoutSeconds: 120,
	}
}

// MemoryConfig selects the conversation store and its limits.
type MemoryConfig struct {
	Backend             string `yaml:"backend" json:"backend"`
	MaxContextMessages  int    `yaml:"maxContextMessages" json:"maxContextMessages"`
	MaxTokensPerMessage int    `yaml:"maxTokensPerMessage" json:"maxTokensPerMessage"`
	// SystemPrompt overrides the built-in decision prompt when set.
	SystemPrompt string `yaml:"systemPrompt,omitempty" json:"systemPrompt,omitempty"`
	UserID       string `yaml:"userId,omitempty" json:"userId,omitempty"`
}

func defaultMemoryConfig() MemoryConfig {
	l := schema.DefaultLimits()
	return MemoryConfig{
		Backend:             "transient",
		MaxContextMessages:  l.MaxContextMessages,
		MaxTokensPerMessage: l.MaxTokensPerMessage,
	}
}

// Limits returns the configured store limits.
func (m MemoryConfig) Limits() schema.Limits {
	return schema.Limits{
		MaxContextMessages:  m.MaxContextMessages,
		MaxTokensPerMessage: m.MaxTokensPerMessage,
	}
}

// StorageConfig locates session persistence for the durable and hybrid
// backends.
type StorageConfig struct {
	Driver        string `yaml:"driver" json:"driver"`
	Path          string `yaml:"path" json:"path"`
	PoolSize      int    `yaml:"poolSize" json:"poolSize"`
	MongoURI      string `yaml:"mongoUri,omitempty" json:"mongoUri,omitempty"`
	MongoDatabase string `yaml:"mongoDatabase,omitempty" json:"mongoDatabase,omitempty"`
}

func defaultStorageConfig() StorageConfig {
	return StorageConfig{
		Driver:        DriverSQLite,
		Path:          "~/.friday/friday.db",
		PoolSize:      4,
		MongoURI:      "mongodb://localhost:27017",
		MongoDatabase: "friday",
	}
}

// AnalysisConfig controls file lookup and analysis.
type AnalysisConfig struct {
	Root         string `yaml:"root" json:"root"`
	MaxFileChars int    `yaml:"maxFileChars" json:"maxFileChars"`
}

func defaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{Root: ".", MaxFileChars: 32000}
}

// LoggingConfig controls the log level and the directory of daily log files.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	Dir   string `yaml:"dir" json:"dir"`
}

func defaultLoggingConfig() LoggingConfig {
	return LoggingConfig{Level: "info", Dir: "~/.friday/logs"}
}

// Config is the root configuration object.
type Config struct {
	Provider ProviderConfig `yaml:"provider" json:"provider"`
	Memory   MemoryConfig   `yaml:"memory" json:"memory"`
	Storage  StorageConfig  `yaml:"storage" json:"storage"`
	Analysis AnalysisConfig `yaml:"analysis" json:"analysis"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() Config {
	return Config{
		Provider: defaultProviderConfig(),
		Memory:   defaultMemoryConfig(),
		Storage:  defaultStorageConfig(),
		Analysis: defaultAnalysisConfig(),
		Logging:  defaultLoggingConfig(),
	}
}

// StoragePath returns the expanded SQLite database path.
func (c *Config) StoragePath() string {
	p := c.Storage.Path
	if p == "" {
		p = defaultStorageConfig().Path
	}
	return ExpandHome(p)
}

// LogDir returns the expanded log directory.
func (c *Config) LogDir() string {
	d := c.Logging.Dir
	if d == "" {
		d = defaultLoggingConfig().Dir
	}
	return ExpandHome(d)
}

// AnalysisRoot returns the expanded directory searched for files.
func (c *Config) AnalysisRoot() string {
	r := c.Analysis.Root
	if r == "" {
		r = "."
	}
	return ExpandHome(r)
}
