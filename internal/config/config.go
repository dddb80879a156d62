// Package config loads tool configuration from file, environment, and
// defaults, with hot reloading.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds the runtime tunables.
type Config struct {
	// Model is the description service's chat model.
	Model string `mapstructure:"model" yaml:"model"`

	// OpenAIKey is the description service credential. Supports ${ENV_VAR}
	// references.
	OpenAIKey string `mapstructure:"openai_key" yaml:"openai_key"`

	// Language for generated descriptions.
	Language string `mapstructure:"language" yaml:"language"`

	// DPI is the fixed target resolution for rasterized regions.
	DPI float64 `mapstructure:"dpi" yaml:"dpi"`

	// JPEGQuality for rasterized regions (1-100).
	JPEGQuality int `mapstructure:"jpeg_quality" yaml:"jpeg_quality"`

	// MaxTokens caps text answers from the service.
	MaxTokens int `mapstructure:"max_tokens" yaml:"max_tokens"`

	// RequestTimeout for one service round-trip.
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`

	// RequestsPerMinute paces calls to the service.
	RequestsPerMinute int `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`

	// MaxRetries bounds transport-level retries per call.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`

	// ContextTags is how many sibling tags on each side are harvested into
	// the prompt context. 0 disables surrounding context.
	ContextTags int `mapstructure:"context_tags" yaml:"context_tags"`
}

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a config manager and loads the initial config.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{
		callbacks: make([]func(*Config), 0),
	}

	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// initViper sets up viper with defaults and config file.
func (cm *Manager) initViper(cfgFile string) error {
	defaults := DefaultConfig()
	viper.SetDefault("model", defaults.Model)
	viper.SetDefault("openai_key", defaults.OpenAIKey)
	viper.SetDefault("language", defaults.Language)
	viper.SetDefault("dpi", defaults.DPI)
	viper.SetDefault("jpeg_quality", defaults.JPEGQuality)
	viper.SetDefault("max_tokens", defaults.MaxTokens)
	viper.SetDefault("request_timeout", defaults.RequestTimeout)
	viper.SetDefault("requests_per_minute", defaults.RequestsPerMinute)
	viper.SetDefault("max_retries", defaults.MaxRetries)
	viper.SetDefault("context_tags", defaults.ContextTags)

	// Environment variables with DOCTAG_ prefix
	viper.SetEnvPrefix("DOCTAG")
	viper.AutomaticEnv()

	// Config file
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.doctag")
	}

	// Try to read config file (not required)
	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration.
func (cm *Manager) WatchConfig() {
	viper.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	viper.WatchConfig()
}

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	pattern := regexp.MustCompile(`\$\{([^}]+)\}`)
	return pattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// ResolvedOpenAIKey returns the service credential with env references
// expanded.
func (c *Config) ResolvedOpenAIKey() string {
	return ResolveEnvVars(c.OpenAIKey)
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# doctag configuration
# The API key uses ${ENV_VAR} syntax to reference an environment variable.
# Set it in your shell: export OPENAI_API_KEY=xxx

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
