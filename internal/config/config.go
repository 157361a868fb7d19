// Package config handles loading and hot-reloading configuration.
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
)

// Config is the full paperly configuration.
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Defra     DefraConfig     `mapstructure:"defra"`
	S3        S3Config        `mapstructure:"s3"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Converter ConverterConfig `mapstructure:"converter"`
	Workers   WorkersConfig   `mapstructure:"workers"`
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// DefraConfig configures the DefraDB container and client.
type DefraConfig struct {
	URL           string `mapstructure:"url"`
	ContainerName string `mapstructure:"container_name"`
	Image         string `mapstructure:"image"`
	HostPort      string `mapstructure:"host_port"`
	Managed       bool   `mapstructure:"managed"` // start/stop the container with the server
}

// S3Config configures object storage. Secrets support ${ENV_VAR} expansion.
type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	EndpointURL     string `mapstructure:"endpoint_url"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// OpenAIConfig configures the LLM completion client.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// ConverterConfig configures the external PDF-to-markdown engine.
type ConverterConfig struct {
	// Command is the conversion binary invoked as a subprocess:
	//   <command> <input.pdf> <output-base>
	// It must write <output-base>.md, <output-base>_images/ and
	// <output-base>_metadata.json.
	Command string        `mapstructure:"command"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// WorkersConfig configures the pipeline stage workers.
type WorkersConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	QuizCount    int           `mapstructure:"quiz_count"`
}

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a new config manager and loads initial config.
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
	for k, v := range defaults() {
		viper.SetDefault(k, v)
	}

	// Environment variables with PAPERLY_ prefix
	viper.SetEnvPrefix("PAPERLY")
	viper.AutomaticEnv()

	// Config file
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.paperly")
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

	cfg.S3.AccessKeyID = ResolveEnvVars(cfg.S3.AccessKeyID)
	cfg.S3.SecretAccessKey = ResolveEnvVars(cfg.S3.SecretAccessKey)
	cfg.OpenAI.APIKey = ResolveEnvVars(cfg.OpenAI.APIKey)

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

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
// Unset variables resolve to the empty string.
func ResolveEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}
