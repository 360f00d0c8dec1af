package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/copyforge/copyforge/internal/providers"
)

// EnvPrefix prefixes environment overrides, e.g. COPYFORGE_SERVER_PORT.
const EnvPrefix = "COPYFORGE"

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	v         *viper.Viper
	logger    *slog.Logger
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)

	// applied is the file content behind config, for skipping no-op reloads.
	applied []byte
}

// NewManager creates a new config manager and loads initial config.
// An empty cfgFile searches ./config.yaml and ~/.copyforge/config.yaml;
// a missing file leaves the defaults in place.
func NewManager(cfgFile string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cm := &Manager{
		v:         viper.New(),
		logger:    logger,
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
	v := cm.v
	configure(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.copyforge")
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		cm.logger.Debug("no config file found, using defaults")
	} else {
		cm.logger.Debug("loaded config file", "path", v.ConfigFileUsed())
		if data, err := os.ReadFile(v.ConfigFileUsed()); err == nil {
			cm.applied = data
		}
	}

	return nil
}

// configure registers defaults and environment overrides on v.
func configure(v *viper.Viper) {
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// load parses and validates the current viper state.
func (cm *Manager) load() (*Config, error) {
	cfg, err := decode(cm.v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// ConfigFileUsed returns the path of the loaded config file, if any.
func (cm *Manager) ConfigFileUsed() string {
	return cm.v.ConfigFileUsed()
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
// A reload that fails validation is logged and the previous config kept.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cm.reload(e.Name)
	})
	cm.v.WatchConfig()
}

// reload reads path into a fresh viper and applies it if it validates.
// Editors and os.WriteFile truncate before writing, so an empty file is
// treated as a write in progress and skipped; the next event carries the
// content.
func (cm *Manager) reload(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		cm.logger.Debug("config reload skipped", "file", path, "error", err)
		return
	}
	if len(bytes.TrimSpace(data)) == 0 {
		cm.logger.Debug("config reload skipped, file is empty", "file", path)
		return
	}

	cm.mu.RLock()
	unchanged := bytes.Equal(data, cm.applied)
	cm.mu.RUnlock()
	if unchanged {
		return
	}

	cfg, err := parse(path, data)
	if err != nil {
		cm.logger.Warn("config reload rejected", "file", path, "error", err)
		return
	}

	cm.mu.Lock()
	cm.config = cfg
	cm.applied = data
	callbacks := make([]func(*Config), len(cm.callbacks))
	copy(callbacks, cm.callbacks)
	cm.mu.Unlock()

	cm.logger.Info("config reloaded", "file", path)
	for _, fn := range callbacks {
		fn(cfg)
	}
}

// parse decodes and validates config file content on top of the defaults.
func parse(path string, data []byte) (*Config, error) {
	v := viper.New()
	configure(v)
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		ext = "yaml"
	}
	v.SetConfigType(ext)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envVarPattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// ToProviderRegistryConfig converts the config to a format suitable for providers.Registry.
// It resolves all ${ENV_VAR} references in API keys.
func (c *Config) ToProviderRegistryConfig() providers.RegistryConfig {
	cfg := providers.RegistryConfig{
		LLMProviders: make(map[string]providers.LLMProviderConfig),
	}

	for name, llm := range c.LLMProviders {
		cfg.LLMProviders[name] = providers.LLMProviderConfig{
			Type:      llm.Type,
			Model:     llm.Model,
			APIKey:    ResolveEnvVars(llm.APIKey),
			BaseURL:   llm.BaseURL,
			RateLimit: llm.RateLimit,
			Enabled:   llm.Enabled,
		}
	}

	return cfg
}

// DefaultTree returns the defaults as a nested map keyed like the YAML file.
func DefaultTree() map[string]any {
	root := make(map[string]any)
	for _, entry := range DefaultEntries() {
		parts := strings.Split(entry.Key, ".")
		node := root
		for _, p := range parts[:len(parts)-1] {
			child, ok := node[p].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[p] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = entry.Value
	}
	return root
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(DefaultTree())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# copyforge configuration
# API keys use ${ENV_VAR} syntax to reference environment variables
# Set these in your shell: export GEMINI_API_KEY=xxx OPENAI_API_KEY=xxx OPENROUTER_API_KEY=xxx
# Any key can be overridden with COPYFORGE_<SECTION>_<KEY>, e.g. COPYFORGE_SERVER_PORT=9090

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
