package providers

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ConfigCache holds per-provider configuration: built-in defaults overlaid
// with <dir>/<provider>.yml when present.
type ConfigCache struct {
	providersDir string
	defaults     map[string]*Config
	cache        map[string]*Config
	mu           sync.RWMutex
}

func NewConfigCache(providersDir string, defaults map[string]*Config) *ConfigCache {
	return &ConfigCache{
		providersDir: providersDir,
		defaults:     defaults,
		cache:        make(map[string]*Config),
	}
}

func (cc *ConfigCache) Run() error {
	for _, name := range sortedIDs(cc.defaults) {
		config, err := cc.LoadConfig(name)
		if err != nil {
			return fmt.Errorf("error loading provider %s: %w", name, err)
		}
		slog.Debug("Provider configuration loaded", "provider", name, "enabled", config.Settings.Enabled, "url", config.URL)
	}

	if cc.providersDir == "" {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.providersDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}
	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".yml")
		if _, known := cc.defaults[name]; !known {
			slog.Warn("Ignoring configuration for unknown provider", "file", file)
		}
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(name string) (*Config, error) {
	base, ok := cc.defaults[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider '%s'", name)
	}

	config := base.clone()
	config.Name = name

	if cc.providersDir != "" {
		configFile := cc.getConfigFilePath(name)
		data, err := os.ReadFile(configFile)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &config); err != nil {
				return nil, fmt.Errorf("failed to parse YAML %s: %w", configFile, err)
			}
			config.Name = name
		}
	}

	if config.Settings.Timeout == 0 {
		config.Settings.Timeout = 30
	}

	if err := cc.validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config for %s: %w", name, err)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[name] = &config

	return &config, nil
}

func (cc *ConfigCache) GetConfig(name string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	config, ok := cc.cache[name]
	if !ok {
		return nil, fmt.Errorf("provider config with name '%s' not found", name)
	}
	return config, nil
}

func (cc *ConfigCache) GetConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configsCopy := make(map[string]*Config, len(cc.cache))
	for k, v := range cc.cache {
		configsCopy[k] = v
	}
	return configsCopy
}

func (cc *ConfigCache) GetEnabledConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	enabledConfigs := make(map[string]*Config)
	for k, v := range cc.cache {
		if v.Settings.Enabled {
			enabledConfigs[k] = v
		}
	}
	return enabledConfigs
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

// configFor falls back to built-in defaults for providers never loaded.
func (cc *ConfigCache) configFor(name string) *Config {
	if cc != nil {
		if config, err := cc.GetConfig(name); err == nil {
			return config
		}
		if base, ok := cc.defaults[name]; ok {
			config := base.clone()
			return &config
		}
	}
	if base, ok := DefaultConfigs()[name]; ok {
		return base
	}
	return &Config{Name: name}
}

func (cc *ConfigCache) validateConfig(config *Config) error {
	if config.URL == "" {
		return fmt.Errorf("provider URL is required")
	}
	if config.Settings.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}
	if err := config.Categories.Validate(); err != nil {
		return err
	}
	for i, keyword := range config.ExcludeKeywords {
		if strings.TrimSpace(keyword) == "" {
			return fmt.Errorf("exclude keyword at index %d is empty", i)
		}
	}
	return nil
}

func (cc *ConfigCache) getConfigFilePath(name string) string {
	return filepath.Join(cc.providersDir, name+".yml")
}
