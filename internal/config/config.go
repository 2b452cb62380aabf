package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"journalmate/internal/registry"
)

// Config models journalmate.yml.
type Config struct {
	Service struct {
		Name          string `yaml:"name"`
		DefaultDomain string `yaml:"default_domain"`
	} `yaml:"service"`
	Planner struct {
		Mode                  string `yaml:"mode"`
		MaxGenerationAttempts int    `yaml:"max_generation_attempts"`
	} `yaml:"planner"`
	Generator struct {
		Endpoint       string `yaml:"endpoint"`
		Model          string `yaml:"model"`
		APIKeyEnv      string `yaml:"api_key_env"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"generator"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Events         []string `yaml:"events"`
	Secret         string   `yaml:"secret"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Enabled        *bool    `yaml:"enabled"`
}

// GeneratorAPIKey resolves the generator credential from the configured
// environment variable. Empty when unset.
func (c *Config) GeneratorAPIKey() string {
	if c.Generator.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Generator.APIKeyEnv)
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; import with jm config import --file <path>", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Service.Name == "" {
		return fmt.Errorf("config.service.name is required")
	}
	if c.Service.DefaultDomain != "" {
		if known := registry.ParseDomain(c.Service.DefaultDomain); string(known) != c.Service.DefaultDomain {
			return fmt.Errorf("config.service.default_domain %q is not a known domain", c.Service.DefaultDomain)
		}
	}
	switch c.Planner.Mode {
	case "", "quick", "smart":
	default:
		return fmt.Errorf("config.planner.mode must be quick or smart")
	}
	if c.Planner.MaxGenerationAttempts < 0 || c.Planner.MaxGenerationAttempts > 5 {
		return fmt.Errorf("config.planner.max_generation_attempts must be between 0 and 5")
	}
	if c.Generator.TimeoutSeconds < 0 {
		return fmt.Errorf("config.generator.timeout_seconds must not be negative")
	}
	for i, hook := range c.Webhooks {
		if hook.URL == "" {
			return fmt.Errorf("config.webhooks[%d].url is required", i)
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "journalmate.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(serviceName string) string {
	return fmt.Sprintf(defaultTemplate, serviceName)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct for a service.
func Default(serviceName string) *Config {
	var cfg Config
	cfg.Service.Name = serviceName
	_ = yaml.NewDecoder(bytes.NewBufferString(fmt.Sprintf(defaultTemplate, serviceName))).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `service:
  name: %s
  default_domain: travel

planner:
  mode: smart
  max_generation_attempts: 2

generator:
  endpoint: ""
  model: journalmate-planner
  api_key_env: JOURNALMATE_GENERATOR_KEY
  timeout_seconds: 30
`
