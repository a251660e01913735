package internal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider names understood by the gateway factory
var ValidProviders = []string{
	"gemini", "openai", "anthropic", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// Providers that run locally and need no API key
var keylessProviders = []string{"ollama", "llamacpp", "llamafile"}

// Conventional credential variables consulted after gateway.api_key_env
var providerKeyEnv = map[string]string{
	"gemini":    "GEMINI_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"deepseek":  "DEEPSEEK_API_KEY",
	"mistral":   "MISTRAL_API_KEY",
	"groq":      "GROQ_API_KEY",
}

// Config defaults
const (
	DefaultProvider    = "gemini"
	DefaultModel       = "gemini-2.5-flash"
	DefaultAPIKeyEnv   = "API_KEY"
	DefaultTemperature = 0.7
	DefaultTimeout     = 2 * time.Minute
	DefaultLogLevel    = "warn"
)

// Config is the YAML configuration file
type Config struct {
	LogLevel string        `yaml:"log_level"`
	Storage  StorageConfig `yaml:"storage"`
	Gateway  GatewayConfig `yaml:"gateway"`
	Theme    ThemeID       `yaml:"theme"`
}

// StorageConfig selects the key/value backend
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// GatewayConfig selects and configures the LLM provider
type GatewayConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	BaseURL     string        `yaml:"base_url"`
	Temperature *float64      `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the configuration used when no file exists
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// LoadConfig reads path, or returns defaults when the file does not exist
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		LogDebug("No config at %s, using defaults", path)
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadConfigFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadConfigFromReader decodes YAML from r, fills defaults and validates.
// Unknown keys are rejected.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ParseError{Source: "config", Key: "yaml", Err: err}
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills every unset field
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendSQLite
	}
	if c.Gateway.Provider == "" {
		c.Gateway.Provider = DefaultProvider
	}
	if c.Gateway.Model == "" && c.Gateway.Provider == DefaultProvider {
		c.Gateway.Model = DefaultModel
	}
	if c.Gateway.APIKeyEnv == "" {
		c.Gateway.APIKeyEnv = DefaultAPIKeyEnv
	}
	if c.Gateway.Temperature == nil {
		t := DefaultTemperature
		c.Gateway.Temperature = &t
	}
	if c.Gateway.Timeout == 0 {
		c.Gateway.Timeout = DefaultTimeout
	}
}

// Validate returns every problem found, joined
func (c *Config) Validate() error {
	var errs []error

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", c.LogLevel))
	}

	switch strings.ToLower(c.Storage.Backend) {
	case BackendSQLite, BackendBolt, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q is invalid; valid values: sqlite, bolt, memory", c.Storage.Backend))
	}

	if !slices.Contains(ValidProviders, strings.ToLower(c.Gateway.Provider)) {
		errs = append(errs, fmt.Errorf("gateway.provider %q is invalid; valid values: %s", c.Gateway.Provider, strings.Join(ValidProviders, ", ")))
	}
	if t := c.Gateway.Temperature; t != nil && (*t < 0 || *t > 2) {
		errs = append(errs, fmt.Errorf("gateway.temperature %.2f is out of range [0, 2]", *t))
	}
	if c.Gateway.Timeout < 0 {
		errs = append(errs, fmt.Errorf("gateway.timeout %s must not be negative", c.Gateway.Timeout))
	}

	if c.Theme != "" {
		if _, ok := LookupTheme(c.Theme); !ok {
			errs = append(errs, fmt.Errorf("theme %q is invalid", c.Theme))
		}
	}

	return errors.Join(errs...)
}

// TemperatureValue returns the configured sampling temperature
func (g GatewayConfig) TemperatureValue() float64 {
	if g.Temperature == nil {
		return DefaultTemperature
	}
	return *g.Temperature
}

// ResolveAPIKey finds the credential: api_key, then the api_key_env variable,
// then the provider's conventional variable. Keyless local providers return
// "" with no error.
func (g GatewayConfig) ResolveAPIKey() (string, error) {
	return g.resolveAPIKey(os.Getenv)
}

func (g GatewayConfig) resolveAPIKey(getenv func(string) string) (string, error) {
	if g.APIKey != "" {
		return g.APIKey, nil
	}
	envName := g.APIKeyEnv
	if envName == "" {
		envName = DefaultAPIKeyEnv
	}
	if v := getenv(envName); v != "" {
		return v, nil
	}
	provider := strings.ToLower(g.Provider)
	if name, ok := providerKeyEnv[provider]; ok {
		if v := getenv(name); v != "" {
			return v, nil
		}
	}
	if slices.Contains(keylessProviders, provider) {
		return "", nil
	}
	return "", fmt.Errorf("%w: set gateway.api_key or $%s", ErrNoCredential, envName)
}

// CredentialSource describes where the credential comes from, without the value
func (g GatewayConfig) CredentialSource() string {
	if g.APIKey != "" {
		return "config file"
	}
	envName := g.APIKeyEnv
	if envName == "" {
		envName = DefaultAPIKeyEnv
	}
	if os.Getenv(envName) != "" {
		return "$" + envName
	}
	if name, ok := providerKeyEnv[strings.ToLower(g.Provider)]; ok && os.Getenv(name) != "" {
		return "$" + name
	}
	if slices.Contains(keylessProviders, strings.ToLower(g.Provider)) {
		return "not required"
	}
	return "missing"
}
