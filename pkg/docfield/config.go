package docfield

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Mode selects how the walk middleware treats fields.
type Mode string

const (
	// ModeEvaluate re-evaluates every field and synthesizes its output.
	ModeEvaluate Mode = "evaluate"
	// ModeCache forwards the cached results stored in the document.
	ModeCache Mode = "cache"
)

// Config contains all configuration options for the field engine
type Config struct {
	// LogLevel controls the verbosity of logging (debug, info, warn, error, off)
	LogLevel string `yaml:"log_level"`
	// Culture is the document default BCP-47 tag used when no paragraph or run carries a language
	Culture string `yaml:"culture"`
	// ListSeparator overrides the culture's formula list separator when non-empty
	ListSeparator string `yaml:"list_separator"`
	// InvariantNumberFallback lets comparisons parse "1.5" even under a comma-decimal culture
	InvariantNumberFallback bool `yaml:"invariant_number_fallback"`
	// ErrorOnUnsupported turns unknown field types into Failed results instead of using the cache
	ErrorOnUnsupported bool `yaml:"error_on_unsupported"`
	// MaxNestingDepth bounds nested field expansion
	MaxNestingDepth int `yaml:"max_nesting_depth"`
	// Mode selects evaluate or cache behaviour for the walk middleware
	Mode Mode `yaml:"mode"`
}

var (
	globalConfig      *Config
	globalConfigMutex sync.RWMutex
	configOnce        sync.Once
)

func init() {
	configOnce.Do(func() {
		globalConfig = ConfigFromEnvironment()
	})
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		LogLevel:                "info",
		Culture:                 "en-US",
		InvariantNumberFallback: true,
		ErrorOnUnsupported:      false,
		MaxNestingDepth:         32,
		Mode:                    ModeEvaluate,
	}
}

// ConfigFromEnvironment creates a configuration from environment variables
func ConfigFromEnvironment() *Config {
	config := DefaultConfig()
	config.applyEnvironment()
	return config
}

func (c *Config) applyEnvironment() {
	// DOCFIELD_LOG_LEVEL
	if val := os.Getenv("DOCFIELD_LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}

	// DOCFIELD_CULTURE
	if val := os.Getenv("DOCFIELD_CULTURE"); val != "" {
		c.Culture = val
	}

	// DOCFIELD_LIST_SEPARATOR
	if val := os.Getenv("DOCFIELD_LIST_SEPARATOR"); val != "" {
		c.ListSeparator = val
	}

	// DOCFIELD_INVARIANT_NUMBER_FALLBACK
	if val := os.Getenv("DOCFIELD_INVARIANT_NUMBER_FALLBACK"); val != "" {
		c.InvariantNumberFallback = parseBool(val)
	}

	// DOCFIELD_ERROR_ON_UNSUPPORTED
	if val := os.Getenv("DOCFIELD_ERROR_ON_UNSUPPORTED"); val != "" {
		c.ErrorOnUnsupported = parseBool(val)
	}

	// DOCFIELD_MAX_NESTING_DEPTH
	if val := os.Getenv("DOCFIELD_MAX_NESTING_DEPTH"); val != "" {
		if depth, err := strconv.Atoi(val); err == nil {
			c.MaxNestingDepth = depth
		}
	}

	// DOCFIELD_MODE
	if val := os.Getenv("DOCFIELD_MODE"); val != "" {
		c.Mode = Mode(strings.ToLower(val))
	}
}

// LoadConfigFile reads a YAML configuration file on top of the defaults.
// Environment variables win over values from the file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	config.applyEnvironment()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// NewConfigWithDefaults creates a new configuration with defaults applied to unset fields
func NewConfigWithDefaults(overrides *Config) *Config {
	defaults := DefaultConfig()

	if overrides == nil {
		return defaults
	}

	config := *overrides

	if config.LogLevel == "" {
		config.LogLevel = defaults.LogLevel
	}
	if config.Culture == "" {
		config.Culture = defaults.Culture
	}
	if config.MaxNestingDepth == 0 {
		config.MaxNestingDepth = defaults.MaxNestingDepth
	}
	if config.Mode == "" {
		config.Mode = defaults.Mode
	}

	return &config
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"off":   true,
	}

	if !validLogLevels[c.LogLevel] {
		return errors.New("invalid log level: " + c.LogLevel)
	}

	if _, err := language.Parse(c.Culture); err != nil {
		return fmt.Errorf("invalid culture %q: %w", c.Culture, err)
	}

	if c.MaxNestingDepth <= 0 {
		return errors.New("max nesting depth must be positive")
	}

	if c.Mode != ModeEvaluate && c.Mode != ModeCache {
		return errors.New("invalid mode: " + string(c.Mode))
	}

	return nil
}

// GetGlobalConfig returns the global configuration
func GetGlobalConfig() *Config {
	globalConfigMutex.RLock()
	defer globalConfigMutex.RUnlock()

	if globalConfig == nil {
		return DefaultConfig()
	}

	configCopy := *globalConfig
	return &configCopy
}

// SetGlobalConfig sets the global configuration
func SetGlobalConfig(config *Config) {
	globalConfigMutex.Lock()
	globalConfig = config
	globalConfigMutex.Unlock()

	// Update logger based on new config (outside the lock to avoid deadlock)
	UpdateLoggerFromConfig()
}

// parseBool parses a boolean value from a string
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
