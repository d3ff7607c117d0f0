package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/agentx-labs/agentsync/internal/branding"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Keys.
const (
	KeyDurability     = "durability"
	KeyLockTimeout    = "lock.timeout"
	KeyRetryBaseDelay = "retry.base_delay"
	KeyRetryMaxDelay  = "retry.max_delay"
	KeyWorkers        = "workers"
	KeyLogLevel       = "log.level"
	KeyLogFormat      = "log.format"
)

// Settings is the validated configuration.
type Settings struct {
	Durability string `mapstructure:"durability" validate:"oneof=sync none"`
	Lock       struct {
		Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
	} `mapstructure:"lock"`
	Retry struct {
		BaseDelay time.Duration `mapstructure:"base_delay" validate:"gt=0"`
		MaxDelay  time.Duration `mapstructure:"max_delay" validate:"gtefield=BaseDelay"`
	} `mapstructure:"retry"`
	Workers int `mapstructure:"workers" validate:"gte=1,lte=256"`
	Log     struct {
		Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
		Format string `mapstructure:"format" validate:"oneof=console json"`
	} `mapstructure:"log"`
}

var defaults = map[string]any{
	KeyDurability:     "sync",
	KeyLockTimeout:    10 * time.Second,
	KeyRetryBaseDelay: 50 * time.Millisecond,
	KeyRetryMaxDelay:  time.Second,
	KeyWorkers:        runtime.NumCPU(),
	KeyLogLevel:       "info",
	KeyLogFormat:      "console",
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Dir returns the path to the config directory (~/.agentsync/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.agentsync/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
// AGENTSYNC_LOCK_TIMEOUT overrides lock.timeout.
func Load() {
	for k, v := range defaults {
		viper.SetDefault(k, v)
	}
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// Keys returns every known key, sorted.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Known reports whether key is a configuration key.
func Known(key string) bool {
	_, ok := defaults[key]
	return ok
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// Current decodes and validates the effective settings.
func Current() (Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return s, fmt.Errorf("decoding config: %w", err)
	}
	if err := validate.Struct(s); err != nil {
		return s, fmt.Errorf("invalid config: %w", err)
	}
	return s, nil
}

// Set validates and writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if !Known(key) {
		return fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(Keys(), ", "))
	}
	if err := EnsureDir(); err != nil {
		return err
	}

	previous := viper.Get(key)
	viper.Set(key, value)
	if _, err := Current(); err != nil {
		viper.Set(key, previous)
		return err
	}

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
