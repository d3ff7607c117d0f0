// Package branding provides compile-time identity values for the CLI.
//
// branding.yaml is embedded into the binary; forks change the product name,
// store directory, env prefix and block marker there without touching code.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName     string `yaml:"cli_name"`
	DisplayName string `yaml:"display_name"`
	Description string `yaml:"description"`
	HomeDir     string `yaml:"home_dir"`
	StoreDir    string `yaml:"store_dir"`
	EnvPrefix   string `yaml:"env_prefix"`
	Marker      string `yaml:"marker"`
	GoModule    string `yaml:"go_module"`
}

func load() {
	once.Do(func() {
		// Hard defaults in case the embedded file is empty.
		defaults = brand{
			CLIName:     "agentsync",
			DisplayName: "AgentSync",
			Description: "Keeps AI agent rules, skills and workflows in sync across tool configs",
			HomeDir:     ".agentsync",
			StoreDir:    ".agentsync",
			EnvPrefix:   "AGENTSYNC",
			Marker:      "agentsync",
			GoModule:    "github.com/agentx-labs/agentsync",
		}
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "agentsync").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name (e.g., "AgentSync").
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// HomeDir returns the dot-directory name under $HOME holding user config.
func HomeDir() string { load(); return defaults.HomeDir }

// StoreDir returns the name of the control store directory that marks a
// store holder (e.g., ".agentsync").
func StoreDir() string { load(); return defaults.StoreDir }

// EnvPrefix returns the environment variable prefix (e.g., "AGENTSYNC").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// Marker returns the word used in managed block delimiters.
func Marker() string { load(); return defaults.Marker }

// GoModule returns the Go module path. Not consumed at runtime.
func GoModule() string { load(); return defaults.GoModule }

// EnvVar returns a fully qualified env var name, e.g., EnvVar("store") → "AGENTSYNC_STORE".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
