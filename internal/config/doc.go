// Package config manages the user configuration (~/.agentsync/config.yaml)
// and environment overrides via Viper, and exposes it as validated Settings.
package config
