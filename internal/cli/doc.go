// Package cli defines the Cobra command tree for the agentsync CLI. Each file
// in this package registers one top-level command (init, sync, check, etc.)
// with the root command. Command implementations delegate to internal packages
// for business logic and only handle flag parsing, I/O formatting and exit codes.
package cli
