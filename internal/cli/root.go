package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agentx-labs/agentsync/internal/branding"
	"github.com/agentx-labs/agentsync/internal/config"
	"github.com/agentx-labs/agentsync/internal/engine"
	"github.com/agentx-labs/agentsync/internal/logging"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var (
	chdir     string
	logLevel  string
	logFormat string

	settings config.Settings
	logger   = zerolog.Nop()
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&chdir, "chdir", "C", "", "Run as if started in this directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (console, json)")
}

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` renders one canonical set of AI agent rules, skills and workflows
into the native configuration files of every agent tool a repository uses, and
keeps those files in sync without clobbering what people wrote by hand.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.Load()
		s, err := config.Current()
		if err != nil {
			return &exitError{code: engine.ExitValidation, err: err}
		}
		if logLevel != "" {
			s.Log.Level = logLevel
		}
		if logFormat != "" {
			s.Log.Format = logFormat
		}
		l, err := logging.New(logging.Config{Level: s.Log.Level, Format: s.Log.Format, Out: cmd.ErrOrStderr()})
		if err != nil {
			return &exitError{code: engine.ExitValidation, err: err}
		}
		settings, logger = s, l
		return nil
	},
}

// Execute runs the root command with build info injected via ldflags.
// Errors are printed to stderr; pass the result to ExitCode.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	err := rootCmd.Execute()
	var ee *exitError
	if err != nil && !(errors.As(err, &ee) && ee.err == nil) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

// workdir is where store resolution starts.
func workdir() string {
	if chdir == "" {
		return "."
	}
	return chdir
}

func newEngine(providers []string, force, noLock bool) *engine.Engine {
	return engine.New(engine.Options{
		Start:     workdir(),
		Providers: providers,
		Force:     force,
		NoLock:    noLock,
		Settings:  settings,
		Log:       logger,
	})
}
