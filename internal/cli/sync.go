package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/agentx-labs/agentsync/internal/engine"
	"github.com/agentx-labs/agentsync/internal/logging"
	"github.com/agentx-labs/agentsync/internal/store"
	"github.com/agentx-labs/agentsync/internal/watch"
)

var (
	syncForce     bool
	syncProviders []string
	syncWatch     bool
	syncJSON      bool
)

func init() {
	syncCmd.Flags().BoolVar(&syncForce, "force", false, "Overwrite targets that were edited outside the managed region")
	syncCmd.Flags().StringSliceVarP(&syncProviders, "provider", "p", nil, "Only sync these providers (repeatable or comma-separated)")
	syncCmd.Flags().BoolVarP(&syncWatch, "watch", "w", false, "Keep running and sync again whenever the store changes")
	syncCmd.Flags().BoolVar(&syncJSON, "json", false, "Print the outcome as JSON")
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Write every provider's configuration from the store",
	Long: `Render the store for every configured provider and write the results.

Targets edited by hand outside the managed region are skipped and reported
(exit code 3) unless --force is given. Files the engine wrote for entries that
no longer exist are cleaned up. With --watch the pass repeats whenever a file
under the store changes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !syncWatch {
			return runSync(cmd)
		}
		return runSyncWatch(cmd)
	},
}

func runSync(cmd *cobra.Command) error {
	eng := newEngine(syncProviders, syncForce, false)
	out, err := eng.Sync(cmd.Context())
	if out == nil {
		return err
	}

	w := cmd.OutOrStdout()
	if syncJSON {
		if perr := printJSON(w, out); perr != nil {
			return perr
		}
	} else {
		printLocation(w, out.Location)
		if out.Result != nil {
			printResult(w, out.Result)
		}
	}
	if err != nil {
		return err
	}
	return codeErr(out.Code(false))
}

func runSyncWatch(cmd *cobra.Command) error {
	loc, err := store.Resolve(afero.NewOsFs(), workdir())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logging.Component(logger, "watch")
	pass := func() error {
		err := runSync(cmd)
		if code := ExitCode(err); code == engine.ExitConflicts {
			return nil
		}
		return err
	}
	if err := pass(); err != nil {
		log.Error().Err(err).Msg("initial pass failed")
	}
	return watch.Run(ctx, watch.Options{
		Root:   loc.Root,
		Ignore: watch.Under(store.StateDir, store.LockFile),
		Log:    log,
	}, pass)
}
