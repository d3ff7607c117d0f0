package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/agentx-labs/agentsync/internal/branding"
	"github.com/agentx-labs/agentsync/internal/provider"
	"github.com/agentx-labs/agentsync/internal/store"
)

var initProviders string

func init() {
	initCmd.Flags().StringVar(&initProviders, "providers", "claude,cursor,codex", "Comma-separated list of providers to configure")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a control store",
	Long: `Create the control store skeleton (store.yaml, rules/, skills/, workflows/,
presets/, providers/ and state/) in dir, or the current directory.

Existing files are left alone, so init is safe to rerun.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		holder := workdir()
		if len(args) == 1 {
			holder = filepath.Join(holder, args[0])
		}
		holder, err := filepath.Abs(holder)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", holder, err)
		}

		ids, err := parseProviders(initProviders)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Initializing store in %s\n", holder)
		root, err := store.Init(afero.NewOsFs(), holder, ids, w)
		if err != nil {
			return fmt.Errorf("initializing store: %w", err)
		}
		fmt.Fprintf(w, "\nStore ready at %s. Add rules under %s and run '%s sync'.\n",
			root, filepath.Join(branding.StoreDir(), "rules"), branding.CLIName())
		return nil
	},
}

// parseProviders splits a comma-separated list and checks every id against
// the built-in catalog.
func parseProviders(list string) ([]string, error) {
	catalog, err := provider.Builtin()
	if err != nil {
		return nil, err
	}
	var ids []string
	seen := make(map[string]bool)
	for _, id := range strings.Split(list, ",") {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		if !catalog.Has(id) {
			return nil, fmt.Errorf("%w: %q (known: %s)", provider.ErrUnknownProvider, id, strings.Join(catalog.IDs(), ", "))
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no providers given", provider.ErrUnknownProvider)
	}
	return ids, nil
}
