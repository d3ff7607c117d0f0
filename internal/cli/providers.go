package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/agentx-labs/agentsync/internal/provider"
	"github.com/agentx-labs/agentsync/internal/store"
)

var providersJSON bool

func init() {
	providersCmd.Flags().BoolVar(&providersJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(providersCmd)
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List known providers and their targets",
	Long: `List every provider in the catalog: the built-in descriptors plus any
defined under providers/ in the current store.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := loadCatalog()
		if err != nil {
			return err
		}
		if providersJSON {
			return printJSON(cmd.OutOrStdout(), catalog.All())
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tTARGETS\tSOURCE")
		for _, d := range catalog.All() {
			paths := make([]string, 0, len(d.Targets))
			for _, t := range d.Targets {
				paths = append(paths, t.Path)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.ID, d.Name, d.Category, strings.Join(paths, ", "), d.Source)
		}
		return w.Flush()
	},
}

// loadCatalog returns the store's catalog, or the built-in one outside a store.
func loadCatalog() (*provider.Catalog, error) {
	fsys := afero.NewOsFs()
	loc, err := store.Resolve(fsys, workdir())
	if errors.Is(err, store.ErrNotFound) {
		return provider.Builtin()
	}
	if err != nil {
		return nil, err
	}
	return provider.Load(fsys, loc.Root)
}
