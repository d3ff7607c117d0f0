package cli

import (
	"github.com/spf13/cobra"
)

var (
	checkNoLock    bool
	checkProviders []string
	checkJSON      bool
)

func init() {
	checkCmd.Flags().BoolVar(&checkNoLock, "no-lock", false, "Read without taking the store lock (may see a sync in progress)")
	checkCmd.Flags().StringSliceVarP(&checkProviders, "provider", "p", nil, "Only check these providers (repeatable or comma-separated)")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Print the drift report as JSON")
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report drift between the store and provider files",
	Long: `Render the store and compare it with what is on disk without writing.

Exits 0 when every target is in sync and 8 when anything would change, so it
can gate CI.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := newEngine(checkProviders, false, checkNoLock).Check(cmd.Context())
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if checkJSON {
			if err := printJSON(w, out); err != nil {
				return err
			}
		} else {
			printLocation(w, out.Location)
			if err := printReport(w, out.Report); err != nil {
				return err
			}
		}
		return codeErr(out.Code(true))
	},
}
