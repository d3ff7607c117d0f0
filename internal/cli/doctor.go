package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentx-labs/agentsync/internal/engine"
)

var (
	doctorFix  bool
	doctorJSON bool
)

func init() {
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "Remove temp files left behind by interrupted syncs")
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Health check for the control store",
	Long: `Run diagnostic checks on the store this directory resolves to: layout mode,
lock state, definitions, catalog, manifest and leftover temp files.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newEngine(nil, false, false).Doctor(cmd.Context(), doctorFix)
		if d == nil {
			return err
		}

		w := cmd.OutOrStdout()
		if doctorJSON {
			if perr := printJSON(w, d); perr != nil {
				return perr
			}
		} else {
			printLocation(w, d.Location)
			fmt.Fprintf(w, "  Worktree:  %s\n", d.Location.Worktree)
			if d.LockHeld {
				fmt.Fprintf(w, "  %s lock is held by another process\n", warnStyle.Render("[WARN]"))
			} else {
				fmt.Fprintf(w, "  %s lock is free\n", okStyle.Render("[ OK ]"))
			}
			if d.CatalogVersion != "" {
				fmt.Fprintf(w, "  %s catalog %s\n", okStyle.Render("[ OK ]"), d.CatalogVersion)
			}
			printer.Fprintf(w, "  %s manifest tracks %d targets\n", okStyle.Render("[ OK ]"), d.ManifestTargets)
			for _, t := range d.Temps {
				tag := warnStyle.Render("[WARN]")
				if d.Swept {
					tag = okStyle.Render("[FIX ]")
				}
				fmt.Fprintf(w, "  %s leftover temp file %s\n", tag, t)
			}
			for _, p := range d.Problems {
				fmt.Fprintf(w, "  %s %s\n", conflictStyle.Render("[FAIL]"), p)
			}
			if len(d.Temps) > 0 && !d.Swept {
				fmt.Fprintln(w, "Run with --fix to remove leftover temp files.")
			}
		}
		if err != nil {
			return err
		}
		if !d.Healthy() {
			return codeErr(engine.ExitFailure)
		}
		return nil
	},
}
