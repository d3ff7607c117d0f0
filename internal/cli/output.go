package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/agentx-labs/agentsync/internal/drift"
	"github.com/agentx-labs/agentsync/internal/store"
	"github.com/agentx-labs/agentsync/internal/txn"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	conflictStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var printer = message.NewPrinter(language.English)

func statusStyle(s drift.Status) lipgloss.Style {
	switch s {
	case drift.StatusInSync:
		return okStyle
	case drift.StatusForeignConflict:
		return conflictStyle
	case drift.StatusMissing, drift.StatusModified, drift.StatusOrphaned:
		return warnStyle
	}
	return dimStyle
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printLocation(w io.Writer, loc *store.Location) {
	fmt.Fprintf(w, "%s %s %s\n",
		headerStyle.Render("Store"),
		loc.Root,
		dimStyle.Render(fmt.Sprintf("(%s, worktree %s)", loc.ModeName, loc.WorktreeID)))
}

// printReport lists every target that is not in sync, then a summary line.
func printReport(w io.Writer, r *drift.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, it := range r.Items {
		if it.Status == drift.StatusInSync {
			continue
		}
		line := fmt.Sprintf("  %s\t%s\t%s", statusStyle(it.Status).Render(string(it.Status)), it.Path, dimStyle.Render(it.Provider))
		if it.Reason != "" {
			line += "\t" + it.Reason
		}
		fmt.Fprintln(tw, line)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	printer.Fprintf(w, "%d targets: %s\n", len(r.Items), summaryLine(r.Summary()))
	return nil
}

func summaryLine(sum map[drift.Status]int) string {
	parts := make([]string, 0, len(drift.Statuses))
	for _, s := range drift.Statuses {
		parts = append(parts, printer.Sprintf("%d %s", sum[s], s))
	}
	return strings.Join(parts, ", ")
}

// printResult lists what a sync changed with one status tag per path.
func printResult(w io.Writer, res *txn.Result) {
	for _, p := range res.Written {
		fmt.Fprintf(w, "  %s wrote %s\n", okStyle.Render("[ OK ]"), p)
	}
	for _, p := range res.Deleted {
		fmt.Fprintf(w, "  %s removed %s\n", okStyle.Render("[ OK ]"), p)
	}
	for _, s := range res.Skipped {
		fmt.Fprintf(w, "  %s %s: %s\n", conflictStyle.Render("[SKIP]"), s.Path, s.Reason)
	}
	printer.Fprintf(w, "%d written, %d removed, %d skipped, %d unchanged\n",
		len(res.Written), len(res.Deleted), len(res.Skipped), len(res.Unchanged))
	if len(res.Skipped) > 0 {
		fmt.Fprintln(w, warnStyle.Render("Skipped targets were edited outside the managed region; rerun with --force to overwrite them."))
	}
}
