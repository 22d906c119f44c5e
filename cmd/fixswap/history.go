package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sigreer/fixswap/internal/journal"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs and partition changes from the journal",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "number of entries to show")
	historyCmd.Flags().Bool("runs", false, "list runs instead of per-partition actions")
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	showRuns, _ := cmd.Flags().GetBool("runs")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	if !a.cfg.JournalEnabled() {
		return errors.New("journal is disabled")
	}

	// Reading history never creates the journal
	if _, err := os.Stat(a.cfg.Journal); errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(cmd.OutOrStdout(), "No journal entries")
		return nil
	}

	j, err := journal.Open(a.cfg.Journal)
	if err != nil {
		return err
	}
	defer j.Close()

	if showRuns {
		runs, err := j.Runs(limit)
		if err != nil {
			return err
		}
		printRuns(cmd.OutOrStdout(), runs)
		return nil
	}

	actions, err := j.RecentActions(limit)
	if err != nil {
		return err
	}
	printActions(cmd.OutOrStdout(), actions)
	return nil
}

func printActions(w io.Writer, actions []*journal.ActionRecord) {
	if len(actions) == 0 {
		fmt.Fprintln(w, "No journal entries")
		return
	}

	fmt.Fprintf(w, "%-16s %-14s %-18s %-16s %s\n", "WHEN", "NAME", "PARTITION", "ACTION", "RUN")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, a := range actions {
		partition := a.Partition
		if partition == "" {
			partition = "UUID=" + a.UUID
		}
		fmt.Fprintf(w, "%-16s %-14s %-18s %-16s %s\n",
			humanize.Time(a.Timestamp), a.Name, partition, a.Action, a.RunID)
	}
}

func printRuns(w io.Writer, runs []*journal.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No journal entries")
		return
	}

	fmt.Fprintf(w, "%-36s %-16s %-7s %s\n", "RUN", "STARTED", "DRY-RUN", "RESULT")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, r := range runs {
		result := "ok"
		switch {
		case r.Error != "":
			result = r.Error
		case r.FinishedAt == nil:
			result = "unfinished"
		}
		dry := "no"
		if r.DryRun {
			dry = "yes"
		}
		fmt.Fprintf(w, "%-36s %-16s %-7s %s\n", r.ID, humanize.Time(r.StartedAt), dry, result)
	}
}
