package main

import (
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

var errNotRoot = errors.New("writing partition tables requires root; use --dry-run or \"fixswap check\" to audit")

// geteuid is swapped out in tests
var geteuid = unix.Geteuid

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Audit crypttab swap entries and set the no-auto bit where missing",
	Long: `Audit every random-key swap entry in crypttab and set GPT attribute
bit 63 on its partition when it is missing. Partitions that are not on an
NVMe drive, or whose table is not GPT, are skipped.

The run stops at the first error. Rerunning after a successful fix changes
nothing.`,
	Args: cobra.NoArgs,
	RunE: runFix,
}

func init() {
	runCmd.Flags().Bool("dry-run", false, "report what would change without writing partition tables")
}

func runFix(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if !dryRun && geteuid() != 0 {
		return errNotRoot
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	report, err := a.execute(cmd.Context(), dryRun)
	if err != nil {
		return err
	}

	a.log.Info().Int("entries", len(report.Outcomes)).Int("changed", report.Changed()).Bool("dry_run", dryRun).Msg("done")
	return nil
}
