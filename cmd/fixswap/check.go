package main

import (
	"github.com/sigreer/fixswap/internal/blockdev"
	"github.com/sigreer/fixswap/internal/crypttab"
	"github.com/sigreer/fixswap/internal/remedy"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Show the no-auto state of every random-key swap partition",
	Long: `Show, without changing anything, each random-key swap entry in crypttab:
the partition it resolves to, its partition table scheme, whether the
dm-crypt mapping is active and what "fixswap run" would do.

Examples:
  fixswap check
  fixswap check --json
  fixswap check --crypttab /mnt/etc/crypttab`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().Bool("json", false, "Output as JSON")
}

func runCheck(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	report, err := a.fixer(true).Run(cmd.Context(), crypttab.Swaps(a.cfg.Crypttab))
	if err != nil {
		return err
	}

	if jsonOut {
		return remedy.PrintJSON(cmd.OutOrStdout(), report)
	}
	remedy.PrintTable(cmd.OutOrStdout(), report, blockdev.IsBlockDevice)
	return nil
}
