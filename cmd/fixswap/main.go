package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sigreer/fixswap/internal/version"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "fixswap",
	Short: "Set the GPT no-auto attribute on random-key encrypted swap",
	Long: `fixswap scans /etc/crypttab for swap encrypted with a throwaway key
from /dev/urandom. For each such partition on an NVMe drive with a GPT
partition table it makes sure GPT attribute bit 63 ("no-auto") is set, so
systemd-gpt-auto-generator does not try to activate a partition whose key
is discarded on every boot.

Running fixswap with no subcommand is the same as "fixswap run".`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runFix,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the fixswap version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/fixswap/config.yaml)")
	rootCmd.PersistentFlags().String("crypttab", "", "crypttab to scan (default /etc/crypttab)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("no-journal", false, "do not record this run in the journal")

	rootCmd.Flags().Bool("dry-run", false, "report what would change without writing partition tables")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
