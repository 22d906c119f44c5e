package main

import (
	"context"
	"fmt"
	"os"

	"github.com/phuslu/log"
	"github.com/sigreer/fixswap/internal/blkid"
	"github.com/sigreer/fixswap/internal/blockdev"
	"github.com/sigreer/fixswap/internal/config"
	"github.com/sigreer/fixswap/internal/crypttab"
	"github.com/sigreer/fixswap/internal/fdisk"
	"github.com/sigreer/fixswap/internal/journal"
	"github.com/sigreer/fixswap/internal/logging"
	"github.com/sigreer/fixswap/internal/mapper"
	"github.com/sigreer/fixswap/internal/remedy"
	"github.com/sigreer/fixswap/internal/runner"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// app holds what every subcommand needs, built once per invocation
type app struct {
	cfg *config.Config
	log *log.Logger
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	applyFlags(cmd.Flags(), cfg)

	logger, err := logging.New(cfg.LogLevel, os.Stderr)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, log: logger}, nil
}

// applyFlags lets command-line flags override the config file
func applyFlags(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("crypttab") {
		cfg.Crypttab, _ = flags.GetString("crypttab")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if noJournal, _ := flags.GetBool("no-journal"); noJournal {
		cfg.Journal = "none"
	}
}

func (a *app) fixer(dryRun bool) *remedy.Fixer {
	r := runner.NewExec(a.cfg.Timeout)
	return &remedy.Fixer{
		Log:        a.log,
		Resolver:   blockdev.NewResolver(a.cfg.ByUUIDDir),
		Schemes:    blkid.NewProber(r, a.cfg.Blkid),
		Attributes: fdisk.NewClient(r, a.cfg.Fdisk, a.log),
		Mappings:   mapper.New(),
		DryRun:     dryRun,
	}
}

// openJournal returns nil when the journal is disabled or cannot be opened.
// History is best effort and never blocks a fix.
func (a *app) openJournal() *journal.Journal {
	if !a.cfg.JournalEnabled() {
		return nil
	}
	j, err := journal.Open(a.cfg.Journal)
	if err != nil {
		a.log.Warn().Err(err).Str("path", a.cfg.Journal).Msg("journal unavailable, continuing without it")
		return nil
	}
	return j
}

// execute runs the fixer over the configured crypttab and journals the result
func (a *app) execute(ctx context.Context, dryRun bool) (*remedy.Report, error) {
	j := a.openJournal()
	if j != nil {
		defer j.Close()
	}

	var runID string
	if j != nil {
		id, err := j.BeginRun(dryRun)
		if err != nil {
			a.log.Warn().Err(err).Msg("failed to journal run start")
			j = nil
		} else {
			runID = id
		}
	}

	a.log.Info().Str("crypttab", a.cfg.Crypttab).Bool("dry_run", dryRun).Msg("scanning for random-key swap")
	report, runErr := a.fixer(dryRun).Run(ctx, crypttab.Swaps(a.cfg.Crypttab))

	if j != nil {
		if err := j.RecordReport(runID, report); err != nil {
			a.log.Warn().Err(err).Msg("failed to journal outcomes")
		}
		if err := j.FinishRun(runID, runErr); err != nil {
			a.log.Warn().Err(err).Msg("failed to journal run end")
		}
	}

	return report, runErr
}
