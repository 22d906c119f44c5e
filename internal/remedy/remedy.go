// Package remedy walks random-key swap entries and sets the GPT no-auto
// attribute on their partitions where it is missing.
package remedy

import (
	"context"
	"fmt"
	"iter"

	"github.com/phuslu/log"
	"github.com/sigreer/fixswap/internal/blkid"
	"github.com/sigreer/fixswap/internal/blockdev"
	"github.com/sigreer/fixswap/internal/crypttab"
	"github.com/sigreer/fixswap/internal/logging"
)

// Action is what happened to one swap partition
type Action string

const (
	ActionSkippedNotNVMe Action = "skipped-not-nvme"
	ActionSkippedNotGPT  Action = "skipped-not-gpt"
	ActionAlreadySet     Action = "already-set"
	ActionToggled        Action = "toggled"
	ActionWouldToggle    Action = "would-toggle"
)

// PartitionResolver maps a filesystem UUID to its partition device path
type PartitionResolver interface {
	Resolve(uuid string) (string, error)
}

// SchemeProber reports the partition table scheme for a partition
type SchemeProber interface {
	Scheme(ctx context.Context, partition string) (string, error)
}

// AttributeEditor reads and flips the no-auto attribute
type AttributeEditor interface {
	HasNoAuto(ctx context.Context, drive, partition string) (bool, error)
	ToggleNoAuto(ctx context.Context, drive, pnum string) error
}

// MappingChecker reports whether a crypttab target is currently mapped
type MappingChecker interface {
	Active(name string) bool
}

// Outcome records the decision for one crypttab entry
type Outcome struct {
	Name          string `json:"name"`
	UUID          string `json:"uuid"`
	Partition     string `json:"partition"`
	Drive         string `json:"drive,omitempty"`
	PartNum       string `json:"part_num,omitempty"`
	Scheme        string `json:"scheme,omitempty"`
	Action        Action `json:"action"`
	MappingActive bool   `json:"mapping_active"`
}

// Report collects the outcomes of a run in crypttab order
type Report struct {
	DryRun   bool      `json:"dry_run"`
	Outcomes []Outcome `json:"outcomes"`
}

// Changed returns the number of partitions whose table was (or would be) written
func (r *Report) Changed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Action == ActionToggled || o.Action == ActionWouldToggle {
			n++
		}
	}
	return n
}

// Fixer applies the no-auto policy to swap entries
type Fixer struct {
	Log        *log.Logger
	Resolver   PartitionResolver
	Schemes    SchemeProber
	Attributes AttributeEditor
	// Mappings is optional
	Mappings MappingChecker
	// DryRun reports what would change without writing any partition table
	DryRun bool
}

// Run processes entries in order. It stops at the first error and returns the
// outcomes gathered so far alongside it.
func (f *Fixer) Run(ctx context.Context, entries iter.Seq2[crypttab.Entry, error]) (*Report, error) {
	logger := f.Log
	if logger == nil {
		logger = logging.Discard()
	}

	report := &Report{DryRun: f.DryRun}
	for entry, err := range entries {
		if err != nil {
			return report, err
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		outcome, err := f.fix(ctx, logger, entry)
		if err != nil {
			return report, err
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	return report, nil
}

func (f *Fixer) fix(ctx context.Context, logger *log.Logger, entry crypttab.Entry) (Outcome, error) {
	uuid := entry.UUID()
	outcome := Outcome{Name: entry.Name, UUID: uuid}
	if f.Mappings != nil {
		outcome.MappingActive = f.Mappings.Active(entry.Name)
	}

	partition, err := f.Resolver.Resolve(uuid)
	if err != nil {
		return outcome, err
	}
	outcome.Partition = partition

	if !blockdev.IsNVMe(partition) {
		logger.Info().Str("uuid", uuid).Str("partition", partition).Msg("skipping non-NVMe partition")
		outcome.Action = ActionSkippedNotNVMe
		return outcome, nil
	}

	scheme, err := f.Schemes.Scheme(ctx, partition)
	if err != nil {
		return outcome, err
	}
	outcome.Scheme = scheme
	if scheme != blkid.SchemeGPT {
		logger.Info().Str("partition", partition).Str("scheme", scheme).Msg("skipping non-GPT partition")
		outcome.Action = ActionSkippedNotGPT
		return outcome, nil
	}

	drive, pnum, err := blockdev.SplitPartition(partition)
	if err != nil {
		return outcome, err
	}
	outcome.Drive, outcome.PartNum = drive, pnum

	set, err := f.Attributes.HasNoAuto(ctx, drive, partition)
	if err != nil {
		return outcome, err
	}
	if set {
		logger.Info().Str("partition", partition).Msg("no-auto bit already set")
		outcome.Action = ActionAlreadySet
		return outcome, nil
	}

	if f.DryRun {
		logger.Info().Str("partition", partition).Msg("no-auto bit missing, dry run leaves it unset")
		outcome.Action = ActionWouldToggle
		return outcome, nil
	}

	if err := f.Attributes.ToggleNoAuto(ctx, drive, pnum); err != nil {
		return outcome, fmt.Errorf("failed to set no-auto on %s: %w", partition, err)
	}
	outcome.Action = ActionToggled
	return outcome, nil
}
