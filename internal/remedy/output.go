package remedy

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// PrintJSON outputs the report as JSON
func PrintJSON(w io.Writer, report *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// PrintTable outputs one row per swap entry. blockDev is consulted for each
// resolved partition and may be nil.
func PrintTable(w io.Writer, report *Report, blockDev func(string) bool) {
	if len(report.Outcomes) == 0 {
		fmt.Fprintln(w, "No random-key swap entries found in crypttab")
		return
	}

	fmt.Fprintf(w, "%-14s %-38s %-18s %-6s %-7s %-7s %s\n",
		"NAME", "UUID", "PARTITION", "SCHEME", "MAPPED", "BLKDEV", "ACTION")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, o := range report.Outcomes {
		blk := "-"
		if blockDev != nil && o.Partition != "" {
			blk = yesNo(blockDev(o.Partition))
		}
		fmt.Fprintf(w, "%-14s %-38s %-18s %-6s %-7s %-7s %s\n",
			o.Name, o.UUID, dash(o.Partition), dash(o.Scheme), yesNo(o.MappingActive), blk, o.Action)
	}

	if report.DryRun && report.Changed() > 0 {
		fmt.Fprintf(w, "\n%d partition(s) need the no-auto bit; run without --dry-run to apply\n", report.Changed())
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
