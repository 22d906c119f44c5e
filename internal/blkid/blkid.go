package blkid

import (
	"context"
	"fmt"
	"strings"

	"github.com/sigreer/fixswap/internal/runner"
)

// SchemeGPT is the PART_ENTRY_SCHEME value for GUID partition tables
const SchemeGPT = "gpt"

// Prober reads partition metadata with blkid in low-level probe mode
type Prober struct {
	Runner runner.Runner
	Binary string
}

// NewProber returns a prober running binary, or "blkid" from PATH if binary is empty
func NewProber(r runner.Runner, binary string) *Prober {
	if binary == "" {
		binary = "blkid"
	}
	return &Prober{Runner: r, Binary: binary}
}

// Scheme returns the partition table scheme ("gpt", "dos", ...) of the table holding partition
func (p *Prober) Scheme(ctx context.Context, partition string) (string, error) {
	out, err := p.Runner.Run(ctx, "", p.Binary, "-p", "-s", "PART_ENTRY_SCHEME", "-o", "value", partition)
	if err != nil {
		return "", fmt.Errorf("blkid probe of %s failed: %w", partition, err)
	}
	return strings.TrimRight(out, " \t\r\n"), nil
}
