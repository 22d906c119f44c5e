package fdisk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/phuslu/log"
	"github.com/sigreer/fixswap/internal/logging"
	"github.com/sigreer/fixswap/internal/runner"
)

// NoAutoBit is the GPT attribute bit telling auto-mount generators to leave a partition alone
const NoAutoBit = "63"

// Client drives fdisk non-interactively by piping a command script to stdin
type Client struct {
	Runner runner.Runner
	Binary string
	Log    *log.Logger
}

// NewClient returns a client running binary, or "fdisk" from PATH if binary is empty
func NewClient(r runner.Runner, binary string, logger *log.Logger) *Client {
	if binary == "" {
		binary = "fdisk"
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Client{Runner: r, Binary: binary, Log: logger}
}

// Script feeds cmds, one per line, to fdisk on drive and returns its stdout.
// fdisk exits nonzero when its input ends at a prompt, so exit status is not an error;
// a timeout, a cancelled ctx or a failure to start is.
func (c *Client) Script(ctx context.Context, drive string, cmds ...string) (string, error) {
	out, _, err := c.script(ctx, drive, cmds...)
	return out, err
}

// script is Script that also hands back the nonzero exit, if any
func (c *Client) script(ctx context.Context, drive string, cmds ...string) (string, *runner.ExitError, error) {
	stdin := strings.Join(cmds, "\n") + "\n"

	out, err := c.Runner.Run(ctx, stdin, c.Binary, drive)
	if err == nil {
		return out, nil, nil
	}

	var exitErr *runner.ExitError
	if !errors.As(err, &exitErr) {
		return "", nil, fmt.Errorf("fdisk on %s failed: %w", drive, err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		// Killed on cancellation, the write may not have happened
		return "", nil, fmt.Errorf("fdisk on %s interrupted: %w", drive, ctxErr)
	}

	c.Log.Debug().Str("drive", drive).Int("status", exitErr.Code).Str("stderr", exitErr.Stderr).Msg("fdisk exited nonzero")
	return out, exitErr, nil
}

// HasNoAuto reports whether partition on drive carries the no-auto attribute.
// The partition must appear in fdisk's table; a missing row is an error, not "unset".
func (c *Client) HasNoAuto(ctx context.Context, drive, partition string) (bool, error) {
	out, exitErr, err := c.script(ctx, drive, "x", "p")
	if err != nil {
		return false, err
	}

	attrs, err := FindAttributes(out, partition)
	if err != nil {
		if exitErr != nil {
			return false, fmt.Errorf("%q not found in fdisk output for %q (%v): %w", partition, drive, exitErr, err)
		}
		return false, fmt.Errorf("%q not found in fdisk output for %q: %w", partition, drive, err)
	}

	c.Log.Info().Strs("fields", attrs.Fields).Msg("fdisk line")
	return attrs.Has(NoAutoBit), nil
}

// ToggleNoAuto flips the no-auto bit of partition number pnum on drive and writes the table.
// Callers check HasNoAuto first; toggling a set bit clears it.
func (c *Client) ToggleNoAuto(ctx context.Context, drive, pnum string) error {
	c.Log.Info().Str("partition", pnum).Str("drive", drive).Msg("toggling no-auto bit")

	_, err := c.Script(ctx, drive, "x", "S", pnum, NoAutoBit, "r", "w")
	return err
}
