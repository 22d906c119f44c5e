package remedy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sigreer/fixswap/internal/crypttab"
	"github.com/sigreer/fixswap/internal/fdisk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver map[string]string

func (r fakeResolver) Resolve(uuid string) (string, error) {
	p, ok := r[uuid]
	if !ok {
		return "", os.ErrNotExist
	}
	return p, nil
}

type fakeSchemes struct {
	schemes map[string]string
	probed  []string
}

func (s *fakeSchemes) Scheme(ctx context.Context, partition string) (string, error) {
	s.probed = append(s.probed, partition)
	return s.schemes[partition], nil
}

// fakeDisk keeps a per-partition no-auto bit that ToggleNoAuto flips
type fakeDisk struct {
	bits    map[string]bool
	reads   int
	toggles []string
	readErr error
}

func (d *fakeDisk) HasNoAuto(ctx context.Context, drive, partition string) (bool, error) {
	d.reads++
	if d.readErr != nil {
		return false, d.readErr
	}
	return d.bits[partition], nil
}

func (d *fakeDisk) ToggleNoAuto(ctx context.Context, drive, pnum string) error {
	partition := drive + "p" + pnum
	d.toggles = append(d.toggles, partition)
	d.bits[partition] = !d.bits[partition]
	return nil
}

type fakeMappings map[string]bool

func (m fakeMappings) Active(name string) bool { return m[name] }

func writeCrypttab(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crypttab")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newFixer(resolver fakeResolver, schemes map[string]string, disk *fakeDisk) (*Fixer, *fakeSchemes) {
	s := &fakeSchemes{schemes: schemes}
	return &Fixer{
		Resolver:   resolver,
		Schemes:    s,
		Attributes: disk,
	}, s
}

func TestRun_TogglesMissingBit(t *testing.T) {
	path := writeCrypttab(t, "cryptswap1 UUID=1111-2222 /dev/urandom swap\n")
	disk := &fakeDisk{bits: map[string]bool{}}
	f, _ := newFixer(
		fakeResolver{"1111-2222": "/dev/nvme0n1p3"},
		map[string]string{"/dev/nvme0n1p3": "gpt"},
		disk,
	)
	f.Mappings = fakeMappings{"cryptswap1": true}

	report, err := f.Run(context.Background(), crypttab.Swaps(path))
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)

	o := report.Outcomes[0]
	assert.Equal(t, ActionToggled, o.Action)
	assert.Equal(t, "cryptswap1", o.Name)
	assert.Equal(t, "/dev/nvme0n1", o.Drive)
	assert.Equal(t, "3", o.PartNum)
	assert.Equal(t, "gpt", o.Scheme)
	assert.True(t, o.MappingActive)
	assert.Equal(t, []string{"/dev/nvme0n1p3"}, disk.toggles)
	assert.Equal(t, 1, report.Changed())
}

func TestRun_Idempotent(t *testing.T) {
	path := writeCrypttab(t, "cryptswap1 UUID=1111-2222 /dev/urandom swap\n")
	disk := &fakeDisk{bits: map[string]bool{}}
	f, _ := newFixer(
		fakeResolver{"1111-2222": "/dev/nvme0n1p3"},
		map[string]string{"/dev/nvme0n1p3": "gpt"},
		disk,
	)

	first, err := f.Run(context.Background(), crypttab.Swaps(path))
	require.NoError(t, err)
	second, err := f.Run(context.Background(), crypttab.Swaps(path))
	require.NoError(t, err)

	assert.Equal(t, ActionToggled, first.Outcomes[0].Action)
	assert.Equal(t, ActionAlreadySet, second.Outcomes[0].Action)
	assert.Len(t, disk.toggles, 1)
	assert.Zero(t, second.Changed())
}

func TestRun_AlreadySet(t *testing.T) {
	path := writeCrypttab(t, "cryptswap1 UUID=1111-2222 /dev/urandom swap\n")
	disk := &fakeDisk{bits: map[string]bool{"/dev/nvme0n1p3": true}}
	f, _ := newFixer(
		fakeResolver{"1111-2222": "/dev/nvme0n1p3"},
		map[string]string{"/dev/nvme0n1p3": "gpt"},
		disk,
	)

	report, err := f.Run(context.Background(), crypttab.Swaps(path))
	require.NoError(t, err)
	assert.Equal(t, ActionAlreadySet, report.Outcomes[0].Action)
	assert.Equal(t, 1, disk.reads)
	assert.Empty(t, disk.toggles)
}

func TestRun_SkipsNonNVMe(t *testing.T) {
	path := writeCrypttab(t, "cryptswap1 UUID=1111-2222 /dev/urandom swap\n")
	disk := &fakeDisk{bits: map[string]bool{}}
	f, schemes := newFixer(fakeResolver{"1111-2222": "/dev/sda1"}, nil, disk)

	report, err := f.Run(context.Background(), crypttab.Swaps(path))
	require.NoError(t, err)
	assert.Equal(t, ActionSkippedNotNVMe, report.Outcomes[0].Action)
	assert.Empty(t, schemes.probed)
	assert.Zero(t, disk.reads)
	assert.Empty(t, disk.toggles)
}

func TestRun_SkipsNonGPT(t *testing.T) {
	path := writeCrypttab(t, "cryptswap1 UUID=1111-2222 /dev/urandom swap\n")
	disk := &fakeDisk{bits: map[string]bool{}}
	f, _ := newFixer(
		fakeResolver{"1111-2222": "/dev/nvme0n1p3"},
		map[string]string{"/dev/nvme0n1p3": "dos"},
		disk,
	)

	report, err := f.Run(context.Background(), crypttab.Swaps(path))
	require.NoError(t, err)
	assert.Equal(t, ActionSkippedNotGPT, report.Outcomes[0].Action)
	assert.Equal(t, "dos", report.Outcomes[0].Scheme)
	assert.Zero(t, disk.reads)
}

func TestRun_DryRun(t *testing.T) {
	path := writeCrypttab(t, "cryptswap1 UUID=1111-2222 /dev/urandom swap\n")
	disk := &fakeDisk{bits: map[string]bool{}}
	f, _ := newFixer(
		fakeResolver{"1111-2222": "/dev/nvme0n1p3"},
		map[string]string{"/dev/nvme0n1p3": "gpt"},
		disk,
	)
	f.DryRun = true

	report, err := f.Run(context.Background(), crypttab.Swaps(path))
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, ActionWouldToggle, report.Outcomes[0].Action)
	assert.Empty(t, disk.toggles)
	assert.Equal(t, 1, report.Changed())
}

func TestRun_NoCandidates(t *testing.T) {
	path := writeCrypttab(t, "cryptroot UUID=aaaa none luks\ncryptswap1 UUID=1111 /dev/random swap\n")
	disk := &fakeDisk{bits: map[string]bool{}}
	f, schemes := newFixer(fakeResolver{}, nil, disk)

	report, err := f.Run(context.Background(), crypttab.Swaps(path))
	require.NoError(t, err)
	assert.Empty(t, report.Outcomes)
	assert.Empty(t, schemes.probed)
	assert.Empty(t, disk.toggles)
}

func TestRun_MissingCrypttab(t *testing.T) {
	disk := &fakeDisk{bits: map[string]bool{}}
	f, _ := newFixer(fakeResolver{}, nil, disk)

	report, err := f.Run(context.Background(), crypttab.Swaps(filepath.Join(t.TempDir(), "crypttab")))
	require.NoError(t, err)
	assert.Empty(t, report.Outcomes)
}

func TestRun_UnresolvableUUIDIsFatal(t *testing.T) {
	path := writeCrypttab(t, "cryptswap1 UUID=1111-2222 /dev/urandom swap\n")
	disk := &fakeDisk{bits: map[string]bool{}}
	f, _ := newFixer(fakeResolver{}, nil, disk)

	_, err := f.Run(context.Background(), crypttab.Swaps(path))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRun_StopsAtFirstError(t *testing.T) {
	path := writeCrypttab(t, `cryptswap1 UUID=aaaa /dev/urandom swap
cryptswap2 UUID=bbbb /dev/urandom swap
cryptswap3 UUID=cccc /dev/urandom swap
`)
	disk := &fakeDisk{bits: map[string]bool{}, readErr: fdisk.ErrPartitionNotFound}
	f, _ := newFixer(
		fakeResolver{"aaaa": "/dev/sda2", "bbbb": "/dev/nvme0n1p2", "cccc": "/dev/nvme0n1p3"},
		map[string]string{"/dev/nvme0n1p2": "gpt", "/dev/nvme0n1p3": "gpt"},
		disk,
	)

	report, err := f.Run(context.Background(), crypttab.Swaps(path))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fdisk.ErrPartitionNotFound))
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, ActionSkippedNotNVMe, report.Outcomes[0].Action)
	assert.Equal(t, 1, disk.reads)
	assert.Empty(t, disk.toggles)
}

func TestRun_CancelledContext(t *testing.T) {
	path := writeCrypttab(t, "cryptswap1 UUID=1111-2222 /dev/urandom swap\n")
	disk := &fakeDisk{bits: map[string]bool{}}
	f, _ := newFixer(fakeResolver{"1111-2222": "/dev/nvme0n1p3"}, nil, disk)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Run(ctx, crypttab.Swaps(path))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, disk.reads)
}
