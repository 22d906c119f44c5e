package blockdev

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// DefaultByUUIDDir is where udev publishes filesystem UUID symlinks
const DefaultByUUIDDir = "/dev/disk/by-uuid"

const nvmePrefix = "/dev/nvme"

// Resolver maps UUIDs to partition device paths through a by-uuid directory
type Resolver struct {
	Dir string
}

// NewResolver returns a resolver for dir, or the system by-uuid directory if dir is empty
func NewResolver(dir string) *Resolver {
	if dir == "" {
		dir = DefaultByUUIDDir
	}
	return &Resolver{Dir: dir}
}

// Resolve reads the by-uuid symlink for uuid and returns the absolute device path it points at.
// Only the link itself is read; the target is not required to exist.
func (r *Resolver) Resolve(uuid string) (string, error) {
	link, err := os.Readlink(filepath.Join(r.Dir, uuid))
	if err != nil {
		return "", fmt.Errorf("failed to resolve UUID %s: %w", uuid, err)
	}

	if !filepath.IsAbs(link) {
		link = filepath.Join(r.Dir, link)
	}
	abs, err := filepath.Abs(link)
	if err != nil {
		return "", fmt.Errorf("failed to resolve UUID %s: %w", uuid, err)
	}
	return abs, nil
}

// IsNVMe reports whether path names an NVMe namespace or partition
func IsNVMe(path string) bool {
	return strings.HasPrefix(path, nvmePrefix)
}

// SplitPartition splits an NVMe partition path into its drive and partition number
// /dev/nvme0n1p3 -> /dev/nvme0n1, 3
func SplitPartition(path string) (string, string, error) {
	idx := strings.LastIndex(path, "p")
	if idx <= 0 || idx == len(path)-1 {
		return "", "", fmt.Errorf("no partition separator in %s", path)
	}

	drive, pnum := path[:idx], path[idx+1:]
	for _, c := range pnum {
		if c < '0' || c > '9' {
			return "", "", fmt.Errorf("invalid partition number in %s", path)
		}
	}
	return drive, pnum, nil
}

// IsBlockDevice reports whether path exists and is a block special file
func IsBlockDevice(path string) bool {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return false
	}
	return st.Mode&unix.S_IFMT == unix.S_IFBLK
}
