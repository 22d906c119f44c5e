package mapper

import (
	"os"
	"path/filepath"

	"github.com/anatol/devmapper.go"
)

// DeviceMapper answers whether a dm-crypt target is currently set up
type DeviceMapper struct {
	// Dir holds the udev-managed /dev/mapper links, consulted when the ioctl lookup fails
	Dir string
}

// New returns a DeviceMapper using /dev/mapper
func New() *DeviceMapper {
	return &DeviceMapper{Dir: "/dev/mapper"}
}

// Active reports whether the mapping called name exists
func (m *DeviceMapper) Active(name string) bool {
	if _, err := devmapper.InfoByName(name); err == nil {
		return true
	}

	// Without CAP_SYS_ADMIN the ioctl fails; fall back to the udev link
	fi, err := os.Stat(filepath.Join(m.Dir, name))
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeDevice != 0
}
