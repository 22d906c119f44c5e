package mapper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActive_Missing(t *testing.T) {
	m := &DeviceMapper{Dir: t.TempDir()}
	assert.False(t, m.Active("fixswap-test-no-such-mapping"))
}

func TestActive_RegularFileIsNotADevice(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fixswap-test-fake"), nil, 0644))

	m := &DeviceMapper{Dir: dir}
	assert.False(t, m.Active("fixswap-test-fake"))
}

func TestNew(t *testing.T) {
	assert.Equal(t, "/dev/mapper", New().Dir)
}
