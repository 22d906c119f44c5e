package fdisk

import (
	"errors"
	"slices"
	"strings"
)

// ErrPartitionNotFound is returned when the transcript has no row for the partition
var ErrPartitionNotFound = errors.New("partition not found in fdisk output")

const guidAttrPrefix = "GUID:"

// Attributes is the parsed expert-mode row of one partition
type Attributes struct {
	// Fields is the whitespace-split row, device path first
	Fields []string
	// Bits holds the GUID-specific attribute bits listed in the Attrs column
	Bits []string
}

// Has reports whether bit is among the partition's GUID-specific attribute bits
func (a Attributes) Has(bit string) bool {
	return slices.Contains(a.Bits, bit)
}

// FindAttributes locates the row for partition in an fdisk expert-mode "p" transcript.
//
// The row's last column carries the GUID-specific attribute bits as
// "GUID:48,63" when any are set; rows without that column have none. This is
// the only place the transcript layout is interpreted.
func FindAttributes(transcript, partition string) (Attributes, error) {
	for _, line := range strings.Split(transcript, "\n") {
		parts := strings.Fields(line)
		if len(parts) == 0 || parts[0] != partition {
			continue
		}

		attrs := Attributes{Fields: parts}
		last := parts[len(parts)-1]
		if rest, ok := strings.CutPrefix(last, guidAttrPrefix); ok {
			attrs.Bits = strings.Split(rest, ",")
		}
		return attrs, nil
	}
	return Attributes{}, ErrPartitionNotFound
}
