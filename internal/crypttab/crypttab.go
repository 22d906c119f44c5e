package crypttab

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"math"
	"os"
	"slices"
	"strings"
)

// DefaultPath is the system crypttab location
const DefaultPath = "/etc/crypttab"

const (
	// RandomKeySource is the key file used for throwaway swap keys
	RandomKeySource = "/dev/urandom"

	swapOption = "swap"
	uuidPrefix = "UUID="
)

// Entry is one well-formed crypttab line
type Entry struct {
	Name      string   `json:"name"`
	Device    string   `json:"device"`
	KeySource string   `json:"key_source"`
	Options   []string `json:"options"`
}

// ParseLine splits a crypttab line into its four fields.
// Commented lines and lines without exactly four fields are rejected.
func ParseLine(line string) (Entry, bool) {
	if strings.HasPrefix(line, "#") {
		return Entry{}, false
	}

	parts := strings.Fields(line)
	if len(parts) != 4 {
		return Entry{}, false
	}

	return Entry{
		Name:      parts[0],
		Device:    parts[1],
		KeySource: parts[2],
		Options:   strings.Split(parts[3], ","),
	}, true
}

// IsRandomSwap reports whether the entry is swap keyed from /dev/urandom
// and references its source device by UUID
func (e Entry) IsRandomSwap() bool {
	if e.KeySource != RandomKeySource {
		return false
	}
	if !slices.Contains(e.Options, swapOption) {
		return false
	}
	return strings.HasPrefix(e.Device, uuidPrefix)
}

// UUID returns the device UUID with the UUID= prefix removed
func (e Entry) UUID() string {
	return strings.TrimPrefix(e.Device, uuidPrefix)
}

// Swaps returns the random-key swap entries of the crypttab at path, in file order.
// The file is opened each time the sequence is iterated. A missing file yields nothing.
func Swaps(path string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		f, err := os.Open(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return
			}
			yield(Entry{}, fmt.Errorf("failed to open crypttab: %w", err))
			return
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), math.MaxInt32)
		for scanner.Scan() {
			entry, ok := ParseLine(scanner.Text())
			if !ok || !entry.IsRandomSwap() {
				continue
			}
			if !yield(entry, nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield(Entry{}, fmt.Errorf("failed to read crypttab: %w", err))
		}
	}
}

// SwapUUIDs is a convenience view returning just the UUIDs of the random-key
// swap entries. A read error silently ends the sequence; callers that must
// tell an unreadable crypttab from an empty one iterate Swaps instead.
func SwapUUIDs(path string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for entry, err := range Swaps(path) {
			if err != nil {
				return
			}
			if !yield(entry.UUID()) {
				return
			}
		}
	}
}
