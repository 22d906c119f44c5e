package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/phuslu/log"
	"golang.org/x/term"
)

// AppName tags every record so journald/syslog output can be filtered
const AppName = "fixswap"

// New builds the process logger. Terminals get human-readable console output,
// anything else gets one JSON object per line.
func New(level string, w io.Writer) (*log.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var writer log.Writer = &log.IOWriter{Writer: w}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		writer = &log.ConsoleWriter{
			Writer:         w,
			ColorOutput:    true,
			EndWithMessage: true,
		}
	}

	return &log.Logger{
		Level:      lvl,
		TimeFormat: "15:04:05",
		Context:    log.NewContext(nil).Str("app", AppName).Value(),
		Writer:     writer,
	}, nil
}

// Discard returns a logger that drops everything
func Discard() *log.Logger {
	return &log.Logger{
		Level:  log.PanicLevel,
		Writer: &log.IOWriter{Writer: io.Discard},
	}
}

// ParseLevel converts a config level name to a log level
func ParseLevel(level string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return log.TraceLevel, nil
	case "debug":
		return log.DebugLevel, nil
	case "", "info":
		return log.InfoLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", level)
	}
}
