// Package logging builds the slog pipeline used across the simulator: console or
// file text output, an optional OpenTelemetry bridge and Graylog GELF shipping,
// with the current mission and tick attached to every record.
package logging

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/skyward/combat-core/internal/util"
)

// LogFilePath builds a session log file path under logsDir.
func LogFilePath(logsDir, name string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", name, sessionStart.Format(util.TimestampLayout)),
	)
}

// parseLevel converts a string log level to slog.Level. Unknown names are info.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
