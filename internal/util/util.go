// Package util provides small helpers shared by the storage backends and the CLI.
package util

import (
	"strings"
	"time"
)

// TimestampLayout stamps every file a session produces.
const TimestampLayout = "20060102_150405"

var fileNameReplacer = strings.NewReplacer(" ", "_", ":", "_", "/", "_", `\`, "_")

// SanitizeFileName replaces characters that break paths with underscores.
func SanitizeFileName(s string) string {
	return fileNameReplacer.Replace(s)
}

// StampedFileName builds "<name>_<timestamp><ext>" with the name sanitized.
// An empty name yields just the timestamp.
func StampedFileName(name string, t time.Time, ext string) string {
	stamp := t.Format(TimestampLayout)
	if name == "" {
		return stamp + ext
	}
	return SanitizeFileName(name) + "_" + stamp + ext
}
