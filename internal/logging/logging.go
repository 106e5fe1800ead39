package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// LogFilePath builds a per-run log file path using OS-appropriate path
// separators.
func LogFilePath(logsDir string, runStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("geopose.%s.log", runStart.Format("20060102_150405")),
	)
}
