package applog

import (
	"fmt"
	"os"
)

// MaxLogFileBytes is the diagnostic log file's size cap. The file is
// truncated on the next process start if it is already over the cap,
// rather than mid-write, matching the original implementation's
// rotate-at-open behavior.
const MaxLogFileBytes = 5 * 1024 * 1024

// OpenLogFile opens (or truncates, then opens) path for append-only writes,
// suitable for passing to New.
func OpenLogFile(path string) (*os.File, error) {
	info, err := os.Stat(path)
	if err == nil && info.Size() > MaxLogFileBytes {
		if err := os.Truncate(path, 0); err != nil {
			return nil, fmt.Errorf("truncate oversized log file: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
