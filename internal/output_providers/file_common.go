package outputproviders

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EnsureDir creates the parent directory of path when it does not exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory %s: %w", dir, err)
		}
	}
	return nil
}

// DefaultFileName builds "<prefix>-<timestamp>-<short id>.<ext>".
func DefaultFileName(prefix, ext string) string {
	return fmt.Sprintf("%s-%s-%s.%s", prefix, time.Now().Format("20060102-150405"), shortID(), ext)
}

// shortID is the first ten hex digits of a random UUID.
func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
