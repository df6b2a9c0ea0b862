package outputproviders

import (
	"fmt"
	"os"

	"github.com/praetorian-inc/vantage/pkg/types"
)

// AppendMarkdown appends table to the markdown file at path, creating it and
// its directory when missing. Successive runs accumulate in one file.
func AppendMarkdown(path string, table types.MarkdownTable) error {
	if err := EnsureDir(path); err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening summary file: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(table.ToString() + "\n"); err != nil {
		return fmt.Errorf("writing summary file: %w", err)
	}
	return file.Close()
}
