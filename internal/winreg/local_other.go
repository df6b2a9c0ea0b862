//go:build !windows

package winreg

import (
	"context"

	"github.com/praetorian-inc/vantage/pkg/types"
)

// LocalReader reads the registry of the machine the process runs on.
type LocalReader struct{}

func (LocalReader) Values(context.Context, string, string) (map[string]any, error) {
	return nil, types.ErrUnsupportedPlatform
}
