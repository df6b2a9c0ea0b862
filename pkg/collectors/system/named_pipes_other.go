//go:build !windows

package system

import "github.com/praetorian-inc/vantage/pkg/types"

func localPipes() ([]string, error) {
	return nil, types.ErrUnsupportedPlatform
}
