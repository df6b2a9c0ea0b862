//go:build !windows

package cmd

import "os"

func isElevated() bool {
	return os.Geteuid() == 0
}
