//go:build windows

package system

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
)

func localPipes() ([]string, error) {
	pattern, err := windows.UTF16PtrFromString(`\\.\pipe\*`)
	if err != nil {
		return nil, err
	}

	var data windows.Win32finddata
	h, err := windows.FindFirstFile(pattern, &data)
	if err != nil {
		return nil, fmt.Errorf("enumerating named pipes: %w", err)
	}
	defer windows.FindClose(h)

	var names []string
	for {
		names = append(names, windows.UTF16ToString(data.FileName[:]))
		if err := windows.FindNextFile(h, &data); err != nil {
			if errors.Is(err, windows.ERROR_NO_MORE_FILES) {
				return names, nil
			}
			return names, fmt.Errorf("enumerating named pipes: %w", err)
		}
	}
}
