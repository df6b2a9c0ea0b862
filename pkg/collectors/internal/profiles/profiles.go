// Package profiles enumerates the user profile directories on the local
// machine.
package profiles

import (
	"os"
	"path/filepath"
	"strings"
)

// Root is the directory holding one folder per user profile. When empty it
// is derived from the current user's home directory.
var Root = ""

// Profile is one user's home directory.
type Profile struct {
	User string
	Home string
}

var skipped = map[string]bool{
	"all users":    true,
	"default":      true,
	"default user": true,
	"public":       true,
}

func root() (string, error) {
	if Root != "" {
		return Root, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Dir(home), nil
}

// List returns every profile directory readable by the current process.
// Built-in profiles (Default, Public and so on) are skipped.
func List() ([]Profile, error) {
	dir, err := root()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var out []Profile
	for _, e := range entries {
		if !e.IsDir() || skipped[strings.ToLower(e.Name())] {
			continue
		}
		out = append(out, Profile{User: e.Name(), Home: filepath.Join(dir, e.Name())})
	}
	return out, nil
}
