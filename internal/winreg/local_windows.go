//go:build windows

package winreg

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sys/windows/registry"
)

// LocalReader reads the registry of the machine the process runs on.
type LocalReader struct{}

var roots = map[string]registry.Key{
	HKLM: registry.LOCAL_MACHINE,
	HKCU: registry.CURRENT_USER,
	HKU:  registry.USERS,
}

func (LocalReader) Values(_ context.Context, hive, path string) (map[string]any, error) {
	h, err := canonicalHive(hive)
	if err != nil {
		return nil, err
	}

	k, err := registry.OpenKey(roots[h], path, registry.QUERY_VALUE)
	if errors.Is(err, registry.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s\\%s: %w", h, path, err)
	}
	defer k.Close()

	names, err := k.ReadValueNames(-1)
	if err != nil {
		return nil, fmt.Errorf("listing values of %s\\%s: %w", h, path, err)
	}

	values := make(map[string]any, len(names))
	for _, name := range names {
		v, err := readValue(k, name)
		if err != nil {
			continue
		}
		values[name] = v
	}
	return values, nil
}

func readValue(k registry.Key, name string) (any, error) {
	_, typ, err := k.GetValue(name, nil)
	if err != nil {
		return nil, err
	}
	switch typ {
	case registry.SZ, registry.EXPAND_SZ:
		s, _, err := k.GetStringValue(name)
		return s, err
	case registry.DWORD, registry.QWORD:
		n, _, err := k.GetIntegerValue(name)
		return n, err
	case registry.MULTI_SZ:
		s, _, err := k.GetStringsValue(name)
		return s, err
	default:
		b, _, err := k.GetBinaryValue(name)
		return b, err
	}
}
