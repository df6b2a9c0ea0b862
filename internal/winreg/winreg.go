// Package winreg reads registry values from the survey target.
package winreg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/praetorian-inc/vantage/internal/pwsh"
	"github.com/praetorian-inc/vantage/pkg/types"
)

var ErrUnknownHive = errors.New("unknown registry hive")

const (
	HKLM = "HKLM"
	HKCU = "HKCU"
	HKU  = "HKU"
)

var hiveNames = map[string]string{
	HKLM: "HKEY_LOCAL_MACHINE",
	HKCU: "HKEY_CURRENT_USER",
	HKU:  "HKEY_USERS",
}

func canonicalHive(hive string) (string, error) {
	h := strings.ToUpper(hive)
	for short, long := range hiveNames {
		if h == short || h == long {
			return short, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownHive, hive)
}

// ShellReader reads values through PowerShell, which works on local and
// remote targets alike.
type ShellReader struct {
	Shell types.Shell
}

const valuesScript = `$p = %s
if (Test-Path -LiteralPath $p) {
  $k = Get-Item -LiteralPath $p
  $o = [ordered]@{}
  foreach ($n in $k.GetValueNames()) { $o[$n] = $k.GetValue($n) }
  [pscustomobject]$o | ConvertTo-Json -Compress -Depth 3
}`

func (r ShellReader) Values(ctx context.Context, hive, path string) (map[string]any, error) {
	h, err := canonicalHive(hive)
	if err != nil {
		return nil, err
	}
	if r.Shell == nil {
		return nil, pwsh.ErrNoShell
	}

	literal := pwsh.Quote(fmt.Sprintf(`Registry::%s\%s`, hiveNames[h], strings.Trim(path, `\`)))
	out, err := r.Shell.Run(ctx, fmt.Sprintf(valuesScript, literal))
	if err != nil {
		return nil, fmt.Errorf("reading %s\\%s: %w", h, path, err)
	}
	return decodeValues(out)
}

func decodeValues(out string) (map[string]any, error) {
	values := map[string]any{}
	out = strings.TrimSpace(out)
	if out == "" {
		return values, nil
	}

	dec := json.NewDecoder(strings.NewReader(out))
	dec.UseNumber()
	if err := dec.Decode(&values); err != nil {
		return nil, fmt.Errorf("failed to parse registry values: %w", err)
	}
	for k, v := range values {
		values[k] = normalize(v)
	}
	return values, nil
}

// normalize turns JSON numbers into uint64 (int64 below the DWORD range) and byte arrays into
// []byte, matching what the native reader returns.
func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if u, err := strconv.ParseUint(t.String(), 10, 64); err == nil {
			return u
		}
		if i, err := t.Int64(); err == nil {
			// PowerShell reports REG_DWORD as Int32.
			if i >= math.MinInt32 {
				return uint64(uint32(i))
			}
			return i
		}
		f, _ := t.Float64()
		return f
	case []any:
		if b, ok := asBytes(t); ok {
			return b
		}
		strs := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return t
			}
			strs = append(strs, s)
		}
		return strs
	}
	return v
}

func asBytes(items []any) ([]byte, bool) {
	if len(items) == 0 {
		return nil, false
	}
	out := make([]byte, len(items))
	for i, e := range items {
		n, ok := e.(json.Number)
		if !ok {
			return nil, false
		}
		u, err := strconv.ParseUint(n.String(), 10, 8)
		if err != nil {
			return nil, false
		}
		out[i] = byte(u)
	}
	return out, true
}

// Uint returns the named value as an unsigned integer.
func Uint(values map[string]any, name string) (uint64, bool) {
	switch v := values[name].(type) {
	case uint64:
		return v, true
	case uint32:
		return uint64(v), true
	case int64:
		if v >= 0 {
			return uint64(v), true
		}
	case int:
		if v >= 0 {
			return uint64(v), true
		}
	case string:
		if u, err := strconv.ParseUint(v, 10, 64); err == nil {
			return u, true
		}
	}
	return 0, false
}

// String returns the named value as text; multi-strings are comma-joined.
func String(values map[string]any, name string) (string, bool) {
	switch v := values[name].(type) {
	case string:
		return v, true
	case []string:
		return strings.Join(v, ", "), true
	case nil:
		return "", false
	default:
		return fmt.Sprint(v), true
	}
}

// Strings returns a multi-string value.
func Strings(values map[string]any, name string) []string {
	switch v := values[name].(type) {
	case []string:
		return v
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}
