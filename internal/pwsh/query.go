package pwsh

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/praetorian-inc/vantage/pkg/types"
)

// DecodeJSON parses ConvertTo-Json output, which is a bare object when the
// pipeline produced one item and an array otherwise. Empty output is no items.
func DecodeJSON[T any](output string) ([]T, error) {
	output = strings.TrimSpace(output)
	if output == "" || output == "null" {
		return nil, nil
	}

	if strings.HasPrefix(output, "[") {
		var items []T
		if err := json.Unmarshal([]byte(output), &items); err != nil {
			return nil, fmt.Errorf("failed to parse PowerShell output: %w", err)
		}
		return items, nil
	}

	var item T
	if err := json.Unmarshal([]byte(output), &item); err != nil {
		return nil, fmt.Errorf("failed to parse PowerShell output: %w", err)
	}
	return []T{item}, nil
}

// Query runs a pipeline, appends ConvertTo-Json and decodes the result.
func Query[T any](ctx context.Context, sh types.Shell, pipeline string) ([]T, error) {
	if sh == nil {
		return nil, ErrNoShell
	}
	out, err := sh.Run(ctx, pipeline+" | ConvertTo-Json -Compress -Depth 4")
	if err != nil {
		return nil, err
	}
	return DecodeJSON[T](out)
}

// QueryCIM selects properties of every instance of a CIM class.
func QueryCIM[T any](ctx context.Context, sh types.Shell, class string, properties ...string) ([]T, error) {
	pipeline := "Get-CimInstance -ClassName " + Quote(class)
	if len(properties) > 0 {
		pipeline += " | Select-Object " + strings.Join(properties, ",")
	}
	return Query[T](ctx, sh, pipeline)
}
