// Package jq applies jq expressions to collected JSON documents.
package jq

import (
	"errors"
	"fmt"

	"github.com/itchyny/gojq"
)

var ErrEmptyQuery = errors.New("jq query is empty")

// Query is a compiled jq expression that can be run many times.
type Query struct {
	source string
	code   *gojq.Code
}

func Compile(expr string) (*Query, error) {
	if expr == "" {
		return nil, ErrEmptyQuery
	}
	parsed, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parsing jq query %q: %w", expr, err)
	}
	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, fmt.Errorf("compiling jq query %q: %w", expr, err)
	}
	return &Query{source: expr, code: code}, nil
}

func (q *Query) String() string { return q.source }

// Run evaluates the query against a decoded JSON value and returns every
// value it produces. Input must use the types encoding/json decodes into.
func (q *Query) Run(input any) ([]any, error) {
	var out []any
	iter := q.code.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			var halt *gojq.HaltError
			if errors.As(err, &halt) && halt.Value() == nil {
				break
			}
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}
