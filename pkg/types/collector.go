package types

import (
	"context"
	"iter"
	"reflect"
	"slices"
)

// InvokeFunc starts a collector. Obtaining the sequence must not perform any
// collection; work happens as the caller pulls results. A yielded error ends
// the collector's output.
type InvokeFunc func(ctx context.Context, args []string, ec ExecutionContext) iter.Seq2[Result, error]

// Collector describes one pluggable unit of survey work.
type Collector struct {
	Name          string        `validate:"required,alphanum"`
	Description   string        `validate:"required"`
	Groups        []Group       `validate:"required,min=1,dive,oneof=system user misc remote"`
	Remote        RemoteSupport `validate:"min=0,max=2"`
	RequiresAdmin bool
	Invoke        InvokeFunc `validate:"required"`
}

func (c Collector) InGroup(g Group) bool {
	return slices.Contains(c.Groups, g)
}

// Results adapts a slice-producing function into a lazy sequence. fn runs
// only when the sequence is ranged over.
func Results[T Result](fn func() ([]T, error)) iter.Seq2[Result, error] {
	return func(yield func(Result, error) bool) {
		items, err := fn()
		if err != nil {
			yield(nil, err)
			return
		}
		for _, item := range items {
			if !yield(item, nil) {
				return
			}
		}
	}
}

// Fail returns a sequence that yields err and nothing else.
func Fail(err error) iter.Seq2[Result, error] {
	return func(yield func(Result, error) bool) {
		yield(nil, err)
	}
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// IsNil reports whether r is the skip marker, including typed nil pointers.
func IsNil(r Result) bool {
	return r == nil || isNilPointer(r)
}
