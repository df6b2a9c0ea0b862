// Package formatters maps result shapes to the code that renders them as text.
package formatters

import (
	"errors"
	"fmt"
	"sync"

	"github.com/praetorian-inc/vantage/pkg/types"
)

var ErrDuplicateFormatter = errors.New("formatter already registered for shape")

// Formatter renders one result to a sink. filter mirrors
// ExecutionContext.FilterResults.
type Formatter interface {
	Format(sink types.TextSink, r types.Result, filter bool) error
}

// Func adapts an ordinary function to the Formatter interface.
type Func func(sink types.TextSink, r types.Result, filter bool) error

func (f Func) Format(sink types.TextSink, r types.Result, filter bool) error {
	return f(sink, r, filter)
}

// For builds a Formatter for results of concrete type T. A result of any
// other type is reported as an error rather than a panic.
func For[T types.Result](fn func(sink types.TextSink, r T, filter bool) error) Formatter {
	return Func(func(sink types.TextSink, r types.Result, filter bool) error {
		v, ok := r.(T)
		if !ok {
			return fmt.Errorf("formatter for %s received %T", types.ShapeOf(r), r)
		}
		return fn(sink, v, filter)
	})
}

// Registry binds at most one formatter to each shape.
type Registry struct {
	mu         sync.RWMutex
	formatters map[types.Shape]Formatter
	fallback   Formatter
}

func NewRegistry() *Registry {
	return &Registry{
		formatters: make(map[types.Shape]Formatter),
		fallback:   DefaultFormatter{},
	}
}

func (r *Registry) Register(shape types.Shape, f Formatter) error {
	if shape == "" {
		return errors.New("formatter registered for empty shape")
	}
	if f == nil {
		return fmt.Errorf("nil formatter for shape %s", shape)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[shape]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateFormatter, shape)
	}
	r.formatters[shape] = f
	return nil
}

// MustRegister is Register for init functions.
func (r *Registry) MustRegister(shape types.Shape, f Formatter) {
	if err := r.Register(shape, f); err != nil {
		panic(err)
	}
}

// Lookup returns the custom formatter bound to shape, if any.
func (r *Registry) Lookup(shape types.Shape) (Formatter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.formatters[shape]
	return f, ok
}

// Resolve returns the formatter for the exact shape of result, or the
// default formatter. It never fails.
func (r *Registry) Resolve(result types.Result) Formatter {
	if f, ok := r.Lookup(types.ShapeOf(result)); ok {
		return f
	}
	return r.fallback
}

// Default is the registry collector packages bind their formatters to.
var Default = NewRegistry()

// Register binds f to shape in the Default registry, panicking on conflict.
func Register(shape types.Shape, f Formatter) {
	Default.MustRegister(shape, f)
}
