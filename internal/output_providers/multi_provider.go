package outputproviders

import (
	"errors"

	"github.com/praetorian-inc/vantage/pkg/types"
)

// MultiProvider forwards every call to each of its providers in order.
type MultiProvider []types.OutputProvider

func (m MultiProvider) Begin(c types.Collector) {
	for _, p := range m {
		p.Begin(c)
	}
}

func (m MultiProvider) Emit(c types.Collector, r types.Result) error {
	var errs []error
	for _, p := range m {
		if err := p.Emit(c, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiProvider) End(c types.Collector, err error) {
	for _, p := range m {
		p.End(c, err)
	}
}

func (m MultiProvider) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ types.OutputProvider = MultiProvider(nil)
	_ types.OutputProvider = (*TextProvider)(nil)
	_ types.OutputProvider = (*StructuredProvider)(nil)
)
