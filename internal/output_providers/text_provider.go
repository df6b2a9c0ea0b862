package outputproviders

import (
	"fmt"

	"github.com/praetorian-inc/vantage/pkg/formatters"
	"github.com/praetorian-inc/vantage/pkg/types"
)

// TextProvider renders each result through the formatter registry into a
// text sink, one "====== Name ======" section per collector.
type TextProvider struct {
	sink          types.TextSink
	formatters    *formatters.Registry
	filterResults bool
}

func NewTextProvider(sink types.TextSink, reg *formatters.Registry, filterResults bool) *TextProvider {
	if reg == nil {
		reg = formatters.Default
	}
	return &TextProvider{sink: sink, formatters: reg, filterResults: filterResults}
}

func (p *TextProvider) Begin(c types.Collector) {
	p.sink.WriteLine("")
	p.sink.WriteLinef("====== %s ======", c.Name)
	p.sink.WriteLine("")
}

// Emit formats one result. A failing or panicking formatter leaves a single
// "[X]" line in place of the result.
func (p *TextProvider) Emit(_ types.Collector, r types.Result) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("formatter panic: %v", v)
		}
		if err != nil {
			p.sink.WriteLinef("  [X] failed to format result: %v", err)
		}
	}()
	return p.formatters.Resolve(r).Format(p.sink, r, p.filterResults)
}

func (p *TextProvider) End(c types.Collector, err error) {
	if err != nil {
		p.sink.WriteLinef("  [X] %s failed: %v", c.Name, err)
	}
}

// Close reports the sink's first write error. The sink itself is owned and
// closed by the caller.
func (p *TextProvider) Close() error {
	return p.sink.Err()
}
