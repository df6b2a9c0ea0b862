package outputproviders

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/praetorian-inc/vantage/internal/jq"
	"github.com/praetorian-inc/vantage/pkg/types"
	"gopkg.in/yaml.v3"
)

type document struct {
	RunID      string            `json:"run_id" yaml:"run_id"`
	Target     string            `json:"target,omitempty" yaml:"target,omitempty"`
	Collectors []*collectorEntry `json:"collectors" yaml:"collectors"`
}

type collectorEntry struct {
	Name    string        `json:"name" yaml:"name"`
	Results []resultEntry `json:"results" yaml:"results"`
	Error   string        `json:"error,omitempty" yaml:"error,omitempty"`
}

type resultEntry struct {
	Shape string `json:"shape" yaml:"shape"`
	Data  any    `json:"data" yaml:"data"`
}

// StructuredProvider serializes the raw results of a run, bypassing text
// formatters, and writes the whole document to w on Close.
type StructuredProvider struct {
	w       io.Writer
	encode  func(io.Writer, any) error
	query   *jq.Query
	doc     document
	current *collectorEntry
	closed  bool
}

// NewJSONProvider writes an indented JSON document. When query is non-nil it
// is applied to each result's data; results it maps to nothing are dropped.
func NewJSONProvider(w io.Writer, runID uuid.UUID, target string, query *jq.Query) *StructuredProvider {
	return newStructured(w, runID, target, query, func(w io.Writer, v any) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

func NewYAMLProvider(w io.Writer, runID uuid.UUID, target string, query *jq.Query) *StructuredProvider {
	return newStructured(w, runID, target, query, func(w io.Writer, v any) error {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	})
}

func newStructured(w io.Writer, runID uuid.UUID, target string, query *jq.Query, encode func(io.Writer, any) error) *StructuredProvider {
	return &StructuredProvider{
		w:      w,
		encode: encode,
		query:  query,
		doc:    document{RunID: runID.String(), Target: target, Collectors: []*collectorEntry{}},
	}
}

func (p *StructuredProvider) Begin(c types.Collector) {
	p.current = &collectorEntry{Name: c.Name, Results: []resultEntry{}}
	p.doc.Collectors = append(p.doc.Collectors, p.current)
}

func (p *StructuredProvider) Emit(c types.Collector, r types.Result) error {
	if p.current == nil || p.current.Name != c.Name {
		p.Begin(c)
	}

	data, err := toGeneric(r)
	if err != nil {
		return fmt.Errorf("encoding %s result: %w", types.ShapeOf(r), err)
	}
	if p.query != nil {
		out, err := p.query.Run(data)
		if err != nil {
			return fmt.Errorf("applying jq filter %q: %w", p.query, err)
		}
		switch len(out) {
		case 0:
			return nil
		case 1:
			data = out[0]
		default:
			data = out
		}
	}

	p.current.Results = append(p.current.Results, resultEntry{Shape: string(types.ShapeOf(r)), Data: data})
	return nil
}

func (p *StructuredProvider) End(c types.Collector, err error) {
	if p.current == nil || p.current.Name != c.Name {
		p.Begin(c)
	}
	if err != nil {
		p.current.Error = err.Error()
	}
	p.current = nil
}

// Close writes the document. Later calls do nothing.
func (p *StructuredProvider) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	if err := p.encode(p.w, p.doc); err != nil {
		return fmt.Errorf("writing output document: %w", err)
	}
	return nil
}

// toGeneric converts a result into plain maps, slices and scalars so jq
// filters and both encoders see the same field names.
func toGeneric(r types.Result) (any, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}
