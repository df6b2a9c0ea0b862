package formatters

import (
	"strings"

	"github.com/praetorian-inc/vantage/pkg/types"
)

// NameWidth is the padding applied to field names by the default formatter.
const NameWidth = 30

// DefaultFormatter renders any result as aligned "name : value" lines, one
// per field, in declaration order.
type DefaultFormatter struct{}

func (DefaultFormatter) Format(sink types.TextSink, r types.Result, _ bool) error {
	if types.IsNil(r) {
		return nil
	}
	WriteFields(sink, types.FieldsOf(r), 1)
	sink.WriteLine("")
	return nil
}

// WriteFields prints fields at the given indentation depth. Records are
// expanded on the following lines; lists are joined inline.
func WriteFields(sink types.TextSink, fields []types.Field, depth int) {
	indent := strings.Repeat("  ", depth)
	width := NameWidth - 2*(depth-1)
	if width < 1 {
		width = 1
	}
	for _, f := range fields {
		if f.Value.Kind() == types.KindRecord {
			sink.WriteLinef("%s%-*s :", indent, width, f.Name)
			WriteFields(sink, f.Value.Record(), depth+1)
			continue
		}
		sink.WriteLinef("%s%-*s : %s", indent, width, f.Name, f.Value.String())
	}
}
