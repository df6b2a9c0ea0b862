package types

// Shape is the explicit identity of a result's record layout. Formatters are
// bound to a Shape, never to a Go type.
type Shape string

// Result is one finding yielded by a collector. A nil Result tells the
// dispatcher there is nothing to report.
type Result interface {
	Shape() Shape
}

// Introspector is implemented by results that enumerate their own fields
// instead of relying on reflection.
type Introspector interface {
	Fields() []Field
}

// ShapeOf returns the shape of r, or the empty shape for a nil result.
func ShapeOf(r Result) Shape {
	if r == nil || isNilPointer(r) {
		return ""
	}
	return r.Shape()
}
