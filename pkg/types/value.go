package types

import (
	"encoding/hex"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Kind identifies which member of the Value variant is populated.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindUint
	KindFloat
	KindBool
	KindTime
	KindBytes
	KindRecord
	KindList
)

var kindNames = [...]string{
	KindNull:   "null",
	KindString: "string",
	KindInt:    "int",
	KindUint:   "uint",
	KindFloat:  "float",
	KindBool:   "bool",
	KindTime:   "time",
	KindBytes:  "bytes",
	KindRecord: "record",
	KindList:   "list",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a closed tagged variant over the field types a collector may report.
// The zero Value is null.
type Value struct {
	kind   Kind
	str    string
	i      int64
	u      uint64
	f      float64
	b      bool
	t      time.Time
	bytes  []byte
	record []Field
	list   []Value
}

// Field is a single named value, as enumerated from a result.
type Field struct {
	Name  string
	Value Value
}

func NullValue() Value { return Value{} }
func StringValue(s string) Value { return Value{kind: KindString, str: s} }
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }
func UintValue(u uint64) Value { return Value{kind: KindUint, u: u} }
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }
func TimeValue(t time.Time) Value { return Value{kind: KindTime, t: t} }
func BytesValue(b []byte) Value { return Value{kind: KindBytes, bytes: b} }
func RecordValue(fs []Field) Value { return Value{kind: KindRecord, record: fs} }
func ListValue(items []Value) Value { return Value{kind: KindList, list: items} }
func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }
func (v Value) Str() string { return v.str }
func (v Value) Int() int64 { return v.i }
func (v Value) Uint() uint64 { return v.u }
func (v Value) Float() float64 { return v.f }
func (v Value) Bool() bool { return v.b }
func (v Value) Time() time.Time { return v.t }
func (v Value) Bytes() []byte { return v.bytes }
func (v Value) Record() []Field { return v.record }
func (v Value) List() []Value { return v.list }

// String renders the value on a single line. Lists are comma-joined, null and
// empty lists render as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindString:
		return v.str
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindUint:
		return strconv.FormatUint(v.u, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindTime:
		if v.t.IsZero() {
			return ""
		}
		return v.t.Format(time.RFC3339)
	case KindBytes:
		return hex.EncodeToString(v.bytes)
	case KindRecord:
		parts := make([]string, 0, len(v.record))
		for _, f := range v.record {
			parts = append(parts, f.Name+"="+f.Value.String())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindList:
		parts := make([]string, 0, len(v.list))
		for _, item := range v.list {
			parts = append(parts, item.String())
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

var (
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
)

// ValueOf converts an arbitrary Go value into a Value.
func ValueOf(x any) Value {
	switch v := x.(type) {
	case nil:
		return NullValue()
	case Value:
		return v
	case string:
		return StringValue(v)
	case bool:
		return BoolValue(v)
	case time.Time:
		return TimeValue(v)
	case time.Duration:
		return StringValue(v.String())
	case []byte:
		if v == nil {
			return NullValue()
		}
		return BytesValue(v)
	case fmt.Stringer:
		rv := reflect.ValueOf(x)
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return NullValue()
		}
		return StringValue(v.String())
	case error:
		return StringValue(v.Error())
	}
	return valueOfReflect(reflect.ValueOf(x))
}

func valueOfReflect(rv reflect.Value) Value {
	if !rv.IsValid() {
		return NullValue()
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return NullValue()
		}
		return ValueOf(rv.Elem().Interface())
	case reflect.String:
		return StringValue(rv.String())
	case reflect.Bool:
		return BoolValue(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if rv.Type() == durationType {
			return StringValue(time.Duration(rv.Int()).String())
		}
		return IntValue(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return UintValue(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return FloatValue(rv.Float())
	case reflect.Slice:
		if rv.IsNil() {
			return NullValue()
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return BytesValue(rv.Bytes())
		}
		fallthrough
	case reflect.Array:
		items := make([]Value, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items = append(items, ValueOf(rv.Index(i).Interface()))
		}
		return ListValue(items)
	case reflect.Map:
		if rv.IsNil() {
			return NullValue()
		}
		keys := rv.MapKeys()
		fields := make([]Field, 0, len(keys))
		for _, k := range keys {
			fields = append(fields, Field{Name: fmt.Sprint(k.Interface()), Value: ValueOf(rv.MapIndex(k).Interface())})
		}
		sortFields(fields)
		return RecordValue(fields)
	case reflect.Struct:
		if rv.Type() == timeType {
			return TimeValue(rv.Interface().(time.Time))
		}
		return RecordValue(fieldsOfStruct(rv))
	}
	return StringValue(fmt.Sprint(rv.Interface()))
}

// FieldsOf enumerates the exported fields of a struct (or pointer to struct)
// in declaration order. A result implementing Introspector supplies its own
// fields. Anything else is reported as a single "Value" field.
func FieldsOf(x any) []Field {
	if in, ok := x.(Introspector); ok {
		return in.Fields()
	}
	rv := reflect.ValueOf(x)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct || rv.Type() == timeType {
		return []Field{{Name: "Value", Value: ValueOf(x)}}
	}
	return fieldsOfStruct(rv)
}

func fieldsOfStruct(rv reflect.Value) []Field {
	rt := rv.Type()
	fields := make([]Field, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := sf.Name
		if tag, ok := sf.Tag.Lookup("vantage"); ok {
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}
		fields = append(fields, Field{Name: name, Value: ValueOf(rv.Field(i).Interface())})
	}
	return fields
}

func sortFields(fields []Field) {
	slices.SortFunc(fields, func(a, b Field) int { return strings.Compare(a.Name, b.Name) })
}
