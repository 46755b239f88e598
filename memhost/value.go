package memhost

import (
	"fmt"
	"reflect"

	"github.com/effectus/natvis-go/host"
)

// TypeKey is the object key holding the object's type name.
const TypeKey = "$type"

// Object is an aggregate value. Keys starting with '$' are metadata and are
// not fields. Objects are reference values: a field holding an Object acts as
// a pointer to it, and nil acts as a null pointer.
type Object map[string]any

// NewObject creates an object of the given type.
func NewObject(typeName string, fields map[string]any) Object {
	obj := Object{TypeKey: typeName}
	for k, v := range fields {
		obj[k] = normalize(v)
	}
	return obj
}

// TypeName returns the declared type of the object.
func (o Object) TypeName() string {
	if t, ok := o[TypeKey].(string); ok && t != "" {
		return t
	}
	return "struct"
}

// Value is a host value backed by Go data.
type Value struct {
	name   string
	typ    string
	data   any
	format host.Format
}

var _ host.Value = (*Value)(nil)

// NewValue wraps data. The type name is derived from the data.
func NewValue(name string, data any) *Value {
	data = normalize(data)
	return &Value{name: name, typ: typeOf(data), data: data}
}

// NewTypedValue wraps data with an explicit type name.
func NewTypedValue(name, typeName string, data any) *Value {
	return &Value{name: name, typ: typeName, data: normalize(data)}
}

func (v *Value) Name() string        { return v.name }
func (v *Value) TypeName() string    { return v.typ }
func (v *Value) Format() host.Format { return v.format }
func (v *Value) Data() any           { return v.data }

// Address is the identity of the referenced object or array. Scalars and null
// pointers have no address.
func (v *Value) Address() uint64 {
	switch d := v.data.(type) {
	case Object:
		return uint64(reflect.ValueOf(d).Pointer())
	case []any:
		if len(d) == 0 {
			return 0
		}
		return uint64(reflect.ValueOf(d).Pointer())
	}
	return 0
}

func (v *Value) WithFormat(f host.Format) host.Value {
	out := *v
	out.format = f
	return &out
}

func (v *Value) WithName(name string) host.Value {
	out := *v
	out.name = name
	return &out
}

func (v *Value) String() string {
	return fmt.Sprintf("%s %s = %v", v.typ, v.name, v.data)
}

func normalize(data any) any {
	switch d := data.(type) {
	case map[string]any:
		return Object(d)
	case []host.Value:
		out := make([]any, len(d))
		for i, el := range d {
			out[i] = el
		}
		return out
	case *Value:
		return d.data
	}
	return data
}

func typeOf(data any) string {
	switch d := data.(type) {
	case nil:
		return "void *"
	case Object:
		return d.TypeName()
	case []any:
		elem := "void"
		if len(d) > 0 {
			elem = typeOf(normalize(d[0]))
		}
		return fmt.Sprintf("%s[%d]", elem, len(d))
	case bool:
		return "bool"
	case string:
		return "const char *"
	case float32, float64:
		return "double"
	case int8, int16, int32, int, int64:
		return "int"
	case uint8, uint16, uint32, uint, uint64:
		return "unsigned int"
	}
	return reflect.TypeOf(data).String()
}

func toInt(data any) (int64, bool) {
	switch d := data.(type) {
	case int:
		return int64(d), true
	case int8:
		return int64(d), true
	case int16:
		return int64(d), true
	case int32:
		return int64(d), true
	case int64:
		return d, true
	case uint:
		return int64(d), true
	case uint8:
		return int64(d), true
	case uint16:
		return int64(d), true
	case uint32:
		return int64(d), true
	case uint64:
		return int64(d), true
	case bool:
		if d {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
