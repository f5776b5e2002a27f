package bsonstream

import (
	"strings"
)

// Element is one named field of a Document.
type Element struct {
	Key   string
	Value Value
}

// Document is an ordered list of fields. Field order is preserved through
// decode and encode.
type Document []Element

// D builds a Document from alternating key, value arguments.
// It panics on an odd argument count or a non-string key.
func D(kv ...any) Document {
	if len(kv)%2 != 0 {
		panic("bsonstream.D: odd number of arguments")
	}

	doc := make(Document, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic("bsonstream.D: key must be a string")
		}
		doc = append(doc, Element{Key: key, Value: ValueOf(kv[i+1])})
	}
	return doc
}

// ValueOf converts common Go values to a Value. Values that already
// implement Value are returned unchanged.
func ValueOf(x any) Value {
	switch v := x.(type) {
	case Value:
		return v
	case nil:
		return Null{}
	case int:
		return Int64(v)
	case int32:
		return Int32(v)
	case int64:
		return Int64(v)
	case float64:
		return Float64(v)
	case float32:
		return Float64(v)
	case string:
		return String(v)
	case bool:
		return Bool(v)
	case []byte:
		return Binary{Data: v}
	}
	panic("bsonstream.ValueOf: unsupported type")
}

// Len returns the number of fields.
func (d Document) Len() int { return len(d) }

// Lookup returns the value of the first field named key.
func (d Document) Lookup(key string) (Value, bool) {
	for _, e := range d {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Has reports whether the document contains a field named key.
func (d Document) Has(key string) bool {
	_, ok := d.Lookup(key)
	return ok
}

// Keys returns the field names in order.
func (d Document) Keys() []string {
	keys := make([]string, len(d))
	for i, e := range d {
		keys[i] = e.Key
	}
	return keys
}

// Set overwrites the field named key in place, or prepends it when absent.
func (d *Document) Set(key string, v Value) {
	for i := range *d {
		if (*d)[i].Key == key {
			(*d)[i].Value = v
			return
		}
	}

	out := make(Document, 0, len(*d)+1)
	out = append(out, Element{Key: key, Value: v})
	*d = append(out, *d...)
}

// Delete removes every field named key.
func (d *Document) Delete(key string) {
	out := (*d)[:0]
	for _, e := range *d {
		if e.Key != key {
			out = append(out, e)
		}
	}
	*d = out
}

// Clone returns a copy whose top-level fields can be modified without
// affecting d. Nested values are shared.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	copy(out, d)
	return out
}

// Equal compares two documents field by field, in order.
func (d Document) Equal(o Document) bool {
	if len(d) != len(o) {
		return false
	}
	for i := range d {
		if d[i].Key != o[i].Key || !Equal(d[i].Value, o[i].Value) {
			return false
		}
	}
	return true
}

func (d Document) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, e := range d {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e.Key)
		sb.WriteString(": ")
		sb.WriteString(Format(e.Value))
	}
	sb.WriteByte('}')
	return sb.String()
}
