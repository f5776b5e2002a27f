package bsonstream

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Value is a dynamically typed document field. The set of implementations
// is closed: Int32, Int64, Float64, String, Bool, Null, Binary, DateTime,
// Timestamp, ObjectID, Document and Array.
type Value interface {
	Type() bsontype.Type
	isValue()
}

type (
	Int32   int32
	Int64   int64
	Float64 float64
	String  string
	Bool    bool
	Null    struct{}

	// DateTime is milliseconds since the Unix epoch, UTC.
	DateTime int64

	// ObjectID is the 12-byte MongoDB object identifier.
	ObjectID primitive.ObjectID

	Array []Value
)

// Binary is an opaque blob with a BSON binary subtype.
type Binary struct {
	Subtype byte
	Data    []byte
}

// Timestamp is the internal MongoDB replication timestamp.
type Timestamp struct {
	T uint32
	I uint32
}

func (Int32) Type() bsontype.Type     { return bsontype.Int32 }
func (Int64) Type() bsontype.Type     { return bsontype.Int64 }
func (Float64) Type() bsontype.Type   { return bsontype.Double }
func (String) Type() bsontype.Type    { return bsontype.String }
func (Bool) Type() bsontype.Type      { return bsontype.Boolean }
func (Null) Type() bsontype.Type      { return bsontype.Null }
func (Binary) Type() bsontype.Type    { return bsontype.Binary }
func (DateTime) Type() bsontype.Type  { return bsontype.DateTime }
func (Timestamp) Type() bsontype.Type { return bsontype.Timestamp }
func (ObjectID) Type() bsontype.Type  { return bsontype.ObjectID }
func (Document) Type() bsontype.Type  { return bsontype.EmbeddedDocument }
func (Array) Type() bsontype.Type     { return bsontype.Array }

func (Int32) isValue()     {}
func (Int64) isValue()     {}
func (Float64) isValue()   {}
func (String) isValue()    {}
func (Bool) isValue()      {}
func (Null) isValue()      {}
func (Binary) isValue()    {}
func (DateTime) isValue()  {}
func (Timestamp) isValue() {}
func (ObjectID) isValue()  {}
func (Document) isValue()  {}
func (Array) isValue()     {}

// NewDateTime converts t to a millisecond-precision DateTime.
func NewDateTime(t time.Time) DateTime {
	return DateTime(t.UnixMilli())
}

// Time returns the DateTime as a UTC time.Time.
func (d DateTime) Time() time.Time {
	return time.UnixMilli(int64(d)).UTC()
}

// NewObjectID generates a fresh ObjectID.
func NewObjectID() ObjectID {
	return ObjectID(primitive.NewObjectID())
}

// Hex returns the hex encoding of the id.
func (id ObjectID) Hex() string {
	return primitive.ObjectID(id).Hex()
}

func (id ObjectID) String() string {
	return fmt.Sprintf("ObjectID(%q)", id.Hex())
}

// Equal reports whether a and b hold the same variant with the same contents.
// Documents compare field by field in order.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	switch av := a.(type) {
	case Int32:
		bv, ok := b.(Int32)
		return ok && av == bv
	case Int64:
		bv, ok := b.(Int64)
		return ok && av == bv
	case Float64:
		bv, ok := b.(Float64)
		return ok && sameFloat(float64(av), float64(bv))
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Null:
		_, ok := b.(Null)
		return ok
	case Binary:
		bv, ok := b.(Binary)
		return ok && av.Subtype == bv.Subtype && bytes.Equal(av.Data, bv.Data)
	case DateTime:
		bv, ok := b.(DateTime)
		return ok && av == bv
	case Timestamp:
		bv, ok := b.(Timestamp)
		return ok && av == bv
	case ObjectID:
		bv, ok := b.(ObjectID)
		return ok && av == bv
	case Document:
		bv, ok := b.(Document)
		return ok && av.Equal(bv)
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	}

	return false
}

// sameFloat is == except that NaN matches NaN.
func sameFloat(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}

// SameKey reports whether a and b identify the same record key. Numeric
// variants compare by value, so Int32(1990), Int64(1990) and
// Float64(1990) are one key; everything else compares with Equal.
func SameKey(a, b Value) bool {
	ai, aInt := integer(a)
	bi, bInt := integer(b)
	if aInt && bInt {
		return ai == bi
	}

	af, aNum := Number(a)
	bf, bNum := Number(b)
	if aNum && bNum {
		if aInt {
			return intEqualsFloat(ai, bf)
		}
		if bInt {
			return intEqualsFloat(bi, af)
		}
		return sameFloat(af, bf)
	}
	return Equal(a, b)
}

func integer(v Value) (int64, bool) {
	switch n := v.(type) {
	case Int32:
		return int64(n), true
	case Int64:
		return int64(n), true
	}
	return 0, false
}

// intEqualsFloat compares an integer with an integral float without
// losing precision on large int64 values.
func intEqualsFloat(i int64, f float64) bool {
	if f < -(1<<63) || f >= 1<<63 {
		return false
	}
	return int64(f) == i && float64(i) == f
}

// Number returns v as a float64 when it is one of the numeric variants.
func Number(v Value) (float64, bool) {
	switch n := v.(type) {
	case Int32:
		return float64(n), true
	case Int64:
		return float64(n), true
	case Float64:
		return float64(n), true
	}
	return 0, false
}

// Format renders v in a compact, human-readable form for logs and diagnostics.
func Format(v Value) string {
	switch x := v.(type) {
	case nil:
		return "<nil>"
	case String:
		return fmt.Sprintf("%q", string(x))
	case Null:
		return "null"
	case Binary:
		return fmt.Sprintf("Binary(%d, %d bytes)", x.Subtype, len(x.Data))
	case DateTime:
		return x.Time().Format(time.RFC3339Nano)
	case Timestamp:
		return fmt.Sprintf("Timestamp(%d, %d)", x.T, x.I)
	case ObjectID:
		return x.String()
	case Document:
		return x.String()
	case Array:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, e := range x {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(Format(e))
		}
		buf.WriteByte(']')
		return buf.String()
	default:
		return fmt.Sprint(x)
	}
}
