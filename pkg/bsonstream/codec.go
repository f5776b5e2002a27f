package bsonstream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

const (
	// HeaderSize is the size of the little-endian length prefix.
	HeaderSize = 4
	// MinFrameSize is the size of an empty document: prefix plus terminator.
	MinFrameSize = HeaderSize + 1
	// DefaultMaxFrameSize matches the server's maximum message size.
	DefaultMaxFrameSize = 48 * 1024 * 1024
)

// FrameLength parses a frame's length prefix. hdr must hold at least
// HeaderSize bytes.
func FrameLength(hdr []byte) (int32, error) {
	if len(hdr) < HeaderSize {
		return 0, fmt.Errorf("%w: short header (%d bytes)", ErrInvalidLength, len(hdr))
	}
	length := int32(binary.LittleEndian.Uint32(hdr))
	if length < MinFrameSize {
		return length, fmt.Errorf("%w: %d", ErrInvalidLength, length)
	}
	return length, nil
}

// ReadFrame reads one complete frame, prefix included. It returns io.EOF
// when fewer than HeaderSize bytes remain; that is the only clean end of a
// stream. A positive maxFrameSize bounds the accepted length.
func ReadFrame(r io.Reader, maxFrameSize int) ([]byte, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, err
	}

	length, err := FrameLength(hdr[:])
	if err != nil {
		return nil, err
	}
	if maxFrameSize > 0 && int64(length) > int64(maxFrameSize) {
		return nil, fmt.Errorf("%w: %d exceeds maximum %d", ErrInvalidLength, length, maxFrameSize)
	}

	frame := make([]byte, length)
	copy(frame, hdr[:])
	n, err := io.ReadFull(r, frame[HeaderSize:])
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: want %d payload bytes, got %d", ErrTruncatedFrame, length-HeaderSize, n)
		}
		return nil, err
	}

	if frame[length-1] != 0 {
		return nil, fmt.Errorf("%w: last byte is 0x%02x", ErrMissingTerminator, frame[length-1])
	}

	return frame, nil
}

// DecodeNext reads and decodes the next document from r.
func DecodeNext(r io.Reader) (Document, error) {
	frame, err := ReadFrame(r, DefaultMaxFrameSize)
	if err != nil {
		return nil, err
	}
	return DecodeDocument(frame)
}

// DecodeDocument parses one complete frame into a Document.
func DecodeDocument(frame []byte) (Document, error) {
	length, err := FrameLength(frame)
	if err != nil {
		return nil, err
	}
	if int(length) != len(frame) {
		return nil, fmt.Errorf("%w: prefix says %d bytes, frame has %d", ErrMalformedDocument, length, len(frame))
	}
	if frame[len(frame)-1] != 0 {
		return nil, ErrMissingTerminator
	}

	raw := bsoncore.Document(frame)
	if err := raw.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	doc, err := fromCoreDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return doc, nil
}

func fromCoreDocument(raw bsoncore.Document) (Document, error) {
	elems, err := raw.Elements()
	if err != nil {
		return nil, err
	}

	doc := make(Document, 0, len(elems))
	for _, elem := range elems {
		key, err := elem.KeyErr()
		if err != nil {
			return nil, err
		}
		cv, err := elem.ValueErr()
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		v, err := fromCoreValue(cv)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		doc = append(doc, Element{Key: key, Value: v})
	}
	return doc, nil
}

func fromCoreValue(cv bsoncore.Value) (Value, error) {
	bad := fmt.Errorf("corrupt %s value", cv.Type)

	switch cv.Type {
	case bsontype.Int32:
		i, ok := cv.Int32OK()
		if !ok {
			return nil, bad
		}
		return Int32(i), nil
	case bsontype.Int64:
		i, ok := cv.Int64OK()
		if !ok {
			return nil, bad
		}
		return Int64(i), nil
	case bsontype.Double:
		f, ok := cv.DoubleOK()
		if !ok {
			return nil, bad
		}
		return Float64(f), nil
	case bsontype.String:
		s, ok := cv.StringValueOK()
		if !ok {
			return nil, bad
		}
		return String(s), nil
	case bsontype.Boolean:
		b, ok := cv.BooleanOK()
		if !ok {
			return nil, bad
		}
		return Bool(b), nil
	case bsontype.Null:
		return Null{}, nil
	case bsontype.Binary:
		subtype, data, ok := cv.BinaryOK()
		if !ok {
			return nil, bad
		}
		return Binary{Subtype: subtype, Data: append([]byte(nil), data...)}, nil
	case bsontype.DateTime:
		ms, ok := cv.DateTimeOK()
		if !ok {
			return nil, bad
		}
		return DateTime(ms), nil
	case bsontype.Timestamp:
		t, i, ok := cv.TimestampOK()
		if !ok {
			return nil, bad
		}
		return Timestamp{T: t, I: i}, nil
	case bsontype.ObjectID:
		oid, ok := cv.ObjectIDOK()
		if !ok {
			return nil, bad
		}
		return ObjectID(oid), nil
	case bsontype.EmbeddedDocument:
		sub, ok := cv.DocumentOK()
		if !ok {
			return nil, bad
		}
		return fromCoreDocument(sub)
	case bsontype.Array:
		arr, ok := cv.ArrayOK()
		if !ok {
			return nil, bad
		}
		values, err := arr.Values()
		if err != nil {
			return nil, err
		}
		out := make(Array, 0, len(values))
		for _, ev := range values {
			v, err := fromCoreValue(ev)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}

	return nil, fmt.Errorf("%w: BSON type %s", ErrUnsupportedValue, cv.Type)
}

// Encode serializes doc into a complete frame.
func Encode(doc Document) ([]byte, error) {
	return AppendDocument(nil, doc)
}

// AppendDocument appends the frame for doc to dst.
func AppendDocument(dst []byte, doc Document) ([]byte, error) {
	idx, dst := bsoncore.AppendDocumentStart(dst)
	dst, err := appendElements(dst, doc)
	if err != nil {
		return nil, err
	}
	return bsoncore.AppendDocumentEnd(dst, idx)
}

func appendElements(dst []byte, doc Document) ([]byte, error) {
	var err error
	for _, e := range doc {
		if dst, err = appendElement(dst, e.Key, e.Value); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func appendElement(dst []byte, key string, v Value) ([]byte, error) {
	if strings.IndexByte(key, 0) >= 0 {
		return nil, fmt.Errorf("%w: field name %q contains NUL", ErrUnsupportedValue, key)
	}

	switch x := v.(type) {
	case Int32:
		return bsoncore.AppendInt32Element(dst, key, int32(x)), nil
	case Int64:
		return bsoncore.AppendInt64Element(dst, key, int64(x)), nil
	case Float64:
		return bsoncore.AppendDoubleElement(dst, key, float64(x)), nil
	case String:
		return bsoncore.AppendStringElement(dst, key, string(x)), nil
	case Bool:
		return bsoncore.AppendBooleanElement(dst, key, bool(x)), nil
	case Null:
		return bsoncore.AppendNullElement(dst, key), nil
	case Binary:
		return bsoncore.AppendBinaryElement(dst, key, x.Subtype, x.Data), nil
	case DateTime:
		return bsoncore.AppendDateTimeElement(dst, key, int64(x)), nil
	case Timestamp:
		return bsoncore.AppendTimestampElement(dst, key, x.T, x.I), nil
	case ObjectID:
		return bsoncore.AppendObjectIDElement(dst, key, primitive.ObjectID(x)), nil
	case Document:
		idx, dst := bsoncore.AppendDocumentElementStart(dst, key)
		dst, err := appendElements(dst, x)
		if err != nil {
			return nil, err
		}
		return bsoncore.AppendDocumentEnd(dst, idx)
	case Array:
		idx, dst := bsoncore.AppendArrayElementStart(dst, key)
		var err error
		for i, ev := range x {
			if dst, err = appendElement(dst, strconv.Itoa(i), ev); err != nil {
				return nil, err
			}
		}
		return bsoncore.AppendArrayEnd(dst, idx)
	case nil:
		return nil, fmt.Errorf("%w: field %q has no value", ErrUnsupportedValue, key)
	}

	return nil, fmt.Errorf("%w: field %q has type %T", ErrUnsupportedValue, key, v)
}
