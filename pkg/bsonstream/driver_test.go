package bsonstream

import (
	"bytes"
	"errors"
	"iter"
	"testing"
)

var identityMapper = MapperFunc(func(docs iter.Seq[Document], emit Emitter) error {
	for doc := range docs {
		if err := emit(doc); err != nil {
			return err
		}
	}
	return nil
})

// averageReducer computes count, sum and average of field per key.
func averageReducer(field string) ReducerFunc {
	return func(key Value, values iter.Seq[Document], emit Emitter) error {
		var count int64
		var sum float64
		for doc := range values {
			v, _ := doc.Lookup(field)
			n, ok := Number(v)
			if !ok {
				continue
			}
			count++
			sum += n
		}
		return emit(D("_id", key, "count", count, "sum", sum, "avg", sum/float64(count)))
	}
}

func treasuryDocs() []Document {
	rates := []float64{8.5, 8.0, 7.0, 5.9, 7.1, 6.6, 6.4, 6.4, 5.3, 5.6, 6.0, 5.0, 4.6, 4.0, 4.3, 4.3, 4.8, 4.6, 3.7, 3.3, 3.3}
	docs := make([]Document, 0, len(rates))
	for i, rate := range rates {
		docs = append(docs, D("_id", 1990+i, "bc10Year", rate))
	}
	return docs
}

func TestMap_Identity(t *testing.T) {
	t.Parallel()

	in := treasuryDocs()
	var out bytes.Buffer

	stats, err := Map(NewReader(bytes.NewReader(encodeStream(t, in...)), Config{}), NewWriter(&out, Config{}), identityMapper)
	if err != nil {
		t.Fatalf("Map() error: %v", err)
	}
	if stats.Read != int64(len(in)) || stats.Written != int64(len(in)) {
		t.Errorf("stats = %+v, want %d read and written", stats, len(in))
	}

	got := decodeStream(t, out.Bytes())
	for i := range in {
		if !got[i].Equal(in[i]) {
			t.Errorf("output[%d] = %s, want %s", i, got[i], in[i])
		}
	}
}

func TestMap_MissingKeyAborts(t *testing.T) {
	t.Parallel()

	mapper := MapperFunc(func(docs iter.Seq[Document], emit Emitter) error {
		for doc := range docs {
			out := doc.Clone()
			if v, _ := doc.Lookup("_id"); Equal(v, Int64(2)) {
				out.Delete("_id")
			}
			// Errors from emit are deliberately ignored here.
			_ = emit(out)
		}
		return nil
	})

	var out bytes.Buffer
	data := encodeStream(t, D("_id", 1), D("_id", 2), D("_id", 3))
	_, err := Map(NewReader(bytes.NewReader(data), Config{}), NewWriter(&out, Config{}), mapper)
	if !errors.Is(err, ErrMissingKey) {
		t.Fatalf("Map() error = %v, want ErrMissingKey", err)
	}

	if got := decodeStream(t, out.Bytes()); len(got) != 2 {
		t.Errorf("output has %d documents, want the 2 valid ones", len(got))
	}
}

func TestMap_DecodeErrorFlushesOutput(t *testing.T) {
	t.Parallel()

	data := encodeStream(t, D("_id", 1), D("_id", 2))
	data = append(data, prefix(20)...)

	var out bytes.Buffer
	stats, err := Map(NewReader(bytes.NewReader(data), Config{}), NewWriter(&out, Config{}), identityMapper)
	if !errors.Is(err, ErrTruncatedFrame) {
		t.Fatalf("Map() error = %v, want ErrTruncatedFrame", err)
	}
	if stats.Read != 2 {
		t.Errorf("stats.Read = %d, want 2", stats.Read)
	}
	if got := decodeStream(t, out.Bytes()); len(got) != 2 {
		t.Errorf("output has %d documents, want 2", len(got))
	}
}

func TestMapKV(t *testing.T) {
	t.Parallel()

	mapper := KVMapperFunc(func(pairs iter.Seq2[Value, Document], emit KVEmitter) error {
		for key, doc := range pairs {
			rate, _ := doc.Lookup("bc10Year")
			if err := emit(KeyValue{Key: key, Value: rate}); err != nil {
				return err
			}
		}
		return nil
	})

	var out bytes.Buffer
	data := encodeStream(t, D("_id", 1990, "bc10Year", 8.5), D("_id", 1991, "bc10Year", 8.0))
	kr := NewKeyValueReader(NewReader(bytes.NewReader(data), Config{}))
	kw := NewKeyValueWriter(NewWriter(&out, Config{}))

	if _, err := MapKV(kr, kw, mapper); err != nil {
		t.Fatalf("MapKV() error: %v", err)
	}

	got := decodeStream(t, out.Bytes())
	want := []Document{D("_id", 1990, "value", 8.5), D("_id", 1991, "value", 8.0)}
	if len(got) != len(want) {
		t.Fatalf("output has %d documents, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("output[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestReduce_Groups(t *testing.T) {
	t.Parallel()

	data := encodeStream(t,
		D("_id", "a", "n", 1), D("_id", "a", "n", 3),
		D("_id", "b", "n", 10),
		D("_id", "a", "n", 5),
	)

	var out bytes.Buffer
	stats, err := Reduce(NewReader(bytes.NewReader(data), Config{}), NewWriter(&out, Config{}), averageReducer("n"))
	if err != nil {
		t.Fatalf("Reduce() error: %v", err)
	}
	if stats.Groups != 3 {
		t.Errorf("stats.Groups = %d, want 3", stats.Groups)
	}

	got := decodeStream(t, out.Bytes())
	want := []Document{
		D("_id", "a", "count", int64(2), "sum", 4.0, "avg", 2.0),
		D("_id", "b", "count", int64(1), "sum", 10.0, "avg", 10.0),
		D("_id", "a", "count", int64(1), "sum", 5.0, "avg", 5.0),
	}
	if len(got) != len(want) {
		t.Fatalf("output has %d documents, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("output[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestReduce_FailingGroupWritesNothing(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	reducer := ReducerFunc(func(key Value, values iter.Seq[Document], emit Emitter) error {
		if err := emit(D("_id", key, "partial", true)); err != nil {
			return err
		}
		if Equal(key, Int64(2)) {
			return boom
		}
		return nil
	})

	data := encodeStream(t, D("_id", 1), D("_id", 2), D("_id", 3))
	var out bytes.Buffer
	stats, err := Reduce(NewReader(bytes.NewReader(data), Config{}), NewWriter(&out, Config{}), reducer)
	if !errors.Is(err, boom) {
		t.Fatalf("Reduce() error = %v, want %v", err, boom)
	}
	if stats.Written != 1 {
		t.Errorf("stats.Written = %d, want 1", stats.Written)
	}

	got := decodeStream(t, out.Bytes())
	if len(got) != 1 {
		t.Fatalf("output has %d documents, want only group 1", len(got))
	}
	if id, _ := got[0].Lookup("_id"); !Equal(id, Int64(1)) {
		t.Errorf("output _id = %s, want 1", Format(id))
	}
}

func TestReduce_OutputWithoutKeyRejectsGroup(t *testing.T) {
	t.Parallel()

	reducer := ReducerFunc(func(key Value, values iter.Seq[Document], emit Emitter) error {
		if err := emit(D("_id", key)); err != nil {
			return err
		}
		return emit(D("total", 1))
	})

	data := encodeStream(t, D("_id", 1))
	var out bytes.Buffer
	_, err := Reduce(NewReader(bytes.NewReader(data), Config{}), NewWriter(&out, Config{}), reducer)
	if !errors.Is(err, ErrMissingKey) {
		t.Fatalf("Reduce() error = %v, want ErrMissingKey", err)
	}
	if out.Len() != 0 {
		t.Errorf("output has %d bytes, want none", out.Len())
	}
}

func TestReduce_DecodeErrorInsideGroup(t *testing.T) {
	t.Parallel()

	data := encodeStream(t, D("_id", 1), D("_id", 2), D("_id", 2))
	data = append(data, append(prefix(20), 1, 2, 3)...)

	var out bytes.Buffer
	_, err := Reduce(NewReader(bytes.NewReader(data), Config{}), NewWriter(&out, Config{}), averageReducer("n"))

	var decErr *DecodeError
	if !errors.As(err, &decErr) || !errors.Is(err, ErrTruncatedFrame) {
		t.Fatalf("Reduce() error = %v, want a truncated-frame *DecodeError", err)
	}

	got := decodeStream(t, out.Bytes())
	if len(got) != 1 {
		t.Fatalf("output has %d documents, want only group 1", len(got))
	}
}

func TestReduce_DecodeErrorInUnreadValues(t *testing.T) {
	t.Parallel()

	// Emits one document per key without looking at the values.
	keysOnly := ReducerFunc(func(key Value, values iter.Seq[Document], emit Emitter) error {
		return emit(D("_id", key))
	})

	data := encodeStream(t, D("_id", 1), D("_id", 2), D("_id", 2))
	data = append(data, append(prefix(20), 1, 2, 3)...)

	var out bytes.Buffer
	stats, err := Reduce(NewReader(bytes.NewReader(data), Config{}), NewWriter(&out, Config{}), keysOnly)
	if !errors.Is(err, ErrTruncatedFrame) {
		t.Fatalf("Reduce() error = %v, want ErrTruncatedFrame", err)
	}
	if stats.Written != 1 {
		t.Errorf("stats.Written = %d, want 1", stats.Written)
	}

	got := decodeStream(t, out.Bytes())
	if len(got) != 1 {
		t.Fatalf("output has %d documents, want only group 1", len(got))
	}
	if id, _ := got[0].Lookup("_id"); !Equal(id, Int64(1)) {
		t.Errorf("output _id = %s, want 1", Format(id))
	}
}

func TestReduce_MixedNumericKeys(t *testing.T) {
	t.Parallel()

	data := encodeStream(t,
		D("_id", int32(1990), "n", 1),
		D("_id", int64(1990), "n", 2),
		D("_id", 1990.0, "n", 3),
		D("_id", int32(1991), "n", 4),
	)

	var out bytes.Buffer
	stats, err := Reduce(NewReader(bytes.NewReader(data), Config{}), NewWriter(&out, Config{}), averageReducer("n"))
	if err != nil {
		t.Fatalf("Reduce() error: %v", err)
	}
	if stats.Groups != 2 {
		t.Errorf("stats.Groups = %d, want 2", stats.Groups)
	}

	got := decodeStream(t, out.Bytes())
	if len(got) != 2 {
		t.Fatalf("output has %d documents, want 2", len(got))
	}
	if count, _ := got[0].Lookup("count"); !Equal(count, Int64(3)) {
		t.Errorf("first group count = %s, want 3", Format(count))
	}
}

func TestReduceKV(t *testing.T) {
	t.Parallel()

	reducer := KVReducerFunc(func(key Value, values iter.Seq[Document], emit KVEmitter) error {
		var sum float64
		var count int
		for doc := range values {
			v, _ := doc.Lookup("value")
			n, _ := Number(v)
			sum += n
			count++
		}
		return emit(KeyValue{Key: key, Value: Float64(sum / float64(count))})
	})

	data := encodeStream(t,
		D("_id", 1990, "value", 8.0), D("_id", 1990, "value", 9.0),
		D("_id", 1991, "value", 7.0),
	)
	kr := NewKeyValueReader(NewReader(bytes.NewReader(data), Config{}))
	var out bytes.Buffer
	kw := NewKeyValueWriter(NewWriter(&out, Config{}))

	if _, err := ReduceKV(kr, kw, reducer); err != nil {
		t.Fatalf("ReduceKV() error: %v", err)
	}

	got := decodeStream(t, out.Bytes())
	want := []Document{D("_id", 1990, "value", 8.5), D("_id", 1991, "value", 7.0)}
	if len(got) != len(want) {
		t.Fatalf("output has %d documents, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("output[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestMapThenReduce_Treasury(t *testing.T) {
	t.Parallel()

	in := treasuryDocs()

	var mapped bytes.Buffer
	if _, err := Map(NewReader(bytes.NewReader(encodeStream(t, in...)), Config{}), NewWriter(&mapped, Config{}), identityMapper); err != nil {
		t.Fatalf("Map() error: %v", err)
	}

	var reduced bytes.Buffer
	if _, err := Reduce(NewReader(&mapped, Config{}), NewWriter(&reduced, Config{}), averageReducer("bc10Year")); err != nil {
		t.Fatalf("Reduce() error: %v", err)
	}

	got := decodeStream(t, reduced.Bytes())
	if len(got) != len(in) {
		t.Fatalf("output has %d documents, want one per year (%d)", len(got), len(in))
	}
	for i, doc := range got {
		wantID, _ := in[i].Lookup("_id")
		wantRate, _ := in[i].Lookup("bc10Year")

		id, _ := doc.Lookup("_id")
		count, _ := doc.Lookup("count")
		avg, _ := doc.Lookup("avg")
		if !Equal(id, wantID) || !Equal(count, Int64(1)) || !Equal(avg, wantRate) {
			t.Errorf("output[%d] = %s, want _id %s count 1 avg %s", i, doc, Format(wantID), Format(wantRate))
		}
	}
}
