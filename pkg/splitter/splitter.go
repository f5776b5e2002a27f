// Package splitter partitions a file of concatenated BSON documents into
// contiguous, record-aligned byte ranges that independent workers can
// process in parallel.
//
// The scan reads only the 4-byte length prefix of each document and seeks
// over the payload, so its cost grows with the number of documents rather
// than the size of the file.
package splitter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/mongodb/mongo-hadoop/pkg/bsonstream"
)

var (
	ErrInvalidSplitSize       = errors.New("invalid split size")
	ErrTruncatedTrailingFrame = errors.New("truncated trailing frame")
	ErrNoIndex                = errors.New("split index not found")
	ErrMalformedIndex         = errors.New("malformed split index")
	ErrCoverage               = errors.New("splits do not cover the file")
)

// checkEvery is how many frames are scanned between context checks and
// progress reports.
const checkEvery = 1024

// Split is a record-aligned byte range of a document file.
type Split struct {
	Start  int64
	Length int64
}

// End returns the offset one past the last byte of the split.
func (s Split) End() int64 { return s.Start + s.Length }

func (s Split) String() string {
	return fmt.Sprintf("[%d, %d)", s.Start, s.End())
}

// Truncation describes an incomplete frame at the end of a file.
type Truncation struct {
	// Offset is where the incomplete frame starts.
	Offset int64
	// Remaining is the number of bytes from Offset to the end of the file.
	Remaining int64
	// Declared is the frame's declared length, or 0 when the prefix itself
	// was cut short.
	Declared int64
}

func (t *Truncation) Error() string {
	if t.Declared == 0 {
		return fmt.Sprintf("%v: %d stray bytes at offset %d", ErrTruncatedTrailingFrame, t.Remaining, t.Offset)
	}
	return fmt.Sprintf("%v: frame at offset %d declares %d bytes, %d remain", ErrTruncatedTrailingFrame, t.Offset, t.Declared, t.Remaining)
}

func (t *Truncation) Unwrap() error { return ErrTruncatedTrailingFrame }

// Result is the outcome of one split computation.
type Result struct {
	Path      string
	Size      int64
	Documents int64
	Splits    []Split
	// Truncated is set when the file ends with an incomplete frame. The
	// splits then cover only the well-formed prefix of the file.
	Truncated *Truncation
}

// Covered returns the number of bytes covered by the splits.
func (r *Result) Covered() int64 {
	if len(r.Splits) == 0 {
		return 0
	}
	return r.Splits[len(r.Splits)-1].End()
}

// Config controls split computation.
type Config struct {
	// MaxSplitSize bounds the length of a split, except for a single frame
	// larger than the bound, which becomes a split of its own.
	MaxSplitSize int64
	// MinSplitSize raises the effective bound when it exceeds MaxSplitSize.
	MinSplitSize int64
	// Logger receives progress and recovery messages. Defaults to log.Default().
	Logger *log.Logger
	// Progress, if set, is called with the scan position periodically and
	// once at the end.
	Progress func(pos int64)
}

// Calculator computes splits for document files.
type Calculator struct {
	cfg       Config
	splitSize int64
}

// New validates cfg and returns a Calculator.
func New(cfg Config) (*Calculator, error) {
	splitSize := max(cfg.MinSplitSize, cfg.MaxSplitSize)
	if splitSize <= 0 {
		return nil, fmt.Errorf("%w: max %d, min %d", ErrInvalidSplitSize, cfg.MaxSplitSize, cfg.MinSplitSize)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Calculator{cfg: cfg, splitSize: splitSize}, nil
}

// SplitSize returns the effective maximum split size.
func (c *Calculator) SplitSize() int64 { return c.splitSize }

// ComputeSplits returns the splits of the file at path, each at most
// maxSplitSize bytes unless it holds a single larger document, and stores
// them in the index at IndexPath(path).
func ComputeSplits(path string, maxSplitSize int64) ([]Split, error) {
	c, err := New(Config{MaxSplitSize: maxSplitSize})
	if err != nil {
		return nil, err
	}
	res, err := c.Compute(context.Background(), path)
	if err != nil {
		return nil, err
	}
	if err := WriteIndex(path, res.Splits); err != nil {
		return nil, err
	}
	return res.Splits, nil
}

// Compute scans the file at path once, front to back, and returns its
// splits in file order. An incomplete frame at the end of the file stops
// the scan and is reported in Result.Truncated rather than as an error; a
// length prefix below the minimum frame size is an error.
func (c *Calculator) Compute(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	adviseRandom(f)

	res := &Result{Path: path, Size: info.Size()}
	c.cfg.Logger.Printf("[SPLITTER] Generating splits for %s (%d bytes, split size %d)", path, res.Size, c.splitSize)

	var (
		hdr   [bsonstream.HeaderSize]byte
		pos   int64
		start int64
		acc   int64
	)

	for pos < res.Size {
		if res.Documents%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			c.progress(pos)
		}

		remaining := res.Size - pos
		if remaining < bsonstream.HeaderSize {
			res.Truncated = &Truncation{Offset: pos, Remaining: remaining}
			break
		}

		if _, err := io.ReadFull(f, hdr[:]); err != nil {
			return nil, fmt.Errorf("read length prefix at offset %d: %w", pos, err)
		}
		length, err := bsonstream.FrameLength(hdr[:])
		if err != nil {
			return nil, &bsonstream.DecodeError{Offset: pos, Records: res.Documents, Kind: bsonstream.ErrInvalidLength, Err: err}
		}

		frameLen := int64(length)
		if frameLen > remaining {
			res.Truncated = &Truncation{Offset: pos, Remaining: remaining, Declared: frameLen}
			break
		}

		if acc > 0 && acc+frameLen > c.splitSize {
			res.Splits = append(res.Splits, Split{Start: start, Length: pos - start})
			start, acc = pos, 0
		}
		acc += frameLen

		if _, err := f.Seek(frameLen-bsonstream.HeaderSize, io.SeekCurrent); err != nil {
			return nil, fmt.Errorf("seek past frame at offset %d: %w", pos, err)
		}
		pos += frameLen
		res.Documents++

		if res.Documents%10000 == 0 {
			c.cfg.Logger.Printf("[SPLITTER] Read %d docs, %d bytes", res.Documents, pos)
		}
	}

	if acc > 0 {
		res.Splits = append(res.Splits, Split{Start: start, Length: pos - start})
	}

	if res.Truncated != nil {
		c.cfg.Logger.Printf("[SPLITTER] %v; closing last split at offset %d", res.Truncated, pos)
	}
	c.progress(pos)
	c.cfg.Logger.Printf("[SPLITTER] %d splits for %d docs in %s", len(res.Splits), res.Documents, path)

	return res, nil
}

func (c *Calculator) progress(pos int64) {
	if c.cfg.Progress != nil {
		c.cfg.Progress(pos)
	}
}

// Contiguous checks that splits start at offset 0 and follow each other
// without gaps or overlaps.
func Contiguous(splits []Split) error {
	var next int64
	for i, s := range splits {
		if s.Length <= 0 {
			return fmt.Errorf("%w: split %d %s is empty", ErrCoverage, i, s)
		}
		if s.Start != next {
			return fmt.Errorf("%w: split %d starts at %d, want %d", ErrCoverage, i, s.Start, next)
		}
		next = s.End()
	}
	return nil
}

// Verify checks that splits cover exactly size bytes.
func Verify(splits []Split, size int64) error {
	if err := Contiguous(splits); err != nil {
		return err
	}
	var end int64
	if len(splits) > 0 {
		end = splits[len(splits)-1].End()
	}
	if end != size {
		return fmt.Errorf("%w: splits end at %d, file has %d bytes", ErrCoverage, end, size)
	}
	return nil
}
