// Package worker runs one map or reduce phase of an executor over a BSON
// document stream.
package worker

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/mongodb/mongo-hadoop/pkg/bsonstream"
	"github.com/mongodb/mongo-hadoop/pkg/executor"
	"github.com/mongodb/mongo-hadoop/pkg/executors"
)

var ErrInvalidPhase = errors.New("invalid phase")

// Phase selects the executor function a Runner drives.
type Phase string

const (
	PhaseMap    Phase = "map"
	PhaseReduce Phase = "reduce"
)

// Config holds runner configuration.
type Config struct {
	Phase    Phase
	Executor string
	Options  executor.Options
	// KeyValue projects input onto (key, document) pairs. Input documents
	// must then carry the key field in the map phase too.
	KeyValue     bool
	KeyField     string
	MaxFrameSize int
	// Logger defaults to a logger on stderr; stdout carries data.
	Logger *log.Logger
}

// Runner executes one phase over a single input and output stream.
type Runner struct {
	id     string
	cfg    Config
	exec   executor.Executor
	logger *log.Logger
}

// NewRunner validates cfg and builds its executor.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Phase != PhaseMap && cfg.Phase != PhaseReduce {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPhase, cfg.Phase)
	}
	if cfg.KeyField == "" {
		cfg.KeyField = bsonstream.DefaultKeyField
	}
	cfg.Options.KeyField = cfg.KeyField
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	exec, err := executors.Get(cfg.Executor, cfg.Options)
	if err != nil {
		return nil, err
	}

	return &Runner{
		id:     uuid.New().String(),
		cfg:    cfg,
		exec:   exec,
		logger: cfg.Logger,
	}, nil
}

// ID returns the run id used in log lines.
func (r *Runner) ID() string { return r.id }

// Run reads documents from in, applies the configured phase, and writes the
// results to out. Output produced before a failure is flushed.
func (r *Runner) Run(in io.Reader, out io.Writer) (bsonstream.Stats, error) {
	r.logger.Printf("[WORKER:%s] Starting %s phase (executor: %s, key field: %s, kv: %t)",
		r.id, r.cfg.Phase, r.cfg.Executor, r.cfg.KeyField, r.cfg.KeyValue)

	streamCfg := bsonstream.Config{KeyField: r.cfg.KeyField, MaxFrameSize: r.cfg.MaxFrameSize}
	reader := bsonstream.NewReader(in, streamCfg)
	writer := bsonstream.NewWriter(out, streamCfg)

	stats, err := r.run(reader, writer)
	if err != nil {
		r.logger.Printf("[WORKER:%s] %s", r.id, Diagnose(err, r.cfg.Phase, stats))
		return stats, err
	}

	r.logger.Printf("[WORKER:%s] Completed %s phase: read %s docs (%s), wrote %s docs, %s groups",
		r.id, r.cfg.Phase,
		humanize.Comma(stats.Read), humanize.Bytes(uint64(stats.Offset)),
		humanize.Comma(stats.Written), humanize.Comma(stats.Groups))
	return stats, nil
}

func (r *Runner) run(reader *bsonstream.Reader, writer *bsonstream.Writer) (bsonstream.Stats, error) {
	if r.cfg.KeyValue {
		kr := bsonstream.NewKeyValueReader(reader)
		kw := bsonstream.NewKeyValueWriter(writer)
		kv := pairs{exec: r.exec, keyField: r.cfg.KeyField}
		if r.cfg.Phase == PhaseMap {
			return bsonstream.MapKV(kr, kw, kv)
		}
		return bsonstream.ReduceKV(kr, kw, kv)
	}

	if r.cfg.Phase == PhaseMap {
		return bsonstream.Map(reader, writer, r.exec)
	}
	return bsonstream.Reduce(reader, writer, r.exec)
}
