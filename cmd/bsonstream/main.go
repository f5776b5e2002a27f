// Command bsonstream runs a built-in executor as a streaming map or reduce
// task: BSON documents are read from stdin and results written to stdout.
//
//	bsonstream map -executor average -field bc10Year < in.bson > mapped.bson
//	bsonstream reduce -executor average -field bc10Year < sorted.bson > out.bson
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/mongodb/mongo-hadoop/internal/worker"
	"github.com/mongodb/mongo-hadoop/pkg/bsonstream"
	"github.com/mongodb/mongo-hadoop/pkg/executor"
	"github.com/mongodb/mongo-hadoop/pkg/executors"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s map|reduce [flags]\n       %s list\n", os.Args[0], os.Args[0])
	os.Exit(2)
}

// parseMaxFrame turns the -max-frame flag into a Config.MaxFrameSize.
// "none" lifts the limit; a size of zero is rejected since Config would
// read it as the default.
func parseMaxFrame(s string) (int, error) {
	if strings.EqualFold(s, "none") {
		return -1, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid -max-frame %q: %w", s, err)
	}
	if n == 0 || n > math.MaxInt32 {
		return 0, fmt.Errorf("invalid -max-frame %q: must be between 1 B and %s, or none", s, humanize.IBytes(math.MaxInt32))
	}
	return int(n), nil
}

func main() {
	log.SetOutput(os.Stderr)

	if len(os.Args) < 2 {
		usage()
	}

	switch os.Args[1] {
	case "list":
		for _, name := range executors.List() {
			desc, _ := executors.Describe(name)
			fmt.Printf("%-10s %s\n", name, desc)
		}
		return
	case string(worker.PhaseMap), string(worker.PhaseReduce):
	default:
		usage()
	}

	phase := worker.Phase(os.Args[1])
	fs := flag.NewFlagSet(os.Args[1], flag.ExitOnError)
	var (
		executorName = fs.String("executor", "identity", "Executor to run (see list)")
		keyValue     = fs.Bool("kv", false, "Treat records as (key, value) pairs")
		keyField     = fs.String("key-field", bsonstream.DefaultKeyField, "Record key field")
		field        = fs.String("field", "", "Numeric field aggregated by the executor")
		groupBy      = fs.String("group-by", "", "Input field to group by (defaults to the key field)")
		maxFrame     = fs.String("max-frame", humanize.IBytes(bsonstream.DefaultMaxFrameSize), "Largest accepted input document (\"none\" for no limit)")
	)
	fs.Parse(os.Args[2:])

	maxFrameSize, err := parseMaxFrame(*maxFrame)
	if err != nil {
		log.Fatal(err)
	}

	runner, err := worker.NewRunner(worker.Config{
		Phase:    phase,
		Executor: *executorName,
		Options: executor.Options{
			Field:   *field,
			GroupBy: *groupBy,
		},
		KeyValue:     *keyValue,
		KeyField:     *keyField,
		MaxFrameSize: maxFrameSize,
	})
	if err != nil {
		log.Fatal(err)
	}

	if _, err := runner.Run(os.Stdin, os.Stdout); err != nil {
		// The runner has already logged the diagnosis.
		os.Exit(1)
	}
}
