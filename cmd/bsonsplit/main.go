// Command bsonsplit computes record-aligned input splits for a file of
// BSON documents and prints them, one per line.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/mongodb/mongo-hadoop/internal/catalog"
	"github.com/mongodb/mongo-hadoop/pkg/splitter"
)

var (
	path        = flag.String("path", "", "BSON file to split")
	maxSplit    = flag.String("max-split", "64MiB", "Maximum split size")
	minSplit    = flag.String("min-split", "0", "Minimum split size")
	catalogPath = flag.String("catalog", "", "Split catalog database (optional)")
	noIndex     = flag.Bool("no-index", false, "Neither read nor write the .splits index next to the file")
	progress    = flag.Bool("progress", true, "Show a progress bar when stderr is a terminal")
	verbose     = flag.Bool("v", false, "Log scan details")
	listCatalog = flag.Bool("list", false, "List the entries of -catalog and exit")
)

func parseSize(name, value string) int64 {
	n, err := humanize.ParseBytes(value)
	if err != nil {
		log.Fatalf("invalid -%s %q: %v", name, value, err)
	}
	return int64(n)
}

func main() {
	flag.Parse()

	logger := log.New(io.Discard, "", 0)
	if *verbose {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	if *listCatalog {
		if *catalogPath == "" {
			log.Fatal("-list requires -catalog")
		}
		printCatalog(logger)
		return
	}

	if *path == "" {
		log.Fatal("path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := splitter.Config{
		MaxSplitSize: parseSize("max-split", *maxSplit),
		MinSplitSize: parseSize("min-split", *minSplit),
		Logger:       logger,
	}

	var bar *progressbar.ProgressBar
	if *progress && term.IsTerminal(int(os.Stderr.Fd())) {
		info, err := os.Stat(*path)
		if err != nil {
			log.Fatal(err)
		}
		bar = progressbar.NewOptions64(info.Size(),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("scanning"),
			progressbar.OptionShowBytes(true),
			progressbar.OptionClearOnFinish(),
		)
		cfg.Progress = func(pos int64) { bar.Set64(pos) }
	}

	calc, err := splitter.New(cfg)
	if err != nil {
		log.Fatal(err)
	}

	splits, source, err := resolve(ctx, calc, logger)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		log.Fatal(err)
	}

	printSplits(splits)
	log.Printf("%d splits of at most %s (%s)", len(splits), humanize.IBytes(uint64(calc.SplitSize())), source)
}

func resolve(ctx context.Context, calc *splitter.Calculator, logger *log.Logger) ([]splitter.Split, string, error) {
	switch {
	case *catalogPath != "":
		cat, err := catalog.Open(*catalogPath, logger)
		if err != nil {
			return nil, "", err
		}
		defer cat.Close()

		splits, hit, err := cat.Resolve(ctx, *path, calc)
		if err != nil {
			return nil, "", err
		}
		if !*noIndex {
			if err := splitter.WriteIndex(*path, splits); err != nil {
				return nil, "", err
			}
		}
		if hit {
			return splits, "from catalog", nil
		}
		return splits, "computed", nil

	case !*noIndex:
		splits, fromIndex, err := splitter.LoadOrCompute(ctx, *path, calc)
		if fromIndex {
			return splits, "from index " + splitter.IndexPath(*path), err
		}
		return splits, "computed", err

	default:
		res, err := calc.Compute(ctx, *path)
		if err != nil {
			return nil, "", err
		}
		if res.Truncated != nil {
			log.Printf("warning: %v", res.Truncated)
		}
		return res.Splits, "computed", nil
	}
}

func printSplits(splits []splitter.Split) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SPLIT\tSTART\tLENGTH\tSIZE")
	for i, s := range splits {
		fmt.Fprintf(w, "%d\t%d\t%d\t%s\n", i, s.Start, s.Length, humanize.IBytes(uint64(s.Length)))
	}
	w.Flush()
}

func printCatalog(logger *log.Logger) {
	cat, err := catalog.Open(*catalogPath, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer cat.Close()

	entries, err := cat.List()
	if err != nil {
		log.Fatal(err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tSIZE\tDOCS\tSPLITS\tCOMPUTED")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			e.Path, humanize.IBytes(uint64(e.Size)), humanize.Comma(e.Documents),
			len(e.Splits), humanize.Time(e.ComputedAt))
	}
	w.Flush()
}
