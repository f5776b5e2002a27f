// Command testdata writes a file of generated BSON documents.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/mongodb/mongo-hadoop/cmd/testdata/generator"
	"github.com/mongodb/mongo-hadoop/pkg/bsonstream"
)

var (
	generatorName = flag.String("generator", "treasury", "Generator to use (see -list)")
	count         = flag.Int64("count", 0, "Number of documents (0 uses the generator default)")
	users         = flag.Int("users", 100, "Distinct users for the actions generator")
	seed          = flag.Uint64("seed", 1, "Random seed")
	outputPath    = flag.String("output", "var/testdata.bson", "Output file path")
	list          = flag.Bool("list", false, "List generators and exit")
)

func main() {
	flag.Parse()

	if *list {
		for _, name := range generator.List() {
			g, _ := generator.Get(name)
			fmt.Printf("%-10s %s\n", name, g.Description())
		}
		return
	}

	generator.SetUserCount(*users)
	g, err := generator.Get(*generatorName)
	if err != nil {
		log.Fatal(err)
	}
	g.Init(rand.New(rand.NewPCG(*seed, *seed)))

	n := *count
	if n <= 0 {
		n = g.DefaultCount()
	}

	if err := os.MkdirAll(filepath.Dir(*outputPath), 0755); err != nil {
		log.Fatal(err)
	}
	file, err := os.Create(*outputPath)
	if err != nil {
		log.Fatal(err)
	}
	defer file.Close()

	w := bsonstream.NewWriter(file, bsonstream.Config{})
	err = w.WriteAll(func(yield func(bsonstream.Document) bool) {
		for i := range n {
			if !yield(g.Next(i)) {
				return
			}
		}
	})
	if err != nil {
		log.Fatalf("write %s: %v", *outputPath, err)
	}

	info, err := file.Stat()
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s %s documents to %s (%s)",
		humanize.Comma(w.Count()), *generatorName, *outputPath, humanize.Bytes(uint64(info.Size())))
}
