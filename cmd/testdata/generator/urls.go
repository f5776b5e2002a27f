package generator

import (
	"fmt"
	"math/rand/v2"

	"github.com/mongodb/mongo-hadoop/pkg/bsonstream"
)

// URLGenerator produces crawled links {_id: i, url: "...", host: "..."}
// with many repeats per host.
type URLGenerator struct {
	rand *rand.Rand
}

var (
	hosts = []string{
		"example.com",
		"api.example.com",
		"blog.example.org",
		"shop.example.net",
		"docs.example.io",
	}
	paths = []string{"/", "/about", "/products", "/cart", "/login", "/search", "/help"}
)

func (g *URLGenerator) Init(r *rand.Rand) {
	g.rand = r
}

func (g *URLGenerator) Next(i int64) bsonstream.Document {
	host := hosts[g.rand.IntN(len(hosts))]
	url := fmt.Sprintf("https://%s%s?id=%d", host, paths[g.rand.IntN(len(paths))], g.rand.IntN(100))
	return bsonstream.D("_id", i, "url", url, "host", host)
}

func (g *URLGenerator) Description() string {
	return "Crawled links (distinct url or count by host)"
}

func (g *URLGenerator) DefaultCount() int64 {
	return 5e4
}
