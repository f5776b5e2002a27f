package generator

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/mongodb/mongo-hadoop/pkg/bsonstream"
)

// TreasuryGenerator produces one yield curve document per business day
// starting in January 1990, keyed by date:
// {_id: date, bc3Month: x, bc1Year: x, bc5Year: x, bc10Year: x, bc30Year: x}.
type TreasuryGenerator struct {
	rand  *rand.Rand
	day   time.Time
	level float64
}

func (g *TreasuryGenerator) Init(r *rand.Rand) {
	g.rand = r
	g.day = time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC)
	g.level = 7.9
}

func (g *TreasuryGenerator) Next(int64) bsonstream.Document {
	date := g.day
	g.day = g.day.AddDate(0, 0, 1)
	for g.day.Weekday() == time.Saturday || g.day.Weekday() == time.Sunday {
		g.day = g.day.AddDate(0, 0, 1)
	}

	// Random walk bounded away from zero.
	g.level = math.Max(0.5, g.level+g.rand.NormFloat64()*0.05)

	rate := func(spread float64) float64 {
		return math.Round((g.level+spread)*100) / 100
	}
	return bsonstream.D(
		"_id", bsonstream.NewDateTime(date),
		"bc3Month", rate(-1.2),
		"bc1Year", rate(-0.9),
		"bc5Year", rate(-0.2),
		"bc10Year", rate(0),
		"bc30Year", rate(0.3),
	)
}

func (g *TreasuryGenerator) Description() string {
	return "Daily treasury yield curves (average bc10Year by year)"
}

func (g *TreasuryGenerator) DefaultCount() int64 {
	return 5000
}
