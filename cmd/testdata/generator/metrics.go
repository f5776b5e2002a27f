package generator

import (
	"math"
	"math/rand/v2"

	"github.com/mongodb/mongo-hadoop/pkg/bsonstream"
)

// MetricGenerator produces readings {_id: i, metric: name, value: x}.
type MetricGenerator struct {
	rand *rand.Rand
}

var metricKeys = []bsonstream.String{
	"temperature",
	"humidity",
	"pressure",
	"cpu_usage",
	"memory_usage",
	"disk_io",
	"network_latency",
	"response_time",
	"error_rate",
	"request_count",
}

func (g *MetricGenerator) Init(r *rand.Rand) {
	g.rand = r
}

func (g *MetricGenerator) Next(i int64) bsonstream.Document {
	value := math.Round(g.rand.Float64()*10000) / 100
	return bsonstream.D(
		"_id", i,
		"metric", metricKeys[g.rand.IntN(len(metricKeys))],
		"value", value,
	)
}

func (g *MetricGenerator) Description() string {
	return "Metric readings (maxvalue or average of value grouped by metric)"
}

func (g *MetricGenerator) DefaultCount() int64 {
	return 1e5
}
