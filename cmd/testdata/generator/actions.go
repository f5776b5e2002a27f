package generator

import (
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/mongodb/mongo-hadoop/pkg/bsonstream"
)

// ActionGenerator produces user activity events:
// {_id: ObjectId, user: "user_N", action: "...", at: date}.
type ActionGenerator struct {
	UserCount int
	rand      *rand.Rand
	users     []bsonstream.String
	start     time.Time
}

var actions = []bsonstream.String{
	"login",
	"logout",
	"viewed product",
	"added to cart",
	"removed from cart",
	"purchased",
	"reviewed product",
	"updated profile",
	"changed password",
	"subscribed to newsletter",
}

func (g *ActionGenerator) Init(r *rand.Rand) {
	g.rand = r
	g.start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	g.users = make([]bsonstream.String, max(g.UserCount, 1))
	for i := range g.users {
		g.users[i] = bsonstream.String("user_" + strconv.Itoa(i))
	}
}

func (g *ActionGenerator) Next(i int64) bsonstream.Document {
	at := g.start.Add(time.Duration(i) * time.Second)
	return bsonstream.D(
		"_id", bsonstream.NewObjectID(),
		"user", g.users[g.rand.IntN(len(g.users))],
		"action", actions[g.rand.IntN(len(actions))],
		"at", bsonstream.NewDateTime(at),
	)
}

func (g *ActionGenerator) Description() string {
	return "User activity events (count or distinct by user or action)"
}

func (g *ActionGenerator) DefaultCount() int64 {
	return 1e4
}
