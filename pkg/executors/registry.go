// Package executors is the registry of built-in executors.
package executors

import (
	"fmt"
	"slices"

	"github.com/mongodb/mongo-hadoop/pkg/executor"
	"github.com/mongodb/mongo-hadoop/pkg/executors/average"
	"github.com/mongodb/mongo-hadoop/pkg/executors/count"
	"github.com/mongodb/mongo-hadoop/pkg/executors/distinct"
	"github.com/mongodb/mongo-hadoop/pkg/executors/identity"
	"github.com/mongodb/mongo-hadoop/pkg/executors/maxvalue"
)

// Registration describes one built-in executor.
type Registration struct {
	New         executor.Factory
	Description string
}

var Executors = map[string]Registration{
	"identity": {identity.New, identity.Description},
	"average":  {average.New, average.Description},
	"maxvalue": {maxvalue.New, maxvalue.Description},
	"count":    {count.New, count.Description},
	"distinct": {distinct.New, distinct.Description},
}

func IsValid(name string) bool {
	_, exists := Executors[name]
	return exists
}

// Get builds the named executor.
func Get(name string, opts executor.Options) (executor.Executor, error) {
	reg, exists := Executors[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", executor.ErrUnknownExecutor, name)
	}
	return reg.New(opts)
}

// List returns the executor names in sorted order.
func List() []string {
	names := make([]string, 0, len(Executors))
	for name := range Executors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func Describe(name string) (string, error) {
	if reg, exists := Executors[name]; exists {
		return reg.Description, nil
	}
	return "", fmt.Errorf("%w: %s", executor.ErrUnknownExecutor, name)
}
