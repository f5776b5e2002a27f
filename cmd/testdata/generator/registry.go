package generator

import (
	"fmt"
	"slices"
)

// Registry maps generator names to factories.
var Registry = map[string]func() Generator{
	"actions":  func() Generator { return &ActionGenerator{UserCount: 100} },
	"metrics":  func() Generator { return &MetricGenerator{} },
	"treasury": func() Generator { return &TreasuryGenerator{} },
	"urls":     func() Generator { return &URLGenerator{} },
}

// Get returns a generator by name.
func Get(name string) (Generator, error) {
	factory, exists := Registry[name]
	if !exists {
		return nil, fmt.Errorf("unknown generator: %s", name)
	}
	return factory(), nil
}

// List returns the generator names in sorted order.
func List() []string {
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// SetUserCount changes the number of distinct users of the actions generator.
func SetUserCount(count int) {
	Registry["actions"] = func() Generator { return &ActionGenerator{UserCount: count} }
}
