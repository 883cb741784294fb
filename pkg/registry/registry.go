// pkg/registry/registry.go
package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

//go:embed default-registry.json
var defaultRegistry []byte

func LoadRegistry(path string) (*ResourceRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a registry document and checks that kinds are usable as
// single path segments.
func Parse(data []byte) (*ResourceRegistry, error) {
	var reg ResourceRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}

	seen := make(map[string]bool, len(reg.Resources))
	for i, res := range reg.Resources {
		if res.Kind == "" || strings.ContainsAny(res.Kind, "/?#") {
			return nil, fmt.Errorf("resource %d: invalid kind %q", i, res.Kind)
		}
		if seen[res.Kind] {
			return nil, fmt.Errorf("resource %d: duplicate kind %q", i, res.Kind)
		}
		seen[res.Kind] = true
	}
	return &reg, nil
}

// Default returns the built-in customers/products registry.
func Default() *ResourceRegistry {
	reg, err := Parse(defaultRegistry)
	if err != nil {
		panic(err)
	}
	return reg
}

func (r *ResourceRegistry) Lookup(kind string) (Resource, bool) {
	for _, res := range r.Resources {
		if res.Kind == kind {
			return res, true
		}
	}
	return Resource{}, false
}

func (r *ResourceRegistry) Kinds() []string {
	kinds := make([]string, 0, len(r.Resources))
	for _, res := range r.Resources {
		kinds = append(kinds, res.Kind)
	}
	return kinds
}

// SingularName is the name used in "<singular> doesn't exist" messages.
// Without an explicit value a single trailing "s" is dropped from the kind.
func (res Resource) SingularName() string {
	if res.Singular != "" {
		return res.Singular
	}
	return strings.TrimSuffix(res.Kind, "s")
}
