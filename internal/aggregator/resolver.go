// internal/aggregator/resolver.go
package aggregator

import (
	"strings"

	"aggregation-gateway/internal/models"
)

// Resolver decides where each sub-request goes. Targets starting with "/"
// are served by the gateway itself and are prefixed with its own base URL.
// Anything else is used verbatim; a malformed URL surfaces later as a
// transport failure.
type Resolver struct {
	selfBaseURL string
}

func NewResolver(selfBaseURL string) *Resolver {
	return &Resolver{selfBaseURL: strings.TrimRight(selfBaseURL, "/")}
}

func (r *Resolver) Resolve(spec models.SubRequestSpec) models.ResolvedTarget {
	if strings.HasPrefix(spec.RawTarget, "/") {
		return models.ResolvedTarget{
			Name:       spec.Name,
			URL:        r.selfBaseURL + spec.RawTarget,
			IsInternal: true,
		}
	}
	return models.ResolvedTarget{
		Name: spec.Name,
		URL:  spec.RawTarget,
	}
}

func (r *Resolver) ResolveAll(specs []models.SubRequestSpec) []models.ResolvedTarget {
	targets := make([]models.ResolvedTarget, len(specs))
	for i, spec := range specs {
		targets[i] = r.Resolve(spec)
	}
	return targets
}
