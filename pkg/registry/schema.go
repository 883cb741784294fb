// pkg/registry/schema.go
package registry

// ResourceRegistry lists the resource kinds served by the lookup endpoints.
type ResourceRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Resources   []Resource `json:"resources"`
}

type Resource struct {
	Kind        string                 `json:"kind"`
	Singular    string                 `json:"singular,omitempty"`
	Description string                 `json:"description,omitempty"`
	Schema      map[string]interface{} `json:"schema,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
}
