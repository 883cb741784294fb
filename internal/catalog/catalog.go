// internal/catalog/catalog.go
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	apperrors "aggregation-gateway/internal/common/errors"
	"aggregation-gateway/internal/common/validation"
	"aggregation-gateway/pkg/registry"
)

// Tables maps kind to id to raw JSON record.
type Tables map[string]map[string]json.RawMessage

// Source loads catalog tables for the given kinds.
type Source interface {
	Name() string
	Load(ctx context.Context, kinds []string) (Tables, error)
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

// Catalog is the read-only set of records served by the lookup endpoints.
// It is never mutated after New returns, so reads need no locking.
type Catalog struct {
	registry *registry.ResourceRegistry
	tables   Tables
}

// New compacts every record and checks it against its kind's schema.
// Tables for kinds missing from the registry are rejected.
func New(reg *registry.ResourceRegistry, tables Tables) (*Catalog, error) {
	c := &Catalog{
		registry: reg,
		tables:   make(Tables, len(reg.Resources)),
	}
	for kind := range tables {
		if _, ok := reg.Lookup(kind); !ok {
			return nil, apperrors.NewInvalidRecordError(kind, "", "kind is not registered")
		}
	}

	for _, res := range reg.Resources {
		records := tables[res.Kind]
		table := make(map[string]json.RawMessage, len(records))
		for id, raw := range records {
			var buf bytes.Buffer
			if err := json.Compact(&buf, raw); err != nil {
				return nil, apperrors.NewInvalidRecordError(res.Kind, id, err.Error())
			}
			result, err := validation.ValidateDocument(res.Schema, buf.Bytes())
			if err != nil {
				return nil, apperrors.NewInvalidRecordError(res.Kind, id, err.Error())
			}
			if !result.Valid {
				return nil, apperrors.NewInvalidRecordError(res.Kind, id, result.Summary())
			}
			table[id] = json.RawMessage(buf.Bytes())
		}
		c.tables[res.Kind] = table
	}
	return c, nil
}

// Load builds a catalog from src.
func Load(ctx context.Context, src Source, reg *registry.ResourceRegistry, log Logger) (*Catalog, error) {
	tables, err := src.Load(ctx, reg.Kinds())
	if err != nil {
		return nil, apperrors.NewCatalogLoadFailedError(src.Name(), err)
	}
	c, err := New(reg, tables)
	if err != nil {
		return nil, err
	}
	if log != nil {
		log.Info("catalog loaded", map[string]interface{}{
			"source": src.Name(),
			"counts": c.Counts(),
		})
	}
	return c, nil
}

func (c *Catalog) Lookup(kind, id string) (json.RawMessage, bool) {
	table, ok := c.tables[kind]
	if !ok {
		return nil, false
	}
	rec, ok := table[id]
	return rec, ok
}

func (c *Catalog) Kinds() []string {
	return c.registry.Kinds()
}

// Singular returns the singular resource name used in not-found messages.
func (c *Catalog) Singular(kind string) string {
	if res, ok := c.registry.Lookup(kind); ok {
		return res.SingularName()
	}
	return kind
}

func (c *Catalog) Counts() map[string]int {
	counts := make(map[string]int, len(c.tables))
	for kind, table := range c.tables {
		counts[kind] = len(table)
	}
	return counts
}

// Tables returns a copy of the loaded records, used by the seeder.
func (c *Catalog) Tables() Tables {
	out := make(Tables, len(c.tables))
	for kind, table := range c.tables {
		cp := make(map[string]json.RawMessage, len(table))
		for id, rec := range table {
			cp[id] = rec
		}
		out[kind] = cp
	}
	return out
}

// sortedIDs lists ids in a stable order for seeding.
func sortedIDs(table map[string]json.RawMessage) []string {
	ids := make([]string, 0, len(table))
	for id := range table {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func decodeTable(kind string, data []byte) (map[string]json.RawMessage, error) {
	var table map[string]json.RawMessage
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return table, nil
}
