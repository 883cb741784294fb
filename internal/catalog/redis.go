// internal/catalog/redis.go
package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSource reads one hash per kind, field id and value the JSON record.
type RedisSource struct {
	client redis.Cmdable
	prefix string
}

func NewRedisSource(client redis.Cmdable, prefix string) *RedisSource {
	return &RedisSource{client: client, prefix: prefix}
}

func (s *RedisSource) Name() string { return "redis" }

func (s *RedisSource) key(kind string) string {
	return s.prefix + kind
}

func (s *RedisSource) Load(ctx context.Context, kinds []string) (Tables, error) {
	tables := make(Tables, len(kinds))
	for _, kind := range kinds {
		fields, err := s.client.HGetAll(ctx, s.key(kind)).Result()
		if err != nil {
			return nil, fmt.Errorf("hgetall %s: %w", s.key(kind), err)
		}
		table := make(map[string]json.RawMessage, len(fields))
		for id, value := range fields {
			table[id] = json.RawMessage(value)
		}
		tables[kind] = table
	}
	return tables, nil
}

// Seed replaces the hashes for every kind in tables.
func (s *RedisSource) Seed(ctx context.Context, tables Tables) error {
	for kind, table := range tables {
		key := s.key(kind)
		pipe := s.client.TxPipeline()
		pipe.Del(ctx, key)
		if len(table) > 0 {
			values := make([]interface{}, 0, len(table)*2)
			for _, id := range sortedIDs(table) {
				values = append(values, id, string(table[id]))
			}
			pipe.HSet(ctx, key, values...)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("seed %s: %w", key, err)
		}
	}
	return nil
}
