// internal/catalog/elasticsearch.go
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/tidwall/gjson"
)

// maxSearchSize is the largest page Elasticsearch returns without scrolling.
const maxSearchSize = 10000

// ElasticsearchSource reads one index per kind; the document _id is the
// record id and _source the record.
type ElasticsearchSource struct {
	client *elasticsearch.Client
}

func NewElasticsearchSource(client *elasticsearch.Client) *ElasticsearchSource {
	return &ElasticsearchSource{client: client}
}

func (s *ElasticsearchSource) Name() string { return "elasticsearch" }

func (s *ElasticsearchSource) Load(ctx context.Context, kinds []string) (Tables, error) {
	tables := make(Tables, len(kinds))
	for _, kind := range kinds {
		table, err := s.loadKind(ctx, kind)
		if err != nil {
			return nil, err
		}
		tables[kind] = table
	}
	return tables, nil
}

func (s *ElasticsearchSource) loadKind(ctx context.Context, kind string) (map[string]json.RawMessage, error) {
	size := maxSearchSize
	req := esapi.SearchRequest{
		Index: []string{kind},
		Body:  strings.NewReader(`{"query":{"match_all":{}}}`),
		Size:  &size,
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", kind, err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return map[string]json.RawMessage{}, nil
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", kind, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("search %s: %s: %s", kind, res.Status(), gjson.GetBytes(body, "error.reason").String())
	}

	table := make(map[string]json.RawMessage)
	gjson.GetBytes(body, "hits.hits").ForEach(func(_, hit gjson.Result) bool {
		table[hit.Get("_id").String()] = json.RawMessage(hit.Get("_source").Raw)
		return true
	})
	return table, nil
}

// Seed indexes every record with refresh so it is searchable immediately.
func (s *ElasticsearchSource) Seed(ctx context.Context, tables Tables) error {
	for kind, table := range tables {
		for _, id := range sortedIDs(table) {
			req := esapi.IndexRequest{
				Index:      kind,
				DocumentID: id,
				Body:       bytes.NewReader(table[id]),
				Refresh:    "true",
			}
			res, err := req.Do(ctx, s.client)
			if err != nil {
				return fmt.Errorf("index %s/%s: %w", kind, id, err)
			}
			res.Body.Close()
			if res.IsError() {
				return fmt.Errorf("index %s/%s: %s", kind, id, res.Status())
			}
		}
	}
	return nil
}
