// internal/common/database/elasticsearch.go
package database

import (
	"context"
	"strings"

	"aggregation-gateway/internal/common/config"
	apperrors "aggregation-gateway/internal/common/errors"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticsearchClient holds the client used by the elasticsearch catalog source.
type ElasticsearchClient struct {
	Client    *elasticsearch.Client
	addresses []string
}

func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	addresses := cfg.GetAddresses()
	if len(addresses) == 0 {
		return nil, apperrors.NewConfigInvalidError("database.elasticsearch.addresses is empty")
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:  addresses,
		Username:   cfg.Username,
		Password:   cfg.Password,
		MaxRetries: 1,
	})
	if err != nil {
		return nil, apperrors.NewConfigInvalidError("elasticsearch client: " + err.Error())
	}
	return &ElasticsearchClient{Client: es, addresses: addresses}, nil
}

func (c *ElasticsearchClient) Target() string { return strings.Join(c.addresses, ",") }

func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	res, err := c.Client.Ping(c.Client.Ping.WithContext(ctx))
	if err != nil {
		return apperrors.NewNetworkError(c.Target(), err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return apperrors.NewUpstreamHTTPError(c.Target(), res.StatusCode)
	}
	return nil
}

// Close is a no-op; the client keeps no pool of its own to release.
func (c *ElasticsearchClient) Close() error { return nil }
