package cli

import (
	"context"
	"fmt"
	"time"

	"aggregation-gateway/internal/aggregator"
	"aggregation-gateway/internal/api"
	"aggregation-gateway/internal/catalog"
	"aggregation-gateway/internal/common/config"
	"aggregation-gateway/internal/common/database"
	httpclient "aggregation-gateway/internal/common/http"
	"aggregation-gateway/internal/common/logger"
	"aggregation-gateway/internal/common/observability"
	"aggregation-gateway/pkg/registry"

	"github.com/gin-gonic/gin"
)

// App holds everything the serve command runs.
type App struct {
	Config  *config.Config
	Logger  logger.Logger
	Obs     *observability.Observability
	Catalog *catalog.Catalog
	Router  *gin.Engine
	Client  *httpclient.Client

	closers []func() error
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

func newLogger(cfg config.LoggingConfig) logger.Logger {
	return logger.NewStructured(logger.Options{
		Level:      cfg.Level,
		Format:     cfg.Format,
		Output:     cfg.Output,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAgeDays: cfg.MaxAgeDays,
	})
}

func loadRegistry(cfg config.CatalogConfig) (*registry.ResourceRegistry, error) {
	if cfg.RegistryPath == "" {
		return registry.Default(), nil
	}
	return registry.LoadRegistry(cfg.RegistryPath)
}

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay
	if maxRetries < 1 {
		maxRetries = 1
	}

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// pingWithRetry waits for a catalog store to answer, backing off between tries.
func pingWithRetry(ctx context.Context, store database.Store, retries int, log logger.Logger) error {
	err := retryWithBackoff(func() error {
		return store.Ping(ctx)
	}, retries, time.Second, log, store.Target()+" connection")
	if err != nil {
		_ = store.Close()
	}
	return err
}

// openSource connects the configured catalog source. The returned closer
// releases its connection once the catalog has been read.
func openSource(ctx context.Context, cfg *config.Config, log logger.Logger) (catalog.Source, func() error, error) {
	noop := func() error { return nil }
	retries := cfg.Catalog.LoadRetries

	switch cfg.Catalog.Source {
	case config.SourceRedis:
		rc, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return nil, noop, err
		}
		if err := pingWithRetry(ctx, rc, retries, log); err != nil {
			return nil, noop, err
		}
		return catalog.NewRedisSource(rc.Client, cfg.Catalog.KeyPrefix), rc.Close, nil

	case config.SourcePostgres:
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return nil, noop, err
		}
		if err := pingWithRetry(ctx, pg, retries, log); err != nil {
			return nil, noop, err
		}
		return catalog.NewPostgresSource(pg.DB, cfg.Catalog.Table), pg.Close, nil

	case config.SourceElasticsearch:
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return nil, noop, err
		}
		if err := pingWithRetry(ctx, es, retries, log); err != nil {
			return nil, noop, err
		}
		return catalog.NewElasticsearchSource(es.Client), es.Close, nil

	default:
		return catalog.NewFileSource(cfg.Catalog.DataDir), noop, nil
	}
}

func loadCatalog(ctx context.Context, cfg *config.Config, log logger.Logger) (*catalog.Catalog, error) {
	reg, err := loadRegistry(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	src, closeSource, err := openSource(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	defer func() { _ = closeSource() }()
	return catalog.Load(ctx, src, reg, log)
}

// Bootstrap wires the gateway from configuration.
func Bootstrap(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	obs := observability.New(cfg.App.Name, log)
	obs.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
		Environment: cfg.App.Environment,
	}, log)

	cat, err := loadCatalog(ctx, cfg, log)
	if err != nil {
		obs.Shutdown()
		return nil, err
	}

	client := httpclient.NewClient(httpclient.ClientOptions{
		MaxIdleConns: cfg.Aggregate.MaxIdleConns,
	})
	fetcher := aggregator.NewHTTPFetcher(client, cfg.Aggregate.SubRequestTimeout())
	agg := aggregator.New(fetcher, log, obs, aggregator.Options{
		ChunkSize:      cfg.Aggregate.ChunkSizeBytes,
		MaxConcurrency: cfg.Aggregate.MaxConcurrency,
	})

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.RouterConfig{
		Catalog:       cat,
		Aggregator:    agg,
		Resolver:      aggregator.NewResolver(cfg.Server.SelfBaseURL),
		DefaultMode:   cfg.Aggregate.Mode,
		LargeResource: cfg.LargeResource,
		Logger:        log,
		Version:       cfg.App.Version,
	})

	return &App{
		Config:  cfg,
		Logger:  log,
		Obs:     obs,
		Catalog: cat,
		Router:  router,
		Client:  client,
		closers: []func() error{
			func() error { client.CloseIdleConnections(); return nil },
			func() error { obs.Shutdown(); return nil },
		},
	}, nil
}

func (a *App) Close() {
	for _, c := range a.closers {
		_ = c()
	}
}
