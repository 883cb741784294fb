// internal/common/config/loader.go
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")
	bindEnv(v)

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// environment overlay, e.g. config.production.yaml
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// bindEnv lets SERVER_ADDRESS override server.address and so on. Keys must be
// registered for Unmarshal to see env-only values.
func bindEnv(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for _, key := range []string{
		"app.name", "app.version", "app.environment",
		"server.address", "server.self_base_url", "server.read_header_timeout", "server.shutdown_timeout",
		"aggregate.mode", "aggregate.timeout", "aggregate.chunk_size_bytes", "aggregate.max_concurrency", "aggregate.max_idle_conns",
		"catalog.source", "catalog.data_dir", "catalog.registry_path", "catalog.key_prefix", "catalog.table", "catalog.load_retries",
		"large_resource.route", "large_resource.path", "large_resource.synthetic_bytes",
		"database.redis.address", "database.redis.password", "database.redis.db",
		"database.postgres.host", "database.postgres.port", "database.postgres.database",
		"database.postgres.user", "database.postgres.password", "database.postgres.sslmode",
		"database.elasticsearch.url", "database.elasticsearch.username", "database.elasticsearch.password",
		"logging.level", "logging.format", "logging.output",
		"tracing.enabled", "tracing.endpoint", "tracing.insecure", "tracing.sample_ratio",
	} {
		_ = v.BindEnv(key)
	}
}

// loadEnvFile loads the first .env found walking up towards the project root.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			// unset variables expand to "" so defaults still apply
			if expanded := os.ExpandEnv(strVal); expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "aggregation-gateway"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":3000"
	}
	if cfg.Server.SelfBaseURL == "" {
		cfg.Server.SelfBaseURL = SelfBaseURL(cfg.Server.Address)
	}
	cfg.Server.SelfBaseURL = strings.TrimSuffix(cfg.Server.SelfBaseURL, "/")
	if cfg.Server.ReadHeaderTimeout == 0 {
		cfg.Server.ReadHeaderTimeout = 5000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30000
	}

	if cfg.Aggregate.Mode == "" {
		cfg.Aggregate.Mode = ModeStreaming
	}
	if cfg.Aggregate.Timeout == 0 {
		cfg.Aggregate.Timeout = 5000
	}
	if cfg.Aggregate.ChunkSizeBytes == 0 {
		cfg.Aggregate.ChunkSizeBytes = 32 * 1024
	}
	if cfg.Aggregate.MaxIdleConns == 0 {
		cfg.Aggregate.MaxIdleConns = 64
	}

	if cfg.Catalog.Source == "" {
		cfg.Catalog.Source = SourceFile
	}
	if cfg.Catalog.KeyPrefix == "" {
		cfg.Catalog.KeyPrefix = "catalog:"
	}
	if cfg.Catalog.Table == "" {
		cfg.Catalog.Table = "catalog_records"
	}
	if cfg.Catalog.LoadRetries == 0 {
		cfg.Catalog.LoadRetries = 5
	}

	if cfg.LargeResource.Route == "" {
		cfg.LargeResource.Route = "/large"
	}
	if cfg.LargeResource.SyntheticBytes == 0 {
		cfg.LargeResource.SyntheticBytes = 64 << 20
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 5
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 2
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = 0.1
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	switch cfg.Aggregate.Mode {
	case ModeStreaming, ModeBuffered:
	default:
		return fmt.Errorf("aggregate.mode must be %q or %q, got %q", ModeStreaming, ModeBuffered, cfg.Aggregate.Mode)
	}
	if cfg.Aggregate.Timeout < 0 {
		return fmt.Errorf("aggregate.timeout must be positive")
	}
	if cfg.Aggregate.ChunkSizeBytes < 512 {
		return fmt.Errorf("aggregate.chunk_size_bytes must be at least 512")
	}
	if cfg.Aggregate.MaxConcurrency < 0 {
		return fmt.Errorf("aggregate.max_concurrency must not be negative")
	}
	if !strings.HasPrefix(cfg.Server.SelfBaseURL, "http://") && !strings.HasPrefix(cfg.Server.SelfBaseURL, "https://") {
		return fmt.Errorf("server.self_base_url must be an absolute http(s) URL")
	}
	if !strings.HasPrefix(cfg.LargeResource.Route, "/") {
		return fmt.Errorf("large_resource.route must start with /")
	}

	switch cfg.Catalog.Source {
	case SourceFile:
	case SourceRedis:
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required for catalog source redis")
		}
	case SourcePostgres:
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required for catalog source postgres")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required for catalog source postgres")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required for catalog source postgres")
		}
	case SourceElasticsearch:
		if len(cfg.Database.Elasticsearch.GetAddresses()) == 0 {
			return fmt.Errorf("database.elasticsearch.addresses or url is required for catalog source elasticsearch")
		}
	default:
		return fmt.Errorf("catalog.source %q is not supported", cfg.Catalog.Source)
	}

	return nil
}

// SelfBaseURL derives the loopback base URL from a listen address.
func SelfBaseURL(address string) string {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return "http://localhost:3000"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
