// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	Aggregate     AggregateConfig     `mapstructure:"aggregate"`
	Catalog       CatalogConfig       `mapstructure:"catalog"`
	LargeResource LargeResourceConfig `mapstructure:"large_resource"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Tracing       TracingConfig       `mapstructure:"tracing"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
	// SelfBaseURL prefixes internal targets such as /customers/1.
	SelfBaseURL       string `mapstructure:"self_base_url"`
	ReadHeaderTimeout int    `mapstructure:"read_header_timeout"` // milliseconds
	ShutdownTimeout   int    `mapstructure:"shutdown_timeout"`    // milliseconds
}

// Aggregation modes.
const (
	ModeStreaming = "streaming"
	ModeBuffered  = "buffered"
)

type AggregateConfig struct {
	Mode           string `mapstructure:"mode"`
	Timeout        int    `mapstructure:"timeout"` // milliseconds
	ChunkSizeBytes int    `mapstructure:"chunk_size_bytes"`
	MaxConcurrency int    `mapstructure:"max_concurrency"` // buffered mode only, 0 = unlimited
	MaxIdleConns   int    `mapstructure:"max_idle_conns"`
}

// Catalog sources.
const (
	SourceFile          = "file"
	SourceRedis         = "redis"
	SourcePostgres      = "postgres"
	SourceElasticsearch = "elasticsearch"
)

type CatalogConfig struct {
	Source       string `mapstructure:"source"`
	DataDir      string `mapstructure:"data_dir"`
	RegistryPath string `mapstructure:"registry_path"`
	KeyPrefix    string `mapstructure:"key_prefix"`
	Table        string `mapstructure:"table"`
	LoadRetries  int    `mapstructure:"load_retries"`
}

type LargeResourceConfig struct {
	Route          string `mapstructure:"route"`
	Path           string `mapstructure:"path"`
	SyntheticBytes int64  `mapstructure:"synthetic_bytes"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetAddresses returns Addresses, falling back to URL.
func (e ElasticsearchConfig) GetAddresses() []string {
	if len(e.Addresses) > 0 {
		return e.Addresses
	}
	if e.URL != "" {
		return []string{e.URL}
	}
	return nil
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// SubRequestTimeout is the per sub-request deadline.
func (a AggregateConfig) SubRequestTimeout() time.Duration {
	return GetDuration(a.Timeout)
}
