// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"aggregation-gateway/internal/common/config"
	apperrors "aggregation-gateway/internal/common/errors"

	_ "github.com/lib/pq"
)

// PostgresClient holds the pool used by the postgres catalog source.
type PostgresClient struct {
	DB     *sql.DB
	target string
}

func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, apperrors.NewConfigInvalidError(fmt.Sprintf("postgres dsn: %v", err))
	}
	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	db.SetConnMaxIdleTime(time.Minute)

	return &PostgresClient{
		DB:     db,
		target: fmt.Sprintf("postgres://%s@%s:%d/%s", cfg.User, cfg.Host, cfg.Port, cfg.Database),
	}, nil
}

// NewPostgresFromDB wraps an already opened handle (sqlmock in tests).
func NewPostgresFromDB(db *sql.DB) *PostgresClient {
	return &PostgresClient{DB: db, target: "postgres"}
}

// Target is the connection address without the password.
func (c *PostgresClient) Target() string { return c.target }

func (c *PostgresClient) Ping(ctx context.Context) error {
	if err := c.DB.PingContext(ctx); err != nil {
		return apperrors.NewNetworkError(c.target, err)
	}
	return nil
}

func (c *PostgresClient) Close() error {
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
