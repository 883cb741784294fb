// internal/catalog/postgres.go
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
)

// PostgresSource reads records from a (kind, id, body) table.
type PostgresSource struct {
	db    *sql.DB
	table string
}

func NewPostgresSource(db *sql.DB, table string) *PostgresSource {
	return &PostgresSource{db: db, table: table}
}

func (s *PostgresSource) Name() string { return "postgres" }

func (s *PostgresSource) selectQuery() string {
	return fmt.Sprintf("SELECT id, body FROM %s WHERE kind = $1", pq.QuoteIdentifier(s.table))
}

func (s *PostgresSource) Load(ctx context.Context, kinds []string) (Tables, error) {
	tables := make(Tables, len(kinds))
	query := s.selectQuery()
	for _, kind := range kinds {
		table, err := s.loadKind(ctx, query, kind)
		if err != nil {
			return nil, err
		}
		tables[kind] = table
	}
	return tables, nil
}

func (s *PostgresSource) loadKind(ctx context.Context, query, kind string) (map[string]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx, query, kind)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", kind, err)
	}
	defer rows.Close()

	table := make(map[string]json.RawMessage)
	for rows.Next() {
		var id string
		var body []byte
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		table[id] = json.RawMessage(body)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows %s: %w", kind, err)
	}
	return table, nil
}

// EnsureTable creates the records table when it does not exist.
func (s *PostgresSource) EnsureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	kind TEXT NOT NULL,
	id   TEXT NOT NULL,
	body JSONB NOT NULL,
	PRIMARY KEY (kind, id)
)`, pq.QuoteIdentifier(s.table))
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Seed upserts every record in tables inside one transaction.
func (s *PostgresSource) Seed(ctx context.Context, tables Tables) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	upsert := fmt.Sprintf(
		"INSERT INTO %s (kind, id, body) VALUES ($1, $2, $3) ON CONFLICT (kind, id) DO UPDATE SET body = EXCLUDED.body",
		pq.QuoteIdentifier(s.table),
	)
	for kind, table := range tables {
		for _, id := range sortedIDs(table) {
			if _, err := tx.ExecContext(ctx, upsert, kind, id, string(table[id])); err != nil {
				return fmt.Errorf("upsert %s/%s: %w", kind, id, err)
			}
		}
	}
	return tx.Commit()
}
