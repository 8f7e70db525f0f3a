// Package database introspects the relational source that gets synced into
// the vector index: schemas, tables, columns and row data.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atabot/atabot/internal/config"
	"github.com/atabot/atabot/internal/logger"
)

// Column describes one table column.
type Column struct {
	Name          string `json:"name"`
	DataType      string `json:"data_type"`
	Nullable      bool   `json:"nullable"`
	PrimaryKey    bool   `json:"primary_key"`
	ForeignKey    bool   `json:"foreign_key"`
	ForeignTable  string `json:"foreign_table,omitempty"`
	ForeignColumn string `json:"foreign_column,omitempty"`
}

// Table describes one table with its columns and row count.
type Table struct {
	Schema   string   `json:"schema"`
	Name     string   `json:"name"`
	Columns  []Column `json:"columns"`
	RowCount int64    `json:"row_count"`
}

// Introspector enumerates schemas, tables and row data.
type Introspector interface {
	Schemas(ctx context.Context) ([]string, error)
	Tables(ctx context.Context, schema string) ([]Table, error)
	// TableData returns rows as column-name keyed maps. limit <= 0 reads
	// the whole table.
	TableData(ctx context.Context, schema, table string, limit int) ([]map[string]any, error)
	Close()
}

// Postgres implements Introspector over a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Introspector = &Postgres{}

// NewPostgres connects a pool and verifies it with a ping.
func NewPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Infof("database connection pool established (max_conns=%d)", poolConfig.MaxConns)
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() { p.pool.Close() }

const schemasQuery = `
SELECT schema_name
FROM information_schema.schemata
WHERE schema_name NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
ORDER BY schema_name`

func (p *Postgres) Schemas(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, schemasQuery)
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	defer rows.Close()
	var schemas []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan schema name: %w", err)
		}
		schemas = append(schemas, name)
	}
	return schemas, rows.Err()
}

const tablesQuery = `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = $1
ORDER BY table_name`

func (p *Postgres) Tables(ctx context.Context, schema string) ([]Table, error) {
	rows, err := p.pool.Query(ctx, tablesQuery, schema)
	if err != nil {
		return nil, fmt.Errorf("list tables in %s: %w", schema, err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tables := make([]Table, 0, len(names))
	for _, name := range names {
		columns, err := p.tableColumns(ctx, schema, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, Table{
			Schema:   schema,
			Name:     name,
			Columns:  columns,
			RowCount: p.rowCount(ctx, schema, name),
		})
	}
	return tables, nil
}

const columnsQuery = `
SELECT
    c.column_name,
    c.data_type,
    c.is_nullable = 'YES',
    pk.column_name IS NOT NULL,
    fk.column_name IS NOT NULL,
    COALESCE(fk.foreign_table_name, ''),
    COALESCE(fk.foreign_column_name, '')
FROM information_schema.columns c
LEFT JOIN (
    SELECT kcu.column_name, kcu.table_name, kcu.table_schema
    FROM information_schema.table_constraints tc
    JOIN information_schema.key_column_usage kcu
        ON tc.constraint_name = kcu.constraint_name
        AND tc.table_schema = kcu.table_schema
    WHERE tc.constraint_type = 'PRIMARY KEY'
) pk ON c.column_name = pk.column_name
    AND c.table_name = pk.table_name
    AND c.table_schema = pk.table_schema
LEFT JOIN (
    SELECT kcu.column_name, kcu.table_name, kcu.table_schema,
           ccu.table_name AS foreign_table_name,
           ccu.column_name AS foreign_column_name
    FROM information_schema.table_constraints tc
    JOIN information_schema.key_column_usage kcu
        ON tc.constraint_name = kcu.constraint_name
        AND tc.table_schema = kcu.table_schema
    JOIN information_schema.constraint_column_usage ccu
        ON tc.constraint_name = ccu.constraint_name
        AND tc.table_schema = ccu.table_schema
    WHERE tc.constraint_type = 'FOREIGN KEY'
) fk ON c.column_name = fk.column_name
    AND c.table_name = fk.table_name
    AND c.table_schema = fk.table_schema
WHERE c.table_schema = $1 AND c.table_name = $2
ORDER BY c.ordinal_position`

func (p *Postgres) tableColumns(ctx context.Context, schema, table string) ([]Column, error) {
	rows, err := p.pool.Query(ctx, columnsQuery, schema, table)
	if err != nil {
		return nil, fmt.Errorf("list columns of %s.%s: %w", schema, table, err)
	}
	defer rows.Close()
	var columns []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.DataType, &c.Nullable, &c.PrimaryKey, &c.ForeignKey, &c.ForeignTable, &c.ForeignColumn); err != nil {
			return nil, fmt.Errorf("scan column of %s.%s: %w", schema, table, err)
		}
		columns = append(columns, c)
	}
	return columns, rows.Err()
}

func (p *Postgres) rowCount(ctx context.Context, schema, table string) int64 {
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s", pgx.Identifier{schema, table}.Sanitize())
	var n int64
	if err := p.pool.QueryRow(ctx, q).Scan(&n); err != nil {
		logger.Warnf("could not count rows of %s.%s: %v", schema, table, err)
		return 0
	}
	return n
}

func (p *Postgres) TableData(ctx context.Context, schema, table string, limit int) ([]map[string]any, error) {
	q := fmt.Sprintf("SELECT * FROM %s", pgx.Identifier{schema, table}.Sanitize())
	var rows pgx.Rows
	var err error
	if limit > 0 {
		rows, err = p.pool.Query(ctx, q+" LIMIT $1", limit)
	} else {
		rows, err = p.pool.Query(ctx, q)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row of %s.%s: %w", schema, table, err)
		}
		row := make(map[string]any, len(fields))
		for i, fd := range fields {
			row[string(fd.Name)] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// normalizeValue converts driver types into plain JSON-friendly values.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.Format(time.RFC3339)
	case []byte:
		return string(t)
	case [16]byte: // uuid
		return fmt.Sprintf("%x-%x-%x-%x-%x", t[0:4], t[4:6], t[6:8], t[8:10], t[10:16])
	default:
		return v
	}
}
