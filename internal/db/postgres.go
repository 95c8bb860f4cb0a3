package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type PostgresAdapter struct {
	db *sql.DB
}

func (p *PostgresAdapter) Provider() string { return "postgres" }

func (p *PostgresAdapter) Close() error { return p.db.Close() }

func (p *PostgresAdapter) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *PostgresAdapter) EnsureLedger(ctx context.Context, table string) error {
	tableName := quoteIdent(table)
	indexName := quoteIdent(fmt.Sprintf("%s_script_idx", table))
	stmt := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id bigserial PRIMARY KEY,
	script_name varchar(255) NOT NULL,
	checksum varchar(128),
	status varchar(32) NOT NULL,
	applied_at timestamptz NOT NULL,
	error text
);
CREATE INDEX IF NOT EXISTS %s ON %s(script_name);
`, tableName, indexName, tableName)
	_, err := p.db.ExecContext(ctx, stmt)
	return err
}

func (p *PostgresAdapter) AppliedNames(ctx context.Context, table string) (map[string]bool, error) {
	stmt := fmt.Sprintf(`SELECT script_name FROM %s WHERE status = $1`, quoteIdent(table))
	rows, err := p.db.QueryContext(ctx, stmt, StatusApplied)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

func (p *PostgresAdapter) RecordApplied(ctx context.Context, table string, entry LedgerEntry) error {
	stmt := fmt.Sprintf(`INSERT INTO %s
		(script_name, checksum, status, applied_at, error)
		VALUES ($1,$2,$3,$4,$5)`, quoteIdent(table))
	_, err := p.db.ExecContext(ctx, stmt,
		entry.ScriptName,
		entry.Checksum,
		entry.Status,
		entry.AppliedAt,
		nullString(entry.Error),
	)
	return err
}

func (p *PostgresAdapter) History(ctx context.Context, table string, limit int) ([]LedgerEntry, error) {
	stmt := fmt.Sprintf(`SELECT script_name, checksum, status, applied_at, error
FROM %s
ORDER BY applied_at DESC, id DESC
LIMIT $1`, quoteIdent(table))
	rows, err := p.db.QueryContext(ctx, stmt, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ScriptName, &e.Checksum, &e.Status, &e.AppliedAt, &e.Error); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *PostgresAdapter) ExecScript(ctx context.Context, script string) error {
	for _, stmt := range splitStatements(script) {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (p *PostgresAdapter) FetchTable(ctx context.Context, schema, table string) (Table, bool, error) {
	if schema == "" {
		schema = "public"
	}
	result := Table{Name: table, Columns: map[string]Column{}}

	var exists bool
	err := p.db.QueryRowContext(ctx, `
SELECT EXISTS (
	SELECT 1 FROM information_schema.tables
	WHERE table_schema=$1 AND table_name=$2 AND table_type='BASE TABLE'
)`, schema, table).Scan(&exists)
	if err != nil {
		return result, false, err
	}
	if !exists {
		return result, false, nil
	}

	rows, err := p.db.QueryContext(ctx, `
SELECT column_name, data_type, is_nullable, column_default
FROM information_schema.columns
WHERE table_schema=$1 AND table_name=$2`, schema, table)
	if err != nil {
		return result, true, err
	}
	defer rows.Close()

	for rows.Next() {
		var col, dataType, nullable string
		var def sql.NullString
		if err := rows.Scan(&col, &dataType, &nullable, &def); err != nil {
			return result, true, err
		}
		result.Columns[col] = Column{
			Name:         col,
			DataType:     dataType,
			IsNullable:   strings.EqualFold(nullable, "YES"),
			DefaultValue: def,
		}
	}
	return result, true, rows.Err()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
