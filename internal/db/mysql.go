package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type MySQLAdapter struct {
	db *sql.DB
}

func (m *MySQLAdapter) Provider() string { return "mysql" }

func (m *MySQLAdapter) Close() error { return m.db.Close() }

func (m *MySQLAdapter) Ping(ctx context.Context) error { return m.db.PingContext(ctx) }

func (m *MySQLAdapter) EnsureLedger(ctx context.Context, table string) error {
	stmt := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id bigint AUTO_INCREMENT PRIMARY KEY,
	script_name varchar(255) NOT NULL,
	checksum varchar(128),
	status varchar(32) NOT NULL,
	applied_at timestamp NOT NULL DEFAULT CURRENT_TIMESTAMP,
	error text,
	INDEX schemadoctor_script_idx (script_name)
) ENGINE=InnoDB;
`, backquoteIdent(table))
	_, err := m.db.ExecContext(ctx, stmt)
	return err
}

func (m *MySQLAdapter) AppliedNames(ctx context.Context, table string) (map[string]bool, error) {
	stmt := fmt.Sprintf(`SELECT script_name FROM %s WHERE status = ?`, backquoteIdent(table))
	rows, err := m.db.QueryContext(ctx, stmt, StatusApplied)
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

func (m *MySQLAdapter) RecordApplied(ctx context.Context, table string, entry LedgerEntry) error {
	stmt := fmt.Sprintf(`INSERT INTO %s
		(script_name, checksum, status, applied_at, error)
		VALUES (?,?,?,?,?)`, backquoteIdent(table))
	_, err := m.db.ExecContext(ctx, stmt,
		entry.ScriptName,
		entry.Checksum,
		entry.Status,
		entry.AppliedAt,
		nullString(entry.Error),
	)
	return err
}

func (m *MySQLAdapter) History(ctx context.Context, table string, limit int) ([]LedgerEntry, error) {
	stmt := fmt.Sprintf(`SELECT script_name, checksum, status, applied_at, error
FROM %s
ORDER BY applied_at DESC, id DESC
LIMIT ?`, backquoteIdent(table))
	rows, err := m.db.QueryContext(ctx, stmt, limit)
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

func (m *MySQLAdapter) ExecScript(ctx context.Context, script string) error {
	for _, stmt := range splitStatements(script) {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (m *MySQLAdapter) FetchTable(ctx context.Context, schema, table string) (Table, bool, error) {
	schemaName := strings.TrimSpace(schema)
	if schemaName == "" {
		if err := m.db.QueryRowContext(ctx, `SELECT DATABASE()`).Scan(&schemaName); err != nil {
			return Table{Name: table, Columns: map[string]Column{}}, false, err
		}
	}
	result := Table{Name: table, Columns: map[string]Column{}}

	var exists bool
	err := m.db.QueryRowContext(ctx, `
SELECT EXISTS (
	SELECT 1 FROM information_schema.tables
	WHERE table_schema=? AND table_name=? AND table_type='BASE TABLE'
)`, schemaName, table).Scan(&exists)
	if err != nil {
		return result, false, err
	}
	if !exists {
		return result, false, nil
	}

	rows, err := m.db.QueryContext(ctx, `
SELECT column_name, column_type, is_nullable, column_default
FROM information_schema.columns
WHERE table_schema=? AND table_name=?`, schemaName, table)
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

func backquoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
