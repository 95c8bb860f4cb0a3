package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"

	"schemadoctor/internal/config"
)

// Adapter abstracts provider-specific behavior for direct connections.
type Adapter interface {
	Provider() string
	Close() error
	Ping(ctx context.Context) error
	EnsureLedger(ctx context.Context, table string) error
	AppliedNames(ctx context.Context, table string) (map[string]bool, error)
	RecordApplied(ctx context.Context, table string, entry LedgerEntry) error
	History(ctx context.Context, table string, limit int) ([]LedgerEntry, error)
	ExecScript(ctx context.Context, script string) error
	FetchTable(ctx context.Context, schema, table string) (Table, bool, error)
}

// Open builds an adapter for the given configuration.
func Open(cfg config.DBConfig) (Adapter, error) {
	switch strings.ToLower(cfg.Provider) {
	case "postgres":
		conn, err := sql.Open("pgx", cfg.DSN)
		if err != nil {
			return nil, err
		}
		tune(conn)
		return &PostgresAdapter{db: conn}, nil
	case "mysql":
		// Validate DSN early to provide actionable errors.
		if _, err := mysql.ParseDSN(cfg.DSN); err != nil {
			return nil, fmt.Errorf("invalid mysql dsn: %w", err)
		}
		conn, err := sql.Open("mysql", cfg.DSN)
		if err != nil {
			return nil, err
		}
		tune(conn)
		return &MySQLAdapter{db: conn}, nil
	default:
		return nil, fmt.Errorf("unsupported provider %s", cfg.Provider)
	}
}

func tune(conn *sql.DB) {
	conn.SetConnMaxIdleTime(5 * time.Minute)
	conn.SetMaxOpenConns(5)
}

// splitStatements avoids driver differences around multi-statement scripts by
// executing one statement at a time. Quote-aware so literals keep semicolons.
func splitStatements(sqlText string) []string {
	var (
		out      []string
		current  strings.Builder
		inSingle bool
		inDouble bool
	)

	flush := func() {
		stmt := strings.TrimSpace(current.String())
		if stmt != "" {
			out = append(out, stmt)
		}
		current.Reset()
	}

	for _, r := range sqlText {
		switch r {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case ';':
			if !inSingle && !inDouble {
				flush()
				continue
			}
		}
		current.WriteRune(r)
	}
	flush()
	return out
}

func nullString(s sql.NullString) any {
	if s.Valid {
		return s.String
	}
	return nil
}
