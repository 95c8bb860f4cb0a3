package db

import (
	"database/sql"
	"time"
)

// Table describes one introspected table.
type Table struct {
	Name    string
	Columns map[string]Column
}

// Column describes a table column.
type Column struct {
	Name         string
	DataType     string
	IsNullable   bool
	DefaultValue sql.NullString
}

// LedgerEntry is one row of the apply ledger.
type LedgerEntry struct {
	ScriptName string
	Checksum   string
	Status     string
	AppliedAt  time.Time
	Error      sql.NullString
}

const (
	StatusApplied = "applied"
	StatusFailed  = "failed"
)
