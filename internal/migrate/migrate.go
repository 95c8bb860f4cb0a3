package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"schemadoctor/internal/db"
	"schemadoctor/internal/scripts"
)

type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Runner applies pending migration scripts over a direct connection and
// records each one in the ledger table. Scripts already marked applied are
// skipped, so repeated runs are idempotent.
type Runner struct {
	adapter db.Adapter
	logger  Logger
	ledger  string
	dir     string
}

func New(adapter db.Adapter, logger Logger, ledgerTable, migrationsDir string) *Runner {
	return &Runner{
		adapter: adapter,
		logger:  logger,
		ledger:  ledgerTable,
		dir:     migrationsDir,
	}
}

// Up applies every pending script in order and returns the names applied.
// A failing script is recorded with its error and stops the run; scripts
// applied before the failure stay applied.
func (r *Runner) Up(ctx context.Context) ([]string, error) {
	if err := r.adapter.EnsureLedger(ctx, r.ledger); err != nil {
		return nil, fmt.Errorf("ensure ledger table: %w", err)
	}

	applied, err := r.adapter.AppliedNames(ctx, r.ledger)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	all, err := scripts.List(r.dir)
	if err != nil {
		return nil, err
	}

	var done []string
	for _, s := range all {
		if applied[s.Name] {
			continue
		}
		body, err := scripts.Load(s)
		if err != nil {
			return done, err
		}
		if err := r.apply(ctx, s.Name, body); err != nil {
			return done, fmt.Errorf("apply %s: %w", s.Name, err)
		}
		r.logger.Info("migration applied", "script", s.Name, "provider", r.adapter.Provider())
		done = append(done, s.Name)
	}
	return done, nil
}

func (r *Runner) apply(ctx context.Context, name, body string) error {
	entry := db.LedgerEntry{
		ScriptName: name,
		Checksum:   scripts.Checksum(body),
		Status:     db.StatusApplied,
		AppliedAt:  time.Now().UTC(),
	}

	if execErr := r.adapter.ExecScript(ctx, body); execErr != nil {
		entry.Status = db.StatusFailed
		entry.Error = sql.NullString{String: execErr.Error(), Valid: true}
		if recErr := r.adapter.RecordApplied(ctx, r.ledger, entry); recErr != nil {
			r.logger.Error("could not record failed migration", "script", name, "error", recErr)
		}
		return execErr
	}

	if err := r.adapter.RecordApplied(ctx, r.ledger, entry); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return nil
}

// History returns the most recent ledger entries.
func (r *Runner) History(ctx context.Context, limit int) ([]db.LedgerEntry, error) {
	if err := r.adapter.EnsureLedger(ctx, r.ledger); err != nil {
		return nil, fmt.Errorf("ensure ledger table: %w", err)
	}
	return r.adapter.History(ctx, r.ledger, limit)
}
