package migrate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemadoctor/internal/db"
)

type fakeAdapter struct {
	ledgerReady bool
	applied     map[string]bool
	entries     []db.LedgerEntry
	executed    []string
	failScript  string
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{applied: map[string]bool{}}
}

func (f *fakeAdapter) Provider() string { return "fake" }

func (f *fakeAdapter) Close() error { return nil }

func (f *fakeAdapter) Ping(context.Context) error { return nil }

func (f *fakeAdapter) EnsureLedger(context.Context, string) error {
	f.ledgerReady = true
	return nil
}

func (f *fakeAdapter) AppliedNames(context.Context, string) (map[string]bool, error) {
	out := make(map[string]bool, len(f.applied))
	for k, v := range f.applied {
		out[k] = v
	}
	return out, nil
}

func (f *fakeAdapter) RecordApplied(_ context.Context, _ string, entry db.LedgerEntry) error {
	f.entries = append(f.entries, entry)
	if entry.Status == db.StatusApplied {
		f.applied[entry.ScriptName] = true
	}
	return nil
}

func (f *fakeAdapter) History(_ context.Context, _ string, limit int) ([]db.LedgerEntry, error) {
	if limit > len(f.entries) {
		limit = len(f.entries)
	}
	return f.entries[:limit], nil
}

func (f *fakeAdapter) ExecScript(_ context.Context, script string) error {
	if f.failScript != "" && script == f.failScript {
		return errors.New("syntax error near CREATE")
	}
	f.executed = append(f.executed, script)
	return nil
}

func (f *fakeAdapter) FetchTable(context.Context, string, string) (db.Table, bool, error) {
	return db.Table{}, false, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestUpAppliesPendingScriptsInOrder(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "001_first.sql", "CREATE TABLE a (id int)")
	writeScript(t, dir, "002_second.sql", "CREATE TABLE b (id int)")

	adapter := newFakeAdapter()
	runner := New(adapter, testLogger(), "schema_migrations", dir)

	applied, err := runner.Up(context.Background())
	require.NoError(t, err)
	assert.True(t, adapter.ledgerReady)
	assert.Equal(t, []string{"001_first", "002_second"}, applied)
	assert.Equal(t, []string{"CREATE TABLE a (id int)", "CREATE TABLE b (id int)"}, adapter.executed)
	require.Len(t, adapter.entries, 2)
	assert.Equal(t, db.StatusApplied, adapter.entries[0].Status)
	assert.NotEmpty(t, adapter.entries[0].Checksum)
}

func TestUpSkipsAlreadyApplied(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "001_first.sql", "CREATE TABLE a (id int)")
	writeScript(t, dir, "002_second.sql", "CREATE TABLE b (id int)")

	adapter := newFakeAdapter()
	adapter.applied["001_first"] = true
	runner := New(adapter, testLogger(), "schema_migrations", dir)

	applied, err := runner.Up(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"002_second"}, applied)
}

func TestUpIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "001_first.sql", "CREATE TABLE a (id int)")

	adapter := newFakeAdapter()
	runner := New(adapter, testLogger(), "schema_migrations", dir)

	_, err := runner.Up(context.Background())
	require.NoError(t, err)
	again, err := runner.Up(context.Background())
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Len(t, adapter.executed, 1)
}

func TestUpRecordsFailureAndStops(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "001_first.sql", "CREATE TABLE a (id int)")
	writeScript(t, dir, "002_broken.sql", "CREATE TABL b")
	writeScript(t, dir, "003_third.sql", "CREATE TABLE c (id int)")

	adapter := newFakeAdapter()
	adapter.failScript = "CREATE TABL b"
	runner := New(adapter, testLogger(), "schema_migrations", dir)

	applied, err := runner.Up(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "002_broken")
	assert.Equal(t, []string{"001_first"}, applied)

	require.Len(t, adapter.entries, 2)
	failed := adapter.entries[1]
	assert.Equal(t, db.StatusFailed, failed.Status)
	assert.True(t, failed.Error.Valid)
	assert.Contains(t, failed.Error.String, "syntax error")
}
