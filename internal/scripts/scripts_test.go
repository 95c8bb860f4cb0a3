package scripts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestListReturnsSQLFilesInApplyOrder(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "20240202000000_second.sql", "b")
	writeScript(t, dir, "20240101000000_first.sql", "a")
	writeScript(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive.sql"), 0o755))

	list, err := List(dir)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "20240101000000_first", list[0].Name)
	assert.Equal(t, "20240202000000_second", list[1].Name)
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "20240101000000_first.sql", "a")
	writeScript(t, dir, "20240303000000_third.sql", "c")

	latest, err := Latest(dir)
	require.NoError(t, err)
	assert.Equal(t, "20240303000000_third", latest.Name)
}

func TestLatestEmptyDir(t *testing.T) {
	_, err := Latest(t.TempDir())
	require.Error(t, err)
}

func TestLoadAndChecksum(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "20240101000000_first.sql", "CREATE TABLE t (id int);")

	list, err := List(dir)
	require.NoError(t, err)
	body, err := Load(list[0])
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE t (id int);", body)

	sum := Checksum(body)
	assert.Len(t, sum, 64)
	assert.Equal(t, sum, Checksum(body), "checksum must be deterministic")
	assert.NotEqual(t, sum, Checksum(body+" "))
}
