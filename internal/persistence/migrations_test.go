package persistence

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeMigrations(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive.sql"), 0o700))
	return dir
}

func TestRunMigrationsAppliesSQLInOrder(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	dir := writeMigrations(t, map[string]string{
		"0002_plans.sql": "CREATE TABLE IF NOT EXISTS pricing_plans (id TEXT);",
		"0001_init.sql":  "CREATE TABLE IF NOT EXISTS organizations (id TEXT);",
		"README.md":      "not a migration",
	})

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS organizations")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS pricing_plans")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, RunMigrations(context.Background(), mock, dir, zap.NewNop()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrationsStopsOnFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	dir := writeMigrations(t, map[string]string{
		"0001_init.sql":  "CREATE TABLE broken",
		"0002_later.sql": "CREATE TABLE never_applied (id TEXT);",
	})
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE broken")).WillReturnError(errors.New("syntax error"))

	err = RunMigrations(context.Background(), mock, dir, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0001_init.sql")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrationsMissingDir(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	err = RunMigrations(context.Background(), mock, filepath.Join(t.TempDir(), "absent"), zap.NewNop())
	assert.Error(t, err)
}
