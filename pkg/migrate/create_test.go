package migrate_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/movemarket-backend/pkg/migrate"
)

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Supplier Ratings!")
	require.NoError(t, err)
	require.Regexp(t, `\d{14}_add_supplier_ratings\.sql$`, filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "-- +goose Up")
	require.Contains(t, string(data), "-- +goose Down")
	require.NoError(t, migrate.ValidateDir(dir))

	_, err = migrate.CreateSQLMigration(dir, " !! ")
	require.Error(t, err)
}

func TestCreateSQLMigrationKeepsVersionsOrdered(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	first, err := migrate.CreateSQLMigrationAt(dir, "add payout batches", at)
	require.NoError(t, err)
	require.Equal(t, "20260301090000_add_payout_batches.sql", filepath.Base(first))

	same, err := migrate.CreateSQLMigrationAt(dir, "add payout index", at)
	require.NoError(t, err)
	require.Equal(t, "20260301090001_add_payout_index.sql", filepath.Base(same))

	// a skewed clock still lands after the newest file
	earlier, err := migrate.CreateSQLMigrationAt(dir, "backfill", at.Add(-time.Hour))
	require.NoError(t, err)
	require.Equal(t, "20260301090002_backfill.sql", filepath.Base(earlier))

	require.NoError(t, migrate.ValidateDir(dir))
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "create_things.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.Error(t, migrate.ValidateDir(dir))
}

func TestValidateDirRejectsBrokenAnnotations(t *testing.T) {
	cases := map[string]string{
		"down before up":   "-- +goose Down\n-- +goose Up\n",
		"missing down":     "-- +goose Up\nCREATE TABLE x (id INT);\n",
		"unclosed up":      "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n",
		"nested statement": "-- +goose Up\n-- +goose StatementBegin\n-- +goose StatementBegin\n-- +goose StatementEnd\n-- +goose Down\n",
		"stray end":        "-- +goose Up\n-- +goose StatementEnd\n-- +goose Down\n",
		"unclosed down":    "-- +goose Up\n-- +goose Down\n-- +goose StatementBegin\nDROP TABLE x;\n",
		"typo annotation":  "-- +goose Up\n-- +goose StatmentBegin\n-- +goose Down\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "20260301090000_broken.sql"), []byte(body), 0o644))
			require.Error(t, migrate.ValidateDir(dir))
		})
	}
}

func TestValidateDirRejectsDuplicateVersions(t *testing.T) {
	dir := t.TempDir()
	body := []byte("-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260301090000_a.sql"), body, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260301090000_b.sql"), body, 0o644))
	require.ErrorContains(t, migrate.ValidateDir(dir), "duplicate migration version")
}
