// ABOUTME: Tests for copying data between storage backends.
// ABOUTME: Migrates badger to sqlite and checks counts and contents.
package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateData(t *testing.T) {
	ctx := context.Background()
	src := backends[0].open(t, t.TempDir())
	defer src.Close()
	seedStore(t, src)

	dst, _ := setupTestSQLite(t)

	summary, err := MigrateData(ctx, src, dst)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Tables)
	assert.Equal(t, 2, summary.Rows)
	assert.Equal(t, 1, summary.Exports)

	got, err := dst.LoadState(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleState(), got)

	rec, err := dst.GetExport(ctx, "2024-06", "Workouts", "Reps")
	require.NoError(t, err)
	assert.Equal(t, int64(1717405200000), rec.GeneratedAt)
}

func TestMigrateEmptySource(t *testing.T) {
	ctx := context.Background()
	src, _ := setupTestSQLite(t)
	dst := backends[0].open(t, t.TempDir())
	defer dst.Close()

	summary, err := MigrateData(ctx, src, dst)
	require.NoError(t, err)
	assert.Equal(t, &MigrateSummary{}, summary)

	_, err = dst.LoadState(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIsDirNonEmpty(t *testing.T) {
	dir := t.TempDir()

	nonEmpty, err := IsDirNonEmpty(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.False(t, nonEmpty)

	nonEmpty, err = IsDirNonEmpty(dir)
	require.NoError(t, err)
	assert.False(t, nonEmpty)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), []byte("x"), 0600))
	nonEmpty, err = IsDirNonEmpty(dir)
	require.NoError(t, err)
	assert.True(t, nonEmpty)
}
