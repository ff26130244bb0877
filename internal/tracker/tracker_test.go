// ABOUTME: Tests for tracker mutations, loading, and background persistence.
// ABOUTME: Covers table and column edits, row upserts, write ordering and failures.
package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/harperreed/calyra/internal/models"
	"github.com/harperreed/calyra/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFirstRun(t *testing.T) {
	store := newMemStore()
	tr := New(store, quietLogger())
	defer tr.Close()

	firstRun, err := tr.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, firstRun)
	assert.Equal(t, 0, tr.Len())

	flush(t, tr)
	assert.Empty(t, store.saved(), "loading must not write")
}

func TestLoadExistingState(t *testing.T) {
	store := newMemStore()
	store.state = &models.AppState{
		Titles: []string{"Workouts"},
		TableSchemas: map[int]models.TableSchema{
			0: {Columns: []string{"Reps", models.DateColumn}, Data: []models.Row{{models.DateColumn: "2024-06-01", "Reps": "8"}}},
		},
	}
	tr := New(store, quietLogger())
	defer tr.Close()

	firstRun, err := tr.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, firstRun)

	tbl, ok := tr.Table(0)
	require.True(t, ok)
	assert.Equal(t, []string{models.DateColumn, "Reps"}, tbl.Columns)
	assert.Len(t, tbl.Rows, 1)
}

func TestAddTable(t *testing.T) {
	tr, store := setupTracker(t)

	_, ok := tr.AddTable("   ")
	assert.False(t, ok, "blank title should be rejected")

	i, ok := tr.AddTable("Workouts")
	require.True(t, ok)
	assert.Equal(t, 0, i)

	tbl, _ := tr.Table(0)
	assert.Equal(t, "Workouts", tbl.Title)
	assert.Equal(t, []string{models.DateColumn}, tbl.Columns)
	assert.Empty(t, tbl.Rows)

	flush(t, tr)
	assert.Equal(t, []string{"Workouts"}, store.current().Titles)
}

func TestRenameTable(t *testing.T) {
	tr, _ := setupTracker(t)
	tr.AddTable("Workouts")

	assert.False(t, tr.RenameTable(0, ""))
	assert.False(t, tr.RenameTable(5, "Gym"))
	assert.True(t, tr.RenameTable(0, "Gym"))

	tbl, _ := tr.Table(0)
	assert.Equal(t, "Gym", tbl.Title)
}

func TestDeleteTableReindexes(t *testing.T) {
	tr, store := setupTracker(t)
	for _, title := range []string{"A", "B", "C"} {
		tr.AddTable(title)
	}
	tr.AddColumn(2, "Score")
	tr.UpsertRow(2, "2024-06-01", map[string]string{"Score": "3"})

	assert.False(t, tr.DeleteTable(3))
	require.True(t, tr.DeleteTable(0))

	tables := tr.Tables()
	require.Len(t, tables, 2)
	assert.Equal(t, "B", tables[0].Title)
	assert.Equal(t, "C", tables[1].Title)
	assert.Len(t, tables[1].Rows, 1)

	flush(t, tr)
	st := store.current()
	assert.Equal(t, []string{"B", "C"}, st.Titles)
	assert.Len(t, st.TableSchemas, 2)
	assert.Equal(t, []string{models.DateColumn, "Score"}, st.TableSchemas[1].Columns)
}

func TestAddColumn(t *testing.T) {
	tr, _ := setupTracker(t)
	tr.AddTable("Workouts")
	tr.AddColumn(0, "Reps")
	tr.UpsertRow(0, "2024-06-01", map[string]string{"Reps": "10"})

	v := tr.Version()
	assert.False(t, tr.AddColumn(0, "Reps"), "duplicate rejected")
	assert.False(t, tr.AddColumn(0, " "), "blank rejected")
	assert.False(t, tr.AddColumn(0, models.DateColumn), "Date already exists")
	assert.False(t, tr.AddColumn(9, "Sets"), "missing table")
	assert.Equal(t, v, tr.Version(), "rejected edits do not bump the version")

	assert.True(t, tr.AddColumn(0, "reps"), "names are case-sensitive")
	require.True(t, tr.AddColumn(0, "Sets"))

	tbl, _ := tr.Table(0)
	assert.Equal(t, []string{models.DateColumn, "Reps", "reps", "Sets"}, tbl.Columns)
	row := tbl.Rows[0]
	val, ok := row["Sets"]
	assert.True(t, ok, "existing rows are back-filled")
	assert.Equal(t, "", val)
}

func TestRemoveColumn(t *testing.T) {
	tr, _ := setupTracker(t)
	tr.AddTable("Workouts")
	tr.AddColumn(0, "Reps")
	tr.AddColumn(0, "Sets")
	tr.UpsertRow(0, "2024-06-01", map[string]string{"Reps": "10", "Sets": "3"})
	tr.UpsertRow(0, "2024-06-02", map[string]string{"Reps": "8"})

	assert.False(t, tr.RemoveColumn(0, models.DateColumn))
	assert.False(t, tr.RemoveColumn(0, "Missing"))

	require.True(t, tr.RemoveColumn(0, "Reps"))
	tbl, _ := tr.Table(0)
	assert.Equal(t, []string{models.DateColumn, "Sets"}, tbl.Columns)
	require.Len(t, tbl.Rows, 1, "row left without values is deleted")
	assert.Equal(t, models.Row{models.DateColumn: "2024-06-01", "Sets": "3"}, tbl.Rows[0])
}

func TestRemoveLastColumnDeletesRows(t *testing.T) {
	tr, store := setupTracker(t)
	tr.AddTable("Workouts")
	tr.AddColumn(0, "Reps")
	tr.UpsertRow(0, "2024-06-01", map[string]string{"Reps": "10"})

	require.True(t, tr.RemoveColumn(0, "Reps"))
	tbl, _ := tr.Table(0)
	assert.Equal(t, []string{models.DateColumn}, tbl.Columns)
	assert.Empty(t, tbl.Rows)

	flush(t, tr)
	assert.Empty(t, store.current().TableSchemas[0].Data)
}

func TestUpsertRow(t *testing.T) {
	tr, _ := setupTracker(t)
	tr.AddTable("Workouts")
	tr.AddColumn(0, "Reps")
	tr.AddColumn(0, "Sets")

	tests := []struct {
		name   string
		date   string
		values map[string]string
		want   UpsertResult
		rows   int
	}{
		{"empty on new date", "2024-06-01", map[string]string{"Reps": ""}, RowUnchanged, 0},
		{"create", "2024-06-01", map[string]string{"Reps": "10/10"}, RowCreated, 1},
		{"update", "2024-06-01", map[string]string{"Reps": "9", "Sets": "3"}, RowUpdated, 1},
		{"second date", "2024-06-02", map[string]string{"Sets": "2"}, RowCreated, 2},
		{"clear deletes", "2024-06-01", map[string]string{"Reps": " ", "Sets": ""}, RowDeleted, 1},
		{"blank date", "", map[string]string{"Reps": "1"}, RowUnchanged, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tr.UpsertRow(0, tt.date, tt.values)
			assert.Equal(t, tt.want, got)
			tbl, _ := tr.Table(0)
			assert.Len(t, tbl.Rows, tt.rows)
		})
	}

	tbl, _ := tr.Table(0)
	assert.Equal(t, models.Row{models.DateColumn: "2024-06-02", "Reps": "", "Sets": "2"}, tbl.Rows[0],
		"missing columns are stored as empty strings")
	assert.Equal(t, RowUnchanged, tr.UpsertRow(7, "2024-06-01", map[string]string{"Reps": "1"}))
}

func TestUpsertRowIgnoresUnknownColumns(t *testing.T) {
	tr, _ := setupTracker(t)
	tr.AddTable("Workouts")
	tr.AddColumn(0, "Reps")

	assert.Equal(t, RowUnchanged, tr.UpsertRow(0, "2024-06-01", map[string]string{"Weight": "80"}))
	tbl, _ := tr.Table(0)
	assert.Empty(t, tbl.Rows)
}

func TestUpsertRowDateOnlyTable(t *testing.T) {
	tr, _ := setupTracker(t)
	tr.AddTable("Empty")
	assert.Equal(t, RowUnchanged, tr.UpsertRow(0, "2024-06-01", nil))
	tbl, _ := tr.Table(0)
	assert.Empty(t, tbl.Rows)
}

func TestReadsReturnCopies(t *testing.T) {
	tr, _ := setupTracker(t)
	tr.AddTable("Workouts")
	tr.AddColumn(0, "Reps")
	tr.UpsertRow(0, "2024-06-01", map[string]string{"Reps": "1"})

	tbl, _ := tr.Table(0)
	tbl.Title = "changed"
	tbl.Rows[0]["Reps"] = "changed"

	again, _ := tr.Table(0)
	assert.Equal(t, "Workouts", again.Title)
	assert.Equal(t, "1", again.Rows[0]["Reps"])
}

func TestVersionAdvances(t *testing.T) {
	tr, _ := setupTracker(t)
	v0 := tr.Version()
	tr.AddTable("A")
	v1 := tr.Version()
	tr.AddColumn(0, "X")
	v2 := tr.Version()
	assert.Less(t, v0, v1)
	assert.Less(t, v1, v2)
}

func TestIndexOf(t *testing.T) {
	tr, _ := setupTracker(t)
	tr.AddTable("A")
	tr.AddTable("B")
	assert.Equal(t, 1, tr.IndexOf("B"))
	assert.Equal(t, -1, tr.IndexOf("C"))
}

func TestResolve(t *testing.T) {
	tr, _ := setupTracker(t)
	tr.AddTable("Workouts")
	tr.AddTable("2")

	tests := []struct {
		ref  string
		want int
	}{
		{"Workouts", 0},
		{" Workouts ", 0},
		{"1", 0},
		{"2", 1}, // title match wins over number
	}
	for _, tt := range tests {
		got, err := tr.Resolve(tt.ref)
		require.NoError(t, err, tt.ref)
		assert.Equal(t, tt.want, got, tt.ref)
	}

	for _, ref := range []string{"0", "3", "Sleep", ""} {
		_, err := tr.Resolve(ref)
		assert.ErrorIs(t, err, ErrTableNotFound, ref)
	}
}

func TestWritesLandInOrder(t *testing.T) {
	tr, store := setupTracker(t)
	gate := make(chan struct{})
	store.mu.Lock()
	store.gate = gate
	store.mu.Unlock()

	tr.AddTable("A")
	tr.AddTable("B")
	tr.AddTable("C")

	store.mu.Lock()
	store.gate = nil
	store.mu.Unlock()
	close(gate)
	flush(t, tr)

	saves := store.saved()
	require.NotEmpty(t, saves)
	assert.LessOrEqual(t, len(saves), 3, "superseded snapshots are skipped")
	for i := 1; i < len(saves); i++ {
		assert.Greater(t, len(saves[i].Titles), len(saves[i-1].Titles), "writes never go backwards")
	}
	assert.Equal(t, []string{"A", "B", "C"}, saves[len(saves)-1].Titles)
}

func TestPersistFailureKeepsMemory(t *testing.T) {
	tr, store := setupTracker(t)
	store.setFailing(true)

	var mu sync.Mutex
	var reported []error
	tr.OnPersistError(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		reported = append(reported, err)
	})

	tr.AddTable("Workouts")
	err := tr.Flush(context.Background())
	assert.True(t, errors.Is(err, errDiskFull))

	assert.Equal(t, 1, tr.Len(), "memory is not rolled back")
	mu.Lock()
	assert.Len(t, reported, 1)
	mu.Unlock()

	store.setFailing(false)
	tr.AddColumn(0, "Reps")
	flush(t, tr)
	assert.Equal(t, []string{"Workouts"}, store.current().Titles)
	assert.Equal(t, []string{models.DateColumn, "Reps"}, store.current().TableSchemas[0].Columns)
}

func TestCloseDrainsPendingWrite(t *testing.T) {
	store := newMemStore()
	tr := New(store, quietLogger())
	tr.AddTable("Workouts")
	require.NoError(t, tr.Close())
	require.NotNil(t, store.current())
	assert.Equal(t, []string{"Workouts"}, store.current().Titles)

	// closing twice is harmless and later edits stay in memory only
	require.NoError(t, tr.Close())
	tr.AddTable("Sleep")
	assert.Equal(t, 2, tr.Len())
	assert.Equal(t, []string{"Workouts"}, store.current().Titles)
	assert.NoError(t, tr.Flush(context.Background()))
}

func TestFlushRespectsContext(t *testing.T) {
	tr, store := setupTracker(t)
	gate := make(chan struct{})
	store.mu.Lock()
	store.gate = gate
	store.mu.Unlock()
	defer close(gate)

	tr.AddTable("A")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, tr.Flush(ctx), context.DeadlineExceeded)
}

func TestEndToEndWithBadger(t *testing.T) {
	tr, store, _ := setupBadgerTracker(t)
	ctx := context.Background()

	i, ok := tr.AddTable("Workouts")
	require.True(t, ok)
	require.True(t, tr.AddColumn(i, "Reps"))
	assert.Equal(t, RowCreated, tr.UpsertRow(i, "2024-06-01", map[string]string{"Reps": "10/10"}))
	assert.Equal(t, RowCreated, tr.UpsertRow(i, "2024-06-02", map[string]string{"Reps": "8"}))
	flush(t, tr)

	reloaded := New(store, quietLogger())
	defer reloaded.Close()
	firstRun, err := reloaded.Load(ctx)
	require.NoError(t, err)
	assert.False(t, firstRun)
	assert.Equal(t, tr.Tables(), reloaded.Tables())

	st, err := store.LoadState(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Workouts"}, st.Titles)
	assert.Equal(t, models.Row{models.DateColumn: "2024-06-01", "Reps": "10/10"}, st.TableSchemas[0].Data[0])
}

func TestLoadPropagatesStoreErrors(t *testing.T) {
	_, store, _ := setupBadgerTracker(t)
	require.NoError(t, store.Close())

	tr := New(store, quietLogger())
	defer tr.Close()
	_, err := tr.Load(context.Background())
	assert.ErrorIs(t, err, storage.ErrClosed)
}
