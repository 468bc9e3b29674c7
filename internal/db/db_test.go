package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rtgs.sim/internal/config"
	"github.com/banshee-data/rtgs.sim/internal/monitoring"
	"github.com/banshee-data/rtgs.sim/internal/simulate"
	"github.com/banshee-data/rtgs.sim/internal/splat"
	"github.com/banshee-data/rtgs.sim/internal/sweep"
	"github.com/banshee-data/rtgs.sim/internal/timeutil"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	m.Run()
}

func newTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := NewDB(filepath.Join(t.TempDir(), "rtgs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func tableExists(t *testing.T, database *DB, name string) bool {
	t.Helper()
	var n int
	require.NoError(t, database.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n))
	return n > 0
}

var testClock = timeutil.NewSteppingClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Second)

func testResult(t *testing.T) *simulate.Result {
	t.Helper()
	cfg := config.DefaultArchConfig()
	cfg.Frame.Width = 32
	cfg.Frame.Height = 32
	res, err := simulate.Run(context.Background(), splat.PixelBucket{
		{U: 0, V: 0}: {0, 1},
		{U: 4, V: 8}: {2},
	}, simulate.Options{Config: cfg, Frames: 2, Clock: testClock})
	require.NoError(t, err)
	return res
}

func TestNewDB_MigratesToLatest(t *testing.T) {
	database := newTestDB(t)

	version, dirty, err := database.MigrateVersion(MigrationsFS())
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)
	assert.True(t, tableExists(t, database, "runs"))
	assert.True(t, tableExists(t, database, "sweeps"))

	// Re-running is a no-op.
	require.NoError(t, database.MigrateUp(MigrationsFS()))
}

func TestMigrateDownAndUp(t *testing.T) {
	database := newTestDB(t)

	require.NoError(t, database.MigrateDown(MigrationsFS()))
	version, _, err := database.MigrateVersion(MigrationsFS())
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, tableExists(t, database, "sweeps"))
	assert.True(t, tableExists(t, database, "runs"))

	require.NoError(t, database.MigrateUp(MigrationsFS()))
	version, _, err = database.MigrateVersion(MigrationsFS())
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
}

func TestMigrate_CustomFS(t *testing.T) {
	database, err := OpenDB(filepath.Join(t.TempDir(), "custom.db"))
	require.NoError(t, err)
	defer database.Close()

	migrations := fstest.MapFS{
		"000001_init.up.sql":   &fstest.MapFile{Data: []byte("CREATE TABLE t1 (id INTEGER PRIMARY KEY);")},
		"000001_init.down.sql": &fstest.MapFile{Data: []byte("DROP TABLE t1;")},
	}
	version, dirty, err := database.MigrateVersion(migrations)
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)

	require.NoError(t, database.MigrateUp(migrations))
	assert.True(t, tableExists(t, database, "t1"))
	require.NoError(t, database.MigrateDown(migrations))
	assert.False(t, tableExists(t, database, "t1"))
}

func TestMigrate_ClosedDB(t *testing.T) {
	database, err := OpenDB(filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	database.Close()

	assert.Error(t, database.MigrateUp(MigrationsFS()))
}

func TestSaveResultAndGetRun(t *testing.T) {
	database := newTestDB(t)
	res := testResult(t)

	require.NoError(t, database.SaveResult(res, ""))

	got, err := database.GetRun(res.RunID)
	require.NoError(t, err)
	assert.Equal(t, res.RunID, got.RunID)
	assert.Empty(t, got.SweepID)
	assert.True(t, res.StartedAt.Equal(got.StartedAt), "started_at %v != %v", got.StartedAt, res.StartedAt)
	assert.Equal(t, 2, got.Frames)
	assert.Equal(t, 16, got.NumPEs)
	assert.Equal(t, config.PolicyRaster, got.SchedulePolicy)
	assert.Equal(t, 2, got.OccupiedPixels)
	assert.Equal(t, int64(3), got.InputGaussians)
	assert.Equal(t, res.Last().Makespan, got.MakespanCycles)
	assert.Equal(t, res.Totals.AreaMM2, got.AreaMM2)
	assert.Equal(t, res.Totals.LatencyS, got.LatencyS)
	assert.Equal(t, res.Totals.EnergyPJ, got.EnergyPJ)
	assert.InDelta(t, res.Totals.PowerW(), got.PowerW(), 1e-12)

	cfg, err := config.ParseArchConfig([]byte(got.ConfigJSON))
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Frame.Width)

	_, err = database.GetRun("missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows), "err = %v", err)

	assert.Error(t, database.SaveResult(res, ""), "duplicate run IDs are rejected")
}

func TestSweepRuns(t *testing.T) {
	database := newTestDB(t)
	started := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)
	params := sweep.Params{PEs: []int{4, 8}}
	require.NoError(t, database.StartSweep("sweep-1", started, params, 2))

	first, second, standalone := testResult(t), testResult(t), testResult(t)
	require.NoError(t, database.SaveResult(first, "sweep-1"))
	require.NoError(t, database.SaveResult(second, "sweep-1"))
	require.NoError(t, database.SaveResult(standalone, ""))

	runs, err := database.ListRuns(RunFilter{SweepID: "sweep-1"})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, first.RunID, runs[0].RunID)
	assert.Equal(t, second.RunID, runs[1].RunID)
	assert.Equal(t, "sweep-1", runs[0].SweepID)

	all, err := database.ListRuns(RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, standalone.RunID, all[0].RunID, "newest first")
	assert.Equal(t, first.RunID, all[2].RunID)

	limited, err := database.ListRuns(RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	sweeps, err := database.Sweeps()
	require.NoError(t, err)
	require.Len(t, sweeps, 1)
	assert.Equal(t, "sweep-1", sweeps[0].SweepID)
	assert.Equal(t, 2, sweeps[0].Points)
	assert.True(t, started.Equal(sweeps[0].StartedAt))
	assert.JSONEq(t, `{"PEs":[4,8],"Strides":null,"Groups":null,"Tiles":null}`, sweeps[0].ParamsJSON)
}

func TestStartedAtOrdering_SubSecond(t *testing.T) {
	database := newTestDB(t)
	whole := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	half := whole.Add(500 * time.Millisecond)

	require.NoError(t, database.StartSweep("whole", whole, sweep.Params{}, 1))
	require.NoError(t, database.StartSweep("half", half, sweep.Params{}, 1))
	sweeps, err := database.Sweeps()
	require.NoError(t, err)
	require.Len(t, sweeps, 2)
	assert.Equal(t, "half", sweeps[0].SweepID)
	assert.True(t, whole.Equal(sweeps[1].StartedAt))

	// Inserted newest first so that rowid order cannot mask the timestamp order.
	require.NoError(t, database.SaveRun(Run{RunID: "run-half", StartedAt: half, ConfigJSON: "{}"}))
	require.NoError(t, database.SaveRun(Run{RunID: "run-whole", StartedAt: whole, ConfigJSON: "{}"}))
	runs, err := database.ListRuns(RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-half", runs[0].RunID)
	assert.True(t, half.Equal(runs[0].StartedAt))

	var stored string
	require.NoError(t, database.QueryRow(`SELECT CAST(started_at AS TEXT) FROM runs WHERE run_id = 'run-whole'`).Scan(&stored))
	assert.Equal(t, "2026-01-02T03:04:05.000000000Z", stored)
}
