package store

import (
	"context"
	"testing"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupTestRunLog(t *testing.T) *RunLog {
	t.Helper()

	db, err := dbx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// every pooled connection would get its own in-memory database
	db.DB().SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, EnsureSchema(db))
	require.NoError(t, EnsureSchema(db))
	return NewRunLog(db)
}

func mustDateTime(t *testing.T, tm time.Time) types.DateTime {
	t.Helper()
	dt, err := types.ParseDateTime(tm)
	require.NoError(t, err)
	return dt
}

func TestRunLog_RecordAndRecent(t *testing.T) {
	log := setupTestRunLog(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)

	for i, mode := range []string{"all", "single", "all"} {
		started := base.Add(time.Duration(i) * 30 * time.Minute)
		run := &ScrapeRun{
			ID:         "run-" + string(rune('a'+i)),
			Mode:       mode,
			StartedAt:  mustDateTime(t, started),
			FinishedAt: mustDateTime(t, started.Add(time.Minute)),
			Scraped:    i + 1,
			Failed:     i,
		}
		require.NoError(t, log.Record(ctx, run))
	}

	runs, err := log.Recent(ctx, 2)
	require.NoError(t, err)

	require.Len(t, runs, 2)
	assert.Equal(t, "run-c", runs[0].ID)
	assert.Equal(t, "run-b", runs[1].ID)
	assert.Equal(t, "single", runs[1].Mode)
	assert.Equal(t, 2, runs[1].Scraped)
	assert.Equal(t, 1, runs[1].Failed)
	assert.True(t, runs[0].StartedAt.Time().Equal(base.Add(time.Hour)))
}

func TestRunLog_DuplicateID(t *testing.T) {
	log := setupTestRunLog(t)
	ctx := context.Background()

	run := &ScrapeRun{ID: "dup", Mode: "all", StartedAt: types.NowDateTime(), FinishedAt: types.NowDateTime()}
	require.NoError(t, log.Record(ctx, run))
	assert.Error(t, log.Record(ctx, run))
}
