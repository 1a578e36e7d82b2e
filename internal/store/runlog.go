package store

import (
	"context"
	"fmt"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/tools/types"
)

const scrapeRunsTable = "scrape_runs"

const createScrapeRunsSQL = `
CREATE TABLE IF NOT EXISTS scrape_runs (
	id          TEXT PRIMARY KEY NOT NULL,
	mode        TEXT NOT NULL,
	event_id    INTEGER NOT NULL DEFAULT 0,
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	scraped     INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	retired     INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	not_found   INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT ''
)`

const createScrapeRunsIndexSQL = `CREATE INDEX IF NOT EXISTS idx_scrape_runs_started_at ON scrape_runs (started_at)`

// ScrapeRun is one recorded invocation of a scrape.
type ScrapeRun struct {
	ID         string         `db:"id" json:"id"`
	Mode       string         `db:"mode" json:"mode"`
	EventID    int64          `db:"event_id" json:"eventId,omitempty"`
	StartedAt  types.DateTime `db:"started_at" json:"startedAt"`
	FinishedAt types.DateTime `db:"finished_at" json:"finishedAt"`
	Scraped    int            `db:"scraped" json:"scraped"`
	Skipped    int            `db:"skipped" json:"skipped"`
	Retired    int            `db:"retired" json:"retired"`
	Failed     int            `db:"failed" json:"failed"`
	NotFound   int            `db:"not_found" json:"notFound"`
	Error      string         `db:"error" json:"error,omitempty"`
}

// EnsureSchema creates the scrape_runs table when it is missing.
func EnsureSchema(db dbx.Builder) error {
	for _, stmt := range []string{createScrapeRunsSQL, createScrapeRunsIndexSQL} {
		if _, err := db.NewQuery(stmt).Execute(); err != nil {
			return fmt.Errorf("create %s: %w", scrapeRunsTable, err)
		}
	}
	return nil
}

// RunLog records scrape runs in the application database.
type RunLog struct {
	db dbx.Builder
}

func NewRunLog(db dbx.Builder) *RunLog {
	return &RunLog{db: db}
}

func (l *RunLog) Record(ctx context.Context, run *ScrapeRun) error {
	_, err := l.db.Insert(scrapeRunsTable, dbx.Params{
		"id":          run.ID,
		"mode":        run.Mode,
		"event_id":    run.EventID,
		"started_at":  run.StartedAt.String(),
		"finished_at": run.FinishedAt.String(),
		"scraped":     run.Scraped,
		"skipped":     run.Skipped,
		"retired":     run.Retired,
		"failed":      run.Failed,
		"not_found":   run.NotFound,
		"error":       run.Error,
	}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("record scrape run %s: %w", run.ID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (l *RunLog) Recent(ctx context.Context, limit int64) ([]ScrapeRun, error) {
	var runs []ScrapeRun
	err := l.db.Select("*").
		From(scrapeRunsTable).
		OrderBy("started_at DESC").
		Limit(limit).
		WithContext(ctx).
		All(&runs)
	if err != nil {
		return nil, fmt.Errorf("list scrape runs: %w", err)
	}
	return runs, nil
}
