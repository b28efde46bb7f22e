package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/flow.report/internal/crossing"
	"github.com/banshee-data/flow.report/internal/geom"
	"github.com/banshee-data/flow.report/internal/pipeline"
	"github.com/banshee-data/flow.report/internal/tracking"
)

// ErrRunNotFound is returned when a run id has no row.
var ErrRunNotFound = errors.New("run not found")

// Run is one row of the runs table.
type Run struct {
	RunID         string        `json:"run_id"`
	Source        string        `json:"source"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    *time.Time    `json:"finished_at,omitempty"`
	Elapsed       time.Duration `json:"elapsed_ns"`
	Frames        int64         `json:"frames"`
	Pauses        int           `json:"pauses"`
	PausedFor     time.Duration `json:"paused_ns"`
	TracksCreated int           `json:"tracks_created"`
	Error         string        `json:"error,omitempty"`
}

// EventRecord is one row of the crossing_events table.
type EventRecord struct {
	RunID string           `json:"run_id"`
	Frame int64            `json:"frame"`
	Track tracking.TrackID `json:"track_id"`
	Line  string           `json:"line"`
	From  geom.Side        `json:"from_side"`
	To    geom.Side        `json:"to_side"`
	At    geom.Point       `json:"at"`
}

// BeginRun inserts the run and a zero count row per line. It implements
// pipeline.RunRecorder.
func (db *DB) BeginRun(info pipeline.RunInfo) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO runs (run_id, source, started_at) VALUES (?, ?, ?)`,
		info.RunID, info.Source, info.StartedAt.UnixNano(),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	for i, l := range info.Lines {
		if _, err := tx.Exec(
			`INSERT INTO run_counts (run_id, position, name, a_x, a_y, b_x, b_y) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			info.RunID, i, l.Name, l.Line.A.X, l.Line.A.Y, l.Line.B.X, l.Line.B.Y,
		); err != nil {
			return fmt.Errorf("insert line %s: %w", l.Name, err)
		}
	}
	return tx.Commit()
}

// RecordEvents stores crossing events. It implements pipeline.EventSink.
func (db *DB) RecordEvents(runID string, events []crossing.Event) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO crossing_events
		(run_id, frame, track_id, line, from_side, to_side, x, y)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.Exec(runID, ev.Frame, int64(ev.Track), ev.Line, int(ev.From), int(ev.To), ev.At.X, ev.At.Y); err != nil {
			return fmt.Errorf("insert crossing event: %w", err)
		}
	}
	return tx.Commit()
}

// FinishRun records the run outcome and final counts. It implements
// pipeline.RunRecorder.
func (db *DB) FinishRun(s pipeline.Summary) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var runErr sql.NullString
	if s.Err != nil {
		runErr = sql.NullString{String: s.Err.Error(), Valid: true}
	}
	res, err := tx.Exec(`UPDATE runs SET
			finished_at = ?, elapsed_sec = ?, frames = ?, pauses = ?,
			paused_sec = ?, tracks_created = ?, error = ?
		WHERE run_id = ?`,
		s.StartedAt.Add(s.Elapsed).UnixNano(), s.Elapsed.Seconds(), s.Frames, s.Pauses,
		s.PausedFor.Seconds(), s.TracksCreated, runErr, s.RunID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, s.RunID)
	}
	for _, c := range s.Counts {
		if _, err := tx.Exec(
			`UPDATE run_counts SET count = ? WHERE run_id = ? AND name = ?`,
			c.Count, s.RunID, c.Name,
		); err != nil {
			return fmt.Errorf("update count %s: %w", c.Name, err)
		}
	}
	return tx.Commit()
}

const runColumns = `run_id, source, started_at, finished_at, elapsed_sec, frames,
	pauses, paused_sec, tracks_created, error`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		r          Run
		startedAt  int64
		finishedAt sql.NullInt64
		elapsed    sql.NullFloat64
		pausedSec  float64
		runErr     sql.NullString
	)
	if err := row.Scan(&r.RunID, &r.Source, &startedAt, &finishedAt, &elapsed, &r.Frames,
		&r.Pauses, &pausedSec, &r.TracksCreated, &runErr); err != nil {
		return Run{}, err
	}
	r.StartedAt = time.Unix(0, startedAt).UTC()
	if finishedAt.Valid {
		t := time.Unix(0, finishedAt.Int64).UTC()
		r.FinishedAt = &t
	}
	r.Elapsed = secondsToDuration(elapsed.Float64)
	r.PausedFor = secondsToDuration(pausedSec)
	r.Error = runErr.String
	return r, nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// GetRun returns one run.
func (db *DB) GetRun(runID string) (Run, error) {
	r, err := scanRun(db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return r, err
}

// ListRuns returns the most recent runs first.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunCounts returns a run's counts in line order.
func (db *DB) RunCounts(runID string) ([]crossing.LineCount, error) {
	rows, err := db.Query(`SELECT name, count FROM run_counts WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []crossing.LineCount
	for rows.Next() {
		var c crossing.LineCount
		if err := rows.Scan(&c.Name, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// RunEvents returns a run's crossing events in the order they happened.
func (db *DB) RunEvents(runID string) ([]EventRecord, error) {
	rows, err := db.Query(`SELECT run_id, frame, track_id, line, from_side, to_side, x, y
		FROM crossing_events WHERE run_id = ? ORDER BY event_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		var (
			e        EventRecord
			from, to int
		)
		if err := rows.Scan(&e.RunID, &e.Frame, &e.Track, &e.Line, &from, &to, &e.At.X, &e.At.Y); err != nil {
			return nil, err
		}
		e.From, e.To = geom.Side(from), geom.Side(to)
		events = append(events, e)
	}
	return events, rows.Err()
}
