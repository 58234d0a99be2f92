// Package sqlite is an archive.Archive backed by a SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/askiada/go-conformer/pkg/conformer/archive"
	"github.com/askiada/go-conformer/pkg/conformer/failure"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	seq        INTEGER NOT NULL,
	started_at TEXT NOT NULL,
	ended_at   TEXT NOT NULL,
	stages     BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS variants (
	run_id       TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	unique_id    INTEGER NOT NULL,
	container_id INTEGER NOT NULL,
	name         TEXT NOT NULL,
	structure    TEXT NOT NULL,
	lineage      BLOB NOT NULL,
	props        BLOB NOT NULL,
	PRIMARY KEY (run_id, unique_id)
);
CREATE TABLE IF NOT EXISTS failures (
	run_id       TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	container_id INTEGER NOT NULL,
	original     TEXT NOT NULL,
	name         TEXT NOT NULL,
	PRIMARY KEY (run_id, container_id)
);
`

// Store writes one row per run, variant and failure.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	err := os.MkdirAll(filepath.Dir(path), 0o750)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create archive directory")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open sqlite")
	}
	// a single connection keeps writes serialized
	db.SetMaxOpenConns(1)

	_, err = db.ExecContext(ctx, schema)
	if err != nil {
		_ = db.Close()

		return nil, errors.Wrap(err, "unable to create archive tables")
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database path.
func (s *Store) Path() string { return s.path }

// Save replaces the run with the same id inside one transaction.
func (s *Store) Save(ctx context.Context, snap archive.Snapshot) (retErr error) {
	if snap.RunID == "" {
		return archive.ErrMissingRun
	}

	stages, err := json.Marshal(snap.Stages)
	if err != nil {
		return errors.Wrap(err, "unable to encode stages")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "unable to begin transaction")
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"variants", "failures"} {
		_, err = tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id = ?`, snap.RunID)
		if err != nil {
			return errors.Wrapf(err, "unable to clear %s", table)
		}
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO runs(id, seq, started_at, ended_at, stages)
		VALUES(?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs), ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET started_at = excluded.started_at, ended_at = excluded.ended_at, stages = excluded.stages`,
		snap.RunID, formatTime(snap.Start), formatTime(snap.End), stages)
	if err != nil {
		return errors.Wrap(err, "unable to upsert run")
	}

	for _, v := range snap.Variants {
		lineage, err := json.Marshal(v.Lineage)
		if err != nil {
			return errors.Wrap(err, "unable to encode lineage")
		}
		props, err := json.Marshal(v.Props)
		if err != nil {
			return errors.Wrap(err, "unable to encode props")
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO variants(run_id, unique_id, container_id, name, structure, lineage, props)
			VALUES(?, ?, ?, ?, ?, ?, ?)`,
			snap.RunID, v.UniqueID, v.ContainerID, v.Name, v.Structure, lineage, props)
		if err != nil {
			return errors.Wrapf(err, "unable to insert variant %d", v.UniqueID)
		}
	}

	for _, f := range snap.Failures {
		_, err = tx.ExecContext(ctx, `INSERT INTO failures(run_id, container_id, original, name) VALUES(?, ?, ?, ?)`,
			snap.RunID, f.ContainerID, f.Original, f.Name)
		if err != nil {
			return errors.Wrapf(err, "unable to insert failure %d", f.ContainerID)
		}
	}

	err = tx.Commit()
	if err != nil {
		return errors.Wrap(err, "unable to commit run")
	}

	return nil
}

func (s *Store) Load(ctx context.Context, runID string) (archive.Snapshot, error) {
	snap := archive.Snapshot{RunID: runID}

	var (
		start, end string
		stages     []byte
	)

	err := s.db.QueryRowContext(ctx, `SELECT started_at, ended_at, stages FROM runs WHERE id = ?`, runID).
		Scan(&start, &end, &stages)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, errors.Wrapf(archive.ErrRunNotFound, "%s", runID)
	}
	if err != nil {
		return snap, errors.Wrap(err, "unable to select run")
	}

	snap.Start, err = parseTime(start)
	if err != nil {
		return snap, err
	}
	snap.End, err = parseTime(end)
	if err != nil {
		return snap, err
	}

	err = json.Unmarshal(stages, &snap.Stages)
	if err != nil {
		return snap, errors.Wrap(err, "unable to decode stages")
	}

	snap.Variants, err = s.loadVariants(ctx, runID)
	if err != nil {
		return snap, err
	}

	snap.Failures, err = s.loadFailures(ctx, runID)
	if err != nil {
		return snap, err
	}

	return snap, nil
}

func (s *Store) loadVariants(ctx context.Context, runID string) ([]archive.VariantRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT unique_id, container_id, name, structure, lineage, props
		FROM variants WHERE run_id = ? ORDER BY unique_id`, runID)
	if err != nil {
		return nil, errors.Wrap(err, "unable to select variants")
	}
	defer func() { _ = rows.Close() }()

	var res []archive.VariantRecord

	for rows.Next() {
		var (
			v              archive.VariantRecord
			lineage, props []byte
		)

		err := rows.Scan(&v.UniqueID, &v.ContainerID, &v.Name, &v.Structure, &lineage, &props)
		if err != nil {
			return nil, errors.Wrap(err, "unable to scan variant")
		}
		err = json.Unmarshal(lineage, &v.Lineage)
		if err != nil {
			return nil, errors.Wrap(err, "unable to decode lineage")
		}
		err = json.Unmarshal(props, &v.Props)
		if err != nil {
			return nil, errors.Wrap(err, "unable to decode props")
		}
		res = append(res, v)
	}

	return res, errors.Wrap(rows.Err(), "unable to read variants")
}

func (s *Store) loadFailures(ctx context.Context, runID string) ([]failure.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT container_id, original, name
		FROM failures WHERE run_id = ? ORDER BY container_id`, runID)
	if err != nil {
		return nil, errors.Wrap(err, "unable to select failures")
	}
	defer func() { _ = rows.Close() }()

	var res []failure.Record

	for rows.Next() {
		var f failure.Record

		err := rows.Scan(&f.ContainerID, &f.Original, &f.Name)
		if err != nil {
			return nil, errors.Wrap(err, "unable to scan failure")
		}
		res = append(res, f)
	}

	return res, errors.Wrap(rows.Err(), "unable to read failures")
}

// Runs returns the run ids in first save order.
func (s *Store) Runs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs ORDER BY seq`)
	if err != nil {
		return nil, errors.Wrap(err, "unable to select runs")
	}
	defer func() { _ = rows.Close() }()

	var ids []string

	for rows.Next() {
		var id string

		err := rows.Scan(&id)
		if err != nil {
			return nil, errors.Wrap(err, "unable to scan run")
		}
		ids = append(ids, id)
	}

	return ids, errors.Wrap(rows.Err(), "unable to read runs")
}

func (s *Store) Close() error {
	return errors.Wrap(s.db.Close(), "unable to close archive")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return t, errors.Wrapf(err, "unable to parse time %q", s)
	}

	return t, nil
}

var _ archive.Archive = (*Store)(nil)
