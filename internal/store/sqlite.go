package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/outreach-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	filter          TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'running',
	profiles_needed INTEGER NOT NULL,
	output_dir      TEXT NOT NULL,
	result_path     TEXT,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at    DATETIME
);

CREATE TABLE IF NOT EXISTS page_artifacts (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	page       INTEGER NOT NULL,
	artifact   TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS profile_outcomes (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	profile_id TEXT NOT NULL,
	name       TEXT NOT NULL,
	url        TEXT NOT NULL,
	status     TEXT NOT NULL,
	message    TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE(run_id, profile_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_page_artifacts_run_id ON page_artifacts(run_id);
CREATE INDEX IF NOT EXISTS idx_profile_outcomes_run_id ON profile_outcomes(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run model.Run) error {
	filterJSON, err := json.Marshal(run.Filter)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal filter")
	}

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, filter, status, profiles_needed, output_dir, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, string(filterJSON), string(run.Status), run.ProfilesNeeded, run.OutputDir, createdAt,
	)
	return eris.Wrap(err, "sqlite: insert run")
}

func (s *SQLiteStore) FinishRun(ctx context.Context, id string, status model.RunStatus, resultPath string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, result_path = ?, completed_at = ? WHERE id = ?`,
		string(status), resultPath, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, filter, status, profiles_needed, output_dir, result_path, created_at, completed_at
		 FROM runs WHERE id = ?`,
		id,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, filter, status, profiles_needed, output_dir, result_path, created_at, completed_at
	          FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) SaveArtifact(ctx context.Context, runID string, art model.PageArtifact) error {
	artJSON, err := json.Marshal(art)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal artifact")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO page_artifacts (id, run_id, page, artifact, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), runID, art.Page, string(artJSON), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert artifact for run %s", runID)
}

func (s *SQLiteStore) SaveOutcome(ctx context.Context, runID string, rec model.ProfileRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profile_outcomes (id, run_id, profile_id, name, url, status, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id, profile_id) DO UPDATE SET status = excluded.status, message = excluded.message`,
		uuid.New().String(), runID, rec.ID, rec.Name, rec.URL, string(rec.Status), rec.Message, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save outcome for run %s", runID)
}

func (s *SQLiteStore) ListOutcomes(ctx context.Context, runID string) ([]model.ProfileRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT profile_id, name, url, status, message FROM profile_outcomes
		 WHERE run_id = ? ORDER BY CAST(profile_id AS INTEGER)`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list outcomes for run %s", runID)
	}
	defer rows.Close()

	var records []model.ProfileRecord
	for rows.Next() {
		var rec model.ProfileRecord
		var message sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.URL, &rec.Status, &message); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan outcome")
		}
		rec.Message = message.String
		records = append(records, rec)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list outcomes iterate")
}

// helpers

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrRunNotFound, "%s", id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var filterJSON string
	var resultPath sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(&r.ID, &filterJSON, &r.Status, &r.ProfilesNeeded, &r.OutputDir, &resultPath, &r.CreatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if err := json.Unmarshal([]byte(filterJSON), &r.Filter); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal filter")
	}
	r.ResultPath = resultPath.String
	if completedAt.Valid {
		t := completedAt.Time
		r.CompletedAt = &t
	}
	return &r, nil
}
