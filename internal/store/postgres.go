package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/db"
	"github.com/sells-group/outreach-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for the
// hot per-profile writes.
var preparedStatements = map[string]string{
	"insert_run":      `INSERT INTO runs (id, filter, status, profiles_needed, output_dir, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"finish_run":      `UPDATE runs SET status = $1, result_path = $2, completed_at = $3 WHERE id = $4`,
	"get_run":         `SELECT id, filter, status, profiles_needed, output_dir, result_path, created_at, completed_at FROM runs WHERE id = $1`,
	"insert_artifact": `INSERT INTO page_artifacts (id, run_id, page, artifact, created_at) VALUES ($1, $2, $3, $4, $5)`,
	"save_outcome": `INSERT INTO profile_outcomes (id, run_id, profile_id, name, url, status, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id, profile_id) DO UPDATE SET status = EXCLUDED.status, message = EXCLUDED.message`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool, used by tests.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	filter          JSONB NOT NULL,
	status          TEXT NOT NULL DEFAULT 'running',
	profiles_needed INTEGER NOT NULL,
	output_dir      TEXT NOT NULL,
	result_path     TEXT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at    TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS page_artifacts (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	page       INTEGER NOT NULL,
	artifact   JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS profile_outcomes (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	profile_id TEXT NOT NULL,
	name       TEXT NOT NULL,
	url        TEXT NOT NULL,
	status     TEXT NOT NULL,
	message    TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (run_id, profile_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_page_artifacts_run_id ON page_artifacts(run_id);
CREATE INDEX IF NOT EXISTS idx_profile_outcomes_run_id ON profile_outcomes(run_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, run model.Run) error {
	filterJSON, err := json.Marshal(run.Filter)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal filter")
	}

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, filter, status, profiles_needed, output_dir, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, filterJSON, string(run.Status), run.ProfilesNeeded, run.OutputDir, createdAt,
	)
	return eris.Wrap(err, "postgres: insert run")
}

func (s *PostgresStore) FinishRun(ctx context.Context, id string, status model.RunStatus, resultPath string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, result_path = $2, completed_at = $3 WHERE id = $4`,
		string(status), resultPath, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrRunNotFound, "%s", id)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, filter, status, profiles_needed, output_dir, result_path, created_at, completed_at FROM runs WHERE id = $1`,
		id,
	)
	return scanPostgresRun(row)
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, filter, status, profiles_needed, output_dir, result_path, created_at, completed_at FROM runs WHERE 1=1`
	var args []any
	arg := 1

	if filter.Status != "" {
		query += ` AND status = $1`
		args = append(args, string(filter.Status))
		arg++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT $` + strconv.Itoa(arg)
	args = append(args, limit)
	arg++

	if filter.Offset > 0 {
		query += ` OFFSET $` + strconv.Itoa(arg)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPostgresRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) SaveArtifact(ctx context.Context, runID string, art model.PageArtifact) error {
	artJSON, err := json.Marshal(art)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal artifact")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO page_artifacts (id, run_id, page, artifact, created_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), runID, art.Page, artJSON, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: insert artifact for run %s", runID)
}

func (s *PostgresStore) SaveOutcome(ctx context.Context, runID string, rec model.ProfileRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO profile_outcomes (id, run_id, profile_id, name, url, status, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id, profile_id) DO UPDATE SET status = EXCLUDED.status, message = EXCLUDED.message`,
		uuid.New().String(), runID, rec.ID, rec.Name, rec.URL, string(rec.Status), rec.Message, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: save outcome for run %s", runID)
}

func (s *PostgresStore) ListOutcomes(ctx context.Context, runID string) ([]model.ProfileRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT profile_id, name, url, status, message FROM profile_outcomes
		WHERE run_id = $1 ORDER BY profile_id::integer`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list outcomes for run %s", runID)
	}
	defer rows.Close()

	var records []model.ProfileRecord
	for rows.Next() {
		var rec model.ProfileRecord
		var message *string
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.URL, &rec.Status, &message); err != nil {
			return nil, eris.Wrap(err, "postgres: scan outcome")
		}
		if message != nil {
			rec.Message = *message
		}
		records = append(records, rec)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list outcomes iterate")
}

func scanPostgresRun(row scannable) (*model.Run, error) {
	var r model.Run
	var filterJSON []byte
	var resultPath *string
	var completedAt *time.Time

	err := row.Scan(&r.ID, &filterJSON, &r.Status, &r.ProfilesNeeded, &r.OutputDir, &resultPath, &r.CreatedAt, &completedAt)
	if err == pgx.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan run")
	}

	if err := json.Unmarshal(filterJSON, &r.Filter); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal filter")
	}
	if resultPath != nil {
		r.ResultPath = *resultPath
	}
	r.CompletedAt = completedAt
	return &r, nil
}
