package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"tourney/internal/model"
	"tourney/internal/opt"
	"tourney/internal/schedule"
	"tourney/internal/validate"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// schema is idempotent; Migrate may run on every start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id              uuid PRIMARY KEY,
		created_at      timestamptz NOT NULL,
		algorithm       text NOT NULL,
		teams           integer NOT NULL,
		seed            bigint NOT NULL,
		spread_km       double precision NOT NULL DEFAULT 0,
		baseline_total  double precision NOT NULL,
		best_total      double precision NOT NULL,
		improvement_pct double precision NOT NULL,
		iterations      integer NOT NULL,
		runtime_ms      bigint NOT NULL,
		valid           boolean NOT NULL,
		error           text,
		violations      jsonb,
		improvements    jsonb,
		schedule        jsonb NOT NULL,
		log             jsonb
	)`,
	`CREATE INDEX IF NOT EXISTS runs_created_idx ON runs (created_at DESC, id DESC)`,
	`CREATE INDEX IF NOT EXISTS runs_algorithm_idx ON runs (algorithm, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS optimizer_config (
		id         smallint PRIMARY KEY DEFAULT 1 CHECK (id = 1),
		config     jsonb NOT NULL,
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the tables in one transaction.
func (p *Postgres) Migrate(ctx context.Context) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for i, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	return tx.Commit()
}

const runColumns = `id::text, created_at, algorithm, teams, seed, spread_km, baseline_total, best_total,
	improvement_pct, iterations, runtime_ms, valid, error, violations, improvements, schedule, log`

func (p *Postgres) SaveRun(ctx context.Context, run model.Run) (model.Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	sched, err := json.Marshal(run.Schedule)
	if err != nil {
		return model.Run{}, err
	}
	viol, err := jsonOrNil(run.Violations, len(run.Violations) == 0)
	if err != nil {
		return model.Run{}, err
	}
	imps, err := jsonOrNil(run.Improvements, len(run.Improvements) == 0)
	if err != nil {
		return model.Run{}, err
	}
	lg, err := jsonOrNil(run.Log, run.Log == nil)
	if err != nil {
		return model.Run{}, err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO runs (id, created_at, algorithm, teams, seed, spread_km, baseline_total,
		best_total, improvement_pct, iterations, runtime_ms, valid, error, violations, improvements, schedule, log)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		ON CONFLICT (id) DO UPDATE SET best_total=EXCLUDED.best_total, improvement_pct=EXCLUDED.improvement_pct,
			iterations=EXCLUDED.iterations, runtime_ms=EXCLUDED.runtime_ms, valid=EXCLUDED.valid, error=EXCLUDED.error,
			violations=EXCLUDED.violations, improvements=EXCLUDED.improvements, schedule=EXCLUDED.schedule, log=EXCLUDED.log`,
		run.ID, run.CreatedAt, run.Algorithm, run.Teams, run.Seed, run.SpreadKm, run.BaselineTotal,
		run.BestTotal, run.ImprovementPct, run.Iterations, run.RuntimeMs, run.Valid, nullIfEmpty(run.Error),
		viol, imps, string(sched), lg)
	if err != nil {
		return model.Run{}, err
	}
	return run, nil
}

func (p *Postgres) GetRun(ctx context.Context, id string) (model.Run, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Run{}, ErrNotFound
	}
	row := p.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id=$1`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Run{}, ErrNotFound
	}
	return r, err
}

func (p *Postgres) ListRuns(ctx context.Context, algorithm, cur string, limit int) ([]model.Run, string, error) {
	limit = clampLimit(limit)
	q := `SELECT ` + runColumns + ` FROM runs WHERE ($1 = '' OR algorithm = $1)`
	args := []any{algorithm}
	if cur != "" {
		c, err := decodeCursor(cur)
		if err != nil {
			return nil, "", err
		}
		q += ` AND (created_at, id::text) < ($2, $3)`
		args = append(args, c.CreatedAt, c.ID)
	}
	q += fmt.Sprintf(` ORDER BY created_at DESC, id::text DESC LIMIT %d`, limit)
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	var next string
	if len(out) == limit {
		next = encodeCursor(out[len(out)-1])
	}
	return out, next, nil
}

func (p *Postgres) RunStats(ctx context.Context) ([]model.RunStats, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT algorithm, count(*), count(*) FILTER (WHERE valid),
		avg(improvement_pct), max(improvement_pct), avg(runtime_ms)::double precision
		FROM runs GROUP BY algorithm ORDER BY algorithm`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.RunStats{}
	for rows.Next() {
		var s model.RunStats
		if err := rows.Scan(&s.Algorithm, &s.Runs, &s.Valid, &s.AvgImprovementPct, &s.BestImprovementPct, &s.AvgRuntimeMs); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) GetOptimizerConfig(ctx context.Context) (map[string]any, error) {
	row := p.db.QueryRowContext(ctx, `SELECT config FROM optimizer_config WHERE id=1`)
	var js []byte
	if err := row.Scan(&js); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	var cfg map[string]any
	if err := json.Unmarshal(js, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (p *Postgres) SaveOptimizerConfig(ctx context.Context, cfg map[string]any) error {
	js, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO optimizer_config (id, config, updated_at) VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET config=$1, updated_at=now()`, string(js))
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (model.Run, error) {
	var (
		r                     model.Run
		errText               sql.NullString
		viol, imps, sched, lg []byte
	)
	if err := row.Scan(&r.ID, &r.CreatedAt, &r.Algorithm, &r.Teams, &r.Seed, &r.SpreadKm, &r.BaselineTotal,
		&r.BestTotal, &r.ImprovementPct, &r.Iterations, &r.RuntimeMs, &r.Valid, &errText,
		&viol, &imps, &sched, &lg); err != nil {
		return model.Run{}, err
	}
	r.Error = errText.String
	r.CreatedAt = r.CreatedAt.UTC()
	if err := decodeRunJSON(&r, viol, imps, sched, lg); err != nil {
		return model.Run{}, fmt.Errorf("run %s: %w", r.ID, err)
	}
	return r, nil
}

func decodeRunJSON(r *model.Run, viol, imps, sched, lg []byte) error {
	if len(viol) > 0 {
		var v []validate.Violation
		if err := json.Unmarshal(viol, &v); err != nil {
			return err
		}
		r.Violations = v
	}
	if len(imps) > 0 {
		var im []opt.Improvement
		if err := json.Unmarshal(imps, &im); err != nil {
			return err
		}
		r.Improvements = im
	}
	var s schedule.Schedule
	if err := json.Unmarshal(sched, &s); err != nil {
		return err
	}
	r.Schedule = s
	if len(lg) > 0 {
		var l opt.SearchLog
		if err := json.Unmarshal(lg, &l); err != nil {
			return err
		}
		r.Log = &l
	}
	return nil
}

// jsonOrNil encodes v, or returns a SQL NULL when empty is set.
func jsonOrNil(v any, empty bool) (any, error) {
	if empty {
		return nil, nil
	}
	js, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(js), nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
