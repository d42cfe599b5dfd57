// Package journal persists every evaluation to SQLite for audit and replay.
// A run is one engine session; its policy is stored alongside so a recorded
// run can be re-evaluated bit for bit later.
package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/hlv-labs/phase-readiness/go-middleware/internal/readiness"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	started_at   TEXT NOT NULL,
	policy_json  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS evaluations (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id           TEXT NOT NULL,
	t                REAL,
	temp_c           REAL,
	ambient_c        REAL,
	hysteresis_index REAL,
	coherence_index  REAL,
	valid            INTEGER NOT NULL,
	readiness        REAL NOT NULL,
	gate             TEXT NOT NULL,
	flags            INTEGER NOT NULL,
	gradient         REAL,
	trend            REAL,
	stability        REAL,
	created_at       TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE INDEX IF NOT EXISTS idx_evaluations_run ON evaluations(run_id, id);
`

// #endregion schema

// #region types

// RunRecord is one engine session and the policy it evaluated under.
type RunRecord struct {
	RunID     string
	StartedAt time.Time
	Policy    readiness.Config
}

// EvalRecord is one journaled Evaluate call.
type EvalRecord struct {
	ID        int64
	RunID     string
	Signals   readiness.Signals
	Output    readiness.Output
	CreatedAt time.Time
}

// #endregion types

// #region journal

// Journal is the SQLite-backed evaluation log.
type Journal struct {
	db *sql.DB
}

// Open opens (creating if needed) a journal database at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages.
func (j *Journal) DB() *sql.DB {
	return j.db
}

// #endregion journal

// #region runs

// BeginRun records a new engine session with its policy and returns it.
func (j *Journal) BeginRun(cfg readiness.Config) (RunRecord, error) {
	rec := RunRecord{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
		Policy:    cfg,
	}

	policyJSON, err := json.Marshal(cfg)
	if err != nil {
		return RunRecord{}, fmt.Errorf("marshal policy: %w", err)
	}

	_, err = j.db.Exec(
		`INSERT INTO runs (run_id, started_at, policy_json) VALUES (?, ?, ?)`,
		rec.RunID, rec.StartedAt.Format(time.RFC3339Nano), string(policyJSON),
	)
	if err != nil {
		return RunRecord{}, fmt.Errorf("insert run: %w", err)
	}
	return rec, nil
}

// ListRuns returns up to limit runs, most recent first.
func (j *Journal) ListRuns(limit int) ([]RunRecord, error) {
	rows, err := j.db.Query(
		`SELECT run_id, started_at, policy_json FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}

// LatestRun returns the most recently started run, or nil if none exists.
func (j *Journal) LatestRun() (*RunRecord, error) {
	row := j.db.QueryRow(
		`SELECT run_id, started_at, policy_json FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`,
	)
	rec, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Run returns the run with the given ID.
func (j *Journal) Run(runID string) (RunRecord, error) {
	row := j.db.QueryRow(
		`SELECT run_id, started_at, policy_json FROM runs WHERE run_id = ?`, runID,
	)
	return scanRun(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var rec RunRecord
	var startedAt, policyJSON string
	if err := row.Scan(&rec.RunID, &startedAt, &policyJSON); err != nil {
		if err == sql.ErrNoRows {
			return RunRecord{}, err
		}
		return RunRecord{}, fmt.Errorf("scan run: %w", err)
	}
	rec.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	if err := json.Unmarshal([]byte(policyJSON), &rec.Policy); err != nil {
		return RunRecord{}, fmt.Errorf("unmarshal policy: %w", err)
	}
	return rec, nil
}

// #endregion runs

// #region evaluations

// Append journals one Evaluate call under the given run. Non-finite floats
// are stored as NULL and read back as NaN.
func (j *Journal) Append(runID string, sig readiness.Signals, out readiness.Output) error {
	_, err := j.db.Exec(
		`INSERT INTO evaluations
		 (run_id, t, temp_c, ambient_c, hysteresis_index, coherence_index, valid,
		  readiness, gate, flags, gradient, trend, stability, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		nullIfNonFinite(sig.T),
		nullIfNonFinite(sig.TempC),
		nullIfNonFinite(sig.AmbientC),
		nullIfNonFinite(sig.HysteresisIndex),
		nullIfNonFinite(sig.CoherenceIndex),
		boolToInt(sig.Valid),
		out.Readiness,
		out.Gate.String(),
		int64(out.Flags),
		nullIfNonFinite(out.Gradient),
		nullIfNonFinite(out.Trend),
		nullIfNonFinite(out.StabilityScore),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append evaluation: %w", err)
	}
	return nil
}

// Evaluations returns all journaled calls for a run, in evaluation order.
func (j *Journal) Evaluations(runID string) ([]EvalRecord, error) {
	rows, err := j.db.Query(
		`SELECT id, run_id, t, temp_c, ambient_c, hysteresis_index, coherence_index,
		        valid, readiness, gate, flags, gradient, trend, stability, created_at
		 FROM evaluations WHERE run_id = ? ORDER BY id ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer rows.Close()

	var recs []EvalRecord
	for rows.Next() {
		var rec EvalRecord
		var t, tempC, ambientC, hyst, coh, gradient, trend, stability sql.NullFloat64
		var valid int
		var gate, createdAt string
		var flags int64
		if err := rows.Scan(
			&rec.ID, &rec.RunID, &t, &tempC, &ambientC, &hyst, &coh,
			&valid, &rec.Output.Readiness, &gate, &flags,
			&gradient, &trend, &stability, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		rec.Signals = readiness.Signals{
			T:               floatOrNaN(t),
			TempC:           floatOrNaN(tempC),
			AmbientC:        floatOrNaN(ambientC),
			HysteresisIndex: floatOrNaN(hyst),
			CoherenceIndex:  floatOrNaN(coh),
			Valid:           valid != 0,
		}
		rec.Output.Gate = readiness.GateFromString(gate)
		rec.Output.Flags = readiness.Flags(flags)
		rec.Output.Gradient = floatOrNaN(gradient)
		rec.Output.Trend = floatOrNaN(trend)
		rec.Output.StabilityScore = floatOrNaN(stability)
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// #endregion evaluations

// #region helpers

func nullIfNonFinite(x float64) any {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	return x
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers
