// Package store persists baselines and validation runs in SQLite.
//
// Baseline images are stored as raw RGBA blobs next to their dimensions,
// so a row round-trips losslessly into a pixel.Buffer. Validation runs
// keep the full result as JSON plus the columns worth querying on.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/regard/dbopen"
	"github.com/hazyhaar/regard/idgen"
	"github.com/hazyhaar/regard/pixel"
	"github.com/hazyhaar/regard/validate"
)

const schema = `
	CREATE TABLE IF NOT EXISTS baselines (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		url TEXT NOT NULL DEFAULT '',
		selector TEXT NOT NULL DEFAULT '',
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		image BLOB NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS validation_runs (
		id TEXT PRIMARY KEY,
		baseline_id TEXT NOT NULL,
		passed INTEGER NOT NULL,
		similarity REAL NOT NULL,
		regions INTEGER NOT NULL,
		tasks INTEGER NOT NULL,
		iterations INTEGER NOT NULL,
		result TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (baseline_id) REFERENCES baselines(id)
	);
	CREATE INDEX IF NOT EXISTS idx_runs_baseline ON validation_runs(baseline_id, created_at);
`

// Store reads and writes baselines and validation runs.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	newID  idgen.Generator
	now    func() time.Time
}

// Option customises a Store.
type Option func(*Store)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option { return func(s *Store) { s.logger = l } }

// WithIDGenerator sets the row ID generator. Default: UUIDv7.
func WithIDGenerator(gen idgen.Generator) Option { return func(s *Store) { s.newID = gen } }

// WithClock injects the timestamp source. Default: time.Now.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// New wraps an already-open database. The schema must have been applied;
// Open does both.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		logger: slog.Default(),
		newID:  idgen.Default,
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Open opens (creating parent directories and the schema as needed) the
// SQLite database at path and returns a Store over it. The caller owns
// the returned *sql.DB via Close.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(schema))
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	return New(db, opts...), nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// SaveBaseline inserts or replaces (by name) a baseline and returns its
// row ID. Replacing keeps the name stable while the image, box, and ID
// change.
func (s *Store) SaveBaseline(ctx context.Context, b *validate.Baseline) (string, error) {
	if b.Image == nil {
		return "", errors.New("store: baseline has no image")
	}
	id := s.newID()
	createdAt := b.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	err := dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM baselines WHERE name = ?`, b.Name); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO baselines (id, name, url, selector, width, height, image, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, b.Name, b.URL, b.Selector, b.Width, b.Height, b.Image.Pix, createdAt.UnixMilli())
		return err
	})
	if err != nil {
		return "", fmt.Errorf("store: save baseline %q: %w", b.Name, err)
	}

	s.logger.Info("store: baseline saved", "id", id, "name", b.Name,
		"width", b.Width, "height", b.Height)
	return id, nil
}

// Baseline loads a baseline by row ID, image included.
func (s *Store) Baseline(ctx context.Context, id string) (*validate.Baseline, error) {
	return s.scanBaseline(s.db.QueryRowContext(ctx, `
		SELECT name, url, selector, width, height, image, created_at
		FROM baselines WHERE id = ?`, id))
}

// BaselineByName loads a baseline by its unique name, image included.
func (s *Store) BaselineByName(ctx context.Context, name string) (*validate.Baseline, error) {
	return s.scanBaseline(s.db.QueryRowContext(ctx, `
		SELECT name, url, selector, width, height, image, created_at
		FROM baselines WHERE name = ?`, name))
}

func (s *Store) scanBaseline(row *sql.Row) (*validate.Baseline, error) {
	var (
		b       validate.Baseline
		pix     []byte
		created int64
	)
	err := row.Scan(&b.Name, &b.URL, &b.Selector, &b.Width, &b.Height, &pix, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: load baseline: %w", err)
	}
	b.Image = &pixel.Buffer{Pix: pix, Width: b.Width, Height: b.Height}
	b.CreatedAt = time.UnixMilli(created).UTC()
	return &b, nil
}

// BaselineInfo is a baseline row without its image blob.
type BaselineInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url,omitempty"`
	Selector  string    `json:"selector,omitempty"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListBaselines returns all baselines, newest first, without images.
func (s *Store) ListBaselines(ctx context.Context) ([]BaselineInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, url, selector, width, height, created_at
		FROM baselines ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list baselines: %w", err)
	}
	defer rows.Close()

	var out []BaselineInfo
	for rows.Next() {
		var (
			info    BaselineInfo
			created int64
		)
		if err := rows.Scan(&info.ID, &info.Name, &info.URL, &info.Selector,
			&info.Width, &info.Height, &created); err != nil {
			return nil, fmt.Errorf("store: list baselines: %w", err)
		}
		info.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, info)
	}
	return out, rows.Err()
}

// DeleteBaseline removes a baseline and its validation runs.
func (s *Store) DeleteBaseline(ctx context.Context, id string) error {
	err := dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM validation_runs WHERE baseline_id = ?`, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM baselines WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("store: delete baseline %s: %w", id, err)
	}
	return nil
}

// Run is a recorded validation outcome.
type Run struct {
	ID         string          `json:"id"`
	BaselineID string          `json:"baselineId"`
	Passed     bool            `json:"passed"`
	Similarity float64         `json:"similarity"`
	Regions    int             `json:"regions"`
	Tasks      int             `json:"tasks"`
	Iterations int             `json:"iterations"`
	Result     json.RawMessage `json:"result"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// RecordRun stores a validation result against a baseline and returns the
// run ID. The full result is kept as JSON; the scalar columns exist for
// querying.
func (s *Store) RecordRun(ctx context.Context, baselineID string, res *validate.Result) (string, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("store: marshal result: %w", err)
	}
	id := s.newID()
	_, err = dbopen.Exec(ctx, s.db, `
		INSERT INTO validation_runs
			(id, baseline_id, passed, similarity, regions, tasks, iterations, result, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, baselineID, res.Passed, res.Similarity,
		len(res.DiffRegions), len(res.FixTasks), res.Iterations,
		string(data), s.now().UnixMilli())
	if err != nil {
		return "", fmt.Errorf("store: record run: %w", err)
	}

	s.logger.Info("store: run recorded", "id", id, "baseline", baselineID,
		"passed", res.Passed, "similarity", res.Similarity)
	return id, nil
}

// Runs returns runs for a baseline, newest first, capped at limit
// (0 means no cap).
func (s *Store) Runs(ctx context.Context, baselineID string, limit int) ([]Run, error) {
	q := `
		SELECT id, baseline_id, passed, similarity, regions, tasks, iterations, result, created_at
		FROM validation_runs WHERE baseline_id = ? ORDER BY created_at DESC`
	args := []any{baselineID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r       Run
			result  string
			created int64
		)
		if err := rows.Scan(&r.ID, &r.BaselineID, &r.Passed, &r.Similarity,
			&r.Regions, &r.Tasks, &r.Iterations, &result, &created); err != nil {
			return nil, fmt.Errorf("store: list runs: %w", err)
		}
		r.Result = json.RawMessage(result)
		r.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}
