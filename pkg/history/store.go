package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"archguard-hq/warden/pkg/engine"
)

const schema = `
CREATE TABLE IF NOT EXISTS validations (
	id              TEXT PRIMARY KEY,
	created_at      TIMESTAMP NOT NULL,
	ok              INTEGER NOT NULL,
	violation_count INTEGER NOT NULL,
	duration_ms     INTEGER NOT NULL,
	violations      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_validations_created_at ON validations(created_at);
`

// Record is one persisted validation run.
type Record struct {
	ID             string          `json:"id"`
	CreatedAt      time.Time       `json:"created_at"`
	OK             bool            `json:"ok"`
	ViolationCount int             `json:"violation_count"`
	DurationMS     int64           `json:"duration_ms"`
	Violations     json.RawMessage `json:"violations"`
}

// Store is a SQLite-backed validation history.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates or opens the history database at path and ensures the schema
// exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database %q: %w", path, err)
	}
	// a single writer keeps sqlite lock contention out of the picture
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	return &Store{
		db:     db,
		logger: slog.Default().With("component", "history"),
	}, nil
}

// RecordValidation persists one validation outcome.
func (s *Store) RecordValidation(ctx context.Context, result engine.ValidateResult) error {
	violations, err := json.Marshal(result.Violations)
	if err != nil {
		return fmt.Errorf("failed to encode violations: %w", err)
	}

	ok := 0
	if result.OK {
		ok = 1
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO validations (id, created_at, ok, violation_count, duration_ms, violations)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(),
		time.Now().UTC(),
		ok,
		len(result.Violations),
		result.DurationMS,
		string(violations),
	)
	if err != nil {
		return fmt.Errorf("failed to insert validation record: %w", err)
	}
	return nil
}

// Recent returns the most recent validation records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, ok, violation_count, duration_ms, violations
		 FROM validations ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query validation history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var ok int
		var violations string
		if err := rows.Scan(&rec.ID, &rec.CreatedAt, &ok, &rec.ViolationCount, &rec.DurationMS, &violations); err != nil {
			return nil, fmt.Errorf("failed to scan validation record: %w", err)
		}
		rec.OK = ok == 1
		rec.Violations = json.RawMessage(violations)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// PruneOlderThan deletes records created before the cutoff and returns how
// many were removed.
func (s *Store) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM validations WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune validation history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
