// Package history persists a rolling record of served predictions in SQLite.
// It backs the dashboard endpoints; the inference path treats a history write
// failure as non-fatal.
package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dberest/veridict/internal/logging"
)

//go:embed schema.sql
var schemaFS embed.FS

// Entry is one recorded prediction.
type Entry struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	ModelName  string    `json:"model_name"`
	WordCount  int       `json:"word_count"`
	Preview    string    `json:"preview"`
}

// Stats aggregates the recorded predictions.
type Stats struct {
	Total          int     `json:"total"`
	FakeCount      int     `json:"fake_count"`
	RealCount      int     `json:"real_count"`
	UncertainCount int     `json:"uncertain_count"`
	AvgConfidence  float64 `json:"avg_confidence"`
}

const previewLimit = 200

// Store wraps the SQLite-backed prediction log.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// NewStore runs migrations from schema.sql and returns the store.
func NewStore(db *sql.DB, logger logging.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("history: db is nil")
	}
	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return nil, fmt.Errorf("history: failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return nil, fmt.Errorf("history: failed to execute schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Record writes one prediction to the log and returns its id.
func (s *Store) Record(ctx context.Context, label string, confidence float64, modelName string, wordCount int, preview string) (string, error) {
	id := uuid.New().String()
	if len(preview) > previewLimit {
		preview = preview[:previewLimit]
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO predictions (id, created_at, label, confidence, model_name, word_count, preview)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, time.Now().UTC(), label, confidence, modelName, wordCount, preview)
	if err != nil {
		return "", fmt.Errorf("history: inserting prediction: %w", err)
	}
	return id, nil
}

// Recent returns the newest entries, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, label, confidence, model_name, word_count, preview
		 FROM predictions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: querying predictions: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.Label, &e.Confidence, &e.ModelName, &e.WordCount, &e.Preview); err != nil {
			return nil, fmt.Errorf("history: scanning prediction: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Stats aggregates counts per label and the mean confidence.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN label = 'FAKE' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN label = 'REAL' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN label = 'UNCERTAIN' THEN 1 ELSE 0 END), 0),
		        COALESCE(AVG(confidence), 0)
		 FROM predictions`).
		Scan(&st.Total, &st.FakeCount, &st.RealCount, &st.UncertainCount, &st.AvgConfidence)
	if err != nil {
		return nil, fmt.Errorf("history: aggregating predictions: %w", err)
	}
	return st, nil
}
