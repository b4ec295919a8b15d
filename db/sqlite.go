// Package db keeps a SQLite log of pipeline runs and the predictions they wrote.
package db

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS training_log (
    id INTEGER PRIMARY KEY,
    run_id TEXT NOT NULL UNIQUE,
    model_name VARCHAR(50),
    accuracy REAL,
    validation_accuracy REAL,
    val_precision REAL,
    val_recall REAL,
    iterations INTEGER,
    converged INTEGER,
    train_rows INTEGER,
    test_rows INTEGER,
    features TEXT,
    trained_at DATETIME
);
CREATE TABLE IF NOT EXISTS predictions (
    id INTEGER PRIMARY KEY,
    run_id TEXT NOT NULL,
    row_index INTEGER NOT NULL,
    entity_id TEXT NOT NULL,
    predicted_label INTEGER NOT NULL,
    UNIQUE(run_id, row_index)
);
CREATE INDEX IF NOT EXISTS idx_predictions_run ON predictions(run_id);
`

type TrainingLog struct {
	RunID              string    `json:"run_id"`
	ModelName          string    `json:"model_name"`
	Accuracy           float64   `json:"accuracy"`
	ValidationAccuracy float64   `json:"validation_accuracy"`
	Precision          float64   `json:"precision"`
	Recall             float64   `json:"recall"`
	Iterations         int       `json:"iterations"`
	Converged          bool      `json:"converged"`
	TrainRows          int       `json:"train_rows"`
	TestRows           int       `json:"test_rows"`
	Features           []string  `json:"features"`
	TrainedAt          time.Time `json:"trained_at"`
}

type Prediction struct {
	EntityID string `json:"entity_id"`
	Label    int    `json:"label"`
}

// Store writes run records to a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and its tables.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "create store dir for %s", path)
	}
	database, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "open database failed")
	}
	s := NewStore(database)
	if err := s.Migrate(); err != nil {
		database.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an open database handle.
func NewStore(database *sql.DB) *Store {
	return &Store{db: database}
}

func (s *Store) Migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return errors.Wrap(err, "create tables failed")
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// SaveRun writes the run and its predictions in one transaction.
func (s *Store) SaveRun(ctx context.Context, run TrainingLog, predictions []Prediction) error {
	if run.RunID == "" {
		return errors.New("run id required")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO training_log (
            run_id, model_name, accuracy, validation_accuracy, val_precision, val_recall,
            iterations, converged, train_rows, test_rows, features, trained_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.ModelName, run.Accuracy, run.ValidationAccuracy, run.Precision, run.Recall,
		run.Iterations, run.Converged, run.TrainRows, run.TestRows,
		strings.Join(run.Features, ","), run.TrainedAt.UTC())
	if err != nil {
		return errors.Wrap(err, "insert training log")
	}

	if len(predictions) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
            INSERT INTO predictions (run_id, row_index, entity_id, predicted_label)
            VALUES (?, ?, ?, ?)`)
		if err != nil {
			return errors.Wrap(err, "prepare prediction insert")
		}
		defer stmt.Close()
		for i, p := range predictions {
			if _, err := stmt.ExecContext(ctx, run.RunID, i, p.EntityID, p.Label); err != nil {
				return errors.Wrapf(err, "insert prediction %d", i)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit run")
	}
	return nil
}

// LoadTrainingLog returns all runs, newest first.
func (s *Store) LoadTrainingLog() ([]TrainingLog, error) {
	rows, err := s.db.Query(`
        SELECT run_id, model_name, accuracy, validation_accuracy, val_precision, val_recall,
               iterations, converged, train_rows, test_rows, features, trained_at
        FROM training_log
        ORDER BY trained_at DESC, id DESC
    `)
	if err != nil {
		return nil, errors.Wrap(err, "query training log")
	}
	defer rows.Close()

	logs := make([]TrainingLog, 0)
	for rows.Next() {
		var log TrainingLog
		var features string
		if err := rows.Scan(&log.RunID, &log.ModelName, &log.Accuracy, &log.ValidationAccuracy,
			&log.Precision, &log.Recall, &log.Iterations, &log.Converged,
			&log.TrainRows, &log.TestRows, &features, &log.TrainedAt); err != nil {
			return nil, errors.Wrap(err, "scan training log")
		}
		if features != "" {
			log.Features = strings.Split(features, ",")
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// LoadPredictions returns the predictions of a run in row order.
func (s *Store) LoadPredictions(runID string) ([]Prediction, error) {
	rows, err := s.db.Query(`
        SELECT entity_id, predicted_label
        FROM predictions
        WHERE run_id = ?
        ORDER BY row_index`, runID)
	if err != nil {
		return nil, errors.Wrap(err, "query predictions")
	}
	defer rows.Close()

	var out []Prediction
	for rows.Next() {
		var p Prediction
		if err := rows.Scan(&p.EntityID, &p.Label); err != nil {
			return nil, errors.Wrap(err, "scan prediction")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
