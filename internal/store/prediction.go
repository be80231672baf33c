package store

import (
	"database/sql"
	"time"
)

// Prediction is one published prediction kept for history.
type Prediction struct {
	ID         int64     `json:"id"`
	Kind       string    `json:"kind"`
	Label      string    `json:"text"`
	Confidence float64   `json:"confidence"`
	ProducedAt time.Time `json:"produced_at"`
}

// PredictionRepository records and queries prediction history.
type PredictionRepository struct {
	db *sql.DB
}

// Predictions returns the prediction repository for this store.
func (s *Store) Predictions() *PredictionRepository {
	return &PredictionRepository{db: s.db}
}

// Insert records p and sets its ID.
func (r *PredictionRepository) Insert(p *Prediction) error {
	result, err := r.db.Exec(
		`INSERT INTO predictions (kind, label, confidence, produced_at) VALUES (?, ?, ?, ?)`,
		p.Kind, p.Label, p.Confidence, p.ProducedAt.UTC(),
	)
	if err != nil {
		return err
	}
	p.ID, err = result.LastInsertId()
	return err
}

// Recent returns up to limit predictions, newest first.
func (r *PredictionRepository) Recent(limit int) ([]Prediction, error) {
	rows, err := r.db.Query(
		`SELECT id, kind, label, confidence, produced_at
		 FROM predictions ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	predictions := []Prediction{}
	for rows.Next() {
		var p Prediction
		if err := rows.Scan(&p.ID, &p.Kind, &p.Label, &p.Confidence, &p.ProducedAt); err != nil {
			return nil, err
		}
		predictions = append(predictions, p)
	}
	return predictions, rows.Err()
}

// Count returns the number of recorded predictions.
func (r *PredictionRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM predictions`).Scan(&n)
	return n, err
}

// Trim deletes all but the newest keep predictions and returns how many were
// removed.
func (r *PredictionRepository) Trim(keep int) (int64, error) {
	result, err := r.db.Exec(
		`DELETE FROM predictions WHERE id NOT IN (
			SELECT id FROM predictions ORDER BY id DESC LIMIT ?
		)`,
		keep,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
