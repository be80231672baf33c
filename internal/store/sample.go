package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// Sample is a recorded training sample of a sign.
type Sample struct {
	ID          int64           `json:"id"`
	SignID      string          `json:"sign_id"`
	SampleIndex int             `json:"sample_index"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SampleRepository provides operations for training samples.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Append numbers samples after the sign's existing ones and bumps its sample
// count, all in one transaction. A missing sign returns ErrNotFound.
func (r *SampleRepository) Append(signID string, samples []json.RawMessage) error {
	return inTx(r.db, func(tx *sql.Tx) error {
		var existing int
		err := tx.QueryRow(`SELECT samples FROM signs WHERE id = ?`, signID).Scan(&existing)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		err = insertEach(tx, `INSERT INTO sign_samples (sign_id, sample_index, data) VALUES (?, ?, ?)`,
			len(samples), func(i int) []any { return []any{signID, existing + i, string(samples[i])} })
		if err != nil {
			return err
		}

		_, err = tx.Exec(`UPDATE signs SET samples = ?, updated_at = ? WHERE id = ?`,
			existing+len(samples), time.Now(), signID)
		return err
	})
}

// GetBySignID returns the samples of a sign in recording order.
func (r *SampleRepository) GetBySignID(signID string) ([]Sample, error) {
	rows, err := r.db.Query(`SELECT id, sign_id, sample_index, data, created_at
		FROM sign_samples WHERE sign_id = ? ORDER BY sample_index`, signID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var (
			s    Sample
			data string
		)
		if err := rows.Scan(&s.ID, &s.SignID, &s.SampleIndex, &data, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Data = json.RawMessage(data)
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// DeleteBySignID removes all samples of a sign and resets its count.
func (r *SampleRepository) DeleteBySignID(signID string) error {
	return inTx(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM sign_samples WHERE sign_id = ?`, signID); err != nil {
			return err
		}
		_, err := tx.Exec(`UPDATE signs SET samples = 0, updated_at = ? WHERE id = ?`, time.Now(), signID)
		return err
	})
}
