package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SignType is static (a letter) or dynamic (a word).
type SignType string

const (
	// SignTypeStatic is a single hand pose.
	SignTypeStatic SignType = "static"
	// SignTypeDynamic is a movement over several frames.
	SignTypeDynamic SignType = "dynamic"
)

// Valid reports whether t is a known sign type.
func (t SignType) Valid() bool {
	return t == SignTypeStatic || t == SignTypeDynamic
}

// Sign is a sign definition.
type Sign struct {
	ID        string
	Name      string
	Type      SignType
	Tolerance float64
	Samples   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Landmark is one trained landmark of a static sign.
type Landmark struct {
	X, Y, Z float64
}

// PathPoint is one trained point of a dynamic sign path.
type PathPoint struct {
	X, Y        float64
	TimestampMs int64
}

// SignRepository provides CRUD operations for signs and their templates.
type SignRepository struct {
	db *sql.DB
}

// Signs returns the sign repository for this store.
func (s *Store) Signs() *SignRepository {
	return &SignRepository{db: s.db}
}

const signColumns = `id, name, type, tolerance, samples, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSign(row scanner) (*Sign, error) {
	sign := &Sign{}
	var signType string
	if err := row.Scan(&sign.ID, &sign.Name, &signType, &sign.Tolerance, &sign.Samples, &sign.CreatedAt, &sign.UpdatedAt); err != nil {
		return nil, err
	}
	sign.Type = SignType(signType)
	return sign, nil
}

// Create inserts a new sign. A name already in use returns ErrDuplicate.
func (r *SignRepository) Create(sign *Sign) error {
	now := time.Now()
	sign.CreatedAt = now
	sign.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO signs (`+signColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sign.ID, sign.Name, string(sign.Type), sign.Tolerance, sign.Samples, sign.CreatedAt, sign.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("sign %q: %w", sign.Name, ErrDuplicate)
	}
	return err
}

// GetByID retrieves a sign by its ID.
func (r *SignRepository) GetByID(id string) (*Sign, error) {
	sign, err := scanSign(r.db.QueryRow(`SELECT `+signColumns+` FROM signs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sign, err
}

// GetByName retrieves a sign by its name.
func (r *SignRepository) GetByName(name string) (*Sign, error) {
	sign, err := scanSign(r.db.QueryRow(`SELECT `+signColumns+` FROM signs WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sign, err
}

// List retrieves all signs, newest first.
func (r *SignRepository) List() ([]*Sign, error) {
	rows, err := r.db.Query(`SELECT ` + signColumns + ` FROM signs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signs []*Sign
	for rows.Next() {
		sign, err := scanSign(rows)
		if err != nil {
			return nil, err
		}
		signs = append(signs, sign)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return signs, nil
}

// Update updates an existing sign.
func (r *SignRepository) Update(sign *Sign) error {
	sign.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE signs SET name = ?, type = ?, tolerance = ?, samples = ?, updated_at = ?
		 WHERE id = ?`,
		sign.Name, string(sign.Type), sign.Tolerance, sign.Samples, sign.UpdatedAt, sign.ID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("sign %q: %w", sign.Name, ErrDuplicate)
	}
	if err != nil {
		return err
	}
	return requireRow(result)
}

// Delete removes a sign and, by cascade, its templates and samples.
func (r *SignRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM signs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetLandmarks replaces the trained landmarks of a static sign.
func (r *SignRepository) SetLandmarks(id string, landmarks []Landmark) error {
	return inTx(r.db, func(tx *sql.Tx) error {
		if err := touch(tx, id); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM sign_landmarks WHERE sign_id = ?`, id); err != nil {
			return err
		}
		return insertEach(tx, `INSERT INTO sign_landmarks (sign_id, landmark_index, x, y, z) VALUES (?, ?, ?, ?, ?)`,
			len(landmarks), func(i int) []any {
				l := landmarks[i]
				return []any{id, i, l.X, l.Y, l.Z}
			})
	})
}

// GetLandmarks returns the trained landmarks of a sign in index order.
func (r *SignRepository) GetLandmarks(id string) ([]Landmark, error) {
	rows, err := r.db.Query(
		`SELECT x, y, z FROM sign_landmarks WHERE sign_id = ? ORDER BY landmark_index`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var landmarks []Landmark
	for rows.Next() {
		var l Landmark
		if err := rows.Scan(&l.X, &l.Y, &l.Z); err != nil {
			return nil, err
		}
		landmarks = append(landmarks, l)
	}
	return landmarks, rows.Err()
}

// SetPath replaces the trained path of a dynamic sign.
func (r *SignRepository) SetPath(id string, path []PathPoint) error {
	return inTx(r.db, func(tx *sql.Tx) error {
		if err := touch(tx, id); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM sign_paths WHERE sign_id = ?`, id); err != nil {
			return err
		}
		return insertEach(tx, `INSERT INTO sign_paths (sign_id, sequence, x, y, timestamp_ms) VALUES (?, ?, ?, ?, ?)`,
			len(path), func(i int) []any {
				p := path[i]
				return []any{id, i, p.X, p.Y, p.TimestampMs}
			})
	})
}

// GetPath returns the trained path of a sign in sequence order.
func (r *SignRepository) GetPath(id string) ([]PathPoint, error) {
	rows, err := r.db.Query(
		`SELECT x, y, timestamp_ms FROM sign_paths WHERE sign_id = ? ORDER BY sequence`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var path []PathPoint
	for rows.Next() {
		var p PathPoint
		if err := rows.Scan(&p.X, &p.Y, &p.TimestampMs); err != nil {
			return nil, err
		}
		path = append(path, p)
	}
	return path, rows.Err()
}

// touch bumps updated_at on a sign, returning ErrNotFound if it is missing.
func touch(tx *sql.Tx, id string) error {
	result, err := tx.Exec(`UPDATE signs SET updated_at = ? WHERE id = ?`, time.Now(), id)
	if err != nil {
		return err
	}
	return requireRow(result)
}
