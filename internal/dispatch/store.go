package dispatch

import (
	"context"
	"fmt"

	"github.com/mattw23n/emergency-dispatch-app/pkg/database"
)

// HospitalStore enumerates the local hospital table.
type HospitalStore interface {
	ListHospitals(ctx context.Context) ([]Hospital, error)
}

// PostgresHospitalStore backs HospitalStore with the dispatch database.
type PostgresHospitalStore struct {
	db database.PostgresConn
}

func NewPostgresHospitalStore(db database.PostgresConn) *PostgresHospitalStore {
	return &PostgresHospitalStore{db: db}
}

// EnsureSchema creates the hospitals table and seeds the initial facility
// set if the table is empty.
func (s *PostgresHospitalStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS hospitals (
			id       TEXT PRIMARY KEY,
			name     TEXT NOT NULL,
			lat      DOUBLE PRECISION NOT NULL,
			lng      DOUBLE PRECISION NOT NULL,
			capacity INT NOT NULL DEFAULT 0
		)`)
	if err != nil {
		return fmt.Errorf("failed to create hospitals table: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO hospitals (id, name, lat, lng, capacity) VALUES
			('hosp-1', 'Singapore General Hospital', 1.2789, 103.8358, 10),
			('hosp-2', 'Raffles Hospital', 1.2998, 103.8484, 8),
			('hosp-3', 'Mount Elizabeth Hospital', 1.3054, 103.8354, 12)
		ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("failed to seed hospitals: %w", err)
	}
	return nil
}

func (s *PostgresHospitalStore) ListHospitals(ctx context.Context) ([]Hospital, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, lat, lng, capacity FROM hospitals`)
	if err != nil {
		return nil, fmt.Errorf("failed to query hospitals: %w", err)
	}
	defer rows.Close()

	var hospitals []Hospital
	for rows.Next() {
		var h Hospital
		if err := rows.Scan(&h.ID, &h.Name, &h.Lat, &h.Lng, &h.Capacity); err != nil {
			return nil, fmt.Errorf("failed to scan hospital row: %w", err)
		}
		hospitals = append(hospitals, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate hospital rows: %w", err)
	}
	return hospitals, nil
}
