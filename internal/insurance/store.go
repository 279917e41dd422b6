package insurance

import (
	"context"
	"fmt"

	"github.com/mattw23n/emergency-dispatch-app/pkg/database"
)

// Policy is one patient's coverage row. Amounts are integer cents.
type Policy struct {
	PatientID           string `json:"patient_id"`
	ProviderName        string `json:"provider_name"`
	CoverageAmountCents int64  `json:"coverage_amount_cents"`
	Active              bool   `json:"active"`
}

// Store persists insurance policies.
type Store interface {
	GetPolicy(ctx context.Context, patientID string) (Policy, error)
	UpsertPolicy(ctx context.Context, p Policy) error
	DeletePolicy(ctx context.Context, patientID string) error
	ListPolicies(ctx context.Context) ([]Policy, error)
}

// ErrNotFound is returned when a patient has no policy row.
var ErrNotFound = database.ErrNoRows

// PostgresStore backs Store with the insurance database.
type PostgresStore struct {
	db database.PostgresConn
}

func NewPostgresStore(db database.PostgresConn) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the policies table.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS policies (
			patient_id            TEXT PRIMARY KEY,
			provider_name         TEXT NOT NULL,
			coverage_amount_cents BIGINT NOT NULL,
			active                BOOLEAN NOT NULL DEFAULT TRUE
		)`)
	if err != nil {
		return fmt.Errorf("failed to create policies table: %w", err)
	}

	// Demo policies for the simulated patient roster.
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO policies (patient_id, provider_name, coverage_amount_cents, active) VALUES
			('P100', 'MediShield Life', 500000, TRUE),
			('P200', 'Great Eastern', 300000, TRUE),
			('P300', 'MediShield Life', 500000, TRUE)
		ON CONFLICT (patient_id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("failed to seed policies: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPolicy(ctx context.Context, patientID string) (Policy, error) {
	var p Policy
	err := s.db.QueryRowContext(ctx, `
		SELECT patient_id, provider_name, coverage_amount_cents, active
		FROM policies WHERE patient_id = $1`,
		patientID,
	).Scan(&p.PatientID, &p.ProviderName, &p.CoverageAmountCents, &p.Active)
	if err != nil {
		if err == database.ErrNoRows {
			return Policy{}, ErrNotFound
		}
		return Policy{}, fmt.Errorf("failed to query policy: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) UpsertPolicy(ctx context.Context, p Policy) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO policies (patient_id, provider_name, coverage_amount_cents, active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (patient_id) DO UPDATE SET
			provider_name = EXCLUDED.provider_name,
			coverage_amount_cents = EXCLUDED.coverage_amount_cents,
			active = EXCLUDED.active`,
		p.PatientID, p.ProviderName, p.CoverageAmountCents, p.Active)
	if err != nil {
		return fmt.Errorf("failed to upsert policy: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeletePolicy(ctx context.Context, patientID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM policies WHERE patient_id = $1`, patientID)
	if err != nil {
		return fmt.Errorf("failed to delete policy: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check policy delete: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListPolicies(ctx context.Context) ([]Policy, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT patient_id, provider_name, coverage_amount_cents, active
		FROM policies ORDER BY patient_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query policies: %w", err)
	}
	defer rows.Close()

	var policies []Policy
	for rows.Next() {
		var p Policy
		if err := rows.Scan(&p.PatientID, &p.ProviderName, &p.CoverageAmountCents, &p.Active); err != nil {
			return nil, fmt.Errorf("failed to scan policy row: %w", err)
		}
		policies = append(policies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate policy rows: %w", err)
	}
	return policies, nil
}
