package billing

import (
	"context"
	"fmt"

	"github.com/mattw23n/emergency-dispatch-app/pkg/database"
)

// Billing row statuses. Transitions are monotonic: PENDING moves to
// exactly one of PAID or CANCELLED.
const (
	StatusPending   = "PENDING"
	StatusPaid      = "PAID"
	StatusCancelled = "CANCELLED"
)

// Store persists billing records.
type Store interface {
	CreateRecord(ctx context.Context, incidentID, patientID string, amountCents int64) (int64, error)
	MarkVerified(ctx context.Context, billingID int64) error
	MarkPaid(ctx context.Context, billingID int64, paymentReference string) error
	MarkCancelled(ctx context.Context, billingID int64) error
}

// PostgresStore backs Store with the billing database.
type PostgresStore struct {
	db database.PostgresConn
}

func NewPostgresStore(db database.PostgresConn) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the billing_records table.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS billing_records (
			id                BIGSERIAL PRIMARY KEY,
			incident_id       TEXT NOT NULL,
			patient_id        TEXT NOT NULL,
			amount_cents      BIGINT NOT NULL,
			status            TEXT NOT NULL DEFAULT 'PENDING',
			insurance_verified BOOLEAN NOT NULL DEFAULT FALSE,
			payment_reference TEXT,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("failed to create billing_records table: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateRecord(ctx context.Context, incidentID, patientID string, amountCents int64) (int64, error) {
	var billingID int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO billing_records (incident_id, patient_id, amount_cents, status)
		VALUES ($1, $2, $3, 'PENDING')
		RETURNING id`,
		incidentID, patientID, amountCents,
	).Scan(&billingID)
	if err != nil {
		return 0, fmt.Errorf("failed to create billing record: %w", err)
	}
	return billingID, nil
}

// MarkVerified records a successful insurance check.
func (s *PostgresStore) MarkVerified(ctx context.Context, billingID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE billing_records
		SET insurance_verified = TRUE, updated_at = now()
		WHERE id = $1`,
		billingID)
	if err != nil {
		return fmt.Errorf("failed to mark billing record verified: %w", err)
	}
	return nil
}

// MarkPaid moves a PENDING record to PAID with its payment reference.
// The status guard keeps transitions monotonic.
func (s *PostgresStore) MarkPaid(ctx context.Context, billingID int64, paymentReference string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE billing_records
		SET status = 'PAID', payment_reference = $2, updated_at = now()
		WHERE id = $1 AND status = 'PENDING'`,
		billingID, paymentReference)
	if err != nil {
		return fmt.Errorf("failed to mark billing record paid: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check billing update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("billing record %d is not pending", billingID)
	}
	return nil
}

// MarkCancelled moves a PENDING record to CANCELLED.
func (s *PostgresStore) MarkCancelled(ctx context.Context, billingID int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE billing_records
		SET status = 'CANCELLED', updated_at = now()
		WHERE id = $1 AND status = 'PENDING'`,
		billingID)
	if err != nil {
		return fmt.Errorf("failed to mark billing record cancelled: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check billing update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("billing record %d is not pending", billingID)
	}
	return nil
}
