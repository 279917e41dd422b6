package insurance

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestGetPolicy(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"patient_id", "provider_name", "coverage_amount_cents", "active"}).
		AddRow("P1", "MediShield Life", int64(500000), true)
	mock.ExpectQuery("SELECT patient_id, provider_name, coverage_amount_cents, active").
		WithArgs("P1").
		WillReturnRows(rows)

	store := NewPostgresStore(db)
	p, err := store.GetPolicy(context.Background(), "P1")
	if err != nil {
		t.Fatalf("GetPolicy: %v", err)
	}
	if p.ProviderName != "MediShield Life" || p.CoverageAmountCents != 500000 || !p.Active {
		t.Errorf("unexpected policy: %+v", p)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGetPolicyNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT patient_id, provider_name, coverage_amount_cents, active").
		WithArgs("P404").
		WillReturnRows(sqlmock.NewRows([]string{"patient_id", "provider_name", "coverage_amount_cents", "active"}))

	store := NewPostgresStore(db)
	if _, err := store.GetPolicy(context.Background(), "P404"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpsertPolicy(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO policies").
		WithArgs("P1", "Great Eastern", int64(300000), true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewPostgresStore(db)
	err = store.UpsertPolicy(context.Background(), Policy{
		PatientID: "P1", ProviderName: "Great Eastern", CoverageAmountCents: 300000, Active: true,
	})
	if err != nil {
		t.Fatalf("UpsertPolicy: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
