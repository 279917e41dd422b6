package billing

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestCreateRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO billing_records").
		WithArgs("inc-1", "P1", int64(15000)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	store := NewPostgresStore(db)
	id, err := store.CreateRecord(context.Background(), "inc-1", "P1", 15000)
	require.NoError(t, err)
	require.Equal(t, int64(42), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkPaid(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE billing_records").
		WithArgs(int64(42), "pi_123").
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewPostgresStore(db)
	require.NoError(t, store.MarkPaid(context.Background(), 42, "pi_123"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkPaidNotPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// Status guard matches no rows when the record is already settled.
	mock.ExpectExec("UPDATE billing_records").
		WithArgs(int64(42), "pi_123").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewPostgresStore(db)
	require.Error(t, store.MarkPaid(context.Background(), 42, "pi_123"))
}

func TestMarkCancelledNotPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE billing_records").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewPostgresStore(db)
	require.Error(t, store.MarkCancelled(context.Background(), 7))
}

func TestMarkVerified(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE billing_records").
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewPostgresStore(db)
	require.NoError(t, store.MarkVerified(context.Background(), 42))
	require.NoError(t, mock.ExpectationsWereMet())
}
