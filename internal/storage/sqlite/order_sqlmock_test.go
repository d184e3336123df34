package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/pos-order-engine/internal/domain/order"
)

func TestOrderRepository_Create_RollsBackOnLineFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewOrderRepository(&DB{write: db, read: db})
	o := newOrder(t, time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC), burger(1), soda(2))

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO order_counters").
		WithArgs("2024-01-15").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(7))
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(o.ID, "ORD-20240115-000007", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			"cash", "op-1", "2024-01-15T09:00:00.000000Z").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO order_lines").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO order_lines").
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err = repo.Create(context.Background(), o, jan15)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert line 2")
	assert.Empty(t, o.Number, "number is only assigned after commit")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Create_CommitFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewOrderRepository(&DB{write: db, read: db})
	o := newOrder(t, time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC), burger(1))

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO order_counters").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(1))
	mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO order_lines").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit().WillReturnError(errors.New("database is locked"))

	err = repo.Create(context.Background(), o, jan15)
	require.Error(t, err)
	require.NotErrorIs(t, err, order.ErrNumberConflict)
	assert.Empty(t, o.Number)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Create_CounterFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewOrderRepository(&DB{write: db, read: db})
	o := newOrder(t, time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC), burger(1))

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO order_counters").WillReturnError(errors.New("no such table"))
	mock.ExpectRollback()

	err = repo.Create(context.Background(), o, jan15)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "next order number")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Create_BeginFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewOrderRepository(&DB{write: db, read: db})
	o := newOrder(t, time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC), burger(1))

	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))

	err = repo.Create(context.Background(), o, jan15)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
