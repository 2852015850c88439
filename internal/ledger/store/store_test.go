package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/colmado/internal/ledger"
	"github.com/MrJamesThe3rd/colmado/internal/ledger/store"
)

func TestStore_CreateEntry(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO journal_entries`).
		WithArgs(sqlmock.AnyArg(), "shrinkage", "adj-1", "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(id.String(), now))
	mock.ExpectExec(`INSERT INTO journal_lines`).
		WithArgs(sqlmock.AnyArg(), 1, "6301", "damage", "80", "0").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO journal_lines`).
		WithArgs(sqlmock.AnyArg(), 2, "1201", "inventory", "0", "80").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	entry := &ledger.Entry{
		Date:      now,
		Memo:      "shrinkage",
		Reference: "adj-1",
		Lines: []ledger.Line{
			ledger.Debit("6301", decimal.NewFromInt(80), "damage"),
			ledger.Credit("1201", decimal.NewFromInt(80), "inventory"),
		},
	}

	require.NoError(t, store.New(db).CreateEntry(context.Background(), entry))
	assert.Equal(t, id, entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CreateEntry_ExistingSourceKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	existing := uuid.New()
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	cols := []string{"id", "date", "memo", "reference", "created_at", "account_code", "description", "debit", "credit"}

	mock.ExpectBegin()
	mock.ExpectQuery(`ON CONFLICT \(source_key\) DO NOTHING`).
		WithArgs(sqlmock.AnyArg(), "settlement", "s-1", "card_settlement:s-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}))
	mock.ExpectQuery(`WHERE e.source_key = \$1`).
		WithArgs("card_settlement:s-1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(existing.String(), date, "settlement", "s-1", date, "1001", "bank", "942", "0").
			AddRow(existing.String(), date, "settlement", "s-1", date, "1103", "clearing", "0", "942"))
	mock.ExpectRollback()

	entry := &ledger.Entry{
		Date:      date,
		Memo:      "settlement",
		Reference: "s-1",
		SourceKey: "card_settlement:s-1",
		Lines: []ledger.Line{
			ledger.Debit("1001", decimal.NewFromInt(942), "bank"),
			ledger.Credit("1103", decimal.NewFromInt(942), "clearing"),
		},
	}

	require.NoError(t, store.New(db).CreateEntry(context.Background(), entry))
	assert.Equal(t, existing, entry.ID)
	assert.Equal(t, "card_settlement:s-1", entry.SourceKey)
	assert.Len(t, entry.Lines, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CreateEntry_LineFailureRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO journal_entries`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(uuid.NewString(), time.Now()))
	mock.ExpectExec(`INSERT INTO journal_lines`).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	entry := &ledger.Entry{Lines: []ledger.Line{
		ledger.Debit("1201", decimal.NewFromInt(5), ""),
		ledger.Credit("4201", decimal.NewFromInt(5), ""),
	}}

	err = store.New(db).CreateEntry(context.Background(), entry)
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetEntry(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	cols := []string{"id", "date", "memo", "reference", "created_at", "account_code", "description", "debit", "credit"}

	mock.ExpectQuery(`FROM journal_entries e`).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(id.String(), date, "settlement", "s-1", date, "1001", "bank", "942.0000", "0").
			AddRow(id.String(), date, "settlement", "s-1", date, "1103", "clearing", "0", "942.0000"))

	got, err := store.New(db).GetEntry(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	require.Len(t, got.Lines, 2)
	assert.True(t, decimal.NewFromInt(942).Equal(got.Lines[0].Debit))
	assert.True(t, decimal.NewFromInt(942).Equal(got.Lines[1].Credit))
}

func TestStore_GetEntry_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM journal_entries e`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = store.New(db).GetEntry(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}
