package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/colmado/internal/ledger"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateEntry(ctx context.Context, entry *ledger.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning entry: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO journal_entries (date, memo, reference, source_key, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NOW())
		ON CONFLICT (source_key) DO NOTHING
		RETURNING id, created_at
	`, entry.Date, entry.Memo, entry.Reference, entry.SourceKey).Scan(&entry.ID, &entry.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return s.loadBySourceKey(ctx, entry)
	}

	if err != nil {
		return fmt.Errorf("creating entry: %w", err)
	}

	for i, l := range entry.Lines {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO journal_lines (entry_id, line_no, account_code, description, debit, credit)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, entry.ID, i+1, l.AccountCode, l.Description, l.Debit, l.Credit)
		if err != nil {
			return fmt.Errorf("creating entry line %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing entry: %w", err)
	}

	return nil
}

// loadBySourceKey replaces entry with the stored entry holding its key.
func (s *Store) loadBySourceKey(ctx context.Context, entry *ledger.Entry) error {
	rows, err := s.db.QueryContext(ctx, selectEntryWithLines+`
		WHERE e.source_key = $1
		ORDER BY l.line_no`, entry.SourceKey)
	if err != nil {
		return fmt.Errorf("getting entry by source key: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		return fmt.Errorf("entry for source key %q: %w", entry.SourceKey, ledger.ErrNotFound)
	}

	key := entry.SourceKey
	*entry = *entries[0]
	entry.SourceKey = key

	return nil
}

const selectEntryWithLines = `
	SELECT e.id, e.date, e.memo, e.reference, e.created_at,
		l.account_code, l.description, l.debit, l.credit
	FROM journal_entries e
	JOIN journal_lines l ON l.entry_id = e.id
`

func (s *Store) GetEntry(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx, selectEntryWithLines+`
		WHERE e.id = $1
		ORDER BY l.line_no`, id)
	if err != nil {
		return nil, fmt.Errorf("getting entry: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return nil, ledger.ErrNotFound
	}

	return entries[0], nil
}

func (s *Store) ListEntries(ctx context.Context, filter ledger.ListFilter) ([]*ledger.Entry, error) {
	query := selectEntryWithLines + ` WHERE TRUE`

	var args []any

	argIdx := 1

	if filter.Reference != nil {
		query += fmt.Sprintf(" AND e.reference = $%d", argIdx)

		args = append(args, *filter.Reference)
		argIdx++
	}

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND e.date >= $%d", argIdx)

		args = append(args, *filter.StartDate)
		argIdx++
	}

	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND e.date <= $%d", argIdx)

		args = append(args, *filter.EndDate)
		argIdx++
	}

	query += " ORDER BY e.date ASC, e.created_at ASC, e.id, l.line_no"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// scanEntries folds joined entry/line rows into entries. Rows of one entry
// must be contiguous.
func scanEntries(rows *sql.Rows) ([]*ledger.Entry, error) {
	var entries []*ledger.Entry

	var current *ledger.Entry

	for rows.Next() {
		var (
			e ledger.Entry
			l ledger.Line
		)

		if err := rows.Scan(
			&e.ID, &e.Date, &e.Memo, &e.Reference, &e.CreatedAt,
			&l.AccountCode, &l.Description, &l.Debit, &l.Credit,
		); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}

		if current == nil || current.ID != e.ID {
			current = &e
			entries = append(entries, current)
		}

		current.Lines = append(current.Lines, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}

	return entries, nil
}

func (s *Store) TrialBalance(ctx context.Context, asOf time.Time) ([]ledger.AccountBalance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.account_code, COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
		FROM journal_lines l
		JOIN journal_entries e ON e.id = l.entry_id
		WHERE e.date <= $1
		GROUP BY l.account_code
		ORDER BY l.account_code
	`, asOf)
	if err != nil {
		return nil, fmt.Errorf("computing trial balance: %w", err)
	}
	defer rows.Close()

	var balances []ledger.AccountBalance

	for rows.Next() {
		var b ledger.AccountBalance
		if err := rows.Scan(&b.AccountCode, &b.Debit, &b.Credit); err != nil {
			return nil, fmt.Errorf("scanning balance: %w", err)
		}

		balances = append(balances, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating balances: %w", err)
	}

	return balances, nil
}
