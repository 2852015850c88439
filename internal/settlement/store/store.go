package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrJamesThe3rd/colmado/internal/settlement"
)

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Expected column order matches selectSettlementColumns.
func scanSettlement(s scanner) (*settlement.CardSettlement, error) {
	var st settlement.CardSettlement

	var status string

	var reference, saleIDs sql.NullString

	if err := s.Scan(
		&st.ID, &st.SettlementDate, &st.PeriodStart, &st.PeriodEnd,
		&st.GrossAmount, &st.CommissionRate, &st.CommissionAmount,
		&st.RetentionRate, &st.RetentionAmount, &st.NetDeposit,
		&st.BankAccount, &reference, &status,
		&st.JournalEntryID, &st.RetentionRecordedAt, &st.CreatedBy, &st.CreatedAt,
		&saleIDs,
	); err != nil {
		return nil, err
	}

	st.Status = settlement.Status(status)
	st.DepositReference = reference.String

	ids, err := parseIDs(saleIDs.String)
	if err != nil {
		return nil, err
	}

	st.SaleIDs = ids

	return &st, nil
}

func parseIDs(joined string) ([]uuid.UUID, error) {
	if joined == "" {
		return nil, nil
	}

	parts := strings.Split(joined, ",")
	ids := make([]uuid.UUID, len(parts))

	for i, p := range parts {
		id, err := uuid.Parse(p)
		if err != nil {
			return nil, fmt.Errorf("parsing sale id %q: %w", p, err)
		}

		ids[i] = id
	}

	return ids, nil
}

const selectSettlement = `
	SELECT s.id, s.settlement_date, s.period_start, s.period_end,
		s.gross_amount, s.commission_rate, s.commission_amount,
		s.retention_rate, s.retention_amount, s.net_deposit,
		s.bank_account, s.deposit_reference, s.status,
		s.journal_entry_id, s.retention_recorded_at, s.created_by, s.created_at,
		(SELECT string_agg(ss.sale_id::text, ',' ORDER BY ss.sale_id)
			FROM settlement_sales ss WHERE ss.settlement_id = s.id) AS sale_ids
	FROM card_settlements s
`

func (s *Store) GetSettlement(ctx context.Context, id uuid.UUID) (*settlement.CardSettlement, error) {
	st, err := scanSettlement(s.db.QueryRowContext(ctx, selectSettlement+` WHERE s.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, settlement.ErrNotFound
		}

		return nil, fmt.Errorf("getting settlement: %w", err)
	}

	return st, nil
}

func (s *Store) ListSettlements(ctx context.Context, filter settlement.ListFilter) ([]*settlement.CardSettlement, error) {
	query := selectSettlement + ` WHERE TRUE`

	var args []any

	argIdx := 1

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND s.settlement_date >= $%d", argIdx)

		args = append(args, *filter.StartDate)
		argIdx++
	}

	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND s.settlement_date <= $%d", argIdx)

		args = append(args, *filter.EndDate)
		argIdx++
	}

	query += " ORDER BY s.settlement_date DESC, s.created_at DESC"

	return s.list(ctx, query, args...)
}

func (s *Store) ListPending(ctx context.Context) ([]*settlement.CardSettlement, error) {
	return s.list(ctx, selectSettlement+`
		WHERE s.journal_entry_id IS NULL
			OR (s.retention_recorded_at IS NULL AND s.retention_amount > 0)
		ORDER BY s.created_at ASC`)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]*settlement.CardSettlement, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing settlements: %w", err)
	}
	defer rows.Close()

	var out []*settlement.CardSettlement

	for rows.Next() {
		st, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning settlement: %w", err)
		}

		out = append(out, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating settlements: %w", err)
	}

	return out, nil
}

func (s *Store) SettledSaleIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT sale_id FROM settlement_sales`)
	if err != nil {
		return nil, fmt.Errorf("listing settled sales: %w", err)
	}
	defer rows.Close()

	return scanIDs(rows)
}

func scanIDs(rows *sql.Rows) ([]uuid.UUID, error) {
	var ids []uuid.UUID

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning sale id: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sale ids: %w", err)
	}

	return ids, nil
}

func (s *Store) AttachJournalEntry(ctx context.Context, id, entryID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE card_settlements SET journal_entry_id = $1
		WHERE id = $2 AND journal_entry_id IS NULL
	`, entryID, id)
	if err != nil {
		return fmt.Errorf("attaching journal entry: %w", err)
	}

	return nil
}

func (s *Store) MarkRetentionRecorded(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE card_settlements SET retention_recorded_at = $1
		WHERE id = $2 AND retention_recorded_at IS NULL
	`, at, id)
	if err != nil {
		return fmt.Errorf("stamping retention: %w", err)
	}

	return nil
}

func settlementLockKey() int64 {
	h := fnv.New64a()
	h.Write([]byte("card_settlements"))

	return int64(h.Sum64())
}

type settlementTx struct {
	tx *sql.Tx
}

// BeginSettlement opens a transaction holding the settlement advisory lock so
// concurrent writers see each other's sale links.
func (s *Store) BeginSettlement(ctx context.Context) (settlement.SettlementTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning settlement tx: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", settlementLockKey()); err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("acquiring settlement lock: %w", err)
	}

	return &settlementTx{tx: dbTx}, nil
}

func (stx *settlementTx) Commit() error   { return stx.tx.Commit() }
func (stx *settlementTx) Rollback() error { return stx.tx.Rollback() }

func (stx *settlementTx) LinkedSaleIDs(ctx context.Context, saleIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(saleIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(saleIDs))
	args := make([]any, len(saleIDs))

	for i, id := range saleIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	rows, err := stx.tx.QueryContext(ctx,
		`SELECT sale_id FROM settlement_sales WHERE sale_id IN (`+strings.Join(placeholders, ", ")+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("checking linked sales: %w", err)
	}
	defer rows.Close()

	return scanIDs(rows)
}

func (stx *settlementTx) CreateSettlement(ctx context.Context, st *settlement.CardSettlement) error {
	err := stx.tx.QueryRowContext(ctx, `
		INSERT INTO card_settlements (
			settlement_date, period_start, period_end,
			gross_amount, commission_rate, commission_amount,
			retention_rate, retention_amount, net_deposit,
			bank_account, deposit_reference, status, created_by, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		RETURNING id, created_at
	`,
		st.SettlementDate, st.PeriodStart, st.PeriodEnd,
		st.GrossAmount, st.CommissionRate, st.CommissionAmount,
		st.RetentionRate, st.RetentionAmount, st.NetDeposit,
		st.BankAccount, st.DepositReference, st.Status, st.CreatedBy,
	).Scan(&st.ID, &st.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating settlement: %w", err)
	}

	for _, saleID := range st.SaleIDs {
		_, err := stx.tx.ExecContext(ctx, `
			INSERT INTO settlement_sales (sale_id, settlement_id) VALUES ($1, $2)
		`, saleID, st.ID)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return fmt.Errorf("%w: %s", settlement.ErrAlreadySettled, saleID)
			}

			return fmt.Errorf("linking sale %s: %w", saleID, err)
		}
	}

	return nil
}
