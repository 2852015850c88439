package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/colmado/internal/sale"
)

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

// Expected column order: id, number, total, payment_method, payment_status, date, notes, created_at, updated_at
func scanSale(s scanner) (*sale.Sale, error) {
	var out sale.Sale

	var method, status string

	var notes sql.NullString

	if err := s.Scan(
		&out.ID, &out.Number, &out.Total, &method, &status, &out.Date, &notes,
		&out.CreatedAt, &out.UpdatedAt,
	); err != nil {
		return nil, err
	}

	out.PaymentMethod = sale.PaymentMethod(method)
	out.PaymentStatus = sale.PaymentStatus(status)
	out.Notes = notes.String

	return &out, nil
}

const selectSaleColumns = `
	id, number, total, payment_method, payment_status, date, notes, created_at, updated_at
`

func (s *Store) CreateSale(ctx context.Context, sl *sale.Sale) error {
	query := `
		INSERT INTO sales (number, total, payment_method, payment_status, date, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		sl.Number,
		sl.Total,
		sl.PaymentMethod,
		sl.PaymentStatus,
		sl.Date,
		sl.Notes,
	).Scan(&sl.ID, &sl.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating sale: %w", err)
	}

	return nil
}

func (s *Store) GetSale(ctx context.Context, id uuid.UUID) (*sale.Sale, error) {
	query := `SELECT ` + selectSaleColumns + ` FROM sales WHERE id = $1`

	sl, err := scanSale(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sale.ErrNotFound
		}

		return nil, fmt.Errorf("getting sale: %w", err)
	}

	return sl, nil
}

func (s *Store) ListSales(ctx context.Context, filter sale.ListFilter) ([]*sale.Sale, error) {
	query := `SELECT ` + selectSaleColumns + ` FROM sales WHERE TRUE`

	var args []any

	argIdx := 1

	if len(filter.Methods) > 0 {
		placeholders := make([]string, len(filter.Methods))
		for i, m := range filter.Methods {
			placeholders[i] = fmt.Sprintf("$%d", argIdx)

			args = append(args, string(m))
			argIdx++
		}

		query += " AND payment_method IN (" + strings.Join(placeholders, ", ") + ")"
	}

	if filter.Status != nil {
		query += fmt.Sprintf(" AND payment_status = $%d", argIdx)

		args = append(args, string(*filter.Status))
		argIdx++
	}

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND date >= $%d", argIdx)

		args = append(args, *filter.StartDate)
		argIdx++
	}

	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND date <= $%d", argIdx)

		args = append(args, *filter.EndDate)
		argIdx++
	}

	query += " ORDER BY date ASC, created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sales: %w", err)
	}
	defer rows.Close()

	var sales []*sale.Sale

	for rows.Next() {
		sl, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sale: %w", err)
		}

		sales = append(sales, sl)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sales: %w", err)
	}

	return sales, nil
}

func (s *Store) UpdateSale(ctx context.Context, sl *sale.Sale) error {
	query := `
		UPDATE sales
		SET number = $1, total = $2, payment_method = $3, payment_status = $4, date = $5, notes = $6, updated_at = NOW()
		WHERE id = $7 AND payment_status <> 'paid'
	`

	res, err := s.db.ExecContext(ctx, query,
		sl.Number,
		sl.Total,
		sl.PaymentMethod,
		sl.PaymentStatus,
		sl.Date,
		sl.Notes,
		sl.ID,
	)
	if err != nil {
		return fmt.Errorf("updating sale: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating sale: %w", err)
	}

	if n == 0 {
		return sale.ErrImmutable
	}

	return nil
}

func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status sale.PaymentStatus) error {
	query := `
		UPDATE sales
		SET payment_status = $1, updated_at = NOW()
		WHERE id = $2
	`

	res, err := s.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("updating status: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sale.ErrNotFound
	}

	return nil
}
