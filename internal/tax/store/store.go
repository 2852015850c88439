package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MrJamesThe3rd/colmado/internal/tax"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateRetention stores r. A retention already recorded for the same source
// is loaded into r instead.
func (s *Store) CreateRetention(ctx context.Context, r *tax.Retention) error {
	query := `
		INSERT INTO tax_retentions (date, amount, source_type, source_id, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (source_type, source_id) DO NOTHING
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query, r.Date, r.Amount, r.SourceType, r.SourceID).
		Scan(&r.ID, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		err = s.db.QueryRowContext(ctx, `
			SELECT id, date, amount, created_at
			FROM tax_retentions
			WHERE source_type = $1 AND source_id = $2
		`, r.SourceType, r.SourceID).Scan(&r.ID, &r.Date, &r.Amount, &r.CreatedAt)
	}

	if err != nil {
		return fmt.Errorf("creating retention: %w", err)
	}

	return nil
}

func (s *Store) SummarizeRetentions(ctx context.Context, from, to time.Time) ([]tax.PeriodTotal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date_trunc('month', date) AS period, COUNT(*), COALESCE(SUM(amount), 0)
		FROM tax_retentions
		WHERE date >= $1 AND date <= $2
		GROUP BY period
		ORDER BY period
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("summarizing retentions: %w", err)
	}
	defer rows.Close()

	var totals []tax.PeriodTotal

	for rows.Next() {
		var t tax.PeriodTotal
		if err := rows.Scan(&t.Period, &t.Count, &t.Amount); err != nil {
			return nil, fmt.Errorf("scanning retention total: %w", err)
		}

		totals = append(totals, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating retention totals: %w", err)
	}

	return totals, nil
}
