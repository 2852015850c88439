package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/colmado/internal/inventory"
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

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const selectProductColumns = `
	id, sku, name, current_stock, reorder_point, last_cost, cost_tax_rate, last_stock_update, created_at
`

func scanProduct(s scanner) (*inventory.Product, error) {
	var p inventory.Product

	if err := s.Scan(
		&p.ID, &p.SKU, &p.Name, &p.CurrentStock, &p.ReorderPoint,
		&p.LastCost, &p.CostTaxRate, &p.LastStockUpdate, &p.CreatedAt,
	); err != nil {
		return nil, err
	}

	return &p, nil
}

func getProduct(ctx context.Context, q querier, query string, id uuid.UUID) (*inventory.Product, error) {
	p, err := scanProduct(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, inventory.ErrNotFound
		}

		return nil, fmt.Errorf("getting product: %w", err)
	}

	return p, nil
}

func (s *Store) CreateProduct(ctx context.Context, p *inventory.Product) error {
	query := `
		INSERT INTO products (sku, name, current_stock, reorder_point, last_cost, cost_tax_rate, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		p.SKU,
		p.Name,
		p.CurrentStock,
		p.ReorderPoint,
		p.LastCost,
		p.CostTaxRate,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating product: %w", err)
	}

	return nil
}

func (s *Store) GetProduct(ctx context.Context, id uuid.UUID) (*inventory.Product, error) {
	return getProduct(ctx, s.db, `SELECT `+selectProductColumns+` FROM products WHERE id = $1`, id)
}

func (s *Store) ListProducts(ctx context.Context, filter inventory.ListFilter) ([]*inventory.Product, error) {
	query := `SELECT ` + selectProductColumns + ` FROM products WHERE TRUE`

	if filter.LowStock {
		query += " AND current_stock <= reorder_point"
	}

	query += " ORDER BY name ASC"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	var products []*inventory.Product

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}

		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating products: %w", err)
	}

	return products, nil
}

const selectMovementColumns = `
	id, product_id, type, quantity, date, unit_cost, total_cost, reference_id,
	reason, notes, journal_entry_id, created_by, created_at
`

func scanMovement(s scanner) (*inventory.Movement, error) {
	var m inventory.Movement

	var typ string

	var reason, notes sql.NullString

	if err := s.Scan(
		&m.ID, &m.ProductID, &typ, &m.Quantity, &m.Date, &m.UnitCost, &m.TotalCost, &m.ReferenceID,
		&reason, &notes, &m.JournalEntryID, &m.CreatedBy, &m.CreatedAt,
	); err != nil {
		return nil, err
	}

	m.Type = inventory.MovementType(typ)
	m.Reason = inventory.Reason(reason.String)
	m.Notes = notes.String

	return &m, nil
}

func (s *Store) listMovements(ctx context.Context, query string, args ...any) ([]*inventory.Movement, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing movements: %w", err)
	}
	defer rows.Close()

	var movements []*inventory.Movement

	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning movement: %w", err)
		}

		movements = append(movements, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating movements: %w", err)
	}

	return movements, nil
}

// ListMovements returns a product's movements newest first.
func (s *Store) ListMovements(ctx context.Context, productID uuid.UUID) ([]*inventory.Movement, error) {
	return s.listMovements(ctx, `SELECT `+selectMovementColumns+`
		FROM stock_movements
		WHERE product_id = $1
		ORDER BY date DESC, seq DESC`, productID)
}

func (s *Store) ListUnpostedMovements(ctx context.Context) ([]*inventory.Movement, error) {
	return s.listMovements(ctx, `SELECT `+selectMovementColumns+`
		FROM stock_movements
		WHERE journal_entry_id IS NULL AND total_cost > 0
		ORDER BY seq ASC`)
}

func (s *Store) AttachJournalEntry(ctx context.Context, movementID, entryID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE stock_movements SET journal_entry_id = $1
		WHERE id = $2 AND journal_entry_id IS NULL
	`, entryID, movementID)
	if err != nil {
		return fmt.Errorf("attaching journal entry: %w", err)
	}

	return nil
}

type stockTx struct {
	tx *sql.Tx
}

func (s *Store) BeginStock(ctx context.Context) (inventory.StockTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning stock tx: %w", err)
	}

	return &stockTx{tx: dbTx}, nil
}

func (stx *stockTx) Commit() error   { return stx.tx.Commit() }
func (stx *stockTx) Rollback() error { return stx.tx.Rollback() }

func (stx *stockTx) GetProductForUpdate(ctx context.Context, id uuid.UUID) (*inventory.Product, error) {
	return getProduct(ctx, stx.tx, `SELECT `+selectProductColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
}

// ListLots returns every lot of the product, oldest first.
func (stx *stockTx) ListLots(ctx context.Context, productID uuid.UUID) ([]*inventory.Lot, error) {
	rows, err := stx.tx.QueryContext(ctx, `
		SELECT id, product_id, quantity, remaining, unit_cost, tax_rate, source, reference_id, received_at, created_at
		FROM inventory_lots
		WHERE product_id = $1
		ORDER BY received_at ASC, seq ASC
		FOR UPDATE
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("listing lots: %w", err)
	}
	defer rows.Close()

	var lots []*inventory.Lot

	for rows.Next() {
		var (
			l      inventory.Lot
			source string
		)

		if err := rows.Scan(
			&l.ID, &l.ProductID, &l.Quantity, &l.Remaining, &l.UnitCost, &l.TaxRate,
			&source, &l.ReferenceID, &l.ReceivedAt, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning lot: %w", err)
		}

		l.Source = inventory.LotSource(source)
		lots = append(lots, &l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating lots: %w", err)
	}

	return lots, nil
}

func (stx *stockTx) UpdateLotRemaining(ctx context.Context, lotID uuid.UUID, remaining int) error {
	_, err := stx.tx.ExecContext(ctx, `UPDATE inventory_lots SET remaining = $1 WHERE id = $2`, remaining, lotID)
	if err != nil {
		return fmt.Errorf("updating lot: %w", err)
	}

	return nil
}

func (stx *stockTx) CreateLot(ctx context.Context, l *inventory.Lot) error {
	err := stx.tx.QueryRowContext(ctx, `
		INSERT INTO inventory_lots (product_id, quantity, remaining, unit_cost, tax_rate, source, reference_id, received_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING id, created_at
	`,
		l.ProductID,
		l.Quantity,
		l.Remaining,
		l.UnitCost,
		l.TaxRate,
		l.Source,
		l.ReferenceID,
		l.ReceivedAt,
	).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating lot: %w", err)
	}

	return nil
}

func (stx *stockTx) CreateMovement(ctx context.Context, m *inventory.Movement) error {
	err := stx.tx.QueryRowContext(ctx, `
		INSERT INTO stock_movements (
			product_id, type, quantity, date, unit_cost, total_cost, reference_id,
			reason, notes, created_by, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING id, created_at
	`,
		m.ProductID,
		m.Type,
		m.Quantity,
		m.Date,
		m.UnitCost,
		m.TotalCost,
		m.ReferenceID,
		m.Reason,
		m.Notes,
		m.CreatedBy,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating movement: %w", err)
	}

	return nil
}

func (stx *stockTx) UpdateProductStock(ctx context.Context, p *inventory.Product) error {
	_, err := stx.tx.ExecContext(ctx, `
		UPDATE products
		SET current_stock = $1, last_cost = $2, last_stock_update = $3
		WHERE id = $4
	`, p.CurrentStock, p.LastCost, p.LastStockUpdate, p.ID)
	if err != nil {
		return fmt.Errorf("updating product stock: %w", err)
	}

	return nil
}
