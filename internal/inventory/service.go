package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/colmado/internal/changefeed"
	"github.com/MrJamesThe3rd/colmado/internal/ledger"
	"github.com/MrJamesThe3rd/colmado/internal/lock"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=inventory
type Repository interface {
	CreateProduct(ctx context.Context, p *Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	ListProducts(ctx context.Context, filter ListFilter) ([]*Product, error)
	ListMovements(ctx context.Context, productID uuid.UUID) ([]*Movement, error)
	ListUnpostedMovements(ctx context.Context) ([]*Movement, error)
	AttachJournalEntry(ctx context.Context, movementID, entryID uuid.UUID) error

	BeginStock(ctx context.Context) (StockTx, error)
}

// StockTx groups the lot, movement and product writes of one stock change.
type StockTx interface {
	GetProductForUpdate(ctx context.Context, id uuid.UUID) (*Product, error)
	ListLots(ctx context.Context, productID uuid.UUID) ([]*Lot, error)
	UpdateLotRemaining(ctx context.Context, lotID uuid.UUID, remaining int) error
	CreateLot(ctx context.Context, l *Lot) error
	CreateMovement(ctx context.Context, m *Movement) error
	UpdateProductStock(ctx context.Context, p *Product) error
	Commit() error
	Rollback() error
}

type Poster interface {
	Post(ctx context.Context, params ledger.PostParams) (*ledger.Entry, error)
}

type Accounts struct {
	Inventory           string
	InventoryGain       string
	AccountsPayable     string
	CostOfGoodsSold     string
	Shrinkage           string
	ShrinkageDamage     string
	ShrinkageTheft      string
	ShrinkageExpiration string
}

// ShrinkageFor returns the expense account for a loss with the given reason.
func (a Accounts) ShrinkageFor(r Reason) string {
	switch r {
	case ReasonDamage:
		return a.ShrinkageDamage
	case ReasonTheft:
		return a.ShrinkageTheft
	case ReasonExpiration:
		return a.ShrinkageExpiration
	default:
		return a.Shrinkage
	}
}

type Service struct {
	repo     Repository
	ledger   Poster
	locker   lock.Locker
	notifier changefeed.Notifier
	accounts Accounts
	now      func() time.Time
}

func NewService(repo Repository, ledger Poster, locker lock.Locker, notifier changefeed.Notifier, accounts Accounts) *Service {
	if locker == nil {
		locker = lock.NewLocal()
	}

	if notifier == nil {
		notifier = changefeed.Noop{}
	}

	return &Service{
		repo:     repo,
		ledger:   ledger,
		locker:   locker,
		notifier: notifier,
		accounts: accounts,
		now:      time.Now,
	}
}

type ListFilter struct {
	LowStock bool
}

type CreateProductParams struct {
	SKU          string
	Name         string
	ReorderPoint int
	LastCost     decimal.Decimal
	CostTaxRate  *decimal.Decimal
}

type AdjustParams struct {
	ProductID   uuid.UUID
	ActualCount int
	Reason      Reason
	Notes       string
	CreatedBy   string
}

type ReceiveParams struct {
	ProductID   uuid.UUID
	Quantity    int
	UnitCost    decimal.Decimal
	TaxRate     *decimal.Decimal
	ReferenceID *uuid.UUID
	Date        time.Time
	CreatedBy   string
}

type IssueParams struct {
	ProductID   uuid.UUID
	Quantity    int
	ReferenceID *uuid.UUID
	CreatedBy   string
}

func (s *Service) CreateProduct(ctx context.Context, params CreateProductParams) (*Product, error) {
	if params.SKU == "" || params.Name == "" {
		return nil, fmt.Errorf("%w: sku and name are required", ErrValidation)
	}

	if params.ReorderPoint < 0 {
		return nil, fmt.Errorf("%w: reorder point cannot be negative", ErrValidation)
	}

	if params.LastCost.IsNegative() {
		return nil, fmt.Errorf("%w: cost cannot be negative", ErrValidation)
	}

	p := &Product{
		SKU:          params.SKU,
		Name:         params.Name,
		ReorderPoint: params.ReorderPoint,
		LastCost:     params.LastCost,
		CostTaxRate:  params.CostTaxRate,
	}
	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

func (s *Service) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context, filter ListFilter) ([]*Product, error) {
	return s.repo.ListProducts(ctx, filter)
}

// SaveAdjustment reconciles a physical count with the stock on record.
func (s *Service) SaveAdjustment(ctx context.Context, params AdjustParams) (*Movement, error) {
	if params.ActualCount < 0 {
		return nil, fmt.Errorf("%w: count cannot be negative", ErrValidation)
	}

	if !params.Reason.Valid() {
		return nil, fmt.Errorf("%w: unknown reason %q", ErrValidation, params.Reason)
	}

	var movement *Movement

	err := s.withStock(ctx, params.ProductID, func(stx StockTx, p *Product) error {
		diff := params.ActualCount - p.CurrentStock
		if diff == 0 {
			return ErrNoDifference
		}

		lots, err := stx.ListLots(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("list lots: %w", err)
		}

		now := s.now()
		ref := uuid.New()
		unitCost := UnitCost(lots, p.LastCost)
		totalCost := unitCost.Mul(decimal.NewFromInt(int64(abs(diff))))

		if diff < 0 {
			if _, err := s.consumeLots(ctx, stx, p, lots, -diff); err != nil {
				return err
			}
		} else {
			l := &Lot{
				ProductID:   p.ID,
				Quantity:    diff,
				Remaining:   diff,
				UnitCost:    unitCost,
				TaxRate:     p.TaxRate(),
				Source:      SourceAdjustment,
				ReferenceID: &ref,
				ReceivedAt:  now,
			}
			if err := stx.CreateLot(ctx, l); err != nil {
				return fmt.Errorf("create lot: %w", err)
			}
		}

		movement = &Movement{
			ProductID:   p.ID,
			Type:        MovementAdjustment,
			Quantity:    diff,
			Date:        now,
			UnitCost:    &unitCost,
			TotalCost:   &totalCost,
			ReferenceID: &ref,
			Reason:      params.Reason,
			Notes:       params.Notes,
			CreatedBy:   params.CreatedBy,
		}
		if err := stx.CreateMovement(ctx, movement); err != nil {
			return fmt.Errorf("create movement: %w", err)
		}

		p.CurrentStock = params.ActualCount
		p.LastStockUpdate = &now

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.postMovement(ctx, movement)
	s.notifier.Notify(ctx, changefeed.Change{Entity: "product", ID: params.ProductID, Op: changefeed.OpUpdate})

	return movement, nil
}

// Receive books purchased units as a new lot.
func (s *Service) Receive(ctx context.Context, params ReceiveParams) (*Movement, error) {
	if params.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}

	if params.UnitCost.IsNegative() {
		return nil, fmt.Errorf("%w: unit cost cannot be negative", ErrValidation)
	}

	var movement *Movement

	err := s.withStock(ctx, params.ProductID, func(stx StockTx, p *Product) error {
		now := s.now()

		date := params.Date
		if date.IsZero() {
			date = now
		}

		taxRate := p.TaxRate()
		if params.TaxRate != nil {
			taxRate = *params.TaxRate
		}

		unitCost := params.UnitCost
		totalCost := unitCost.Mul(decimal.NewFromInt(int64(params.Quantity)))

		l := &Lot{
			ProductID:   p.ID,
			Quantity:    params.Quantity,
			Remaining:   params.Quantity,
			UnitCost:    unitCost,
			TaxRate:     taxRate,
			Source:      SourcePurchase,
			ReferenceID: params.ReferenceID,
			ReceivedAt:  date,
		}
		if err := stx.CreateLot(ctx, l); err != nil {
			return fmt.Errorf("create lot: %w", err)
		}

		movement = &Movement{
			ProductID:   p.ID,
			Type:        MovementIn,
			Quantity:    params.Quantity,
			Date:        date,
			UnitCost:    &unitCost,
			TotalCost:   &totalCost,
			ReferenceID: params.ReferenceID,
			CreatedBy:   params.CreatedBy,
		}
		if err := stx.CreateMovement(ctx, movement); err != nil {
			return fmt.Errorf("create movement: %w", err)
		}

		p.CurrentStock += params.Quantity
		p.LastCost = unitCost
		p.LastStockUpdate = &now

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.postMovement(ctx, movement)
	s.notifier.Notify(ctx, changefeed.Change{Entity: "product", ID: params.ProductID, Op: changefeed.OpUpdate})

	return movement, nil
}

// Issue removes sold units, costing them from the oldest lots.
func (s *Service) Issue(ctx context.Context, params IssueParams) (*Movement, error) {
	if params.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}

	var movement *Movement

	err := s.withStock(ctx, params.ProductID, func(stx StockTx, p *Product) error {
		if params.Quantity > p.CurrentStock {
			return fmt.Errorf("%w: only %d units in stock", ErrValidation, p.CurrentStock)
		}

		lots, err := stx.ListLots(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("list lots: %w", err)
		}

		fallback := UnitCost(lots, p.LastCost)

		c, err := s.consumeLots(ctx, stx, p, lots, params.Quantity)
		if err != nil {
			return err
		}

		qty := decimal.NewFromInt(int64(params.Quantity))
		totalCost := c.Cost.Add(fallback.Mul(decimal.NewFromInt(int64(c.Unallocated))))
		unitCost := totalCost.Div(qty)
		now := s.now()

		movement = &Movement{
			ProductID:   p.ID,
			Type:        MovementOut,
			Quantity:    -params.Quantity,
			Date:        now,
			UnitCost:    &unitCost,
			TotalCost:   &totalCost,
			ReferenceID: params.ReferenceID,
			CreatedBy:   params.CreatedBy,
		}
		if err := stx.CreateMovement(ctx, movement); err != nil {
			return fmt.Errorf("create movement: %w", err)
		}

		p.CurrentStock -= params.Quantity
		p.LastStockUpdate = &now

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.postMovement(ctx, movement)
	s.notifier.Notify(ctx, changefeed.Change{Entity: "product", ID: params.ProductID, Op: changefeed.OpUpdate})

	return movement, nil
}

// withStock runs fn under the product lock inside one stock transaction and
// persists the product afterwards.
func (s *Service) withStock(ctx context.Context, productID uuid.UUID, fn func(StockTx, *Product) error) error {
	release, err := s.locker.Obtain(ctx, "product:"+productID.String())
	if err != nil {
		return fmt.Errorf("lock product: %w", err)
	}
	defer release()

	stx, err := s.repo.BeginStock(ctx)
	if err != nil {
		return fmt.Errorf("begin stock: %w", err)
	}
	defer stx.Rollback()

	p, err := stx.GetProductForUpdate(ctx, productID)
	if err != nil {
		return err
	}

	if err := fn(stx, p); err != nil {
		return err
	}

	if err := stx.UpdateProductStock(ctx, p); err != nil {
		return fmt.Errorf("update stock: %w", err)
	}

	if err := stx.Commit(); err != nil {
		return fmt.Errorf("commit stock: %w", err)
	}

	return nil
}

func (s *Service) consumeLots(ctx context.Context, stx StockTx, p *Product, lots []*Lot, qty int) (Consumption, error) {
	c := Consume(lots, qty)

	for _, l := range c.Touched {
		if err := stx.UpdateLotRemaining(ctx, l.ID, l.Remaining); err != nil {
			return c, fmt.Errorf("update lot: %w", err)
		}
	}

	if c.Unallocated > 0 {
		slog.Warn("lots exhausted before consumption completed",
			"product_id", p.ID, "sku", p.SKU, "requested", qty, "unallocated", c.Unallocated)
	}

	return c, nil
}

// journalLines values a movement. A nil result means nothing to post.
func (s *Service) journalLines(m *Movement) (string, []ledger.Line) {
	if m.TotalCost == nil || !m.TotalCost.IsPositive() {
		return "", nil
	}

	amount := *m.TotalCost
	inv := s.accounts.Inventory

	switch {
	case m.Type == MovementIn:
		return "Inventory receipt", []ledger.Line{
			ledger.Debit(inv, amount, "Inventory received"),
			ledger.Credit(s.accounts.AccountsPayable, amount, "Supplier payable"),
		}
	case m.Type == MovementOut:
		return "Cost of goods sold", []ledger.Line{
			ledger.Debit(s.accounts.CostOfGoodsSold, amount, "Cost of goods sold"),
			ledger.Credit(inv, amount, "Inventory issued"),
		}
	case m.Quantity < 0:
		return "Inventory shrinkage: " + string(m.Reason), []ledger.Line{
			ledger.Debit(s.accounts.ShrinkageFor(m.Reason), amount, "Shrinkage"),
			ledger.Credit(inv, amount, "Inventory written off"),
		}
	default:
		return "Inventory found: " + string(m.Reason), []ledger.Line{
			ledger.Debit(inv, amount, "Inventory found"),
			ledger.Credit(s.accounts.InventoryGain, amount, "Inventory gain"),
		}
	}
}

// postMovement posts the movement's value to the ledger. Failures are logged
// and left for RepostPending.
func (s *Service) postMovement(ctx context.Context, m *Movement) bool {
	memo, lines := s.journalLines(m)
	if lines == nil {
		return true
	}

	entry, err := s.ledger.Post(ctx, ledger.PostParams{
		Date:      m.Date,
		Memo:      memo,
		Reference: m.ID.String(),
		SourceKey: "stock_movement:" + m.ID.String(),
		Lines:     lines,
	})
	if err != nil {
		slog.Error("failed to post inventory journal entry", "movement_id", m.ID, "product_id", m.ProductID, "error", err)
		return false
	}

	if err := s.repo.AttachJournalEntry(ctx, m.ID, entry.ID); err != nil {
		slog.Error("failed to attach journal entry", "movement_id", m.ID, "entry_id", entry.ID, "error", err)
		return false
	}

	m.JournalEntryID = &entry.ID

	return true
}

type RepostResult struct {
	Repaired int
	Failed   int
}

// RepostPending posts valued movements that have no journal entry yet.
func (s *Service) RepostPending(ctx context.Context) (*RepostResult, error) {
	movements, err := s.repo.ListUnpostedMovements(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unposted movements: %w", err)
	}

	result := &RepostResult{}

	for _, m := range movements {
		if s.postMovement(ctx, m) {
			result.Repaired++
		} else {
			result.Failed++
		}
	}

	if len(movements) > 0 {
		slog.Info("reposted inventory movements", "repaired", result.Repaired, "failed", result.Failed)
	}

	return result, nil
}

// Kardex returns the product's movements newest first with running balances.
func (s *Service) Kardex(ctx context.Context, productID uuid.UUID) (*Kardex, error) {
	p, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	movements, err := s.repo.ListMovements(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}

	return &Kardex{Product: p, Lines: Balances(p.CurrentStock, movements)}, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}

	return n
}
