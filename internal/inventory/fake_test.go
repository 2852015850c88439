package inventory_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/colmado/internal/inventory"
)

// memRepo is an in-memory Repository. Stock transactions apply writes
// directly; Rollback after Commit is a no-op, and Rollback before Commit
// restores the snapshot taken at BeginStock.
type memRepo struct {
	mu        sync.Mutex
	products  map[uuid.UUID]*inventory.Product
	lots      []*inventory.Lot
	movements []*inventory.Movement
	attached  map[uuid.UUID]uuid.UUID

	failCreateMovement error
	failAttachOnce     error
}

func newMemRepo() *memRepo {
	return &memRepo{
		products: make(map[uuid.UUID]*inventory.Product),
		attached: make(map[uuid.UUID]uuid.UUID),
	}
}

func (r *memRepo) addProduct(stock int, lastCost string) *inventory.Product {
	p := &inventory.Product{ID: uuid.New(), SKU: "SKU-" + uuid.NewString()[:4], Name: "Arroz", CurrentStock: stock}
	p.LastCost = dec(lastCost)
	r.products[p.ID] = p

	return p
}

func (r *memRepo) addLot(productID uuid.UUID, remaining int, cost string, receivedAt time.Time) *inventory.Lot {
	l := &inventory.Lot{
		ID:         uuid.New(),
		ProductID:  productID,
		Quantity:   remaining,
		Remaining:  remaining,
		UnitCost:   dec(cost),
		Source:     inventory.SourcePurchase,
		ReceivedAt: receivedAt,
	}
	r.lots = append(r.lots, l)

	return l
}

func (r *memRepo) lotsFor(productID uuid.UUID) []*inventory.Lot {
	var out []*inventory.Lot

	for _, l := range r.lots {
		if l.ProductID == productID {
			out = append(out, l)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].ReceivedAt.Before(out[j].ReceivedAt) })

	return out
}

func (r *memRepo) CreateProduct(_ context.Context, p *inventory.Product) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	r.products[p.ID] = p

	return nil
}

func (r *memRepo) GetProduct(_ context.Context, id uuid.UUID) (*inventory.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, inventory.ErrNotFound
	}

	cp := *p

	return &cp, nil
}

func (r *memRepo) ListProducts(_ context.Context, filter inventory.ListFilter) ([]*inventory.Product, error) {
	var out []*inventory.Product

	for _, p := range r.products {
		if filter.LowStock && !p.LowStock() {
			continue
		}

		out = append(out, p)
	}

	return out, nil
}

func (r *memRepo) ListMovements(_ context.Context, productID uuid.UUID) ([]*inventory.Movement, error) {
	var out []*inventory.Movement

	for i := len(r.movements) - 1; i >= 0; i-- {
		if r.movements[i].ProductID == productID {
			out = append(out, r.movements[i])
		}
	}

	return out, nil
}

func (r *memRepo) ListUnpostedMovements(context.Context) ([]*inventory.Movement, error) {
	var out []*inventory.Movement

	for _, m := range r.movements {
		if m.JournalEntryID == nil && m.TotalCost != nil && m.TotalCost.IsPositive() {
			out = append(out, m)
		}
	}

	return out, nil
}

func (r *memRepo) AttachJournalEntry(_ context.Context, movementID, entryID uuid.UUID) error {
	if err := r.failAttachOnce; err != nil {
		r.failAttachOnce = nil
		return err
	}

	r.attached[movementID] = entryID

	for _, m := range r.movements {
		if m.ID == movementID {
			m.JournalEntryID = &entryID
		}
	}

	return nil
}

func (r *memRepo) BeginStock(context.Context) (inventory.StockTx, error) {
	r.mu.Lock()

	snap := memSnapshot{products: make(map[uuid.UUID]inventory.Product, len(r.products))}
	for id, p := range r.products {
		snap.products[id] = *p
	}

	for _, l := range r.lots {
		snap.lots = append(snap.lots, *l)
	}

	snap.movements = len(r.movements)

	return &memTx{repo: r, snap: snap}, nil
}

type memSnapshot struct {
	products  map[uuid.UUID]inventory.Product
	lots      []inventory.Lot
	movements int
}

type memTx struct {
	repo *memRepo
	snap memSnapshot
	done bool
}

func (tx *memTx) GetProductForUpdate(ctx context.Context, id uuid.UUID) (*inventory.Product, error) {
	return tx.repo.GetProduct(ctx, id)
}

func (tx *memTx) ListLots(_ context.Context, productID uuid.UUID) ([]*inventory.Lot, error) {
	var out []*inventory.Lot

	for _, l := range tx.repo.lotsFor(productID) {
		cp := *l
		out = append(out, &cp)
	}

	return out, nil
}

func (tx *memTx) UpdateLotRemaining(_ context.Context, lotID uuid.UUID, remaining int) error {
	for _, l := range tx.repo.lots {
		if l.ID == lotID {
			l.Remaining = remaining
		}
	}

	return nil
}

func (tx *memTx) CreateLot(_ context.Context, l *inventory.Lot) error {
	l.ID = uuid.New()
	tx.repo.lots = append(tx.repo.lots, l)

	return nil
}

func (tx *memTx) CreateMovement(_ context.Context, m *inventory.Movement) error {
	if tx.repo.failCreateMovement != nil {
		return tx.repo.failCreateMovement
	}

	m.ID = uuid.New()
	m.CreatedAt = time.Now()
	tx.repo.movements = append(tx.repo.movements, m)

	return nil
}

func (tx *memTx) UpdateProductStock(_ context.Context, p *inventory.Product) error {
	stored := tx.repo.products[p.ID]
	stored.CurrentStock = p.CurrentStock
	stored.LastCost = p.LastCost
	stored.LastStockUpdate = p.LastStockUpdate

	return nil
}

func (tx *memTx) Commit() error {
	if !tx.done {
		tx.done = true
		tx.repo.mu.Unlock()
	}

	return nil
}

func (tx *memTx) Rollback() error {
	if tx.done {
		return nil
	}

	tx.done = true

	r := tx.repo
	for id, p := range tx.snap.products {
		cp := p
		r.products[id] = &cp
	}

	r.lots = r.lots[:0]
	for _, l := range tx.snap.lots {
		cp := l
		r.lots = append(r.lots, &cp)
	}

	r.movements = r.movements[:tx.snap.movements]
	r.mu.Unlock()

	return nil
}
