package inventory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/colmado/internal/http/auth"
	"github.com/MrJamesThe3rd/colmado/internal/inventory"
	"github.com/MrJamesThe3rd/colmado/internal/ledger"
	"github.com/MrJamesThe3rd/colmado/internal/lock"
)

type harness struct {
	repo   *inventory.MockRepository
	tx     *inventory.MockStockTx
	ledger *inventory.MockPoster
	router chi.Router
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	ctrl := gomock.NewController(t)
	h := &harness{
		repo:   inventory.NewMockRepository(ctrl),
		tx:     inventory.NewMockStockTx(ctrl),
		ledger: inventory.NewMockPoster(ctrl),
	}

	svc := inventory.NewService(h.repo, h.ledger, lock.NewLocal(), nil, inventory.Accounts{
		Inventory:       "1201",
		InventoryGain:   "4201",
		AccountsPayable: "2101",
		CostOfGoodsSold: "5101",
		Shrinkage:       "6300",
	})

	h.router = chi.NewRouter()
	h.router.Route("/inventory", NewHandler(svc).Routes)

	return h
}

func (h *harness) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = req.WithContext(auth.WithUser(req.Context(), "clerk"))

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	return rec
}

func (h *harness) expectStockTx(p *inventory.Product) {
	h.repo.EXPECT().BeginStock(gomock.Any()).Return(h.tx, nil)
	h.tx.EXPECT().GetProductForUpdate(gomock.Any(), p.ID).Return(p, nil)
	h.tx.EXPECT().Rollback().Return(nil).AnyTimes()
}

func TestHandler_Adjust_NoDifference(t *testing.T) {
	h := newHarness(t)

	p := &inventory.Product{ID: uuid.New(), CurrentStock: 10}
	h.expectStockTx(p)

	rec := h.do(http.MethodPost, "/inventory/products/"+p.ID.String()+"/adjustments",
		`{"actual_count":10,"reason":"physical_count"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "matches current stock")
}

func TestHandler_Adjust_UnknownReason(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/inventory/products/"+uuid.NewString()+"/adjustments",
		`{"actual_count":3,"reason":"gremlins"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandler_Adjust_NegativeCount(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/inventory/products/"+uuid.NewString()+"/adjustments",
		`{"actual_count":-1,"reason":"damage"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "actual_count")
}

func TestHandler_Receive(t *testing.T) {
	h := newHarness(t)

	p := &inventory.Product{ID: uuid.New(), CurrentStock: 2}
	h.expectStockTx(p)
	h.tx.EXPECT().CreateLot(gomock.Any(), gomock.Any()).Return(nil)
	h.tx.EXPECT().
		CreateMovement(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, m *inventory.Movement) error {
			m.ID = uuid.New()
			return nil
		})
	h.tx.EXPECT().UpdateProductStock(gomock.Any(), p).Return(nil)
	h.tx.EXPECT().Commit().Return(nil)
	h.ledger.EXPECT().Post(gomock.Any(), gomock.Any()).Return(&ledger.Entry{ID: uuid.New()}, nil)
	h.repo.EXPECT().AttachJournalEntry(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	rec := h.do(http.MethodPost, "/inventory/products/"+p.ID.String()+"/receipts",
		`{"quantity":5,"unit_cost":"10.50"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp movementResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, inventory.MovementIn, resp.Type)
	assert.Equal(t, 5, resp.Quantity)
	require.NotNil(t, resp.TotalCost)
	assert.True(t, decimal.RequireFromString("52.5").Equal(*resp.TotalCost))
	assert.NotNil(t, resp.JournalEntryID)
	assert.Equal(t, "clerk", resp.CreatedBy)
	assert.Equal(t, 7, p.CurrentStock)
}

func TestHandler_GetProduct_NotFound(t *testing.T) {
	h := newHarness(t)

	id := uuid.New()
	h.repo.EXPECT().GetProduct(gomock.Any(), id).Return(nil, inventory.ErrNotFound)

	rec := h.do(http.MethodGet, "/inventory/products/"+id.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_ListProducts_LowStock(t *testing.T) {
	h := newHarness(t)

	h.repo.EXPECT().
		ListProducts(gomock.Any(), inventory.ListFilter{LowStock: true}).
		Return([]*inventory.Product{{ID: uuid.New(), SKU: "A-1", CurrentStock: 1, ReorderPoint: 5}}, nil)

	rec := h.do(http.MethodGet, "/inventory/products/?low_stock=true", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []productResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.True(t, resp[0].LowStock)
}

func TestHandler_Kardex(t *testing.T) {
	h := newHarness(t)

	p := &inventory.Product{ID: uuid.New(), CurrentStock: 7}
	h.repo.EXPECT().GetProduct(gomock.Any(), p.ID).Return(p, nil)
	h.repo.EXPECT().ListMovements(gomock.Any(), p.ID).Return([]*inventory.Movement{
		{ID: uuid.New(), Type: inventory.MovementOut, Quantity: -3},
		{ID: uuid.New(), Type: inventory.MovementIn, Quantity: 10},
	}, nil)

	rec := h.do(http.MethodGet, "/inventory/products/"+p.ID.String()+"/kardex", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp kardexResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Lines, 2)
	assert.Equal(t, 7, resp.Lines[0].Balance)
	assert.Equal(t, 10, resp.Lines[1].Balance)
}
