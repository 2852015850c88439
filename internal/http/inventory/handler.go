package inventory

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/colmado/internal/http/api"
	"github.com/MrJamesThe3rd/colmado/internal/http/auth"
	"github.com/MrJamesThe3rd/colmado/internal/inventory"
)

type Handler struct {
	svc *inventory.Service
}

func NewHandler(svc *inventory.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/repost", h.repost)

	r.Route("/products", func(r chi.Router) {
		r.Post("/", h.createProduct)
		r.Get("/", h.listProducts)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getProduct)
			r.Get("/kardex", h.kardex)
			r.Post("/adjustments", h.adjust)
			r.Post("/receipts", h.receive)
			r.Post("/issues", h.issue)
		})
	})
}

type createProductRequest struct {
	SKU          string           `json:"sku" validate:"required"`
	Name         string           `json:"name" validate:"required"`
	ReorderPoint int              `json:"reorder_point" validate:"gte=0"`
	LastCost     decimal.Decimal  `json:"last_cost" validate:"gte=0"`
	CostTaxRate  *decimal.Decimal `json:"cost_tax_rate" validate:"omitempty,gte=0,lt=1"`
}

type adjustRequest struct {
	ActualCount int              `json:"actual_count" validate:"gte=0"`
	Reason      inventory.Reason `json:"reason" validate:"required"`
	Notes       string           `json:"notes"`
}

type receiveRequest struct {
	Quantity    int              `json:"quantity" validate:"gt=0"`
	UnitCost    decimal.Decimal  `json:"unit_cost" validate:"gte=0"`
	TaxRate     *decimal.Decimal `json:"tax_rate" validate:"omitempty,gte=0,lt=1"`
	ReferenceID *uuid.UUID       `json:"reference_id"`
	Date        time.Time        `json:"date"`
}

type issueRequest struct {
	Quantity    int        `json:"quantity" validate:"gt=0"`
	ReferenceID *uuid.UUID `json:"reference_id"`
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := api.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, err := h.svc.CreateProduct(r.Context(), inventory.CreateProductParams{
		SKU:          req.SKU,
		Name:         req.Name,
		ReorderPoint: req.ReorderPoint,
		LastCost:     req.LastCost,
		CostTaxRate:  req.CostTaxRate,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, toProductResponse(p))
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	filter := inventory.ListFilter{LowStock: r.URL.Query().Get("low_stock") == "true"}

	products, err := h.svc.ListProducts(r.Context(), filter)
	if err != nil {
		api.InternalError(w, r, err)
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = toProductResponse(p)
	}

	api.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := api.ID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, err := h.svc.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, toProductResponse(p))
}

func (h *Handler) kardex(w http.ResponseWriter, r *http.Request) {
	id, err := api.ID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	k, err := h.svc.Kardex(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, toKardexResponse(k))
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	id, err := api.ID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req adjustRequest
	if err := api.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m, err := h.svc.SaveAdjustment(r.Context(), inventory.AdjustParams{
		ProductID:   id,
		ActualCount: req.ActualCount,
		Reason:      req.Reason,
		Notes:       req.Notes,
		CreatedBy:   auth.User(r.Context()),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, toMovementResponse(m))
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	id, err := api.ID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req receiveRequest
	if err := api.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m, err := h.svc.Receive(r.Context(), inventory.ReceiveParams{
		ProductID:   id,
		Quantity:    req.Quantity,
		UnitCost:    req.UnitCost,
		TaxRate:     req.TaxRate,
		ReferenceID: req.ReferenceID,
		Date:        req.Date,
		CreatedBy:   auth.User(r.Context()),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, toMovementResponse(m))
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request) {
	id, err := api.ID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req issueRequest
	if err := api.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m, err := h.svc.Issue(r.Context(), inventory.IssueParams{
		ProductID:   id,
		Quantity:    req.Quantity,
		ReferenceID: req.ReferenceID,
		CreatedBy:   auth.User(r.Context()),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, toMovementResponse(m))
}

func (h *Handler) repost(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.RepostPending(r.Context())
	if err != nil {
		api.InternalError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]int{"repaired": res.Repaired, "failed": res.Failed})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, inventory.ErrNotFound):
		http.Error(w, "product not found", http.StatusNotFound)
	case errors.Is(err, inventory.ErrValidation):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		api.InternalError(w, r, err)
	}
}
