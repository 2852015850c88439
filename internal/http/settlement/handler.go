package settlement

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/colmado/internal/http/api"
	"github.com/MrJamesThe3rd/colmado/internal/http/auth"
	"github.com/MrJamesThe3rd/colmado/internal/settlement"
)

type Handler struct {
	svc *settlement.Service
}

func NewHandler(svc *settlement.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/candidates", h.candidates)
	r.Post("/repost", h.repost)
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
}

type createSettlementRequest struct {
	SaleIDs          []uuid.UUID      `json:"sale_ids"`
	GrossAmount      *decimal.Decimal `json:"gross_amount"`
	CommissionRate   *decimal.Decimal `json:"commission_rate"`
	RetentionRate    *decimal.Decimal `json:"retention_rate"`
	SettlementDate   time.Time        `json:"settlement_date"`
	BankAccount      string           `json:"bank_account" validate:"max=20"`
	DepositReference string           `json:"deposit_reference"`
}

func (h *Handler) candidates(w http.ResponseWriter, r *http.Request) {
	sales, err := h.svc.Candidates(r.Context())
	if err != nil {
		api.InternalError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, toCandidateList(sales))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createSettlementRequest
	if err := api.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	date := req.SettlementDate
	if date.IsZero() {
		date = time.Now()
	}

	st, err := h.svc.Create(r.Context(), settlement.CreateParams{
		SaleIDs:          req.SaleIDs,
		GrossAmount:      req.GrossAmount,
		CommissionRate:   req.CommissionRate,
		RetentionRate:    req.RetentionRate,
		SettlementDate:   date,
		BankAccount:      req.BankAccount,
		DepositReference: req.DepositReference,
		CreatedBy:        auth.User(r.Context()),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, toResponse(st))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var (
		filter settlement.ListFilter
		err    error
	)

	if filter.StartDate, err = api.Date(r, "start_date"); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if filter.EndDate, err = api.EndDate(r, "end_date"); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	list, err := h.svc.List(r.Context(), filter)
	if err != nil {
		api.InternalError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, toResponseList(list))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := api.ID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	st, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, toResponse(st))
}

func (h *Handler) repost(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.RepostPending(r.Context())
	if err != nil {
		api.InternalError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, repostResponse{Repaired: res.Repaired, Failed: res.Failed})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, settlement.ErrNotFound):
		http.Error(w, "settlement not found", http.StatusNotFound)
	case errors.Is(err, settlement.ErrAlreadySettled):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, settlement.ErrValidation):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		api.InternalError(w, r, err)
	}
}
