package ledger

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/colmado/internal/http/api"
	"github.com/MrJamesThe3rd/colmado/internal/ledger"
)

type Handler struct {
	svc *ledger.Service
}

func NewHandler(svc *ledger.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/trial-balance", h.trialBalance)
	r.Post("/entries", h.post)
	r.Get("/entries", h.list)
	r.Get("/entries/{id}", h.get)
}

type lineRequest struct {
	AccountCode string          `json:"account_code" validate:"required"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit" validate:"gte=0"`
	Credit      decimal.Decimal `json:"credit" validate:"gte=0"`
}

type postRequest struct {
	Date      time.Time     `json:"date"`
	Memo      string        `json:"memo" validate:"required"`
	Reference string        `json:"reference"`
	Lines     []lineRequest `json:"lines" validate:"min=2,dive"`
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := api.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	date := req.Date
	if date.IsZero() {
		date = time.Now()
	}

	lines := make([]ledger.Line, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = ledger.Line{
			AccountCode: l.AccountCode,
			Description: l.Description,
			Debit:       l.Debit,
			Credit:      l.Credit,
		}
	}

	e, err := h.svc.Post(r.Context(), ledger.PostParams{
		Date:      date,
		Memo:      req.Memo,
		Reference: req.Reference,
		Lines:     lines,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, toEntryResponse(e))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var (
		filter ledger.ListFilter
		err    error
	)

	if ref := r.URL.Query().Get("reference"); ref != "" {
		filter.Reference = &ref
	}

	if filter.StartDate, err = api.Date(r, "start_date"); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if filter.EndDate, err = api.EndDate(r, "end_date"); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entries, err := h.svc.List(r.Context(), filter)
	if err != nil {
		api.InternalError(w, r, err)
		return
	}

	resp := make([]entryResponse, len(entries))
	for i, e := range entries {
		resp[i] = toEntryResponse(e)
	}

	api.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := api.ID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	e, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, toEntryResponse(e))
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	asOf, err := api.EndDate(r, "as_of")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	at := time.Now()
	if asOf != nil {
		at = *asOf
	}

	balances, err := h.svc.TrialBalance(r.Context(), at)
	if err != nil {
		api.InternalError(w, r, err)
		return
	}

	resp := make([]balanceResponse, len(balances))
	for i, b := range balances {
		resp[i] = balanceResponse{
			AccountCode: b.AccountCode,
			Debit:       b.Debit,
			Credit:      b.Credit,
			Balance:     b.Balance(),
		}
	}

	api.WriteJSON(w, http.StatusOK, resp)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		http.Error(w, "journal entry not found", http.StatusNotFound)
	case errors.Is(err, ledger.ErrInvalid), errors.Is(err, ledger.ErrUnbalanced):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		api.InternalError(w, r, err)
	}
}
