package sale

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/colmado/internal/http/api"
	"github.com/MrJamesThe3rd/colmado/internal/sale"
)

type Handler struct {
	svc *sale.Service
}

func NewHandler(svc *sale.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Patch("/{id}/paid", h.markPaid)
}

type createSaleRequest struct {
	Number        string             `json:"number"`
	Total         decimal.Decimal    `json:"total" validate:"gt=0"`
	PaymentMethod sale.PaymentMethod `json:"payment_method" validate:"required,oneof=cash credit_card debit_card bank_transfer"`
	PaymentStatus sale.PaymentStatus `json:"payment_status" validate:"omitempty,oneof=paid pending"`
	Date          time.Time          `json:"date"`
	Notes         string             `json:"notes"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createSaleRequest
	if err := api.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	date := req.Date
	if date.IsZero() {
		date = time.Now()
	}

	s, err := h.svc.Create(r.Context(), sale.CreateParams{
		Number:        req.Number,
		Total:         req.Total,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: req.PaymentStatus,
		Date:          date,
		Notes:         req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, toResponse(s))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := sale.ListFilter{}
	q := r.URL.Query()

	for _, m := range q["method"] {
		filter.Methods = append(filter.Methods, sale.PaymentMethod(m))
	}

	if s := q.Get("status"); s != "" {
		filter.Status = new(sale.PaymentStatus(s))
	}

	var err error

	if filter.StartDate, err = api.Date(r, "start_date"); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if filter.EndDate, err = api.EndDate(r, "end_date"); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sales, err := h.svc.List(r.Context(), filter)
	if err != nil {
		api.InternalError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, toResponseList(sales))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := api.ID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, toResponse(s))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := api.ID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req createSaleRequest
	if err := api.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s := &sale.Sale{
		ID:            id,
		Number:        req.Number,
		Total:         req.Total,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: req.PaymentStatus,
		Date:          req.Date,
		Notes:         req.Notes,
	}
	if s.PaymentStatus == "" {
		s.PaymentStatus = sale.StatusPending
	}

	if err := h.svc.Update(r.Context(), s); err != nil {
		writeError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, toResponse(s))
}

func (h *Handler) markPaid(w http.ResponseWriter, r *http.Request) {
	id, err := api.ID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s, err := h.svc.MarkPaid(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, toResponse(s))
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, sale.ErrNotFound):
		http.Error(w, "sale not found", http.StatusNotFound)
	case errors.Is(err, sale.ErrInvalid):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, sale.ErrImmutable):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		api.InternalError(w, r, err)
	}
}
