package tax

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/colmado/internal/http/api"
	"github.com/MrJamesThe3rd/colmado/internal/tax"
)

type Handler struct {
	svc *tax.Service
}

func NewHandler(svc *tax.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/retentions", h.retentions)
}

type periodResponse struct {
	Period string          `json:"period"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// retentions summarizes withheld ITBIS by month. The range defaults to the
// current year to date.
func (h *Handler) retentions(w http.ResponseWriter, r *http.Request) {
	start, err := api.Date(r, "start_date")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	end, err := api.EndDate(r, "end_date")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	to := time.Now()
	if end != nil {
		to = *end
	}

	from := time.Date(to.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	if start != nil {
		from = *start
	}

	totals, err := h.svc.Summary(r.Context(), from, to)
	if err != nil {
		if errors.Is(err, tax.ErrInvalid) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		api.InternalError(w, r, err)

		return
	}

	resp := make([]periodResponse, len(totals))
	for i, t := range totals {
		resp[i] = periodResponse{
			Period: t.Period.Format("2006-01"),
			Count:  t.Count,
			Amount: t.Amount,
		}
	}

	api.WriteJSON(w, http.StatusOK, resp)
}
