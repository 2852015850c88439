package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/colmado/internal/ledger"
)

func setup(t *testing.T) (*ledger.MockRepository, chi.Router) {
	t.Helper()

	repo := ledger.NewMockRepository(gomock.NewController(t))
	r := chi.NewRouter()
	r.Route("/ledger", NewHandler(ledger.NewService(repo)).Routes)

	return repo, r
}

func serve(r chi.Router, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))

	return rec
}

func TestHandler_Post(t *testing.T) {
	t.Run("Balanced", func(t *testing.T) {
		repo, r := setup(t)
		repo.EXPECT().
			CreateEntry(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, e *ledger.Entry) error {
				e.ID = uuid.New()
				return nil
			})

		body := `{"memo":"Owner contribution","lines":[
			{"account_code":"1001","debit":"500"},
			{"account_code":"3101","credit":"500"}]}`

		rec := serve(r, http.MethodPost, "/ledger/entries", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp entryResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, decimal.NewFromInt(500).Equal(resp.Total))
		assert.Len(t, resp.Lines, 2)
	})

	t.Run("Unbalanced", func(t *testing.T) {
		_, r := setup(t)

		body := `{"memo":"typo","lines":[
			{"account_code":"1001","debit":"500"},
			{"account_code":"3101","credit":"50"}]}`

		rec := serve(r, http.MethodPost, "/ledger/entries", body)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("SingleLine", func(t *testing.T) {
		_, r := setup(t)

		body := `{"memo":"half","lines":[{"account_code":"1001","debit":"500"}]}`

		rec := serve(r, http.MethodPost, "/ledger/entries", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_TrialBalance(t *testing.T) {
	repo, r := setup(t)

	asOf := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond)
	repo.EXPECT().TrialBalance(gomock.Any(), asOf).Return([]ledger.AccountBalance{
		{AccountCode: "1103", Debit: decimal.NewFromInt(1000), Credit: decimal.NewFromInt(1000)},
		{AccountCode: "6105", Debit: decimal.NewFromInt(38), Credit: decimal.Zero},
	}, nil)

	rec := serve(r, http.MethodGet, "/ledger/trial-balance?as_of=2026-03-31", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []balanceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.True(t, resp[0].Balance.IsZero())
	assert.True(t, decimal.NewFromInt(38).Equal(resp[1].Balance))
}

func TestHandler_Get_NotFound(t *testing.T) {
	repo, r := setup(t)

	id := uuid.New()
	repo.EXPECT().GetEntry(gomock.Any(), id).Return(nil, ledger.ErrNotFound)

	rec := serve(r, http.MethodGet, "/ledger/entries/"+id.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
