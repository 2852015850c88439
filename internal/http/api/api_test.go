package api_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/colmado/internal/http/api"
)

type sampleRequest struct {
	Amount  decimal.Decimal  `json:"amount" validate:"gt=0"`
	Rate    *decimal.Decimal `json:"rate,omitempty" validate:"omitempty,gte=0,lt=1"`
	Account string           `json:"account" validate:"required"`
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "StringAmount", body: `{"amount":"1000.50","account":"1001"}`},
		{name: "NumberAmount", body: `{"amount":600.005,"account":"1001","rate":0.038}`},
		{name: "ZeroAmount", body: `{"amount":"0","account":"1001"}`, wantErr: "amount gt"},
		{name: "MissingAccount", body: `{"amount":"5"}`, wantErr: "account required"},
		{name: "RateTooHigh", body: `{"amount":"5","account":"1","rate":"1.2"}`, wantErr: "rate lt"},
		{name: "Malformed", body: `{`, wantErr: "invalid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))

			var req sampleRequest

			err := api.Decode(r, &req)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.True(t, req.Amount.IsPositive())
		})
	}
}

func TestDate(t *testing.T) {
	r := httptest.NewRequest("GET", "/?start_date=2026-03-01&end_date=nope", nil)

	got, err := api.Date(r, "start_date")
	require.NoError(t, err)
	assert.Equal(t, 2026, got.Year())

	_, err = api.Date(r, "end_date")
	assert.Error(t, err)

	none, err := api.Date(r, "as_of")
	assert.NoError(t, err)
	assert.Nil(t, none)
}

func TestEndDate_CoversWholeDay(t *testing.T) {
	r := httptest.NewRequest("GET", "/?end_date=2026-03-18", nil)

	got, err := api.EndDate(r, "end_date")
	require.NoError(t, err)
	require.NotNil(t, got)

	lateSale := time.Date(2026, 3, 18, 23, 59, 59, 0, time.UTC)
	nextDay := time.Date(2026, 3, 19, 0, 0, 0, 0, time.UTC)

	assert.False(t, lateSale.After(*got))
	assert.True(t, got.Before(nextDay))

	none, err := api.EndDate(httptest.NewRequest("GET", "/", nil), "end_date")
	assert.NoError(t, err)
	assert.Nil(t, none)
}
