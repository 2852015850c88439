package tax_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/colmado/internal/tax"
)

func TestService_Record(t *testing.T) {
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	source := uuid.New()

	type testCase struct {
		name      string
		params    tax.RecordParams
		setupMock func(m *tax.MockRepository)
		wantErr   error
	}

	tests := []testCase{
		{
			name: "Success",
			params: tax.RecordParams{
				Date:       date,
				Amount:     decimal.NewFromInt(20),
				SourceType: tax.SourceCardSettlement,
				SourceID:   source,
			},
			setupMock: func(m *tax.MockRepository) {
				m.EXPECT().
					CreateRetention(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, r *tax.Retention) error {
						assert.Equal(t, source, r.SourceID)
						assert.True(t, decimal.NewFromInt(20).Equal(r.Amount))

						return nil
					})
			},
		},
		{
			name: "ZeroAmount",
			params: tax.RecordParams{
				Date:       date,
				Amount:     decimal.Zero,
				SourceType: tax.SourceCardSettlement,
			},
			wantErr: tax.ErrInvalid,
		},
		{
			name: "MissingSource",
			params: tax.RecordParams{
				Date:   date,
				Amount: decimal.NewFromInt(5),
			},
			wantErr: tax.ErrInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := tax.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			got, err := tax.NewService(repo).Record(context.Background(), tt.params)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, date, got.Date)
		})
	}
}

func TestService_Summary_RejectsInvertedRange(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := tax.NewService(tax.NewMockRepository(ctrl))

	now := time.Now()
	_, err := svc.Summary(context.Background(), now, now.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, tax.ErrInvalid)
}
