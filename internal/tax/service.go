package tax

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=tax
type Repository interface {
	CreateRetention(ctx context.Context, r *Retention) error
	SummarizeRetentions(ctx context.Context, from, to time.Time) ([]PeriodTotal, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type RecordParams struct {
	Date       time.Time
	Amount     decimal.Decimal
	SourceType SourceType
	SourceID   uuid.UUID
}

func (s *Service) Record(ctx context.Context, params RecordParams) (*Retention, error) {
	if !params.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive, got %s", ErrInvalid, params.Amount)
	}

	if params.SourceType == "" {
		return nil, fmt.Errorf("%w: missing source type", ErrInvalid)
	}

	r := &Retention{
		Date:       params.Date,
		Amount:     params.Amount,
		SourceType: params.SourceType,
		SourceID:   params.SourceID,
	}
	if err := s.repo.CreateRetention(ctx, r); err != nil {
		return nil, err
	}

	return r, nil
}

// Summary returns monthly retention totals for dates in [from, to].
func (s *Service) Summary(ctx context.Context, from, to time.Time) ([]PeriodTotal, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: end date before start date", ErrInvalid)
	}

	return s.repo.SummarizeRetentions(ctx, from, to)
}
