package sale

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=sale
type Repository interface {
	CreateSale(ctx context.Context, s *Sale) error
	GetSale(ctx context.Context, id uuid.UUID) (*Sale, error)
	UpdateSale(ctx context.Context, s *Sale) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status PaymentStatus) error
	ListSales(ctx context.Context, filter ListFilter) ([]*Sale, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateParams struct {
	Number        string
	Total         decimal.Decimal
	PaymentMethod PaymentMethod
	PaymentStatus PaymentStatus
	Date          time.Time
	Notes         string
}

type ListFilter struct {
	Methods   []PaymentMethod
	Status    *PaymentStatus
	StartDate *time.Time
	EndDate   *time.Time
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Sale, error) {
	if !params.Total.IsPositive() {
		return nil, fmt.Errorf("%w: total must be positive", ErrInvalid)
	}

	if !params.PaymentMethod.Valid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrInvalid, params.PaymentMethod)
	}

	status := params.PaymentStatus
	if status == "" {
		status = StatusPending
	}

	sale := &Sale{
		Number:        params.Number,
		Total:         params.Total,
		PaymentMethod: params.PaymentMethod,
		PaymentStatus: status,
		Date:          params.Date,
		Notes:         params.Notes,
	}
	if err := s.repo.CreateSale(ctx, sale); err != nil {
		return nil, err
	}

	return sale, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Sale, error) {
	return s.repo.GetSale(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Sale, error) {
	return s.repo.ListSales(ctx, filter)
}

// Update rewrites a pending sale. Paid sales are frozen.
func (s *Service) Update(ctx context.Context, sale *Sale) error {
	current, err := s.repo.GetSale(ctx, sale.ID)
	if err != nil {
		return err
	}

	if current.Paid() {
		return ErrImmutable
	}

	return s.repo.UpdateSale(ctx, sale)
}

// MarkPaid settles a pending sale. Marking an already paid sale is a no-op.
func (s *Service) MarkPaid(ctx context.Context, id uuid.UUID) (*Sale, error) {
	current, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return nil, err
	}

	if current.Paid() {
		return current, nil
	}

	if err := s.repo.UpdateStatus(ctx, id, StatusPaid); err != nil {
		return nil, err
	}

	current.PaymentStatus = StatusPaid

	return current, nil
}
