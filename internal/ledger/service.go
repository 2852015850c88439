package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=ledger
type Repository interface {
	CreateEntry(ctx context.Context, entry *Entry) error
	GetEntry(ctx context.Context, id uuid.UUID) (*Entry, error)
	ListEntries(ctx context.Context, filter ListFilter) ([]*Entry, error)
	TrialBalance(ctx context.Context, asOf time.Time) ([]AccountBalance, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type PostParams struct {
	Date      time.Time
	Memo      string
	Reference string
	SourceKey string
	Lines     []Line
}

type ListFilter struct {
	Reference *string
	StartDate *time.Time
	EndDate   *time.Time
}

// Post validates and persists a journal entry. Zero-amount lines are dropped
// before validation so callers can pass optional legs unconditionally.
// Posting a SourceKey that is already stored returns the existing entry.
func (s *Service) Post(ctx context.Context, params PostParams) (*Entry, error) {
	lines := make([]Line, 0, len(params.Lines))
	for _, l := range params.Lines {
		if l.Debit.IsZero() && l.Credit.IsZero() {
			continue
		}

		lines = append(lines, l)
	}

	if err := validateLines(lines); err != nil {
		return nil, err
	}

	entry := &Entry{
		Date:      params.Date,
		Memo:      params.Memo,
		Reference: params.Reference,
		SourceKey: params.SourceKey,
		Lines:     lines,
	}
	if err := s.repo.CreateEntry(ctx, entry); err != nil {
		return nil, err
	}

	return entry, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return s.repo.GetEntry(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Entry, error) {
	return s.repo.ListEntries(ctx, filter)
}

func (s *Service) TrialBalance(ctx context.Context, asOf time.Time) ([]AccountBalance, error) {
	return s.repo.TrialBalance(ctx, asOf)
}

func validateLines(lines []Line) error {
	if len(lines) < 2 {
		return fmt.Errorf("%w: needs at least two non-zero lines, got %d", ErrInvalid, len(lines))
	}

	debits, credits := decimal.Zero, decimal.Zero

	for i, l := range lines {
		if l.AccountCode == "" {
			return fmt.Errorf("%w: line %d has no account", ErrInvalid, i+1)
		}

		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			return fmt.Errorf("%w: line %d has a negative amount", ErrInvalid, i+1)
		}

		if !l.Debit.IsZero() && !l.Credit.IsZero() {
			return fmt.Errorf("%w: line %d debits and credits at once", ErrInvalid, i+1)
		}

		debits = debits.Add(l.Debit)
		credits = credits.Add(l.Credit)
	}

	if !debits.Equal(credits) {
		return fmt.Errorf("%w: debits %s, credits %s", ErrUnbalanced, debits, credits)
	}

	return nil
}
