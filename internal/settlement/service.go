package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/colmado/internal/changefeed"
	"github.com/MrJamesThe3rd/colmado/internal/ledger"
	"github.com/MrJamesThe3rd/colmado/internal/money"
	"github.com/MrJamesThe3rd/colmado/internal/sale"
	"github.com/MrJamesThe3rd/colmado/internal/tax"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=settlement
type Repository interface {
	GetSettlement(ctx context.Context, id uuid.UUID) (*CardSettlement, error)
	ListSettlements(ctx context.Context, filter ListFilter) ([]*CardSettlement, error)
	ListPending(ctx context.Context) ([]*CardSettlement, error)
	SettledSaleIDs(ctx context.Context) ([]uuid.UUID, error)
	AttachJournalEntry(ctx context.Context, id, entryID uuid.UUID) error
	MarkRetentionRecorded(ctx context.Context, id uuid.UUID, at time.Time) error

	BeginSettlement(ctx context.Context) (SettlementTx, error)
}

// SettlementTx persists a settlement and its sale links atomically.
type SettlementTx interface {
	LinkedSaleIDs(ctx context.Context, saleIDs []uuid.UUID) ([]uuid.UUID, error)
	CreateSettlement(ctx context.Context, s *CardSettlement) error
	Commit() error
	Rollback() error
}

type SaleLister interface {
	List(ctx context.Context, filter sale.ListFilter) ([]*sale.Sale, error)
}

type Poster interface {
	Post(ctx context.Context, params ledger.PostParams) (*ledger.Entry, error)
}

type RetentionRecorder interface {
	Record(ctx context.Context, params tax.RecordParams) (*tax.Retention, error)
}

// Accounts are the ledger codes a settlement posts to. The bank account comes
// from each request.
type Accounts struct {
	CardClearing        string
	CommissionExpense   string
	RetentionReceivable string
}

type Config struct {
	CommissionRate decimal.Decimal
	RetentionRate  decimal.Decimal
	Accounts       Accounts
}

type Service struct {
	repo       Repository
	sales      SaleLister
	ledger     Poster
	retentions RetentionRecorder
	notifier   changefeed.Notifier
	cfg        Config
	now        func() time.Time
}

func NewService(
	repo Repository,
	sales SaleLister,
	ledger Poster,
	retentions RetentionRecorder,
	notifier changefeed.Notifier,
	cfg Config,
) *Service {
	if notifier == nil {
		notifier = changefeed.Noop{}
	}

	return &Service{
		repo:       repo,
		sales:      sales,
		ledger:     ledger,
		retentions: retentions,
		notifier:   notifier,
		cfg:        cfg,
		now:        time.Now,
	}
}

type CreateParams struct {
	SaleIDs []uuid.UUID
	// GrossAmount defaults to the selected sales total when nil.
	GrossAmount *decimal.Decimal
	// Nil rates take the configured defaults.
	CommissionRate   *decimal.Decimal
	RetentionRate    *decimal.Decimal
	SettlementDate   time.Time
	BankAccount      string
	DepositReference string
	CreatedBy        string
}

type ListFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
}

// Candidates returns paid card sales that no settlement includes yet.
func (s *Service) Candidates(ctx context.Context) ([]*sale.Sale, error) {
	paid := sale.StatusPaid

	sales, err := s.sales.List(ctx, sale.ListFilter{
		Methods: sale.CardMethods,
		Status:  &paid,
	})
	if err != nil {
		return nil, fmt.Errorf("list card sales: %w", err)
	}

	settled, err := s.repo.SettledSaleIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list settled sales: %w", err)
	}

	exclude := make(map[uuid.UUID]struct{}, len(settled))
	for _, id := range settled {
		exclude[id] = struct{}{}
	}

	candidates := make([]*sale.Sale, 0, len(sales))

	for _, sl := range sales {
		if _, ok := exclude[sl.ID]; ok {
			continue
		}

		candidates = append(candidates, sl)
	}

	return candidates, nil
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*CardSettlement, error) {
	commissionRate := s.cfg.CommissionRate
	if params.CommissionRate != nil {
		commissionRate = *params.CommissionRate
	}

	retentionRate := s.cfg.RetentionRate
	if params.RetentionRate != nil {
		retentionRate = *params.RetentionRate
	}

	if !money.ValidRate(commissionRate) {
		return nil, fmt.Errorf("%w: commission rate %s must be in [0, 1)", ErrValidation, commissionRate)
	}

	if !money.ValidRate(retentionRate) {
		return nil, fmt.Errorf("%w: retention rate %s must be in [0, 1)", ErrValidation, retentionRate)
	}

	selected, err := s.selectSales(ctx, params.SaleIDs)
	if err != nil {
		return nil, err
	}

	totals := make([]decimal.Decimal, len(selected))
	for i, sl := range selected {
		totals[i] = sl.Total
	}

	selectedTotal := money.Sum(totals...)

	gross := selectedTotal
	if params.GrossAmount != nil {
		gross = *params.GrossAmount
	}

	if !gross.IsPositive() {
		return nil, fmt.Errorf("%w: gross amount must be greater than zero", ErrValidation)
	}

	if params.BankAccount == "" {
		return nil, fmt.Errorf("%w: bank account is required", ErrValidation)
	}

	if len(selected) > 0 && !money.WithinTolerance(gross, selectedTotal) {
		return nil, &MismatchError{Gross: gross, Selected: selectedTotal}
	}

	date := params.SettlementDate
	if date.IsZero() {
		date = s.now()
	}

	amounts := Compute(gross, commissionRate, retentionRate)
	periodStart, periodEnd := period(selected, date)

	ids := make([]uuid.UUID, len(selected))
	for i, sl := range selected {
		ids[i] = sl.ID
	}

	st := &CardSettlement{
		SettlementDate:   date,
		PeriodStart:      periodStart,
		PeriodEnd:        periodEnd,
		GrossAmount:      gross,
		CommissionRate:   commissionRate,
		CommissionAmount: amounts.Commission,
		RetentionRate:    retentionRate,
		RetentionAmount:  amounts.Retention,
		NetDeposit:       amounts.Net,
		BankAccount:      params.BankAccount,
		DepositReference: params.DepositReference,
		SaleIDs:          ids,
		Status:           StatusReconciled,
		CreatedBy:        params.CreatedBy,
	}

	if err := s.persist(ctx, st); err != nil {
		return nil, err
	}

	s.postJournal(ctx, st)
	s.recordRetention(ctx, st)
	s.notifier.Notify(ctx, changefeed.Change{Entity: "card_settlement", ID: st.ID, Op: changefeed.OpCreate})

	return st, nil
}

// selectSales resolves the requested ids against the current candidates.
func (s *Service) selectSales(ctx context.Context, ids []uuid.UUID) ([]*sale.Sale, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	candidates, err := s.Candidates(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*sale.Sale, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}

	seen := make(map[uuid.UUID]struct{}, len(ids))
	selected := make([]*sale.Sale, 0, len(ids))

	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: sale %s selected twice", ErrValidation, id)
		}

		seen[id] = struct{}{}

		sl, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: sale %s is not a paid, unsettled card sale", ErrValidation, id)
		}

		selected = append(selected, sl)
	}

	return selected, nil
}

func period(selected []*sale.Sale, fallback time.Time) (time.Time, time.Time) {
	if len(selected) == 0 {
		return fallback, fallback
	}

	start, end := selected[0].Date, selected[0].Date

	for _, sl := range selected[1:] {
		if sl.Date.Before(start) {
			start = sl.Date
		}

		if sl.Date.After(end) {
			end = sl.Date
		}
	}

	return start, end
}

func (s *Service) persist(ctx context.Context, st *CardSettlement) error {
	stx, err := s.repo.BeginSettlement(ctx)
	if err != nil {
		return fmt.Errorf("begin settlement: %w", err)
	}
	defer stx.Rollback()

	if len(st.SaleIDs) > 0 {
		linked, err := stx.LinkedSaleIDs(ctx, st.SaleIDs)
		if err != nil {
			return fmt.Errorf("check settled sales: %w", err)
		}

		if len(linked) > 0 {
			return fmt.Errorf("%w: %s", ErrAlreadySettled, linked[0])
		}
	}

	if err := stx.CreateSettlement(ctx, st); err != nil {
		return fmt.Errorf("create settlement: %w", err)
	}

	if err := stx.Commit(); err != nil {
		return fmt.Errorf("commit settlement: %w", err)
	}

	return nil
}

// postJournal records the deposit in the ledger. Failures are logged and left
// for RepostPending. The source key makes a retried post return the entry
// already written for this settlement.
func (s *Service) postJournal(ctx context.Context, st *CardSettlement) bool {
	memo := "Card settlement"
	if st.DepositReference != "" {
		memo += " " + st.DepositReference
	}

	entry, err := s.ledger.Post(ctx, ledger.PostParams{
		Date:      st.SettlementDate,
		Memo:      memo,
		Reference: st.ID.String(),
		SourceKey: "card_settlement:" + st.ID.String(),
		Lines: []ledger.Line{
			ledger.Debit(st.BankAccount, st.NetDeposit, "Net deposit"),
			ledger.Debit(s.cfg.Accounts.CommissionExpense, st.CommissionAmount, "Processor commission"),
			ledger.Debit(s.cfg.Accounts.RetentionReceivable, st.RetentionAmount, "ITBIS retention"),
			ledger.Credit(s.cfg.Accounts.CardClearing, st.GrossAmount, "Card sales cleared"),
		},
	})
	if err != nil {
		slog.Error("failed to post settlement journal entry", "settlement_id", st.ID, "error", err)
		return false
	}

	if err := s.repo.AttachJournalEntry(ctx, st.ID, entry.ID); err != nil {
		slog.Error("failed to attach journal entry", "settlement_id", st.ID, "entry_id", entry.ID, "error", err)
		return false
	}

	st.JournalEntryID = &entry.ID

	return true
}

func (s *Service) recordRetention(ctx context.Context, st *CardSettlement) bool {
	if !st.RetentionAmount.IsPositive() {
		return true
	}

	if _, err := s.retentions.Record(ctx, tax.RecordParams{
		Date:       st.SettlementDate,
		Amount:     st.RetentionAmount,
		SourceType: tax.SourceCardSettlement,
		SourceID:   st.ID,
	}); err != nil {
		slog.Error("failed to record tax retention", "settlement_id", st.ID, "error", err)
		return false
	}

	at := s.now()
	if err := s.repo.MarkRetentionRecorded(ctx, st.ID, at); err != nil {
		slog.Error("failed to stamp tax retention", "settlement_id", st.ID, "error", err)
		return false
	}

	st.RetentionRecordedAt = &at

	return true
}

type RepostResult struct {
	Repaired int
	Failed   int
}

// RepostPending retries the accounting steps that failed after a settlement
// was persisted.
func (s *Service) RepostPending(ctx context.Context) (*RepostResult, error) {
	pending, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending settlements: %w", err)
	}

	result := &RepostResult{}

	for _, st := range pending {
		ok := true

		if st.JournalEntryID == nil {
			ok = s.postJournal(ctx, st) && ok
		}

		if st.RetentionRecordedAt == nil {
			ok = s.recordRetention(ctx, st) && ok
		}

		if ok {
			result.Repaired++
		} else {
			result.Failed++
		}
	}

	if len(pending) > 0 {
		slog.Info("reposted pending settlements", "repaired", result.Repaired, "failed", result.Failed)
	}

	return result, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*CardSettlement, error) {
	return s.repo.GetSettlement(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*CardSettlement, error) {
	return s.repo.ListSettlements(ctx, filter)
}
