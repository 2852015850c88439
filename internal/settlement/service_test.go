package settlement_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/colmado/internal/changefeed"
	"github.com/MrJamesThe3rd/colmado/internal/ledger"
	"github.com/MrJamesThe3rd/colmado/internal/sale"
	"github.com/MrJamesThe3rd/colmado/internal/settlement"
	"github.com/MrJamesThe3rd/colmado/internal/tax"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}

type recordingNotifier struct {
	changes []changefeed.Change
}

func (r *recordingNotifier) Notify(_ context.Context, c changefeed.Change) {
	r.changes = append(r.changes, c)
}

type mocks struct {
	repo       *settlement.MockRepository
	tx         *settlement.MockSettlementTx
	sales      *settlement.MockSaleLister
	ledger     *settlement.MockPoster
	retentions *settlement.MockRetentionRecorder
	notifier   *recordingNotifier
}

func newService(t *testing.T) (*settlement.Service, *mocks) {
	t.Helper()

	ctrl := gomock.NewController(t)
	m := &mocks{
		repo:       settlement.NewMockRepository(ctrl),
		tx:         settlement.NewMockSettlementTx(ctrl),
		sales:      settlement.NewMockSaleLister(ctrl),
		ledger:     settlement.NewMockPoster(ctrl),
		retentions: settlement.NewMockRetentionRecorder(ctrl),
		notifier:   &recordingNotifier{},
	}

	svc := settlement.NewService(m.repo, m.sales, m.ledger, m.retentions, m.notifier, settlement.Config{
		CommissionRate: dec("0.038"),
		RetentionRate:  dec("0.02"),
		Accounts: settlement.Accounts{
			CardClearing:        "1103",
			CommissionExpense:   "6105",
			RetentionReceivable: "1108",
		},
	})

	return svc, m
}

func cardSale(total string, day int) *sale.Sale {
	return &sale.Sale{
		ID:            uuid.New(),
		Total:         dec(total),
		PaymentMethod: sale.MethodCreditCard,
		PaymentStatus: sale.StatusPaid,
		Date:          time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC),
	}
}

func (m *mocks) expectCandidates(sales []*sale.Sale, settled []uuid.UUID) {
	m.sales.EXPECT().List(gomock.Any(), gomock.Any()).Return(sales, nil)
	m.repo.EXPECT().SettledSaleIDs(gomock.Any()).Return(settled, nil)
}

func (m *mocks) expectPersist() {
	m.repo.EXPECT().BeginSettlement(gomock.Any()).Return(m.tx, nil)
	m.tx.EXPECT().LinkedSaleIDs(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	m.tx.EXPECT().
		CreateSettlement(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, st *settlement.CardSettlement) error {
			st.ID = uuid.New()
			return nil
		})
	m.tx.EXPECT().Commit().Return(nil)
	m.tx.EXPECT().Rollback().Return(nil).AnyTimes()
}

func (m *mocks) expectSecondary() {
	m.ledger.EXPECT().
		Post(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p ledger.PostParams) (*ledger.Entry, error) {
			return &ledger.Entry{ID: uuid.New(), Lines: p.Lines}, nil
		})
	m.repo.EXPECT().AttachJournalEntry(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	m.retentions.EXPECT().Record(gomock.Any(), gomock.Any()).Return(&tax.Retention{}, nil)
	m.repo.EXPECT().MarkRetentionRecorded(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
}

func TestCompute(t *testing.T) {
	got := settlement.Compute(dec("1000"), dec("0.038"), dec("0.02"))

	assert.True(t, dec("38.00").Equal(got.Commission))
	assert.True(t, dec("20.00").Equal(got.Retention))
	assert.True(t, dec("942.00").Equal(got.Net))
}

func TestCompute_NetIsExact(t *testing.T) {
	for _, gross := range []string{"0.01", "1.37", "600.005", "12345.6789", "99999.99"} {
		for _, rates := range [][2]string{{"0.038", "0.02"}, {"0.0275", "0"}, {"0.05", "0.0333"}} {
			g := dec(gross)
			got := settlement.Compute(g, dec(rates[0]), dec(rates[1]))

			assert.True(t, g.Equal(got.Net.Add(got.Commission).Add(got.Retention)), "gross %s rates %v", gross, rates)
		}
	}
}

func TestService_Candidates_ExcludesSettled(t *testing.T) {
	svc, m := newService(t)

	a, b, c := cardSale("100", 1), cardSale("200", 2), cardSale("300", 3)
	m.sales.EXPECT().
		List(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, f sale.ListFilter) ([]*sale.Sale, error) {
			assert.ElementsMatch(t, sale.CardMethods, f.Methods)
			require.NotNil(t, f.Status)
			assert.Equal(t, sale.StatusPaid, *f.Status)

			return []*sale.Sale{a, b, c}, nil
		})
	m.repo.EXPECT().SettledSaleIDs(gomock.Any()).Return([]uuid.UUID{b.ID}, nil)

	got, err := svc.Candidates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []*sale.Sale{a, c}, got)
}

func TestService_Create(t *testing.T) {
	settlementDate := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)

	t.Run("ManualEntry", func(t *testing.T) {
		svc, m := newService(t)
		m.expectPersist()

		var posted ledger.PostParams

		m.ledger.EXPECT().
			Post(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, p ledger.PostParams) (*ledger.Entry, error) {
				posted = p
				return &ledger.Entry{ID: uuid.New()}, nil
			})
		m.repo.EXPECT().AttachJournalEntry(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
		m.retentions.EXPECT().
			Record(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, p tax.RecordParams) (*tax.Retention, error) {
				assert.True(t, dec("20").Equal(p.Amount))
				assert.Equal(t, settlementDate, p.Date)

				return &tax.Retention{}, nil
			})
		m.repo.EXPECT().MarkRetentionRecorded(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

		got, err := svc.Create(context.Background(), settlement.CreateParams{
			GrossAmount:    ptr(dec("1000")),
			SettlementDate: settlementDate,
			BankAccount:    "1001",
		})
		require.NoError(t, err)

		assert.True(t, dec("38").Equal(got.CommissionAmount))
		assert.True(t, dec("20").Equal(got.RetentionAmount))
		assert.True(t, dec("942").Equal(got.NetDeposit))
		assert.Equal(t, settlementDate, got.PeriodStart)
		assert.Equal(t, settlementDate, got.PeriodEnd)
		assert.Equal(t, settlement.StatusReconciled, got.Status)
		assert.NotNil(t, got.JournalEntryID)
		assert.NotNil(t, got.RetentionRecordedAt)

		require.Len(t, posted.Lines, 4)

		want := []struct {
			account string
			debit   string
			credit  string
		}{
			{"1001", "942", "0"},
			{"6105", "38", "0"},
			{"1108", "20", "0"},
			{"1103", "0", "1000"},
		}
		for i, w := range want {
			assert.Equal(t, w.account, posted.Lines[i].AccountCode)
			assert.True(t, dec(w.debit).Equal(posted.Lines[i].Debit), "line %d debit", i)
			assert.True(t, dec(w.credit).Equal(posted.Lines[i].Credit), "line %d credit", i)
		}

		require.Len(t, m.notifier.changes, 1)
		assert.Equal(t, got.ID, m.notifier.changes[0].ID)
	})

	t.Run("SelectionDefaultsGross", func(t *testing.T) {
		svc, m := newService(t)

		a, b := cardSale("250", 2), cardSale("350", 4)
		m.expectCandidates([]*sale.Sale{a, b}, nil)
		m.expectPersist()
		m.expectSecondary()

		got, err := svc.Create(context.Background(), settlement.CreateParams{
			SaleIDs:        []uuid.UUID{b.ID, a.ID},
			SettlementDate: settlementDate,
			BankAccount:    "1001",
		})
		require.NoError(t, err)

		assert.True(t, dec("600").Equal(got.GrossAmount))
		assert.Equal(t, a.Date, got.PeriodStart)
		assert.Equal(t, b.Date, got.PeriodEnd)
		assert.Equal(t, []uuid.UUID{b.ID, a.ID}, got.SaleIDs)
	})

	t.Run("WithinTolerance", func(t *testing.T) {
		svc, m := newService(t)

		a := cardSale("600", 2)
		m.expectCandidates([]*sale.Sale{a}, nil)
		m.expectPersist()
		m.expectSecondary()

		got, err := svc.Create(context.Background(), settlement.CreateParams{
			SaleIDs:        []uuid.UUID{a.ID},
			GrossAmount:    ptr(dec("600.005")),
			SettlementDate: settlementDate,
			BankAccount:    "1001",
		})
		require.NoError(t, err)
		assert.True(t, got.GrossAmount.Equal(got.NetDeposit.Add(got.CommissionAmount).Add(got.RetentionAmount)))
	})

	t.Run("Mismatch", func(t *testing.T) {
		svc, m := newService(t)

		a := cardSale("600", 2)
		m.expectCandidates([]*sale.Sale{a}, nil)

		_, err := svc.Create(context.Background(), settlement.CreateParams{
			SaleIDs:     []uuid.UUID{a.ID},
			GrossAmount: ptr(dec("500")),
			BankAccount: "1001",
		})

		var mismatch *settlement.MismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.ErrorIs(t, err, settlement.ErrValidation)
		assert.Contains(t, err.Error(), "500.00")
		assert.Contains(t, err.Error(), "600.00")
	})

	t.Run("SecondaryFailuresAreNotFatal", func(t *testing.T) {
		svc, m := newService(t)
		m.expectPersist()
		m.ledger.EXPECT().Post(gomock.Any(), gomock.Any()).Return(nil, errors.New("ledger down"))
		m.retentions.EXPECT().Record(gomock.Any(), gomock.Any()).Return(nil, errors.New("tax down"))

		got, err := svc.Create(context.Background(), settlement.CreateParams{
			GrossAmount: ptr(dec("1000")),
			BankAccount: "1001",
		})
		require.NoError(t, err)
		assert.Nil(t, got.JournalEntryID)
		assert.Nil(t, got.RetentionRecordedAt)
		assert.True(t, got.Pending())
	})

	t.Run("PersistFailureIsFatal", func(t *testing.T) {
		svc, m := newService(t)
		m.repo.EXPECT().BeginSettlement(gomock.Any()).Return(m.tx, nil)
		m.tx.EXPECT().CreateSettlement(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
		m.tx.EXPECT().Rollback().Return(nil)

		_, err := svc.Create(context.Background(), settlement.CreateParams{
			GrossAmount: ptr(dec("1000")),
			BankAccount: "1001",
		})
		assert.ErrorContains(t, err, "disk full")
		assert.Empty(t, m.notifier.changes)
	})

	t.Run("ConcurrentlySettled", func(t *testing.T) {
		svc, m := newService(t)

		a := cardSale("600", 2)
		m.expectCandidates([]*sale.Sale{a}, nil)
		m.repo.EXPECT().BeginSettlement(gomock.Any()).Return(m.tx, nil)
		m.tx.EXPECT().LinkedSaleIDs(gomock.Any(), []uuid.UUID{a.ID}).Return([]uuid.UUID{a.ID}, nil)
		m.tx.EXPECT().Rollback().Return(nil)

		_, err := svc.Create(context.Background(), settlement.CreateParams{
			SaleIDs:     []uuid.UUID{a.ID},
			BankAccount: "1001",
		})
		assert.ErrorIs(t, err, settlement.ErrAlreadySettled)
	})
}

func TestService_Create_Validation(t *testing.T) {
	settled := cardSale("100", 1)
	open := cardSale("100", 2)

	tests := []struct {
		name   string
		params settlement.CreateParams
	}{
		{
			name:   "ZeroGross",
			params: settlement.CreateParams{GrossAmount: ptr(decimal.Zero), BankAccount: "1001"},
		},
		{
			name:   "NegativeGross",
			params: settlement.CreateParams{GrossAmount: ptr(dec("-5")), BankAccount: "1001"},
		},
		{
			name:   "NoSelectionNoGross",
			params: settlement.CreateParams{BankAccount: "1001"},
		},
		{
			name:   "MissingBankAccount",
			params: settlement.CreateParams{GrossAmount: ptr(dec("100"))},
		},
		{
			name: "RateOutOfRange",
			params: settlement.CreateParams{
				GrossAmount:    ptr(dec("100")),
				BankAccount:    "1001",
				CommissionRate: ptr(dec("1")),
			},
		},
		{
			name: "AlreadySettledSale",
			params: settlement.CreateParams{
				SaleIDs:     []uuid.UUID{settled.ID},
				BankAccount: "1001",
			},
		},
		{
			name: "DuplicateSelection",
			params: settlement.CreateParams{
				SaleIDs:     []uuid.UUID{open.ID, open.ID},
				BankAccount: "1001",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newService(t)
			if len(tt.params.SaleIDs) > 0 {
				m.expectCandidates([]*sale.Sale{settled, open}, []uuid.UUID{settled.ID})
			}

			got, err := svc.Create(context.Background(), tt.params)
			assert.ErrorIs(t, err, settlement.ErrValidation)
			assert.Nil(t, got)
		})
	}
}

func TestService_SettledSalesAreDisjoint(t *testing.T) {
	svc, m := newService(t)

	a, b := cardSale("100", 1), cardSale("200", 2)

	var settled []uuid.UUID

	m.sales.EXPECT().List(gomock.Any(), gomock.Any()).Return([]*sale.Sale{a, b}, nil).AnyTimes()
	m.repo.EXPECT().
		SettledSaleIDs(gomock.Any()).
		DoAndReturn(func(context.Context) ([]uuid.UUID, error) { return settled, nil }).
		AnyTimes()
	m.repo.EXPECT().BeginSettlement(gomock.Any()).Return(m.tx, nil).AnyTimes()
	m.tx.EXPECT().LinkedSaleIDs(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	m.tx.EXPECT().
		CreateSettlement(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, st *settlement.CardSettlement) error {
			st.ID = uuid.New()
			settled = append(settled, st.SaleIDs...)

			return nil
		}).
		AnyTimes()
	m.tx.EXPECT().Commit().Return(nil).AnyTimes()
	m.tx.EXPECT().Rollback().Return(nil).AnyTimes()
	m.ledger.EXPECT().Post(gomock.Any(), gomock.Any()).Return(&ledger.Entry{ID: uuid.New()}, nil).AnyTimes()
	m.repo.EXPECT().AttachJournalEntry(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	m.retentions.EXPECT().Record(gomock.Any(), gomock.Any()).Return(&tax.Retention{}, nil).AnyTimes()
	m.repo.EXPECT().MarkRetentionRecorded(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	first, err := svc.Create(context.Background(), settlement.CreateParams{SaleIDs: []uuid.UUID{a.ID}, BankAccount: "1001"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), settlement.CreateParams{SaleIDs: []uuid.UUID{a.ID, b.ID}, BankAccount: "1001"})
	assert.ErrorIs(t, err, settlement.ErrValidation)

	second, err := svc.Create(context.Background(), settlement.CreateParams{SaleIDs: []uuid.UUID{b.ID}, BankAccount: "1001"})
	require.NoError(t, err)

	assert.NotContains(t, second.SaleIDs, first.SaleIDs[0])

	candidates, err := svc.Candidates(context.Background())
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestService_RepostPending(t *testing.T) {
	svc, m := newService(t)

	entryID := uuid.New()
	missingJournal := &settlement.CardSettlement{
		ID:                  uuid.New(),
		GrossAmount:         dec("1000"),
		CommissionAmount:    dec("38"),
		RetentionAmount:     dec("20"),
		NetDeposit:          dec("942"),
		BankAccount:         "1001",
		RetentionRecordedAt: ptr(time.Now()),
	}
	missingBoth := &settlement.CardSettlement{
		ID:              uuid.New(),
		GrossAmount:     dec("100"),
		RetentionAmount: dec("2"),
		NetDeposit:      dec("98"),
		BankAccount:     "1001",
	}

	m.repo.EXPECT().ListPending(gomock.Any()).Return([]*settlement.CardSettlement{missingJournal, missingBoth}, nil)
	m.ledger.EXPECT().Post(gomock.Any(), gomock.Any()).Return(&ledger.Entry{ID: entryID}, nil)
	m.repo.EXPECT().AttachJournalEntry(gomock.Any(), missingJournal.ID, entryID).Return(nil)
	m.ledger.EXPECT().Post(gomock.Any(), gomock.Any()).Return(nil, errors.New("still down"))
	m.retentions.EXPECT().Record(gomock.Any(), gomock.Any()).Return(&tax.Retention{}, nil)
	m.repo.EXPECT().MarkRetentionRecorded(gomock.Any(), missingBoth.ID, gomock.Any()).Return(nil)

	got, err := svc.RepostPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, got.Repaired)
	assert.Equal(t, 1, got.Failed)
	assert.Equal(t, &entryID, missingJournal.JournalEntryID)
	assert.NotNil(t, missingBoth.RetentionRecordedAt)
}

func TestService_RepostAfterFailedLinkBackReusesRecords(t *testing.T) {
	svc, m := newService(t)

	sl := cardSale("1000", 2)
	m.expectCandidates([]*sale.Sale{sl}, nil)
	m.expectPersist()

	// Keyed like the ledger and retention stores: one record per source.
	entries := map[string]*ledger.Entry{}
	retentions := map[uuid.UUID]*tax.Retention{}

	m.ledger.EXPECT().
		Post(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p ledger.PostParams) (*ledger.Entry, error) {
			if e, ok := entries[p.SourceKey]; ok {
				return e, nil
			}

			e := &ledger.Entry{ID: uuid.New(), SourceKey: p.SourceKey, Lines: p.Lines}
			entries[p.SourceKey] = e

			return e, nil
		}).
		Times(2)
	m.retentions.EXPECT().
		Record(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p tax.RecordParams) (*tax.Retention, error) {
			if r, ok := retentions[p.SourceID]; ok {
				return r, nil
			}

			r := &tax.Retention{ID: uuid.New(), SourceType: p.SourceType, SourceID: p.SourceID, Amount: p.Amount}
			retentions[p.SourceID] = r

			return r, nil
		}).
		Times(2)

	m.repo.EXPECT().AttachJournalEntry(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))
	m.repo.EXPECT().MarkRetentionRecorded(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))

	st, err := svc.Create(context.Background(), settlement.CreateParams{
		SaleIDs:     []uuid.UUID{sl.ID},
		BankAccount: "1001",
	})
	require.NoError(t, err)
	assert.Nil(t, st.JournalEntryID)
	assert.Nil(t, st.RetentionRecordedAt)

	m.repo.EXPECT().ListPending(gomock.Any()).Return([]*settlement.CardSettlement{st}, nil)
	m.repo.EXPECT().AttachJournalEntry(gomock.Any(), st.ID, gomock.Any()).Return(nil)
	m.repo.EXPECT().MarkRetentionRecorded(gomock.Any(), st.ID, gomock.Any()).Return(nil)

	got, err := svc.RepostPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, got.Repaired)

	require.Len(t, entries, 1)
	assert.Len(t, retentions, 1)

	entry := entries["card_settlement:"+st.ID.String()]
	require.NotNil(t, entry)
	assert.Equal(t, &entry.ID, st.JournalEntryID)
}
