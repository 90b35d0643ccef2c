package services

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"homeledger/internal/models"
	"homeledger/internal/pagination"
	"homeledger/internal/testutil"
)

func defaultPage() pagination.PageRequest { return pagination.PageRequest{} }

// fakeNormalizer converts at a fixed rate without touching the network.
type fakeNormalizer struct {
	rate  decimal.Decimal
	calls int
}

func (f *fakeNormalizer) Normalize(_ context.Context, amount decimal.Decimal, from, to models.Currency, _ time.Time) (decimal.Decimal, error) {
	f.calls++
	if from == to {
		return amount, nil
	}
	return amount.Mul(f.rate).Round(2), nil
}

func newTransactionFixture(t *testing.T) (TransactionServicer, ReconciliationServicer, *fakeNormalizer, *models.User, *models.User, *models.Household, func()) {
	t.Helper()
	db := testutil.SetupTestDB(t)

	households := NewHouseholdService(db)
	reconciliation := NewReconciliationService(db, households)
	normalizer := &fakeNormalizer{rate: testutil.D(t, "0.75")}
	svc := NewTransactionService(db, households, reconciliation, normalizer)

	alice := testutil.CreateTestUser(t, db)
	bob := testutil.CreateTestUser(t, db)
	hh := testutil.CreateTestHousehold(t, db, alice, bob)

	cleanup := func() { testutil.TeardownTestDB(t, db) }
	return svc, reconciliation, normalizer, alice, bob, hh, cleanup
}

func baseInput(t *testing.T, paidByID uint) TransactionInput {
	t.Helper()
	return TransactionInput{
		Date:          time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		Merchant:      "Groceries",
		Amount:        testutil.D(t, "100.00"),
		Currency:      models.CurrencyUSD,
		PaidByID:      paidByID,
		SplitCategory: models.SplitShared,
	}
}

func TestCreateTransaction(t *testing.T) {
	t.Run("same_currency_passthrough", func(t *testing.T) {
		svc, _, _, alice, _, hh, cleanup := newTransactionFixture(t)
		defer cleanup()

		tx, err := svc.CreateTransaction(context.Background(), alice.ID, hh.ID, baseInput(t, alice.ID))
		testutil.AssertNoError(t, err)

		testutil.AssertDecimalEqual(t, "100.00", tx.NormalizedAmount)
		if tx.MonthKey != "2026-01" {
			t.Errorf("expected month key 2026-01, got %s", tx.MonthKey)
		}
	})

	t.Run("foreign_currency_normalized", func(t *testing.T) {
		svc, _, normalizer, alice, _, hh, cleanup := newTransactionFixture(t)
		defer cleanup()

		input := baseInput(t, alice.ID)
		input.Currency = models.CurrencyCAD

		tx, err := svc.CreateTransaction(context.Background(), alice.ID, hh.ID, input)
		testutil.AssertNoError(t, err)

		testutil.AssertDecimalEqual(t, "100.00", tx.Amount)
		testutil.AssertDecimalEqual(t, "75.00", tx.NormalizedAmount)
		if normalizer.calls != 1 {
			t.Errorf("expected one normalization call, got %d", normalizer.calls)
		}
	})

	t.Run("unsupported_currency", func(t *testing.T) {
		svc, _, _, alice, _, hh, cleanup := newTransactionFixture(t)
		defer cleanup()

		input := baseInput(t, alice.ID)
		input.Currency = "EUR"

		_, err := svc.CreateTransaction(context.Background(), alice.ID, hh.ID, input)
		testutil.AssertAppError(t, err, "INVALID_CURRENCY")
	})

	t.Run("non_positive_amount", func(t *testing.T) {
		svc, _, _, alice, _, hh, cleanup := newTransactionFixture(t)
		defer cleanup()

		input := baseInput(t, alice.ID)
		input.Amount = testutil.D(t, "0")

		_, err := svc.CreateTransaction(context.Background(), alice.ID, hh.ID, input)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("covered_requires_member", func(t *testing.T) {
		svc, _, _, alice, _, hh, cleanup := newTransactionFixture(t)
		defer cleanup()

		input := baseInput(t, alice.ID)
		input.SplitCategory = models.SplitCovered

		_, err := svc.CreateTransaction(context.Background(), alice.ID, hh.ID, input)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("outsider_payer_rejected", func(t *testing.T) {
		svc, _, _, alice, _, hh, cleanup := newTransactionFixture(t)
		defer cleanup()

		input := baseInput(t, 9999)

		_, err := svc.CreateTransaction(context.Background(), alice.ID, hh.ID, input)
		testutil.AssertAppError(t, err, "MEMBER_NOT_FOUND")
	})

	t.Run("settled_month_locked", func(t *testing.T) {
		svc, reconciliation, _, alice, _, hh, cleanup := newTransactionFixture(t)
		defer cleanup()

		_, err := svc.CreateTransaction(context.Background(), alice.ID, hh.ID, baseInput(t, alice.ID))
		testutil.AssertNoError(t, err)
		_, err = reconciliation.Settle(alice.ID, hh.ID, "2026-01")
		testutil.AssertNoError(t, err)

		_, err = svc.CreateTransaction(context.Background(), alice.ID, hh.ID, baseInput(t, alice.ID))
		testutil.AssertAppError(t, err, "MONTH_SETTLED")

		// A different month stays open.
		input := baseInput(t, alice.ID)
		input.Date = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
		_, err = svc.CreateTransaction(context.Background(), alice.ID, hh.ID, input)
		testutil.AssertNoError(t, err)
	})
}

func TestUpdateTransaction(t *testing.T) {
	t.Run("recomputes_normalized_amount", func(t *testing.T) {
		svc, _, _, alice, _, hh, cleanup := newTransactionFixture(t)
		defer cleanup()

		tx, err := svc.CreateTransaction(context.Background(), alice.ID, hh.ID, baseInput(t, alice.ID))
		testutil.AssertNoError(t, err)

		input := baseInput(t, alice.ID)
		input.Amount = testutil.D(t, "40.00")
		input.Currency = models.CurrencyCAD

		updated, err := svc.UpdateTransaction(context.Background(), alice.ID, hh.ID, tx.ID, input)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimalEqual(t, "30.00", updated.NormalizedAmount)
	})

	t.Run("settled_month_locked", func(t *testing.T) {
		svc, reconciliation, _, alice, _, hh, cleanup := newTransactionFixture(t)
		defer cleanup()

		tx, err := svc.CreateTransaction(context.Background(), alice.ID, hh.ID, baseInput(t, alice.ID))
		testutil.AssertNoError(t, err)
		_, err = reconciliation.Settle(alice.ID, hh.ID, "2026-01")
		testutil.AssertNoError(t, err)

		_, err = svc.UpdateTransaction(context.Background(), alice.ID, hh.ID, tx.ID, baseInput(t, alice.ID))
		testutil.AssertAppError(t, err, "MONTH_SETTLED")
	})

	t.Run("cannot_move_into_settled_month", func(t *testing.T) {
		svc, reconciliation, _, alice, _, hh, cleanup := newTransactionFixture(t)
		defer cleanup()

		// January is settled; a February transaction may not move into it.
		_, err := svc.CreateTransaction(context.Background(), alice.ID, hh.ID, baseInput(t, alice.ID))
		testutil.AssertNoError(t, err)

		febInput := baseInput(t, alice.ID)
		febInput.Date = time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
		febTx, err := svc.CreateTransaction(context.Background(), alice.ID, hh.ID, febInput)
		testutil.AssertNoError(t, err)

		_, err = reconciliation.Settle(alice.ID, hh.ID, "2026-01")
		testutil.AssertNoError(t, err)

		moved := febInput
		moved.Date = time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
		_, err = svc.UpdateTransaction(context.Background(), alice.ID, hh.ID, febTx.ID, moved)
		testutil.AssertAppError(t, err, "MONTH_SETTLED")
	})
}

func TestDeleteTransaction(t *testing.T) {
	t.Run("settled_month_locked", func(t *testing.T) {
		svc, reconciliation, _, alice, _, hh, cleanup := newTransactionFixture(t)
		defer cleanup()

		tx, err := svc.CreateTransaction(context.Background(), alice.ID, hh.ID, baseInput(t, alice.ID))
		testutil.AssertNoError(t, err)
		_, err = reconciliation.Settle(alice.ID, hh.ID, "2026-01")
		testutil.AssertNoError(t, err)

		err = svc.DeleteTransaction(alice.ID, hh.ID, tx.ID)
		testutil.AssertAppError(t, err, "MONTH_SETTLED")
	})

	t.Run("unsettled_month_deletes", func(t *testing.T) {
		svc, _, _, alice, _, hh, cleanup := newTransactionFixture(t)
		defer cleanup()

		tx, err := svc.CreateTransaction(context.Background(), alice.ID, hh.ID, baseInput(t, alice.ID))
		testutil.AssertNoError(t, err)
		testutil.AssertNoError(t, svc.DeleteTransaction(alice.ID, hh.ID, tx.ID))

		_, err = svc.GetTransactionByID(alice.ID, hh.ID, tx.ID)
		testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")
	})
}

func TestListTransactions(t *testing.T) {
	svc, _, _, alice, bob, hh, cleanup := newTransactionFixture(t)
	defer cleanup()

	jan := baseInput(t, alice.ID)
	_, err := svc.CreateTransaction(context.Background(), alice.ID, hh.ID, jan)
	testutil.AssertNoError(t, err)

	feb := baseInput(t, bob.ID)
	feb.Date = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	feb.SplitCategory = models.SplitPersonal
	feb.SplitMemberID = &bob.ID
	_, err = svc.CreateTransaction(context.Background(), alice.ID, hh.ID, feb)
	testutil.AssertNoError(t, err)

	t.Run("month_filter", func(t *testing.T) {
		month := "2026-01"
		page, err := svc.ListTransactions(alice.ID, hh.ID, defaultPage(), TransactionFilter{MonthKey: &month})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 1 {
			t.Errorf("expected 1 transaction in January, got %d", page.TotalItems)
		}
	})

	t.Run("split_filter", func(t *testing.T) {
		personal := models.SplitPersonal
		page, err := svc.ListTransactions(alice.ID, hh.ID, defaultPage(), TransactionFilter{SplitCategory: &personal})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 1 {
			t.Errorf("expected 1 personal transaction, got %d", page.TotalItems)
		}
	})

	t.Run("newest_first", func(t *testing.T) {
		page, err := svc.ListTransactions(alice.ID, hh.ID, defaultPage(), TransactionFilter{})
		testutil.AssertNoError(t, err)
		if len(page.Data) != 2 {
			t.Fatalf("expected 2 transactions, got %d", len(page.Data))
		}
		if page.Data[0].MonthKey != "2026-02" {
			t.Errorf("expected February first, got %s", page.Data[0].MonthKey)
		}
	})
}

func TestExportMonthCSV(t *testing.T) {
	svc, _, _, alice, bob, hh, cleanup := newTransactionFixture(t)
	defer cleanup()

	_, err := svc.CreateTransaction(context.Background(), alice.ID, hh.ID, baseInput(t, alice.ID))
	testutil.AssertNoError(t, err)

	covered := baseInput(t, alice.ID)
	covered.Merchant = "Gift"
	covered.Amount = testutil.D(t, "20.00")
	covered.SplitCategory = models.SplitCovered
	covered.SplitMemberID = &bob.ID
	_, err = svc.CreateTransaction(context.Background(), alice.ID, hh.ID, covered)
	testutil.AssertNoError(t, err)

	var buf bytes.Buffer
	testutil.AssertNoError(t, svc.ExportMonthCSV(alice.ID, hh.ID, "2026-01", &buf))

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	if lines[0] != "date,merchant,amount,currency,paid_by,split,notes" {
		t.Errorf("unexpected header: %q", lines[0])
	}
	if !strings.Contains(out, "Groceries,100.00,USD") {
		t.Errorf("expected groceries row in output:\n%s", out)
	}
	if !strings.Contains(out, "Covered for") {
		t.Errorf("expected covered label in output:\n%s", out)
	}
	if !strings.Contains(lines[len(lines)-1], "summary,") {
		t.Errorf("expected summary as last line, got %q", lines[len(lines)-1])
	}
}
