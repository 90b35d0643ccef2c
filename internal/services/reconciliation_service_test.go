package services

import (
	"testing"

	"github.com/shopspring/decimal"

	"homeledger/internal/models"
	"homeledger/internal/testutil"
)

func ptr(v uint) *uint { return &v }

func TestCalculateReconciliation_JanuaryScenario(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	households := NewHouseholdService(db)
	svc := NewReconciliationService(db, households)

	alice := testutil.CreateTestUser(t, db)
	bob := testutil.CreateTestUser(t, db)
	hh := testutil.CreateTestHousehold(t, db, alice, bob)
	groceries := testutil.CreateTestExpenseType(t, db, hh.ID, "Groceries")

	// Default rule: 50/50 between Alice and Bob.
	testutil.CreateTestSplitRule(t, db, hh.ID, nil, alice.ID, bob.ID, 50, 50)

	testutil.CreateTestTransaction(t, db, hh.ID, alice.ID, "2026-01", "100.00",
		testutil.TransactionOpts{Merchant: "Groceries", ExpenseTypeID: &groceries.ID})
	testutil.CreateTestTransaction(t, db, hh.ID, alice.ID, "2026-01", "5.00",
		testutil.TransactionOpts{Merchant: "Coffee", SplitCategory: models.SplitPersonal, SplitMemberID: &alice.ID})
	testutil.CreateTestTransaction(t, db, hh.ID, alice.ID, "2026-01", "20.00",
		testutil.TransactionOpts{Merchant: "Gift", SplitCategory: models.SplitCovered, SplitMemberID: &bob.ID})
	testutil.CreateTestTransaction(t, db, hh.ID, bob.ID, "2026-01", "80.00",
		testutil.TransactionOpts{Merchant: "Dinner"})
	testutil.CreateTestTransaction(t, db, hh.ID, bob.ID, "2026-01", "50.00",
		testutil.TransactionOpts{Merchant: "Gas"})

	result, err := svc.CalculateReconciliation(alice.ID, hh.ID, "2026-01")
	testutil.AssertNoError(t, err)

	testutil.AssertDecimalEqual(t, "125.00", result.Paid[alice.ID])
	testutil.AssertDecimalEqual(t, "120.00", result.Share[alice.ID])
	testutil.AssertDecimalEqual(t, "130.00", result.Paid[bob.ID])
	testutil.AssertDecimalEqual(t, "135.00", result.Share[bob.ID])

	if len(result.Instructions) != 1 {
		t.Fatalf("expected a single instruction, got %d", len(result.Instructions))
	}
	ins := result.Instructions[0]
	if ins.DebtorID != bob.ID || ins.CreditorID != alice.ID {
		t.Errorf("expected Bob to owe Alice, got debtor=%d creditor=%d", ins.DebtorID, ins.CreditorID)
	}
	testutil.AssertDecimalEqual(t, "5.00", ins.Amount)

	if result.Settled {
		t.Error("month should not be settled yet")
	}
}

func TestCalculateReconciliation_PersonalHasNoBalanceEffect(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	households := NewHouseholdService(db)
	svc := NewReconciliationService(db, households)

	alice := testutil.CreateTestUser(t, db)
	bob := testutil.CreateTestUser(t, db)
	hh := testutil.CreateTestHousehold(t, db, alice, bob)

	testutil.CreateTestTransaction(t, db, hh.ID, alice.ID, "2026-03", "42.00",
		testutil.TransactionOpts{SplitCategory: models.SplitPersonal, SplitMemberID: &alice.ID})

	result, err := svc.CalculateReconciliation(alice.ID, hh.ID, "2026-03")
	testutil.AssertNoError(t, err)

	testutil.AssertDecimalEqual(t, "0", result.Balance[alice.ID])
	testutil.AssertDecimalEqual(t, "0", result.Balance[bob.ID])
	if len(result.Instructions) != 0 {
		t.Errorf("expected no instructions, got %v", result.Instructions)
	}
	if result.Message != "All settled, nothing owed" {
		t.Errorf("unexpected message: %q", result.Message)
	}
}

func TestCalculateReconciliation_SharesConserveTotal(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	households := NewHouseholdService(db)
	svc := NewReconciliationService(db, households)

	a := testutil.CreateTestUser(t, db)
	b := testutil.CreateTestUser(t, db)
	c := testutil.CreateTestUser(t, db)
	hh := testutil.CreateTestHousehold(t, db, a, b, c)

	// 100.00 over three members does not divide evenly; the allocation
	// remainder must land on someone so shares sum to exactly 100.00.
	testutil.CreateTestTransaction(t, db, hh.ID, a.ID, "2026-02", "100.00", testutil.TransactionOpts{})

	result, err := svc.CalculateReconciliation(a.ID, hh.ID, "2026-02")
	testutil.AssertNoError(t, err)

	total := decimal.Zero
	for _, s := range result.Share {
		total = total.Add(s)
	}
	testutil.AssertDecimalEqual(t, "100.00", total)

	// Balances always sum to zero.
	net := decimal.Zero
	for _, b := range result.Balance {
		net = net.Add(b)
	}
	testutil.AssertDecimalEqual(t, "0", net)
}

func TestCalculateReconciliation_Deterministic(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	households := NewHouseholdService(db)
	svc := NewReconciliationService(db, households)

	a := testutil.CreateTestUser(t, db)
	b := testutil.CreateTestUser(t, db)
	c := testutil.CreateTestUser(t, db)
	hh := testutil.CreateTestHousehold(t, db, a, b, c)

	testutil.CreateTestTransaction(t, db, hh.ID, a.ID, "2026-02", "90.00", testutil.TransactionOpts{})
	testutil.CreateTestTransaction(t, db, hh.ID, b.ID, "2026-02", "33.33", testutil.TransactionOpts{})

	first, err := svc.CalculateReconciliation(a.ID, hh.ID, "2026-02")
	testutil.AssertNoError(t, err)
	second, err := svc.CalculateReconciliation(a.ID, hh.ID, "2026-02")
	testutil.AssertNoError(t, err)

	if len(first.Instructions) != len(second.Instructions) {
		t.Fatalf("instruction counts differ: %d vs %d", len(first.Instructions), len(second.Instructions))
	}
	for i := range first.Instructions {
		f, s := first.Instructions[i], second.Instructions[i]
		if f.DebtorID != s.DebtorID || f.CreditorID != s.CreditorID || !f.Amount.Equal(s.Amount) {
			t.Errorf("instruction %d differs: %+v vs %+v", i, f, s)
		}
	}
}

func TestCalculateReconciliation_Errors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	households := NewHouseholdService(db)
	svc := NewReconciliationService(db, households)

	alice := testutil.CreateTestUser(t, db)
	outsider := testutil.CreateTestUser(t, db)
	hh := testutil.CreateTestHousehold(t, db, alice)

	t.Run("not_a_member", func(t *testing.T) {
		_, err := svc.CalculateReconciliation(outsider.ID, hh.ID, "2026-01")
		testutil.AssertAppError(t, err, "NOT_HOUSEHOLD_MEMBER")
	})

	t.Run("bad_month_key", func(t *testing.T) {
		_, err := svc.CalculateReconciliation(alice.ID, hh.ID, "2026-13")
		testutil.AssertAppError(t, err, "INVALID_MONTH_KEY")
	})
}

func TestSettle(t *testing.T) {
	t.Run("freezes_and_locks", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		households := NewHouseholdService(db)
		svc := NewReconciliationService(db, households)

		alice := testutil.CreateTestUser(t, db)
		bob := testutil.CreateTestUser(t, db)
		hh := testutil.CreateTestHousehold(t, db, alice, bob)
		testutil.CreateTestTransaction(t, db, hh.ID, alice.ID, "2026-01", "50.00", testutil.TransactionOpts{})

		settlement, err := svc.Settle(alice.ID, hh.ID, "2026-01")
		testutil.AssertNoError(t, err)

		if settlement.MonthKey != "2026-01" {
			t.Errorf("expected month 2026-01, got %s", settlement.MonthKey)
		}
		testutil.AssertDecimalEqual(t, "25.00", settlement.Amount)
		if settlement.DebtorID != bob.ID || settlement.CreditorID != alice.ID {
			t.Errorf("expected Bob owes Alice, got debtor=%d creditor=%d", settlement.DebtorID, settlement.CreditorID)
		}

		settled, err := svc.IsMonthSettled(hh.ID, "2026-01")
		testutil.AssertNoError(t, err)
		if !settled {
			t.Error("expected month to be settled")
		}
	})

	t.Run("empty_month_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		households := NewHouseholdService(db)
		svc := NewReconciliationService(db, households)

		alice := testutil.CreateTestUser(t, db)
		hh := testutil.CreateTestHousehold(t, db, alice)

		_, err := svc.Settle(alice.ID, hh.ID, "2026-01")
		testutil.AssertAppError(t, err, "NO_TRANSACTIONS_IN_MONTH")
	})

	t.Run("double_settle_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		households := NewHouseholdService(db)
		svc := NewReconciliationService(db, households)

		alice := testutil.CreateTestUser(t, db)
		hh := testutil.CreateTestHousehold(t, db, alice)
		testutil.CreateTestTransaction(t, db, hh.ID, alice.ID, "2026-01", "10.00", testutil.TransactionOpts{})

		_, err := svc.Settle(alice.ID, hh.ID, "2026-01")
		testutil.AssertNoError(t, err)

		_, err = svc.Settle(alice.ID, hh.ID, "2026-01")
		testutil.AssertAppError(t, err, "SETTLEMENT_EXISTS")
	})

	t.Run("departed_payer_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		households := NewHouseholdService(db)
		svc := NewReconciliationService(db, households)

		alice := testutil.CreateTestUser(t, db)
		bob := testutil.CreateTestUser(t, db)
		hh := testutil.CreateTestHousehold(t, db, alice, bob)
		testutil.CreateTestTransaction(t, db, hh.ID, bob.ID, "2026-01", "10.00", testutil.TransactionOpts{})

		testutil.AssertNoError(t, households.RemoveMember(alice.ID, hh.ID, bob.ID))

		_, err := svc.Settle(alice.ID, hh.ID, "2026-01")
		testutil.AssertAppError(t, err, "PAYER_NOT_MEMBER")
	})

	t.Run("settle_other_months_unaffected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		households := NewHouseholdService(db)
		svc := NewReconciliationService(db, households)

		alice := testutil.CreateTestUser(t, db)
		hh := testutil.CreateTestHousehold(t, db, alice)
		testutil.CreateTestTransaction(t, db, hh.ID, alice.ID, "2026-01", "10.00", testutil.TransactionOpts{})
		testutil.CreateTestTransaction(t, db, hh.ID, alice.ID, "2026-02", "10.00", testutil.TransactionOpts{})

		_, err := svc.Settle(alice.ID, hh.ID, "2026-01")
		testutil.AssertNoError(t, err)

		settled, err := svc.IsMonthSettled(hh.ID, "2026-02")
		testutil.AssertNoError(t, err)
		if settled {
			t.Error("settling January must not lock February")
		}
	})
}

func TestUnsettle(t *testing.T) {
	t.Run("reopens_month", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		households := NewHouseholdService(db)
		svc := NewReconciliationService(db, households)

		alice := testutil.CreateTestUser(t, db)
		hh := testutil.CreateTestHousehold(t, db, alice)
		testutil.CreateTestTransaction(t, db, hh.ID, alice.ID, "2026-01", "10.00", testutil.TransactionOpts{})

		_, err := svc.Settle(alice.ID, hh.ID, "2026-01")
		testutil.AssertNoError(t, err)
		testutil.AssertNoError(t, svc.Unsettle(alice.ID, hh.ID, "2026-01"))

		settled, err := svc.IsMonthSettled(hh.ID, "2026-01")
		testutil.AssertNoError(t, err)
		if settled {
			t.Error("expected month to be reopened")
		}

		// Re-settling after an edit must succeed.
		testutil.CreateTestTransaction(t, db, hh.ID, alice.ID, "2026-01", "5.00", testutil.TransactionOpts{})
		_, err = svc.Settle(alice.ID, hh.ID, "2026-01")
		testutil.AssertNoError(t, err)
	})

	t.Run("missing_settlement", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		households := NewHouseholdService(db)
		svc := NewReconciliationService(db, households)

		alice := testutil.CreateTestUser(t, db)
		hh := testutil.CreateTestHousehold(t, db, alice)

		err := svc.Unsettle(alice.ID, hh.ID, "2026-01")
		testutil.AssertAppError(t, err, "SETTLEMENT_NOT_FOUND")
	})
}

func TestListSettlements(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	households := NewHouseholdService(db)
	svc := NewReconciliationService(db, households)

	alice := testutil.CreateTestUser(t, db)
	hh := testutil.CreateTestHousehold(t, db, alice)
	testutil.CreateTestTransaction(t, db, hh.ID, alice.ID, "2026-01", "10.00", testutil.TransactionOpts{})
	testutil.CreateTestTransaction(t, db, hh.ID, alice.ID, "2026-02", "10.00", testutil.TransactionOpts{})

	_, err := svc.Settle(alice.ID, hh.ID, "2026-01")
	testutil.AssertNoError(t, err)
	_, err = svc.Settle(alice.ID, hh.ID, "2026-02")
	testutil.AssertNoError(t, err)

	settlements, err := svc.ListSettlements(alice.ID, hh.ID)
	testutil.AssertNoError(t, err)

	if len(settlements) != 2 {
		t.Fatalf("expected 2 settlements, got %d", len(settlements))
	}
	if settlements[0].MonthKey != "2026-02" || settlements[1].MonthKey != "2026-01" {
		t.Errorf("expected newest month first, got %s then %s", settlements[0].MonthKey, settlements[1].MonthKey)
	}
}
