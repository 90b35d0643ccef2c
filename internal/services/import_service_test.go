package services

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"homeledger/internal/importer"
	"homeledger/internal/models"
	"homeledger/internal/testutil"
)

const statementCSV = "Date,Description,Amount\n" +
	"2026-01-05,SUPERMART #204,-84.12\n" +
	"2026-01-07,COFFEE ROASTERS,-5.50\n"

func newImportFixture(t *testing.T) (ImportServicer, *importFixture, func()) {
	t.Helper()
	db := testutil.SetupTestDB(t)

	alice := testutil.CreateTestUser(t, db)
	bob := testutil.CreateTestUser(t, db)
	hh := testutil.CreateTestHousehold(t, db, alice, bob)

	households := NewHouseholdService(db)
	reconciliation := NewReconciliationService(db, households)
	transactions := NewTransactionService(db, households, reconciliation, &fakeNormalizer{rate: testutil.D(t, "0.75")})

	ctx, cancel := context.WithCancel(context.Background())
	pool := importer.NewPool(db, importer.NewCSVExtractor(models.CurrencyUSD), 2)
	pool.Start(ctx)

	svc := NewImportService(db, households, transactions, pool)

	f := &importFixture{
		db:             db,
		reconciliation: reconciliation,
		household:      hh,
		aliceID:        alice.ID,
		bobID:          bob.ID,
	}
	cleanup := func() {
		cancel()
		pool.Wait()
		testutil.TeardownTestDB(t, db)
	}
	return svc, f, cleanup
}

type importFixture struct {
	db             *gorm.DB
	reconciliation ReconciliationServicer
	household      *models.Household
	aliceID        uint
	bobID          uint
}

// waitForTask polls until the background workers finish the task.
func waitForTask(t *testing.T, svc ImportServicer, f *importFixture, taskID string) *models.ImportTask {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		task, err := svc.GetTask(f.aliceID, f.household.ID, taskID)
		testutil.AssertNoError(t, err)
		if task.Status == models.ImportStatusReady || task.Status == models.ImportStatusFailed {
			return task
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("import task did not finish in time")
	return nil
}

func TestEnqueueImport(t *testing.T) {
	t.Run("extracts_candidates", func(t *testing.T) {
		svc, f, cleanup := newImportFixture(t)
		defer cleanup()

		task, err := svc.EnqueueImport(f.aliceID, f.household.ID, "jan.csv", []byte(statementCSV))
		testutil.AssertNoError(t, err)

		task = waitForTask(t, svc, f, task.ID)
		if task.Status != models.ImportStatusReady {
			t.Fatalf("expected ready, got %s (%s)", task.Status, task.Error)
		}

		candidates, err := svc.ListCandidates(f.aliceID, f.household.ID, task.ID)
		testutil.AssertNoError(t, err)
		if len(candidates) != 2 {
			t.Fatalf("expected 2 candidates, got %d", len(candidates))
		}
		if candidates[0].Merchant != "SUPERMART #204" {
			t.Errorf("unexpected merchant %q", candidates[0].Merchant)
		}
		if candidates[0].ProposedSplit != models.SplitShared {
			t.Errorf("expected shared proposal, got %s", candidates[0].ProposedSplit)
		}
	})

	t.Run("unparseable_statement_fails", func(t *testing.T) {
		svc, f, cleanup := newImportFixture(t)
		defer cleanup()

		task, err := svc.EnqueueImport(f.aliceID, f.household.ID, "junk.csv", []byte("nothing useful here\n"))
		testutil.AssertNoError(t, err)

		task = waitForTask(t, svc, f, task.ID)
		if task.Status != models.ImportStatusFailed {
			t.Fatalf("expected failed, got %s", task.Status)
		}
		if task.Error == "" {
			t.Error("expected a failure reason on the task")
		}
	})

	t.Run("empty_payload_rejected", func(t *testing.T) {
		svc, f, cleanup := newImportFixture(t)
		defer cleanup()

		_, err := svc.EnqueueImport(f.aliceID, f.household.ID, "empty.csv", nil)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("outsider_rejected", func(t *testing.T) {
		svc, f, cleanup := newImportFixture(t)
		defer cleanup()

		_, err := svc.EnqueueImport(9999, f.household.ID, "jan.csv", []byte(statementCSV))
		testutil.AssertAppError(t, err, "NOT_HOUSEHOLD_MEMBER")
	})

	t.Run("flags_likely_duplicates", func(t *testing.T) {
		svc, f, cleanup := newImportFixture(t)
		defer cleanup()

		testutil.CreateTestTransaction(t, f.db, f.household.ID, f.aliceID, "2026-01", "84.12",
			testutil.TransactionOpts{
				Date:     time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC),
				Merchant: "Supermart",
			})

		task, err := svc.EnqueueImport(f.aliceID, f.household.ID, "jan.csv", []byte(statementCSV))
		testutil.AssertNoError(t, err)
		task = waitForTask(t, svc, f, task.ID)

		candidates, err := svc.ListCandidates(f.aliceID, f.household.ID, task.ID)
		testutil.AssertNoError(t, err)
		if !candidates[0].LikelyDuplicate {
			t.Error("expected the Supermart candidate flagged as a likely duplicate")
		}
		if candidates[1].LikelyDuplicate {
			t.Error("did not expect the coffee candidate flagged")
		}
	})
}

func TestListCandidates_NotReady(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	alice := testutil.CreateTestUser(t, db)
	hh := testutil.CreateTestHousehold(t, db, alice)

	households := NewHouseholdService(db)
	reconciliation := NewReconciliationService(db, households)
	transactions := NewTransactionService(db, households, reconciliation, &fakeNormalizer{rate: testutil.D(t, "1")})

	// A pool that never starts leaves tasks pending.
	pool := importer.NewPool(db, importer.NewCSVExtractor(models.CurrencyUSD), 1)
	svc := NewImportService(db, households, transactions, pool)

	task, err := svc.EnqueueImport(alice.ID, hh.ID, "jan.csv", []byte(statementCSV))
	testutil.AssertNoError(t, err)

	_, err = svc.ListCandidates(alice.ID, hh.ID, task.ID)
	testutil.AssertAppError(t, err, "IMPORT_NOT_READY")
}

func TestAcceptCandidate(t *testing.T) {
	readyCandidates := func(t *testing.T, svc ImportServicer, f *importFixture) []models.ImportCandidate {
		t.Helper()
		task, err := svc.EnqueueImport(f.aliceID, f.household.ID, "jan.csv", []byte(statementCSV))
		testutil.AssertNoError(t, err)
		task = waitForTask(t, svc, f, task.ID)
		if task.Status != models.ImportStatusReady {
			t.Fatalf("expected ready, got %s (%s)", task.Status, task.Error)
		}
		candidates, err := svc.ListCandidates(f.aliceID, f.household.ID, task.ID)
		testutil.AssertNoError(t, err)
		return candidates
	}

	t.Run("creates_transaction", func(t *testing.T) {
		svc, f, cleanup := newImportFixture(t)
		defer cleanup()
		candidates := readyCandidates(t, svc, f)

		tx, err := svc.AcceptCandidate(context.Background(), f.aliceID, f.household.ID,
			candidates[0].ID, "", nil, nil)
		testutil.AssertNoError(t, err)

		if tx.PaidByID != f.aliceID {
			t.Errorf("expected the accepting user as payer, got %d", tx.PaidByID)
		}
		if tx.SplitCategory != models.SplitShared {
			t.Errorf("expected the proposed shared split, got %s", tx.SplitCategory)
		}
		testutil.AssertDecimalEqual(t, "84.12", tx.Amount)
		if tx.MonthKey != "2026-01" {
			t.Errorf("expected month key 2026-01, got %s", tx.MonthKey)
		}

		refreshed, err := svc.ListCandidates(f.aliceID, f.household.ID, candidates[0].TaskID)
		testutil.AssertNoError(t, err)
		if refreshed[0].AcceptedTransactionID == nil || *refreshed[0].AcceptedTransactionID != tx.ID {
			t.Error("expected the candidate linked to the created transaction")
		}
	})

	t.Run("double_accept_rejected", func(t *testing.T) {
		svc, f, cleanup := newImportFixture(t)
		defer cleanup()
		candidates := readyCandidates(t, svc, f)

		_, err := svc.AcceptCandidate(context.Background(), f.aliceID, f.household.ID,
			candidates[0].ID, "", nil, nil)
		testutil.AssertNoError(t, err)

		_, err = svc.AcceptCandidate(context.Background(), f.aliceID, f.household.ID,
			candidates[0].ID, "", nil, nil)
		testutil.AssertAppError(t, err, "CANDIDATE_ACCEPTED")
	})

	t.Run("settled_month_locked", func(t *testing.T) {
		svc, f, cleanup := newImportFixture(t)
		defer cleanup()
		candidates := readyCandidates(t, svc, f)

		testutil.CreateTestTransaction(t, f.db, f.household.ID, f.aliceID, "2026-01", "10.00",
			testutil.TransactionOpts{})
		_, err := f.reconciliation.Settle(f.aliceID, f.household.ID, "2026-01")
		testutil.AssertNoError(t, err)

		_, err = svc.AcceptCandidate(context.Background(), f.aliceID, f.household.ID,
			candidates[0].ID, "", nil, nil)
		testutil.AssertAppError(t, err, "MONTH_SETTLED")
	})

	t.Run("unknown_candidate", func(t *testing.T) {
		svc, f, cleanup := newImportFixture(t)
		defer cleanup()

		_, err := svc.AcceptCandidate(context.Background(), f.aliceID, f.household.ID,
			9999, "", nil, nil)
		testutil.AssertAppError(t, err, "CANDIDATE_NOT_FOUND")
	})
}
