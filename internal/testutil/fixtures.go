package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"homeledger/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// D parses a decimal literal, failing the test on bad input.
func D(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:       email,
		Password:    string(hash),
		DisplayName: fmt.Sprintf("User %d", counter.Load()),
		IsActive:    true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestHousehold creates a USD household with the given users as
// members; the first user is the owner.
func CreateTestHousehold(t *testing.T, db *gorm.DB, users ...*models.User) *models.Household {
	t.Helper()

	if len(users) == 0 {
		t.Fatal("CreateTestHousehold needs at least one user")
	}

	household := &models.Household{
		Name:               fmt.Sprintf("Test Household %d", nextID()),
		SettlementCurrency: models.CurrencyUSD,
	}
	if err := db.Create(household).Error; err != nil {
		t.Fatalf("failed to create test household: %v", err)
	}

	for i, user := range users {
		role := models.MemberRoleMember
		if i == 0 {
			role = models.MemberRoleOwner
		}
		member := &models.HouseholdMember{
			HouseholdID: household.ID,
			UserID:      user.ID,
			Role:        role,
			DisplayName: user.DisplayName,
		}
		if err := db.Create(member).Error; err != nil {
			t.Fatalf("failed to create test household member: %v", err)
		}
		household.Members = append(household.Members, *member)
	}
	return household
}

// CreateTestExpenseType creates an expense type in the household.
func CreateTestExpenseType(t *testing.T, db *gorm.DB, householdID uint, name string) *models.ExpenseType {
	t.Helper()

	expenseType := &models.ExpenseType{
		HouseholdID: householdID,
		Name:        name,
	}
	if err := db.Create(expenseType).Error; err != nil {
		t.Fatalf("failed to create test expense type: %v", err)
	}
	return expenseType
}

// TransactionOpts tweaks CreateTestTransaction. Zero values fall back
// to a shared USD transaction dated at the given month's first day.
type TransactionOpts struct {
	Date          time.Time
	Merchant      string
	Currency      models.Currency
	SplitCategory models.SplitCategory
	SplitMemberID *uint
	ExpenseTypeID *uint
}

// CreateTestTransaction creates a transaction with NormalizedAmount
// equal to Amount, the same as a same-currency normalization.
func CreateTestTransaction(t *testing.T, db *gorm.DB, householdID, paidByID uint, monthKey, amount string, opts TransactionOpts) *models.Transaction {
	t.Helper()

	date := opts.Date
	if date.IsZero() {
		parsed, err := models.MonthKeyTime(monthKey)
		if err != nil {
			t.Fatalf("bad month key %q: %v", monthKey, err)
		}
		date = parsed
	}
	merchant := opts.Merchant
	if merchant == "" {
		merchant = fmt.Sprintf("Merchant %d", nextID())
	}
	currency := opts.Currency
	if currency == "" {
		currency = models.CurrencyUSD
	}
	split := opts.SplitCategory
	if split == "" {
		split = models.SplitShared
	}

	amt := D(t, amount)
	transaction := &models.Transaction{
		HouseholdID:      householdID,
		Date:             date,
		Merchant:         merchant,
		Amount:           amt,
		Currency:         currency,
		NormalizedAmount: amt,
		PaidByID:         paidByID,
		SplitCategory:    split,
		SplitMemberID:    opts.SplitMemberID,
		ExpenseTypeID:    opts.ExpenseTypeID,
	}
	if err := db.Create(transaction).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return transaction
}

// CreateTestSplitRule creates a split rule. A nil expenseTypeID makes
// it the household default.
func CreateTestSplitRule(t *testing.T, db *gorm.DB, householdID uint, expenseTypeID *uint, memberAID, memberBID uint, shareA, shareB int) *models.SplitRule {
	t.Helper()

	rule := &models.SplitRule{
		HouseholdID:   householdID,
		ExpenseTypeID: expenseTypeID,
		MemberAID:     memberAID,
		MemberBID:     memberBID,
		ShareA:        shareA,
		ShareB:        shareB,
	}
	if err := db.Create(rule).Error; err != nil {
		t.Fatalf("failed to create test split rule: %v", err)
	}
	return rule
}

// CreateTestBudgetRule creates a budget rule over the given expense types.
func CreateTestBudgetRule(t *testing.T, db *gorm.DB, householdID, giverID, receiverID uint, amount string, expenseTypes []models.ExpenseType) *models.BudgetRule {
	t.Helper()

	rule := &models.BudgetRule{
		HouseholdID:  householdID,
		Name:         fmt.Sprintf("Budget %d", nextID()),
		GiverID:      giverID,
		ReceiverID:   receiverID,
		Amount:       D(t, amount),
		ExpenseTypes: expenseTypes,
	}
	if err := db.Create(rule).Error; err != nil {
		t.Fatalf("failed to create test budget rule: %v", err)
	}
	return rule
}
