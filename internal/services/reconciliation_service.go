package services

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "homeledger/internal/errors"
	"homeledger/internal/logger"
	"homeledger/internal/models"
	"homeledger/internal/split"
)

// balanceEpsilon treats rounding noise as settled: balances within a
// cent of zero never produce a settlement instruction.
var balanceEpsilon = decimal.NewFromFloat(0.01)

// reconciliationService is the reconciliation engine and the settlement
// ledger for (household, month) pairs.
type reconciliationService struct {
	db         *gorm.DB
	households HouseholdServicer
}

// NewReconciliationService creates a new ReconciliationServicer.
func NewReconciliationService(db *gorm.DB, households HouseholdServicer) ReconciliationServicer {
	return &reconciliationService{db: db, households: households}
}

// CalculateReconciliation aggregates one month's transactions into
// per-member paid/share/balance totals and reduces them to pairwise
// settlement instructions. Pure read: calling it twice on unchanged
// data yields identical results.
func (s *reconciliationService) CalculateReconciliation(userID, householdID uint, monthKey string) (*ReconciliationResult, error) {
	if err := s.households.RequireMember(userID, householdID); err != nil {
		return nil, err
	}
	return s.calculate(householdID, monthKey)
}

func (s *reconciliationService) calculate(householdID uint, monthKey string) (*ReconciliationResult, error) {
	if !models.ValidMonthKey(monthKey) {
		return nil, apperrors.ErrInvalidMonthKey
	}

	var household models.Household
	if err := s.db.First(&household, householdID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrHouseholdNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	members, err := s.households.GetMembers(householdID)
	if err != nil {
		return nil, err
	}
	memberIDs := make([]uint, 0, len(members))
	for _, m := range members {
		memberIDs = append(memberIDs, m.UserID)
	}

	var rules []models.SplitRule
	if err := s.db.Where("household_id = ?", householdID).Find(&rules).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := s.db.Where("household_id = ? AND month_key = ?", householdID, monthKey).
		Order("date, id").Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	paid := make(map[uint]decimal.Decimal, len(memberIDs))
	share := make(map[uint]decimal.Decimal, len(memberIDs))
	for _, id := range memberIDs {
		paid[id] = decimal.Zero
		share[id] = decimal.Zero
	}

	// Single pass; normalized amounts were computed when the
	// transactions were written, so no rate lookups happen here.
	for i := range transactions {
		tx := &transactions[i]
		paid[tx.PaidByID] = paid[tx.PaidByID].Add(tx.NormalizedAmount)

		if tx.SplitCategory == models.SplitPersonal {
			// Symmetric credit: personal spending affects nobody's balance.
			share[tx.PaidByID] = share[tx.PaidByID].Add(tx.NormalizedAmount)
			continue
		}

		fractions, err := split.ResolveShares(tx, rules, memberIDs)
		if err != nil {
			return nil, err
		}
		for memberID, amount := range allocate(tx.NormalizedAmount, fractions) {
			share[memberID] = share[memberID].Add(amount)
		}
	}

	balance := make(map[uint]decimal.Decimal, len(paid))
	for id := range paid {
		balance[id] = paid[id].Sub(share[id])
	}

	instructions := reduceBalances(balance)

	settled, err := s.IsMonthSettled(householdID, monthKey)
	if err != nil {
		return nil, err
	}

	return &ReconciliationResult{
		MonthKey:     monthKey,
		Currency:     household.SettlementCurrency,
		Paid:         paid,
		Share:        share,
		Balance:      balance,
		Instructions: instructions,
		Settled:      settled,
		Message:      s.settlementMessage(members, instructions),
	}, nil
}

// allocate turns fractional shares into concrete 2dp amounts. The last
// member in sorted order absorbs the rounding remainder so the amounts
// sum to the transaction total exactly.
func allocate(total decimal.Decimal, fractions map[uint]decimal.Decimal) map[uint]decimal.Decimal {
	ids := make([]uint, 0, len(fractions))
	for id := range fractions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	amounts := make(map[uint]decimal.Decimal, len(ids))
	allocated := decimal.Zero
	for i, id := range ids {
		if i == len(ids)-1 {
			amounts[id] = total.Sub(allocated)
			break
		}
		amount := total.Mul(fractions[id]).Round(2)
		amounts[id] = amount
		allocated = allocated.Add(amount)
	}
	return amounts
}

// reduceBalances matches debtors against creditors greedily, largest
// first, producing a deterministic minimal-ish set of pairwise
// payments. Ties break on member id so repeated runs agree.
func reduceBalances(balance map[uint]decimal.Decimal) []models.SettlementInstruction {
	type entry struct {
		id     uint
		amount decimal.Decimal
	}
	var debtors, creditors []entry
	for id, b := range balance {
		switch {
		case b.GreaterThan(balanceEpsilon):
			creditors = append(creditors, entry{id, b})
		case b.LessThan(balanceEpsilon.Neg()):
			debtors = append(debtors, entry{id, b.Neg()})
		}
	}

	byAmountDesc := func(list []entry) func(i, j int) bool {
		return func(i, j int) bool {
			if !list[i].amount.Equal(list[j].amount) {
				return list[i].amount.GreaterThan(list[j].amount)
			}
			return list[i].id < list[j].id
		}
	}
	sort.Slice(debtors, byAmountDesc(debtors))
	sort.Slice(creditors, byAmountDesc(creditors))

	var instructions []models.SettlementInstruction
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := decimal.Min(debtors[i].amount, creditors[j].amount)
		if amount.GreaterThan(balanceEpsilon) {
			instructions = append(instructions, models.SettlementInstruction{
				DebtorID:   debtors[i].id,
				CreditorID: creditors[j].id,
				Amount:     amount.Round(2),
			})
		}
		debtors[i].amount = debtors[i].amount.Sub(amount)
		creditors[j].amount = creditors[j].amount.Sub(amount)
		if debtors[i].amount.LessThanOrEqual(balanceEpsilon) {
			i++
		}
		if creditors[j].amount.LessThanOrEqual(balanceEpsilon) {
			j++
		}
	}
	return instructions
}

// settlementMessage renders the reduced instructions as a human-readable
// summary using household display names.
func (s *reconciliationService) settlementMessage(members []models.HouseholdMember, instructions []models.SettlementInstruction) string {
	if len(instructions) == 0 {
		return "All settled, nothing owed"
	}

	names := make(map[uint]string, len(members))
	for _, m := range members {
		names[m.UserID] = memberName(&m)
	}
	name := func(id uint) string {
		if n, ok := names[id]; ok {
			return n
		}
		return fmt.Sprintf("member %d", id)
	}

	msg := fmt.Sprintf("%s owes %s $%s",
		name(instructions[0].DebtorID),
		name(instructions[0].CreditorID),
		instructions[0].Amount.StringFixed(2))
	for _, ins := range instructions[1:] {
		msg += fmt.Sprintf("; %s owes %s $%s",
			name(ins.DebtorID), name(ins.CreditorID), ins.Amount.StringFixed(2))
	}
	return msg
}

func memberName(m *models.HouseholdMember) string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	if m.User.DisplayName != "" {
		return m.User.DisplayName
	}
	return m.User.Email
}

// Settle freezes the current reconciliation result for the month.
// Fails if the month has no transactions, if a settlement already
// exists, or if any payer has since left the household. The DB unique
// index on (household_id, month_key) decides concurrent races.
func (s *reconciliationService) Settle(userID, householdID uint, monthKey string) (*models.Settlement, error) {
	if err := s.households.RequireMember(userID, householdID); err != nil {
		return nil, err
	}
	if !models.ValidMonthKey(monthKey) {
		return nil, apperrors.ErrInvalidMonthKey
	}

	var txCount int64
	if err := s.db.Model(&models.Transaction{}).
		Where("household_id = ? AND month_key = ?", householdID, monthKey).
		Count(&txCount).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if txCount == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrNoTransactions,
			fmt.Sprintf("No transactions recorded for %s", monthKey))
	}

	settled, err := s.IsMonthSettled(householdID, monthKey)
	if err != nil {
		return nil, err
	}
	if settled {
		return nil, apperrors.WithMessage(apperrors.ErrSettlementExists,
			fmt.Sprintf("%s has already been settled", monthKey))
	}

	// Conservative policy: refuse to freeze numbers that reference a
	// departed member.
	members, err := s.households.GetMembers(householdID)
	if err != nil {
		return nil, err
	}
	memberSet := make(map[uint]struct{}, len(members))
	for _, m := range members {
		memberSet[m.UserID] = struct{}{}
	}
	var payers []uint
	if err := s.db.Model(&models.Transaction{}).
		Where("household_id = ? AND month_key = ?", householdID, monthKey).
		Distinct().Pluck("paid_by_id", &payers).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for _, payer := range payers {
		if _, ok := memberSet[payer]; !ok {
			return nil, apperrors.Wrap(apperrors.ErrPayerNotMember,
				fmt.Errorf("payer %d is not a member of household %d", payer, householdID))
		}
	}

	result, err := s.calculate(householdID, monthKey)
	if err != nil {
		return nil, err
	}

	settlement := &models.Settlement{
		HouseholdID:  householdID,
		MonthKey:     monthKey,
		Instructions: result.Instructions,
		Message:      result.Message,
		SettledAt:    time.Now(),
		Amount:       decimal.Zero,
	}
	if len(result.Instructions) > 0 {
		primary := result.Instructions[0]
		settlement.Amount = primary.Amount
		settlement.DebtorID = primary.DebtorID
		settlement.CreditorID = primary.CreditorID
	}

	if err := s.db.Create(settlement).Error; err != nil {
		// A concurrent settle got there first.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.WithMessage(apperrors.ErrSettlementExists,
				fmt.Sprintf("%s has already been settled", monthKey))
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	logger.Get().Infow("month settled",
		"household_id", householdID,
		"month", monthKey,
		"amount", settlement.Amount.StringFixed(2),
	)
	return settlement, nil
}

// Unsettle deletes the month's settlement, unlocking its transactions.
// Nothing is recomputed here; the next Settle reflects whatever the
// transactions look like then.
func (s *reconciliationService) Unsettle(userID, householdID uint, monthKey string) error {
	if err := s.households.RequireMember(userID, householdID); err != nil {
		return err
	}
	if !models.ValidMonthKey(monthKey) {
		return apperrors.ErrInvalidMonthKey
	}

	// Hard delete: a soft-deleted row would still occupy the
	// (household_id, month_key) unique index and block re-settling.
	result := s.db.Unscoped().Where("household_id = ? AND month_key = ?", householdID, monthKey).
		Delete(&models.Settlement{})
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrSettlementNotFound
	}

	logger.Get().Infow("month unsettled", "household_id", householdID, "month", monthKey)
	return nil
}

// ListSettlements returns the household's settlements, newest month first.
func (s *reconciliationService) ListSettlements(userID, householdID uint) ([]models.Settlement, error) {
	if err := s.households.RequireMember(userID, householdID); err != nil {
		return nil, err
	}

	var settlements []models.Settlement
	if err := s.db.Where("household_id = ?", householdID).
		Order("month_key DESC").Find(&settlements).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return settlements, nil
}

// IsMonthSettled reports whether a settlement row exists for the
// (household, month) pair. The transaction CRUD layer consults this
// before every mutation.
func (s *reconciliationService) IsMonthSettled(householdID uint, monthKey string) (bool, error) {
	var count int64
	if err := s.db.Model(&models.Settlement{}).
		Where("household_id = ? AND month_key = ?", householdID, monthKey).
		Count(&count).Error; err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count > 0, nil
}
