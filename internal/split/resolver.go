// Package split resolves each household member's fractional share of a
// transaction from its split category and the household's split rules.
package split

import (
	"fmt"

	"github.com/shopspring/decimal"

	apperrors "homeledger/internal/errors"
	"homeledger/internal/models"
)

var one = decimal.NewFromInt(1)

// ResolveShares returns each member's fraction of the transaction,
// keyed by user id. Fractions sum to exactly 1.
//
// Personal transactions return an empty map: they are outside
// reconciliation entirely (the engine credits the owner's paid and share
// totals symmetrically), not a 0/0 split.
//
// Rules are validated at creation time; a malformed rule encountered
// here indicates upstream data corruption and errors loudly rather than
// being clamped.
func ResolveShares(tx *models.Transaction, rules []models.SplitRule, memberIDs []uint) (map[uint]decimal.Decimal, error) {
	switch tx.SplitCategory {
	case models.SplitPersonal:
		return map[uint]decimal.Decimal{}, nil

	case models.SplitCovered:
		if tx.SplitMemberID == nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "covered transaction has no designated member")
		}
		return map[uint]decimal.Decimal{*tx.SplitMemberID: one}, nil

	case models.SplitShared:
		if rule := matchRule(tx, rules); rule != nil {
			return ruleShares(rule)
		}
		return equalShares(memberIDs)

	default:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput,
			fmt.Sprintf("unknown split category %q", tx.SplitCategory))
	}
}

// matchRule picks the rule for the transaction's expense type, falling
// back to the household default. Returns nil when neither exists.
func matchRule(tx *models.Transaction, rules []models.SplitRule) *models.SplitRule {
	var def *models.SplitRule
	for i := range rules {
		rule := &rules[i]
		if rule.IsDefault() {
			def = rule
			continue
		}
		if tx.ExpenseTypeID != nil && *rule.ExpenseTypeID == *tx.ExpenseTypeID {
			return rule
		}
	}
	return def
}

func ruleShares(rule *models.SplitRule) (map[uint]decimal.Decimal, error) {
	if !rule.SharesValid() {
		return nil, apperrors.Wrap(apperrors.ErrInvalidShareSum,
			fmt.Errorf("split rule %d has shares %d/%d", rule.ID, rule.ShareA, rule.ShareB))
	}
	hundred := decimal.NewFromInt(100)
	shares := map[uint]decimal.Decimal{
		rule.MemberAID: decimal.NewFromInt(int64(rule.ShareA)).Div(hundred),
	}
	// Same-member rules collapse onto one key; accumulate rather than
	// overwrite so the fractions still sum to 1.
	shares[rule.MemberBID] = shares[rule.MemberBID].Add(decimal.NewFromInt(int64(rule.ShareB)).Div(hundred))
	return shares, nil
}

// equalShares is the no-rule fallback: an even split across all members.
func equalShares(memberIDs []uint) (map[uint]decimal.Decimal, error) {
	if len(memberIDs) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "household has no members to split between")
	}
	fraction := one.Div(decimal.NewFromInt(int64(len(memberIDs))))
	shares := make(map[uint]decimal.Decimal, len(memberIDs))
	for _, id := range memberIDs {
		shares[id] = fraction
	}
	return shares, nil
}
