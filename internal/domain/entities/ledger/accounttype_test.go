package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccountTypeClassification(t *testing.T) {
	assert.True(t, IsPL(AcctIncome))
	assert.True(t, IsPL(AcctCOGS))
	assert.True(t, IsPL(AcctCOGSLegacy), "both cost-of-goods-sold spellings are P&L")
	assert.False(t, IsPL(AcctBank))
	assert.False(t, IsPL(AcctNonPosting))

	assert.True(t, IsBalanceSheet(AcctBank))
	assert.True(t, IsBalanceSheet(AcctEquity))
	assert.False(t, IsBalanceSheet(AcctExpense))
	assert.False(t, IsBalanceSheet(AcctStat))
}

func TestNeedsSignFlip(t *testing.T) {
	assert.True(t, NeedsSignFlip(AcctPay))
	assert.True(t, NeedsSignFlip(AcctEquity))
	assert.True(t, NeedsSignFlip(AcctIncome))
	assert.True(t, NeedsSignFlip(AcctOthIncome))
	assert.False(t, NeedsSignFlip(AcctBank))
	assert.False(t, NeedsSignFlip(AcctExpense))
}

func TestDisplaySign(t *testing.T) {
	// Matching contra accounts invert once more than their counterpart.
	assert.Equal(t, 1.0, DisplaySign(AcctOthExpense, "UnrERV"))
	assert.Equal(t, -1.0, DisplaySign(AcctOthExpense, "MatchingUnrERV"))
	assert.Equal(t, -1.0, DisplaySign(AcctIncome, ""))
	assert.Equal(t, 1.0, DisplaySign(AcctIncome, "MatchingRevalue"))
	assert.Equal(t, 1.0, DisplaySign(AcctBank, ""))

	assert.True(t, IsMatchingSpecial("MatchingUnrERV"))
	assert.False(t, IsMatchingSpecial("UnrERV"))
	assert.False(t, IsMatchingSpecial(""))
}
