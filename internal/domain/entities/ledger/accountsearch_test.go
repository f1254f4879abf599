package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAccountPatternCategories(t *testing.T) {
	q := ParseAccountPattern("INCOME")
	assert.ElementsMatch(t, []string{AcctIncome, AcctOthIncome, AcctCOGS, AcctCOGSLegacy, AcctExpense, AcctOthExpense}, q.Types)
	assert.Empty(t, q.TypePattern)
	assert.Empty(t, q.NumberPattern)

	// Keywords are case-insensitive and wildcards around them are ignored.
	assert.Equal(t, ParseAccountPattern("INCOME").Types, ParseAccountPattern("*income*").Types)

	q = ParseAccountPattern("ASSET")
	assert.ElementsMatch(t, []string{AcctBank, AcctRec, AcctOthCurrAsset, AcctFixedAsset, AcctOthAsset, AcctDeferExpense, AcctUnbilledRec}, q.Types)

	// BALANCE and BALANCESHEET are the same category: the full balance sheet.
	balance := ParseAccountPattern("BALANCE")
	assert.Len(t, balance.Types, 14)
	assert.ElementsMatch(t, balance.Types, ParseAccountPattern("BALANCESHEET").Types)

	q = ParseAccountPattern("LIABILITY")
	assert.ElementsMatch(t, []string{AcctPay, AcctCredCard, AcctOthCurrLiab, AcctLongTermLiab, AcctDeferRevenue}, q.Types)
}

func TestParseAccountPatternExactType(t *testing.T) {
	q := ParseAccountPattern("bank")
	assert.Equal(t, []string{AcctBank}, q.Types)

	q = ParseAccountPattern("OthExpense")
	assert.Equal(t, []string{AcctOthExpense}, q.Types)

	// An exact account type beats its category keyword: EQUITY and COGS name
	// both a type and a group, and the single type wins.
	assert.Equal(t, []string{AcctEquity}, ParseAccountPattern("EQUITY").Types)
	assert.Equal(t, []string{AcctCOGS}, ParseAccountPattern("COGS").Types)
	assert.Equal(t, []string{AcctExpense}, ParseAccountPattern("Expense").Types)
}

func TestParseAccountPatternTypeWildcard(t *testing.T) {
	q := ParseAccountPattern("Oth*")
	assert.Empty(t, q.Types)
	assert.Equal(t, "OTH*", q.TypePattern)
	assert.Empty(t, q.NumberPattern)
}

func TestParseAccountPatternNumbers(t *testing.T) {
	q := ParseAccountPattern("40*")
	assert.Empty(t, q.Types)
	assert.Empty(t, q.TypePattern)
	assert.Equal(t, "40*", q.NumberPattern)

	q = ParseAccountPattern("4000")
	assert.Equal(t, "4000", q.NumberPattern)

	// A bare wildcard matches every account number.
	q = ParseAccountPattern("*")
	assert.Equal(t, "*", q.NumberPattern)
}
