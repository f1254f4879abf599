package ledger

import "strings"

// Account type values exactly as returned by the ledger service. The service
// requires exact spellings; near-miss values are silently excluded from queries,
// so these constants are the only place the strings may appear.
const (
	// Balance sheet assets (debit balance, no sign flip)
	AcctBank         = "Bank"
	AcctRec          = "AcctRec"
	AcctOthCurrAsset = "OthCurrAsset"
	AcctFixedAsset   = "FixedAsset"
	AcctOthAsset     = "OthAsset"
	AcctDeferExpense = "DeferExpense"
	AcctUnbilledRec  = "UnbilledRec"

	// Balance sheet liabilities (credit balance, sign flipped for display)
	AcctPay          = "AcctPay"
	AcctCredCard     = "CredCard"
	AcctOthCurrLiab  = "OthCurrLiab"
	AcctLongTermLiab = "LongTermLiab"
	AcctDeferRevenue = "DeferRevenue"

	// Balance sheet equity (credit balance, sign flipped for display)
	AcctEquity           = "Equity"
	AcctRetainedEarnings = "RetainedEarnings"

	// P&L income (credit balance, sign flipped for reporting)
	AcctIncome    = "Income"
	AcctOthIncome = "OthIncome"

	// P&L expenses. The service uses BOTH spellings of cost of goods sold in
	// different contexts; queries must include both.
	AcctCOGS       = "COGS"
	AcctCOGSLegacy = "Cost of Goods Sold"
	AcctExpense    = "Expense"
	AcctOthExpense = "OthExpense"

	// Excluded from financial queries
	AcctNonPosting = "NonPosting"
	AcctStat       = "Stat"
)

// PLTypes are the income-statement account types.
var PLTypes = map[string]bool{
	AcctIncome:     true,
	AcctOthIncome:  true,
	AcctCOGS:       true,
	AcctCOGSLegacy: true,
	AcctExpense:    true,
	AcctOthExpense: true,
}

// SignFlipTypes are stored as negative credits and flipped for reporting.
var SignFlipTypes = map[string]bool{
	AcctPay:              true,
	AcctCredCard:         true,
	AcctOthCurrLiab:      true,
	AcctLongTermLiab:     true,
	AcctDeferRevenue:     true,
	AcctEquity:           true,
	AcctRetainedEarnings: true,
}

// IncomeTypes need the P&L revenue sign flip.
var IncomeTypes = map[string]bool{
	AcctIncome:    true,
	AcctOthIncome: true,
}

// NonFinancialTypes carry no transaction amounts and are excluded.
var NonFinancialTypes = map[string]bool{
	AcctNonPosting: true,
	AcctStat:       true,
}

// IsPL reports whether an account type belongs to the income statement.
func IsPL(acctType string) bool { return PLTypes[acctType] }

// IsBalanceSheet reports whether an account type belongs to the balance sheet.
func IsBalanceSheet(acctType string) bool {
	return !PLTypes[acctType] && !NonFinancialTypes[acctType]
}

// NeedsSignFlip reports whether reported amounts for the type are inverted.
// Credit-balance accounts and revenue both display positive.
func NeedsSignFlip(acctType string) bool {
	return SignFlipTypes[acctType] || IncomeTypes[acctType]
}

// IsMatchingSpecial reports whether a special-account designation marks a
// contra account for currency revaluation. Matching accounts share an
// account type with their counterpart and carry one extra inversion, so the
// type alone cannot decide the display sign.
func IsMatchingSpecial(specialAccount string) bool {
	return strings.HasPrefix(specialAccount, "Matching")
}

// DisplaySign combines the type flip and the Matching-contra flip into a
// single multiplier for raw ledger values.
func DisplaySign(acctType, specialAccount string) float64 {
	sign := 1.0
	if NeedsSignFlip(acctType) {
		sign = -sign
	}
	if IsMatchingSpecial(specialAccount) {
		sign = -sign
	}
	return sign
}
