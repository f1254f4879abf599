package ledger

import (
	"strings"
	"unicode"
)

// Account is one chart-of-accounts entry as the ledger service reports it.
type Account struct {
	Number         string `json:"number"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	SpecialAccount string `json:"specialAccount,omitempty"`
	Parent         string `json:"parent,omitempty"`
}

// AccountQuery is a parsed search pattern, ready for the ledger service.
// Exactly one of the three selectors is populated.
type AccountQuery struct {
	Types         []string `json:"types,omitempty"`         // exact account types
	TypePattern   string   `json:"typePattern,omitempty"`   // wildcard match on the type
	NumberPattern string   `json:"numberPattern,omitempty"` // wildcard match on the account number
}

// SearchCategories maps category keywords onto account-type groups. INCOME
// covers the whole income statement, expenses included, because the host's
// income view lists every P&L line.
var SearchCategories = map[string][]string{
	"INCOME": {AcctIncome, AcctOthIncome, AcctCOGS, AcctCOGSLegacy, AcctExpense, AcctOthExpense},
	"BALANCE": {AcctBank, AcctRec, AcctOthCurrAsset, AcctFixedAsset, AcctOthAsset, AcctDeferExpense, AcctUnbilledRec,
		AcctPay, AcctCredCard, AcctOthCurrLiab, AcctLongTermLiab, AcctDeferRevenue,
		AcctEquity, AcctRetainedEarnings},
	"EXPENSE":   {AcctExpense, AcctOthExpense},
	"COGS":      {AcctCOGS, AcctCOGSLegacy},
	"ASSET":     {AcctBank, AcctRec, AcctOthCurrAsset, AcctFixedAsset, AcctOthAsset, AcctDeferExpense, AcctUnbilledRec},
	"LIABILITY": {AcctPay, AcctCredCard, AcctOthCurrLiab, AcctLongTermLiab, AcctDeferRevenue},
	"EQUITY":    {AcctEquity, AcctRetainedEarnings},
}

// searchableTypes is every type reachable through a category, used for the
// exact-type match.
var searchableTypes = func() []string {
	seen := make(map[string]bool)
	var out []string
	for _, group := range SearchCategories {
		for _, t := range group {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}()

// ParseAccountPattern turns a raw host pattern into an AccountQuery. A
// pattern with any letter searches account types: an exact type name wins,
// then a category keyword, then a wildcard match on the type. Anything else
// searches account numbers. Wildcards are `*`.
func ParseAccountPattern(pattern string) AccountQuery {
	stripped := strings.TrimSpace(strings.ReplaceAll(pattern, "*", ""))
	if stripped == "" || !containsLetter(stripped) {
		return AccountQuery{NumberPattern: strings.TrimSpace(pattern)}
	}

	upper := strings.ToUpper(stripped)
	for _, t := range searchableTypes {
		if strings.ToUpper(t) == upper {
			return AccountQuery{Types: []string{t}}
		}
	}
	// BALANCESHEET is an accepted spelling of the BALANCE category.
	if upper == "BALANCESHEET" {
		upper = "BALANCE"
	}
	if group, ok := SearchCategories[upper]; ok {
		return AccountQuery{Types: group}
	}
	return AccountQuery{TypePattern: strings.ToUpper(strings.TrimSpace(pattern))}
}

func containsLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
