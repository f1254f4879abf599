package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgercell/ledgercell-go/internal/domain/entities/ledger"
)

func newQueryServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *HTTPClient) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, NewHTTPClient(srv.URL, "token-1", 2*time.Second, nil)
}

func TestLookupPeriodsDecodesRows(t *testing.T) {
	var gotQuery balanceQuery
	_, client := newQueryServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query/balances", r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotQuery))

		jan := 100.5
		feb := -20.0
		json.NewEncoder(w).Encode(balanceResponse{Rows: []balanceRow{
			{Account: "4000", Period: "Jan 2025", Value: &jan},
			{Account: "4000", Period: "Feb 2025", Value: &feb},
		}})
	})

	periods := []ledger.Period{
		{Month: time.January, Year: 2025},
		{Month: time.February, Year: 2025},
		{Month: time.March, Year: 2025},
	}
	matrix, err := client.LookupPeriods(context.Background(), []string{"4000"}, periods, ledger.FilterSet{Department: "Sales"})
	require.NoError(t, err)

	assert.Equal(t, []string{"4000"}, gotQuery.Accounts)
	assert.Equal(t, []string{"Jan 2025", "Feb 2025", "Mar 2025"}, gotQuery.Periods)
	assert.Equal(t, "Sales", gotQuery.Filters.Department)

	v, ok := matrix.Value("4000", periods[0])
	assert.True(t, ok)
	assert.Equal(t, 100.5, v)

	v, ok = matrix.Value("4000", periods[1])
	assert.True(t, ok)
	assert.Equal(t, -20.0, v)

	// March has no row: zero activity, not an error.
	_, ok = matrix.Value("4000", periods[2])
	assert.False(t, ok)
}

func TestLookupBalanceDelegatesToSharedQuery(t *testing.T) {
	var gotQuery balanceQuery
	_, client := newQueryServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotQuery))
		v := 321.0
		json.NewEncoder(w).Encode(balanceResponse{Rows: []balanceRow{
			{Account: "5000", Period: "Sep 2024", Value: &v},
		}})
	})

	value, err := client.LookupBalance(context.Background(), "5000", ledger.Period{Month: time.September, Year: 2024}, ledger.FilterSet{})
	require.NoError(t, err)
	assert.Equal(t, 321.0, value)
	assert.Equal(t, []string{"5000"}, gotQuery.Accounts)
	assert.Equal(t, []string{"Sep 2024"}, gotQuery.Periods)
}

func TestLookupBalanceAbsentPairIsZero(t *testing.T) {
	_, client := newQueryServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(balanceResponse{})
	})

	value, err := client.LookupBalance(context.Background(), "9999", ledger.Period{Month: time.January, Year: 2025}, ledger.FilterSet{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, value)
}

func TestLookupYearRequestsTwelvePeriods(t *testing.T) {
	var gotQuery balanceQuery
	_, client := newQueryServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotQuery))
		json.NewEncoder(w).Encode(balanceResponse{})
	})

	_, err := client.LookupYear(context.Background(), []string{"4000", "5000"}, 2025, ledger.FilterSet{})
	require.NoError(t, err)
	require.Len(t, gotQuery.Periods, 12)
	assert.Equal(t, "Jan 2025", gotQuery.Periods[0])
	assert.Equal(t, "Dec 2025", gotQuery.Periods[11])
}

func TestStatusClassification(t *testing.T) {
	cases := []struct {
		status int
		kind   ledger.FailureKind
	}{
		{http.StatusUnauthorized, ledger.FailAuth},
		{http.StatusForbidden, ledger.FailAuth},
		{http.StatusTooManyRequests, ledger.FailTransient},
		{http.StatusRequestTimeout, ledger.FailTransient},
		{http.StatusInternalServerError, ledger.FailTransient},
		{http.StatusBadGateway, ledger.FailTransient},
		{http.StatusBadRequest, ledger.FailQuery},
		{http.StatusUnprocessableEntity, ledger.FailQuery},
	}

	for _, tc := range cases {
		_, client := newQueryServer(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", tc.status)
		})
		_, err := client.LookupBalance(context.Background(), "4000", ledger.Period{Month: time.January, Year: 2025}, ledger.FilterSet{})
		require.Error(t, err, "status %d", tc.status)
		assert.Equal(t, tc.kind, ledger.FailureKindOf(err), "status %d", tc.status)
	}
}

func TestServiceErrorFieldIsQueryFailure(t *testing.T) {
	_, client := newQueryServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(balanceResponse{Error: "unknown account 4000"})
	})

	_, err := client.LookupBalance(context.Background(), "4000", ledger.Period{Month: time.January, Year: 2025}, ledger.FilterSet{})
	require.Error(t, err)
	assert.Equal(t, ledger.FailQuery, ledger.FailureKindOf(err))
	assert.Contains(t, err.Error(), "unknown account")
}

func TestMalformedRowIsQueryFailure(t *testing.T) {
	_, client := newQueryServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(balanceResponse{Rows: []balanceRow{
			{Account: "4000", Period: "Jan 2025", Value: nil},
		}})
	})

	_, err := client.LookupBalance(context.Background(), "4000", ledger.Period{Month: time.January, Year: 2025}, ledger.FilterSet{})
	require.Error(t, err)
	assert.Equal(t, ledger.FailQuery, ledger.FailureKindOf(err))
}

func TestTimeoutIsTransient(t *testing.T) {
	_, client := newQueryServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})
	client.http.Timeout = 20 * time.Millisecond

	_, err := client.LookupBalance(context.Background(), "4000", ledger.Period{Month: time.January, Year: 2025}, ledger.FilterSet{})
	require.Error(t, err)
	assert.Equal(t, ledger.FailTransient, ledger.FailureKindOf(err))
	assert.True(t, IsTimeout(err))
}

func TestBalanceMatrixSetAndValue(t *testing.T) {
	m := make(BalanceMatrix)
	p := ledger.Period{Month: time.June, Year: 2025}
	m.Set("4000", p, 12.5)

	v, ok := m.Value("4000", p)
	assert.True(t, ok)
	assert.Equal(t, 12.5, v)

	_, ok = m.Value("4000", ledger.Period{Month: time.July, Year: 2025})
	assert.False(t, ok)
	_, ok = m.Value("5000", p)
	assert.False(t, ok)
}

func TestSearchAccountsRequestAndDecode(t *testing.T) {
	var got accountQuery
	_, client := newQueryServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query/accounts", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(accountResponse{Accounts: []ledger.Account{
			{Number: "4000", Name: "Product Revenue", Type: "Income"},
			{Number: "4100", Name: "Service Revenue", Type: "Income"},
		}})
	})

	query := ledger.ParseAccountPattern("INCOME")
	accounts, err := client.SearchAccounts(context.Background(), query, ledger.FilterSet{Subsidiary: "Parent Co"})
	require.NoError(t, err)

	assert.ElementsMatch(t, query.Types, got.Types)
	assert.Equal(t, "Parent Co", got.Filters.Subsidiary)
	require.Len(t, accounts, 2)
	assert.Equal(t, "4000", accounts[0].Number)
	assert.Equal(t, "Income", accounts[0].Type)
}

func TestSearchAccountsErrorMapping(t *testing.T) {
	_, client := newQueryServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	})
	_, err := client.SearchAccounts(context.Background(), ledger.AccountQuery{NumberPattern: "40*"}, ledger.FilterSet{})
	require.Error(t, err)
	assert.Equal(t, ledger.FailAuth, ledger.FailureKindOf(err))

	_, client = newQueryServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(accountResponse{Error: "bad pattern"})
	})
	_, err = client.SearchAccounts(context.Background(), ledger.AccountQuery{NumberPattern: "40*"}, ledger.FilterSet{})
	require.Error(t, err)
	assert.Equal(t, ledger.FailQuery, ledger.FailureKindOf(err))
}
