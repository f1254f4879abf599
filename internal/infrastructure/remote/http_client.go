package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/ledgercell/ledgercell-go/internal/domain/entities/ledger"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/observability/logging"
)

// HTTPClient talks to the balance-resolution service over its JSON API.
// All three lookup shapes funnel through one query endpoint; only the
// period-set argument varies.
type HTTPClient struct {
	baseURL   string
	authToken string
	http      *http.Client
	logger    *logging.ChanneledLogger
}

// NewHTTPClient creates a client for the service at baseURL. timeout bounds
// each call; a call that exceeds it is reported as a transient failure, never
// defaulted to zero.
func NewHTTPClient(baseURL, authToken string, timeout time.Duration, logger *logging.ChanneledLogger) *HTTPClient {
	return &HTTPClient{
		baseURL:   baseURL,
		authToken: authToken,
		http:      &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

// balanceQuery is the wire request for the service's balance endpoint.
type balanceQuery struct {
	Accounts []string         `json:"accounts"`
	Periods  []string         `json:"periods"`
	Filters  ledger.FilterSet `json:"filters"`
}

// balanceRow is one (account, period, value) triple in the response. Rows are
// only present for pairs with activity.
type balanceRow struct {
	Account string   `json:"account"`
	Period  string   `json:"period"`
	Value   *float64 `json:"value"`
}

type balanceResponse struct {
	Rows  []balanceRow `json:"rows"`
	Error string       `json:"error,omitempty"`
}

// LookupBalance resolves a single pair through the shared query path.
func (c *HTTPClient) LookupBalance(ctx context.Context, account string, period ledger.Period, filters ledger.FilterSet) (float64, error) {
	matrix, err := c.LookupPeriods(ctx, []string{account}, []ledger.Period{period}, filters)
	if err != nil {
		return 0, err
	}
	v, _ := matrix.Value(account, period)
	return v, nil
}

// LookupYear resolves a whole reporting year through the shared query path.
func (c *HTTPClient) LookupYear(ctx context.Context, accounts []string, year int, filters ledger.FilterSet) (BalanceMatrix, error) {
	return c.LookupPeriods(ctx, accounts, ledger.Period{Month: 1, Year: year}.ReportingYear(), filters)
}

// LookupPeriods issues the underlying query. Every failure is classified per
// the error taxonomy before it reaches the scheduler.
func (c *HTTPClient) LookupPeriods(ctx context.Context, accounts []string, periods []ledger.Period, filters ledger.FilterSet) (BalanceMatrix, error) {
	names := make([]string, 0, len(periods))
	for _, p := range periods {
		names = append(names, p.String())
	}

	body, err := json.Marshal(balanceQuery{Accounts: accounts, Periods: names, Filters: filters})
	if err != nil {
		return nil, ledger.NewFailure(ledger.FailQuery, fmt.Errorf("encoding query: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query/balances", bytes.NewReader(body))
	if err != nil {
		return nil, ledger.NewFailure(ledger.FailQuery, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Timeouts and transport errors are retryable by contract.
		return nil, ledger.NewFailure(ledger.FailTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ledger.NewFailure(ledger.FailTransient, fmt.Errorf("reading response: %w", err))
	}

	var parsed balanceResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		// A malformed value shape is a query failure, not zero.
		return nil, ledger.NewFailure(ledger.FailQuery, fmt.Errorf("decoding response: %w", err))
	}
	if parsed.Error != "" {
		return nil, ledger.NewFailure(ledger.FailQuery, errors.New(parsed.Error))
	}

	matrix := make(BalanceMatrix, len(accounts))
	for _, row := range parsed.Rows {
		if row.Value == nil {
			return nil, ledger.NewFailure(ledger.FailQuery, fmt.Errorf("row for %s %s has no value", row.Account, row.Period))
		}
		p, err := ledger.ParsePeriod(row.Period)
		if err != nil {
			return nil, ledger.NewFailure(ledger.FailQuery, err)
		}
		matrix.Set(row.Account, p, *row.Value)
	}
	return matrix, nil
}

// accountQuery is the wire request for the service's account search.
type accountQuery struct {
	ledger.AccountQuery
	Filters ledger.FilterSet `json:"filters"`
}

type accountResponse struct {
	Accounts []ledger.Account `json:"accounts"`
	Error    string           `json:"error,omitempty"`
}

// SearchAccounts queries the chart of accounts. The service filters inactive
// accounts on its side and orders results by account number.
func (c *HTTPClient) SearchAccounts(ctx context.Context, query ledger.AccountQuery, filters ledger.FilterSet) ([]ledger.Account, error) {
	body, err := json.Marshal(accountQuery{AccountQuery: query, Filters: filters})
	if err != nil {
		return nil, ledger.NewFailure(ledger.FailQuery, fmt.Errorf("encoding query: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query/accounts", bytes.NewReader(body))
	if err != nil {
		return nil, ledger.NewFailure(ledger.FailQuery, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, ledger.NewFailure(ledger.FailTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp)
	}

	var parsed accountResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, ledger.NewFailure(ledger.FailQuery, fmt.Errorf("decoding response: %w", err))
	}
	if parsed.Error != "" {
		return nil, ledger.NewFailure(ledger.FailQuery, errors.New(parsed.Error))
	}
	return parsed.Accounts, nil
}

// classifyStatus maps HTTP status codes onto the failure taxonomy.
func classifyStatus(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	base := fmt.Errorf("service returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ledger.NewFailure(ledger.FailAuth, base)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode >= 500:
		return ledger.NewFailure(ledger.FailTransient, base)
	default:
		return ledger.NewFailure(ledger.FailQuery, base)
	}
}

// IsTimeout reports whether an error chain contains a deadline or timeout,
// useful for logging decisions.
func IsTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded)
}
