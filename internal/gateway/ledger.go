package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// 账户网关错误
var (
	ErrRequestFailed   = errors.New("ledger request failed")
	ErrResponseInvalid = errors.New("ledger response invalid")
)

// AccountStatus 账户校验结果
type AccountStatus struct {
	AccountID string `json:"account_id"`
	Exists    bool   `json:"exists"`
	Active    bool   `json:"active"`
}

// Ledger 账户网关接口：账户校验与余额查询
type Ledger interface {
	ValidateAccount(ctx context.Context, accountID string) (*AccountStatus, error)
	CheckBalance(ctx context.Context, accountID string) (decimal.Decimal, error)
}

// HTTPLedger 账户网关 HTTP 客户端
type HTTPLedger struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPLedger 创建账户网关客户端
func NewHTTPLedger(baseURL string, timeout time.Duration) *HTTPLedger {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPLedger{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ValidateAccount 校验账户是否存在且可用
func (l *HTTPLedger) ValidateAccount(ctx context.Context, accountID string) (*AccountStatus, error) {
	endpoint := fmt.Sprintf("%s/accounts/%s", l.baseURL, url.PathEscape(accountID))
	body, status, err := l.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return &AccountStatus{AccountID: accountID, Exists: false}, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrResponseInvalid, status)
	}
	var resp struct {
		AccountID string `json:"account_id"`
		Status    string `json:"status"`
		Active    bool   `json:"active"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	active := resp.Active || strings.EqualFold(strings.TrimSpace(resp.Status), "active")
	return &AccountStatus{AccountID: accountID, Exists: true, Active: active}, nil
}

// CheckBalance 查询账户可用余额
func (l *HTTPLedger) CheckBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/accounts/%s/balance", l.baseURL, url.PathEscape(accountID))
	body, status, err := l.get(ctx, endpoint)
	if err != nil {
		return decimal.Zero, err
	}
	if status != http.StatusOK {
		return decimal.Zero, fmt.Errorf("%w: status %d", ErrResponseInvalid, status)
	}
	var resp struct {
		AccountID string `json:"account_id"`
		Balance   string `json:"balance"`
		Currency  string `json:"currency"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	balance, err := decimal.NewFromString(strings.TrimSpace(resp.Balance))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: balance %q", ErrResponseInvalid, resp.Balance)
	}
	return balance, nil
}

func (l *HTTPLedger) get(ctx context.Context, endpoint string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	return body, resp.StatusCode, nil
}
