package empire

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"empire_bot/internal/domain"
	"empire_bot/internal/infra"
)

const (
	maxAttempts    = 3
	requestTimeout = 15 * time.Second
)

// Client is the marketplace REST client of one account.
type Client struct {
	acc        *domain.Account
	baseURL    string
	httpClient *http.Client
	auth       *Auth
	logger     *slog.Logger
	retryDelay time.Duration
}

// NewClient creates a client for acc. An empty baseURL uses the account origin.
func NewClient(acc *domain.Account, baseURL string) *Client {
	if baseURL == "" {
		baseURL = acc.APIBase()
	}
	return &Client{
		acc:     acc,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		auth:       NewAuth(acc),
		logger:     slog.Default().With("module", "empire_client", "user_id", acc.UserID),
		retryDelay: time.Second,
	}
}

var _ domain.MarketplaceClient = (*Client)(nil)

// FetchDeposits returns the account's in-flight deposits.
func (c *Client) FetchDeposits(ctx context.Context) ([]domain.Deposit, error) {
	var resp tradesResponse
	err := c.get(ctx, "fetchDeposits", "/api/v2/trade/trades", &resp)
	infra.RecordRequest("fetchDeposits", err)
	if err != nil {
		return nil, err
	}

	deposits := make([]domain.Deposit, 0, len(resp.Data.Deposits))
	for _, d := range resp.Data.Deposits {
		deposits = append(deposits, domain.Deposit{ID: d.ID, TotalValue: d.TotalValue})
	}
	return deposits, nil
}

// RequestMeta returns the values needed for the socket identify handshake.
func (c *Client) RequestMeta(ctx context.Context) (*domain.Meta, error) {
	var resp metaResponse
	err := c.get(ctx, "requestMeta", "/api/v2/metadata", &resp)
	if err == nil && resp.SocketToken == "" {
		err = &domain.RequestError{Op: "requestMeta", Status: http.StatusOK, Err: errors.New("missing socket token")}
	}
	infra.RecordRequest("requestMeta", err)
	if err != nil {
		return nil, err
	}

	var user metaUser
	if len(resp.User) > 0 {
		if err := json.Unmarshal(resp.User, &user); err != nil {
			return nil, &domain.RequestError{Op: "requestMeta", Status: http.StatusOK, Err: fmt.Errorf("decode user: %w", err)}
		}
	}

	return &domain.Meta{
		UserID:          user.ID,
		User:            resp.User,
		SocketToken:     resp.SocketToken,
		SocketSignature: resp.SocketSignature,
	}, nil
}

// RequestSecurityToken asks for a short-lived security token.
// It returns domain.ErrMissingSecurityToken when the marketplace answers without one.
func (c *Client) RequestSecurityToken(ctx context.Context) (string, error) {
	var resp securityTokenResponse
	err := c.call(ctx, "requestSecurityToken", http.MethodPost, "/api/v2/user/security/token", c.auth.SecurityTokenBody(), true, &resp)
	if err == nil && (resp.rejected() || resp.Token == "") {
		err = domain.ErrMissingSecurityToken
	}
	infra.RecordRequest("requestSecurityToken", err)
	if err != nil {
		return "", err
	}
	return resp.Token, nil
}

// DelistDeposit cancels a deposit.
func (c *Client) DelistDeposit(ctx context.Context, id domain.DepositID) error {
	err := c.post(ctx, "delistDeposit", "/api/v2/trade/steam/deposit/cancel", map[string]any{"id": int64(id)})
	infra.RecordRequest("delistDeposit", err)
	return err
}

// ConfirmDeposit confirms a deposit that is waiting for the seller.
func (c *Client) ConfirmDeposit(ctx context.Context, id domain.DepositID) error {
	err := c.post(ctx, "confirmDeposit", "/api/v2/p2p/afk-confirm", map[string]any{"id": int64(id)})
	infra.RecordRequest("confirmDeposit", err)
	return err
}

// ApplySelfLock locks the account for periodHours.
func (c *Client) ApplySelfLock(ctx context.Context, periodHours int, token string) error {
	err := c.post(ctx, "applySelfLock", "/api/v2/user/self-lock", map[string]any{
		"period":         periodHours,
		"security_token": token,
	})
	infra.RecordRequest("applySelfLock", err)
	return err
}

// FetchUserInventory returns the account's CS2 inventory as the marketplace sees it.
func (c *Client) FetchUserInventory(ctx context.Context) ([]domain.InventoryItem, error) {
	var resp inventoryResponse
	err := c.get(ctx, "fetchUserInventory", "/api/v2/inventory/user?app=730", &resp)
	infra.RecordRequest("fetchUserInventory", err)
	if err != nil {
		return nil, err
	}

	items := make([]domain.InventoryItem, 0, len(resp.Data))
	for _, it := range resp.Data {
		assetID := it.AssetID
		if assetID == 0 {
			assetID = it.ID
		}
		items = append(items, domain.InventoryItem{
			AssetID:     assetID,
			MarketName:  it.MarketName,
			MarketValue: it.MarketValue,
			Tradable:    it.Tradable,
		})
	}
	return items, nil
}

// get issues an idempotent GET, retrying retriable failures with backoff.
func (c *Client) get(ctx context.Context, op, path string, out any) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			delay := c.retryDelay * time.Duration(1<<uint(i-1))
			c.logger.Info("Retrying request", slog.String("op", op), slog.Int("attempt", i), slog.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := c.call(ctx, op, http.MethodGet, path, nil, false, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !domain.IsRetriable(err) {
			break
		}
		c.logger.Warn("Request attempt failed", slog.String("op", op), slog.Int("attempt", i+1), slog.Any("error", err))
	}
	return lastErr
}

// post issues a state-changing call once and checks the success flag.
func (c *Client) post(ctx context.Context, op, path string, body any) error {
	var resp apiResponse
	if err := c.call(ctx, op, http.MethodPost, path, body, false, &resp); err != nil {
		return err
	}
	if resp.rejected() {
		return &domain.RequestError{Op: op, Status: http.StatusOK, Body: resp.Message, Err: domain.ErrRejected}
	}
	return nil
}

func (c *Client) call(ctx context.Context, op, method, path string, body any, withDevice bool, out any) error {
	resp, err := c.doRequest(ctx, method, path, body, withDevice)
	if err != nil {
		return &domain.RequestError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.RequestError{Op: op, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return &domain.RequestError{Op: op, Status: resp.StatusCode, Body: truncate(string(bodyBytes), 256)}
	}

	if out == nil || len(bodyBytes) == 0 {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return &domain.RequestError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	return nil
}

// doRequest handles auth headers and serialization
func (c *Client) doRequest(ctx context.Context, method, path string, body any, withDevice bool) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(jsonBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	for k, v := range c.auth.GenerateHeaders(withDevice) {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
