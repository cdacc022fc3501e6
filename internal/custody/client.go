// Package custody provides the client for the external wallet-custody
// service. The service is consumed through a fixed request/response contract;
// nothing here reimplements custody internals.
package custody

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/communitylink/registrar/internal/domain/wallet"
	"github.com/communitylink/registrar/internal/errors"
)

// Client calls the wallet-custody REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Config holds custody client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// AuthResult is the outcome of exchanging an ID token for a custody session.
type AuthResult struct {
	AuthToken string `json:"auth_token"`
}

// NewClient creates a custody client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("custody base URL required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Authenticate exchanges an identity-provider ID token for a custody session
// token.
func (c *Client) Authenticate(ctx context.Context, idToken string) (AuthResult, error) {
	payload := map[string]string{"id_token": idToken}

	var response struct {
		Status string `json:"status"`
		Data   struct {
			AuthToken string `json:"auth_token"`
		} `json:"data"`
	}
	if err := c.post(ctx, "/api/v2/authenticate", "", payload, &response); err != nil {
		return AuthResult{}, errors.Upstream("custody authenticate failed", err)
	}
	if response.Data.AuthToken == "" {
		return AuthResult{}, errors.Upstream("custody authenticate returned no token", nil)
	}
	return AuthResult{AuthToken: response.Data.AuthToken}, nil
}

// ListWallets fetches the custody wallet list for the authenticated session.
// A response without a wallets field decodes to an empty list; transport and
// decode failures are reported as errors, never as an empty list.
func (c *Client) ListWallets(ctx context.Context, authToken string) ([]wallet.Wallet, error) {
	var response struct {
		Status string `json:"status"`
		Data   struct {
			Wallets []wallet.Wallet `json:"wallets"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/api/v1/wallet", authToken, &response); err != nil {
		return nil, errors.Upstream("custody wallet listing failed", err)
	}
	if response.Data.Wallets == nil {
		return []wallet.Wallet{}, nil
	}
	return response.Data.Wallets, nil
}

func (c *Client) post(ctx context.Context, path, authToken string, body, target interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, authToken, target)
}

func (c *Client) get(ctx context.Context, path, authToken string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, authToken, target)
}

func (c *Client) do(req *http.Request, authToken string, target interface{}) error {
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if target == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
