// Package chain provides Aptos fullnode interaction for on-chain community
// registration.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Client provides Aptos fullnode REST client functionality.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Config holds client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// NewClient creates a new Aptos fullnode client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("fullnode URL required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Account describes the on-chain account state the submitter needs.
type Account struct {
	SequenceNumber    uint64
	AuthenticationKey string
}

// GetAccount returns account state for the given address.
func (c *Client) GetAccount(ctx context.Context, address string) (*Account, error) {
	body, err := c.get(ctx, "/v1/accounts/"+address)
	if err != nil {
		return nil, err
	}

	result := gjson.ParseBytes(body)
	return &Account{
		SequenceNumber:    result.Get("sequence_number").Uint(),
		AuthenticationKey: result.Get("authentication_key").String(),
	}, nil
}

// EncodeSubmission asks the node for the signing message of a transaction.
func (c *Client) EncodeSubmission(ctx context.Context, tx *TransactionRequest) (string, error) {
	body, err := c.post(ctx, "/v1/transactions/encode_submission", tx)
	if err != nil {
		return "", err
	}

	var signingMessage string
	if err := json.Unmarshal(body, &signingMessage); err != nil {
		return "", fmt.Errorf("decode signing message: %w", err)
	}
	return signingMessage, nil
}

// SubmitTransaction broadcasts a signed transaction and returns the pending
// transaction hash.
func (c *Client) SubmitTransaction(ctx context.Context, tx *SignedTransaction) (string, error) {
	body, err := c.post(ctx, "/v1/transactions", tx)
	if err != nil {
		return "", err
	}

	hash := gjson.GetBytes(body, "hash").String()
	if hash == "" {
		return "", fmt.Errorf("submit response missing transaction hash")
	}
	return hash, nil
}

// TransactionStatus is the observed state of a submitted transaction.
type TransactionStatus struct {
	Pending  bool
	Success  bool
	VMStatus string
}

// GetTransactionByHash fetches the current status of a transaction.
func (c *Client) GetTransactionByHash(ctx context.Context, hash string) (*TransactionStatus, error) {
	body, err := c.get(ctx, "/v1/transactions/by_hash/"+hash)
	if err != nil {
		return nil, err
	}

	result := gjson.ParseBytes(body)
	return &TransactionStatus{
		Pending:  result.Get("type").String() == "pending_transaction",
		Success:  result.Get("success").Bool(),
		VMStatus: result.Get("vm_status").String(),
	}, nil
}

// DefaultPollInterval is the default interval for polling transaction status.
const DefaultPollInterval = 2 * time.Second

// WaitForTransaction polls a transaction until it leaves the pending state or
// the context is done.
func (c *Client) WaitForTransaction(ctx context.Context, hash string, pollInterval time.Duration) (*TransactionStatus, error) {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			status, err := c.GetTransactionByHash(ctx, hash)
			if err != nil {
				return nil, err
			}
			if status.Pending {
				continue
			}
			return status, nil
		}
	}
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.do(req)
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		message := gjson.GetBytes(respBody, "message").String()
		if message == "" {
			message = strings.TrimSpace(string(respBody))
		}
		return nil, fmt.Errorf("node returned status %d: %s", resp.StatusCode, message)
	}
	return respBody, nil
}
