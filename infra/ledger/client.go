package ledger

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

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"

	"github.com/KlistenesLima/krt-bank-sub001/internal/core/domain/ports"
)

type Config struct {
	BaseURL              string
	RequestTimeout       time.Duration
	MaxAttempts          uint64
	RetryInitialInterval time.Duration
	BreakerFailures      uint32
	BreakerCooldown      time.Duration
}

// Client calls the account-owning ledger service over HTTP. Transient
// failures (transport errors, 5xx, 429) are retried with bounded exponential
// backoff; a circuit breaker shared across calls opens after a run of
// consecutive failures and sheds load for the cool-down window.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*ports.LedgerResult]
	logger  *slog.Logger
}

type operationRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

type operationResponse struct {
	Success    bool            `json:"success"`
	Error      string          `json:"error"`
	NewBalance decimal.Decimal `json:"newBalance"`
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	breaker := gobreaker.NewCircuitBreaker[*ports.LedgerResult](gobreaker.Settings{
		Name:    "ledger",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("ledger circuit breaker state change",
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		breaker: breaker,
		logger:  logger,
	}
}

func (c *Client) Debit(ctx context.Context, accountID string, amount decimal.Decimal, reason string) (*ports.LedgerResult, error) {
	return c.call(ctx, "debit", accountID, amount, reason)
}

func (c *Client) Credit(ctx context.Context, accountID string, amount decimal.Decimal, reason string) (*ports.LedgerResult, error) {
	return c.call(ctx, "credit", accountID, amount, reason)
}

func (c *Client) call(ctx context.Context, operation, accountID string, amount decimal.Decimal, reason string) (*ports.LedgerResult, error) {
	result, err := c.breaker.Execute(func() (*ports.LedgerResult, error) {
		return c.callWithRetry(ctx, operation, accountID, amount, reason)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("ledger %s %s: circuit open: %w", operation, accountID, err)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) callWithRetry(ctx context.Context, operation, accountID string, amount decimal.Decimal, reason string) (*ports.LedgerResult, error) {
	var result *ports.LedgerResult

	attempt := func() error {
		res, err := c.doRequest(ctx, operation, accountID, amount, reason)
		if err != nil {
			return err
		}
		result = res
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.RetryInitialInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.MaxAttempts-1), ctx)

	if err := backoff.Retry(attempt, policy); err != nil {
		return nil, fmt.Errorf("ledger %s %s: %w", operation, accountID, err)
	}
	return result, nil
}

func (c *Client) doRequest(ctx context.Context, operation, accountID string, amount decimal.Decimal, reason string) (*ports.LedgerResult, error) {
	body, err := json.Marshal(operationRequest{Amount: amount, Reason: reason})
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	url := fmt.Sprintf("%s/accounts/%s/%s", c.cfg.BaseURL, accountID, operation)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// Transport errors are retried. The ledger API has no idempotency
		// token, so a request that died after reaching the server may be
		// double-applied by the retry; see the port contract.
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("ledger responded %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		// Business declines are final: surfaced as an unsuccessful result,
		// never retried, and not counted against the breaker.
		var decline operationResponse
		if derr := json.NewDecoder(resp.Body).Decode(&decline); derr != nil || decline.Error == "" {
			decline.Error = fmt.Sprintf("ledger declined with status %d", resp.StatusCode)
		}
		return &ports.LedgerResult{Success: false, Error: decline.Error}, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var out operationResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode ledger response: %w", err))
	}

	return &ports.LedgerResult{
		Success:    out.Success,
		Error:      out.Error,
		NewBalance: out.NewBalance,
	}, nil
}
