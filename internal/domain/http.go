package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"luna/internal/action"
	"luna/internal/logging"
)

// HTTPClient executes actions against a remote domain API. Transient
// failures (network errors, 5xx) are retried with exponential backoff;
// 4xx responses are not, since repeating a rejected request cannot help.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client

	// Retry policy.
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// NewHTTPClient builds a client for the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: 3,
		baseDelay:  500 * time.Millisecond,
		maxDelay:   5 * time.Second,
	}
}

type executeRequest struct {
	ActionType string         `json:"action_type"`
	Fields     []action.Field `json:"fields"`
}

// Execute implements API.
func (c *HTTPClient) Execute(ctx context.Context, t action.Type, fields []action.Field) (Result, error) {
	log := logging.Get(logging.CategoryDomain)

	body, err := json.Marshal(executeRequest{ActionType: string(t), Fields: fields})
	if err != nil {
		return Result{}, fmt.Errorf("domain: encode request: %w", err)
	}

	var lastErr error
	delay := c.baseDelay
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			log.Debugw("retrying domain call", "attempt", attempt, "action", t, "delay", delay)
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		result, retryable, err := c.post(ctx, body)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return Result{}, fmt.Errorf("domain: execute %s: %w", t, lastErr)
}

func (c *HTTPClient) post(ctx context.Context, body []byte) (Result, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/actions/execute", bytes.NewReader(body))
	if err != nil {
		return Result{}, false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, true, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, true, err
	}

	switch {
	case resp.StatusCode >= 500:
		return Result{}, true, fmt.Errorf("server error %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	case resp.StatusCode >= 400:
		return Result{}, false, fmt.Errorf("rejected %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, false, fmt.Errorf("decode response: %w", err)
	}
	return result, false, nil
}
