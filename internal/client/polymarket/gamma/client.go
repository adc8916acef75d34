package gamma

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultMaxRetries   = 3
	defaultRetryBackoff = time.Second
)

type Client struct {
	host         string
	httpClient   *http.Client
	maxRetries   int
	retryBackoff time.Duration
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Body)
}

// FetchError is the terminal failure for one fetch: every attempt failed.
// Callers skip the cycle and try again at the next tick.
type FetchError struct {
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func NewClient(httpClient *http.Client, host string) *Client {
	return NewClientWithRetry(httpClient, host, defaultMaxRetries, defaultRetryBackoff)
}

func NewClientWithRetry(httpClient *http.Client, host string, maxRetries int, retryBackoff time.Duration) *Client {
	if host == "" {
		host = "https://gamma-api.polymarket.com"
	}
	host = strings.TrimRight(host, "/")
	if maxRetries < 1 {
		maxRetries = defaultMaxRetries
	}
	if retryBackoff <= 0 {
		retryBackoff = defaultRetryBackoff
	}
	return &Client{
		host:         host,
		httpClient:   httpClient,
		maxRetries:   maxRetries,
		retryBackoff: retryBackoff,
	}
}

type GetMarketsParams struct {
	Limit  int
	Offset int
	Active *bool
}

// GetMarkets performs one bounded listing fetch. Transient failures (connection
// errors, timeouts, non-2xx statuses) are retried with exponential backoff;
// exhausting the attempts yields a *FetchError.
func (c *Client) GetMarkets(ctx context.Context, params *GetMarketsParams) ([]Market, error) {
	query := url.Values{}
	if params != nil {
		if params.Limit > 0 {
			query.Set("limit", strconv.Itoa(params.Limit))
		}
		if params.Offset > 0 {
			query.Set("offset", strconv.Itoa(params.Offset))
		}
		if params.Active != nil {
			query.Set("active", strconv.FormatBool(*params.Active))
		}
	}
	body, err := c.doRequestWithRetry(ctx, "/markets", query)
	if err != nil {
		return nil, err
	}
	return parseMarkets(body)
}

func (c *Client) GetMarketByID(ctx context.Context, marketID string) (*Market, error) {
	if marketID == "" {
		return nil, fmt.Errorf("market_id is required")
	}
	body, err := c.doRequestWithRetry(ctx, "/markets/"+url.PathEscape(marketID), nil)
	if err != nil {
		return nil, err
	}
	return parseMarket(body)
}

func (c *Client) doRequestWithRetry(ctx context.Context, path string, query url.Values) ([]byte, error) {
	var lastErr error
	backoff := c.retryBackoff
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		body, err := c.doRequest(ctx, path, query)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, &FetchError{Attempts: attempt, Err: lastErr}
		}
		if attempt == c.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, &FetchError{Attempts: attempt, Err: lastErr}
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, &FetchError{Attempts: c.maxRetries, Err: lastErr}
}

func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.host + path
	if len(query) > 0 {
		fullURL = fullURL + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
