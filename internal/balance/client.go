// Package balance reads user balances from the remote Tab API.
package balance

import (
	"context"       // Request context
	"encoding/json" // Response decoding
	"io"            // Body limiting
	"net/http"      // HTTP client
	"net/url"       // Path escaping
	"strings"       // URL joining
	"time"          // Request timeout

	"github.com/sirupsen/logrus" // Structured logging
)

// maxBodySize bounds the response body read from the remote API
const maxBodySize = 1 << 16

// Fetcher returns the balance of a user, ok is false when it is unknown
type Fetcher interface {
	FetchBalance(ctx context.Context, userID uint, nickname string) (balance int64, ok bool)
}

// Client fetches balances with a single GET per call
type Client struct {
	httpClient *http.Client       // Underlying HTTP client
	baseURL    string             // API base URL
	apiKey     string             // Optional API token
	log        logrus.FieldLogger // Logger
}

// NewClient creates a Client. A nil httpClient uses one with the given timeout.
func NewClient(httpClient *http.Client, baseURL, apiKey string, timeout time.Duration, log logrus.FieldLogger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		log:        log,
	}
}

// balanceResponse is the body returned by the API on success
type balanceResponse struct {
	Balance *int64 `json:"balance"`
}

// FetchBalance never returns an error: any failure means the balance is unknown
func (c *Client) FetchBalance(ctx context.Context, userID uint, nickname string) (int64, bool) {
	fields := logrus.Fields{"user_id": userID, "nickname": nickname} // Common log fields
	if c.baseURL == "" {
		return 0, false // No API configured
	}
	endpoint := c.baseURL + "/users/" + url.PathEscape(nickname) + ".json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.log.WithFields(fields).WithError(err).Warn("Failed to build balance request")
		return 0, false
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Token "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.WithFields(fields).WithError(err).Warn("Balance API unreachable")
		return 0, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.WithFields(fields).WithField("status", resp.StatusCode).Warn("Balance API returned an error status")
		return 0, false
	}

	var body balanceResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&body); err != nil {
		c.log.WithFields(fields).WithError(err).Warn("Malformed balance response")
		return 0, false
	}
	if body.Balance == nil {
		c.log.WithFields(fields).Warn("Balance missing from response")
		return 0, false
	}
	return *body.Balance, true
}
