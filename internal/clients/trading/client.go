// Package trading provides the client for the trading backend REST API.
//
// Every outbound call passes through here: the current access credential
// is attached as a bearer header, and a 401 response triggers a
// single-flight token refresh shared by all concurrent callers, after
// which the failing request is replayed exactly once with the new token.
package trading

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/papertrade/internal/common"
	"github.com/bobmcallan/papertrade/internal/interfaces"
	"github.com/bobmcallan/papertrade/internal/models"
)

const (
	DefaultBaseURL   = "http://127.0.0.1:8000"
	DefaultTimeout   = 5 * time.Second
	DefaultRateLimit = 10 // requests per second

	loginPath   = "/api/users/login/"
	refreshPath = "/api/users/login/refresh/"
)

// Client implements the TradingClient interface
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	creds      interfaces.CredentialStore

	// refreshGroup collapses concurrent refresh attempts into one
	// in-flight call whose outcome every waiter shares.
	refreshGroup singleflight.Group
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new trading backend client. The credential store
// supplies the bearer token on every request; the client writes it only
// on a successful refresh (new access token) and on a failed refresh
// (both credentials cleared).
func NewClient(creds interfaces.CredentialStore, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		creds:   creds,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents a backend error response
type APIError struct {
	StatusCode int
	Detail     string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("trading API error: %s (status: %d, endpoint: %s)", e.Detail, e.StatusCode, e.Endpoint)
}

// do performs one authenticated request, refreshing the access token and
// replaying once on a 401.
func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	return c.doRetry(ctx, method, path, body, result, false)
}

func (c *Client) doRetry(ctx context.Context, method, path string, body, result interface{}, retried bool) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	if token, err := c.creds.Get(ctx, interfaces.CredentialAccessToken); err == nil && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.Debug().Str("method", method).Str("url", path).Bool("retry", retried).Msg("trading API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if result == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}

	respBody, _ := io.ReadAll(resp.Body)

	// 401 on an authenticated endpoint: run the refresh protocol and
	// replay, unless this call was already replayed once or the failing
	// endpoint is the auth surface itself.
	if resp.StatusCode == http.StatusUnauthorized && !retried && path != refreshPath && path != loginPath {
		if _, err := c.refreshAccessToken(ctx); err != nil {
			return err
		}
		return c.doRetry(ctx, method, path, body, result, true)
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Detail:     parseDetail(respBody),
		Endpoint:   path,
	}
}

// refreshAccessToken exchanges the stored refresh token for a new access
// token. Concurrent callers share one in-flight exchange; on failure both
// stored credentials are cleared and every waiter receives the error.
func (c *Client) refreshAccessToken(ctx context.Context) (string, error) {
	v, err, _ := c.refreshGroup.Do("refresh", func() (interface{}, error) {
		// The exchange outcome is shared by every waiter, so it must not
		// die with the triggering caller. The HTTP client timeout still
		// bounds the detached call.
		ctx := context.WithoutCancel(ctx)

		refresh, err := c.creds.Get(ctx, interfaces.CredentialRefreshToken)
		if err != nil {
			return nil, fmt.Errorf("failed to read refresh token: %w", err)
		}
		if refresh == "" {
			c.clearCredentials(ctx)
			return nil, &APIError{
				StatusCode: http.StatusUnauthorized,
				Detail:     "no refresh token available",
				Endpoint:   refreshPath,
			}
		}

		c.logger.Debug().Msg("Access token expired, refreshing")

		var out models.RefreshResponse
		if err := c.postUnauthenticated(ctx, refreshPath, models.RefreshRequest{Refresh: refresh}, &out); err != nil {
			c.clearCredentials(ctx)
			c.logger.Warn().Err(err).Msg("Token refresh failed, session ended")
			return nil, fmt.Errorf("token refresh failed: %w", err)
		}

		// The new token must be stored before any waiter is released so
		// replays never go out with the old credential.
		if err := c.creds.Set(ctx, interfaces.CredentialAccessToken, out.Access); err != nil {
			return nil, fmt.Errorf("failed to store refreshed access token: %w", err)
		}

		c.logger.Debug().Msg("Access token refreshed")
		return out.Access, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// postUnauthenticated sends a request outside the bearer/refresh path.
// Used by the refresh call itself, which must never recurse.
func (c *Client) postUnauthenticated(ctx context.Context, path string, body, result interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Detail:     parseDetail(respBody),
			Endpoint:   path,
		}
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) clearCredentials(ctx context.Context) {
	if err := c.creds.Clear(ctx, interfaces.CredentialAccessToken); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to clear access token")
	}
	if err := c.creds.Clear(ctx, interfaces.CredentialRefreshToken); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to clear refresh token")
	}
}

// parseDetail extracts the backend's error message from a response body.
// The backend reports failures as {"detail": "..."} or {"error": "..."}.
func parseDetail(body []byte) string {
	var payload struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Detail != "" {
			return payload.Detail
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	if len(body) > 0 {
		return string(body)
	}
	return "request failed"
}

// Ensure Client implements TradingClient
var _ interfaces.TradingClient = (*Client)(nil)
