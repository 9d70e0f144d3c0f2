package trading

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/bobmcallan/papertrade/internal/models"
)

// Login exchanges email/password for a token pair. Persisting the pair is
// the session service's job.
func (c *Client) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	var pair models.TokenPair
	req := models.LoginRequest{Email: email, Password: password}
	if err := c.postUnauthenticated(ctx, loginPath, req, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

// Signup registers a new account.
func (c *Client) Signup(ctx context.Context, req models.SignupRequest) error {
	return c.postUnauthenticated(ctx, "/api/users/signup/", req, nil)
}

// Logout blacklists the refresh token server-side.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.do(ctx, http.MethodPost, "/api/users/logout/", models.LogoutRequest{Refresh: refreshToken}, nil)
}

// ChangePassword updates the account password.
func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	req := models.PasswordChangeRequest{OldPassword: oldPassword, NewPassword: newPassword}
	return c.do(ctx, http.MethodPut, "/api/users/password/change/", req, nil)
}

// Withdraw permanently deletes the account.
func (c *Client) Withdraw(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/users/withdraw/", nil, nil)
}

// GetMyPage retrieves the user profile including the cash balance.
func (c *Client) GetMyPage(ctx context.Context) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := c.do(ctx, http.MethodGet, "/api/users/mypage/", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetAssetHistory retrieves monthly asset snapshots.
func (c *Client) GetAssetHistory(ctx context.Context) ([]models.AssetSnapshot, error) {
	var history []models.AssetSnapshot
	if err := c.do(ctx, http.MethodGet, "/api/users/asset-history/", nil, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// GetPortfolio retrieves current holdings.
func (c *Client) GetPortfolio(ctx context.Context) ([]models.Holding, error) {
	var holdings []models.Holding
	if err := c.do(ctx, http.MethodGet, "/api/trading/portfolio/", nil, &holdings); err != nil {
		return nil, err
	}
	return holdings, nil
}

// GetOrders retrieves the full order history.
func (c *Client) GetOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := c.do(ctx, http.MethodGet, "/api/trading/orders/", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetPendingOrders retrieves orders awaiting execution.
func (c *Client) GetPendingOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := c.do(ctx, http.MethodGet, "/api/trading/orders/pending/", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// CreateOrder places a buy or sell order.
func (c *Client) CreateOrder(ctx context.Context, req models.OrderRequest) (*models.Order, error) {
	var order models.Order
	if err := c.do(ctx, http.MethodPost, "/api/trading/orders/", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CancelOrder cancels a pending order.
func (c *Client) CancelOrder(ctx context.Context, orderID int64) error {
	path := fmt.Sprintf("/api/trading/orders/%d/cancel/", orderID)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// GetStockDetail retrieves the live quote for a symbol.
func (c *Client) GetStockDetail(ctx context.Context, code string) (*models.StockDetail, error) {
	var detail models.StockDetail
	path := fmt.Sprintf("/api/stocks/detail/%s/", code)
	if err := c.do(ctx, http.MethodGet, path, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// GetTicks retrieves one page of intraday ticks.
func (c *Client) GetTicks(ctx context.Context, code string, page int) ([]models.Tick, error) {
	var ticks []models.Tick
	path := fmt.Sprintf("/api/stocks/ticks/%s/%d/", code, page)
	if err := c.do(ctx, http.MethodGet, path, nil, &ticks); err != nil {
		return nil, err
	}
	return ticks, nil
}

// GetDaily retrieves one page of daily bars.
func (c *Client) GetDaily(ctx context.Context, code string, page int) ([]models.DailyBar, error) {
	var bars []models.DailyBar
	path := fmt.Sprintf("/api/stocks/daily/%s/%d/", code, page)
	if err := c.do(ctx, http.MethodGet, path, nil, &bars); err != nil {
		return nil, err
	}
	return bars, nil
}

// GetMarketIndex retrieves the KOSPI/KOSDAQ index summary.
func (c *Client) GetMarketIndex(ctx context.Context) (*models.MarketIndex, error) {
	var index models.MarketIndex
	if err := c.do(ctx, http.MethodGet, "/api/stocks/market-index/", nil, &index); err != nil {
		return nil, err
	}
	return &index, nil
}

// SearchStocks searches symbols by name or code.
func (c *Client) SearchStocks(ctx context.Context, query string) ([]models.SearchResult, error) {
	var results []models.SearchResult
	path := "/api/stocks/search/?query=" + url.QueryEscape(query)
	if err := c.do(ctx, http.MethodGet, path, nil, &results); err != nil {
		return nil, err
	}
	return results, nil
}
