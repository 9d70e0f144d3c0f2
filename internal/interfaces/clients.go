// Package interfaces defines service contracts for papertrade
package interfaces

import (
	"context"

	"github.com/bobmcallan/papertrade/internal/models"
)

// TradingClient provides access to the trading backend REST API.
// Implementations attach the stored access credential to every call and
// transparently recover from access-token expiry.
type TradingClient interface {
	// Login exchanges credentials for a token pair. Does not persist them.
	Login(ctx context.Context, email, password string) (*models.TokenPair, error)

	// Signup registers a new account
	Signup(ctx context.Context, req models.SignupRequest) error

	// Logout blacklists the refresh token server-side
	Logout(ctx context.Context, refreshToken string) error

	// ChangePassword updates the account password
	ChangePassword(ctx context.Context, oldPassword, newPassword string) error

	// Withdraw permanently deletes the account
	Withdraw(ctx context.Context) error

	// GetMyPage retrieves the user profile including the cash balance
	GetMyPage(ctx context.Context) (*models.UserProfile, error)

	// GetAssetHistory retrieves monthly asset snapshots
	GetAssetHistory(ctx context.Context) ([]models.AssetSnapshot, error)

	// GetPortfolio retrieves current holdings
	GetPortfolio(ctx context.Context) ([]models.Holding, error)

	// GetOrders retrieves the full order history
	GetOrders(ctx context.Context) ([]models.Order, error)

	// GetPendingOrders retrieves orders awaiting execution
	GetPendingOrders(ctx context.Context) ([]models.Order, error)

	// CreateOrder places a buy or sell order
	CreateOrder(ctx context.Context, req models.OrderRequest) (*models.Order, error)

	// CancelOrder cancels a pending order
	CancelOrder(ctx context.Context, orderID int64) error

	// GetStockDetail retrieves the live quote for a symbol
	GetStockDetail(ctx context.Context, code string) (*models.StockDetail, error)

	// GetTicks retrieves one page of intraday ticks
	GetTicks(ctx context.Context, code string, page int) ([]models.Tick, error)

	// GetDaily retrieves one page of daily bars
	GetDaily(ctx context.Context, code string, page int) ([]models.DailyBar, error)

	// GetMarketIndex retrieves the KOSPI/KOSDAQ index summary
	GetMarketIndex(ctx context.Context) (*models.MarketIndex, error)

	// SearchStocks searches symbols by name or code
	SearchStocks(ctx context.Context, query string) ([]models.SearchResult, error)
}
