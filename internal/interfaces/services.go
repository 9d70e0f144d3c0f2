package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/papertrade/internal/models"
)

// SessionService owns the logical authentication state. UI code reads it
// but never mutates the credential store directly.
type SessionService interface {
	// Init restores the session from stored credentials at process start.
	// With both tokens present the session is optimistically logged in and
	// a balance fetch is attempted before Init returns; a fetch failure
	// does not revert the restored state.
	Init(ctx context.Context) error

	// Login exchanges credentials, persists the token pair, and fetches
	// the initial balance. A balance-fetch failure does not fail the login.
	Login(ctx context.Context, email, password string) error

	// Logout clears stored credentials and resets the cached balance.
	Logout(ctx context.Context) error

	// FetchBalance refreshes the cached cash balance from the backend.
	FetchBalance(ctx context.Context) (float64, error)

	IsLoggedIn() bool
	CashBalance() float64

	// TokenExpiry returns the access token's expiry claim when one can be
	// read from the stored token.
	TokenExpiry(ctx context.Context) (time.Time, bool)
}

// PortfolioService is the two-phase valuation pipeline. One Load call is
// one mount of the consuming view.
type PortfolioService interface {
	// Load runs both phases and returns the read model. Phase errors are
	// recorded on the snapshot rather than aborting the load.
	Load(ctx context.Context) (*models.PortfolioSnapshot, error)

	// CancelOrder cancels a pending order. Only one cancellation runs at a
	// time; a call while another is in flight is a no-op.
	CancelOrder(ctx context.Context, orderID int64) error

	// PlaceOrder submits a new order and returns the created record.
	PlaceOrder(ctx context.Context, req models.OrderRequest) (*models.Order, error)

	// State reports the pipeline's current load state.
	State() models.LoadState

	// TotalAssets returns stock value plus cash once loading settled cleanly.
	TotalAssets() float64

	// OverallProfitRate returns growth against the initial-assets baseline.
	OverallProfitRate() float64
}
