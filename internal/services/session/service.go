// Package session owns the logical authentication state: logged-in or
// logged-out, the persisted credential pair, and the cached cash balance.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bobmcallan/papertrade/internal/common"
	"github.com/bobmcallan/papertrade/internal/interfaces"
)

// Service implements SessionService
type Service struct {
	client interfaces.TradingClient
	creds  interfaces.CredentialStore
	logger *common.Logger

	mu          sync.RWMutex
	loggedIn    bool
	cashBalance float64
}

// NewService creates a new session service.
func NewService(client interfaces.TradingClient, creds interfaces.CredentialStore, logger *common.Logger) *Service {
	return &Service{
		client: client,
		creds:  creds,
		logger: logger,
	}
}

// Init restores the session at process start. With both credentials
// present the session is optimistically logged in and an initial balance
// fetch is attempted; that fetch failing (including a failed refresh) does
// not revert the restored state; the refresh path has already cleared
// the stored credentials if the session is truly dead.
func (s *Service) Init(ctx context.Context) error {
	access, err := s.creds.Get(ctx, interfaces.CredentialAccessToken)
	if err != nil {
		return fmt.Errorf("failed to read access token: %w", err)
	}
	refresh, err := s.creds.Get(ctx, interfaces.CredentialRefreshToken)
	if err != nil {
		return fmt.Errorf("failed to read refresh token: %w", err)
	}

	if access == "" || refresh == "" {
		s.logger.Debug().Msg("No stored credentials, starting logged out")
		s.setLoggedIn(false)
		return nil
	}

	s.logger.Debug().Msg("Stored credentials found, restoring session")
	s.setLoggedIn(true)

	if _, err := s.FetchBalance(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Initial balance fetch failed")
	}
	return nil
}

// Login exchanges credentials and persists the token pair. The follow-up
// balance fetch failing does not fail the login.
func (s *Service) Login(ctx context.Context, email, password string) error {
	pair, err := s.client.Login(ctx, email, password)
	if err != nil {
		return err
	}

	if err := s.creds.Set(ctx, interfaces.CredentialAccessToken, pair.Access); err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}
	if err := s.creds.Set(ctx, interfaces.CredentialRefreshToken, pair.Refresh); err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}

	s.setLoggedIn(true)
	s.logger.Info().Str("email", email).Msg("Logged in")

	if _, err := s.FetchBalance(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Balance fetch after login failed")
	}
	return nil
}

// Logout blacklists the refresh token best-effort, clears both stored
// credentials, and resets the cached balance.
func (s *Service) Logout(ctx context.Context) error {
	refresh, err := s.creds.Get(ctx, interfaces.CredentialRefreshToken)
	if err == nil && refresh != "" {
		if err := s.client.Logout(ctx, refresh); err != nil {
			s.logger.Warn().Err(err).Msg("Backend logout failed, clearing local session anyway")
		}
	}

	if err := s.creds.Clear(ctx, interfaces.CredentialAccessToken); err != nil {
		return fmt.Errorf("failed to clear access token: %w", err)
	}
	if err := s.creds.Clear(ctx, interfaces.CredentialRefreshToken); err != nil {
		return fmt.Errorf("failed to clear refresh token: %w", err)
	}

	s.mu.Lock()
	s.loggedIn = false
	s.cashBalance = 0
	s.mu.Unlock()

	s.logger.Info().Msg("Logged out")
	return nil
}

// FetchBalance refreshes the cached cash balance from the mypage
// endpoint. Authorization expiry is recovered inside the client; any
// error that still surfaces here is logged and returned for the caller
// to judge.
func (s *Service) FetchBalance(ctx context.Context) (float64, error) {
	profile, err := s.client.GetMyPage(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Balance fetch failed")
		return 0, err
	}

	balance := profile.CashBalance.Float64()
	s.mu.Lock()
	s.cashBalance = balance
	s.mu.Unlock()

	s.logger.Debug().Float64("cash_balance", balance).Msg("Balance updated")
	return balance, nil
}

// IsLoggedIn reports the logical authentication state.
func (s *Service) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loggedIn
}

// CashBalance returns the cached cash balance.
func (s *Service) CashBalance() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cashBalance
}

// TokenExpiry reads the exp claim from the stored access token without
// verifying the signature. Display and logging only; the backend is the
// authority on token validity.
func (s *Service) TokenExpiry(ctx context.Context) (time.Time, bool) {
	access, err := s.creds.Get(ctx, interfaces.CredentialAccessToken)
	if err != nil || access == "" {
		return time.Time{}, false
	}

	token, _, err := jwt.NewParser().ParseUnverified(access, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func (s *Service) setLoggedIn(v bool) {
	s.mu.Lock()
	s.loggedIn = v
	s.mu.Unlock()
}

// Ensure Service implements SessionService
var _ interfaces.SessionService = (*Service)(nil)
