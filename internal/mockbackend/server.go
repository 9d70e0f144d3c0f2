// Package mockbackend is an in-process simulation of the trading backend
// REST API. It backs the client tests and `papertrade-mock` for local
// development, mirroring the real backend's JSON shapes, JWT auth, and
// the designated synthetic order failures.
package mockbackend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/bobmcallan/papertrade/internal/common"
)

const (
	// Sentinel quantities forcing order rejections so both failure paths
	// stay testable end to end.
	QuantityInsufficientFunds    = 9999
	QuantityInsufficientHoldings = 8888

	DetailInsufficientFunds    = "예수금이 부족합니다."
	DetailInsufficientHoldings = "보유 수량이 부족합니다."
	DetailCannotCancel         = "취소할 수 없는 주문입니다."
	DetailInvalidToken         = "Given token not valid for any token type"
	DetailInvalidCredentials   = "이메일 또는 비밀번호가 올바르지 않습니다."
)

type contextKey string

const emailKey contextKey = "email"

// Server holds the simulated backend state behind a mux router.
type Server struct {
	logger     *common.Logger
	router     *mux.Router
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration

	mu          sync.Mutex
	accounts    map[string]*account
	positions   []position
	orders      []*orderRecord
	listings    map[string]listing
	history     []assetSnapshot
	revoked     map[string]bool // refresh token jti blacklist
	nextOrderID int64
}

type account struct {
	Email        string
	Nickname     string
	DateJoined   string
	PasswordHash []byte
	CashBalance  float64
}

type position struct {
	Code     string
	Name     string
	Quantity int
	AvgPrice float64
}

type listing struct {
	Code       string
	Name       string
	Price      float64
	Change     float64
	ChangeRate string
	Status     string
}

type orderRecord struct {
	ID            int64
	Code          string
	Name          string
	OrderType     string
	Quantity      int
	PriceType     string
	LimitPrice    *float64
	Status        string
	Timestamp     time.Time
	ExecutedPrice *float64
	ExecutedAt    *time.Time
}

type assetSnapshot struct {
	Month string `json:"month"`
	Value string `json:"value"`
}

// Option configures the server
type Option func(*Server)

// WithSecret sets the JWT signing secret
func WithSecret(secret string) Option {
	return func(s *Server) {
		s.secret = []byte(secret)
	}
}

// WithAccessTTL sets the access token lifetime. Tests use a negative TTL
// to mint already-expired tokens.
func WithAccessTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.accessTTL = ttl
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a seeded mock backend.
func NewServer(opts ...Option) *Server {
	s := &Server{
		logger:      common.NewSilentLogger(),
		secret:      []byte("papertrade-mock-secret"),
		accessTTL:   30 * time.Minute,
		refreshTTL:  7 * 24 * time.Hour,
		accounts:    map[string]*account{},
		listings:    map[string]listing{},
		revoked:     map[string]bool{},
		nextOrderID: 1000,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.seed()
	s.routes()
	return s
}

func (s *Server) routes() {
	r := mux.NewRouter()

	r.HandleFunc("/api/users/signup/", s.handleSignup).Methods(http.MethodPost)
	r.HandleFunc("/api/users/login/", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/users/login/refresh/", s.handleRefresh).Methods(http.MethodPost)
	r.HandleFunc("/api/users/logout/", s.auth(s.handleLogout)).Methods(http.MethodPost)
	r.HandleFunc("/api/users/mypage/", s.auth(s.handleMyPage)).Methods(http.MethodGet)
	r.HandleFunc("/api/users/password/change/", s.auth(s.handlePasswordChange)).Methods(http.MethodPut)
	r.HandleFunc("/api/users/withdraw/", s.auth(s.handleWithdraw)).Methods(http.MethodDelete)
	r.HandleFunc("/api/users/asset-history/", s.auth(s.handleAssetHistory)).Methods(http.MethodGet)

	r.HandleFunc("/api/trading/portfolio/", s.auth(s.handlePortfolio)).Methods(http.MethodGet)
	r.HandleFunc("/api/trading/orders/", s.auth(s.handleListOrders)).Methods(http.MethodGet)
	r.HandleFunc("/api/trading/orders/", s.auth(s.handleCreateOrder)).Methods(http.MethodPost)
	r.HandleFunc("/api/trading/orders/pending/", s.auth(s.handlePendingOrders)).Methods(http.MethodGet)
	r.HandleFunc("/api/trading/orders/{id:[0-9]+}/cancel/", s.auth(s.handleCancelOrder)).Methods(http.MethodPost)

	r.HandleFunc("/api/stocks/detail/{code}/", s.handleStockDetail).Methods(http.MethodGet)
	r.HandleFunc("/api/stocks/ticks/{code}/{page:[0-9]+}/", s.handleTicks).Methods(http.MethodGet)
	r.HandleFunc("/api/stocks/daily/{code}/{page:[0-9]+}/", s.handleDaily).Methods(http.MethodGet)
	r.HandleFunc("/api/stocks/market-index/", s.handleMarketIndex).Methods(http.MethodGet)
	r.HandleFunc("/api/stocks/search/", s.handleSearch).Methods(http.MethodGet)

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("mock backend request")
	s.router.ServeHTTP(w, r)
}

// auth wraps a handler with bearer access-token validation.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, DetailInvalidToken)
			return
		}
		email, err := s.validateToken(strings.TrimPrefix(header, "Bearer "), "access")
		if err != nil {
			writeError(w, http.StatusUnauthorized, DetailInvalidToken)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), emailKey, email)))
	}
}

func requestEmail(r *http.Request) string {
	email, _ := r.Context().Value(emailKey).(string)
	return email
}

// MintTokens issues a token pair directly, bypassing the login endpoint.
// Test hook for constructing sessions in arbitrary states.
func (s *Server) MintTokens(email string, accessTTL time.Duration) (access, refresh string) {
	access = s.signToken(email, "access", accessTTL)
	refresh = s.signToken(email, "refresh", s.refreshTTL)
	return access, refresh
}

func (s *Server) signToken(email, tokenType string, ttl time.Duration) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  email,
		"type": tokenType,
		"jti":  uuid.NewString(),
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, _ := token.SignedString(s.secret)
	return signed
}

// validateToken checks signature, expiry, type, and the revocation list.
// Returns the subject email.
func (s *Server) validateToken(raw, wantType string) (string, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid claims")
	}
	if claims["type"] != wantType {
		return "", fmt.Errorf("wrong token type")
	}
	if jti, _ := claims["jti"].(string); jti != "" {
		s.mu.Lock()
		revoked := s.revoked[jti]
		s.mu.Unlock()
		if revoked {
			return "", fmt.Errorf("token revoked")
		}
	}
	email, _ := claims["sub"].(string)
	if email == "" {
		return "", fmt.Errorf("missing subject")
	}
	return email, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// formatPrice renders a float the way the real backend does: integral
// values comma-grouped ("98,500").
func formatPrice(v float64) string {
	n := int64(v)
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	digits := fmt.Sprintf("%d", n)
	var parts []string
	for len(digits) > 3 {
		parts = append([]string{digits[len(digits)-3:]}, parts...)
		digits = digits[:len(digits)-3]
	}
	parts = append([]string{digits}, parts...)
	return sign + strings.Join(parts, ",")
}
