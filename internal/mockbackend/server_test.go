package mockbackend

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doJSON(t *testing.T, s *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func TestLoginAndAuthenticatedAccess(t *testing.T) {
	s := NewServer()

	rec := doJSON(t, s, http.MethodPost, "/api/users/login/", "", map[string]string{
		"email":    SeedEmail,
		"password": SeedPassword,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var tokens map[string]string
	decode(t, rec, &tokens)
	require.NotEmpty(t, tokens["access"])
	require.NotEmpty(t, tokens["refresh"])

	rec = doJSON(t, s, http.MethodGet, "/api/users/mypage/", tokens["access"], nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var profile map[string]interface{}
	decode(t, rec, &profile)
	assert.Equal(t, SeedEmail, profile["email"])
	assert.Equal(t, SeedNickname, profile["nickname"])
	assert.Equal(t, "3245000.00", profile["cash_balance"])
}

func TestAuthRejectsExpiredAndMissingTokens(t *testing.T) {
	s := NewServer()

	rec := doJSON(t, s, http.MethodGet, "/api/users/mypage/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired, _ := s.MintTokens(SeedEmail, -time.Minute)
	rec = doJSON(t, s, http.MethodGet, "/api/users/mypage/", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// A refresh token is not valid as an access token.
	_, refresh := s.MintTokens(SeedEmail, time.Minute)
	rec = doJSON(t, s, http.MethodGet, "/api/users/mypage/", refresh, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshRotatesAccessToken(t *testing.T) {
	s := NewServer()
	_, refresh := s.MintTokens(SeedEmail, 30*time.Minute)

	rec := doJSON(t, s, http.MethodPost, "/api/users/login/refresh/", "", map[string]string{
		"refresh": refresh,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]string
	decode(t, rec, &out)
	require.NotEmpty(t, out["access"])

	rec = doJSON(t, s, http.MethodGet, "/api/users/mypage/", out["access"], nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	s := NewServer()
	access, refresh := s.MintTokens(SeedEmail, 30*time.Minute)

	rec := doJSON(t, s, http.MethodPost, "/api/users/logout/", access, map[string]string{
		"refresh": refresh,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/users/login/refresh/", "", map[string]string{
		"refresh": refresh,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMarketBuyUpdatesCashAndPositions(t *testing.T) {
	s := NewServer()
	access, _ := s.MintTokens(SeedEmail, 30*time.Minute)

	rec := doJSON(t, s, http.MethodPost, "/api/trading/orders/", access, map[string]interface{}{
		"stock":      "035720",
		"order_type": "BUY",
		"quantity":   10,
		"price_type": "MARKET",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var order map[string]interface{}
	decode(t, rec, &order)
	assert.Equal(t, "COMPLETED", order["status"])
	assert.Equal(t, "45,500", order["executed_price"])

	// 3,245,000 - 10 * 45,500
	rec = doJSON(t, s, http.MethodGet, "/api/users/mypage/", access, nil)
	var profile map[string]interface{}
	decode(t, rec, &profile)
	assert.Equal(t, "2790000.00", profile["cash_balance"])

	rec = doJSON(t, s, http.MethodGet, "/api/trading/portfolio/", access, nil)
	var holdings []map[string]interface{}
	decode(t, rec, &holdings)
	assert.Len(t, holdings, 4)
}

func TestSellWithoutHoldingsRejected(t *testing.T) {
	s := NewServer()
	access, _ := s.MintTokens(SeedEmail, 30*time.Minute)

	rec := doJSON(t, s, http.MethodPost, "/api/trading/orders/", access, map[string]interface{}{
		"stock":      "035720",
		"order_type": "SELL",
		"quantity":   1,
		"price_type": "MARKET",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var out map[string]string
	decode(t, rec, &out)
	assert.Equal(t, DetailInsufficientHoldings, out["detail"])
}

func TestSentinelQuantitiesRejectBeforeValidation(t *testing.T) {
	s := NewServer()
	access, _ := s.MintTokens(SeedEmail, 30*time.Minute)

	// The funds sentinel fires even for an unknown symbol.
	rec := doJSON(t, s, http.MethodPost, "/api/trading/orders/", access, map[string]interface{}{
		"stock":      "999999",
		"order_type": "BUY",
		"quantity":   QuantityInsufficientFunds,
		"price_type": "MARKET",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var out map[string]string
	decode(t, rec, &out)
	assert.Equal(t, DetailInsufficientFunds, out["detail"])
}

func TestCreateOrderRejectsUnknownTypes(t *testing.T) {
	s := NewServer()
	access, _ := s.MintTokens(SeedEmail, 30*time.Minute)

	// No limit_price either: must come back as 400, not crash.
	rec := doJSON(t, s, http.MethodPost, "/api/trading/orders/", access, map[string]interface{}{
		"stock":      "005930",
		"order_type": "BUY",
		"quantity":   2,
		"price_type": "FOO",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var out map[string]string
	decode(t, rec, &out)
	assert.NotEmpty(t, out["detail"])

	rec = doJSON(t, s, http.MethodPost, "/api/trading/orders/", access, map[string]interface{}{
		"stock":      "005930",
		"order_type": "HOLD",
		"quantity":   2,
		"price_type": "MARKET",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/trading/orders/", access, map[string]interface{}{
		"stock":      "005930",
		"order_type": "BUY",
		"quantity":   2,
		"price_type": "LIMIT",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLimitOrderPendsAndCancels(t *testing.T) {
	s := NewServer()
	access, _ := s.MintTokens(SeedEmail, 30*time.Minute)

	rec := doJSON(t, s, http.MethodPost, "/api/trading/orders/", access, map[string]interface{}{
		"stock":       "005930",
		"order_type":  "BUY",
		"quantity":    1,
		"price_type":  "LIMIT",
		"limit_price": 60000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var order struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	decode(t, rec, &order)
	assert.Equal(t, "PENDING", order.Status)

	rec = doJSON(t, s, http.MethodPost, "/api/trading/orders/1000/cancel/", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/trading/orders/pending/", access, nil)
	var pending []map[string]interface{}
	decode(t, rec, &pending)
	assert.Empty(t, pending)
}

func TestStockDetailFormatsPrices(t *testing.T) {
	s := NewServer()

	rec := doJSON(t, s, http.MethodGet, "/api/stocks/detail/005930/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var detail map[string]interface{}
	decode(t, rec, &detail)
	assert.Equal(t, "삼성전자", detail["name"])
	assert.Equal(t, "68,500", detail["price"])
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{500, "500"},
		{68500, "68,500"},
		{1234567, "1,234,567"},
		{-6400, "-6,400"},
	}
	for _, tt := range tests {
		if got := formatPrice(tt.in); got != tt.want {
			t.Errorf("formatPrice(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
