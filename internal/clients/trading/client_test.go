package trading

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/papertrade/internal/interfaces"
	"github.com/bobmcallan/papertrade/internal/mockbackend"
	"github.com/bobmcallan/papertrade/internal/models"
	"github.com/bobmcallan/papertrade/internal/storage/credentials"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *credentials.MemoryStore) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store := credentials.NewMemoryStore()
	client := NewClient(store,
		WithBaseURL(server.URL),
		WithRateLimit(1000),
		WithTimeout(5*time.Second),
	)
	return client, store
}

func setTokens(t *testing.T, store interfaces.CredentialStore, access, refresh string) {
	t.Helper()
	require.NoError(t, store.Set(context.Background(), interfaces.CredentialAccessToken, access))
	require.NoError(t, store.Set(context.Background(), interfaces.CredentialRefreshToken, refresh))
}

func TestLoginReturnsTokenPair(t *testing.T) {
	client, store := newTestClient(t, mockbackend.NewServer())

	pair, err := client.Login(context.Background(), mockbackend.SeedEmail, mockbackend.SeedPassword)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Access)
	assert.NotEmpty(t, pair.Refresh)

	// Persisting the pair is the session service's job, not the client's.
	access, err := store.Get(context.Background(), interfaces.CredentialAccessToken)
	require.NoError(t, err)
	assert.Empty(t, access)
}

func TestLoginFailureIsNotRetried(t *testing.T) {
	var refreshCalls atomic.Int32
	backend := mockbackend.NewServer()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/users/login/refresh/" {
			refreshCalls.Add(1)
		}
		backend.ServeHTTP(w, r)
	})
	client, _ := newTestClient(t, handler)

	_, err := client.Login(context.Background(), mockbackend.SeedEmail, "wrong-password")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, mockbackend.DetailInvalidCredentials, apiErr.Detail)
	assert.Zero(t, refreshCalls.Load())
}

func TestExpiredTokenIsRefreshedAndReplayed(t *testing.T) {
	backend := mockbackend.NewServer()
	client, store := newTestClient(t, backend)

	// Expired access token alongside a valid refresh token.
	access, refresh := backend.MintTokens(mockbackend.SeedEmail, -time.Minute)
	setTokens(t, store, access, refresh)

	profile, err := client.GetMyPage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, mockbackend.SeedEmail, profile.Email)
	assert.InDelta(t, 3_245_000, profile.CashBalance.Float64(), 0.01)

	stored, err := store.Get(context.Background(), interfaces.CredentialAccessToken)
	require.NoError(t, err)
	assert.NotEqual(t, access, stored, "refreshed token should replace the expired one")
}

func TestConcurrentRequestsShareOneRefresh(t *testing.T) {
	const workers = 8

	var (
		refreshCalls atomic.Int32
		failed       atomic.Int32
		allFailed    = make(chan struct{})
		closeOnce    sync.Once
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/mypage/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer new-access" {
			if failed.Add(1) == workers {
				closeOnce.Do(func() { close(allFailed) })
			}
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "token expired"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"email": "a@b.c", "cash_balance": "1000.00"})
	})
	mux.HandleFunc("/api/users/login/refresh/", func(w http.ResponseWriter, r *http.Request) {
		// Held open until every worker has seen its 401, so all of them
		// join this one in-flight exchange. The extra grace period covers
		// the last worker's hop from its 401 into the shared call.
		<-allFailed
		time.Sleep(50 * time.Millisecond)
		refreshCalls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]string{"access": "new-access"})
	})

	client, store := newTestClient(t, mux)
	setTokens(t, store, "stale-access", "valid-refresh")

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = client.GetMyPage(context.Background())
		}()
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "worker %d", i)
	}
	assert.Equal(t, int32(1), refreshCalls.Load(), "all workers must share a single refresh")

	stored, err := store.Get(context.Background(), interfaces.CredentialAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "new-access", stored)
}

func TestRefreshSurvivesTriggeringCallerCancellation(t *testing.T) {
	var (
		refreshStarted = make(chan struct{})
		releaseRefresh = make(chan struct{})
		startedOnce    sync.Once
		failed         atomic.Int32
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/mypage/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer new-access" {
			failed.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "token expired"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"email": "a@b.c", "cash_balance": "1000.00"})
	})
	mux.HandleFunc("/api/users/login/refresh/", func(w http.ResponseWriter, r *http.Request) {
		startedOnce.Do(func() { close(refreshStarted) })
		<-releaseRefresh
		_ = json.NewEncoder(w).Encode(map[string]string{"access": "new-access"})
	})

	client, store := newTestClient(t, mux)
	setTokens(t, store, "stale-access", "valid-refresh")

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()

	var wg sync.WaitGroup
	var errA, errB error

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errA = client.GetMyPage(ctxA)
	}()
	<-refreshStarted

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errB = client.GetMyPage(context.Background())
	}()
	for failed.Load() < 2 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)

	// The triggering caller dies while the shared exchange is in flight.
	cancelA()
	time.Sleep(20 * time.Millisecond)
	close(releaseRefresh)
	wg.Wait()

	require.Error(t, errA, "the canceled caller's replay must fail")
	assert.NoError(t, errB, "waiters with live contexts must get the refreshed token")

	stored, err := store.Get(context.Background(), interfaces.CredentialAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "new-access", stored)
}

func TestRefreshFailureClearsCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/mypage/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "token expired"})
	})
	mux.HandleFunc("/api/users/login/refresh/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"detail": "Token is invalid or expired",
			"code":   "token_not_valid",
		})
	})

	client, store := newTestClient(t, mux)
	setTokens(t, store, "stale-access", "stale-refresh")

	_, err := client.GetMyPage(context.Background())
	require.Error(t, err)

	access, _ := store.Get(context.Background(), interfaces.CredentialAccessToken)
	refresh, _ := store.Get(context.Background(), interfaces.CredentialRefreshToken)
	assert.Empty(t, access)
	assert.Empty(t, refresh)
}

func TestMissingRefreshTokenFailsWithoutCall(t *testing.T) {
	var refreshCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/mypage/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "token expired"})
	})
	mux.HandleFunc("/api/users/login/refresh/", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	client, store := newTestClient(t, mux)
	require.NoError(t, store.Set(context.Background(), interfaces.CredentialAccessToken, "stale-access"))

	_, err := client.GetMyPage(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Zero(t, refreshCalls.Load())

	access, _ := store.Get(context.Background(), interfaces.CredentialAccessToken)
	assert.Empty(t, access)
}

func TestRequestIsReplayedAtMostOnce(t *testing.T) {
	var mypageCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/mypage/", func(w http.ResponseWriter, r *http.Request) {
		mypageCalls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "still no"})
	})
	mux.HandleFunc("/api/users/login/refresh/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"access": "new-access"})
	})

	client, store := newTestClient(t, mux)
	setTokens(t, store, "stale-access", "valid-refresh")

	_, err := client.GetMyPage(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, int32(2), mypageCalls.Load(), "original request plus exactly one replay")
}

func TestOrderRejectionDetails(t *testing.T) {
	backend := mockbackend.NewServer()
	client, store := newTestClient(t, backend)
	access, refresh := backend.MintTokens(mockbackend.SeedEmail, 30*time.Minute)
	setTokens(t, store, access, refresh)

	_, err := client.CreateOrder(context.Background(), models.OrderRequest{
		Stock:     "005930",
		OrderType: models.OrderTypeBuy,
		Quantity:  mockbackend.QuantityInsufficientFunds,
		PriceType: models.PriceTypeMarket,
	})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, mockbackend.DetailInsufficientFunds, apiErr.Detail)

	_, err = client.CreateOrder(context.Background(), models.OrderRequest{
		Stock:     "005930",
		OrderType: models.OrderTypeSell,
		Quantity:  mockbackend.QuantityInsufficientHoldings,
		PriceType: models.PriceTypeMarket,
	})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, mockbackend.DetailInsufficientHoldings, apiErr.Detail)
}

func TestOrderLifecycle(t *testing.T) {
	backend := mockbackend.NewServer()
	client, store := newTestClient(t, backend)
	access, refresh := backend.MintTokens(mockbackend.SeedEmail, 30*time.Minute)
	setTokens(t, store, access, refresh)

	ctx := context.Background()

	market, err := client.CreateOrder(ctx, models.OrderRequest{
		Stock:     "005930",
		OrderType: models.OrderTypeBuy,
		Quantity:  2,
		PriceType: models.PriceTypeMarket,
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, market.Status)
	assert.InDelta(t, 68_500, market.ExecutedPrice.Float64(), 0.01)

	limitPrice := 60_000.0
	limit, err := client.CreateOrder(ctx, models.OrderRequest{
		Stock:      "005930",
		OrderType:  models.OrderTypeBuy,
		Quantity:   1,
		PriceType:  models.PriceTypeLimit,
		LimitPrice: &limitPrice,
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, limit.Status)
	assert.True(t, limit.IsPending())

	pending, err := client.GetPendingOrders(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, limit.ID, pending[0].ID)

	require.NoError(t, client.CancelOrder(ctx, limit.ID))

	pending, err = client.GetPendingOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// A settled order cannot be canceled again.
	err = client.CancelOrder(ctx, limit.ID)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, mockbackend.DetailCannotCancel, apiErr.Detail)
}

func TestStockEndpoints(t *testing.T) {
	backend := mockbackend.NewServer()
	client, _ := newTestClient(t, backend)
	ctx := context.Background()

	detail, err := client.GetStockDetail(ctx, "005930")
	require.NoError(t, err)
	assert.Equal(t, "삼성전자", detail.Name)
	assert.InDelta(t, 68_500, detail.Price.Float64(), 0.01, "comma-grouped price must parse")

	_, err = client.GetStockDetail(ctx, "000000")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)

	results, err := client.SearchStocks(ctx, "삼성")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "005930", results[0].Code)

	index, err := client.GetMarketIndex(ctx)
	require.NoError(t, err)
	assert.Greater(t, index.Kospi.Value.Float64(), 0.0)

	ticks, err := client.GetTicks(ctx, "005930", 1)
	require.NoError(t, err)
	assert.NotEmpty(t, ticks)

	bars, err := client.GetDaily(ctx, "005930", 1)
	require.NoError(t, err)
	assert.NotEmpty(t, bars)
}

func TestGetPortfolioParsesHoldings(t *testing.T) {
	backend := mockbackend.NewServer()
	client, store := newTestClient(t, backend)
	access, refresh := backend.MintTokens(mockbackend.SeedEmail, 30*time.Minute)
	setTokens(t, store, access, refresh)

	holdings, err := client.GetPortfolio(context.Background())
	require.NoError(t, err)
	require.Len(t, holdings, 3)

	byCode := map[string]models.Holding{}
	for _, h := range holdings {
		byCode[h.Stock.Code] = h
	}
	samsung, ok := byCode["005930"]
	require.True(t, ok)
	assert.Equal(t, "삼성전자", samsung.Stock.Name)
	assert.Equal(t, 50, samsung.TotalQuantity)
	assert.InDelta(t, 65_000, samsung.AveragePurchasePrice.Float64(), 0.01)
}

func TestAPIErrorMessage(t *testing.T) {
	err := &APIError{StatusCode: 400, Detail: "bad", Endpoint: "/api/x/"}
	assert.Contains(t, err.Error(), "bad")
	assert.Contains(t, err.Error(), "400")

	var target *APIError
	assert.True(t, errors.As(error(err), &target))
}
