// Package portfolio implements the two-phase valuation pipeline: a
// concurrent static load of account data followed by per-symbol live
// quote enrichment and aggregate valuation.
package portfolio

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/papertrade/internal/common"
	"github.com/bobmcallan/papertrade/internal/interfaces"
	"github.com/bobmcallan/papertrade/internal/models"
)

// Service implements PortfolioService
type Service struct {
	client        interfaces.TradingClient
	session       interfaces.SessionService
	logger        *common.Logger
	initialAssets float64

	mu          sync.RWMutex
	state       models.LoadState
	snap        *models.PortfolioSnapshot
	staticReady bool
	enriched    bool

	canceling atomic.Bool
}

// NewService creates a new portfolio valuation service. initialAssets is
// the account baseline used for the overall profit rate.
func NewService(client interfaces.TradingClient, session interfaces.SessionService, initialAssets float64, logger *common.Logger) *Service {
	return &Service{
		client:        client,
		session:       session,
		initialAssets: initialAssets,
		logger:        logger,
		state:         models.LoadIdle,
		snap:          &models.PortfolioSnapshot{},
	}
}

// Load runs the full pipeline: the static phase, then the live
// enrichment phase gated on the static phase having settled. Phase errors
// are recorded on the snapshot; the pipeline always settles in Ready or
// Failed rather than aborting half way.
func (s *Service) Load(ctx context.Context) (*models.PortfolioSnapshot, error) {
	s.mu.Lock()
	s.state = models.LoadLoadingStatic
	s.staticReady = false
	s.enriched = false
	s.snap = &models.PortfolioSnapshot{}
	s.mu.Unlock()

	s.loadStatic(ctx)
	s.loadLive(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := *s.snap
	return &snap, nil
}

// loadStatic fetches holdings, order history, the user profile, asset
// history, and pending orders concurrently. The phase settles only after
// every call has, successfully or not; the first error is recorded and
// the live phase is still allowed to proceed.
func (s *Service) loadStatic(ctx context.Context) {
	var (
		holdings []models.Holding
		orders   []models.Order
		profile  *models.UserProfile
		history  []models.AssetSnapshot
		pending  []models.Order
	)

	var g errgroup.Group
	g.Go(func() error {
		var err error
		holdings, err = s.client.GetPortfolio(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		orders, err = s.client.GetOrders(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		profile, err = s.client.GetMyPage(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = s.client.GetAssetHistory(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		pending, err = s.client.GetPendingOrders(ctx)
		return err
	})

	err := g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.logger.Warn().Err(err).Msg("Static portfolio load failed")
		s.snap.Error = fmt.Sprintf("데이터 로딩 실패: %v", err)
	}

	// Seed holdings with empty quotes; enrichment fills them in.
	s.snap.Holdings = make([]models.EnrichedHolding, len(holdings))
	for i, h := range holdings {
		s.snap.Holdings[i] = models.EnrichedHolding{Holding: h}
	}
	s.snap.OrderHistory = orders
	s.snap.UserInfo = profile
	s.snap.AssetHistory = history
	s.snap.PendingOrders = pending

	s.staticReady = true
	s.state = models.LoadLoadingLive
}

// loadLive enriches each holding with a live quote and derives the
// aggregate valuation. A failing per-symbol lookup degrades that holding
// to cost-basis valuation instead of failing the batch.
func (s *Service) loadLive(ctx context.Context) {
	s.mu.Lock()
	if !s.staticReady {
		// Explicit gate: the live phase never runs ahead of the static one.
		s.mu.Unlock()
		return
	}
	if len(s.snap.Holdings) == 0 {
		s.snap.Valuation = models.ValuationSummary{}
		s.settleLocked()
		s.mu.Unlock()
		return
	}
	if s.enriched {
		s.settleLocked()
		s.mu.Unlock()
		return
	}
	holdings := make([]models.EnrichedHolding, len(s.snap.Holdings))
	copy(holdings, s.snap.Holdings)
	s.mu.Unlock()

	quotes := make([]*models.StockDetail, len(holdings))
	var g errgroup.Group
	for i := range holdings {
		i := i
		g.Go(func() error {
			quote, err := s.client.GetStockDetail(ctx, holdings[i].Stock.Code)
			if err != nil {
				s.logger.Warn().Err(err).Str("code", holdings[i].Stock.Code).Msg("Quote lookup failed, using cost basis")
				return nil
			}
			quotes[i] = quote
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		// Batch-level failure: zero the aggregates but still mark
		// enrichment complete so the pipeline cannot retry forever.
		s.mu.Lock()
		defer s.mu.Unlock()
		s.snap.Valuation = models.ValuationSummary{}
		s.snap.Error = fmt.Sprintf("실시간 주가 로딩 실패: %v", ctx.Err())
		s.enriched = true
		s.settleLocked()
		return
	}

	var totalStockValue, totalPurchaseCost float64
	for i := range holdings {
		holdings[i].Quote = quotes[i]
		totalPurchaseCost += holdings[i].PurchaseCost()
		totalStockValue += holdings[i].MarketValue()
	}

	totalStockProfit := totalStockValue - totalPurchaseCost
	var totalStockProfitRate float64
	if totalPurchaseCost > 0 {
		totalStockProfitRate = (totalStockProfit / totalPurchaseCost) * 100
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Holdings = holdings
	s.snap.Valuation = models.ValuationSummary{
		TotalStockValue:      totalStockValue,
		TotalStockProfit:     totalStockProfit,
		TotalStockProfitRate: totalStockProfitRate,
	}
	s.enriched = true
	s.settleLocked()

	s.logger.Debug().
		Float64("total_value", totalStockValue).
		Float64("total_profit", totalStockProfit).
		Msg("Portfolio valuation computed")
}

// settleLocked moves the pipeline to its terminal state. Callers hold mu.
func (s *Service) settleLocked() {
	if s.snap.Error != "" {
		s.state = models.LoadFailed
	} else {
		s.state = models.LoadReady
	}
}

// CancelOrder cancels a pending order. Only one cancellation runs at a
// time; a call while another is in flight is a no-op. On success the
// order is removed from the local pending list without a refetch; on
// failure the list is left untouched and the backend detail surfaces in
// the returned error.
func (s *Service) CancelOrder(ctx context.Context, orderID int64) error {
	if !s.canceling.CompareAndSwap(false, true) {
		return nil
	}
	defer s.canceling.Store(false)

	if err := s.client.CancelOrder(ctx, orderID); err != nil {
		s.logger.Warn().Err(err).Int64("order_id", orderID).Msg("Order cancellation failed")
		return err
	}

	// Filter into a fresh slice: snapshots handed out by Load alias the
	// old backing array and must keep reading their own pending list.
	s.mu.Lock()
	pending := make([]models.Order, 0, len(s.snap.PendingOrders))
	for _, o := range s.snap.PendingOrders {
		if o.ID != orderID {
			pending = append(pending, o)
		}
	}
	s.snap.PendingOrders = pending
	s.mu.Unlock()

	s.logger.Info().Int64("order_id", orderID).Msg("Order canceled")
	return nil
}

// PlaceOrder submits a new order.
func (s *Service) PlaceOrder(ctx context.Context, req models.OrderRequest) (*models.Order, error) {
	order, err := s.client.CreateOrder(ctx, req)
	if err != nil {
		s.logger.Warn().Err(err).Str("stock", req.Stock).Msg("Order placement failed")
		return nil, err
	}
	s.logger.Info().
		Int64("order_id", order.ID).
		Str("stock", req.Stock).
		Str("type", string(req.OrderType)).
		Int("quantity", req.Quantity).
		Msg("Order placed")
	return order, nil
}

// State reports the pipeline's current load state.
func (s *Service) State() models.LoadState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// TotalAssets returns stock value plus cash. Zero until loading settled
// without a recorded error, mirroring the view behavior of showing no
// totals over partial data.
func (s *Service) TotalAssets() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != models.LoadReady || s.snap.Error != "" {
		return 0
	}
	return s.snap.Valuation.TotalStockValue + s.session.CashBalance()
}

// OverallProfitRate returns growth of total assets against the
// initial-assets baseline, guarded against a zero baseline.
func (s *Service) OverallProfitRate() float64 {
	total := s.TotalAssets()
	if s.initialAssets <= 0 {
		return 0
	}
	return (total - s.initialAssets) / s.initialAssets * 100
}

// Ensure Service implements PortfolioService
var _ interfaces.PortfolioService = (*Service)(nil)
