package models

// StockInfo identifies a security by exchange code and display name.
type StockInfo struct {
	Code string `json:"stock_code"`
	Name string `json:"stock_name"`
}

// Holding is one position from GET /api/trading/portfolio/.
// The backend-computed current_price/total_value fields may be null when
// its own price lookup fails; valuation here recomputes from live quotes
// and ignores them.
type Holding struct {
	Stock                StockInfo   `json:"stock"`
	TotalQuantity        int         `json:"total_quantity"`
	AveragePurchasePrice PriceString `json:"average_purchase_price"`
	CurrentPrice         PriceString `json:"current_price"`
	TotalValue           PriceString `json:"total_value"`
	ProfitLoss           PriceString `json:"profit_loss"`
	ProfitLossRate       PriceString `json:"profit_loss_rate"`
}

// PurchaseCost returns average purchase price times quantity.
func (h *Holding) PurchaseCost() float64 {
	return h.AveragePurchasePrice.Float64() * float64(h.TotalQuantity)
}

// EnrichedHolding is a holding plus its live quote. Quote is nil until
// enrichment completes, or when the per-symbol lookup failed.
type EnrichedHolding struct {
	Holding
	Quote *StockDetail `json:"quote,omitempty"`
}

// MarketValue returns the holding's current value: live price times
// quantity when a quote is available, otherwise cost basis.
func (h *EnrichedHolding) MarketValue() float64 {
	if h.Quote != nil && h.Quote.Price.Float64() > 0 {
		return h.Quote.Price.Float64() * float64(h.TotalQuantity)
	}
	return h.PurchaseCost()
}

// ValuationSummary holds the derived aggregate figures. Never persisted;
// recomputed whenever holdings or quotes change.
type ValuationSummary struct {
	TotalStockValue      float64 `json:"total_stock_value"`
	TotalStockProfit     float64 `json:"total_stock_profit"`
	TotalStockProfitRate float64 `json:"total_stock_profit_rate"`
}
