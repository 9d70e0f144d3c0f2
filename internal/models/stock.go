package models

// StockDetail is the response of GET /api/stocks/detail/{code}/.
// Prices arrive comma-grouped ("98,500"); only the fields the valuation
// pipeline and views consume are modeled.
type StockDetail struct {
	Name       string      `json:"name"`
	Code       string      `json:"code"`
	Price      PriceString `json:"price"`
	Change     PriceString `json:"change"`
	ChangeRate string      `json:"change_rate"`
	Status     string      `json:"status"`
}

// Tick is one row of GET /api/stocks/ticks/{code}/{page}/.
type Tick struct {
	Time         string      `json:"time"`
	Price        PriceString `json:"price"`
	Change       string      `json:"change"`
	ChangeStatus string      `json:"change_status"`
	SellPrice    PriceString `json:"sell_price"`
	BuyPrice     PriceString `json:"buy_price"`
	Volume       PriceString `json:"volume"`
	VolumeChange string      `json:"volume_change"`
}

// DailyBar is one row of GET /api/stocks/daily/{code}/{page}/.
type DailyBar struct {
	Date         string      `json:"date"`
	Close        PriceString `json:"close"`
	Change       string      `json:"change"`
	ChangeStatus string      `json:"change_status"`
	Open         PriceString `json:"open"`
	High         PriceString `json:"high"`
	Low          PriceString `json:"low"`
	Volume       PriceString `json:"volume"`
}

// MarketIndexEntry is one index block of GET /api/stocks/market-index/.
type MarketIndexEntry struct {
	Value         PriceString `json:"value"`
	Change        string      `json:"change"`
	ChangePercent string      `json:"change_percent"`
	Status        string      `json:"status"`
}

// MarketIndex is the response of GET /api/stocks/market-index/.
type MarketIndex struct {
	Kospi  MarketIndexEntry `json:"kospi"`
	Kosdaq MarketIndexEntry `json:"kosdaq"`
}

// SearchResult is one row of GET /api/stocks/search/?query=.
type SearchResult struct {
	Name       string      `json:"name"`
	Code       string      `json:"code"`
	Price      PriceString `json:"price"`
	ChangeRate float64     `json:"changeRate"`
}
