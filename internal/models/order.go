package models

// OrderType is the direction of an order.
type OrderType string

const (
	OrderTypeBuy  OrderType = "BUY"
	OrderTypeSell OrderType = "SELL"
)

// PriceType selects limit or market execution.
type PriceType string

const (
	PriceTypeLimit  PriceType = "LIMIT"
	PriceTypeMarket PriceType = "MARKET"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusFailed    OrderStatus = "FAILED"
	OrderStatusCanceled  OrderStatus = "CANCELED"
)

// Order is one entry of GET /api/trading/orders/. Execution fields are
// null for orders that have not traded; executed_price may arrive as a
// string or a number depending on the serializer path.
type Order struct {
	ID                   int64       `json:"id"`
	Stock                StockInfo   `json:"stock"`
	OrderType            OrderType   `json:"order_type"`
	Quantity             int         `json:"quantity"`
	PriceType            PriceType   `json:"price_type"`
	LimitPrice           PriceString `json:"limit_price"`
	Status               OrderStatus `json:"status"`
	Timestamp            string      `json:"timestamp"`
	ExecutedPrice        PriceString `json:"executed_price"`
	TotalAmount          PriceString `json:"total_amount"`
	TransactionTimestamp string      `json:"transaction_timestamp"`
}

// IsPending reports whether the order is still awaiting execution and
// therefore cancelable.
func (o *Order) IsPending() bool {
	return o.Status == OrderStatusPending
}

// OrderRequest is the payload for POST /api/trading/orders/.
// LimitPrice is omitted for market orders.
type OrderRequest struct {
	Stock      string    `json:"stock"`
	OrderType  OrderType `json:"order_type"`
	Quantity   int       `json:"quantity"`
	PriceType  PriceType `json:"price_type"`
	LimitPrice *float64  `json:"limit_price,omitempty"`
}
