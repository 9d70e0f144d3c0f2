package mockbackend

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
)

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]map[string]interface{}, 0, len(s.positions))
	for _, p := range s.positions {
		row := map[string]interface{}{
			"stock": map[string]string{
				"stock_code": p.Code,
				"stock_name": p.Name,
			},
			"total_quantity":         p.Quantity,
			"average_purchase_price": formatPrice(p.AvgPrice),
		}
		if l, ok := s.listings[p.Code]; ok {
			cost := p.AvgPrice * float64(p.Quantity)
			value := l.Price * float64(p.Quantity)
			profit := value - cost
			rate := 0.0
			if cost > 0 {
				rate = profit / cost * 100
			}
			row["current_price"] = formatPrice(l.Price)
			row["total_value"] = formatPrice(value)
			row["profit_loss"] = formatPrice(profit)
			row["profit_loss_rate"] = rate
		} else {
			row["current_price"] = nil
			row["total_value"] = nil
			row["profit_loss"] = nil
			row["profit_loss_rate"] = nil
		}
		out = append(out, row)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) orderJSON(o *orderRecord) map[string]interface{} {
	row := map[string]interface{}{
		"id": o.ID,
		"stock": map[string]string{
			"stock_code": o.Code,
			"stock_name": o.Name,
		},
		"order_type": o.OrderType,
		"quantity":   o.Quantity,
		"price_type": o.PriceType,
		"status":     o.Status,
		"timestamp":  o.Timestamp.Format(time.RFC3339),
	}
	if o.LimitPrice != nil {
		row["limit_price"] = formatPrice(*o.LimitPrice)
	} else {
		row["limit_price"] = nil
	}
	if o.ExecutedPrice != nil {
		row["executed_price"] = formatPrice(*o.ExecutedPrice)
		row["total_amount"] = formatPrice(*o.ExecutedPrice * float64(o.Quantity))
	} else {
		row["executed_price"] = nil
		row["total_amount"] = nil
	}
	if o.ExecutedAt != nil {
		row["transaction_timestamp"] = o.ExecutedAt.Format(time.RFC3339)
	} else {
		row["transaction_timestamp"] = nil
	}
	return row
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]interface{}, 0, len(s.orders))
	// Newest first.
	for i := len(s.orders) - 1; i >= 0; i-- {
		out = append(out, s.orderJSON(s.orders[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePendingOrders(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]interface{}, 0)
	for i := len(s.orders) - 1; i >= 0; i-- {
		if s.orders[i].Status == "PENDING" {
			out = append(out, s.orderJSON(s.orders[i]))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Stock      string   `json:"stock"`
		OrderType  string   `json:"order_type"`
		Quantity   int      `json:"quantity"`
		PriceType  string   `json:"price_type"`
		LimitPrice *float64 `json:"limit_price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "잘못된 요청입니다.")
		return
	}
	if req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "주문 수량이 올바르지 않습니다.")
		return
	}

	// Synthetic rejections, matched on quantity alone.
	if req.Quantity == QuantityInsufficientFunds {
		writeError(w, http.StatusBadRequest, DetailInsufficientFunds)
		return
	}
	if req.OrderType == "SELL" && req.Quantity == QuantityInsufficientHoldings {
		writeError(w, http.StatusBadRequest, DetailInsufficientHoldings)
		return
	}

	if req.OrderType != "BUY" && req.OrderType != "SELL" {
		writeError(w, http.StatusBadRequest, "지원하지 않는 주문 유형입니다.")
		return
	}
	if req.PriceType != "MARKET" && req.PriceType != "LIMIT" {
		writeError(w, http.StatusBadRequest, "지원하지 않는 가격 유형입니다.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.listings[req.Stock]
	if !ok {
		writeError(w, http.StatusBadRequest, "존재하지 않는 종목입니다.")
		return
	}
	acct := s.accounts[requestEmail(r)]
	if acct == nil {
		writeError(w, http.StatusNotFound, "사용자를 찾을 수 없습니다.")
		return
	}
	if req.PriceType == "LIMIT" && req.LimitPrice == nil {
		writeError(w, http.StatusBadRequest, "지정가 주문에는 가격이 필요합니다.")
		return
	}

	now := time.Now()
	order := &orderRecord{
		ID:         s.nextOrderID,
		Code:       l.Code,
		Name:       l.Name,
		OrderType:  req.OrderType,
		Quantity:   req.Quantity,
		PriceType:  req.PriceType,
		LimitPrice: req.LimitPrice,
		Status:     "PENDING",
		Timestamp:  now,
	}
	s.nextOrderID++

	// MARKET orders fill immediately at the current listing price; LIMIT
	// orders sit pending until canceled.
	if req.PriceType == "MARKET" {
		if err := s.executeLocked(acct, order, l.Price, now); err != "" {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	} else if req.OrderType == "BUY" && *req.LimitPrice*float64(req.Quantity) > acct.CashBalance {
		writeError(w, http.StatusBadRequest, DetailInsufficientFunds)
		return
	}

	s.orders = append(s.orders, order)
	writeJSON(w, http.StatusCreated, s.orderJSON(order))
}

// executeLocked settles an order against the account at price, returning
// a rejection detail string when funds or holdings fall short.
func (s *Server) executeLocked(acct *account, order *orderRecord, price float64, now time.Time) string {
	cost := price * float64(order.Quantity)
	switch order.OrderType {
	case "BUY":
		if cost > acct.CashBalance {
			return DetailInsufficientFunds
		}
		acct.CashBalance -= cost
		found := false
		for i := range s.positions {
			if s.positions[i].Code == order.Code {
				p := &s.positions[i]
				total := p.AvgPrice*float64(p.Quantity) + cost
				p.Quantity += order.Quantity
				p.AvgPrice = total / float64(p.Quantity)
				found = true
				break
			}
		}
		if !found {
			s.positions = append(s.positions, position{
				Code: order.Code, Name: order.Name,
				Quantity: order.Quantity, AvgPrice: price,
			})
		}
	case "SELL":
		idx := -1
		for i := range s.positions {
			if s.positions[i].Code == order.Code {
				idx = i
				break
			}
		}
		if idx < 0 || s.positions[idx].Quantity < order.Quantity {
			return DetailInsufficientHoldings
		}
		acct.CashBalance += cost
		s.positions[idx].Quantity -= order.Quantity
		if s.positions[idx].Quantity == 0 {
			s.positions = append(s.positions[:idx], s.positions[idx+1:]...)
		}
	default:
		return "지원하지 않는 주문 유형입니다."
	}

	order.Status = "COMPLETED"
	order.ExecutedPrice = &price
	order.ExecutedAt = &now
	return ""
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "잘못된 주문 번호입니다.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.ID == id {
			if o.Status != "PENDING" {
				writeError(w, http.StatusBadRequest, DetailCannotCancel)
				return
			}
			o.Status = "CANCELED"
			writeJSON(w, http.StatusOK, map[string]string{"detail": "주문이 취소되었습니다."})
			return
		}
	}
	writeError(w, http.StatusNotFound, "주문을 찾을 수 없습니다.")
}
