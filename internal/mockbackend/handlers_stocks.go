package mockbackend

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

func (s *Server) handleStockDetail(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	s.mu.Lock()
	l, ok := s.listings[code]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "종목을 찾을 수 없습니다."})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":        l.Name,
		"code":        l.Code,
		"price":       formatPrice(l.Price),
		"change":      formatPrice(l.Change),
		"change_rate": l.ChangeRate,
		"status":      l.Status,
	})
}

func (s *Server) handleTicks(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	code := vars["code"]
	page, _ := strconv.Atoi(vars["page"])

	s.mu.Lock()
	l, ok := s.listings[code]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "종목을 찾을 수 없습니다."})
		return
	}

	// Deterministic synthetic ticks walking down from the listing price.
	base := time.Date(2026, 8, 28, 15, 30, 0, 0, time.FixedZone("KST", 9*3600))
	base = base.Add(-time.Duration(page) * 10 * time.Minute)
	rows := make([]map[string]interface{}, 0, 10)
	for i := 0; i < 10; i++ {
		price := l.Price - float64(i*100)
		rows = append(rows, map[string]interface{}{
			"time":          base.Add(-time.Duration(i) * time.Minute).Format("15:04:05"),
			"price":         formatPrice(price),
			"change":        formatPrice(l.Change),
			"change_status": l.Status,
			"sell_price":    formatPrice(price + 100),
			"buy_price":     formatPrice(price - 100),
			"volume":        1_500 + i*120,
			"volume_change": "+120",
		})
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	code := vars["code"]
	page, _ := strconv.Atoi(vars["page"])

	s.mu.Lock()
	l, ok := s.listings[code]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "종목을 찾을 수 없습니다."})
		return
	}

	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.FixedZone("KST", 9*3600))
	day = day.AddDate(0, 0, -page*10)
	rows := make([]map[string]interface{}, 0, 10)
	for i := 0; i < 10; i++ {
		closePrice := l.Price - float64(i*300)
		rows = append(rows, map[string]interface{}{
			"date":          day.AddDate(0, 0, -i).Format("2006-01-02"),
			"close":         formatPrice(closePrice),
			"change":        "300",
			"change_status": l.Status,
			"open":          formatPrice(closePrice - 200),
			"high":          formatPrice(closePrice + 500),
			"low":           formatPrice(closePrice - 600),
			"volume":        12_000_000 - i*250_000,
		})
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleMarketIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"kospi": map[string]string{
			"value":          "2,512.34",
			"change":         "15.23",
			"change_percent": "+0.61%",
			"status":         "상승",
		},
		"kosdaq": map[string]string{
			"value":          "698.12",
			"change":         "-4.87",
			"change_percent": "-0.69%",
			"status":         "하락",
		},
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]interface{}, 0)
	if query == "" {
		writeJSON(w, http.StatusOK, out)
		return
	}
	for _, l := range s.listings {
		if strings.Contains(l.Name, query) || strings.HasPrefix(l.Code, query) {
			rate, _ := strconv.ParseFloat(strings.TrimSuffix(strings.TrimPrefix(l.ChangeRate, "+"), "%"), 64)
			out = append(out, map[string]interface{}{
				"name":       l.Name,
				"code":       l.Code,
				"price":      l.Price,
				"changeRate": rate,
			})
		}
	}
	writeJSON(w, http.StatusOK, out)
}
