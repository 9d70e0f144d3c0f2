package mockbackend

import "golang.org/x/crypto/bcrypt"

// Seed fixtures for the demo account.
const (
	SeedEmail    = "investor@example.com"
	SeedPassword = "password123!"
	SeedNickname = "김투자"
)

func (s *Server) seed() {
	hash, _ := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcrypt.DefaultCost)
	s.accounts[SeedEmail] = &account{
		Email:        SeedEmail,
		Nickname:     SeedNickname,
		DateJoined:   "2025-09-15T09:00:00+09:00",
		PasswordHash: hash,
		CashBalance:  3_245_000,
	}

	s.positions = []position{
		{Code: "005930", Name: "삼성전자", Quantity: 50, AvgPrice: 65_000},
		{Code: "066570", Name: "LG전자", Quantity: 30, AvgPrice: 92_000},
		{Code: "035420", Name: "NAVER", Quantity: 5, AvgPrice: 185_000},
	}

	for _, l := range []listing{
		{Code: "005930", Name: "삼성전자", Price: 68_500, Change: 1_200, ChangeRate: "+1.78%", Status: "상승"},
		{Code: "066570", Name: "LG전자", Price: 97_400, Change: 5_400, ChangeRate: "+5.87%", Status: "상승"},
		{Code: "035420", Name: "NAVER", Price: 178_600, Change: -6_400, ChangeRate: "-3.46%", Status: "하락"},
		{Code: "035720", Name: "카카오", Price: 45_500, Change: 500, ChangeRate: "+1.11%", Status: "상승"},
	} {
		s.listings[l.Code] = l
	}

	s.history = []assetSnapshot{
		{Month: "1월", Value: "8000000"},
		{Month: "2월", Value: "8500000"},
		{Month: "3월", Value: "8200000"},
		{Month: "4월", Value: "9000000"},
		{Month: "5월", Value: "8800000"},
		{Month: "6월", Value: "9500000"},
		{Month: "7월", Value: "9200000"},
		{Month: "8월", Value: "10000000"},
		{Month: "9월", Value: "10500000"},
	}
}
