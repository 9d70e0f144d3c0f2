package mockbackend

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Nickname string `json:"nickname"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "이메일과 비밀번호를 입력해주세요.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[req.Email]; exists {
		writeError(w, http.StatusBadRequest, "이미 가입된 이메일입니다.")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "회원가입 처리 중 오류가 발생했습니다.")
		return
	}
	s.accounts[req.Email] = &account{
		Email:        req.Email,
		Nickname:     req.Nickname,
		DateJoined:   "2026-01-01T09:00:00+09:00",
		PasswordHash: hash,
		CashBalance:  10_000_000,
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"email":    req.Email,
		"nickname": req.Nickname,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "잘못된 요청입니다.")
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[req.Email]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, DetailInvalidCredentials)
		return
	}

	access, refresh := s.MintTokens(req.Email, s.accessTTL)
	writeJSON(w, http.StatusOK, map[string]string{
		"access":  access,
		"refresh": refresh,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Refresh == "" {
		writeError(w, http.StatusBadRequest, "잘못된 요청입니다.")
		return
	}

	email, err := s.validateToken(req.Refresh, "refresh")
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "Token is invalid or expired",
			"code":   "token_not_valid",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"access": s.signToken(email, "access", s.accessTTL),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Refresh == "" {
		writeError(w, http.StatusBadRequest, "잘못된 요청입니다.")
		return
	}

	// Revoke by jti regardless of expiry so a stale refresh token can
	// still be blacklisted.
	token, _, err := jwt.NewParser().ParseUnverified(req.Refresh, jwt.MapClaims{})
	if err == nil {
		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			if jti, _ := claims["jti"].(string); jti != "" {
				s.mu.Lock()
				s.revoked[jti] = true
				s.mu.Unlock()
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"detail": "로그아웃 되었습니다."})
}

func (s *Server) handleMyPage(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	acct, ok := s.accounts[requestEmail(r)]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "사용자를 찾을 수 없습니다.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"email":        acct.Email,
		"nickname":     acct.Nickname,
		"date_joined":  acct.DateJoined,
		"cash_balance": fmt.Sprintf("%.2f", acct.CashBalance),
	})
}

func (s *Server) handlePasswordChange(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "잘못된 요청입니다.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[requestEmail(r)]
	if !ok {
		writeError(w, http.StatusNotFound, "사용자를 찾을 수 없습니다.")
		return
	}
	if bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(req.OldPassword)) != nil {
		writeError(w, http.StatusBadRequest, "기존 비밀번호가 일치하지 않습니다.")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "비밀번호 변경 중 오류가 발생했습니다.")
		return
	}
	acct.PasswordHash = hash

	writeJSON(w, http.StatusOK, map[string]string{"detail": "비밀번호가 변경되었습니다."})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	delete(s.accounts, requestEmail(r))
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAssetHistory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	history := make([]assetSnapshot, len(s.history))
	copy(history, s.history)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, history)
}
