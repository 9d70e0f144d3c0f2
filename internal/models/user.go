// Package models defines the wire and domain types for papertrade
package models

// TokenPair is the credential pair issued at login. Both tokens are
// present when logged in, both absent when logged out.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// LoginRequest is the payload for POST /api/users/login/
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest is the payload for POST /api/users/signup/
type SignupRequest struct {
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

// RefreshRequest is the payload for POST /api/users/login/refresh/
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// RefreshResponse carries the newly minted access token.
type RefreshResponse struct {
	Access string `json:"access"`
}

// LogoutRequest blacklists the refresh token server-side.
type LogoutRequest struct {
	Refresh string `json:"refresh"`
}

// PasswordChangeRequest is the payload for PUT /api/users/password/change/
type PasswordChangeRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// UserProfile is the response of GET /api/users/mypage/.
// CashBalance arrives as a decimal string.
type UserProfile struct {
	Email       string      `json:"email"`
	Nickname    string      `json:"nickname"`
	DateJoined  string      `json:"date_joined"`
	CashBalance PriceString `json:"cash_balance"`
}

// AssetSnapshot is one monthly entry of GET /api/users/asset-history/.
type AssetSnapshot struct {
	Month string      `json:"month"`
	Value PriceString `json:"value"`
}
