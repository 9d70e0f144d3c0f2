package interfaces

import "context"

// Credential key names under which the token pair is stored.
const (
	CredentialAccessToken  = "accessToken"
	CredentialRefreshToken = "refreshToken"
)

// CredentialStore holds the access/refresh credential pair. An absent key
// is not an error: Get returns ("", nil), matching web-storage semantics.
// Only the trading client's refresh path and the session service write it.
type CredentialStore interface {
	Get(ctx context.Context, name string) (string, error)
	Set(ctx context.Context, name, value string) error
	Clear(ctx context.Context, name string) error
	Close() error
}
