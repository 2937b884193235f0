package storage

import (
	"context"
)

// TokenStorage defines interface for durable storage of the current token pair.
// This is the lowest storage layer - it persists the pair as-is and doesn't
// interpret or validate token contents.
type TokenStorage interface {
	// SaveTokens replaces the stored pair. Must be durable before returning.
	SaveTokens(ctx context.Context, pair *TokenPair) error

	// GetTokens retrieves the stored pair.
	// Returns ErrTokensNotFound if no pair is stored
	GetTokens(ctx context.Context) (*TokenPair, error)

	// DeleteTokens removes the stored pair (logout).
	// Returns ErrTokensNotFound if no pair is stored
	DeleteTokens(ctx context.Context) error
}

// TokenPair represents the access/refresh token pair issued by the auth service.
// IMPORTANT: This struct is used at different layers with different token states:
// - In memory (token.Store, auth services): tokens are plaintext, Salt is empty
// - In storage with a passphrase configured: tokens are sealed (base64 ciphertext)
// and Salt holds the key derivation salt
// The sealing happens in token.SealedStorage.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Salt         string `json:"salt,omitempty"`
}

// Complete сообщает, что оба токена присутствуют.
// Частичные пары не сохраняются.
func (p *TokenPair) Complete() bool {
	return p != nil && p.AccessToken != "" && p.RefreshToken != ""
}

// Clone возвращает независимую копию пары
func (p *TokenPair) Clone() *TokenPair {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
