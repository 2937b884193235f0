package storage

import (
	"context"
	"sync"
)

// Memory is an in-process TokenStorage. It does not survive restarts and is
// meant for tests and ephemeral sessions.
type Memory struct {
	pair *TokenPair
	mu   sync.Mutex

	// SaveErr, GetErr and DeleteErr force the matching call to fail
	SaveErr   error
	GetErr    error
	DeleteErr error
}

var _ TokenStorage = (*Memory)(nil)

// NewMemory создает пустое in-memory хранилище
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) SaveTokens(ctx context.Context, pair *TokenPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.pair = pair.Clone()
	return nil
}

func (m *Memory) GetTokens(ctx context.Context) (*TokenPair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if m.pair == nil {
		return nil, ErrTokensNotFound
	}
	return m.pair.Clone(), nil
}

func (m *Memory) DeleteTokens(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	if m.pair == nil {
		return ErrTokensNotFound
	}
	m.pair = nil
	return nil
}
