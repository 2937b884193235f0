package token

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/iudanet/jobhunt/internal/client/storage"
	"github.com/iudanet/jobhunt/internal/crypto"
)

// SealedStorage implements storage.TokenStorage and encrypts both tokens
// before handing the pair to the underlying storage. The Argon2id salt is
// stored alongside the sealed tokens.
type SealedStorage struct {
	backend    storage.TokenStorage
	passphrase string

	mu   sync.Mutex
	keys map[string][]byte // salt (base64) -> key, Argon2id дорогой
	salt string            // соль для новых записей
}

// Compile-time check that SealedStorage implements storage.TokenStorage
var _ storage.TokenStorage = (*SealedStorage)(nil)

// NewSealedStorage оборачивает backend слоем шифрования
func NewSealedStorage(backend storage.TokenStorage, passphrase string) *SealedStorage {
	return &SealedStorage{
		backend:    backend,
		passphrase: passphrase,
		keys:       make(map[string][]byte),
	}
}

// SaveTokens шифрует токены и сохраняет их в backend
func (s *SealedStorage) SaveTokens(ctx context.Context, pair *storage.TokenPair) error {
	if !pair.Complete() {
		return storage.ErrInvalidTokenPair
	}

	salt, key, err := s.writeKey()
	if err != nil {
		return err
	}

	access, err := crypto.Seal(pair.AccessToken, key)
	if err != nil {
		return fmt.Errorf("failed to seal access token: %w", err)
	}
	refresh, err := crypto.Seal(pair.RefreshToken, key)
	if err != nil {
		return fmt.Errorf("failed to seal refresh token: %w", err)
	}

	return s.backend.SaveTokens(ctx, &storage.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		Salt:         salt,
	})
}

// GetTokens загружает пару и расшифровывает токены.
// Запись без соли сохранена до включения шифрования и возвращается как есть;
// следующий SaveTokens ее запечатает.
func (s *SealedStorage) GetTokens(ctx context.Context) (*storage.TokenPair, error) {
	stored, err := s.backend.GetTokens(ctx)
	if err != nil {
		return nil, err
	}
	if stored.Salt == "" {
		return stored, nil
	}

	key, err := s.keyFor(stored.Salt)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.salt == "" {
		s.salt = stored.Salt
	}
	s.mu.Unlock()

	access, err := crypto.Open(stored.AccessToken, key)
	if err != nil {
		return nil, fmt.Errorf("failed to open access token: %w", err)
	}
	refresh, err := crypto.Open(stored.RefreshToken, key)
	if err != nil {
		return nil, fmt.Errorf("failed to open refresh token: %w", err)
	}

	return &storage.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// DeleteTokens удаляет данные
func (s *SealedStorage) DeleteTokens(ctx context.Context) error {
	return s.backend.DeleteTokens(ctx)
}

func (s *SealedStorage) writeKey() (string, []byte, error) {
	s.mu.Lock()
	salt := s.salt
	s.mu.Unlock()

	if salt == "" {
		raw, err := crypto.GenerateSalt()
		if err != nil {
			return "", nil, err
		}
		salt = base64.StdEncoding.EncodeToString(raw)
	}

	key, err := s.keyFor(salt)
	if err != nil {
		return "", nil, err
	}

	s.mu.Lock()
	s.salt = salt
	s.mu.Unlock()
	return salt, key, nil
}

func (s *SealedStorage) keyFor(salt string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key, ok := s.keys[salt]; ok {
		return key, nil
	}

	key, err := crypto.DeriveKeyFromBase64Salt(s.passphrase, salt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive sealing key: %w", err)
	}
	s.keys[salt] = key
	return key, nil
}
