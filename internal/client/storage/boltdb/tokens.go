package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/jobhunt/internal/client/storage"
)

// tokensKey - единственный ключ с текущей парой токенов.
// Отсутствие ключа означает, что пользователь не аутентифицирован.
var tokensKey = []byte("current")

var _ storage.TokenStorage = (*Storage)(nil)

// SaveTokens stores the token pair, replacing any previous one
func (s *Storage) SaveTokens(ctx context.Context, pair *storage.TokenPair) error {
	if !pair.Complete() {
		return storage.ErrInvalidTokenPair
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAuth)
		if bucket == nil {
			return fmt.Errorf("auth bucket not found")
		}

		data, err := json.Marshal(pair)
		if err != nil {
			return fmt.Errorf("failed to marshal token pair: %w", err)
		}

		if err := bucket.Put(tokensKey, data); err != nil {
			return fmt.Errorf("failed to save token pair: %w", err)
		}

		return nil
	})
}

// GetTokens retrieves the stored token pair
func (s *Storage) GetTokens(ctx context.Context) (*storage.TokenPair, error) {
	var pair *storage.TokenPair

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAuth)
		if bucket == nil {
			return fmt.Errorf("auth bucket not found")
		}

		data := bucket.Get(tokensKey)
		if data == nil {
			return storage.ErrTokensNotFound
		}

		pair = &storage.TokenPair{}
		if err := json.Unmarshal(data, pair); err != nil {
			return fmt.Errorf("failed to unmarshal token pair: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return pair, nil
}

// DeleteTokens removes the stored token pair (logout)
func (s *Storage) DeleteTokens(ctx context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAuth)
		if bucket == nil {
			return fmt.Errorf("auth bucket not found")
		}

		if bucket.Get(tokensKey) == nil {
			return storage.ErrTokensNotFound
		}

		if err := bucket.Delete(tokensKey); err != nil {
			return fmt.Errorf("failed to delete token pair: %w", err)
		}

		return nil
	})
}
