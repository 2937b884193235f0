package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/jobhunt/internal/client/storage"
)

var _ storage.TokenStorage = (*Storage)(nil)

// SaveTokens stores the token pair, replacing any previous one
func (s *Storage) SaveTokens(ctx context.Context, pair *storage.TokenPair) error {
	if !pair.Complete() {
		return storage.ErrInvalidTokenPair
	}

	query := `
		INSERT INTO token_pairs (id, access_token, refresh_token, salt, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			salt = excluded.salt,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		pair.AccessToken,
		pair.RefreshToken,
		pair.Salt,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save token pair: %w", err)
	}

	return nil
}

// GetTokens retrieves the stored token pair
func (s *Storage) GetTokens(ctx context.Context) (*storage.TokenPair, error) {
	query := `
		SELECT access_token, refresh_token, salt
		FROM token_pairs
		WHERE id = 1
	`

	pair := &storage.TokenPair{}
	err := s.db.QueryRowContext(ctx, query).Scan(
		&pair.AccessToken,
		&pair.RefreshToken,
		&pair.Salt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrTokensNotFound
		}
		return nil, fmt.Errorf("failed to get token pair: %w", err)
	}

	return pair, nil
}

// DeleteTokens removes the stored token pair (logout)
func (s *Storage) DeleteTokens(ctx context.Context) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM token_pairs WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("failed to delete token pair: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrTokensNotFound
	}

	return nil
}
