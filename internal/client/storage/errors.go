package storage

import "errors"

// Common client storage errors
var (
	// ErrTokensNotFound indicates that no token pair is stored
	ErrTokensNotFound = errors.New("token pair not found")

	// ErrInvalidTokenPair indicates an attempt to persist a partial pair
	ErrInvalidTokenPair = errors.New("token pair must contain both access and refresh tokens")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
