package token

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/jobhunt/internal/client/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, backend storage.TokenStorage) *Store {
	t.Helper()
	s, err := NewStore(context.Background(), backend, discardLogger())
	require.NoError(t, err)
	return s
}

func pair(access, refresh string) *storage.TokenPair {
	return &storage.TokenPair{AccessToken: access, RefreshToken: refresh}
}

func TestNewStore_Empty(t *testing.T) {
	s := newTestStore(t, storage.NewMemory())

	assert.Nil(t, s.Get())
	snap := s.Snapshot()
	assert.False(t, snap.Present())
	assert.Zero(t, snap.Epoch)
}

func TestNewStore_LoadsPersistedPair(t *testing.T) {
	backend := storage.NewMemory()
	require.NoError(t, backend.SaveTokens(context.Background(), pair("a", "r")))

	s := newTestStore(t, backend)

	assert.Equal(t, pair("a", "r"), s.Get())
	assert.Equal(t, uint64(1), s.Snapshot().Epoch)
}

func TestNewStore_DropsPartialPair(t *testing.T) {
	backend := storage.NewMemory()
	// Memory не валидирует, поэтому частичную пару можно подложить
	require.NoError(t, backend.SaveTokens(context.Background(), &storage.TokenPair{AccessToken: "a"}))

	s := newTestStore(t, backend)

	assert.Nil(t, s.Get())
	_, err := backend.GetTokens(context.Background())
	assert.ErrorIs(t, err, storage.ErrTokensNotFound)
}

func TestNewStore_BackendError(t *testing.T) {
	backend := storage.NewMemory()
	backend.GetErr = errors.New("disk on fire")

	_, err := NewStore(context.Background(), backend, discardLogger())
	assert.ErrorContains(t, err, "disk on fire")
}

func TestStore_SetPersistsAndNotifiesInOrder(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	s := newTestStore(t, backend)

	var calls []string
	s.Subscribe(func(snap Snapshot) {
		// к моменту уведомления пара уже на диске
		stored, err := backend.GetTokens(ctx)
		require.NoError(t, err)
		assert.Equal(t, snap.Pair, stored)
		calls = append(calls, "first")
	})
	s.Subscribe(func(Snapshot) { calls = append(calls, "second") })

	require.NoError(t, s.Set(ctx, pair("a", "r")))

	assert.Equal(t, []string{"first", "second"}, calls)
	assert.Equal(t, pair("a", "r"), s.Get())
}

func TestStore_SetRejectsPartialPair(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, storage.NewMemory())

	notified := false
	s.Subscribe(func(Snapshot) { notified = true })

	err := s.Set(ctx, &storage.TokenPair{AccessToken: "a"})
	assert.ErrorIs(t, err, storage.ErrInvalidTokenPair)
	assert.False(t, notified)
	assert.Nil(t, s.Get())
}

func TestStore_SetBackendFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	s := newTestStore(t, backend)
	require.NoError(t, s.Set(ctx, pair("a", "r")))
	epoch := s.Snapshot().Epoch

	backend.SaveErr = errors.New("read-only filesystem")
	err := s.Set(ctx, pair("a2", "r2"))
	require.Error(t, err)

	snap := s.Snapshot()
	assert.Equal(t, pair("a", "r"), snap.Pair)
	assert.Equal(t, epoch, snap.Epoch)
}

func TestStore_EpochSemantics(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, storage.NewMemory())

	require.NoError(t, s.Set(ctx, pair("a1", "r1")))
	first := s.Snapshot().Epoch

	// Rotate внутри той же сессии не меняет эпоху
	ok, err := s.Rotate(ctx, first, pair("a2", "r2"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, first, s.Snapshot().Epoch)
	assert.Equal(t, pair("a2", "r2"), s.Get())

	// Новый Set - новая сессия
	require.NoError(t, s.Set(ctx, pair("b1", "s1")))
	second := s.Snapshot().Epoch
	assert.NotEqual(t, first, second)

	// Rotate со старой эпохой отбрасывается
	ok, err = s.Rotate(ctx, first, pair("stale", "stale"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, pair("b1", "s1"), s.Get())

	// ClearIf со старой эпохой не трогает текущую сессию
	cleared, err := s.ClearIf(ctx, first)
	require.NoError(t, err)
	assert.False(t, cleared)
	assert.NotNil(t, s.Get())

	cleared, err = s.ClearIf(ctx, second)
	require.NoError(t, err)
	assert.True(t, cleared)
	assert.Nil(t, s.Get())
	assert.NotEqual(t, second, s.Snapshot().Epoch)
}

func TestStore_ClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	s := newTestStore(t, backend)

	var snaps []Snapshot
	s.Subscribe(func(snap Snapshot) { snaps = append(snaps, snap) })

	require.NoError(t, s.Set(ctx, pair("a", "r")))
	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))

	require.Len(t, snaps, 2, "повторный Clear не уведомляет")
	assert.True(t, snaps[0].Present())
	assert.False(t, snaps[1].Present())

	_, err := backend.GetTokens(ctx)
	assert.ErrorIs(t, err, storage.ErrTokensNotFound)
}

func TestStore_ClearBackendFailure(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	s := newTestStore(t, backend)
	require.NoError(t, s.Set(ctx, pair("a", "r")))

	var snaps []Snapshot
	s.Subscribe(func(snap Snapshot) { snaps = append(snaps, snap) })
	epoch := s.Snapshot().Epoch

	backend.DeleteErr = errors.New("locked")
	require.ErrorIs(t, s.Clear(ctx), backend.DeleteErr)

	// сессия закрыта в памяти, хотя на диске пара осталась
	assert.Nil(t, s.Get())
	assert.NotEqual(t, epoch, s.Snapshot().Epoch)
	require.Len(t, snaps, 1)
	assert.False(t, snaps[0].Present())
}

func TestStore_ClearIfBackendFailureStillCloses(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	s := newTestStore(t, backend)
	require.NoError(t, s.Set(ctx, pair("a", "r")))
	epoch := s.Snapshot().Epoch

	backend.DeleteErr = errors.New("disk full")
	cleared, err := s.ClearIf(ctx, epoch)
	require.ErrorIs(t, err, backend.DeleteErr)
	assert.True(t, cleared)
	assert.False(t, s.Snapshot().Present())

	// повторный ClearIf со старой эпохой ничего не делает
	cleared, err = s.ClearIf(ctx, epoch)
	require.NoError(t, err)
	assert.False(t, cleared)
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, storage.NewMemory())
	require.NoError(t, s.Set(ctx, pair("a", "r")))

	got := s.Get()
	got.AccessToken = "mutated"

	assert.Equal(t, "a", s.Get().AccessToken)
}
