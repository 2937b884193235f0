package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/iudanet/jobhunt/internal/client/storage"
)

// Snapshot - состояние хранилища в момент чтения.
// Epoch идентифицирует сессию: меняется при Set и Clear, но не при Rotate.
// Асинхронные продолжения запоминают Epoch и отбрасывают результат, если он устарел.
type Snapshot struct {
	Pair  *storage.TokenPair
	Epoch uint64
}

// Present сообщает, есть ли в снимке пара токенов
func (s Snapshot) Present() bool {
	return s.Pair != nil
}

// Listener получает уведомление после каждой мутации хранилища.
// Вызывается синхронно; не должен мутировать Store из того же стека.
type Listener func(Snapshot)

// Store is the durable holder of the current token pair.
// Set and Rotate are persisted before they become visible. Clear always drops
// the in-memory pair, even when the backend delete fails, so a session that
// could not be removed from disk is still ended for this process.
// Mutations are delivered to listeners in registration order, one at a time.
type Store struct {
	backend storage.TokenStorage
	logger  *slog.Logger

	// writeMu сериализует мутации вместе с рассылкой уведомлений
	writeMu sync.Mutex

	mu        sync.RWMutex
	current   *storage.TokenPair
	epoch     uint64
	listeners []Listener
}

// NewStore загружает сохраненную пару из backend.
// Частичная пара в хранилище считается отсутствующей и удаляется.
func NewStore(ctx context.Context, backend storage.TokenStorage, logger *slog.Logger) (*Store, error) {
	s := &Store{
		backend: backend,
		logger:  logger,
	}

	pair, err := backend.GetTokens(ctx)
	switch {
	case errors.Is(err, storage.ErrTokensNotFound):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to load token pair: %w", err)
	}

	if !pair.Complete() {
		logger.Warn("discarding incomplete stored token pair")
		if err := backend.DeleteTokens(ctx); err != nil && !errors.Is(err, storage.ErrTokensNotFound) {
			return nil, fmt.Errorf("failed to delete incomplete token pair: %w", err)
		}
		return s, nil
	}

	s.current = pair
	s.epoch = 1
	return s, nil
}

// Subscribe регистрирует слушателя мутаций
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Get возвращает копию текущей пары или nil
func (s *Store) Get() *storage.TokenPair {
	return s.Snapshot().Pair
}

// Snapshot возвращает текущую пару вместе с эпохой сессии
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Pair: s.current.Clone(), Epoch: s.epoch}
}

// Set сохраняет пару как начало новой сессии (login/register)
func (s *Store) Set(ctx context.Context, pair *storage.TokenPair) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.persist(ctx, pair); err != nil {
		return err
	}

	s.mu.Lock()
	s.current = pair.Clone()
	s.epoch++
	s.mu.Unlock()

	s.notify()
	return nil
}

// Rotate заменяет пару внутри сессии epoch (refresh).
// Возвращает false без изменений, если сессия уже сменилась или закрыта.
func (s *Store) Rotate(ctx context.Context, epoch uint64, pair *storage.TokenPair) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !s.matches(epoch) {
		return false, nil
	}

	if err := s.persist(ctx, pair); err != nil {
		return false, err
	}

	s.mu.Lock()
	s.current = pair.Clone()
	s.mu.Unlock()

	s.notify()
	return true, nil
}

// Clear удаляет пару. Очистка пустого хранилища не ошибка.
// Ошибка backend возвращается уже после того, как сессия закрыта в памяти.
func (s *Store) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.clearLocked(ctx)
	return err
}

// ClearIf удаляет пару только если сессия epoch еще актуальна.
// cleared == true означает, что сессия закрыта, даже если err != nil.
func (s *Store) ClearIf(ctx context.Context, epoch uint64) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !s.matches(epoch) {
		return false, nil
	}
	return s.clearLocked(ctx)
}

func (s *Store) clearLocked(ctx context.Context) (bool, error) {
	var deleteErr error
	if err := s.backend.DeleteTokens(ctx); err != nil && !errors.Is(err, storage.ErrTokensNotFound) {
		deleteErr = fmt.Errorf("failed to delete token pair: %w", err)
	}

	s.mu.Lock()
	wasPresent := s.current != nil
	s.current = nil
	if wasPresent {
		s.epoch++
	}
	s.mu.Unlock()

	if wasPresent {
		s.notify()
	}
	return wasPresent, deleteErr
}

func (s *Store) persist(ctx context.Context, pair *storage.TokenPair) error {
	if !pair.Complete() {
		return storage.ErrInvalidTokenPair
	}
	if err := s.backend.SaveTokens(ctx, pair); err != nil {
		return fmt.Errorf("failed to save token pair: %w", err)
	}
	return nil
}

func (s *Store) matches(epoch uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil && s.epoch == epoch
}

// notify вызывается под writeMu, поэтому слушатели видят мутации по одной
func (s *Store) notify() {
	s.mu.RLock()
	snap := Snapshot{Pair: s.current.Clone(), Epoch: s.epoch}
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, l := range listeners {
		l(Snapshot{Pair: snap.Pair.Clone(), Epoch: snap.Epoch})
	}
}
