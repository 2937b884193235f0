package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"

	clientapi "github.com/iudanet/jobhunt/internal/client/api"
	"github.com/iudanet/jobhunt/internal/client/metrics"
	"github.com/iudanet/jobhunt/internal/client/token"
	pkgapi "github.com/iudanet/jobhunt/pkg/api"
)

// DefaultRetryBase - начальная задержка повторов запроса пользователя
const DefaultRetryBase = 500 * time.Millisecond

// UserFetcher - эндпоинт текущего пользователя
type UserFetcher interface {
	Me(ctx context.Context) (*pkgapi.User, error)
}

// SessionConfig - параметры кэша сессии
type SessionConfig struct {
	Metrics *metrics.Metrics
	// Retries - число повторов при транспортных ошибках; 0 отключает повторы
	Retries   uint64
	RetryBase time.Duration
}

// SessionCache holds the current user for the session that fetched it.
// The cached user belongs to one store epoch: a new login drops it, a token
// rotation keeps it, and a cleared store clears it.
type SessionCache struct {
	store     *token.Store
	fetcher   UserFetcher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	retries   uint64
	retryBase time.Duration

	inflight atomic.Int32

	mu    sync.RWMutex
	user  *pkgapi.User
	epoch uint64
	// settled: запрос пользователя для epoch уже завершился
	settled bool
}

// NewSessionCache создает кэш. Подписку на store выполняет вызывающий код (HandleTokens).
func NewSessionCache(store *token.Store, fetcher UserFetcher, cfg SessionConfig, logger *slog.Logger) *SessionCache {
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = DefaultRetryBase
	}

	return &SessionCache{
		store:     store,
		fetcher:   fetcher,
		logger:    logger,
		metrics:   cfg.Metrics,
		retries:   cfg.Retries,
		retryBase: cfg.RetryBase,
		epoch:     store.Snapshot().Epoch,
	}
}

// HandleTokens реагирует на мутацию TokenStore
func (c *SessionCache) HandleTokens(snap token.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !snap.Present() || snap.Epoch != c.epoch {
		c.user = nil
		c.settled = false
	}
	c.epoch = snap.Epoch
}

// User возвращает пользователя, если он получен в рамках текущей сессии
func (c *SessionCache) User() *pkgapi.User {
	snap := c.store.Snapshot()

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.user == nil || !snap.Present() || c.epoch != snap.Epoch {
		return nil
	}
	u := *c.user
	return &u
}

// Invalidate сбрасывает пользователя: следующее чтение потребует Fetch
func (c *SessionCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = nil
	c.settled = false
}

// Clear очищает кэш (logout)
func (c *SessionCache) Clear() {
	c.Invalidate()
}

// Loading сообщает, выполняется ли сейчас запрос пользователя
func (c *SessionCache) Loading() bool {
	return c.inflight.Load() > 0
}

// Pending: пара есть, но пользователь этой сессии еще ни разу не запрашивался
// (например, сохраненная сессия до Start)
func (c *SessionCache) Pending() bool {
	snap := c.store.Snapshot()

	c.mu.RLock()
	defer c.mu.RUnlock()

	if !snap.Present() {
		return false
	}
	if c.epoch != snap.Epoch {
		return true
	}
	return c.user == nil && !c.settled
}

// Fetch запрашивает текущего пользователя.
// Без пары токенов запрос не выполняется и возвращается nil, nil.
// Ошибка запроса закрывает сессию, в которой он был начат.
func (c *SessionCache) Fetch(ctx context.Context) (*pkgapi.User, error) {
	snap := c.store.Snapshot()
	if !snap.Present() {
		c.Clear()
		return nil, nil
	}

	c.inflight.Add(1)
	defer c.inflight.Add(-1)

	user, err := c.fetch(ctx)
	if err != nil {
		c.endSession(ctx, snap.Epoch, err)
		return nil, fmt.Errorf("failed to fetch current user: %w", err)
	}

	// проверка эпохи под c.mu: HandleTokens новой сессии не может проскочить между проверкой и записью
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.store.Snapshot()
	if !current.Present() || current.Epoch != snap.Epoch {
		c.logger.Debug("discarding user fetched for a superseded session", "user_id", user.ID)
		return nil, ErrSessionSuperseded
	}

	c.user = user
	c.epoch = snap.Epoch
	c.settled = true

	u := *user
	return &u, nil
}

func (c *SessionCache) fetch(ctx context.Context) (*pkgapi.User, error) {
	if c.retries == 0 {
		return c.fetcher.Me(ctx)
	}

	var user *pkgapi.User
	backoff := retry.WithMaxRetries(c.retries, retry.NewExponential(c.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		u, err := c.fetcher.Me(ctx)
		if err != nil {
			// повторяем только сетевые сбои; ответ сервера (401, 5xx) окончательный
			if errors.Is(err, clientapi.ErrTransport) {
				c.logger.Debug("user fetch failed, retrying", "error", err)
				return retry.RetryableError(err)
			}
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (c *SessionCache) endSession(ctx context.Context, epoch uint64, cause error) {
	cleared, err := c.store.ClearIf(context.WithoutCancel(ctx), epoch)
	if err != nil {
		c.logger.Error("failed to delete stored session after user fetch failure", "error", err)
	}
	if cleared {
		c.metrics.SessionEnded(metrics.ReasonFetchFailed)
		c.logger.Warn("session closed: current user fetch failed", "error", cause)
	}
}
