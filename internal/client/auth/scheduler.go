package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/iudanet/jobhunt/internal/client/metrics"
	"github.com/iudanet/jobhunt/internal/client/storage"
	"github.com/iudanet/jobhunt/internal/client/token"
	pkgapi "github.com/iudanet/jobhunt/pkg/api"
)

const (
	// DefaultRefreshLead - за сколько до истечения access token запускается обновление
	DefaultRefreshLead = 5 * time.Minute
	// DefaultRefreshTimeout - таймаут фонового запроса /auth/refresh
	DefaultRefreshTimeout = 30 * time.Second
)

// SchedulerState - состояние планировщика обновления
type SchedulerState int

const (
	// SchedulerIdle - нет пары или таймер отменен
	SchedulerIdle SchedulerState = iota
	// SchedulerArmed - ровно один таймер ожидает срабатывания
	SchedulerArmed
	// SchedulerRefreshing - запрос /auth/refresh в полете
	SchedulerRefreshing
)

func (s SchedulerState) String() string {
	switch s {
	case SchedulerIdle:
		return "idle"
	case SchedulerArmed:
		return "armed"
	case SchedulerRefreshing:
		return "refreshing"
	default:
		return fmt.Sprintf("SchedulerState(%d)", int(s))
	}
}

// Refresher - эндпоинт обмена refresh token
type Refresher interface {
	Refresh(ctx context.Context, req pkgapi.RefreshRequest) (*pkgapi.TokenResponse, error)
}

// SchedulerConfig - параметры планировщика; нулевые значения заменяются значениями по умолчанию
type SchedulerConfig struct {
	Clock   Clock
	Metrics *metrics.Metrics
	Lead    time.Duration
	Timeout time.Duration
}

// Scheduler refreshes the token pair shortly before the access token expires.
// It keeps at most one pending timer: every pair change stops the old timer
// before arming a new one. A failed refresh closes the session; there is no
// automatic retry.
type Scheduler struct {
	store     *token.Store
	refresher Refresher
	clock     Clock
	logger    *slog.Logger
	metrics   *metrics.Metrics
	group     singleflight.Group
	lead      time.Duration
	timeout   time.Duration

	mu     sync.Mutex
	state  SchedulerState
	timer  Timer
	gen    uint64 // увеличивается при каждой отмене таймера; устаревшие колбэки сверяют его
	wakeAt time.Time
}

// NewScheduler создает планировщик. Подписку на store выполняет вызывающий код (HandleTokens).
func NewScheduler(store *token.Store, refresher Refresher, cfg SchedulerConfig, logger *slog.Logger) *Scheduler {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.Lead <= 0 {
		cfg.Lead = DefaultRefreshLead
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRefreshTimeout
	}

	return &Scheduler{
		store:     store,
		refresher: refresher,
		clock:     cfg.Clock,
		logger:    logger,
		metrics:   cfg.Metrics,
		lead:      cfg.Lead,
		timeout:   cfg.Timeout,
	}
}

// HandleTokens реагирует на мутацию TokenStore: перевзводит таймер или переходит в Idle
func (s *Scheduler) HandleTokens(snap token.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.disarmLocked()
	if !snap.Present() {
		s.state = SchedulerIdle
		return
	}
	s.armLocked(snap.Pair)
}

// Stop отменяет ожидающий таймер (logout, завершение работы)
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.disarmLocked()
	s.state = SchedulerIdle
}

// State возвращает текущее состояние
func (s *Scheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// NextRefresh возвращает время ближайшего запланированного обновления
func (s *Scheduler) NextRefresh() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SchedulerArmed {
		return time.Time{}, false
	}
	return s.wakeAt, true
}

// Refresh немедленно обновляет пару. Параллельные вызовы (таймер и ручной)
// объединяются в один запрос.
func (s *Scheduler) Refresh(ctx context.Context) error {
	_, err, _ := s.group.Do("refresh", func() (any, error) {
		return nil, s.refresh(ctx)
	})
	return err
}

// delayFor: exp - lead, но не раньше now. Нечитаемый токен считается истекшим.
func (s *Scheduler) delayFor(accessToken string, now time.Time) time.Duration {
	exp, err := token.DecodeExpiry(accessToken)
	if err != nil {
		s.logger.Warn("access token expiry unreadable, refreshing immediately", "error", err)
		return 0
	}

	delay := exp.Add(-s.lead).Sub(now)
	if delay < 0 {
		return 0
	}
	return delay
}

func (s *Scheduler) armLocked(pair *storage.TokenPair) {
	now := s.clock.Now()
	delay := s.delayFor(pair.AccessToken, now)

	gen := s.gen
	s.state = SchedulerArmed
	s.wakeAt = now.Add(delay)
	s.timer = s.clock.AfterFunc(delay, func() { s.fire(gen) })

	s.logger.Debug("token refresh scheduled", "in", delay.Round(time.Second), "at", s.wakeAt.Format(time.RFC3339))
}

func (s *Scheduler) disarmLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	s.wakeAt = time.Time{}
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if s.gen != gen || s.state != SchedulerArmed {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("scheduled token refresh failed", "error", err)
	}
}

func (s *Scheduler) refresh(ctx context.Context) error {
	snap := s.store.Snapshot()
	if !snap.Present() {
		return ErrNotAuthenticated
	}

	s.mu.Lock()
	s.disarmLocked()
	s.state = SchedulerRefreshing
	gen := s.gen
	s.mu.Unlock()
	defer s.settle(gen)

	resp, err := s.refresher.Refresh(ctx, pkgapi.RefreshRequest{RefreshToken: snap.Pair.RefreshToken})
	if err != nil {
		s.fail(ctx, snap.Epoch, err)
		return fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	rotated, err := s.store.Rotate(context.WithoutCancel(ctx), snap.Epoch, &storage.TokenPair{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	})
	if err != nil {
		s.fail(ctx, snap.Epoch, err)
		return fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	if !rotated {
		// logout или новый login, пока шел запрос: результат не должен воскресить сессию
		s.metrics.Refresh(metrics.RefreshDiscarded)
		s.logger.Debug("refresh result discarded, session changed while in flight")
		return ErrSessionSuperseded
	}

	s.metrics.Refresh(metrics.RefreshSuccess)
	s.logger.Debug("token pair refreshed")
	return nil
}

// fail закрывает сессию epoch: очистка store уведомит кэш и сам планировщик
func (s *Scheduler) fail(ctx context.Context, epoch uint64, cause error) {
	s.metrics.Refresh(metrics.RefreshFailure)

	cleared, err := s.store.ClearIf(context.WithoutCancel(ctx), epoch)
	if err != nil {
		// в памяти сессия закрыта, на диске пара осталась
		s.logger.Error("failed to delete stored session after refresh failure", "error", err)
	}
	if cleared {
		s.metrics.SessionEnded(metrics.ReasonRefreshFailed)
		s.logger.Warn("session closed: token refresh failed", "error", cause)
	}
}

// settle возвращает Idle, если за время запроса никто не перевзвел планировщик
func (s *Scheduler) settle(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen && s.state == SchedulerRefreshing {
		s.state = SchedulerIdle
	}
}
