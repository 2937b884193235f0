package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	clientapi "github.com/iudanet/jobhunt/internal/client/api"
	"github.com/iudanet/jobhunt/internal/client/metrics"
	"github.com/iudanet/jobhunt/internal/client/storage"
	"github.com/iudanet/jobhunt/internal/client/token"
	"github.com/iudanet/jobhunt/internal/validation"
	pkgapi "github.com/iudanet/jobhunt/pkg/api"
)

// State - состояние сессии с точки зрения потребителя
type State int

const (
	// StateUnauthenticated - пары токенов нет
	StateUnauthenticated State = iota
	// StateAuthenticating - login/register или загрузка пользователя в процессе
	StateAuthenticating
	// StateAuthenticated - есть пара и пользователь
	StateAuthenticated
	// StateRefreshing - выполняется обновление токенов
	StateRefreshing
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// SessionState - снимок сессии для потребителей
type SessionState struct {
	User            *pkgapi.User
	IsLoading       bool
	IsAuthenticated bool
}

// RegisterInput - данные регистрации
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Config - параметры Facade; нулевые значения заменяются значениями по умолчанию
type Config struct {
	Clock            Clock
	Metrics          *metrics.Metrics
	RefreshLead      time.Duration
	RefreshTimeout   time.Duration
	RetryBase        time.Duration
	UserFetchRetries uint64
}

// Facade is the only entry point consumers use for authentication.
// It owns the scheduler and the session cache and wires both to the store.
type Facade struct {
	store     *token.Store
	client    clientapi.ClientAPI
	scheduler *Scheduler
	cache     *SessionCache
	logger    *slog.Logger
	metrics   *metrics.Metrics

	authenticating atomic.Int32
}

// NewFacade создает Facade и подписывает планировщик и кэш на store.
// Запросы client должны идти через Authenticator, построенный на том же store.
func NewFacade(store *token.Store, client clientapi.ClientAPI, cfg Config, logger *slog.Logger) *Facade {
	f := &Facade{
		store:   store,
		client:  client,
		logger:  logger,
		metrics: cfg.Metrics,
		scheduler: NewScheduler(store, client, SchedulerConfig{
			Clock:   cfg.Clock,
			Metrics: cfg.Metrics,
			Lead:    cfg.RefreshLead,
			Timeout: cfg.RefreshTimeout,
		}, logger),
		cache: NewSessionCache(store, client, SessionConfig{
			Metrics:   cfg.Metrics,
			Retries:   cfg.UserFetchRetries,
			RetryBase: cfg.RetryBase,
		}, logger),
	}

	// порядок важен: таймер перевзводится до того, как кэш сбросит пользователя
	store.Subscribe(f.scheduler.HandleTokens)
	store.Subscribe(f.cache.HandleTokens)
	store.Subscribe(f.observe)

	return f
}

// Start восстанавливает сохраненную сессию: взводит таймер и загружает пользователя.
// Если access token уже истек, сначала обновляет пару.
func (f *Facade) Start(ctx context.Context) (*pkgapi.User, error) {
	snap := f.store.Snapshot()
	if !snap.Present() {
		f.logger.Debug("no stored session")
		return nil, nil
	}

	exp, err := token.DecodeExpiry(snap.Pair.AccessToken)
	if err != nil || !exp.After(f.scheduler.clock.Now()) {
		f.logger.Info("stored access token expired, refreshing")
		if err := f.scheduler.Refresh(ctx); err != nil {
			return nil, err
		}
	} else {
		f.scheduler.HandleTokens(snap)
	}

	return f.cache.Fetch(ctx)
}

// Login выполняет вход. При ошибке сервера состояние не меняется.
func (f *Facade) Login(ctx context.Context, email, password string) (*pkgapi.User, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidateLoginPassword(password); err != nil {
		return nil, err
	}

	f.authenticating.Add(1)
	defer f.authenticating.Add(-1)

	resp, err := f.client.Login(ctx, pkgapi.LoginRequest{Email: email, Password: password})
	f.metrics.AuthAttempt("login", err)
	if err != nil {
		return nil, err
	}

	return f.establish(ctx, resp)
}

// Register регистрирует пользователя и открывает сессию
func (f *Facade) Register(ctx context.Context, in RegisterInput) (*pkgapi.User, error) {
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	if err := validation.ValidateName("first name", in.FirstName); err != nil {
		return nil, err
	}
	if err := validation.ValidateName("last name", in.LastName); err != nil {
		return nil, err
	}

	f.authenticating.Add(1)
	defer f.authenticating.Add(-1)

	resp, err := f.client.Register(ctx, pkgapi.RegisterRequest{
		Email:     in.Email,
		Password:  in.Password,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	})
	f.metrics.AuthAttempt("register", err)
	if err != nil {
		return nil, err
	}

	return f.establish(ctx, resp)
}

// establish сохраняет новую пару и дожидается загрузки пользователя
func (f *Facade) establish(ctx context.Context, resp *pkgapi.TokenResponse) (*pkgapi.User, error) {
	pair := &storage.TokenPair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	if err := f.store.Set(ctx, pair); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	f.cache.Invalidate()

	user, err := f.cache.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	f.logger.Info("session established", "user_id", user.ID)
	return user, nil
}

// Logout закрывает сессию из любого состояния.
// Ошибка означает только, что пару не удалось удалить с диска.
func (f *Facade) Logout(ctx context.Context) error {
	wasPresent := f.store.Snapshot().Present()

	f.scheduler.Stop()
	err := f.store.Clear(ctx)
	f.cache.Clear()

	if wasPresent {
		f.metrics.SessionEnded(metrics.ReasonLogout)
		f.logger.Info("logged out")
	}
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// RefreshToken обновляет пару немедленно
func (f *Facade) RefreshToken(ctx context.Context) error {
	return f.scheduler.Refresh(ctx)
}

// User возвращает текущего пользователя или nil
func (f *Facade) User() *pkgapi.User {
	return f.cache.User()
}

// IsAuthenticated: есть пара токенов и пользователь этой сессии
func (f *Facade) IsAuthenticated() bool {
	return f.store.Snapshot().Present() && f.cache.User() != nil
}

// IsLoading сообщает, выполняется ли login/register или загрузка пользователя.
// Сохраненная сессия считается загружающейся, пока Start не получит пользователя.
func (f *Facade) IsLoading() bool {
	return f.authenticating.Load() > 0 || f.cache.Loading() || f.cache.Pending()
}

// Session возвращает согласованный снимок для потребителей
func (f *Facade) Session() SessionState {
	user := f.cache.User()
	return SessionState{
		User:            user,
		IsLoading:       f.IsLoading(),
		IsAuthenticated: user != nil && f.store.Snapshot().Present(),
	}
}

// State возвращает текущее состояние сессии
func (f *Facade) State() State {
	switch {
	case f.authenticating.Load() > 0:
		return StateAuthenticating
	case !f.store.Snapshot().Present():
		return StateUnauthenticated
	case f.scheduler.State() == SchedulerRefreshing:
		return StateRefreshing
	case f.cache.User() != nil:
		return StateAuthenticated
	default:
		// пара есть, пользователь еще не загружен
		return StateAuthenticating
	}
}

// NextRefresh возвращает время запланированного обновления токенов
func (f *Facade) NextRefresh() (time.Time, bool) {
	return f.scheduler.NextRefresh()
}

// TokenExpiry возвращает срок действия текущего access token
func (f *Facade) TokenExpiry() (time.Time, error) {
	pair := f.store.Get()
	if pair == nil {
		return time.Time{}, ErrNotAuthenticated
	}
	return token.DecodeExpiry(pair.AccessToken)
}

// Close останавливает таймер. Сохраненная сессия остается на диске.
func (f *Facade) Close() {
	f.scheduler.Stop()
}

func (f *Facade) observe(snap token.Snapshot) {
	f.metrics.SetAuthenticated(snap.Present())
}
