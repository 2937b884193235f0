// Package authtest - fake внешнего сервиса авторизации для интеграционных тестов клиента.
// Реализует контракт /auth/* в памяти: выдает подписанные access tokens и одноразовые
// refresh tokens, умеет отзывать сессии, чтобы клиент получил 401.
package authtest

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"
)

// Значения по умолчанию
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
	DefaultSecret     = "authtest-secret"
	// Prefix - префикс маршрутов, совпадает с путем в базовом URL клиента
	Prefix = "/api"
)

// Config - параметры fake сервера
type Config struct {
	// Now - источник времени для выпуска токенов; nil означает time.Now
	Now        func() time.Time
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Server собирает маршруты и middleware
type Server struct {
	logger  *slog.Logger
	users   *Users
	handler *AuthHandler
	tokens  TokenConfig
}

func New(cfg Config, logger *slog.Logger) *Server {
	if cfg.Secret == "" {
		cfg.Secret = DefaultSecret
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}

	tokens := TokenConfig{
		Secret:     []byte(cfg.Secret),
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	}
	users := NewUsers(cfg.Now)

	return &Server{
		logger:  logger,
		users:   users,
		tokens:  tokens,
		handler: NewAuthHandler(logger, users, tokens, cfg.Now),
	}
}

// Start поднимает httptest.Server и возвращает его вместе с базовым URL клиента.
// Вызывающий отвечает за Close.
func (s *Server) Start() (*httptest.Server, string) {
	ts := httptest.NewServer(s.Handler())
	return ts, ts.URL + Prefix
}

// Users возвращает хранилище учетных записей
func (s *Server) Users() *Users {
	return s.users
}

// MeCalls - сколько раз вызывался GET /auth/me
func (s *Server) MeCalls() int {
	return int(s.handler.meCalls.Load())
}

// RevokeAll имитирует отзыв всех сессий на стороне сервиса
func (s *Server) RevokeAll() {
	s.users.RevokeAll()
}

// Handler возвращает http.Handler со всеми маршрутами
func (s *Server) Handler() http.Handler {
	authenticated := AuthMiddleware(s.logger, s.tokens, s.users)

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+Prefix+"/health", s.handler.Health)
	mux.HandleFunc("POST "+Prefix+"/auth/register", s.handler.Register)
	mux.HandleFunc("POST "+Prefix+"/auth/login", s.handler.Login)
	mux.HandleFunc("POST "+Prefix+"/auth/refresh", s.handler.Refresh)
	mux.Handle("GET "+Prefix+"/auth/me", authenticated(http.HandlerFunc(s.handler.Me)))
	mux.Handle("POST "+Prefix+"/auth/logout", authenticated(http.HandlerFunc(s.handler.Logout)))
	// защищенный ресурс вне /auth для проверки обработки 401
	mux.Handle("GET "+Prefix+"/resumes", authenticated(http.HandlerFunc(s.handler.Resumes)))

	return RecoveryMiddleware(s.logger)(LoggingMiddleware(s.logger)(mux))
}
