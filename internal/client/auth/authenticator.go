package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	clientapi "github.com/iudanet/jobhunt/internal/client/api"
	"github.com/iudanet/jobhunt/internal/client/metrics"
	"github.com/iudanet/jobhunt/internal/client/token"
)

// Authenticator - http.RoundTripper, прикладывающий access token к запросам.
// Ответ 401 на авторизованный запрос закрывает сессию, с которой запрос был отправлен.
// Навигацию/редирект не выполняет: решение остается за вызывающим кодом.
type Authenticator struct {
	base    http.RoundTripper
	store   *token.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	public  []string
}

var _ http.RoundTripper = (*Authenticator)(nil)

// NewAuthenticator оборачивает base; nil означает http.DefaultTransport
func NewAuthenticator(store *token.Store, base http.RoundTripper, m *metrics.Metrics, logger *slog.Logger) *Authenticator {
	if base == nil {
		base = http.DefaultTransport
	}

	return &Authenticator{
		base:    base,
		store:   store,
		logger:  logger,
		metrics: m,
		public:  clientapi.PublicPaths,
	}
}

// RoundTrip реализует http.RoundTripper
func (a *Authenticator) RoundTrip(req *http.Request) (*http.Response, error) {
	if a.isPublic(req.URL.Path) {
		return a.base.RoundTrip(req)
	}

	snap := a.store.Snapshot()
	if !snap.Present() {
		return a.base.RoundTrip(req)
	}

	// RoundTripper не должен менять исходный запрос
	authReq := req.Clone(req.Context())
	authReq.Header.Set("Authorization", "Bearer "+snap.Pair.AccessToken)

	resp, err := a.base.RoundTrip(authReq)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		a.unauthorized(req.Context(), snap.Epoch, req)
	}

	return resp, nil
}

func (a *Authenticator) unauthorized(ctx context.Context, epoch uint64, req *http.Request) {
	cleared, err := a.store.ClearIf(context.WithoutCancel(ctx), epoch)
	if err != nil {
		a.logger.Error("failed to delete stored session after 401", "error", err)
	}
	if cleared {
		a.metrics.SessionEnded(metrics.ReasonUnauthorized)
		a.logger.Warn("session closed: server rejected access token",
			"method", req.Method,
			"path", req.URL.Path,
		)
	}
}

// isPublic: baseURL может содержать префикс (/api), поэтому сравниваем по суффиксу
func (a *Authenticator) isPublic(path string) bool {
	for _, p := range a.public {
		if strings.HasSuffix(path, p) {
			return true
		}
	}
	return false
}
