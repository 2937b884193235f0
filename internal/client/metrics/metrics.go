// Package metrics exposes Prometheus counters for the session lifecycle.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "jobhunt_client"

// Результаты обновления токенов
const (
	RefreshSuccess   = "success"
	RefreshFailure   = "failure"
	RefreshDiscarded = "discarded"
)

// Причины завершения сессии
const (
	ReasonLogout        = "logout"
	ReasonRefreshFailed = "refresh_failed"
	ReasonFetchFailed   = "fetch_failed"
	ReasonUnauthorized  = "unauthorized"
)

// Metrics holds the client's session metrics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	refreshes     *prometheus.CounterVec
	sessionsEnded *prometheus.CounterVec
	authAttempts  *prometheus.CounterVec
	authenticated prometheus.Gauge
}

// New регистрирует метрики в reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refreshes_total",
			Help:      "Token refresh attempts by result.",
		}, []string{"result"}),
		sessionsEnded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Sessions cleared, by reason.",
		}, []string{"reason"}),
		authAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Login and register attempts by operation and result.",
		}, []string{"operation", "result"}),
		authenticated: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "authenticated",
			Help:      "1 while a user session is established.",
		}),
	}
}

// Refresh учитывает попытку обновления токенов
func (m *Metrics) Refresh(result string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
}

// SessionEnded учитывает очистку сессии
func (m *Metrics) SessionEnded(reason string) {
	if m == nil {
		return
	}
	m.sessionsEnded.WithLabelValues(reason).Inc()
}

// AuthAttempt учитывает login/register
func (m *Metrics) AuthAttempt(operation string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.authAttempts.WithLabelValues(operation, result).Inc()
}

// SetAuthenticated выставляет gauge текущего состояния
func (m *Metrics) SetAuthenticated(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.authenticated.Set(1)
		return
	}
	m.authenticated.Set(0)
}

// Handler отдает метрики из g в формате Prometheus
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
