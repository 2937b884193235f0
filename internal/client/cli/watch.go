package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/iudanet/jobhunt/internal/client/metrics"
)

// ErrSessionEnded - сессия закрыта во время watch (refresh не удался или 401)
var ErrSessionEnded = errors.New("session ended")

// runWatch держит сессию открытой: планировщик обновляет токены,
// команда периодически печатает состояние до отмены ctx
func (c *Cli) runWatch(ctx context.Context) error {
	c.restore(ctx)

	if !c.facade.IsAuthenticated() {
		return fmt.Errorf("not authenticated. Please run 'jobhunt login' first")
	}

	if c.opts.MetricsAddr != "" && c.opts.Gatherer != nil {
		stop := c.serveMetrics(c.opts.MetricsAddr)
		defer stop()
	}

	c.io.Println("Watching session, press Ctrl+C to stop.")
	c.printWatchLine()

	ticker := time.NewTicker(c.opts.WatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.io.Println("Stopped.")
			return nil
		case <-ticker.C:
			if c.facade.Session().User == nil {
				return ErrSessionEnded
			}
			c.printWatchLine()
		}
	}
}

func (c *Cli) printWatchLine() {
	line := fmt.Sprintf("[%s] %s", time.Now().Format(time.TimeOnly), c.facade.State())
	if next, ok := c.facade.NextRefresh(); ok {
		line += fmt.Sprintf(", next refresh in %s", time.Until(next).Round(time.Second))
	}
	c.io.Println(line)
}

// serveMetrics запускает /metrics; возвращает функцию остановки
func (c *Cli) serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(c.opts.Gatherer))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		c.logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			c.logger.Warn("metrics server shutdown", "error", err)
		}
	}
}
