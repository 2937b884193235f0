package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clientapi "github.com/iudanet/jobhunt/internal/client/api"
	"github.com/iudanet/jobhunt/internal/client/metrics"
	"github.com/iudanet/jobhunt/internal/client/storage"
	"github.com/iudanet/jobhunt/internal/client/token"
	pkgapi "github.com/iudanet/jobhunt/pkg/api"
)

type schedulerFixture struct {
	clock   *fakeClock
	backend *storage.Memory
	store   *token.Store
	api     *clientapi.ClientAPIMock
	sched   *Scheduler
}

func newSchedulerFixture(t *testing.T) *schedulerFixture {
	t.Helper()

	fx := &schedulerFixture{
		clock:   newFakeClock(),
		backend: storage.NewMemory(),
		api:     &clientapi.ClientAPIMock{},
	}
	fx.store = newStore(t, fx.backend)
	fx.sched = NewScheduler(fx.store, fx.api, SchedulerConfig{
		Clock:   fx.clock,
		Metrics: metrics.New(prometheus.NewRegistry()),
	}, discardLogger())
	fx.store.Subscribe(fx.sched.HandleTokens)
	return fx
}

func TestScheduler_ArmsAtExpiryMinusLead(t *testing.T) {
	fx := newSchedulerFixture(t)
	now := fx.clock.Now()

	require.NoError(t, fx.store.Set(context.Background(), pairWithExpiry(t, now.Add(time.Hour), "r1")))

	active := fx.clock.Active()
	require.Len(t, active, 1)
	assertSameInstant(t, now.Add(55*time.Minute), active[0].at)
	assert.Equal(t, SchedulerArmed, fx.sched.State())

	next, ok := fx.sched.NextRefresh()
	require.True(t, ok)
	assertSameInstant(t, now.Add(55*time.Minute), next)
}

func TestScheduler_ClampsDelay(t *testing.T) {
	tests := []struct {
		name   string
		access func(t *testing.T, now time.Time) string
	}{
		{
			name:   "inside guard band",
			access: func(t *testing.T, now time.Time) string { return accessToken(t, now.Add(120*time.Second)) },
		},
		{
			name:   "already expired",
			access: func(t *testing.T, now time.Time) string { return accessToken(t, now.Add(-time.Hour)) },
		},
		{
			name:   "malformed token",
			access: func(t *testing.T, now time.Time) string { return "not-a-jwt" },
		},
		{
			name:   "no exp claim",
			access: func(t *testing.T, now time.Time) string { return "eyJhbGciOiJub25lIn0.eyJzdWIiOiJ4In0.sig" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newSchedulerFixture(t)
			now := fx.clock.Now()

			pair := &storage.TokenPair{AccessToken: tt.access(t, now), RefreshToken: "r1"}
			require.NoError(t, fx.store.Set(context.Background(), pair))

			active := fx.clock.Active()
			require.Len(t, active, 1)
			assert.Zero(t, active[0].delay)
			assertSameInstant(t, now, active[0].at)
		})
	}
}

func TestScheduler_RearmKeepsSingleTimer(t *testing.T) {
	fx := newSchedulerFixture(t)
	now := fx.clock.Now()
	ctx := context.Background()

	require.NoError(t, fx.store.Set(ctx, pairWithExpiry(t, now.Add(time.Hour), "r1")))
	first := fx.clock.Active()[0]

	require.NoError(t, fx.store.Set(ctx, pairWithExpiry(t, now.Add(2*time.Hour), "r2")))
	require.NoError(t, fx.store.Set(ctx, pairWithExpiry(t, now.Add(3*time.Hour), "r3")))

	active := fx.clock.Active()
	require.Len(t, active, 1)
	assert.True(t, first.stopped)
	assertSameInstant(t, now.Add(3*time.Hour-DefaultRefreshLead), active[0].at)
}

func TestScheduler_FireRotatesPair(t *testing.T) {
	fx := newSchedulerFixture(t)
	now := fx.clock.Now()
	ctx := context.Background()

	rotated := pairWithExpiry(t, now.Add(2*time.Hour), "r2")
	fx.api.RefreshFunc = func(ctx context.Context, req pkgapi.RefreshRequest) (*pkgapi.TokenResponse, error) {
		assert.Equal(t, "r1", req.RefreshToken)
		assert.Equal(t, SchedulerRefreshing, fx.sched.State())
		return &pkgapi.TokenResponse{AccessToken: rotated.AccessToken, RefreshToken: rotated.RefreshToken}, nil
	}

	require.NoError(t, fx.store.Set(ctx, pairWithExpiry(t, now.Add(time.Hour), "r1")))
	epoch := fx.store.Snapshot().Epoch

	fx.clock.Advance(55 * time.Minute)

	require.Len(t, fx.api.RefreshCalls(), 1)
	snap := fx.store.Snapshot()
	assert.Equal(t, rotated, snap.Pair)
	assert.Equal(t, epoch, snap.Epoch, "refresh keeps the session identity")

	saved, err := fx.backend.GetTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r2", saved.RefreshToken)

	active := fx.clock.Active()
	require.Len(t, active, 1)
	assertSameInstant(t, now.Add(2*time.Hour-DefaultRefreshLead), active[0].at)
	assert.Equal(t, SchedulerArmed, fx.sched.State())
}

func TestScheduler_FireNotBeforeWakeTime(t *testing.T) {
	fx := newSchedulerFixture(t)
	now := fx.clock.Now()

	require.NoError(t, fx.store.Set(context.Background(), pairWithExpiry(t, now.Add(time.Hour), "r1")))

	fx.clock.Advance(55*time.Minute - time.Second)
	assert.Empty(t, fx.api.RefreshCalls())
	assert.Equal(t, SchedulerArmed, fx.sched.State())
}

func TestScheduler_RefreshFailureClearsSession(t *testing.T) {
	fx := newSchedulerFixture(t)
	now := fx.clock.Now()
	ctx := context.Background()

	fx.api.RefreshFunc = func(ctx context.Context, req pkgapi.RefreshRequest) (*pkgapi.TokenResponse, error) {
		return nil, fmt.Errorf("%w: dial tcp: connection refused", clientapi.ErrTransport)
	}

	require.NoError(t, fx.store.Set(ctx, pairWithExpiry(t, now.Add(time.Hour), "r1")))
	fx.clock.Advance(time.Hour)

	require.Len(t, fx.api.RefreshCalls(), 1, "no automatic retry")
	assert.Nil(t, fx.store.Get())
	_, err := fx.backend.GetTokens(ctx)
	assert.ErrorIs(t, err, storage.ErrTokensNotFound)
	assert.Empty(t, fx.clock.Active())
	assert.Equal(t, SchedulerIdle, fx.sched.State())

	_, ok := fx.sched.NextRefresh()
	assert.False(t, ok)
}

func TestScheduler_StaleTimerIsNoop(t *testing.T) {
	fx := newSchedulerFixture(t)
	now := fx.clock.Now()
	ctx := context.Background()

	require.NoError(t, fx.store.Set(ctx, pairWithExpiry(t, now.Add(time.Hour), "r1")))
	stale := fx.clock.Active()[0]
	require.NoError(t, fx.store.Set(ctx, pairWithExpiry(t, now.Add(time.Hour), "r2")))

	// колбэк, который успел стартовать до Stop
	stale.f()

	assert.Empty(t, fx.api.RefreshCalls())
	assert.Len(t, fx.clock.Active(), 1)
}

func TestScheduler_ClearGoesIdle(t *testing.T) {
	fx := newSchedulerFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.store.Set(ctx, pairWithExpiry(t, fx.clock.Now().Add(time.Hour), "r1")))
	require.NoError(t, fx.store.Clear(ctx))

	assert.Empty(t, fx.clock.Active())
	assert.Equal(t, SchedulerIdle, fx.sched.State())
}

func TestScheduler_RefreshDiscardedAfterLogout(t *testing.T) {
	fx := newSchedulerFixture(t)
	ctx := context.Background()
	now := fx.clock.Now()

	fx.api.RefreshFunc = func(ctx context.Context, req pkgapi.RefreshRequest) (*pkgapi.TokenResponse, error) {
		// logout, пока запрос в полете
		fx.sched.Stop()
		require.NoError(t, fx.store.Clear(ctx))
		p := pairWithExpiry(t, now.Add(2*time.Hour), "r2")
		return &pkgapi.TokenResponse{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken}, nil
	}

	require.NoError(t, fx.store.Set(ctx, pairWithExpiry(t, now.Add(time.Hour), "r1")))

	err := fx.sched.Refresh(ctx)
	assert.ErrorIs(t, err, ErrSessionSuperseded)
	assert.Nil(t, fx.store.Get())
	assert.Empty(t, fx.clock.Active())
	assert.Equal(t, SchedulerIdle, fx.sched.State())
}

func TestScheduler_RefreshWithoutSession(t *testing.T) {
	fx := newSchedulerFixture(t)

	err := fx.sched.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Empty(t, fx.api.RefreshCalls())
}

func TestScheduler_ManualRefreshFailure(t *testing.T) {
	fx := newSchedulerFixture(t)
	ctx := context.Background()

	serverErr := &clientapi.ServerError{StatusCode: 401, Message: "Invalid refresh token"}
	fx.api.RefreshFunc = func(ctx context.Context, req pkgapi.RefreshRequest) (*pkgapi.TokenResponse, error) {
		return nil, serverErr
	}

	require.NoError(t, fx.store.Set(ctx, pairWithExpiry(t, fx.clock.Now().Add(time.Hour), "r1")))

	err := fx.sched.Refresh(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRefreshFailed)
	assert.ErrorIs(t, err, clientapi.ErrUnauthorized)

	var se *clientapi.ServerError
	assert.True(t, errors.As(err, &se))
	assert.Nil(t, fx.store.Get())
}

func TestScheduler_StopCancelsTimer(t *testing.T) {
	fx := newSchedulerFixture(t)

	require.NoError(t, fx.store.Set(context.Background(), pairWithExpiry(t, fx.clock.Now().Add(time.Hour), "r1")))
	fx.sched.Stop()

	assert.Empty(t, fx.clock.Active())
	fx.clock.Advance(2 * time.Hour)
	assert.Empty(t, fx.api.RefreshCalls())
	assert.NotNil(t, fx.store.Get(), "stop does not end the session")
}

func TestSchedulerState_String(t *testing.T) {
	assert.Equal(t, "idle", SchedulerIdle.String())
	assert.Equal(t, "armed", SchedulerArmed.String())
	assert.Equal(t, "refreshing", SchedulerRefreshing.String())
	assert.Equal(t, "SchedulerState(7)", SchedulerState(7).String())
}
