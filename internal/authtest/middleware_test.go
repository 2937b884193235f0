package authtest

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/jobhunt/pkg/api"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTokenConfig() TokenConfig {
	return TokenConfig{Secret: []byte("test-secret"), AccessTTL: time.Hour, RefreshTTL: time.Hour}
}

func decodeEnvelope(t *testing.T, body io.Reader) api.Envelope {
	t.Helper()
	var env api.Envelope
	require.NoError(t, json.NewDecoder(body).Decode(&env))
	return env
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := discardLogger()

	tests := []struct {
		handler        http.HandlerFunc
		name           string
		expectedStatus int
		expectPanic    bool
	}{
		{
			name: "Normal handler without panic",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("success"))
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "Handler with panic (string)",
			handler: func(w http.ResponseWriter, r *http.Request) {
				panic("something went wrong")
			},
			expectPanic:    true,
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name: "Handler with panic (custom type)",
			handler: func(w http.ResponseWriter, r *http.Request) {
				panic(struct{ msg string }{"critical error"})
			},
			expectPanic:    true,
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RecoveryMiddleware(logger)(tt.handler)

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			w := httptest.NewRecorder()

			assert.NotPanics(t, func() { handler.ServeHTTP(w, req) })
			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectPanic {
				env := decodeEnvelope(t, w.Body)
				assert.False(t, env.Success)
				require.NotNil(t, env.Error)
				assert.Equal(t, "INTERNAL_ERROR", env.Error.Code)
			}
		})
	}
}

func TestLoggingMiddleware_CapturesStatus(t *testing.T) {
	handler := LoggingMiddleware(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "short and stout", w.Body.String())
}

func TestAuthMiddleware(t *testing.T) {
	cfg := testTokenConfig()
	users := NewUsers(nil)

	u, err := users.Create(t.Context(), "anna@example.com", "s3cret-pass", "", "")
	require.NoError(t, err)

	valid, err := GenerateAccessToken(cfg, u, time.Now())
	require.NoError(t, err)

	expired, err := GenerateAccessToken(cfg, u, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)

	foreign, err := GenerateAccessToken(TokenConfig{Secret: []byte("other"), AccessTTL: time.Hour}, u, time.Now())
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "valid token", header: "Bearer " + valid, wantStatus: http.StatusOK},
		{name: "lowercase scheme", header: "bearer " + valid, wantStatus: http.StatusOK},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + valid, wantStatus: http.StatusUnauthorized},
		{name: "expired token", header: "Bearer " + expired, wantStatus: http.StatusUnauthorized},
		{name: "foreign signature", header: "Bearer " + foreign, wantStatus: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer not-a-jwt", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUserID string
			handler := AuthMiddleware(discardLogger(), cfg, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUserID, _ = r.Context().Value(UserIDKey).(string)
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, u.ID, gotUserID)
			} else {
				env := decodeEnvelope(t, w.Body)
				require.NotNil(t, env.Error)
				assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
			}
		})
	}
}

func TestAuthMiddleware_RejectsRevokedGeneration(t *testing.T) {
	cfg := testTokenConfig()
	users := NewUsers(nil)

	u, err := users.Create(t.Context(), "anna@example.com", "s3cret-pass", "", "")
	require.NoError(t, err)
	token, err := GenerateAccessToken(cfg, u, time.Now())
	require.NoError(t, err)

	users.RevokeUser(t.Context(), u.ID)

	handler := AuthMiddleware(discardLogger(), cfg, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not be reached")
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
