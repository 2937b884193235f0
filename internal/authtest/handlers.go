package authtest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/iudanet/jobhunt/internal/validation"
	"github.com/iudanet/jobhunt/pkg/api"
)

// AuthHandler обрабатывает запросы /auth/*
type AuthHandler struct {
	logger  *slog.Logger
	users   *Users
	now     func() time.Time
	tokens  TokenConfig
	meCalls atomic.Int64
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(logger *slog.Logger, users *Users, tokens TokenConfig, now func() time.Time) *AuthHandler {
	if now == nil {
		now = time.Now
	}
	return &AuthHandler{
		logger: logger,
		users:  users,
		tokens: tokens,
		now:    now,
	}
}

// Register обрабатывает POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode register request", slog.Any("error", err))
		writeError(h.logger, w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}

	if err := errors.Join(
		validation.ValidateEmail(req.Email),
		validation.ValidatePassword(req.Password),
		validation.ValidateName("firstName", req.FirstName),
		validation.ValidateName("lastName", req.LastName),
	); err != nil {
		writeError(h.logger, w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	u, err := h.users.Create(ctx, req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		if errors.Is(err, ErrUserAlreadyExists) {
			h.logger.WarnContext(ctx, "user already exists")
			writeError(h.logger, w, http.StatusConflict, "CONFLICT", "Email already registered")
			return
		}
		h.logger.ErrorContext(ctx, "failed to create user", slog.Any("error", err))
		writeError(h.logger, w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}

	h.logger.InfoContext(ctx, "user registered successfully", slog.String("user_id", u.ID))
	h.issue(w, r, u, http.StatusCreated)
}

// Login обрабатывает POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode login request", slog.Any("error", err))
		writeError(h.logger, w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(h.logger, w, http.StatusBadRequest, "VALIDATION_ERROR", "Email and password are required")
		return
	}

	u, err := h.users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "login failed", slog.Any("error", err))
		writeError(h.logger, w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials")
		return
	}

	h.logger.InfoContext(ctx, "user logged in successfully", slog.String("user_id", u.ID))
	h.issue(w, r, u, http.StatusOK)
}

// Refresh обрабатывает POST /auth/refresh.
// Refresh token одноразовый: после обмена старый токен недействителен.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeError(h.logger, w, http.StatusBadRequest, "BAD_REQUEST", "Refresh token is required")
		return
	}

	userID, err := h.users.ConsumeRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		h.logger.WarnContext(ctx, "refresh token rejected", slog.Any("error", err))
		writeError(h.logger, w, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "Invalid refresh token")
		return
	}

	u, err := h.users.Get(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		writeError(h.logger, w, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "Invalid refresh token")
		return
	}

	h.logger.InfoContext(ctx, "tokens refreshed successfully", slog.String("user_id", u.ID))
	h.issue(w, r, u, http.StatusOK)
}

// Me обрабатывает GET /auth/me; требует AuthMiddleware
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.meCalls.Add(1)

	userID, _ := ctx.Value(UserIDKey).(string)
	u, err := h.users.Get(ctx, userID)
	if err != nil {
		writeError(h.logger, w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
		return
	}

	writeData(h.logger, w, http.StatusOK, api.User{
		ID:               u.ID,
		Email:            u.Email,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Role:             u.Role,
		SubscriptionTier: u.Tier,
		CreatedAt:        u.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// Logout обрабатывает POST /auth/logout: отзывает все сессии пользователя
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, _ := ctx.Value(UserIDKey).(string)
	deleted := h.users.RevokeUser(ctx, userID)

	h.logger.InfoContext(ctx, "user logged out successfully",
		slog.String("user_id", userID),
		slog.Int("tokens_deleted", deleted))

	w.WriteHeader(http.StatusNoContent)
}

// Resumes обрабатывает GET /resumes; требует AuthMiddleware
func (h *AuthHandler) Resumes(w http.ResponseWriter, r *http.Request) {
	writeData(h.logger, w, http.StatusOK, []string{})
}

// Health обрабатывает GET /health
func (h *AuthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeData(h.logger, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AuthHandler) issue(w http.ResponseWriter, r *http.Request, u *User, status int) {
	ctx := r.Context()

	access, err := GenerateAccessToken(h.tokens, u, h.now())
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate access token", slog.Any("error", err))
		writeError(h.logger, w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}

	refresh, err := GenerateRefreshToken()
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate refresh token", slog.Any("error", err))
		writeError(h.logger, w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}
	h.users.SaveRefreshToken(ctx, refresh, u.ID, h.tokens.RefreshTTL)

	writeData(h.logger, w, status, api.TokenResponse{AccessToken: access, RefreshToken: refresh})
}

// writeData отправляет успешный ответ в конверте
func writeData(logger *slog.Logger, w http.ResponseWriter, status int, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		logger.Error("failed to encode response data", slog.Any("error", err))
		writeError(logger, w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}
	writeEnvelope(logger, w, status, api.Envelope{Success: true, Data: raw})
}

// writeError отправляет ошибку в конверте
func writeError(logger *slog.Logger, w http.ResponseWriter, status int, code, message string) {
	writeEnvelope(logger, w, status, api.Envelope{Error: &api.ErrorBody{Message: message, Code: code}})
}

func writeEnvelope(logger *slog.Logger, w http.ResponseWriter, status int, env api.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}
