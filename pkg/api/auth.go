package api

import (
	"encoding/json"
	"fmt"
)

// Envelope - общий формат ответа бэкенда: { success, data?, error? }
type Envelope struct {
	Error   *ErrorBody      `json:"error,omitempty"` // описание ошибки (если success=false)
	Data    json.RawMessage `json:"data,omitempty"`  // полезная нагрузка ответа
	Success bool            `json:"success"`
}

// ErrorBody описывает ошибку в конверте ответа.
// Сервер отдает ее либо строкой, либо объектом { message, code }.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// UnmarshalJSON принимает обе формы поля error
func (e *ErrorBody) UnmarshalJSON(data []byte) error {
	var msg string
	if err := json.Unmarshal(data, &msg); err == nil {
		e.Message = msg
		return nil
	}

	type plain ErrorBody
	var body plain
	if err := json.Unmarshal(data, &body); err != nil {
		return fmt.Errorf("unsupported error body: %w", err)
	}
	*e = ErrorBody(body)
	return nil
}

// LoginRequest представляет запрос на вход по email и паролю
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest представляет запрос на регистрацию нового пользователя
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// RefreshRequest представляет запрос на обмен refresh token на новую пару
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// TokenResponse - пара токенов, которую возвращают login, register и refresh
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`  // JWT access token
	RefreshToken string `json:"refreshToken"` // refresh token (непрозрачный для клиента)
}

// User - текущий пользователь, ответ GET /auth/me
type User struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	FirstName        string `json:"firstName,omitempty"`
	LastName         string `json:"lastName,omitempty"`
	Role             string `json:"role,omitempty"`
	SubscriptionTier string `json:"subscriptionTier,omitempty"`
	CreatedAt        string `json:"createdAt,omitempty"`
}

// DisplayName возвращает имя для вывода пользователю
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Email
	}
}
