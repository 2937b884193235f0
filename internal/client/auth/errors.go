package auth

import "errors"

var (
	// ErrNotAuthenticated - операция требует сохраненной пары токенов
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrSessionSuperseded - результат запроса отброшен: сессия сменилась, пока он выполнялся
	ErrSessionSuperseded = errors.New("session superseded")

	// ErrRefreshFailed - обновление токенов не удалось, сессия закрыта
	ErrRefreshFailed = errors.New("token refresh failed")
)
