// Package token owns the client's view of the current token pair: decoding
// the access token's expiry and the durable, observable token store.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DecodeError сообщает, что из access token не удалось извлечь срок действия.
// Вызывающий код должен считать такой токен уже истекшим.
type DecodeError struct {
	Err    error
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode access token: %s: %v", e.Reason, e.Err)
	}
	return "decode access token: " + e.Reason
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// parser читает claims без проверки подписи: секрета у клиента нет
var parser = jwt.NewParser()

// DecodeExpiry возвращает момент истечения access token (claim exp).
// Ошибка всегда имеет тип *DecodeError и никогда не паникует.
func DecodeExpiry(accessToken string) (time.Time, error) {
	if strings.Count(accessToken, ".") != 2 {
		return time.Time{}, &DecodeError{Reason: "token must have three segments"}
	}

	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}, &DecodeError{Reason: "malformed claims", Err: err}
	}

	if _, ok := claims["exp"]; !ok {
		return time.Time{}, &DecodeError{Reason: "missing exp claim"}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, &DecodeError{Reason: "non-numeric exp claim", Err: err}
	}
	if exp == nil {
		return time.Time{}, &DecodeError{Reason: "missing exp claim"}
	}

	return exp.Time, nil
}

// IsDecodeError сообщает, является ли err ошибкой декодирования токена
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
