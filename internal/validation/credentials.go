package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	// MinPasswordLen минимальная длина пароля
	MinPasswordLen = 8
	// MaxPasswordLen максимальная длина пароля (ограничение bcrypt на сервере)
	MaxPasswordLen = 72
	// MaxEmailLen максимальная длина email по RFC 5321
	MaxEmailLen = 254
	// MaxNameLen максимальная длина имени и фамилии
	MaxNameLen = 100
)

var (
	// ErrEmptyEmail - email не указан
	ErrEmptyEmail = errors.New("email cannot be empty")
	// ErrInvalidEmail - email не похож на адрес
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrEmptyPassword - пароль не указан
	ErrEmptyPassword = errors.New("password cannot be empty")
	// ErrWeakPassword - пароль не проходит по длине
	ErrWeakPassword = errors.New("password does not meet length requirements")
)

// ValidateEmail проверяет формат email: одиночный адрес без отображаемого имени,
// с доменом, содержащим точку
func ValidateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return ErrEmptyEmail
	}

	if len(email) > MaxEmailLen {
		return fmt.Errorf("%w: must not exceed %d characters", ErrInvalidEmail, MaxEmailLen)
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}

	at := strings.LastIndexByte(email, '@')
	domain := email[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}

	return nil
}

// ValidateLoginPassword проверяет только наличие пароля.
// Требования к сложности сервер проверяет при регистрации; старые пароли могут быть короче.
func ValidateLoginPassword(password string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	return nil
}

// ValidatePassword проверяет требования к новому паролю
// Длина: 8-72 символа
func ValidatePassword(password string) error {
	if password == "" {
		return ErrEmptyPassword
	}

	n := utf8.RuneCountInString(password)
	if n < MinPasswordLen {
		return fmt.Errorf("%w: must be at least %d characters long", ErrWeakPassword, MinPasswordLen)
	}

	if len(password) > MaxPasswordLen {
		return fmt.Errorf("%w: must not exceed %d bytes", ErrWeakPassword, MaxPasswordLen)
	}

	return nil
}

// ValidateName проверяет необязательное имя или фамилию
func ValidateName(field, name string) error {
	if utf8.RuneCountInString(name) > MaxNameLen {
		return fmt.Errorf("%s must not exceed %d characters", field, MaxNameLen)
	}
	return nil
}
