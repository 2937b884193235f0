package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr error
	}{
		{name: "simple", email: "user@example.com"},
		{name: "plus tag", email: "user+jobs@mail.example.org"},
		{name: "empty", email: "", wantErr: ErrEmptyEmail},
		{name: "spaces only", email: "   ", wantErr: ErrEmptyEmail},
		{name: "no at", email: "user.example.com", wantErr: ErrInvalidEmail},
		{name: "no domain dot", email: "user@localhost", wantErr: ErrInvalidEmail},
		{name: "trailing dot", email: "user@example.", wantErr: ErrInvalidEmail},
		{name: "display name", email: "User <user@example.com>", wantErr: ErrInvalidEmail},
		{name: "surrounding spaces", email: " user@example.com ", wantErr: ErrInvalidEmail},
		{name: "too long", email: strings.Repeat("a", 250) + "@example.com", wantErr: ErrInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{name: "minimum length", password: "12345678"},
		{name: "unicode counted by runes", password: "пароль12"},
		{name: "empty", password: "", wantErr: ErrEmptyPassword},
		{name: "too short", password: "short", wantErr: ErrWeakPassword},
		{name: "too long", password: strings.Repeat("x", MaxPasswordLen+1), wantErr: ErrWeakPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateLoginPassword(t *testing.T) {
	assert.NoError(t, ValidateLoginPassword("x"))
	assert.ErrorIs(t, ValidateLoginPassword(""), ErrEmptyPassword)
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("first name", ""))
	assert.NoError(t, ValidateName("first name", "Анна"))
	assert.Error(t, ValidateName("last name", strings.Repeat("я", MaxNameLen+1)))
}
