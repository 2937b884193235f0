package token

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mintToken подписывает access token с заданными claims (секрет клиенту не нужен)
func mintToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func segment(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func TestDecodeExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := mintToken(t, jwt.MapClaims{"exp": exp.Unix(), "sub": "user-1"})

	got, err := DecodeExpiry(tok)
	require.NoError(t, err)
	assert.True(t, exp.Equal(got), "expected %s, got %s", exp, got)
}

func TestDecodeExpiry_ExpiredTokenStillDecodes(t *testing.T) {
	exp := time.Now().Add(-time.Hour).Truncate(time.Second)
	tok := mintToken(t, jwt.MapClaims{"exp": exp.Unix()})

	got, err := DecodeExpiry(tok)
	require.NoError(t, err)
	assert.True(t, exp.Equal(got))
}

func TestDecodeExpiry_Failures(t *testing.T) {
	header := segment(`{"alg":"HS256","typ":"JWT"}`)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "two segments", token: header + "." + segment(`{"exp":1700000000}`)},
		{name: "four segments", token: header + ".a.b.c"},
		{name: "payload not base64", token: header + ".!!!.sig"},
		{name: "payload not json", token: header + "." + segment("not-json") + ".sig"},
		{name: "missing exp", token: mintToken(t, jwt.MapClaims{"sub": "user-1"})},
		{name: "string exp", token: header + "." + segment(`{"exp":"tomorrow"}`) + ".sig"},
		{name: "null exp", token: header + "." + segment(`{"exp":null}`) + ".sig"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotPanics(t, func() {
				got, err := DecodeExpiry(tt.token)
				require.Error(t, err)
				assert.True(t, got.IsZero())

				var de *DecodeError
				assert.ErrorAs(t, err, &de)
				assert.True(t, IsDecodeError(err))
			})
		})
	}
}
