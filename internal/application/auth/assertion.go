package authapp

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type SessionTokenAssertion struct {
	token  *jwt.Token
	claims jwt.MapClaims
}

func NewSessionTokenAssertion(t *testing.T, raw string, secret []byte) *SessionTokenAssertion {
	t.Helper()

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	require.NoError(t, err, "session token should parse")

	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok, "session token claims should be map claims")

	return &SessionTokenAssertion{token: token, claims: claims}
}

func (a *SessionTokenAssertion) AssertIssuer(t *testing.T) *SessionTokenAssertion {
	t.Helper()
	assert.Equal(t, Issuer, a.claims["iss"])
	return a
}

func (a *SessionTokenAssertion) AssertSubject(t *testing.T) *SessionTokenAssertion {
	t.Helper()
	assert.Equal(t, SessionSubject, a.claims["sub"])
	return a
}

func (a *SessionTokenAssertion) AssertSessionID(t *testing.T, expected string) *SessionTokenAssertion {
	t.Helper()
	assert.Equal(t, expected, a.claims["sid"])
	return a
}

func (a *SessionTokenAssertion) AssertUserID(t *testing.T, expected string) *SessionTokenAssertion {
	t.Helper()
	assert.Equal(t, expected, a.claims["uid"])
	return a
}

func (a *SessionTokenAssertion) AssertExpiresAt(t *testing.T, expected time.Time) *SessionTokenAssertion {
	t.Helper()

	exp, err := a.claims.GetExpirationTime()
	require.NoError(t, err)
	require.NotNil(t, exp)
	assert.WithinDuration(t, expected, exp.Time, time.Second)
	return a
}
