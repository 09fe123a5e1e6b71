package builders

import (
	"maps"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"gitlab.com/acme/acme-auth/internal/domain/session"
	"gitlab.com/acme/acme-auth/internal/domain/user"
)

const TestSecret = "test-secret"

type JWTFactory struct{}

// SessionTokenBuilder mirrors the claims the session app signs.
func (f JWTFactory) SessionTokenBuilder(sessionID session.ID, userID user.ID) *JWTBuilder {
	return NewJWTBuilder().
		WithIssuer("acme_auth").
		WithSubject("session").
		WithIssuedAt(time.Now()).
		WithExpiration(time.Now().Add(session.DefaultTTL)).
		WithClaim("sid", sessionID.String()).
		WithClaim("uid", userID.String()).
		WithSecret([]byte(TestSecret)).
		WithSigningMethod(jwt.SigningMethodHS256)
}

type JWTBuilder struct {
	secretKey     []byte
	signingMethod jwt.SigningMethod
	mapClaims     jwt.MapClaims
}

func NewJWTBuilder() *JWTBuilder {
	return &JWTBuilder{
		secretKey:     []byte(TestSecret),
		signingMethod: jwt.SigningMethodHS256,
		mapClaims:     jwt.MapClaims{},
	}
}

func (j *JWTBuilder) WithIssuer(issuer string) *JWTBuilder {
	j.mapClaims["iss"] = issuer
	return j
}

func (j *JWTBuilder) WithSubject(subject string) *JWTBuilder {
	j.mapClaims["sub"] = subject
	return j
}

func (j *JWTBuilder) WithIssuedAt(issuedAt time.Time) *JWTBuilder {
	j.mapClaims["iat"] = jwt.NewNumericDate(issuedAt)
	return j
}

func (j *JWTBuilder) WithExpiration(expiration time.Time) *JWTBuilder {
	j.mapClaims["exp"] = jwt.NewNumericDate(expiration)
	return j
}

func (j *JWTBuilder) WithSecret(key []byte) *JWTBuilder {
	j.secretKey = key
	return j
}

func (j *JWTBuilder) WithSigningMethod(method jwt.SigningMethod) *JWTBuilder {
	j.signingMethod = method
	return j
}

func (j *JWTBuilder) WithClaim(key string, value any) *JWTBuilder {
	j.mapClaims[key] = value
	return j
}

func (j *JWTBuilder) WithClaimEmpty(key string) *JWTBuilder {
	delete(j.mapClaims, key)
	return j
}

func (j *JWTBuilder) WithClaims(mapClaims jwt.MapClaims) *JWTBuilder {
	maps.Copy(j.mapClaims, mapClaims)
	return j
}

func (j *JWTBuilder) Build() *jwt.Token {
	return jwt.NewWithClaims(j.signingMethod, j.mapClaims)
}

func (j *JWTBuilder) BuildSignedString() (string, error) {
	return j.Build().SignedString(j.secretKey)
}

func (j *JWTBuilder) BuildSignedStringT(t *testing.T) string {
	t.Helper()
	token, err := j.BuildSignedString()
	require.NoError(t, err, "failed to build signed JWT string")
	return token
}
