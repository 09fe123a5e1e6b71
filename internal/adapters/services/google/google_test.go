package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/idtoken"

	"gitlab.com/acme/acme-auth/internal/domain/account"
	"gitlab.com/acme/acme-auth/pkg/errorx"
)

type tokenServer struct {
	*httptest.Server
	mu   sync.Mutex
	form url.Values
	resp map[string]any
}

func (ts *tokenServer) Form() url.Values {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.form
}

func newTokenServer(t *testing.T) *tokenServer {
	t.Helper()

	ts := &tokenServer{
		resp: map[string]any{
			"access_token":  "access-1",
			"token_type":    "Bearer",
			"refresh_token": "refresh-1",
			"expires_in":    3600,
			"id_token":      "raw-id-token",
			"scope":         "openid email profile",
		},
	}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ts.mu.Lock()
		ts.form = r.PostForm
		resp := ts.resp
		ts.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(ts.Close)

	return ts
}

func newTestProvider(t *testing.T, ts *tokenServer, validator IDTokenValidator) *Provider {
	t.Helper()

	p, err := NewProvider(Args{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8080/api/auth/callback/google",
		Endpoint: &oauth2.Endpoint{
			AuthURL:   "https://accounts.example.com/auth",
			TokenURL:  ts.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		HTTPClient: ts.Client(),
		Validator:  validator,
	})
	require.NoError(t, err)

	return p
}

func validPayload(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
	return &idtoken.Payload{
		Subject:  "1098",
		Audience: audience,
		Expires:  time.Now().Add(time.Hour).Unix(),
		Claims: map[string]any{
			"email":          "ada@example.com",
			"email_verified": true,
			"name":           "Ada Lovelace",
			"picture":        "https://example.com/ada.png",
		},
	}, nil
}

func TestNewProvider_RequiresCredentials(t *testing.T) {
	t.Parallel()

	_, err := NewProvider(Args{ClientID: "id"})
	assert.Error(t, err)
	_, err = NewProvider(Args{ClientSecret: "secret"})
	assert.Error(t, err)
}

func TestProvider_AuthCodeURL(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, newTokenServer(t), validPayload)
	verifier := oauth2.GenerateVerifier()

	raw := p.AuthCodeURL("state-123", verifier)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "accounts.example.com", u.Host)
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "openid email profile", q.Get("scope"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, oauth2.S256ChallengeFromVerifier(verifier), q.Get("code_challenge"))
	assert.Empty(t, q.Get("code_verifier"), "verifier must never leave the server")
	assert.Equal(t, account.ProviderGoogle, p.ID())
}

func TestProvider_Exchange(t *testing.T) {
	t.Parallel()

	ts := newTokenServer(t)
	var gotAudience, gotToken string
	p := newTestProvider(t, ts, func(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
		gotToken, gotAudience = token, audience
		return validPayload(ctx, token, audience)
	})

	identity, tokens, err := p.Exchange(context.Background(), "auth-code", "the-verifier")
	require.NoError(t, err)

	assert.Equal(t, "auth-code", ts.Form().Get("code"))
	assert.Equal(t, "the-verifier", ts.Form().Get("code_verifier"))
	assert.Equal(t, "raw-id-token", gotToken)
	assert.Equal(t, "client-id", gotAudience)

	assert.Equal(t, account.Identity{
		Subject:       "1098",
		Email:         "ada@example.com",
		EmailVerified: true,
		Name:          "Ada Lovelace",
		Picture:       "https://example.com/ada.png",
	}, identity)
	assert.Equal(t, "access-1", tokens.AccessToken)
	assert.Equal(t, "refresh-1", tokens.RefreshToken)
	assert.Equal(t, "raw-id-token", tokens.IDToken)
	assert.Equal(t, "openid email profile", tokens.Scope)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tokens.AccessTokenExpiresAt, time.Minute)
}

func TestProvider_ExchangeErrors(t *testing.T) {
	t.Parallel()

	t.Run("token endpoint rejects code", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
		}))
		t.Cleanup(srv.Close)

		p := newTestProvider(t, &tokenServer{Server: srv}, validPayload)
		_, _, err := p.Exchange(context.Background(), "bad", "v")
		require.Error(t, err)
		assert.True(t, errorx.IsCode(err, errorx.CodeUpstreamError))
	})

	t.Run("missing id token", func(t *testing.T) {
		t.Parallel()
		ts := newTokenServer(t)
		delete(ts.resp, "id_token")

		p := newTestProvider(t, ts, validPayload)
		_, _, err := p.Exchange(context.Background(), "code", "v")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingIDToken)
	})

	t.Run("invalid id token", func(t *testing.T) {
		t.Parallel()
		p := newTestProvider(t, newTokenServer(t), func(context.Context, string, string) (*idtoken.Payload, error) {
			return nil, errors.New("idtoken: audience provided does not match aud claim")
		})
		_, _, err := p.Exchange(context.Background(), "code", "v")
		require.Error(t, err)
		assert.True(t, errorx.IsUnauthorized(err))
	})
}

func TestIdentityFromClaims_StringEmailVerified(t *testing.T) {
	t.Parallel()

	identity := identityFromClaims(&idtoken.Payload{
		Subject: "42",
		Claims:  map[string]any{"email": "a@example.com", "email_verified": "true"},
	})
	assert.True(t, identity.EmailVerified)
	assert.Equal(t, "42", identity.Subject)
	assert.Empty(t, identity.Name)
}
