package authhttp

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/acme/acme-auth/pkg/env"
)

// replay copies the cookies set on rec into a fresh request.
func replay(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestCookies_SecureFollowsMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mode   env.Mode
		secure bool
	}{
		{mode: env.Local, secure: false},
		{mode: env.Test, secure: false},
		{mode: env.Dev, secure: true},
		{mode: env.Prod, secure: true},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			c := NewCookies(CookiesArgs{Mode: tt.mode, Domain: "acme.test", Secret: []byte("secret")})
			rec := httptest.NewRecorder()
			c.SetPending(rec, "ada@example.com")

			cookie := findCookie(rec, PendingVerificationCookie)
			require.NotNil(t, cookie)
			assert.Equal(t, tt.secure, cookie.Secure)
			assert.True(t, cookie.HttpOnly)
			assert.Equal(t, "acme.test", cookie.Domain)
			assert.Equal(t, "/", cookie.Path)
		})
	}
}

func TestCookies_PendingAndFlash(t *testing.T) {
	t.Parallel()

	c := NewCookies(CookiesArgs{Mode: env.Test, Secret: []byte("secret")})

	rec := httptest.NewRecorder()
	c.SetPending(rec, "ada+otp@example.com")
	c.SetFlash(rec, "Verification code resent successfully!")
	req := replay(rec)

	assert.Equal(t, "ada+otp@example.com", c.Pending(req))

	popRec := httptest.NewRecorder()
	assert.Equal(t, "Verification code resent successfully!", c.PopFlash(popRec, req))
	cleared := findCookie(popRec, FlashCookie)
	require.NotNil(t, cleared)
	assert.Negative(t, cleared.MaxAge)

	assert.Empty(t, c.Pending(httptest.NewRequest(http.MethodGet, "/", nil)))
	assert.Empty(t, c.PopFlash(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)))
}

func TestCookies_PendingVerification(t *testing.T) {
	t.Parallel()

	c := NewCookies(CookiesArgs{Mode: env.Test, Secret: []byte("secret")})

	t.Run("remembers email and request time", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c.SetPending(rec, "ada@example.com")

		p, ok := c.PendingVerification(replay(rec))
		require.True(t, ok)
		assert.Equal(t, "ada@example.com", p.Email)
		assert.WithinDuration(t, time.Now(), p.RequestedAt, 2*time.Second)
	})

	t.Run("unreadable value", func(t *testing.T) {
		tests := []struct {
			name  string
			value string
		}{
			{name: "not base64", value: "%%%"},
			{name: "bare email", value: encode("ada@example.com")},
			{name: "no email", value: encode(`{"requested_at":"2026-01-02T03:04:05Z"}`)},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req := httptest.NewRequest(http.MethodGet, "/", nil)
				req.AddCookie(&http.Cookie{Name: PendingVerificationCookie, Value: tt.value})

				_, ok := c.PendingVerification(req)
				assert.False(t, ok)
				assert.Empty(t, c.Pending(req))
			})
		}
	})
}

func TestCookies_OAuthState(t *testing.T) {
	t.Parallel()

	c := NewCookies(CookiesArgs{Mode: env.Test, Secret: []byte("secret")})
	want := OAuthState{State: "state-1", Verifier: "verifier-1", CallbackURL: "/dashboard"}

	rec := httptest.NewRecorder()
	require.NoError(t, c.SetOAuthState(rec, want))

	got, err := c.OAuthState(replay(rec))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	t.Run("signed with another secret", func(t *testing.T) {
		other := NewCookies(CookiesArgs{Mode: env.Test, Secret: []byte("other")})
		_, err := other.OAuthState(replay(rec))
		assert.Error(t, err)
	})

	t.Run("tampered value", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: OAuthStateCookie, Value: findCookie(rec, OAuthStateCookie).Value + "x"})
		_, err := c.OAuthState(req)
		assert.Error(t, err)
	})
}

func TestSessionToken(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := SessionToken(req)
	assert.ErrorIs(t, err, ErrNoSessionCookie)

	req.Header.Set("Authorization", "Bearer from-header")
	token, err := SessionToken(req)
	require.NoError(t, err)
	assert.Equal(t, "from-header", token)

	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "from-cookie"})
	token, err = SessionToken(req)
	require.NoError(t, err)
	assert.Equal(t, "from-cookie", token)
}

func TestNewCookies_RequiresSecret(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { NewCookies(CookiesArgs{Mode: env.Test}) })
}
