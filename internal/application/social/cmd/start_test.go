package cmd

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/acme/acme-auth/internal/domain/account"
	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/tests/mocks"
)

func TestStartHandler(t *testing.T) {
	t.Parallel()

	h := NewStartHandler(StartHandlerArgs{
		Providers: []Provider{mocks.NewProvider(account.ProviderGoogle)},
	})

	t.Run("issues state and verifier", func(t *testing.T) {
		t.Parallel()

		res, err := h.Handle(t.Context(), Start{Provider: "google", CallbackURL: "/dashboard?tab=1"})
		require.NoError(t, err)

		assert.Len(t, res.State, 43, "32 random bytes, base64url without padding")
		assert.Len(t, res.Verifier, 43)
		assert.Equal(t, "/dashboard?tab=1", res.CallbackURL)

		u, err := url.Parse(res.AuthURL)
		require.NoError(t, err)
		assert.Equal(t, res.State, u.Query().Get("state"))
	})

	t.Run("each start is unique", func(t *testing.T) {
		t.Parallel()

		a, err := h.Handle(t.Context(), Start{Provider: "google"})
		require.NoError(t, err)
		b, err := h.Handle(t.Context(), Start{Provider: "google"})
		require.NoError(t, err)

		assert.NotEqual(t, a.State, b.State)
		assert.NotEqual(t, a.Verifier, b.Verifier)
		assert.Equal(t, DefaultCallbackURL, a.CallbackURL)
	})

	t.Run("unknown provider", func(t *testing.T) {
		t.Parallel()

		_, err := h.Handle(t.Context(), Start{Provider: "github"})
		require.Error(t, err)
		assert.True(t, errorx.IsCode(err, errorx.CodeProviderNotSupported))
	})

	t.Run("open redirect is refused", func(t *testing.T) {
		t.Parallel()

		for _, cb := range []string{"https://evil.example", "//evil.example", "/\\evil.example"} {
			_, err := h.Handle(t.Context(), Start{Provider: "google", CallbackURL: cb})
			assert.Error(t, err, cb)
		}
	})
}
