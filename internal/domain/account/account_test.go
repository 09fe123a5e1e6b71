package account

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/acme/acme-auth/internal/domain/user"
)

func TestNew(t *testing.T) {
	uid := user.NewID()

	tests := []struct {
		name    string
		args    Args
		wantErr bool
	}{
		{name: "valid", args: Args{UserID: uid, ProviderID: ProviderGoogle, AccountID: "1098"}},
		{name: "missing user", args: Args{ProviderID: ProviderGoogle, AccountID: "1098"}, wantErr: true},
		{name: "missing provider", args: Args{UserID: uid, AccountID: "1098"}, wantErr: true},
		{name: "missing subject", args: Args{UserID: uid, ProviderID: ProviderGoogle}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(tt.args)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, a)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, uid, a.UserID())
			assert.Equal(t, ProviderGoogle, a.ProviderID())
			assert.Equal(t, "1098", a.AccountID())
		})
	}
}

func TestAccount_UpdateTokens(t *testing.T) {
	a := Rehydrate(RehydrateArgs{
		ID:         NewID(),
		UserID:     user.NewID(),
		ProviderID: ProviderGoogle,
		AccountID:  "1098",
		Tokens:     Tokens{AccessToken: "old", RefreshToken: "refresh-1"},
		UpdatedAt:  time.Now().Add(-time.Hour),
	})

	a.UpdateTokens(Tokens{AccessToken: "new", IDToken: "id"})
	assert.Equal(t, "new", a.Tokens().AccessToken)
	assert.Equal(t, "refresh-1", a.Tokens().RefreshToken, "refresh token is kept when the provider omits it")
	assert.Equal(t, "id", a.Tokens().IDToken)
	assert.WithinDuration(t, time.Now(), a.UpdatedAt(), time.Second)

	a.UpdateTokens(Tokens{AccessToken: "newer", RefreshToken: "refresh-2"})
	assert.Equal(t, "refresh-2", a.Tokens().RefreshToken)
}
