package verification

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gitlab.com/acme/acme-auth/pkg/env"
)

func TestValidateEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		email string
		mode  env.Mode
		want  error
	}{
		{"user@gmail.com", env.Prod, nil},
		{"user@mail.example.co.uk", env.Dev, nil},
		{"user@example.notatld", env.Local, nil},
		{"user@example.notatld", env.Prod, ErrEmailDomainNotAllowed},
		{"user@corp.internal", env.Dev, ErrEmailDomainNotAllowed},
		{"no-at-sign", env.Test, ErrInvalidEmail},
		{"", env.Test, ErrInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.email+"/"+tt.mode.String(), func(t *testing.T) {
			t.Parallel()

			err := ValidateEmail(tt.email, tt.mode)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestHasRealTLD(t *testing.T) {
	t.Parallel()

	assert.True(t, hasRealTLD("user@gmail.com"))
	assert.True(t, hasRealTLD("user@mail.example.co.uk"))
	assert.False(t, hasRealTLD("user@localhost"))
	assert.False(t, hasRealTLD("user@co.uk"))
	assert.False(t, hasRealTLD("not an address"))
}
