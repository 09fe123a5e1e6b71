package session

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/acme/acme-auth/internal/domain/user"
)

func TestNew(t *testing.T) {
	uid := user.NewID()

	s, err := New(Args{UserID: uid, TTL: time.Hour, IPAddress: "203.0.113.7", UserAgent: strings.Repeat("x", 600)})
	require.NoError(t, err)

	_, err = ParseID(s.ID().String())
	assert.NoError(t, err)
	assert.Equal(t, uid, s.UserID())
	assert.Equal(t, "203.0.113.7", s.IPAddress())
	assert.Len(t, s.UserAgent(), 512)
	assert.WithinDuration(t, time.Now().Add(time.Hour), s.ExpiresAt(), time.Second)

	s, err = New(Args{UserID: uid})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(DefaultTTL), s.ExpiresAt(), time.Second)

	_, err = New(Args{})
	assert.Error(t, err)
}

func TestSession_Lifecycle(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := Rehydrate(RehydrateArgs{
		ID:        NewID(),
		UserID:    user.NewID(),
		ExpiresAt: now.Add(7 * 24 * time.Hour),
		CreatedAt: now,
		UpdatedAt: now,
	})

	assert.False(t, s.IsExpired(now))
	assert.False(t, s.NeedsRefresh(now.Add(time.Hour), DefaultUpdateAge))
	assert.True(t, s.NeedsRefresh(now.Add(25*time.Hour), DefaultUpdateAge))

	later := now.Add(25 * time.Hour)
	require.NoError(t, s.Extend(later, 7*24*time.Hour))
	assert.Equal(t, later.Add(7*24*time.Hour), s.ExpiresAt())
	assert.False(t, s.NeedsRefresh(later, DefaultUpdateAge))

	expiredAt := s.ExpiresAt()
	assert.True(t, s.IsExpired(expiredAt))
	assert.False(t, s.NeedsRefresh(expiredAt, DefaultUpdateAge))
	assert.ErrorIs(t, s.Extend(expiredAt, time.Hour), ErrExpired)
}

func TestParseID(t *testing.T) {
	_, err := ParseID("not-a-ulid")
	assert.Error(t, err)

	id := NewID()
	parsed, err := ParseID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}
