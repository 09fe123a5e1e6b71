package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/acme/acme-auth/internal/domain/event"
)

type UserAssertions struct {
	ID            ID
	Email         string
	Name          string
	Image         string
	EmailVerified bool
	Events        []event.Event
}

func NewUserAssertions(u *User) *UserAssertions {
	return &UserAssertions{
		ID:            u.ID(),
		Email:         u.Email(),
		Name:          u.Name(),
		Image:         u.Image(),
		EmailVerified: u.EmailVerified(),
		Events:        u.GetUncommittedEvents(),
	}
}

func (a *UserAssertions) AssertEmail(t *testing.T, expected string) *UserAssertions {
	t.Helper()
	assert.Equal(t, expected, a.Email, "Email mismatch")
	return a
}

func (a *UserAssertions) AssertName(t *testing.T, expected string) *UserAssertions {
	t.Helper()
	assert.Equal(t, expected, a.Name, "Name mismatch")
	return a
}

func (a *UserAssertions) AssertImage(t *testing.T, expected string) *UserAssertions {
	t.Helper()
	assert.Equal(t, expected, a.Image, "Image mismatch")
	return a
}

func (a *UserAssertions) AssertEmailVerified(t *testing.T, expected bool) *UserAssertions {
	t.Helper()
	assert.Equal(t, expected, a.EmailVerified, "EmailVerified mismatch")
	return a
}

func (a *UserAssertions) AssertSignedUp(t *testing.T, method SignUpMethod) *UserAssertions {
	t.Helper()
	require.Len(t, a.Events, 1, "expected one event")
	assert.IsType(t, &SignedUp{}, a.Events[0], "expected SignedUp event type")
	signedUp := a.Events[0].(*SignedUp)
	assert.Equal(t, a.ID, signedUp.UserID, "UserID in event mismatch")
	assert.Equal(t, a.Email, signedUp.Email, "Email in event mismatch")
	assert.Equal(t, method, signedUp.Method, "Method in event mismatch")
	return a
}

func (a *UserAssertions) AssertNoEvents(t *testing.T) *UserAssertions {
	t.Helper()
	assert.Empty(t, a.Events, "expected no events")
	return a
}
