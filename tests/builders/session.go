package builders

import (
	"time"

	"gitlab.com/acme/acme-auth/internal/domain/session"
	"gitlab.com/acme/acme-auth/internal/domain/user"
)

type SessionBuilder struct {
	id        session.ID
	userID    user.ID
	expiresAt time.Time
	ipAddress string
	userAgent string
	createdAt time.Time
	updatedAt time.Time
}

func NewSessionBuilder() *SessionBuilder {
	now := time.Now().UTC()

	return &SessionBuilder{
		id:        session.NewID(),
		userID:    user.NewID(),
		expiresAt: now.Add(session.DefaultTTL),
		ipAddress: "127.0.0.1",
		userAgent: "go-test",
		createdAt: now,
		updatedAt: now,
	}
}

func (b *SessionBuilder) WithID(id session.ID) *SessionBuilder {
	b.id = id
	return b
}

func (b *SessionBuilder) WithUserID(id user.ID) *SessionBuilder {
	b.userID = id
	return b
}

func (b *SessionBuilder) WithExpiresAt(t time.Time) *SessionBuilder {
	b.expiresAt = t
	return b
}

// WithLastUpdate moves updatedAt into the past so the session is due for refresh.
func (b *SessionBuilder) WithLastUpdate(ago time.Duration) *SessionBuilder {
	b.updatedAt = time.Now().UTC().Add(-ago)
	return b
}

func (b *SessionBuilder) Expired() *SessionBuilder {
	b.expiresAt = time.Now().UTC().Add(-1 * time.Minute)
	return b
}

func (b *SessionBuilder) Build() *session.Session {
	return session.Rehydrate(session.RehydrateArgs{
		ID:        b.id,
		UserID:    b.userID,
		ExpiresAt: b.expiresAt,
		IPAddress: b.ipAddress,
		UserAgent: b.userAgent,
		CreatedAt: b.createdAt,
		UpdatedAt: b.updatedAt,
	})
}

type SessionFactory struct{}

func (f *SessionFactory) Active(userID user.ID) *session.Session {
	return NewSessionBuilder().WithUserID(userID).Build()
}
