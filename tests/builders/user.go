package builders

import (
	"time"

	"gitlab.com/acme/acme-auth/internal/domain/user"
)

type UserBuilder struct {
	id            user.ID
	email         string
	name          string
	image         string
	emailVerified bool
	createdAt     time.Time
	updatedAt     time.Time
}

func NewUserBuilder() *UserBuilder {
	now := time.Now().UTC()

	return &UserBuilder{
		id:            user.NewID(),
		email:         "test@example.com",
		emailVerified: true,
		createdAt:     now,
		updatedAt:     now,
	}
}

func (b *UserBuilder) WithID(id user.ID) *UserBuilder {
	b.id = id
	return b
}

func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.email = email
	return b
}

func (b *UserBuilder) WithName(name string) *UserBuilder {
	b.name = name
	return b
}

func (b *UserBuilder) WithImage(image string) *UserBuilder {
	b.image = image
	return b
}

func (b *UserBuilder) Unverified() *UserBuilder {
	b.emailVerified = false
	return b
}

func (b *UserBuilder) Build() *user.User {
	return user.Rehydrate(user.RehydrateArgs{
		ID:            b.id,
		Email:         b.email,
		Name:          b.name,
		Image:         b.image,
		EmailVerified: b.emailVerified,
		CreatedAt:     b.createdAt,
		UpdatedAt:     b.updatedAt,
	})
}

type UserFactory struct{}

func (f *UserFactory) Verified(email string) *user.User {
	return NewUserBuilder().WithEmail(email).Build()
}

func (f *UserFactory) Unverified(email string) *user.User {
	return NewUserBuilder().WithEmail(email).Unverified().Build()
}
