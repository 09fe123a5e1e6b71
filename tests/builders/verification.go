package builders

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"gitlab.com/acme/acme-auth/internal/domain/verification"
	"gitlab.com/acme/acme-auth/pkg/env"
)

const DefaultCode = "123456"

type VerificationBuilder struct {
	id             verification.ID
	email          string
	purpose        verification.Purpose
	code           string
	attempts       int8
	status         verification.Status
	expiresAt      time.Time
	codeTTL        time.Duration
	resendCooldown time.Duration
	resendAt       time.Time
	createdAt      time.Time
	updatedAt      time.Time
}

func NewVerificationBuilder() *VerificationBuilder {
	now := time.Now().UTC()

	return &VerificationBuilder{
		id:             verification.NewID(),
		email:          "test@example.com",
		purpose:        verification.PurposeSignIn,
		code:           DefaultCode,
		status:         verification.StatusPending,
		expiresAt:      now.Add(verification.CodeTTL),
		codeTTL:        verification.CodeTTL,
		resendCooldown: verification.ResendCooldown,
		resendAt:       now.Add(verification.ResendCooldown),
		createdAt:      now,
		updatedAt:      now,
	}
}

func (b *VerificationBuilder) WithID(id verification.ID) *VerificationBuilder {
	b.id = id
	return b
}

func (b *VerificationBuilder) WithEmail(email string) *VerificationBuilder {
	b.email = email
	return b
}

func (b *VerificationBuilder) WithPurpose(purpose verification.Purpose) *VerificationBuilder {
	b.purpose = purpose
	return b
}

func (b *VerificationBuilder) WithCode(code string) *VerificationBuilder {
	b.code = code
	return b
}

func (b *VerificationBuilder) WithAttempts(attempts int8) *VerificationBuilder {
	b.attempts = attempts
	return b
}

func (b *VerificationBuilder) WithStatus(status verification.Status) *VerificationBuilder {
	b.status = status
	return b
}

func (b *VerificationBuilder) WithExpiredCode() *VerificationBuilder {
	b.expiresAt = time.Now().UTC().Add(-1 * time.Minute)
	return b
}

func (b *VerificationBuilder) WithResendAvailable() *VerificationBuilder {
	b.resendAt = time.Now().UTC().Add(-1 * time.Second)
	return b
}

func (b *VerificationBuilder) WithResendIn(d time.Duration) *VerificationBuilder {
	b.resendAt = time.Now().UTC().Add(d)
	return b
}

func (b *VerificationBuilder) Verified() *VerificationBuilder {
	b.status = verification.StatusVerified
	return b
}

func (b *VerificationBuilder) Expired() *VerificationBuilder {
	b.status = verification.StatusExpired
	b.expiresAt = time.Now().UTC().Add(-1 * time.Minute)
	return b
}

func (b *VerificationBuilder) Build() *verification.Verification {
	// MinCost keeps builders fast; bcrypt comparison reads the cost from the hash.
	hash, err := bcrypt.GenerateFromPassword([]byte(b.code), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}

	return verification.Rehydrate(verification.RehydrateArgs{
		ID:             b.id,
		Email:          b.email,
		Purpose:        b.purpose,
		CodeHash:       hash,
		Attempts:       b.attempts,
		Status:         b.status,
		ExpiresAt:      b.expiresAt,
		CodeTTL:        b.codeTTL,
		ResendCooldown: b.resendCooldown,
		ResendAt:       b.resendAt,
		CreatedAt:      b.createdAt,
		UpdatedAt:      b.updatedAt,
	})
}

func (b *VerificationBuilder) BuildNew() (*verification.Verification, error) {
	return verification.New(verification.Args{
		Email:   b.email,
		Purpose: b.purpose,
		Mode:    env.Test,
	})
}

type VerificationFactory struct{}

func (f *VerificationFactory) Pending(email string) *verification.Verification {
	return NewVerificationBuilder().
		WithEmail(email).
		Build()
}

func (f *VerificationFactory) ResendReady(email string) *verification.Verification {
	return NewVerificationBuilder().
		WithEmail(email).
		WithResendAvailable().
		Build()
}

func (f *VerificationFactory) Expired(email string) *verification.Verification {
	return NewVerificationBuilder().
		WithEmail(email).
		Expired().
		Build()
}

func (f *VerificationFactory) WithFailedAttempts(email string, attempts int8) *verification.Verification {
	return NewVerificationBuilder().
		WithEmail(email).
		WithAttempts(attempts).
		Build()
}
