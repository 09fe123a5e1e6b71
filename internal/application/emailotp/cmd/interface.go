package cmd

import (
	"context"

	authapp "gitlab.com/acme/acme-auth/internal/application/auth"
	"gitlab.com/acme/acme-auth/internal/domain/user"
	"gitlab.com/acme/acme-auth/internal/domain/verification"
)

type VerificationRepo interface {
	GetVerification(ctx context.Context, email string, purpose verification.Purpose) (*verification.Verification, error)
	// SaveVerification replaces any challenge stored for the same email and purpose.
	SaveVerification(ctx context.Context, v *verification.Verification) error
	UpdateVerification(
		ctx context.Context,
		email string,
		purpose verification.Purpose,
		fn func(context.Context, *verification.Verification) error,
	) error
	DeleteVerification(ctx context.Context, id verification.ID) error
}

type UserRepo interface {
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	SaveUser(ctx context.Context, u *user.User) error
	UpdateUser(ctx context.Context, id user.ID, fn func(context.Context, *user.User) error) error
}

type SessionIssuer interface {
	IssueSessionHandle(ctx context.Context, cmd authapp.IssueSession) (authapp.IssuedSession, error)
}
