package cmd

import (
	"context"

	authapp "gitlab.com/acme/acme-auth/internal/application/auth"
	"gitlab.com/acme/acme-auth/internal/domain/account"
	"gitlab.com/acme/acme-auth/internal/domain/user"
)

// Provider is an OAuth identity provider using the authorization code flow with PKCE.
type Provider interface {
	ID() account.ProviderID
	AuthCodeURL(state, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (account.Identity, account.Tokens, error)
}

type UserRepo interface {
	GetUserByID(ctx context.Context, id user.ID) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	SaveUser(ctx context.Context, u *user.User) error
	UpdateUser(ctx context.Context, id user.ID, fn func(context.Context, *user.User) error) error
}

type AccountRepo interface {
	GetAccount(ctx context.Context, provider account.ProviderID, accountID string) (*account.Account, error)
	SaveAccount(ctx context.Context, a *account.Account) error
	UpdateAccount(
		ctx context.Context,
		provider account.ProviderID,
		accountID string,
		fn func(context.Context, *account.Account) error,
	) error
}

type SessionIssuer interface {
	IssueSessionHandle(ctx context.Context, cmd authapp.IssueSession) (authapp.IssuedSession, error)
}
