package account

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"gitlab.com/acme/acme-auth/internal/domain/user"
)

type ProviderID string

const ProviderGoogle ProviderID = "google"

func (p ProviderID) String() string {
	return string(p)
}

type ID uuid.UUID

func NewID() ID {
	return ID(uuid.New())
}

func (id ID) String() string {
	return uuid.UUID(id).String()
}

// Tokens are the credentials an identity provider issued on the last sign-in.
type Tokens struct {
	AccessToken          string
	RefreshToken         string
	IDToken              string
	Scope                string
	AccessTokenExpiresAt time.Time
}

// Account links a user to one identity at an external provider.
type Account struct {
	id         ID
	userID     user.ID
	providerID ProviderID
	accountID  string
	tokens     Tokens
	createdAt  time.Time
	updatedAt  time.Time
}

type Args struct {
	UserID     user.ID
	ProviderID ProviderID
	AccountID  string
	Tokens     Tokens
}

func New(args Args) (*Account, error) {
	switch {
	case args.UserID.IsZero():
		return nil, errors.New("account: user id is required")
	case args.ProviderID == "":
		return nil, errors.New("account: provider id is required")
	case args.AccountID == "":
		return nil, errors.New("account: provider account id is required")
	}

	now := time.Now().UTC()
	return &Account{
		id:         NewID(),
		userID:     args.UserID,
		providerID: args.ProviderID,
		accountID:  args.AccountID,
		tokens:     args.Tokens,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

type RehydrateArgs struct {
	ID         ID
	UserID     user.ID
	ProviderID ProviderID
	AccountID  string
	Tokens     Tokens
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func Rehydrate(args RehydrateArgs) *Account {
	return &Account{
		id:         args.ID,
		userID:     args.UserID,
		providerID: args.ProviderID,
		accountID:  args.AccountID,
		tokens:     args.Tokens,
		createdAt:  args.CreatedAt,
		updatedAt:  args.UpdatedAt,
	}
}

// UpdateTokens replaces the stored tokens. Providers omit the refresh token
// on repeat consents, so an empty one keeps the previous value.
func (a *Account) UpdateTokens(t Tokens) {
	if a == nil {
		return
	}
	if t.RefreshToken == "" {
		t.RefreshToken = a.tokens.RefreshToken
	}
	a.tokens = t
	a.updatedAt = time.Now().UTC()
}

func (a *Account) ID() ID {
	if a == nil {
		return ID{}
	}
	return a.id
}

func (a *Account) UserID() user.ID {
	if a == nil {
		return user.ID{}
	}
	return a.userID
}

func (a *Account) ProviderID() ProviderID {
	if a == nil {
		return ""
	}
	return a.providerID
}

func (a *Account) AccountID() string {
	if a == nil {
		return ""
	}
	return a.accountID
}

func (a *Account) Tokens() Tokens {
	if a == nil {
		return Tokens{}
	}
	return a.tokens
}

func (a *Account) CreatedAt() time.Time {
	if a == nil {
		return time.Time{}
	}
	return a.createdAt
}

func (a *Account) UpdatedAt() time.Time {
	if a == nil {
		return time.Time{}
	}
	return a.updatedAt
}

// Identity is what a provider asserts about the person who just signed in.
type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}
