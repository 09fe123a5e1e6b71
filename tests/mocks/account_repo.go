package mocks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"gitlab.com/acme/acme-auth/internal/domain/account"
	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/pkg/i18nx"
)

type accountKey struct {
	provider  account.ProviderID
	accountID string
}

type AccountRepo struct {
	db map[accountKey]*account.Account
	mu sync.Mutex
}

func NewAccountRepo() *AccountRepo {
	return &AccountRepo{
		db: make(map[accountKey]*account.Account),
	}
}

func (r *AccountRepo) GetAccount(
	ctx context.Context,
	provider account.ProviderID,
	accountID string,
) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.db[accountKey{provider, accountID}]; ok {
		return a, nil
	}
	return nil, errorx.NewResourceNotFound("account")
}

func (r *AccountRepo) SaveAccount(ctx context.Context, a *account.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a == nil {
		return errors.New("account cannot be nil")
	}
	key := accountKey{a.ProviderID(), a.AccountID()}
	if _, exists := r.db[key]; exists {
		return errorx.NewDuplicateEntryWithField("account", i18nx.FieldProvider)
	}
	r.db[key] = a
	return nil
}

func (r *AccountRepo) UpdateAccount(
	ctx context.Context,
	provider account.ProviderID,
	accountID string,
	fn func(context.Context, *account.Account) error,
) error {
	if fn == nil {
		return errors.New("update function cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.db[accountKey{provider, accountID}]
	if !ok {
		return errorx.NewResourceNotFound("account")
	}
	if err := fn(ctx, a); err != nil {
		return fmt.Errorf("failed to apply update function: %w", err)
	}
	return nil
}

func (r *AccountRepo) SeedAccount(t *testing.T, a *account.Account) {
	t.Helper()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.db[accountKey{a.ProviderID(), a.AccountID()}] = a
}

func (r *AccountRepo) AssertAccountExists(t *testing.T, provider account.ProviderID, accountID string) *account.Account {
	t.Helper()

	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.db[accountKey{provider, accountID}]
	if !ok {
		t.Fatalf("expected %s account %s to exist, but it does not", provider, accountID)
	}
	return a
}
