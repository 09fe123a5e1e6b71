package mocks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"gitlab.com/acme/acme-auth/internal/domain/user"
)

type UserRepo struct {
	*EventRepo
	dbbyID    map[user.ID]*user.User
	dbbyEmail map[string]*user.User
	mu        sync.Mutex
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		EventRepo: NewEventRepo(),
		dbbyID:    make(map[user.ID]*user.User),
		dbbyEmail: make(map[string]*user.User),
	}
}

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.dbbyEmail[email]; ok {
		return u, nil
	}
	return nil, user.ErrNotFound
}

func (r *UserRepo) GetUserByID(ctx context.Context, id user.ID) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.dbbyID[id]; ok {
		return u, nil
	}
	return nil, user.ErrNotFound
}

func (r *UserRepo) SaveUser(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u == nil {
		return errors.New("user cannot be nil")
	}
	if _, exists := r.dbbyEmail[u.Email()]; exists {
		return user.ErrEmailTaken
	}

	r.dbbyID[u.ID()] = u
	r.dbbyEmail[u.Email()] = u

	r.appendEvents(u.GetUncommittedEvents()...)
	u.MarkEventsAsCommitted()

	return nil
}

func (r *UserRepo) UpdateUser(ctx context.Context, id user.ID, fn func(context.Context, *user.User) error) error {
	if fn == nil {
		return errors.New("update function cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.dbbyID[id]
	if !ok {
		return user.ErrNotFound
	}

	if err := fn(ctx, u); err != nil {
		return fmt.Errorf("failed to apply update function: %w", err)
	}

	r.appendEvents(u.GetUncommittedEvents()...)
	u.MarkEventsAsCommitted()

	return nil
}

func (r *UserRepo) SeedUser(t *testing.T, u *user.User) {
	t.Helper()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.dbbyEmail[u.Email()]; exists {
		t.Fatalf("user with email %s already exists", u.Email())
	}

	r.dbbyID[u.ID()] = u
	r.dbbyEmail[u.Email()] = u
	u.MarkEventsAsCommitted()
}

func (r *UserRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.dbbyID)
}

func (r *UserRepo) AssertUserExistsByEmail(t *testing.T, email string) *user.UserAssertions {
	t.Helper()

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.dbbyEmail[email]
	if !ok {
		t.Fatalf("expected user with email %s to exist, but it does not", email)
		return nil
	}
	return user.NewUserAssertions(u)
}

func (r *UserRepo) AssertUserNotExistsByEmail(t *testing.T, email string) *UserRepo {
	t.Helper()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.dbbyEmail[email]; ok {
		t.Errorf("expected user with email %s to not exist, but it does", email)
	}
	return r
}

func (r *UserRepo) GetByEmail(t *testing.T, email string) *user.User {
	t.Helper()

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.dbbyEmail[email]
	if !ok {
		t.Fatalf("user with email %s not found", email)
	}
	return u
}
