package mocks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"gitlab.com/acme/acme-auth/internal/domain/session"
	"gitlab.com/acme/acme-auth/internal/domain/user"
	"gitlab.com/acme/acme-auth/pkg/errorx"
)

type SessionRepo struct {
	db map[session.ID]*session.Session
	mu sync.Mutex
}

func NewSessionRepo() *SessionRepo {
	return &SessionRepo{
		db: make(map[session.ID]*session.Session),
	}
}

func (r *SessionRepo) SaveSession(ctx context.Context, s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s == nil {
		return errors.New("session cannot be nil")
	}
	r.db[s.ID()] = s
	return nil
}

func (r *SessionRepo) GetSessionByID(ctx context.Context, id session.ID) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.db[id]; ok {
		return s, nil
	}
	return nil, errorx.NewResourceNotFound("session")
}

func (r *SessionRepo) UpdateSession(
	ctx context.Context,
	id session.ID,
	fn func(context.Context, *session.Session) error,
) error {
	if fn == nil {
		return errors.New("update function cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.db[id]
	if !ok {
		return errorx.NewResourceNotFound("session")
	}
	if err := fn(ctx, s); err != nil {
		return fmt.Errorf("failed to apply update function: %w", err)
	}
	return nil
}

func (r *SessionRepo) DeleteSession(ctx context.Context, id session.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.db[id]; !ok {
		return errorx.NewResourceNotFound("session")
	}
	delete(r.db, id)
	return nil
}

func (r *SessionRepo) SeedSession(t *testing.T, s *session.Session) {
	t.Helper()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.db[s.ID()]; exists {
		t.Fatalf("session %s already exists", s.ID())
	}
	r.db[s.ID()] = s
}

func (r *SessionRepo) SessionsOf(userID user.ID) []*session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*session.Session
	for _, s := range r.db {
		if s.UserID() == userID {
			out = append(out, s)
		}
	}
	return out
}

func (r *SessionRepo) AssertSessionExists(t *testing.T, id session.ID) *session.Session {
	t.Helper()

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.db[id]
	if !ok {
		t.Fatalf("expected session %s to exist, but it does not", id)
	}
	return s
}

func (r *SessionRepo) AssertSessionNotExists(t *testing.T, id session.ID) *SessionRepo {
	t.Helper()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.db[id]; ok {
		t.Errorf("expected session %s to not exist, but it does", id)
	}
	return r
}
