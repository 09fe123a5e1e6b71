package mocks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"gitlab.com/acme/acme-auth/internal/domain/event"
	"gitlab.com/acme/acme-auth/internal/domain/verification"
	"gitlab.com/acme/acme-auth/pkg/errorx"
)

type verificationKey struct {
	email   string
	purpose verification.Purpose
}

type VerificationRepo struct {
	*EventRepo
	db     map[verificationKey]*verification.Verification
	dbbyID map[verification.ID]*verification.Verification
	mu     sync.Mutex
}

func NewVerificationRepo() *VerificationRepo {
	return &VerificationRepo{
		EventRepo: NewEventRepo(),
		db:        make(map[verificationKey]*verification.Verification),
		dbbyID:    make(map[verification.ID]*verification.Verification),
	}
}

func (r *VerificationRepo) GetVerification(
	ctx context.Context,
	email string,
	purpose verification.Purpose,
) (*verification.Verification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, exists := r.db[verificationKey{email, purpose}]; exists {
		return v, nil
	}
	return nil, errorx.NewNotFound()
}

// SaveVerification replaces any challenge already stored for the same email and purpose.
func (r *VerificationRepo) SaveVerification(ctx context.Context, v *verification.Verification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v == nil {
		return errors.New("verification cannot be nil")
	}

	key := verificationKey{v.Email(), v.Purpose()}
	if old, exists := r.db[key]; exists {
		delete(r.dbbyID, old.ID())
	}
	r.db[key] = v
	r.dbbyID[v.ID()] = v

	r.appendEvents(v.GetUncommittedEvents()...)
	v.MarkEventsAsCommitted()

	return nil
}

func (r *VerificationRepo) UpdateVerification(
	ctx context.Context,
	email string,
	purpose verification.Purpose,
	fn func(context.Context, *verification.Verification) error,
) error {
	if fn == nil {
		return errors.New("update function cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	v, exists := r.db[verificationKey{email, purpose}]
	if !exists {
		return errorx.NewNotFound()
	}

	fnerr := fn(ctx, v)
	if fnerr != nil && !errorx.IsPersistable(fnerr) {
		return fmt.Errorf("failed to apply update function: %w", fnerr)
	}

	r.appendEvents(v.GetUncommittedEvents()...)
	v.MarkEventsAsCommitted()

	if fnerr != nil {
		return fmt.Errorf("failed to apply update function: %w", fnerr)
	}
	return nil
}

func (r *VerificationRepo) DeleteVerification(ctx context.Context, id verification.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, exists := r.dbbyID[id]
	if !exists {
		return errorx.NewNotFound()
	}
	delete(r.dbbyID, id)
	delete(r.db, verificationKey{v.Email(), v.Purpose()})

	return nil
}

func (r *VerificationRepo) SeedVerification(t *testing.T, v *verification.Verification) {
	t.Helper()

	r.mu.Lock()
	defer r.mu.Unlock()

	key := verificationKey{v.Email(), v.Purpose()}
	if _, exists := r.db[key]; exists {
		t.Fatalf("verification for %s (%s) already exists", v.Email(), v.Purpose())
	}

	r.db[key] = v
	r.dbbyID[v.ID()] = v

	r.appendEvents(v.GetUncommittedEvents()...)
	v.MarkEventsAsCommitted()
}

func (r *VerificationRepo) AssertVerificationExists(
	t *testing.T,
	email string,
	purpose verification.Purpose,
) *verification.VerificationAssertion {
	t.Helper()

	r.mu.Lock()
	defer r.mu.Unlock()

	v, exists := r.db[verificationKey{email, purpose}]
	if !exists {
		t.Fatalf("expected verification for %s (%s) to exist, but it does not", email, purpose)
		return nil
	}
	return verification.NewVerificationAssertion(v)
}

func (r *VerificationRepo) AssertVerificationNotExists(
	t *testing.T,
	email string,
	purpose verification.Purpose,
) *VerificationRepo {
	t.Helper()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.db[verificationKey{email, purpose}]; exists {
		t.Errorf("expected verification for %s (%s) to not exist, but it does", email, purpose)
	}
	return r
}

func (r *VerificationRepo) AssertEventNotExists(t *testing.T, e event.Event) *VerificationRepo {
	t.Helper()
	r.EventRepo.AssertEventNotExists(t, e)
	return r
}

func (r *VerificationRepo) AssertEventCount(t *testing.T, count int) *VerificationRepo {
	t.Helper()
	r.EventRepo.AssertEventCount(t, count)
	return r
}
