package verification

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"

	"gitlab.com/acme/acme-auth/internal/domain/valueobject/cooldown"
)

type VerificationAssertion struct {
	Verification *Verification
}

func NewVerificationAssertion(v *Verification) *VerificationAssertion {
	return &VerificationAssertion{Verification: v}
}

func (va *VerificationAssertion) AssertStatus(t *testing.T, expected Status) *VerificationAssertion {
	t.Helper()
	assert.Equal(t, expected, va.Verification.status, "Expected verification status to be %s, got %s", expected, va.Verification.status)
	return va
}

func (va *VerificationAssertion) AssertEmail(t *testing.T, expected string) *VerificationAssertion {
	t.Helper()
	assert.Equal(t, expected, va.Verification.email, "Expected verification email to be %s, got %s", expected, va.Verification.email)
	return va
}

func (va *VerificationAssertion) AssertPurpose(t *testing.T, expected Purpose) *VerificationAssertion {
	t.Helper()
	assert.Equal(t, expected, va.Verification.purpose, "Expected verification purpose to be %s, got %s", expected, va.Verification.purpose)
	return va
}

func (va *VerificationAssertion) AssertCodeMatches(t *testing.T, code string) *VerificationAssertion {
	t.Helper()
	err := bcrypt.CompareHashAndPassword(va.Verification.codeHash, []byte(code))
	assert.NoError(t, err, "Expected stored hash to match code %s", code)
	return va
}

func (va *VerificationAssertion) AssertCodeDoesNotMatch(t *testing.T, code string) *VerificationAssertion {
	t.Helper()
	err := bcrypt.CompareHashAndPassword(va.Verification.codeHash, []byte(code))
	assert.Error(t, err, "Expected stored hash not to match code %s", code)
	return va
}

func (va *VerificationAssertion) AssertAttempts(t *testing.T, expected int8) *VerificationAssertion {
	t.Helper()
	assert.Equal(t, expected, va.Verification.attempts, "Expected attempts to be %d, got %d", expected, va.Verification.attempts)
	return va
}

func (va *VerificationAssertion) AssertExpiresAt(t *testing.T, expected time.Time) *VerificationAssertion {
	t.Helper()
	assert.WithinDuration(
		t,
		expected,
		va.Verification.expiresAt,
		time.Second,
		"Expected code expires at to be within 1 second of %s, got %s",
		expected,
		va.Verification.expiresAt,
	)
	return va
}

func (va *VerificationAssertion) AssertResendAt(t *testing.T, expected time.Time) *VerificationAssertion {
	t.Helper()
	assert.WithinDuration(
		t,
		expected,
		va.Verification.cooldown.ReadyAt(),
		time.Second,
		"Expected resend to become available within 1 second of %s, got %s",
		expected,
		va.Verification.cooldown.ReadyAt(),
	)
	return va
}

func (va *VerificationAssertion) AssertCooldownState(t *testing.T, expected cooldown.State) *VerificationAssertion {
	t.Helper()
	got := va.Verification.cooldown.State(time.Now())
	assert.Equal(t, expected, got, "Expected cooldown state to be %s, got %s", expected, got)
	return va
}

func (va *VerificationAssertion) AssertEventsCount(t *testing.T, expected int) *VerificationAssertion {
	t.Helper()
	events := va.Verification.GetUncommittedEvents()
	assert.Len(t, events, expected, "Expected %d uncommitted events, got %d", expected, len(events))
	return va
}

func (va *VerificationAssertion) AssertNoEvents(t *testing.T) *VerificationAssertion {
	t.Helper()
	events := va.Verification.GetUncommittedEvents()
	assert.Empty(t, events, "Expected no uncommitted events, got %d", len(events))
	return va
}

func (va *VerificationAssertion) AssertEventExists(t *testing.T, eventType string) *VerificationAssertion {
	t.Helper()
	for _, ev := range va.Verification.GetUncommittedEvents() {
		if fmt.Sprintf("%T", ev) == eventType {
			return va
		}
	}
	t.Errorf("Expected event of type %s to exist, but it does not", eventType)
	return va
}

type CodeRequestedAssertion struct {
	event *CodeRequested
}

func NewCodeRequestedAssertion(e *CodeRequested) *CodeRequestedAssertion {
	return &CodeRequestedAssertion{event: e}
}

func (a *CodeRequestedAssertion) AssertVerificationID(t *testing.T, expected ID) *CodeRequestedAssertion {
	t.Helper()
	assert.Equal(t, expected, a.event.VerificationID, "Expected verification ID to be %s, got %s", expected, a.event.VerificationID)
	return a
}

func (a *CodeRequestedAssertion) AssertEmail(t *testing.T, expected string) *CodeRequestedAssertion {
	t.Helper()
	assert.Equal(t, expected, a.event.Email, "Expected email to be %s, got %s", expected, a.event.Email)
	return a
}

func (a *CodeRequestedAssertion) AssertCodeIsNumeric(t *testing.T) *CodeRequestedAssertion {
	t.Helper()
	assert.Regexp(t, `^[0-9]{6}$`, a.event.Code, "Expected a 6 digit code, got %q", a.event.Code)
	return a
}

type CodeResentAssertion struct {
	event *CodeResent
}

func NewCodeResentAssertion(e *CodeResent) *CodeResentAssertion {
	return &CodeResentAssertion{event: e}
}

func (a *CodeResentAssertion) AssertVerificationID(t *testing.T, expected ID) *CodeResentAssertion {
	t.Helper()
	assert.Equal(t, expected, a.event.VerificationID, "Expected verification ID to be %s, got %s", expected, a.event.VerificationID)
	return a
}

func (a *CodeResentAssertion) AssertEmail(t *testing.T, expected string) *CodeResentAssertion {
	t.Helper()
	assert.Equal(t, expected, a.event.Email, "Expected email to be %s, got %s", expected, a.event.Email)
	return a
}

func (a *CodeResentAssertion) AssertCodeIsNumeric(t *testing.T) *CodeResentAssertion {
	t.Helper()
	assert.Regexp(t, `^[0-9]{6}$`, a.event.Code, "Expected a 6 digit code, got %q", a.event.Code)
	return a
}
