package mocks

import (
	"context"
	"strings"
	"sync"
	"testing"

	"gitlab.com/acme/acme-auth/internal/domain/valueobject/mails"
)

type MockMailSender struct {
	mu        sync.Mutex
	sentMails []mails.Payload
	err       error
}

func NewMockMailSender() *MockMailSender {
	return &MockMailSender{
		sentMails: make([]mails.Payload, 0),
	}
}

func (m *MockMailSender) SendMail(ctx context.Context, payload mails.Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.sentMails = append(m.sentMails, payload)
	return nil
}

// FailWith makes every following SendMail return err. Pass nil to recover.
func (m *MockMailSender) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.err = err
}

func (m *MockMailSender) GetSentMails() []mails.Payload {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]mails.Payload{}, m.sentMails...)
}

func (m *MockMailSender) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sentMails = make([]mails.Payload, 0)
	m.err = nil
}

func (m *MockMailSender) AssertMailSent(t *testing.T, email, subject string) mails.Payload {
	t.Helper()
	for _, mail := range m.GetSentMails() {
		if mail.To == email && strings.Contains(mail.Subject, subject) {
			return mail
		}
	}
	t.Errorf("Expected mail to %s with subject containing %s not found", email, subject)
	return mails.Payload{}
}

func (m *MockMailSender) AssertNoMailSent(t *testing.T) {
	t.Helper()
	if sent := m.GetSentMails(); len(sent) > 0 {
		t.Errorf("Expected no mails, got %d", len(sent))
	}
}
