package verification

import (
	"time"

	"gitlab.com/acme/acme-auth/internal/domain/event"
)

const EventStreamName = "events_verification"

type CodeRequested struct {
	event.Header
	event.Otel
	VerificationID ID        `json:"verification_id"`
	Email          string    `json:"email"`
	Purpose        Purpose   `json:"purpose"`
	Code           string    `json:"code"`
	ExpiresAt      time.Time `json:"expires_at"`
}

func (e CodeRequested) GetStreamName() string {
	return EventStreamName
}

type CodeResent struct {
	event.Header
	event.Otel
	VerificationID ID        `json:"verification_id"`
	Email          string    `json:"email"`
	Purpose        Purpose   `json:"purpose"`
	Code           string    `json:"code"`
	ExpiresAt      time.Time `json:"expires_at"`
}

func (e CodeResent) GetStreamName() string {
	return EventStreamName
}

type CodeVerified struct {
	event.Header
	event.Otel
	VerificationID ID      `json:"verification_id"`
	Email          string  `json:"email"`
	Purpose        Purpose `json:"purpose"`
}

func (e CodeVerified) GetStreamName() string {
	return EventStreamName
}

type VerificationFailed struct {
	event.Header
	event.Otel
	VerificationID ID     `json:"verification_id"`
	Email          string `json:"email"`
	Reason         string `json:"reason"`
}

func (e VerificationFailed) GetStreamName() string {
	return EventStreamName
}
