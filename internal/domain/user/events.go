package user

import "gitlab.com/acme/acme-auth/internal/domain/event"

const EventStreamName = "events_user"

type SignedUp struct {
	event.Header
	event.Otel
	UserID ID           `json:"user_id"`
	Email  string       `json:"email"`
	Method SignUpMethod `json:"method"`
}

func (e SignedUp) GetStreamName() string {
	return EventStreamName
}

type EmailVerified struct {
	event.Header
	event.Otel
	UserID ID     `json:"user_id"`
	Email  string `json:"email"`
}

func (e EmailVerified) GetStreamName() string {
	return EventStreamName
}
