package session

import (
	"errors"
	"time"

	"github.com/oklog/ulid/v2"

	"gitlab.com/acme/acme-auth/internal/domain/user"
	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/pkg/i18nx"
)

const (
	DefaultTTL       = 7 * 24 * time.Hour
	DefaultUpdateAge = 24 * time.Hour

	maxUserAgentLen = 512
)

var (
	ErrNotFound = errorx.NewUnauthorized().WithKey(i18nx.KeySessionNotFound)
	ErrExpired  = errorx.NewTokenExpired().WithKey(i18nx.KeySessionExpired)
)

// ID is a ULID, so sessions sort by creation time.
type ID string

func NewID() ID {
	return ID(ulid.Make().String())
}

func ParseID(s string) (ID, error) {
	id, err := ulid.ParseStrict(s)
	if err != nil {
		return "", err
	}
	return ID(id.String()), nil
}

func (id ID) String() string {
	return string(id)
}

type Session struct {
	id        ID
	userID    user.ID
	expiresAt time.Time
	ipAddress string
	userAgent string
	createdAt time.Time
	updatedAt time.Time
}

type Args struct {
	UserID    user.ID
	TTL       time.Duration
	IPAddress string
	UserAgent string
}

func New(args Args) (*Session, error) {
	if args.UserID.IsZero() {
		return nil, errors.New("session: user id is required")
	}
	ttl := args.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	ua := args.UserAgent
	if len(ua) > maxUserAgentLen {
		ua = ua[:maxUserAgentLen]
	}

	now := time.Now().UTC()
	return &Session{
		id:        NewID(),
		userID:    args.UserID,
		expiresAt: now.Add(ttl),
		ipAddress: args.IPAddress,
		userAgent: ua,
		createdAt: now,
		updatedAt: now,
	}, nil
}

type RehydrateArgs struct {
	ID        ID
	UserID    user.ID
	ExpiresAt time.Time
	IPAddress string
	UserAgent string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func Rehydrate(args RehydrateArgs) *Session {
	return &Session{
		id:        args.ID,
		userID:    args.UserID,
		expiresAt: args.ExpiresAt,
		ipAddress: args.IPAddress,
		userAgent: args.UserAgent,
		createdAt: args.CreatedAt,
		updatedAt: args.UpdatedAt,
	}
}

func (s *Session) IsExpired(now time.Time) bool {
	if s == nil {
		return true
	}
	return !now.Before(s.expiresAt)
}

// NeedsRefresh reports whether the session was last extended more than updateAge ago.
func (s *Session) NeedsRefresh(now time.Time, updateAge time.Duration) bool {
	if s == nil || s.IsExpired(now) {
		return false
	}
	return now.Sub(s.updatedAt) >= updateAge
}

// Extend slides the expiry to now+ttl.
func (s *Session) Extend(now time.Time, ttl time.Duration) error {
	if s == nil {
		return errors.New("session is nil")
	}
	if s.IsExpired(now) {
		return ErrExpired
	}

	s.expiresAt = now.UTC().Add(ttl)
	s.updatedAt = now.UTC()
	return nil
}

func (s *Session) ID() ID {
	if s == nil {
		return ""
	}
	return s.id
}

func (s *Session) UserID() user.ID {
	if s == nil {
		return user.ID{}
	}
	return s.userID
}

func (s *Session) ExpiresAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.expiresAt
}

func (s *Session) IPAddress() string {
	if s == nil {
		return ""
	}
	return s.ipAddress
}

func (s *Session) UserAgent() string {
	if s == nil {
		return ""
	}
	return s.userAgent
}

func (s *Session) CreatedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.createdAt
}

func (s *Session) UpdatedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.updatedAt
}
