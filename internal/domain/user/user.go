package user

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/ARUMANDESU/validation"
	"github.com/google/uuid"

	"gitlab.com/acme/acme-auth/internal/domain/event"
	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/pkg/validationx"
)

const (
	MaxNameLen  = 150
	MaxImageLen = 2048
)

type SignUpMethod string

const (
	SignUpMethodEmailOTP SignUpMethod = "email-otp"
	SignUpMethodGoogle   SignUpMethod = "google"
)

type ID uuid.UUID

func NewID() ID {
	return ID(uuid.New())
}

func ParseID(s string) (ID, error) {
	uid, err := uuid.Parse(s)
	if err != nil {
		return ID{}, err
	}
	return ID(uid), nil
}

func (id ID) String() string {
	return uuid.UUID(id).String()
}

func (id ID) IsZero() bool {
	return id == ID{}
}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(uuid.UUID(id).String())
}

func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := ParseID(s)
	if err != nil {
		return err
	}

	*id = parsed
	return nil
}

type User struct {
	event.Recorder
	id            ID
	email         string
	name          string
	image         string
	emailVerified bool
	createdAt     time.Time
	updatedAt     time.Time
}

// NewFromEmail creates a user who just proved ownership of email with a one-time code.
func NewFromEmail(email string) (*User, error) {
	const op = "user.NewFromEmail"

	u, err := newUser(email, "", "", true)
	if err != nil {
		return nil, errorx.Wrap(err, op)
	}

	u.AddEvent(&SignedUp{
		Header: event.NewEventHeader(),
		UserID: u.id,
		Email:  u.email,
		Method: SignUpMethodEmailOTP,
	})

	return u, nil
}

// Profile is what an identity provider tells us about a person.
type Profile struct {
	Email         string
	EmailVerified bool
	Name          string
	Image         string
}

func NewFromProfile(p Profile) (*User, error) {
	const op = "user.NewFromProfile"

	u, err := newUser(p.Email, p.Name, p.Image, p.EmailVerified)
	if err != nil {
		return nil, errorx.Wrap(err, op)
	}

	u.AddEvent(&SignedUp{
		Header: event.NewEventHeader(),
		UserID: u.id,
		Email:  u.email,
		Method: SignUpMethodGoogle,
	})

	return u, nil
}

// NormalizeEmail lower-cases and trims an address; stored emails are always normalized.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func newUser(email, name, image string, verified bool) (*User, error) {
	email = NormalizeEmail(email)
	if err := validation.Validate(email, validationx.EmailRules...); err != nil {
		return nil, ErrInvalidEmail.WithCause(err)
	}

	now := time.Now().UTC()
	return &User{
		id:            NewID(),
		email:         email,
		name:          truncate(strings.TrimSpace(name), MaxNameLen),
		image:         truncate(image, MaxImageLen),
		emailVerified: verified,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

type RehydrateArgs struct {
	ID            ID
	Email         string
	Name          string
	Image         string
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func Rehydrate(args RehydrateArgs) *User {
	return &User{
		id:            args.ID,
		email:         args.Email,
		name:          args.Name,
		image:         args.Image,
		emailVerified: args.EmailVerified,
		createdAt:     args.CreatedAt,
		updatedAt:     args.UpdatedAt,
	}
}

// MarkEmailVerified is a no-op when the email is already verified.
func (u *User) MarkEmailVerified() error {
	if u == nil {
		return errors.New("user is nil")
	}
	if u.emailVerified {
		return nil
	}

	u.emailVerified = true
	u.updatedAt = time.Now().UTC()
	u.AddEvent(&EmailVerified{
		Header: event.NewEventHeader(),
		UserID: u.id,
		Email:  u.email,
	})
	return nil
}

// UpdateProfile fills in name and image only where they are still blank,
// so provider data never overwrites what the user already has.
func (u *User) UpdateProfile(name, image string) bool {
	if u == nil {
		return false
	}

	changed := false
	if u.name == "" && strings.TrimSpace(name) != "" {
		u.name = truncate(strings.TrimSpace(name), MaxNameLen)
		changed = true
	}
	if u.image == "" && image != "" {
		u.image = truncate(image, MaxImageLen)
		changed = true
	}
	if changed {
		u.updatedAt = time.Now().UTC()
	}
	return changed
}

func (u *User) ID() ID {
	if u == nil {
		return ID{}
	}
	return u.id
}

func (u *User) Email() string {
	if u == nil {
		return ""
	}
	return u.email
}

func (u *User) Name() string {
	if u == nil {
		return ""
	}
	return u.name
}

func (u *User) Image() string {
	if u == nil {
		return ""
	}
	return u.image
}

func (u *User) EmailVerified() bool {
	if u == nil {
		return false
	}
	return u.emailVerified
}

func (u *User) CreatedAt() time.Time {
	if u == nil {
		return time.Time{}
	}
	return u.createdAt
}

func (u *User) UpdatedAt() time.Time {
	if u == nil {
		return time.Time{}
	}
	return u.updatedAt
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
