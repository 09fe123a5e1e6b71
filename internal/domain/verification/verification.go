package verification

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"gitlab.com/acme/acme-auth/internal/domain/event"
	"gitlab.com/acme/acme-auth/internal/domain/valueobject/cooldown"
	"gitlab.com/acme/acme-auth/pkg/env"
	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/pkg/randcode"
)

const (
	CodeLength = 6

	CodeTTL        = 5 * time.Minute
	ResendCooldown = 60 * time.Second
	MaxAttempts    = 3
)

type Status string

func (s Status) String() string {
	return string(s)
}

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusExpired  Status = "expired"
)

type Purpose string

func (p Purpose) String() string {
	return string(p)
}

const (
	PurposeSignIn            Purpose = "sign-in"
	PurposeEmailVerification Purpose = "email-verification"
)

func (p Purpose) IsValid() bool {
	switch p {
	case PurposeSignIn, PurposeEmailVerification:
		return true
	default:
		return false
	}
}

// ParsePurpose maps an empty value to PurposeSignIn.
func ParsePurpose(s string) (Purpose, error) {
	if s == "" {
		return PurposeSignIn, nil
	}
	p := Purpose(s)
	if !p.IsValid() {
		return "", ErrInvalidPurpose
	}
	return p, nil
}

type ID uuid.UUID

func NewID() ID {
	return ID(uuid.New())
}

func (id ID) String() string {
	return uuid.UUID(id).String()
}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(uuid.UUID(id).String())
}

func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	uid, err := uuid.Parse(s)
	if err != nil {
		return err
	}

	*id = ID(uid)
	return nil
}

// Verification is a one-time code challenge for an email address and purpose.
// Only the bcrypt hash of the code is kept; the plain code travels in the
// CodeRequested and CodeResent events to the mail delivery.
type Verification struct {
	event.Recorder
	id        ID
	email     string
	purpose   Purpose
	codeHash  []byte
	attempts  int8
	status    Status
	expiresAt time.Time
	codeTTL   time.Duration
	cooldown  cooldown.Cooldown
	createdAt time.Time
	updatedAt time.Time
}

type Args struct {
	Email   string
	Purpose Purpose
	Mode    env.Mode
	// Zero values fall back to CodeTTL and ResendCooldown.
	CodeTTL        time.Duration
	ResendCooldown time.Duration
}

func New(args Args) (*Verification, error) {
	const op = "verification.New"

	if err := ValidateEmail(args.Email, args.Mode); err != nil {
		return nil, errorx.Wrap(err, op)
	}
	if !args.Purpose.IsValid() {
		return nil, errorx.Wrap(ErrInvalidPurpose, op)
	}

	ttl := args.CodeTTL
	if ttl <= 0 {
		ttl = CodeTTL
	}
	resendAfter := args.ResendCooldown
	if resendAfter <= 0 {
		resendAfter = ResendCooldown
	}

	code, hash, err := generateCode()
	if err != nil {
		return nil, errorx.Wrap(err, op)
	}
	now := time.Now().UTC()

	v := &Verification{
		id:        NewID(),
		email:     args.Email,
		purpose:   args.Purpose,
		codeHash:  hash,
		status:    StatusPending,
		expiresAt: now.Add(ttl),
		codeTTL:   ttl,
		cooldown:  cooldown.New(resendAfter, now),
		createdAt: now,
		updatedAt: now,
	}

	v.AddEvent(&CodeRequested{
		Header:         event.NewEventHeader(),
		VerificationID: v.id,
		Email:          v.email,
		Purpose:        v.purpose,
		Code:           code,
		ExpiresAt:      v.expiresAt,
	})

	return v, nil
}

type RehydrateArgs struct {
	ID             ID
	Email          string
	Purpose        Purpose
	CodeHash       []byte
	Attempts       int8
	Status         Status
	ExpiresAt      time.Time
	CodeTTL        time.Duration
	ResendCooldown time.Duration
	ResendAt       time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func Rehydrate(args RehydrateArgs) *Verification {
	ttl := args.CodeTTL
	if ttl <= 0 {
		ttl = CodeTTL
	}
	resendAfter := args.ResendCooldown
	if resendAfter <= 0 {
		resendAfter = ResendCooldown
	}

	return &Verification{
		id:        args.ID,
		email:     args.Email,
		purpose:   args.Purpose,
		codeHash:  args.CodeHash,
		attempts:  args.Attempts,
		status:    args.Status,
		expiresAt: args.ExpiresAt,
		codeTTL:   ttl,
		cooldown:  cooldown.Rehydrate(resendAfter, args.ResendAt),
		createdAt: args.CreatedAt,
		updatedAt: args.UpdatedAt,
	}
}

// Verify checks code against the stored hash.
// Failed attempts and expiry change state, so their errors are persistable.
func (v *Verification) Verify(code string) error {
	const op = "verification.Verification.Verify"
	if v == nil {
		return errorx.Wrap(errors.New("verification is nil"), op)
	}
	if v.status != StatusPending {
		return errorx.Wrap(ErrInvalidStatus, op)
	}

	now := time.Now().UTC()
	if now.After(v.expiresAt) {
		v.status = StatusExpired
		v.updatedAt = now
		return errorx.Wrap(ErrPersistentCodeExpired, op)
	}

	if bcrypt.CompareHashAndPassword(v.codeHash, []byte(code)) != nil {
		v.attempts++
		v.updatedAt = now
		if v.attempts >= MaxAttempts {
			v.status = StatusExpired
			v.AddEvent(&VerificationFailed{
				Header:         event.NewEventHeader(),
				VerificationID: v.id,
				Email:          v.email,
				Reason:         "too many failed attempts",
			})
			return errorx.Wrap(ErrPersistentTooManyAttempts, op)
		}
		return errorx.Wrap(ErrPersistentCodeMismatch, op)
	}

	v.status = StatusVerified
	v.updatedAt = now
	v.AddEvent(&CodeVerified{
		Header:         event.NewEventHeader(),
		VerificationID: v.id,
		Email:          v.email,
		Purpose:        v.purpose,
	})

	return nil
}

// Resend issues a fresh code once the cooldown is ready and restarts it.
// Resending revives an expired challenge but never a verified one.
func (v *Verification) Resend() error {
	const op = "verification.Verification.Resend"
	if v == nil {
		return errorx.Wrap(errors.New("verification is nil"), op)
	}
	if v.status == StatusVerified {
		return errorx.Wrap(ErrInvalidStatus, op)
	}

	now := time.Now().UTC()
	restarted, err := v.cooldown.Restart(now)
	if err != nil {
		return errorx.Wrap(err, op)
	}

	code, hash, err := generateCode()
	if err != nil {
		return errorx.Wrap(err, op)
	}

	v.codeHash = hash
	v.attempts = 0
	v.status = StatusPending
	v.expiresAt = now.Add(v.codeTTL)
	v.cooldown = restarted
	v.updatedAt = now

	v.AddEvent(&CodeResent{
		Header:         event.NewEventHeader(),
		VerificationID: v.id,
		Email:          v.email,
		Purpose:        v.purpose,
		Code:           code,
		ExpiresAt:      v.expiresAt,
	})

	return nil
}

// IsActive reports whether the challenge still accepts codes at now.
func (v *Verification) IsActive(now time.Time) bool {
	if v == nil {
		return false
	}
	return v.status == StatusPending && !now.After(v.expiresAt)
}

func (v *Verification) CanResend(now time.Time) bool {
	if v == nil {
		return false
	}
	return v.status != StatusVerified && v.cooldown.IsReady(now)
}

func (v *Verification) IsStatus(s Status) bool {
	if v == nil {
		return false
	}

	return v.status == s
}

func (v *Verification) ID() ID {
	if v == nil {
		return ID{}
	}

	return v.id
}

func (v *Verification) Email() string {
	if v == nil {
		return ""
	}

	return v.email
}

func (v *Verification) Purpose() Purpose {
	if v == nil {
		return ""
	}

	return v.purpose
}

func (v *Verification) CodeHash() []byte {
	if v == nil {
		return nil
	}

	return v.codeHash
}

func (v *Verification) Attempts() int8 {
	if v == nil {
		return 0
	}

	return v.attempts
}

func (v *Verification) Status() Status {
	if v == nil {
		return ""
	}

	return v.status
}

func (v *Verification) ExpiresAt() time.Time {
	if v == nil {
		return time.Time{}
	}

	return v.expiresAt
}

func (v *Verification) CodeTTL() time.Duration {
	if v == nil {
		return 0
	}

	return v.codeTTL
}

func (v *Verification) Cooldown() cooldown.Cooldown {
	if v == nil {
		return cooldown.Cooldown{}
	}

	return v.cooldown
}

func (v *Verification) CreatedAt() time.Time {
	if v == nil {
		return time.Time{}
	}

	return v.createdAt
}

func (v *Verification) UpdatedAt() time.Time {
	if v == nil {
		return time.Time{}
	}

	return v.updatedAt
}

// HashCode returns the bcrypt hash stored for a plain code.
func HashCode(code string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
}

func generateCode() (string, []byte, error) {
	const op = "verification.generateCode"
	code, err := randcode.GenerateNumericCode(CodeLength)
	if err != nil {
		return "", nil, errorx.Wrap(err, op)
	}

	hash, err := HashCode(code)
	if err != nil {
		return "", nil, errorx.Wrap(err, op)
	}

	return code, hash, nil
}
