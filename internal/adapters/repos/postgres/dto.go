package postgres

import (
	"time"

	"github.com/google/uuid"

	"gitlab.com/acme/acme-auth/internal/domain/account"
	"gitlab.com/acme/acme-auth/internal/domain/session"
	"gitlab.com/acme/acme-auth/internal/domain/user"
	"gitlab.com/acme/acme-auth/internal/domain/verification"
)

type UserDTO struct {
	ID            uuid.UUID
	Email         string
	Name          string
	Image         string
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func UserToDomain(dto UserDTO) *user.User {
	return user.Rehydrate(user.RehydrateArgs{
		ID:            user.ID(dto.ID),
		Email:         dto.Email,
		Name:          dto.Name,
		Image:         dto.Image,
		EmailVerified: dto.EmailVerified,
		CreatedAt:     dto.CreatedAt,
		UpdatedAt:     dto.UpdatedAt,
	})
}

func DomainToUserDTO(u *user.User) UserDTO {
	return UserDTO{
		ID:            uuid.UUID(u.ID()),
		Email:         u.Email(),
		Name:          u.Name(),
		Image:         u.Image(),
		EmailVerified: u.EmailVerified(),
		CreatedAt:     u.CreatedAt(),
		UpdatedAt:     u.UpdatedAt(),
	}
}

type SessionDTO struct {
	ID        string
	UserID    uuid.UUID
	ExpiresAt time.Time
	IPAddress string
	UserAgent string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func SessionToDomain(dto SessionDTO) *session.Session {
	return session.Rehydrate(session.RehydrateArgs{
		ID:        session.ID(dto.ID),
		UserID:    user.ID(dto.UserID),
		ExpiresAt: dto.ExpiresAt,
		IPAddress: dto.IPAddress,
		UserAgent: dto.UserAgent,
		CreatedAt: dto.CreatedAt,
		UpdatedAt: dto.UpdatedAt,
	})
}

func DomainToSessionDTO(s *session.Session) SessionDTO {
	return SessionDTO{
		ID:        s.ID().String(),
		UserID:    uuid.UUID(s.UserID()),
		ExpiresAt: s.ExpiresAt(),
		IPAddress: s.IPAddress(),
		UserAgent: s.UserAgent(),
		CreatedAt: s.CreatedAt(),
		UpdatedAt: s.UpdatedAt(),
	}
}

type AccountDTO struct {
	ID                   uuid.UUID
	UserID               uuid.UUID
	ProviderID           string
	AccountID            string
	AccessToken          string
	RefreshToken         string
	IDToken              string
	Scope                string
	AccessTokenExpiresAt *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func AccountToDomain(dto AccountDTO) *account.Account {
	tokens := account.Tokens{
		AccessToken:  dto.AccessToken,
		RefreshToken: dto.RefreshToken,
		IDToken:      dto.IDToken,
		Scope:        dto.Scope,
	}
	if dto.AccessTokenExpiresAt != nil {
		tokens.AccessTokenExpiresAt = *dto.AccessTokenExpiresAt
	}

	return account.Rehydrate(account.RehydrateArgs{
		ID:         account.ID(dto.ID),
		UserID:     user.ID(dto.UserID),
		ProviderID: account.ProviderID(dto.ProviderID),
		AccountID:  dto.AccountID,
		Tokens:     tokens,
		CreatedAt:  dto.CreatedAt,
		UpdatedAt:  dto.UpdatedAt,
	})
}

func DomainToAccountDTO(a *account.Account) AccountDTO {
	t := a.Tokens()
	dto := AccountDTO{
		ID:           uuid.UUID(a.ID()),
		UserID:       uuid.UUID(a.UserID()),
		ProviderID:   a.ProviderID().String(),
		AccountID:    a.AccountID(),
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		IDToken:      t.IDToken,
		Scope:        t.Scope,
		CreatedAt:    a.CreatedAt(),
		UpdatedAt:    a.UpdatedAt(),
	}
	if !t.AccessTokenExpiresAt.IsZero() {
		exp := t.AccessTokenExpiresAt
		dto.AccessTokenExpiresAt = &exp
	}
	return dto
}

type VerificationDTO struct {
	ID                    uuid.UUID
	Email                 string
	Purpose               string
	CodeHash              []byte
	Attempts              int16
	Status                string
	ExpiresAt             time.Time
	CodeTTLSeconds        int32
	ResendCooldownSeconds int32
	ResendAt              time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func VerificationToDomain(dto VerificationDTO) *verification.Verification {
	return verification.Rehydrate(verification.RehydrateArgs{
		ID:             verification.ID(dto.ID),
		Email:          dto.Email,
		Purpose:        verification.Purpose(dto.Purpose),
		CodeHash:       dto.CodeHash,
		Attempts:       int8(dto.Attempts),
		Status:         verification.Status(dto.Status),
		ExpiresAt:      dto.ExpiresAt,
		CodeTTL:        time.Duration(dto.CodeTTLSeconds) * time.Second,
		ResendCooldown: time.Duration(dto.ResendCooldownSeconds) * time.Second,
		ResendAt:       dto.ResendAt,
		CreatedAt:      dto.CreatedAt,
		UpdatedAt:      dto.UpdatedAt,
	})
}

func DomainToVerificationDTO(v *verification.Verification) VerificationDTO {
	cd := v.Cooldown()
	return VerificationDTO{
		ID:                    uuid.UUID(v.ID()),
		Email:                 v.Email(),
		Purpose:               v.Purpose().String(),
		CodeHash:              v.CodeHash(),
		Attempts:              int16(v.Attempts()),
		Status:                v.Status().String(),
		ExpiresAt:             v.ExpiresAt(),
		CodeTTLSeconds:        int32(v.CodeTTL() / time.Second),
		ResendCooldownSeconds: int32(cd.Duration() / time.Second),
		ResendAt:              cd.ReadyAt(),
		CreatedAt:             v.CreatedAt(),
		UpdatedAt:             v.UpdatedAt(),
	}
}
