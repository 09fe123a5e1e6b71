package verification

import (
	"gitlab.com/acme/acme-auth/internal/domain/valueobject/cooldown"
	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/pkg/i18nx"
)

var (
	ErrInvalidEmail          = errorx.NewValidationFieldFailed(i18nx.FieldEmail).WithKey(i18nx.KeyInvalidEmailFormat)
	ErrEmailDomainNotAllowed = errorx.NewValidationFieldFailed(i18nx.FieldEmail).WithKey(i18nx.KeyInvalidEmailFormat).WithCode(errorx.CodeInvalid)
	ErrInvalidPurpose        = errorx.NewValidationFieldFailed(i18nx.FieldPurpose).WithKey(i18nx.ValidationIsVerificationPurpose)
	ErrInvalidStatus         = errorx.NewAlreadyProcessed().WithKey(i18nx.KeyCodeAlreadyUsed)
	ErrCodeExpired           = errorx.NewBusinessRuleViolation().WithKey(i18nx.KeyCodeExpired)
	ErrCodeMismatch          = errorx.NewInvalidCredentials().WithKey(i18nx.KeyInvalidVerificationCode)
	ErrTooManyAttempts       = errorx.NewRateLimitExceeded().WithKey(i18nx.KeyTooManyAttempts)
	ErrWaitUntilResend       = cooldown.ErrActive
)

var (
	ErrPersistentCodeExpired     = errorx.NewPersistable(ErrCodeExpired)
	ErrPersistentCodeMismatch    = errorx.NewPersistable(ErrCodeMismatch)
	ErrPersistentTooManyAttempts = errorx.NewPersistable(ErrTooManyAttempts)
)
