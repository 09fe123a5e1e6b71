package i18nx

// Error message keys
const (
	// Client errors
	KeyInvalid                   = "invalid"
	KeyValidationFailed          = "validation_failed"
	KeyValidationFailedField     = "validation_failed_field"
	KeyMalformedJSON             = "malformed_json"
	KeyUnauthorized              = "unauthorized"
	KeyInvalidCredentials        = "invalid_credentials"
	KeyTokenExpired              = "token_expired"
	KeyForbidden                 = "forbidden"
	KeyNotFound                  = "not_found"
	KeyNotFoundWithType          = "not_found_with_type"
	KeyMethodNotAllowed          = "method_not_allowed"
	KeyConflict                  = "conflict"
	KeyDuplicateEntry            = "duplicate_entry"
	KeyDuplicateEntryWithField   = "duplicate_entry_with_field"
	KeyRateLimitExceeded         = "rate_limit_exceeded"
	KeyRateLimitExceededWithTime = "rate_limit_exceeded_with_time"

	// Business logic errors
	KeyAlreadyProcessed      = "already_processed"
	KeyBusinessRuleViolation = "business_rule_violation"
	KeyProviderNotSupported  = "provider_not_supported"

	// Server errors
	KeyInternalError        = "internal_error"
	KeyServiceUnavailable   = "service_unavailable"
	KeyUpstreamServiceError = "upstream_service_error"
	KeyUpstreamTimeout      = "upstream_timeout"

	// Email
	KeyEmailMaxLen        = "email_max_len"
	KeyEmptyEmail         = "empty_email"
	KeyInvalidEmailFormat = "invalid_email_format"

	// Verification
	KeyCodeExpired             = "business_error_code_expired"
	KeyCodeAlreadyUsed         = "business_error_code_already_used"
	KeyInvalidVerificationCode = "business_error_invalid_verification_code"
	KeyTooManyAttempts         = "business_error_too_many_attempts"
	KeyWaitUntilResend         = "business_error_wait_until_resend"

	// Session
	KeySessionExpired     = "session_expired"
	KeySessionNotFound    = "session_not_found"
	KeyInvalidSessionJWT  = "invalid_session_token"
	KeyInvalidOAuthState  = "invalid_oauth_state"
	KeyEmailNotVerifiedBy = "error_email_not_verified_by_provider"
)

// User facing flash messages rendered by the pages.
const (
	FlashSendCodeFailed     = "flash_send_code_failed"
	FlashCodeMustBe6Digits  = "flash_code_must_be_6_digits"
	FlashCodeMustBeNumeric  = "flash_code_must_be_numeric"
	FlashEmailNotFound      = "flash_email_not_found"
	FlashEmailVerified      = "flash_email_verified"
	FlashVerifyFailed       = "flash_verify_failed"
	FlashCodeResent         = "flash_code_resent"
	FlashResendFailed       = "flash_resend_failed"
	FlashWaitBeforeResend   = "flash_wait_before_resend"
	FlashGoogleSignInFailed = "flash_google_sign_in_failed"
	FlashSignedOut          = "flash_signed_out"
	FlashInvalidEmail       = "flash_invalid_email"
)

// Validation message keys (project-specific validation errors)
const (
	ValidationRequired              = "validation_required"
	ValidationLengthTooLong         = "validation_length_too_long"
	ValidationLengthTooShort        = "validation_length_too_short"
	ValidationLengthInvalid         = "validation_length_invalid"
	ValidationLengthOutOfRange      = "validation_length_out_of_range"
	ValidationInInvalid             = "validation_in_invalid"
	ValidationMatchInvalid          = "validation_match_invalid"
	ValidationIsEmail               = "validation_is_email"
	ValidationIsDigit               = "validation_is_digit"
	ValidationIsName                = "validation_is_name"
	ValidationIsURL                 = "validation_is_url"
	ValidationIsVerificationCode    = "validation_is_verification_code"
	ValidationIsVerificationPurpose = "validation_is_verification_purpose"
)

// Field name keys
const (
	FieldEmail            = "email"
	FieldVerificationCode = "otp"
	FieldPurpose          = "type"
	FieldProvider         = "provider"
	FieldCallbackURL      = "callback_url"
)

// Template argument keys (snake_case naming)
const (
	ArgField        = "field"
	ArgResourceType = "resource_type"
	ArgRetryAfter   = "retry_after"
	ArgProvider     = "provider"
	ArgMaxAttempts  = "max_attempts"
)
