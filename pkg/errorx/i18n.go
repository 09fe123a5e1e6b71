package errorx

import (
	"errors"
	"fmt"
	"maps"
	"net/http"

	"github.com/nicksnyder/go-i18n/v2/i18n"

	"gitlab.com/acme/acme-auth/pkg/i18nx"
)

// I18nError is an error that carries a localizable message key together with
// a machine readable code and the HTTP status it maps to.
//
// The With* methods never mutate the receiver, so package level error values
// can be safely specialized per call site.
type I18nError struct {
	cause              error
	MessageKey         string
	MessageArgs        map[string]any
	MessagePluralCount any
	HTTPCode           int
	Code               Code
}

func (e *I18nError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("[%s] %s", e.Code, e.MessageKey)
	}

	return fmt.Sprintf("[%s] %s: %s", e.Code, e.MessageKey, e.cause)
}

func (e *I18nError) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *I18nError with the same code and message key.
// Message args and cause are ignored.
func (e *I18nError) Is(target error) bool {
	t, ok := target.(*I18nError)
	if !ok || e == nil || t == nil {
		return false
	}

	return e.Code == t.Code && e.MessageKey == t.MessageKey
}

func (e *I18nError) Localize(localizer *i18n.Localizer) string {
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    e.MessageKey,
		TemplateData: e.MessageArgs,
		PluralCount:  e.MessagePluralCount,
	})
	if err != nil {
		return e.MessageKey
	}

	return msg
}

func (e *I18nError) HTTPStatusCode() int {
	if e.HTTPCode != 0 {
		return e.HTTPCode
	}

	return HTTPStatusCode(e.Code)
}

func (e *I18nError) clone() *I18nError {
	c := *e
	c.MessageArgs = maps.Clone(e.MessageArgs)
	return &c
}

func (e *I18nError) WithHTTPCode(code int) *I18nError {
	c := e.clone()
	c.HTTPCode = code
	return c
}

func (e *I18nError) WithArgs(args map[string]any) *I18nError {
	c := e.clone()
	if c.MessageArgs == nil {
		c.MessageArgs = make(map[string]any, len(args))
	}

	maps.Copy(c.MessageArgs, args)

	return c
}

func (e *I18nError) WithCause(cause error) *I18nError {
	c := e.clone()
	c.cause = cause
	return c
}

func (e *I18nError) WithKey(key string) *I18nError {
	c := e.clone()
	c.MessageKey = key
	return c
}

func (e *I18nError) WithCode(code Code) *I18nError {
	c := e.clone()
	c.Code = code
	return c
}

func New(messageKey string) *I18nError {
	return &I18nError{
		MessageKey:  messageKey,
		MessageArgs: make(map[string]any),
		HTTPCode:    http.StatusInternalServerError,
		Code:        CodeInternal,
	}
}

func HTTPStatusCode(code Code) int {
	switch code {
	case CodeInternal:
		return http.StatusInternalServerError
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalid, CodeValidationFailed, CodeMalformedJSON:
		return http.StatusBadRequest
	case CodeConflict, CodeDuplicateEntry, CodeAlreadyProcessed:
		return http.StatusConflict
	case CodeUnauthorized, CodeInvalidCredentials, CodeTokenExpired:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case CodeBusinessRuleViolation:
		return http.StatusUnprocessableEntity
	case CodeUpstreamError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func IsCode(err error, code Code) bool {
	if err == nil {
		return false
	}

	var i18nErr *I18nError
	if errors.As(err, &i18nErr) {
		return i18nErr.Code == code
	}

	return false
}

func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

func IsDuplicateEntry(err error) bool {
	return IsCode(err, CodeDuplicateEntry)
}

func IsUnauthorized(err error) bool {
	return IsCode(err, CodeUnauthorized) || IsCode(err, CodeTokenExpired) || IsCode(err, CodeInvalidCredentials)
}

// Client Errors (4xx)
func NewValidationFieldFailed(field string) *I18nError {
	return &I18nError{
		MessageKey:  i18nx.KeyValidationFailedField,
		MessageArgs: map[string]any{i18nx.ArgField: field},
		Code:        CodeValidationFailed,
		HTTPCode:    http.StatusBadRequest,
	}
}

func NewMalformedJSON() *I18nError {
	return &I18nError{
		MessageKey: i18nx.KeyMalformedJSON,
		Code:       CodeMalformedJSON,
		HTTPCode:   http.StatusBadRequest,
	}
}

func NewUnauthorized() *I18nError {
	return &I18nError{
		MessageKey: i18nx.KeyUnauthorized,
		Code:       CodeUnauthorized,
		HTTPCode:   http.StatusUnauthorized,
	}
}

func NewInvalidCredentials() *I18nError {
	return &I18nError{
		MessageKey: i18nx.KeyInvalidCredentials,
		Code:       CodeInvalidCredentials,
		HTTPCode:   http.StatusUnauthorized,
	}
}

func NewTokenExpired() *I18nError {
	return &I18nError{
		MessageKey: i18nx.KeyTokenExpired,
		Code:       CodeTokenExpired,
		HTTPCode:   http.StatusUnauthorized,
	}
}

func NewForbidden() *I18nError {
	return &I18nError{
		MessageKey: i18nx.KeyForbidden,
		Code:       CodeForbidden,
		HTTPCode:   http.StatusForbidden,
	}
}

func NewNotFound() *I18nError {
	return &I18nError{
		MessageKey: i18nx.KeyNotFound,
		Code:       CodeNotFound,
		HTTPCode:   http.StatusNotFound,
	}
}

func NewResourceNotFound(resourceType string) *I18nError {
	return &I18nError{
		MessageKey:  i18nx.KeyNotFoundWithType,
		MessageArgs: map[string]any{i18nx.ArgResourceType: resourceType},
		Code:        CodeNotFound,
		HTTPCode:    http.StatusNotFound,
	}
}

func NewDuplicateEntry() *I18nError {
	return &I18nError{
		MessageKey: i18nx.KeyDuplicateEntry,
		Code:       CodeDuplicateEntry,
		HTTPCode:   http.StatusConflict,
	}
}

func NewDuplicateEntryWithField(resourceType, field string) *I18nError {
	return &I18nError{
		MessageKey: i18nx.KeyDuplicateEntryWithField,
		MessageArgs: map[string]any{
			i18nx.ArgResourceType: resourceType,
			i18nx.ArgField:        field,
		},
		Code:     CodeDuplicateEntry,
		HTTPCode: http.StatusConflict,
	}
}

func NewRateLimitExceeded() *I18nError {
	return &I18nError{
		MessageKey: i18nx.KeyRateLimitExceeded,
		Code:       CodeRateLimitExceeded,
		HTTPCode:   http.StatusTooManyRequests,
	}
}

func NewRateLimitExceededWithRetry(retryAfter int) *I18nError {
	return &I18nError{
		MessageKey:  i18nx.KeyRateLimitExceededWithTime,
		MessageArgs: map[string]any{i18nx.ArgRetryAfter: retryAfter},
		Code:        CodeRateLimitExceeded,
		HTTPCode:    http.StatusTooManyRequests,
	}
}

// Business Logic Errors
func NewAlreadyProcessed() *I18nError {
	return &I18nError{
		MessageKey: i18nx.KeyAlreadyProcessed,
		Code:       CodeAlreadyProcessed,
		HTTPCode:   http.StatusConflict,
	}
}

func NewBusinessRuleViolation() *I18nError {
	return &I18nError{
		MessageKey: i18nx.KeyBusinessRuleViolation,
		Code:       CodeBusinessRuleViolation,
		HTTPCode:   http.StatusUnprocessableEntity,
	}
}

func NewProviderNotSupported(provider string) *I18nError {
	return &I18nError{
		MessageKey:  i18nx.KeyProviderNotSupported,
		MessageArgs: map[string]any{i18nx.ArgProvider: provider},
		Code:        CodeProviderNotSupported,
		HTTPCode:    http.StatusBadRequest,
	}
}

// Server Errors (5xx)
func NewInternalError() *I18nError {
	return &I18nError{
		MessageKey: i18nx.KeyInternalError,
		Code:       CodeInternal,
		HTTPCode:   http.StatusInternalServerError,
	}
}

func NewUpstreamServiceError() *I18nError {
	return &I18nError{
		MessageKey: i18nx.KeyUpstreamServiceError,
		Code:       CodeUpstreamError,
		HTTPCode:   http.StatusBadGateway,
	}
}

func NewUpstreamTimeout() *I18nError {
	return &I18nError{
		MessageKey: i18nx.KeyUpstreamTimeout,
		Code:       CodeUpstreamTimeout,
		HTTPCode:   http.StatusGatewayTimeout,
	}
}
