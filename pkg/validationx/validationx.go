package validationx

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/ARUMANDESU/validation"

	"gitlab.com/acme/acme-auth/pkg/i18nx"
)

var (
	ErrInvalidNameFormat = validation.NewError(
		i18nx.ValidationIsName,
		"must be a valid name containing only letters, spaces, hyphens, apostrophes, and periods",
	)
	ErrVerificationCodeLength = validation.NewError(
		i18nx.ValidationLengthInvalid,
		"must be exactly {{.min}} digits",
	).SetParams(map[string]any{"min": VerificationCodeLen, "max": VerificationCodeLen})
	ErrVerificationCodeDigits = validation.NewError(
		i18nx.ValidationIsDigit,
		"must contain digits only",
	)
	ErrNotRelativePath = validation.NewError(
		i18nx.ValidationIsURL,
		"must be a path on this site",
	)
)

var (
	// Required is a validation rule that checks if a value is not empty. Use it for uuid verification, otherwise use validation.Required.
	Required = RequiredRule{}

	VerificationCode = VerificationCodeRule{}

	// RelativePath rejects absolute and protocol-relative URLs so redirects stay on this site.
	RelativePath = validation.By(func(value any) error {
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		if !strings.HasPrefix(s, "/") || strings.HasPrefix(s, "//") || strings.HasPrefix(s, "/\\") {
			return ErrNotRelativePath
		}
		return nil
	})
)

// Allow Unicode letters, spaces, hyphens, apostrophes, periods
var nameRegex = regexp.MustCompile(`^[\p{L}\p{M}\s'\-\.]+$`)

var IsPersonName = validation.By(func(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil // Let Required handle emptiness
	}

	if !nameRegex.MatchString(s) {
		return ErrInvalidNameFormat
	}
	return nil
})

// VerificationCodeRule checks the length first so the user sees the more
// helpful "must be 6 digits" message for short input like "12a".
type VerificationCodeRule struct{}

func (VerificationCodeRule) Validate(value any) error {
	value, isNil := validation.Indirect(value)
	if isNil {
		return nil
	}
	code, ok := value.(string)
	if !ok {
		return errors.New("value is not a string")
	}
	if code == "" {
		return nil // Let Required handle emptiness
	}

	if len(code) != VerificationCodeLen {
		return ErrVerificationCodeLength
	}
	for i := range len(code) {
		if code[i] < '0' || code[i] > '9' {
			return ErrVerificationCodeDigits
		}
	}
	return nil
}

type RequiredRule struct{}

func (r RequiredRule) Validate(value any) error {
	value, isNil := validation.Indirect(value)
	if isNil || isEmpty(value) {
		return validation.ErrRequired
	}

	return nil
}

func isEmpty(value any) bool {
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Array:
		return v.IsZero() || v.Len() == 0
	case reflect.String:
		return v.Len() == 0 || v.String() == "00000000-0000-0000-0000-000000000000"
	case reflect.Map, reflect.Slice:
		return v.IsNil() || v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Invalid:
		return true
	case reflect.Interface, reflect.Ptr:
		if v.IsNil() {
			return true
		}
		return isEmpty(v.Elem().Interface())
	case reflect.Struct:
		if t, ok := value.(time.Time); ok {
			return t.IsZero()
		}
	}

	return false
}

func AssertValidationError(t *testing.T, err error, expected error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %v, got nil", expected)
	}

	var verr validation.Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected error to be of type validation.Error, got %T: %v", err, err)
	}
	var expectedVerr validation.Error
	if !errors.As(expected, &expectedVerr) {
		t.Fatalf("expected expected error to be of type validation.Error, got %T: %v", expected, expected)
	}

	if verr.Code() != expectedVerr.Code() {
		t.Errorf("expected validation error code %q, got %q (%v)", expectedVerr.Code(), verr.Code(), verr)
	}
}
