package validationx

import (
	"github.com/ARUMANDESU/validation"
	"github.com/ARUMANDESU/validation/is"
)

const (
	MaxEmailLen         = 254
	VerificationCodeLen = 6
)

var (
	EmailRules = []validation.Rule{
		validation.Required,
		validation.Length(3, MaxEmailLen),
		is.EmailFormat,
	}

	NameRules = []validation.Rule{
		validation.Length(0, 150),
		IsPersonName,
	}

	// VerificationCodeRules accept exactly six ASCII digits.
	VerificationCodeRules = []validation.Rule{
		validation.Required,
		VerificationCode,
	}

	CallbackPathRules = []validation.Rule{
		validation.Length(0, 2048),
		RelativePath,
	}
)
