package verification

import (
	"net/mail"
	"strings"

	"github.com/ARUMANDESU/validation"
	"golang.org/x/net/publicsuffix"

	"gitlab.com/acme/acme-auth/pkg/env"
	"gitlab.com/acme/acme-auth/pkg/validationx"
)

// ValidateEmail checks the address format. In dev and prod the domain must
// also end in an ICANN public suffix, so addresses like user@localhost fail.
func ValidateEmail(email string, mode env.Mode) error {
	if err := validation.Validate(email, validationx.EmailRules...); err != nil {
		return ErrInvalidEmail.WithCause(err)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail.WithCause(err)
	}
	if (mode == env.Dev || mode == env.Prod) && !hasRealTLD(email) {
		return ErrEmailDomainNotAllowed
	}

	return nil
}

func hasRealTLD(addr string) bool {
	parsed, err := mail.ParseAddress(addr)
	if err != nil {
		return false
	}

	at := strings.LastIndexByte(parsed.Address, '@')
	domain := parsed.Address[at+1:]

	suffix, icann := publicsuffix.PublicSuffix(domain)

	// no registrable part: "localhost", "internal", bare TLDs
	return icann && suffix != domain
}
