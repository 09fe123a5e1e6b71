package cmd

import (
	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/pkg/i18nx"
)

var (
	ErrInvalidState = errorx.NewUnauthorized().WithKey(i18nx.KeyInvalidOAuthState)
	// ErrEmailNotVerified stops an unverified provider email from linking to a user or signing up.
	ErrEmailNotVerified = errorx.NewForbidden().WithKey(i18nx.KeyEmailNotVerifiedBy)
)
