package user

import (
	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/pkg/i18nx"
)

var (
	ErrInvalidEmail = errorx.NewValidationFieldFailed(i18nx.FieldEmail).WithKey(i18nx.KeyInvalidEmailFormat)
	ErrNotFound     = errorx.NewResourceNotFound("user")
	ErrEmailTaken   = errorx.NewDuplicateEntryWithField("user", i18nx.FieldEmail)
)
