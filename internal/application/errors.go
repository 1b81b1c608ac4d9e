package application

import (
	"errors"

	"github.com/oksasatya/go-user-management/pkg/helpers"
)

var (
	ErrPrincipalNotFound   = errors.New("principal not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrDuplicateIdentifier = errors.New("email or username already registered")
	ErrInvalidRole         = errors.New("invalid role")
	ErrInvalidProfile      = errors.New("invalid profile")
	ErrUserNotFound        = errors.New("user not found")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidImportFile   = errors.New("invalid import file")

	// Token failures. The first three come straight from the issuer.
	ErrTokenMalformed        = helpers.ErrTokenMalformed
	ErrTokenSignatureInvalid = helpers.ErrTokenSignatureInvalid
	ErrTokenExpired          = helpers.ErrTokenExpired
	ErrTokenRevoked          = errors.New("token revoked")
)
