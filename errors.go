package authware

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// ErrMissingAuthorization is returned when a gated request carries no credential.
var ErrMissingAuthorization = goerrors.New("Missing authorization in headers", goerrors.CategoryAuth).
	WithTextCode("MISSING_AUTHORIZATION").
	WithCode(goerrors.CodeUnauthorized)

// ErrUnauthorized is the generic rejection for invalid or expired credentials.
var ErrUnauthorized = goerrors.New("Unauthorized", goerrors.CategoryAuth).
	WithTextCode("UNAUTHORIZED").
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountLocked is returned for INACTIVE accounts. The distinct message is
// an accepted information leak for support reasons; Config.RevealLockedStatus
// collapses it into ErrUnauthorized when disabled.
var ErrAccountLocked = goerrors.New("Account locked. Please contact support.", goerrors.CategoryAuth).
	WithTextCode("ACCOUNT_LOCKED").
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidCredentials is the undifferentiated login failure. It never
// distinguishes "user not found" from "wrong password".
var ErrInvalidCredentials = goerrors.New("User not found or the credentials are incorrect", goerrors.CategoryAuth).
	WithTextCode("INVALID_CREDENTIALS").
	WithCode(goerrors.CodeUnauthorized)

// ErrLinkExpired covers unknown, consumed, and expired action secrets alike.
var ErrLinkExpired = goerrors.New("Password link expired, request a new one", goerrors.CategoryValidation).
	WithTextCode("LINK_EXPIRED").
	WithCode(goerrors.CodeBadRequest)

// ErrTokenExpired is returned when a bearer token is past its expiry.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode("TOKEN_EXPIRED").
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens that fail structural or
// signature checks.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode("TOKEN_MALFORMED").
	WithCode(goerrors.CodeUnauthorized)

// ErrUnableToParseData is returned when claims are missing or cannot be
// projected into a session.
var ErrUnableToParseData = goerrors.New("unable to parse session data", goerrors.CategoryInternal).
	WithTextCode("UNPARSEABLE_SESSION")

// ErrNoEmptyString is returned when hashing an empty password.
var ErrNoEmptyString = goerrors.New("value must not be an empty string", goerrors.CategoryValidation).
	WithTextCode("EMPTY_STRING")

// ErrMismatchedHashAndPassword is the bcrypt mismatch sentinel.
var ErrMismatchedHashAndPassword = goerrors.New("password does not match", goerrors.CategoryAuth).
	WithTextCode("PASSWORD_MISMATCH").
	WithCode(goerrors.CodeUnauthorized)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
