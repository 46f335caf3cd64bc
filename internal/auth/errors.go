package auth

import "errors"

// CodedError is an authentication failure carrying a stable application
// error code. Handlers surface the code to clients instead of raw error
// text.
type CodedError struct {
	Code    string
	Message string
}

func (e *CodedError) Error() string { return e.Message }

// Application error codes for authentication failures.
var (
	ErrInvalidCredentials = &CodedError{
		Code:    "INVALID_CREDENTIALS",
		Message: "email or password is incorrect",
	}
	ErrSessionExpired = &CodedError{
		Code:    "SESSION_EXPIRED",
		Message: "session has expired, sign in again",
	}
	ErrTwoFactorTokenFormat = &CodedError{
		Code:    "INVALID_TWO_FACTOR_TOKEN_FORMAT",
		Message: "two-factor token must be between 4 and 10 characters",
	}
	ErrTwoFactorTokenInvalid = &CodedError{
		Code:    "INVALID_TWO_FACTOR_TOKEN",
		Message: "two-factor token was not accepted",
	}
	ErrTwoFactorNotEnabled = &CodedError{
		Code:    "TWO_FACTOR_NOT_ENABLED",
		Message: "two-factor authentication is not enabled for this account",
	}
	ErrTwoFactorAlreadyEnabled = &CodedError{
		Code:    "TWO_FACTOR_ALREADY_ENABLED",
		Message: "two-factor authentication is already enabled",
	}
	ErrSigningTokenInvalid = &CodedError{
		Code:    "INVALID_SIGNING_TOKEN",
		Message: "signing link is invalid or has expired",
	}
)

// CodeFromError extracts the application error code from err, or
// "INTERNAL_ERROR" when err is not a CodedError.
func CodeFromError(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return "INTERNAL_ERROR"
}
